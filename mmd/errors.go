package mmd

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCountMismatch     = errors.New("record count exceeds remaining data")
	ErrInvalidName       = errors.New("undecodable name")
)

// ParseError reports malformed or truncated binary input. It is never
// recovered from: the whole read fails.
type ParseError struct {
	Format  string
	Section string
	Index   int // record index in the section, -1 if not applicable
	Err     error
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: parse %s[%d]: %v", e.Format, e.Section, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: parse %s: %v", e.Format, e.Section, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(format, section string, index int, err error) *ParseError {
	return &ParseError{Format: format, Section: section, Index: index, Err: err}
}
