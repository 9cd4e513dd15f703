package mmd

import (
	"encoding/binary"
	"errors"
	"io"
)

// baseParser reads little-endian fields. The first error sticks and turns
// every later read into a no-op.
type baseParser struct {
	r   io.Reader
	err error
}

func (p *baseParser) read(v interface{}) error {
	if p.err != nil {
		return p.err
	}
	if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		p.err = err
	}
	return p.err
}

func (p *baseParser) readBytes(n int) []byte {
	b := make([]byte, n)
	if p.err != nil {
		return b
	}
	if _, err := io.ReadFull(p.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		p.err = err
	}
	return b
}

func (p *baseParser) readUint8() uint8 {
	var v uint8
	p.read(&v)
	return v
}

func (p *baseParser) readUint16() uint16 {
	var v uint16
	p.read(&v)
	return v
}

func (p *baseParser) readInt() int {
	var v uint32
	p.read(&v)
	return int(v)
}

func (p *baseParser) readInt32() int {
	var v int32
	p.read(&v)
	return int(v)
}

func (p *baseParser) readFloat() float32 {
	var v float32
	p.read(&v)
	return v
}

func (p *baseParser) readVUInt(sz byte) int {
	switch sz {
	case 1:
		return int(p.readUint8())
	case 2:
		return int(p.readUint16())
	case 4:
		return p.readInt()
	}
	return 0
}

func (p *baseParser) readVInt(sz byte) int {
	switch sz {
	case 1:
		var v int8
		p.read(&v)
		return int(v)
	case 2:
		var v int16
		p.read(&v)
		return int(v)
	case 4:
		return p.readInt32()
	}
	return 0
}

// readString reads a fixed-width Shift-JIS field.
func (p *baseParser) readString(n int) string {
	b := p.readBytes(n)
	if p.err != nil {
		return ""
	}
	s, err := decodeFixedShiftJIS(b)
	if err != nil {
		p.err = err
	}
	return s
}

// maxRecords bounds section counts read from untrusted headers.
const maxRecords = 1 << 24

// each reads n records of a section, converting the first failure into a
// ParseError that names the record.
func (p *baseParser) each(format, section string, n int, read func(i int)) error {
	if p.err != nil {
		return newParseError(format, section, -1, p.err)
	}
	if n < 0 || n > maxRecords {
		return newParseError(format, section, -1, ErrCountMismatch)
	}
	for i := 0; i < n; i++ {
		read(i)
		if p.err != nil {
			return newParseError(format, section, i, p.err)
		}
	}
	return nil
}
