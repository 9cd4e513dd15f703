package mmd

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func isShiftJISLeadByte(b byte) bool {
	return (b >= 0x81 && b <= 0x9f) || (b >= 0xe0 && b <= 0xfc)
}

// trimShiftJIS drops a trailing lead byte left by fixed-width truncation.
func trimShiftJIS(b []byte) []byte {
	for i := 0; i < len(b); i++ {
		if isShiftJISLeadByte(b[i]) {
			if i == len(b)-1 {
				return b[:i]
			}
			i++
		}
	}
	return b
}

// decodeFixedShiftJIS decodes a null terminated fixed-width field.
func decodeFixedShiftJIS(b []byte) (string, error) {
	b = trimShiftJIS(bytes.SplitN(b, []byte{0}, 2)[0])
	s, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(s, utf8.RuneError) {
		return "", ErrInvalidName
	}
	return string(s), nil
}

// encodeFixedShiftJIS encodes s into n bytes, truncating on character
// boundaries. ok is false when some character had to be replaced.
func encodeFixedShiftJIS(s string, n int) (b []byte, ok bool) {
	enc := japanese.ShiftJIS.NewEncoder()
	sub := encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder())
	b = make([]byte, 0, n)
	ok = true
	for _, r := range s {
		c, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			ok = false
			if c, err = sub.Bytes([]byte(string(r))); err != nil {
				c = []byte{'?'}
			}
		}
		if len(b)+len(c) > n {
			break
		}
		b = append(b, c...)
	}
	return append(b, make([]byte, n-len(b))...), ok
}

func decodeUTF16(b []byte) (string, error) {
	s, err := utf16le.NewDecoder().Bytes(b)
	return string(s), err
}

func encodeUTF16(s string) ([]byte, error) {
	return utf16le.NewEncoder().Bytes([]byte(s))
}

// CanEncodeShiftJIS reports whether s can be stored in a VMD name field.
func CanEncodeShiftJIS(s string) bool {
	_, ok := encodeFixedShiftJIS(s, len(s)*2+1)
	return ok && !strings.ContainsRune(s, 0)
}
