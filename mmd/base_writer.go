package mmd

import (
	"encoding/binary"
	"io"
)

// baseWriter writes little-endian fields and keeps the first error.
type baseWriter struct {
	w   io.Writer
	err error
}

func (p *baseWriter) write(v interface{}) error {
	if p.err == nil {
		p.err = binary.Write(p.w, binary.LittleEndian, v)
	}
	return p.err
}

func (p *baseWriter) writeUint8(v uint8) {
	p.write(v)
}

func (p *baseWriter) writeUint16(v uint16) {
	p.write(v)
}

func (p *baseWriter) writeInt(v int) {
	p.write(uint32(v))
}

func (p *baseWriter) writeInt32(v int) {
	p.write(int32(v))
}

func (p *baseWriter) writeFloat(v float32) {
	p.write(v)
}

func (p *baseWriter) writeVUInt(sz byte, v int) {
	switch sz {
	case 1:
		p.write(uint8(v))
	case 2:
		p.write(uint16(v))
	case 4:
		p.write(uint32(v))
	}
}

func (p *baseWriter) writeVInt(sz byte, v int) {
	switch sz {
	case 1:
		p.write(int8(v))
	case 2:
		p.write(int16(v))
	case 4:
		p.write(int32(v))
	}
}

// writeString writes s as a fixed-width Shift-JIS field and reports whether
// it was encoded without replacement.
func (p *baseWriter) writeString(s string, n int) bool {
	b, ok := encodeFixedShiftJIS(s, n)
	p.write(b)
	return ok
}
