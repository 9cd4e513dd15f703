package mmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
)

const (
	formatVMD    = "VMD"
	vmdSignature = "Vocaloid Motion Data 0002"

	vmdBoneRecordSize   = 111
	vmdMorphRecordSize  = 23
	vmdCameraRecordSize = 61
	vmdLightRecordSize  = 28
	vmdShadowRecordSize = 9
	vmdIkRecordMinSize  = 9
	vmdIkEntrySize      = 21
)

// VMDParser is parser for .vmd animation. It works on a fully buffered
// file so section counts can be checked against the remaining bytes.
type VMDParser struct {
	baseParser
	buf *bytes.Reader
}

// NewVMDParser returns new parser over data.
func NewVMDParser(data []byte) *VMDParser {
	buf := bytes.NewReader(data)
	return &VMDParser{baseParser: baseParser{r: buf}, buf: buf}
}

// count reads a section count and rejects counts the remaining data cannot
// hold.
func (p *VMDParser) count(section string, recordSize int) (int, error) {
	n := p.readInt()
	if p.err != nil {
		return 0, newParseError(formatVMD, section, -1, p.err)
	}
	if n*recordSize > p.buf.Len() {
		return 0, newParseError(formatVMD, section, -1,
			fmt.Errorf("%w: %d records of %d bytes, %d bytes left", ErrCountMismatch, n, recordSize, p.buf.Len()))
	}
	return n, nil
}

func (p *VMDParser) readVector3() geom.Vector3 {
	var v [3]float32
	p.read(&v)
	return geom.NewVector3FromArray(v)
}

func (p *VMDParser) readBoneFrame(m *motion.Motion) {
	name := p.readString(15)
	f := motion.NewBoneFrame(p.readInt())
	f.Position = p.readVector3()
	var q [4]float32
	p.read(&q)
	f.Rotation = geom.NewRotationFromQuaternion(geom.NewQuaternionFromArray(q))
	var curves [64]byte
	p.read(&curves)
	f.Curves = motion.NewBoneCurvesFromBytes(curves)
	if p.err == nil {
		m.AppendBoneFrame(name, f)
	}
}

func (p *VMDParser) readMorphFrame(m *motion.Motion) {
	name := p.readString(15)
	f := motion.NewMorphFrame(p.readInt())
	f.Ratio = float64(p.readFloat())
	if p.err == nil {
		m.AppendMorphFrame(name, f)
	}
}

func (p *VMDParser) readCameraFrame(m *motion.Motion) {
	f := motion.NewCameraFrame(p.readInt())
	f.Distance = float64(p.readFloat())
	f.Position = p.readVector3()
	f.Rotation = p.readVector3()
	var curves [24]byte
	p.read(&curves)
	f.Curves = motion.NewCameraCurvesFromBytes(curves)
	f.ViewAngle = p.readInt()
	f.Perspective = p.readUint8() == 0
	if p.err == nil {
		f.SetRegistered(true)
		m.CameraFrames.Append(f)
	}
}

func (p *VMDParser) readLightFrame(m *motion.Motion) {
	f := motion.NewLightFrame(p.readInt())
	f.Color = p.readVector3()
	f.Position = p.readVector3()
	if p.err == nil {
		f.SetRegistered(true)
		m.LightFrames.Append(f)
	}
}

func (p *VMDParser) readShadowFrame(m *motion.Motion) {
	f := motion.NewShadowFrame(p.readInt())
	f.Mode = int(p.readUint8())
	f.Distance = float64(p.readFloat())
	if p.err == nil {
		f.SetRegistered(true)
		m.ShadowFrames.Append(f)
	}
}

func (p *VMDParser) readIkFrame(m *motion.Motion) {
	f := motion.NewIkFrame(p.readInt())
	f.Visible = p.readUint8() != 0
	n := p.readInt()
	if p.err == nil && n*vmdIkEntrySize > p.buf.Len() {
		p.err = fmt.Errorf("%w: %d IK entries", ErrCountMismatch, n)
	}
	for i := 0; i < n && p.err == nil; i++ {
		name := p.readString(20)
		enabled := p.readUint8() != 0
		f.Iks = append(f.Iks, motion.IkEnabled{Name: name, Enabled: enabled})
	}
	if p.err == nil {
		f.SetRegistered(true)
		m.IkFrames.Append(f)
	}
}

// Parse animation data.
func (p *VMDParser) Parse() (*motion.Motion, error) {
	m := motion.NewMotion("")

	sig := p.readBytes(30)
	if p.err != nil {
		return nil, newParseError(formatVMD, "header", -1, p.err)
	}
	if string(bytes.SplitN(sig, []byte{0}, 2)[0]) != vmdSignature {
		return nil, newParseError(formatVMD, "header", -1, ErrUnsupportedFormat)
	}
	m.ModelName = p.readString(20)
	if p.err != nil {
		return nil, newParseError(formatVMD, "model name", -1, p.err)
	}

	sections := []struct {
		name       string
		recordSize int
		read       func(*motion.Motion)
	}{
		{"bone", vmdBoneRecordSize, p.readBoneFrame},
		{"morph", vmdMorphRecordSize, p.readMorphFrame},
		{"camera", vmdCameraRecordSize, p.readCameraFrame},
		{"light", vmdLightRecordSize, p.readLightFrame},
		{"shadow", vmdShadowRecordSize, p.readShadowFrame},
		{"ik", vmdIkRecordMinSize, p.readIkFrame},
	}
	for i, s := range sections {
		// older writers stop after the morph section
		if i >= 2 && p.buf.Len() == 0 {
			break
		}
		n, err := p.count(s.name, s.recordSize)
		if err != nil {
			return nil, err
		}
		if err := p.each(formatVMD, s.name, n, func(int) { s.read(m) }); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DecodeVMD reads a whole motion from r.
func DecodeVMD(r io.Reader) (*motion.Motion, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read vmd: %w", err)
	}
	return NewVMDParser(data).Parse()
}

// ReadVMD loads a motion file.
func ReadVMD(path string) (*motion.Motion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := DecodeVMD(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}
