package mmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
	"github.com/rs/zerolog"
)

// PlaceholderModelName replaces model names that Shift-JIS cannot encode.
const PlaceholderModelName = "Motion Trace Model"

// VMDWriter is writer for .vmd data. Every section is written in descending
// frame order, which is what MMD itself produces.
type VMDWriter struct {
	baseWriter
	logger zerolog.Logger
}

func NewVMDWriter(w io.Writer, logger zerolog.Logger) *VMDWriter {
	return &VMDWriter{baseWriter: baseWriter{w: w}, logger: logger}
}

func (w *VMDWriter) writeVector3(v geom.Vector3) {
	w.write(v.ToArray())
}

func (w *VMDWriter) writeName(s string, n int) {
	if !w.writeString(s, n) {
		w.logger.Debug().Str("name", s).Msg("name contains characters Shift-JIS cannot encode")
	}
}

func (w *VMDWriter) Write(m *motion.Motion, modelName string) error {
	if modelName == "" {
		modelName = m.ModelName
	}
	if !CanEncodeShiftJIS(modelName) {
		w.logger.Warn().Str("model", modelName).Str("placeholder", PlaceholderModelName).
			Msg("model name cannot be encoded, using placeholder")
		modelName = PlaceholderModelName
	}

	sig := make([]byte, 30)
	copy(sig, vmdSignature)
	w.write(sig)
	w.writeString(modelName, 20)

	w.writeInt(m.BoneFrames.Count())
	for _, name := range m.BoneFrames.Names() {
		t, _ := m.BoneFrames.Lookup(name)
		for _, index := range t.RegisteredIndexesDesc() {
			f := t.Get(index)
			w.writeName(name, 15)
			w.writeInt(index)
			w.writeVector3(f.Position)
			w.write(f.Rotation.Quaternion().Normalize().ToArray())
			w.write(f.Curves.Bytes())
		}
	}

	w.writeInt(m.MorphFrames.Count())
	for _, name := range m.MorphFrames.Names() {
		t, _ := m.MorphFrames.Lookup(name)
		for _, index := range t.RegisteredIndexesDesc() {
			w.writeName(name, 15)
			w.writeInt(index)
			w.writeFloat(float32(t.Get(index).Ratio))
		}
	}

	w.writeInt(m.CameraFrames.Len())
	for _, index := range m.CameraFrames.RegisteredIndexesDesc() {
		f := m.CameraFrames.Get(index)
		w.writeInt(index)
		w.writeFloat(float32(f.Distance))
		w.writeVector3(f.Position)
		w.writeVector3(f.Rotation)
		w.write(f.Curves.Bytes())
		w.writeInt(f.ViewAngle)
		if f.Perspective {
			w.writeUint8(0)
		} else {
			w.writeUint8(1)
		}
	}

	w.writeInt(m.LightFrames.Len())
	for _, index := range m.LightFrames.RegisteredIndexesDesc() {
		f := m.LightFrames.Get(index)
		w.writeInt(index)
		w.writeVector3(f.Color)
		w.writeVector3(f.Position)
	}

	w.writeInt(m.ShadowFrames.Len())
	for _, index := range m.ShadowFrames.RegisteredIndexesDesc() {
		f := m.ShadowFrames.Get(index)
		w.writeInt(index)
		w.writeUint8(uint8(f.Mode))
		w.writeFloat(float32(f.Distance))
	}

	w.writeInt(m.IkFrames.Len())
	for _, index := range m.IkFrames.RegisteredIndexesDesc() {
		f := m.IkFrames.Get(index)
		w.writeInt(index)
		w.writeUint8(boolByte(f.Visible))
		w.writeInt(len(f.Iks))
		for _, ik := range f.Iks {
			w.writeName(ik.Name, 20)
			w.writeUint8(boolByte(ik.Enabled))
		}
	}

	return w.err
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// EncodeVMD writes m to w. An empty modelName falls back to m.ModelName.
func EncodeVMD(w io.Writer, m *motion.Motion, modelName string, logger zerolog.Logger) error {
	if err := NewVMDWriter(w, logger).Write(m, modelName); err != nil {
		return fmt.Errorf("write vmd: %w", err)
	}
	return nil
}

// WriteVMD saves m to path. On failure the partially written file is left
// in place and must be discarded by the caller.
func WriteVMD(path string, m *motion.Motion, modelName string, logger zerolog.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := EncodeVMD(bw, m, modelName, logger); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug().Str("path", path).Int("bones", m.BoneFrames.Count()).Msg("motion written")
	return nil
}
