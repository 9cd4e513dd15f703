package mmd

import (
	"fmt"
	"io"
)

// PMXWriter is writer for .pmx data
type PMXWriter struct {
	baseWriter
	header *Header
}

// NewPMXWriter returns new writer.
func NewPMXWriter(w io.Writer) *PMXWriter {
	return &PMXWriter{baseWriter: baseWriter{w: w}}
}

func (w *PMXWriter) Write(doc *Document) error {
	h := doc.Header
	if h == nil {
		h = NewDocument().Header
	}
	w.writeHeader(h)
	w.writeText(doc.Name)
	w.writeText(doc.NameEn)
	w.writeText(doc.Comment)
	w.writeText(doc.CommentEn)

	w.writeInt(len(doc.Vertexes))
	for _, v := range doc.Vertexes {
		w.writeVertex(v)
	}

	w.writeInt(len(doc.Faces) * 3)
	for _, f := range doc.Faces {
		w.writeFace(f)
	}

	w.writeInt(len(doc.Textures))
	for _, t := range doc.Textures {
		w.writeText(t)
	}

	w.writeInt(len(doc.Materials))
	for _, m := range doc.Materials {
		w.writeMaterial(m)
	}

	w.writeInt(len(doc.Bones))
	for _, b := range doc.Bones {
		w.writeBone(b)
	}

	w.writeInt(len(doc.Morphs))
	for _, m := range doc.Morphs {
		w.writeMorph(m)
	}

	// display frames, rigid bodies, joints, soft bodies
	w.writeInt(0)
	w.writeInt(0)
	w.writeInt(0)
	w.writeInt(0)

	if w.err != nil {
		return fmt.Errorf("write pmx: %w", w.err)
	}
	return nil
}

func (w *PMXWriter) writeText(v string) {
	data := []byte(v)
	if w.header.Info[AttrStringEncoding] == 0 {
		var err error
		if data, err = encodeUTF16(v); err != nil && w.err == nil {
			w.err = err
		}
	}
	w.writeInt(len(data))
	w.write(data)
}

func (w *PMXWriter) writeIndex(attrTyp int, v int) {
	w.writeVInt(w.header.Info[attrTyp], v)
}

func (w *PMXWriter) writeUIndex(attrTyp int, v int) {
	w.writeVUInt(w.header.Info[attrTyp], v)
}

func (w *PMXWriter) writeHeader(h *Header) {
	w.header = h
	w.write([]byte("PMX "))
	w.write(h.Version)
	w.writeUint8(uint8(len(h.Info)))
	w.write(h.Info)
}

func (w *PMXWriter) writeVertex(v *Vertex) {
	w.write(&v.Pos)
	w.write(&v.Normal)
	w.write(&v.UV)
	ext := make([]Vector4, w.header.Info[AttrExtUV])
	copy(ext, v.ExtUVs)
	w.write(ext)

	switch len(v.BoneWeights) {
	case 1:
		w.writeUint8(0)
		w.writeIndex(AttrBoneIndexSz, v.Bones[0])
	case 2:
		w.writeUint8(1)
		w.writeIndex(AttrBoneIndexSz, v.Bones[0])
		w.writeIndex(AttrBoneIndexSz, v.Bones[1])
		w.writeFloat(v.BoneWeights[0])
	case 4:
		w.writeUint8(2)
		for _, b := range v.Bones[:4] {
			w.writeIndex(AttrBoneIndexSz, b)
		}
		w.write(v.BoneWeights)
	default:
		if w.err == nil {
			w.err = fmt.Errorf("unsupported bone weight count %d", len(v.BoneWeights))
		}
	}
	w.write(&v.EdgeScale)
}

func (w *PMXWriter) writeFace(f *Face) {
	w.writeUIndex(AttrVertIndexSz, f.Verts[0])
	w.writeUIndex(AttrVertIndexSz, f.Verts[1])
	w.writeUIndex(AttrVertIndexSz, f.Verts[2])
}

func (w *PMXWriter) writeMaterial(m *Material) {
	w.writeText(m.Name)
	w.writeText(m.NameEn)
	w.write(&m.Color)
	w.write(&m.Specular)
	w.write(&m.Specularity)
	w.write(&m.AColor)
	w.write(&m.Flags)
	w.write(&m.EdgeColor)
	w.write(&m.EdgeScale)

	w.writeIndex(AttrTexIndexSz, m.TextureID)
	w.writeIndex(AttrTexIndexSz, m.EnvID)

	w.write(&m.EnvMode)
	w.write(&m.ToonType)
	if m.ToonType == 0 {
		w.writeIndex(AttrTexIndexSz, m.Toon)
	} else {
		w.writeUint8(uint8(m.Toon))
	}

	w.writeText(m.Memo)
	w.writeInt(m.Count)
}

func (w *PMXWriter) writeBone(b *Bone) {
	w.writeText(b.Name)
	w.writeText(b.NameEn)
	w.write(&b.Pos)

	w.writeIndex(AttrBoneIndexSz, b.ParentID)
	w.writeInt32(b.Layer)

	if b.Flags&^BoneFlagAll != 0 && w.err == nil {
		w.err = fmt.Errorf("bone %q: unsupported flags %#x", b.Name, b.Flags&^BoneFlagAll)
	}
	w.write(&b.Flags)

	if b.Flags&BoneFlagTailIndex != 0 {
		w.writeIndex(AttrBoneIndexSz, b.TailID)
	} else {
		w.write(&b.TailPos)
	}

	if b.Flags&(BoneFlagInheritRotation|BoneFlagInheritTranslation) != 0 {
		w.writeIndex(AttrBoneIndexSz, b.InheritParentID)
		w.write(&b.InheritParentInfluence)
	}

	if b.Flags&BoneFlagFixedAxis != 0 {
		w.write(&b.FixedAxis)
	}

	if b.Flags&BoneFlagLocalAxis != 0 {
		w.write(&b.LocalAxisX)
		w.write(&b.LocalAxisZ)
	}

	if b.Flags&BoneFlagExternalParent != 0 {
		w.writeInt32(b.ExternalParent)
	}

	if b.Flags&BoneFlagEnableIK != 0 {
		w.writeIndex(AttrBoneIndexSz, b.IK.TargetID)
		w.writeInt32(b.IK.Loop)
		w.write(&b.IK.LimitRad)
		w.writeInt32(len(b.IK.Links))
		for _, l := range b.IK.Links {
			w.writeIndex(AttrBoneIndexSz, l.TargetID)
			if l.HasLimit {
				w.writeUint8(1)
				w.write(&l.LimitMin)
				w.write(&l.LimitMax)
			} else {
				w.writeUint8(0)
			}
		}
	}
}

func (w *PMXWriter) writeMorph(m *Morph) {
	w.writeText(m.Name)
	w.writeText(m.NameEn)
	w.write(&m.PanelType)
	w.write(&m.MorphType)

	// oneof
	w.writeInt32(len(m.Group) + len(m.Vertex) + len(m.Bone) + len(m.UV) + len(m.Material))

	for _, v := range m.Group {
		w.writeIndex(AttrMorphIndexSz, v.Target)
		w.write(&v.Weight)
	}
	for _, v := range m.Vertex {
		w.writeUIndex(AttrVertIndexSz, v.Target)
		w.write(&v.Offset)
	}
	for _, v := range m.Bone {
		w.writeIndex(AttrBoneIndexSz, v.Target)
		w.write(&v.Translation)
		w.write(&v.Rotation)
	}
	for _, v := range m.UV {
		w.writeUIndex(AttrVertIndexSz, v.Target)
		w.write(&v.Value)
	}
	for _, v := range m.Material {
		w.writeIndex(AttrMatIndexSz, v.Target)
		w.write(&v.Flags)
		w.write(&v.Diffuse)
		w.write(&v.Specular)
		w.write(&v.Specularity)
		w.write(&v.Ambient)
		w.write(&v.EdgeColor)
		w.write(&v.EdgeSize)
		w.write(&v.TextureTint)
		w.write(&v.EnvironmentTint)
		w.write(&v.ToonTint)
	}
}

// WritePMX writes .pmx data
func WritePMX(doc *Document, w io.Writer) error {
	return NewPMXWriter(w).Write(doc)
}
