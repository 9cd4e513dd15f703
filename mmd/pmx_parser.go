package mmd

import (
	"bufio"
	"fmt"
	"io"
)

// see also:
// https://gist.github.com/felixjones/f8a06bd48f9da9a4539f

const formatPMX = "PMX"

type PMXParser struct {
	baseParser
	header *Header
}

func NewPMXParser(r io.Reader) *PMXParser {
	return &PMXParser{baseParser: baseParser{r: r}}
}

func (p *PMXParser) readIndex(attrTyp int) int {
	return p.readVInt(p.header.Info[attrTyp])
}

func (p *PMXParser) readUIndex(attrTyp int) int {
	return p.readVUInt(p.header.Info[attrTyp])
}

func (p *PMXParser) readText() string {
	n := p.readInt32()
	if n < 0 || n > maxRecords {
		if p.err == nil {
			p.err = fmt.Errorf("invalid text length %d", n)
		}
		return ""
	}
	data := p.readBytes(n)
	if p.err != nil {
		return ""
	}
	if p.header.Info[AttrStringEncoding] == 0 {
		s, err := decodeUTF16(data)
		if err != nil {
			p.err = err
		}
		return s
	}
	return string(data)
}

func (p *PMXParser) readHeader() error {
	h := p.header
	if h == nil {
		h = &Header{Format: p.readBytes(4)}
		p.header = h
	}
	if p.err != nil {
		return newParseError(formatPMX, "header", -1, p.err)
	}
	if string(h.Format) != "PMX " {
		return newParseError(formatPMX, "header", -1, ErrUnsupportedFormat)
	}
	p.read(&h.Version)
	h.Info = p.readBytes(int(p.readUint8()))
	if p.err == nil && len(h.Info) < AttrRBIndexSz+1 {
		p.err = fmt.Errorf("short header info: %d", len(h.Info))
	}
	if p.err != nil {
		return newParseError(formatPMX, "header", -1, p.err)
	}
	return nil
}

func (p *PMXParser) readVertex() *Vertex {
	var v Vertex
	p.read(&v.Pos)
	p.read(&v.Normal)
	p.read(&v.UV)
	v.ExtUVs = make([]Vector4, p.header.Info[AttrExtUV])
	p.read(&v.ExtUVs)
	switch weightType := p.readUint8(); weightType {
	case 0:
		v.Bones = []int{p.readIndex(AttrBoneIndexSz)}
		v.BoneWeights = []float32{1}
	case 1:
		v.Bones = []int{p.readIndex(AttrBoneIndexSz), p.readIndex(AttrBoneIndexSz)}
		w := p.readFloat()
		v.BoneWeights = []float32{w, 1 - w}
	case 2, 4:
		v.Bones = []int{
			p.readIndex(AttrBoneIndexSz),
			p.readIndex(AttrBoneIndexSz),
			p.readIndex(AttrBoneIndexSz),
			p.readIndex(AttrBoneIndexSz),
		}
		v.BoneWeights = []float32{p.readFloat(), p.readFloat(), p.readFloat(), p.readFloat()}
	case 3:
		// SDEF: C, R0, R1 are dropped
		v.Bones = []int{p.readIndex(AttrBoneIndexSz), p.readIndex(AttrBoneIndexSz)}
		w := p.readFloat()
		v.BoneWeights = []float32{w, 1 - w}
		var sdef [3]Vector3
		p.read(&sdef)
	default:
		if p.err == nil {
			p.err = fmt.Errorf("unknown weight type %d", weightType)
		}
	}
	v.EdgeScale = p.readFloat()
	return &v
}

func (p *PMXParser) readFace() *Face {
	var f Face
	f.Verts[0] = p.readUIndex(AttrVertIndexSz)
	f.Verts[1] = p.readUIndex(AttrVertIndexSz)
	f.Verts[2] = p.readUIndex(AttrVertIndexSz)
	return &f
}

func (p *PMXParser) readMaterial() *Material {
	var m Material
	m.Name = p.readText()
	m.NameEn = p.readText()
	p.read(&m.Color)
	p.read(&m.Specular)
	p.read(&m.Specularity)
	p.read(&m.AColor)
	p.read(&m.Flags)
	p.read(&m.EdgeColor)
	p.read(&m.EdgeScale)
	m.TextureID = p.readIndex(AttrTexIndexSz)
	m.EnvID = p.readIndex(AttrTexIndexSz)
	p.read(&m.EnvMode)
	p.read(&m.ToonType)
	if m.ToonType == 0 {
		m.Toon = p.readIndex(AttrTexIndexSz)
	} else {
		m.Toon = int(p.readUint8())
	}
	m.Memo = p.readText()
	m.Count = p.readInt()
	return &m
}

func (p *PMXParser) readBone() *Bone {
	var b Bone
	b.Name = p.readText()
	b.NameEn = p.readText()
	p.read(&b.Pos)
	b.ParentID = p.readIndex(AttrBoneIndexSz)
	b.Layer = p.readInt32()
	p.read(&b.Flags)

	if b.Flags&BoneFlagTailIndex != 0 {
		b.TailID = p.readIndex(AttrBoneIndexSz)
	} else {
		b.TailID = -1
		p.read(&b.TailPos)
	}

	b.InheritParentID = -1
	if b.Flags&(BoneFlagInheritRotation|BoneFlagInheritTranslation) != 0 {
		b.InheritParentID = p.readIndex(AttrBoneIndexSz)
		b.InheritParentInfluence = p.readFloat()
	}

	if b.Flags&BoneFlagFixedAxis != 0 {
		p.read(&b.FixedAxis)
	}

	if b.Flags&BoneFlagLocalAxis != 0 {
		p.read(&b.LocalAxisX)
		p.read(&b.LocalAxisZ)
	}

	b.ExternalParent = -1
	if b.Flags&BoneFlagExternalParent != 0 {
		b.ExternalParent = p.readInt32()
	}

	if b.Flags&BoneFlagEnableIK != 0 {
		b.IK.TargetID = p.readIndex(AttrBoneIndexSz)
		b.IK.Loop = p.readInt32()
		b.IK.LimitRad = p.readFloat()
		n := p.readInt32()
		if n < 0 || n > maxRecords {
			if p.err == nil {
				p.err = fmt.Errorf("invalid IK link count %d", n)
			}
			return &b
		}
		for i := 0; i < n && p.err == nil; i++ {
			var l Link
			l.TargetID = p.readIndex(AttrBoneIndexSz)
			l.HasLimit = p.readUint8() != 0
			if l.HasLimit {
				p.read(&l.LimitMin)
				p.read(&l.LimitMax)
			}
			b.IK.Links = append(b.IK.Links, &l)
		}
	}

	return &b
}

func (p *PMXParser) readMorph() *Morph {
	var m Morph
	m.Name = p.readText()
	m.NameEn = p.readText()
	m.PanelType = p.readUint8()
	m.MorphType = p.readUint8()

	n := p.readInt32()
	if n < 0 || n > maxRecords {
		if p.err == nil {
			p.err = fmt.Errorf("invalid morph offset count %d", n)
		}
		return &m
	}
	for i := 0; i < n && p.err == nil; i++ {
		switch m.MorphType {
		case 0, 9:
			m.Group = append(m.Group, &MorphGroup{
				Target: p.readIndex(AttrMorphIndexSz),
				Weight: p.readFloat(),
			})
		case 1:
			var v MorphVertex
			v.Target = p.readUIndex(AttrVertIndexSz)
			p.read(&v.Offset)
			m.Vertex = append(m.Vertex, &v)
		case 2:
			var v MorphBone
			v.Target = p.readIndex(AttrBoneIndexSz)
			p.read(&v.Translation)
			p.read(&v.Rotation)
			m.Bone = append(m.Bone, &v)
		case 3, 4, 5, 6, 7:
			var v MorphUV
			v.Target = p.readUIndex(AttrVertIndexSz)
			p.read(&v.Value)
			m.UV = append(m.UV, &v)
		case 8:
			var v MorphMaterial
			v.Target = p.readIndex(AttrMatIndexSz)
			p.read(&v.Flags)
			p.read(&v.Diffuse)
			p.read(&v.Specular)
			p.read(&v.Specularity)
			p.read(&v.Ambient)
			p.read(&v.EdgeColor)
			p.read(&v.EdgeSize)
			p.read(&v.TextureTint)
			p.read(&v.EnvironmentTint)
			p.read(&v.ToonTint)
			m.Material = append(m.Material, &v)
		case 10:
			// impulse morphs only matter to physics
			p.readIndex(AttrRBIndexSz)
			p.readUint8()
			var impulse [2]Vector3
			p.read(&impulse)
		default:
			p.err = fmt.Errorf("unknown morph type %d", m.MorphType)
		}
	}
	return &m
}

// Parse reads the model up to the morph section.
func (p *PMXParser) Parse() (*Document, error) {
	var doc Document

	if err := p.readHeader(); err != nil {
		return nil, err
	}
	doc.Header = p.header
	doc.Name = p.readText()
	doc.NameEn = p.readText()
	doc.Comment = p.readText()
	doc.CommentEn = p.readText()
	if p.err != nil {
		return nil, newParseError(formatPMX, "model info", -1, p.err)
	}

	n := p.readInt()
	doc.Vertexes = make([]*Vertex, 0, min(n, maxRecords))
	if err := p.each(formatPMX, "vertex", n, func(int) { doc.Vertexes = append(doc.Vertexes, p.readVertex()) }); err != nil {
		return nil, err
	}

	n = p.readInt() / 3
	doc.Faces = make([]*Face, 0, min(n, maxRecords))
	if err := p.each(formatPMX, "face", n, func(int) { doc.Faces = append(doc.Faces, p.readFace()) }); err != nil {
		return nil, err
	}

	n = p.readInt()
	if err := p.each(formatPMX, "texture", n, func(int) { doc.Textures = append(doc.Textures, p.readText()) }); err != nil {
		return nil, err
	}

	n = p.readInt()
	if err := p.each(formatPMX, "material", n, func(int) { doc.Materials = append(doc.Materials, p.readMaterial()) }); err != nil {
		return nil, err
	}

	n = p.readInt()
	if err := p.each(formatPMX, "bone", n, func(int) { doc.Bones = append(doc.Bones, p.readBone()) }); err != nil {
		return nil, err
	}

	n = p.readInt()
	if err := p.each(formatPMX, "morph", n, func(int) { doc.Morphs = append(doc.Morphs, p.readMorph()) }); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Parse reads a PMX or PMD model.
func Parse(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil && len(magic) < 3 {
		return nil, newParseError("model", "header", -1, io.ErrUnexpectedEOF)
	}

	if string(magic[:3]) == "Pmd" {
		return NewPMDParser(br).Parse()
	}
	return NewPMXParser(br).Parse()
}
