package mmd

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const formatPMD = "PMD"

// PMDParser is parser for .pmd model.
type PMDParser struct {
	baseParser
	header *Header
}

// NewPMDParser returns new parser.
func NewPMDParser(r io.Reader) *PMDParser {
	return &PMDParser{baseParser: baseParser{r: r}}
}

// readComment decodes free text leniently; comments are informational only.
func (p *PMDParser) readComment(n int) string {
	b := p.readBytes(n)
	s, _, _ := transform.Bytes(japanese.ShiftJIS.NewDecoder(), bytes.SplitN(b, []byte{0}, 2)[0])
	return string(s)
}

func (p *PMDParser) readHeader() error {
	h := p.header
	if h == nil {
		h = &Header{Format: p.readBytes(3)}
		p.header = h
	}
	if p.err == nil && string(h.Format) != "Pmd" {
		p.err = ErrUnsupportedFormat
	}
	p.read(&h.Version)
	if p.err != nil {
		return newParseError(formatPMD, "header", -1, p.err)
	}
	return nil
}

func (p *PMDParser) readVertex() *Vertex {
	var v Vertex
	p.read(&v.Pos)
	p.read(&v.Normal)
	p.read(&v.UV)

	v.Bones = []int{p.readVInt(2), p.readVInt(2)}
	w := float32(p.readUint8()) / 100
	v.BoneWeights = []float32{w, 1 - w}
	v.EdgeScale = float32(p.readUint8())
	return &v
}

func (p *PMDParser) readMaterial(model *Document, i int) *Material {
	var m Material
	m.Name = fmt.Sprintf("mat%d", i+1)
	p.read(&m.Color)
	p.read(&m.Specularity)
	p.read(&m.Specular)
	p.read(&m.AColor)
	m.Toon = int(p.readUint8())
	m.EdgeScale = float32(p.readUint8())
	m.Count = p.readInt()

	tex := strings.SplitN(p.readComment(20), "*", 2)
	if tex[0] != "" {
		m.TextureID = len(model.Textures)
		model.Textures = append(model.Textures, tex...)
	} else {
		m.TextureID = -1
	}

	if m.Color.W < 1 {
		m.Flags = MaterialFlagDoubleSided
	}
	return &m
}

func (p *PMDParser) readBone() *Bone {
	var b Bone
	b.Name = p.readString(20)
	b.ParentID = p.readVInt(2)
	b.TailID = p.readVInt(2)
	if b.TailID == 0 {
		b.TailID = -1
	}
	b.Flags = BoneFlagRotatable | BoneFlagVisible | BoneFlagEnabled
	switch p.readUint8() {
	case 1:
		b.Flags |= BoneFlagTranslatable
	case 2:
		b.Flags |= BoneFlagEnableIK
	}
	if b.TailID >= 0 {
		b.Flags |= BoneFlagTailIndex
	}
	p.readUint16() // IK parent
	p.read(&b.Pos)
	b.InheritParentID = -1
	b.ExternalParent = -1
	return &b
}

func (p *PMDParser) readIK(model *Document) {
	index := int(p.readUint16())
	target := p.readVInt(2)
	n := int(p.readUint8())
	loop := int(p.readUint16())
	weight := p.readFloat()
	links := make([]*Link, 0, n)
	for i := 0; i < n; i++ {
		links = append(links, &Link{TargetID: p.readVInt(2)})
	}
	if p.err != nil {
		return
	}
	if index >= len(model.Bones) {
		p.err = fmt.Errorf("IK bone index %d out of range", index)
		return
	}
	for _, l := range links {
		if l.TargetID >= 0 && l.TargetID < len(model.Bones) && strings.Contains(model.Bones[l.TargetID].Name, "ひざ") {
			l.HasLimit = true
			l.LimitMin = Vector3{X: -math.Pi}
			l.LimitMax = Vector3{X: float32(-0.5 * math.Pi / 180)}
		}
	}
	b := model.Bones[index]
	b.Flags |= BoneFlagEnableIK
	b.IK = IK{TargetID: target, Loop: loop, LimitRad: weight * 4, Links: links}
}

func (p *PMDParser) readMorph() *Morph {
	var m Morph
	m.Name = p.readString(20)
	vn := p.readInt()
	p.read(&m.PanelType)
	m.MorphType = 1
	if vn > maxRecords {
		p.err = ErrCountMismatch
		return &m
	}
	for i := 0; i < vn && p.err == nil; i++ {
		var mv MorphVertex
		mv.Target = p.readVInt(4)
		p.read(&mv.Offset)
		m.Vertex = append(m.Vertex, &mv)
	}
	return &m
}

// Parse model data.
func (p *PMDParser) Parse() (*Document, error) {
	var model Document

	if err := p.readHeader(); err != nil {
		return nil, err
	}
	model.Header = p.header
	model.Name = p.readString(20)
	model.Comment = p.readComment(256)
	if p.err != nil {
		return nil, newParseError(formatPMD, "model info", -1, p.err)
	}

	n := p.readInt()
	if err := p.each(formatPMD, "vertex", n, func(int) { model.Vertexes = append(model.Vertexes, p.readVertex()) }); err != nil {
		return nil, err
	}

	n = p.readInt() / 3
	if err := p.each(formatPMD, "face", n, func(int) {
		var f Face
		f.Verts[0] = int(p.readUint16())
		f.Verts[1] = int(p.readUint16())
		f.Verts[2] = int(p.readUint16())
		model.Faces = append(model.Faces, &f)
	}); err != nil {
		return nil, err
	}

	n = p.readInt()
	if err := p.each(formatPMD, "material", n, func(i int) { model.Materials = append(model.Materials, p.readMaterial(&model, i)) }); err != nil {
		return nil, err
	}

	n = int(p.readUint16())
	if err := p.each(formatPMD, "bone", n, func(int) { model.Bones = append(model.Bones, p.readBone()) }); err != nil {
		return nil, err
	}

	n = int(p.readUint16())
	if err := p.each(formatPMD, "ik", n, func(int) { p.readIK(&model) }); err != nil {
		return nil, err
	}

	// the first morph is the base whose vertex indexes the others refer to
	n = int(p.readUint16())
	var base *Morph
	if err := p.each(formatPMD, "morph", n, func(i int) {
		m := p.readMorph()
		if i == 0 {
			base = m
			return
		}
		for _, v := range m.Vertex {
			if v.Target >= 0 && v.Target < len(base.Vertex) {
				v.Target = base.Vertex[v.Target].Target
			}
		}
		model.Morphs = append(model.Morphs, m)
	}); err != nil {
		return nil, err
	}

	return &model, nil
}
