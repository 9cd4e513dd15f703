package skeleton

import (
	"bytes"
	"fmt"
	"os"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/mmd"
)

func vec3(v mmd.Vector3) geom.Vector3 {
	return geom.NewVector3(float64(v.X), float64(v.Y), float64(v.Z))
}

// FromDocument converts the bones of a parsed PMX or PMD model.
func FromDocument(doc *mmd.Document) (*Skeleton, error) {
	bones := make([]*Bone, len(doc.Bones))
	for i, src := range doc.Bones {
		b := &Bone{
			Name:        src.Name,
			EnglishName: src.NameEn,
			Position:    vec3(src.Pos),
			ParentIndex: src.ParentID,
			TailIndex:   src.TailID,
			Flags:       src.Flags,
			Layer:       src.Layer,
		}
		if src.Flags&mmd.BoneFlagTailIndex == 0 {
			b.TailIndex = -1
			b.TailPosition = vec3(src.TailPos)
		}
		if src.Flags&mmd.BoneFlagLocalAxis != 0 {
			b.LocalAxisX = vec3(src.LocalAxisX)
			b.LocalAxisZ = vec3(src.LocalAxisZ)
		}
		if src.HasIK() {
			ik := &Ik{
				BoneIndex:    src.IK.TargetID,
				LoopCount:    src.IK.Loop,
				UnitRotation: float64(src.IK.LimitRad),
			}
			for _, l := range src.IK.Links {
				ik.Links = append(ik.Links, &IkLink{
					BoneIndex:     l.TargetID,
					AngleLimit:    l.HasLimit,
					MinAngleLimit: vec3(l.LimitMin),
					MaxAngleLimit: vec3(l.LimitMax),
				})
			}
			b.Ik = ik
		}
		bones[i] = b
	}
	return New(doc.Name, bones)
}

// Load parses PMX or PMD data.
func Load(data []byte) (*Skeleton, error) {
	doc, err := mmd.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

func LoadFile(path string) (*Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sk, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sk, nil
}
