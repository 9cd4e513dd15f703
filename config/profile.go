package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/skeleton"
	"gopkg.in/yaml.v2"
)

//go:embed default_profile.yaml
var defaultProfile []byte

// BoneRotation derives the rotation of Name from tracked positions. The
// bone's direction runs from DirectionFrom to DirectionTo and its up vector
// from UpFrom to UpTo. Cancels are the ancestors whose rotation is removed.
type BoneRotation struct {
	Name          string     `yaml:"name"`
	DirectionFrom string     `yaml:"directionFrom"`
	DirectionTo   string     `yaml:"directionTo"`
	UpFrom        string     `yaml:"upFrom"`
	UpTo          string     `yaml:"upTo"`
	Cancels       []string   `yaml:"cancels,omitempty"`
	Invert        [3]float64 `yaml:"invert,omitempty"` // degrees
	// Landmarks reads the positions from the hand landmarks. Frames whose
	// Visibility landmark is below the profile's MinVisibility are skipped.
	Landmarks  bool   `yaml:"landmarks,omitempty"`
	Visibility string `yaml:"visibility,omitempty"`
}

func (r *BoneRotation) InvertQuaternion() geom.Quaternion {
	return geom.NewRotationFromDegrees(geom.NewVector3(r.Invert[0], r.Invert[1], r.Invert[2])).Quaternion()
}

// DerivedBone is placed at the mean of Sources.
type DerivedBone struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources"`
}

// IkConstraint restricts an IK link to one axis.
type IkConstraint struct {
	Bone string     `yaml:"bone"`
	Axis [3]float64 `yaml:"axis"`
	Min  float64    `yaml:"min"` // degrees
	Max  float64    `yaml:"max"`
	// Local applies the axis in the bone's own frame.
	Local bool `yaml:"local,omitempty"`
}

// Leg names the bones of one leg IK chain.
type Leg struct {
	Ik    string `yaml:"ik"`
	Ankle string `yaml:"ankle"`
}

// Profile maps a tracker's joints onto an MMD rig.
type Profile struct {
	Name   string            `yaml:"name"`
	Scale  float64           `yaml:"scale"`
	Center string            `yaml:"center"`
	Root   string            `yaml:"root"`
	Joints map[string]string `yaml:"joints"`

	Landmarks     map[string]string `yaml:"landmarks"`
	MinVisibility float64           `yaml:"minVisibility"`

	Derived       []*DerivedBone  `yaml:"derived"`
	Rotations     []*BoneRotation `yaml:"rotations"`
	IkConstraints []*IkConstraint `yaml:"ikConstraints"`
	Legs          []*Leg          `yaml:"legs"`
}

func parseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, err
	}
	if p.Scale == 0 {
		p.Scale = 1
	}
	for _, r := range p.Rotations {
		if r.Name == "" || r.DirectionFrom == "" || r.DirectionTo == "" || r.UpFrom == "" || r.UpTo == "" {
			return nil, fmt.Errorf("incomplete rotation entry %q", r.Name)
		}
	}
	return &p, nil
}

func DefaultProfile() *Profile {
	p, err := parseProfile(defaultProfile)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadProfile reads a YAML profile. An empty path returns the default one.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := parseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p *Profile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyIkConstraints restricts every IK link of sk named by a constraint.
// maxLoop > 0 caps the loop count of every IK bone. It returns the number
// of links changed.
func (p *Profile) ApplyIkConstraints(sk *skeleton.Skeleton, maxLoop int) int {
	byName := map[string]*IkConstraint{}
	for _, c := range p.IkConstraints {
		byName[c.Bone] = c
	}
	n := 0
	for _, b := range sk.IkBones() {
		if maxLoop > 0 && b.Ik.LoopCount > maxLoop {
			b.Ik.LoopCount = maxLoop
		}
		for _, l := range b.Ik.Links {
			c, ok := byName[sk.Bone(l.BoneIndex).Name]
			if !ok {
				continue
			}
			axis := geom.NewVector3(c.Axis[0], c.Axis[1], c.Axis[2])
			if c.Local {
				l.RestrictToLocalAxis(axis, c.Min, c.Max)
			} else {
				l.RestrictToAxis(axis, c.Min, c.Max)
			}
			n++
		}
	}
	return n
}
