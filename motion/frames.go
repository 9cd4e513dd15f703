package motion

import (
	"github.com/binzume/motiontrace/geom"
)

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ratio returns the normalized time of index within [prev, next].
func ratio(prev, next, index int) float64 {
	if next <= prev {
		return 1
	}
	return float64(index-prev) / float64(next-prev)
}

type BoneFrame struct {
	BaseFrame
	Position geom.Vector3
	Rotation geom.Rotation
	Curves   BoneCurves
}

func NewBoneFrame(index int) *BoneFrame {
	return &BoneFrame{BaseFrame: NewBaseFrame(index), Curves: NewBoneCurves()}
}

func (f *BoneFrame) Copy() *BoneFrame {
	c := *f
	return &c
}

func (f *BoneFrame) Lerp(prev *BoneFrame, index int) *BoneFrame {
	t := ratio(prev.Index(), f.Index(), index)
	c := f.Copy()
	c.SetIndex(index)
	c.Position = geom.Vector3{
		X: lerp(prev.Position.X, f.Position.X, f.Curves.TranslateX.Evaluate(t)),
		Y: lerp(prev.Position.Y, f.Position.Y, f.Curves.TranslateY.Evaluate(t)),
		Z: lerp(prev.Position.Z, f.Position.Z, f.Curves.TranslateZ.Evaluate(t)),
	}
	q := prev.Rotation.Quaternion().Slerp(f.Rotation.Quaternion(), f.Curves.Rotate.Evaluate(t))
	c.Rotation = geom.NewRotationFromQuaternion(q)
	return c
}

type MorphFrame struct {
	BaseFrame
	Ratio float64
}

func NewMorphFrame(index int) *MorphFrame {
	return &MorphFrame{BaseFrame: NewBaseFrame(index)}
}

func (f *MorphFrame) Copy() *MorphFrame {
	c := *f
	return &c
}

func (f *MorphFrame) Lerp(prev *MorphFrame, index int) *MorphFrame {
	c := f.Copy()
	c.SetIndex(index)
	c.Ratio = lerp(prev.Ratio, f.Ratio, ratio(prev.Index(), f.Index(), index))
	return c
}

type CameraFrame struct {
	BaseFrame
	Distance    float64
	Position    geom.Vector3
	Rotation    geom.Vector3 // radians
	Curves      CameraCurves
	ViewAngle   int
	Perspective bool
}

func NewCameraFrame(index int) *CameraFrame {
	return &CameraFrame{BaseFrame: NewBaseFrame(index), Curves: NewCameraCurves(), ViewAngle: 30, Perspective: true}
}

func (f *CameraFrame) Copy() *CameraFrame {
	c := *f
	return &c
}

func (f *CameraFrame) Lerp(prev *CameraFrame, index int) *CameraFrame {
	t := ratio(prev.Index(), f.Index(), index)
	c := f.Copy()
	c.SetIndex(index)
	c.Position = geom.Vector3{
		X: lerp(prev.Position.X, f.Position.X, f.Curves.X.Evaluate(t)),
		Y: lerp(prev.Position.Y, f.Position.Y, f.Curves.Y.Evaluate(t)),
		Z: lerp(prev.Position.Z, f.Position.Z, f.Curves.Z.Evaluate(t)),
	}
	c.Rotation = prev.Rotation.Lerp(f.Rotation, f.Curves.Rotate.Evaluate(t))
	c.Distance = lerp(prev.Distance, f.Distance, f.Curves.Distance.Evaluate(t))
	c.ViewAngle = int(lerp(float64(prev.ViewAngle), float64(f.ViewAngle), f.Curves.ViewAngle.Evaluate(t)) + 0.5)
	c.Perspective = prev.Perspective
	return c
}

type LightFrame struct {
	BaseFrame
	Color    geom.Vector3
	Position geom.Vector3
}

func NewLightFrame(index int) *LightFrame {
	return &LightFrame{
		BaseFrame: NewBaseFrame(index),
		Color:     geom.NewVector3(0.602, 0.602, 0.602),
		Position:  geom.NewVector3(-0.5, -1.0, 0.5),
	}
}

func (f *LightFrame) Copy() *LightFrame {
	c := *f
	return &c
}

func (f *LightFrame) Lerp(prev *LightFrame, index int) *LightFrame {
	t := ratio(prev.Index(), f.Index(), index)
	c := f.Copy()
	c.SetIndex(index)
	c.Color = prev.Color.Lerp(f.Color, t)
	c.Position = prev.Position.Lerp(f.Position, t)
	return c
}

type ShadowFrame struct {
	BaseFrame
	Mode     int
	Distance float64
}

func NewShadowFrame(index int) *ShadowFrame {
	return &ShadowFrame{BaseFrame: NewBaseFrame(index)}
}

func (f *ShadowFrame) Copy() *ShadowFrame {
	c := *f
	return &c
}

// Lerp holds the previous key.
func (f *ShadowFrame) Lerp(prev *ShadowFrame, index int) *ShadowFrame {
	c := prev.Copy()
	c.SetIndex(index)
	return c
}

type IkEnabled struct {
	Name    string
	Enabled bool
}

// IkFrame toggles model display and individual IK bones.
type IkFrame struct {
	BaseFrame
	Visible bool
	Iks     []IkEnabled
}

func NewIkFrame(index int) *IkFrame {
	return &IkFrame{BaseFrame: NewBaseFrame(index), Visible: true}
}

func (f *IkFrame) Copy() *IkFrame {
	c := *f
	c.Iks = append([]IkEnabled(nil), f.Iks...)
	return &c
}

// Lerp holds the previous key.
func (f *IkFrame) Lerp(prev *IkFrame, index int) *IkFrame {
	c := prev.Copy()
	c.SetIndex(index)
	return c
}
