package motion

// Motion owns every keyframe of one animation.
type Motion struct {
	Path         string
	ModelName    string
	BoneFrames   *NamedTimelines[*BoneFrame]
	MorphFrames  *NamedTimelines[*MorphFrame]
	CameraFrames *Timeline[*CameraFrame]
	LightFrames  *Timeline[*LightFrame]
	ShadowFrames *Timeline[*ShadowFrame]
	IkFrames     *Timeline[*IkFrame]
}

func NewMotion(path string) *Motion {
	return &Motion{
		Path:         path,
		BoneFrames:   NewNamedTimelines(NewBoneFrame),
		MorphFrames:  NewNamedTimelines(NewMorphFrame),
		CameraFrames: NewTimeline("camera", NewCameraFrame),
		LightFrames:  NewTimeline("light", NewLightFrame),
		ShadowFrames: NewTimeline("shadow", NewShadowFrame),
		IkFrames:     NewTimeline("ik", NewIkFrame),
	}
}

// MaxIndex returns the largest registered frame over all bone timelines.
func (m *Motion) MaxIndex() int {
	return m.BoneFrames.MaxIndex()
}

// AppendBoneFrame registers f on the named bone timeline.
func (m *Motion) AppendBoneFrame(name string, f *BoneFrame) {
	f.SetRegistered(true)
	m.BoneFrames.Get(name).Append(f)
}

func (m *Motion) AppendMorphFrame(name string, f *MorphFrame) {
	f.SetRegistered(true)
	m.MorphFrames.Get(name).Append(f)
}

// BoneFrame returns the keyed or interpolated frame of a bone. Missing bones
// yield a rest pose frame.
func (m *Motion) BoneFrame(name string, index int) *BoneFrame {
	if t, ok := m.BoneFrames.Lookup(name); ok {
		return t.Get(index)
	}
	return NewBoneFrame(index)
}

func (m *Motion) Copy() *Motion {
	return &Motion{
		Path:         m.Path,
		ModelName:    m.ModelName,
		BoneFrames:   m.BoneFrames.Copy(),
		MorphFrames:  m.MorphFrames.Copy(),
		CameraFrames: m.CameraFrames.Copy(),
		LightFrames:  m.LightFrames.Copy(),
		ShadowFrames: m.ShadowFrames.Copy(),
		IkFrames:     m.IkFrames.Copy(),
	}
}
