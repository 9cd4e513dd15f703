package converter

import (
	"context"
	"math"

	"github.com/binzume/motiontrace/config"
	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
)

// Tracked holds world positions of the tracked bones per frame, keyed as
// bone frames whose Position is global.
type Tracked struct {
	Name   string
	Frames []int
	// Joints are the body joints plus derived bones and the center offset.
	Joints *motion.Motion
	// Landmarks are the hand landmarks with their visibility.
	Landmarks  *motion.Motion
	Visibility map[string]map[int]float64
	// Ground is the Y that was subtracted from every position.
	Ground float64
}

func (t *Tracked) position(m *motion.Motion, name string, frame int) (geom.Vector3, bool) {
	tl, ok := m.BoneFrames.Lookup(name)
	if !ok || !tl.IsRegistered(frame) {
		return geom.Vector3{}, false
	}
	return tl.Get(frame).Position, true
}

// Joint returns the tracked position of a bone at frame.
func (t *Tracked) Joint(name string, frame int) (geom.Vector3, bool) {
	return t.position(t.Joints, name, frame)
}

func (t *Tracked) Landmark(name string, frame int) (geom.Vector3, bool) {
	return t.position(t.Landmarks, name, frame)
}

func appendPosition(m *motion.Motion, name string, frame int, pos geom.Vector3) {
	f := motion.NewBoneFrame(frame)
	f.Position = pos
	m.AppendBoneFrame(name, f)
}

// Move converts the joints of a trace to bone positions in model units.
// origin is the camera position of the first frame of the first person so
// that every person shares one depth origin.
func Move(ctx context.Context, trace *Trace, profile *config.Profile, origin Position) (*Tracked, error) {
	t := &Tracked{
		Name:       trace.Name(),
		Frames:     trace.Indexes(),
		Joints:     motion.NewMotion(trace.Path),
		Landmarks:  motion.NewMotion(trace.Path),
		Visibility: map[string]map[int]float64{},
	}
	scale := profile.Scale

	for _, fno := range t.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame := trace.Frames[fno]
		for joint, pos := range frame.Joint3D {
			if name, ok := profile.Joints[joint]; ok {
				appendPosition(t.Joints, name, fno, pos.Vector3().Scale(scale))
			}
		}
		for landmark, lm := range frame.Mediapipe {
			name, ok := profile.Landmarks[landmark]
			if !ok {
				continue
			}
			appendPosition(t.Landmarks, name, fno, lm.Vector3().Scale(scale))
			if t.Visibility[landmark] == nil {
				t.Visibility[landmark] = map[int]float64{}
			}
			t.Visibility[landmark][fno] = lm.Visibility
		}
		if profile.Center != "" {
			center := geom.NewVector3(frame.Camera.X*scale, frame.Camera.Y*scale, frame.Camera.Z-origin.Z)
			appendPosition(t.Joints, profile.Center, fno, center)
		}
		for _, d := range profile.Derived {
			if pos, ok := t.mean(d.Sources, fno); ok {
				appendPosition(t.Joints, d.Name, fno, pos)
			}
		}
	}

	t.Ground = t.ground(profile)
	if t.Ground != 0 {
		for _, name := range t.Joints.BoneFrames.Names() {
			if name == profile.Center {
				continue
			}
			tl, _ := t.Joints.BoneFrames.Lookup(name)
			for _, fno := range tl.RegisteredIndexes() {
				tl.Update(fno, func(f *motion.BoneFrame) { f.Position.Y -= t.Ground })
			}
		}
	}
	return t, nil
}

func (t *Tracked) mean(names []string, frame int) (geom.Vector3, bool) {
	var sum geom.Vector3
	for _, name := range names {
		pos, ok := t.Joint(name, frame)
		if !ok {
			return geom.Vector3{}, false
		}
		sum = sum.Add(pos)
	}
	return sum.Scale(1 / float64(len(names))), len(names) > 0
}

// ground is the lowest ankle of the first frame.
func (t *Tracked) ground(profile *config.Profile) float64 {
	if len(t.Frames) == 0 {
		return 0
	}
	ground := math.Inf(1)
	for _, leg := range profile.Legs {
		if pos, ok := t.Joint(leg.Ankle, t.Frames[0]); ok {
			ground = math.Min(ground, pos.Y)
		}
	}
	if math.IsInf(ground, 1) {
		return 0
	}
	return ground
}
