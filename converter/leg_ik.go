package converter

import (
	"context"
	"sort"

	"github.com/binzume/motiontrace/config"
	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
)

type leg struct {
	ik    *skeleton.Bone
	ankle *skeleton.Bone
	links []*skeleton.Bone
}

func legs(sk *skeleton.Skeleton, profile *config.Profile) []leg {
	var r []leg
	for _, l := range profile.Legs {
		ik, ok := sk.BoneByName(l.Ik)
		if !ok || ik.Ik == nil {
			continue
		}
		ankle, ok := sk.BoneByName(l.Ankle)
		if !ok {
			continue
		}
		lg := leg{ik: ik, ankle: ankle}
		for _, link := range ik.Ik.Links {
			lg.links = append(lg.links, sk.Bone(link.BoneIndex))
		}
		r = append(r, lg)
	}
	return r
}

// registeredFrames is the sorted union of the keyed bone frames of m.
func registeredFrames(m *motion.Motion) []int {
	seen := map[int]bool{}
	var frames []int
	for _, name := range m.BoneFrames.Names() {
		tl, _ := m.BoneFrames.Lookup(name)
		for _, fno := range tl.RegisteredIndexes() {
			if !seen[fno] {
				seen[fno] = true
				frames = append(frames, fno)
			}
		}
	}
	sort.Ints(frames)
	return frames
}

// SolveLegIk keys the leg IK bones on the ankle positions of the FK pose,
// solves the chains again with the model's IK settings and stores the
// solved link rotations. The IK bones are enabled from the first frame.
func SolveLegIk(ctx context.Context, m *motion.Motion, sk *skeleton.Skeleton, profile *config.Profile, opts kinematics.Options) (*motion.Motion, []kinematics.Shortfall, error) {
	out := m.Copy()
	chains := legs(sk, profile)
	frames := registeredFrames(m)
	if len(chains) == 0 || len(frames) == 0 {
		return out, nil, nil
	}

	var names []string
	for _, l := range chains {
		names = append(names, l.ankle.Name)
		if l.ik.HasParent() {
			names = append(names, sk.Bone(l.ik.ParentIndex).Name)
		}
	}
	fk := opts
	fk.SolveIk = false
	fk.BoneNames = names
	fkResult, err := kinematics.Evaluate(ctx, frames, sk, m, fk)
	if err != nil {
		return nil, nil, err
	}

	for _, fno := range frames {
		for _, l := range chains {
			ankle, ok := fkResult.Get(l.ankle.Name, fno)
			if !ok {
				continue
			}
			target := ankle.GlobalPosition
			if l.ik.HasParent() {
				if parent, ok := fkResult.Get(sk.Bone(l.ik.ParentIndex).Name, fno); ok {
					target = parent.GlobalRotation.Inverse().ApplyTo(target.Sub(parent.GlobalPosition))
				}
			}
			f := motion.NewBoneFrame(fno)
			f.Position = target.Sub(l.ik.ParentRelativePosition)
			out.AppendBoneFrame(l.ik.Name, f)
		}
	}

	names = nil
	for _, l := range chains {
		for _, b := range l.links {
			names = append(names, b.Name)
		}
	}
	ik := opts
	ik.SolveIk = true
	ik.BoneNames = names
	ikResult, err := kinematics.Evaluate(ctx, frames, sk, out, ik)
	if err != nil {
		return nil, nil, err
	}
	for _, fno := range frames {
		for _, name := range names {
			t, ok := ikResult.Get(name, fno)
			if !ok {
				continue
			}
			f := out.BoneFrame(name, fno).Copy()
			f.SetIndex(fno)
			f.Rotation = geom.NewRotationFromQuaternion(t.LocalRotation)
			out.AppendBoneFrame(name, f)
		}
	}

	ikFrame := motion.NewIkFrame(frames[0])
	for _, l := range chains {
		ikFrame.Iks = append(ikFrame.Iks, motion.IkEnabled{Name: l.ik.Name, Enabled: true})
	}
	ikFrame.SetRegistered(true)
	out.IkFrames.Append(ikFrame)
	return out, ikResult.Shortfalls, nil
}
