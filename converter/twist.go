package converter

import (
	"context"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
)

// SeparateTwist moves the twist of every keyed arm and elbow rotation onto
// its twist bone (腕 -> 腕捩, ひじ -> 手捩). Both bones are keyed on the
// frames of the source bone; the global pose is unchanged.
func SeparateTwist(ctx context.Context, m *motion.Motion, sk *skeleton.Skeleton, opts kinematics.Options) (*motion.Motion, error) {
	out := m.Copy()
	frames := map[string][]int{}
	var names []string
	var all []int
	seen := map[int]bool{}
	for _, b := range sk.Bones {
		if b.TwistIndex < 0 {
			continue
		}
		tl, ok := m.BoneFrames.Lookup(b.Name)
		if !ok || tl.Len() == 0 {
			continue
		}
		twist := sk.Bone(b.TwistIndex).Name
		frames[b.Name] = tl.RegisteredIndexes()
		names = append(names, b.Name, twist)
		for _, fno := range frames[b.Name] {
			if !seen[fno] {
				seen[fno] = true
				all = append(all, fno)
			}
		}
	}
	if len(names) == 0 {
		return out, nil
	}

	opts.SolveIk = false
	opts.SeparateTwist = true
	opts.BoneNames = names
	r, err := kinematics.Evaluate(ctx, all, sk, m, opts)
	if err != nil {
		return nil, err
	}

	for _, b := range sk.Bones {
		for _, fno := range frames[b.Name] {
			for _, name := range []string{b.Name, sk.Bone(b.TwistIndex).Name} {
				t, ok := r.Get(name, fno)
				if !ok {
					continue
				}
				f := out.BoneFrame(name, fno).Copy()
				f.SetIndex(fno)
				f.Rotation = geom.NewRotationFromQuaternion(t.LocalRotation)
				out.AppendBoneFrame(name, f)
			}
		}
	}
	return out, nil
}
