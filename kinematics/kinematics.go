package kinematics

import (
	"context"
	"runtime"
	"sort"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultTolerance is the effector distance below which IK stops early.
const DefaultTolerance = 1e-4

type Options struct {
	SolveIk bool
	// BoneNames limits the returned transforms. Empty means every bone.
	BoneNames []string
	// SeparateTwist moves the twist of a bone onto its twin twist bone.
	SeparateTwist bool
	Tolerance     float64
	Workers       int
	Logger        zerolog.Logger
}

// Transform is the evaluated pose of one bone at one frame. Local values are
// relative to the parent in the rest orientation as MMD keys them.
type Transform struct {
	BoneName       string
	BoneIndex      int
	Frame          int
	LocalPosition  geom.Vector3
	LocalRotation  geom.Quaternion
	GlobalMatrix   geom.Matrix4
	GlobalPosition geom.Vector3
	GlobalRotation geom.Quaternion
}

// Shortfall records an IK chain that ran out of iterations before reaching
// the tolerance. The best pose found is still used.
type Shortfall struct {
	Frame    int
	IkBone   string
	Distance float64
}

type key struct {
	name  string
	frame int
}

// Result maps (bone, frame) to transforms.
type Result struct {
	Shortfalls []Shortfall

	frames     []int
	transforms map[key]*Transform
	skipped    map[int][]string
}

func (r *Result) Get(boneName string, frame int) (*Transform, bool) {
	t, ok := r.transforms[key{boneName, frame}]
	return t, ok
}

// Frames returns the evaluated frames in ascending order.
func (r *Result) Frames() []int {
	return append([]int(nil), r.frames...)
}

// Skipped returns the bone names that could not be resolved at frame.
func (r *Result) Skipped(frame int) []string {
	return r.skipped[frame]
}

func (r *Result) Len() int {
	return len(r.transforms)
}

type frameResult struct {
	transforms []*Transform
	shortfalls []Shortfall
}

// Evaluate computes bone transforms for frames. Frames are independent and
// run in parallel; cancellation is checked between frames.
func Evaluate(ctx context.Context, frames []int, sk *skeleton.Skeleton, m *motion.Motion, opts Options) (*Result, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	var targets []*skeleton.Bone
	var skipped []string
	if len(opts.BoneNames) == 0 {
		targets = sk.Bones
	}
	for _, name := range opts.BoneNames {
		if b, ok := sk.BoneByName(name); ok {
			targets = append(targets, b)
		} else {
			skipped = append(skipped, name)
		}
	}
	for _, name := range m.BoneFrames.Names() {
		if !sk.Contains(name) && !contains(skipped, name) {
			skipped = append(skipped, name)
		}
	}

	results := make([]frameResult, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, frame := range frames {
		i, frame := i, frame
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := newPose(sk, m, frame, opts.SeparateTwist)
			if opts.SolveIk {
				results[i].shortfalls = p.solveIk(opts.Tolerance, opts.Logger)
			}
			results[i].transforms = p.transforms(targets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Result{transforms: map[key]*Transform{}, skipped: map[int][]string{}}
	seen := map[int]bool{}
	for i, frame := range frames {
		for _, t := range results[i].transforms {
			r.transforms[key{t.BoneName, frame}] = t
		}
		r.Shortfalls = append(r.Shortfalls, results[i].shortfalls...)
		if !seen[frame] {
			seen[frame] = true
			r.frames = append(r.frames, frame)
		}
		if len(skipped) > 0 {
			r.skipped[frame] = skipped
		}
	}
	sort.Ints(r.frames)
	return r, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
