package reduce

import (
	"context"
	"runtime"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/motion"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	MoveBig       float64
	MoveSmall     float64
	RotationBig   float64 // radians
	RotationSmall float64
	MorphBig      float64
	MorphSmall    float64
	Workers       int
}

func DefaultOptions() Options {
	return Options{
		MoveBig:       0.5,
		MoveSmall:     0.05,
		RotationBig:   geom.DegToRad(5),
		RotationSmall: geom.DegToRad(0.5),
		MorphBig:      0.1,
		MorphSmall:    0.01,
	}
}

// Motion returns a reduced copy of m. Bone and morph timelines are reduced
// independently; every other timeline is copied as is.
func Motion(ctx context.Context, m *motion.Motion, opts Options) (*motion.Motion, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	boneNames := m.BoneFrames.Names()
	morphNames := m.MorphFrames.Names()
	bones := make([][]*motion.BoneFrame, len(boneNames))
	morphs := make([][]*motion.MorphFrame, len(morphNames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, name := range boneNames {
		i := i
		t, _ := m.BoneFrames.Lookup(name)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bones[i] = BoneTimeline(t, opts)
			return nil
		})
	}
	for i, name := range morphNames {
		i := i
		t, _ := m.MorphFrames.Lookup(name)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			morphs[i] = MorphTimeline(t, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := motion.NewMotion(m.Path)
	out.ModelName = m.ModelName
	for i, name := range boneNames {
		for _, f := range bones[i] {
			out.AppendBoneFrame(name, f)
		}
	}
	for i, name := range morphNames {
		for _, f := range morphs[i] {
			out.AppendMorphFrame(name, f)
		}
	}
	out.CameraFrames = m.CameraFrames.Copy()
	out.LightFrames = m.LightFrames.Copy()
	out.ShadowFrames = m.ShadowFrames.Copy()
	out.IkFrames = m.IkFrames.Copy()
	return out, nil
}

// BoneTimeline returns the retained keys of t with fitted curves. Each curve
// is stored on the later key of its segment.
func BoneTimeline(t *motion.Timeline[*motion.BoneFrame], opts Options) []*motion.BoneFrame {
	frames := t.RegisteredIndexes()
	if len(frames) == 0 {
		return nil
	}

	values := make([][]float64, 6)
	for c := range values {
		values[c] = make([]float64, len(frames))
	}
	base := t.Get(frames[0]).Rotation.Quaternion().Inverse()
	for i, index := range frames {
		f := t.Get(index)
		values[0][i], values[1][i], values[2][i] = f.Position.X, f.Position.Y, f.Position.Z
		r := base.Mul(f.Rotation.Quaternion()).ToRotationVector()
		values[3][i], values[4][i], values[5][i] = r.X, r.Y, r.Z
	}
	move := Threshold{Big: opts.MoveBig, Small: opts.MoveSmall}
	rot := Threshold{Big: opts.RotationBig, Small: opts.RotationSmall}
	keys := DetectInflectionsAt(frames, values, []Threshold{move, move, move, rot, rot, rot})

	r := make([]*motion.BoneFrame, 0, len(keys))
	for k, index := range keys {
		f := t.Get(index).Copy()
		f.SetRegistered(true)
		if k > 0 {
			f.Curves = fitBoneCurves(t, keys[k-1], index)
		}
		r = append(r, f)
	}
	return r
}

func fitBoneCurves(t *motion.Timeline[*motion.BoneFrame], start, end int) motion.BoneCurves {
	n := end - start + 1
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	quats := make([]geom.Quaternion, n)
	for i := 0; i < n; i++ {
		f := t.Get(start + i)
		xs[i], ys[i], zs[i] = f.Position.X, f.Position.Y, f.Position.Z
		quats[i] = f.Rotation.Quaternion()
	}
	return motion.BoneCurves{
		TranslateX: FitCurve(xs),
		TranslateY: FitCurve(ys),
		TranslateZ: FitCurve(zs),
		Rotate:     FitRotationCurve(quats),
	}
}

// MorphTimeline returns the retained keys of t. Morphs interpolate linearly.
func MorphTimeline(t *motion.Timeline[*motion.MorphFrame], opts Options) []*motion.MorphFrame {
	frames := t.RegisteredIndexes()
	values := make([]float64, len(frames))
	for i, index := range frames {
		values[i] = t.Get(index).Ratio
	}
	keys := DetectInflectionsAt(frames, [][]float64{values}, []Threshold{{Big: opts.MorphBig, Small: opts.MorphSmall}})

	r := make([]*motion.MorphFrame, 0, len(keys))
	for _, index := range keys {
		f := t.Get(index).Copy()
		f.SetRegistered(true)
		r = append(r, f)
	}
	return r
}
