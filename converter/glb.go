package converter

import (
	"context"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const (
	// DefaultGLBScale converts MMD units to meters.
	DefaultGLBScale = 80 * 0.001
	FramesPerSecond = 30
)

type GLBOptions struct {
	Scale float64
	// SolveIk bakes the IK result into the link rotations.
	SolveIk    bool
	Kinematics kinematics.Options
}

// MMD is left-handed with Z pointing away from the viewer.
func gltfPosition(v geom.Vector3, scale float64) [3]float32 {
	return [3]float32{float32(v.X * scale), float32(v.Y * scale), float32(-v.Z * scale)}
}

func gltfRotation(q geom.Quaternion) [4]float32 {
	return [4]float32{float32(-q.X), float32(-q.Y), float32(q.Z), float32(q.W)}
}

func isDefaultRotations(samples [][4]float32) bool {
	for _, q := range samples {
		if q != [4]float32{0, 0, 0, 1} {
			return false
		}
	}
	return true
}

func isRestTranslations(samples [][3]float32, rest [3]float32) bool {
	for _, v := range samples {
		if v != rest {
			return false
		}
	}
	return true
}

func addBoneNodes(doc *gltf.Document, sk *skeleton.Skeleton, scale float64) {
	for _, b := range sk.Bones {
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: gltfPosition(b.ParentRelativePosition, scale),
			Rotation:    [4]float32{0, 0, 0, 1},
		})
	}
	for _, b := range sk.Bones {
		if b.HasParent() {
			parent := doc.Nodes[b.ParentIndex]
			parent.Children = append(parent.Children, uint32(b.Index))
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(b.Index))
		}
	}
}

func addChannel(a *gltf.Animation, keysAcc, samplesAcc uint32, node int, path gltf.TRSProperty) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(keysAcc),
		Output:        gltf.Index(samplesAcc),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(uint32(node)),
			Path: path,
		},
	})
}

// addBoneChannels samples every frame up to the last key. Channels that
// never leave the rest pose are omitted.
func addBoneChannels(ctx context.Context, doc *gltf.Document, a *gltf.Animation, sk *skeleton.Skeleton, m *motion.Motion, opts *GLBOptions) error {
	frames := make([]int, m.MaxIndex()+1)
	keys := make([]float32, len(frames))
	for i := range frames {
		frames[i] = i
		keys[i] = float32(i) / FramesPerSecond
	}

	kopts := opts.Kinematics
	kopts.SolveIk = opts.SolveIk
	kopts.BoneNames = nil
	r, err := kinematics.Evaluate(ctx, frames, sk, m, kopts)
	if err != nil {
		return err
	}

	var keysAcc uint32
	hasKeys := false
	for _, b := range sk.Bones {
		rest := gltfPosition(b.ParentRelativePosition, opts.Scale)
		rotations := make([][4]float32, len(frames))
		translations := make([][3]float32, len(frames))
		for i, fno := range frames {
			t, ok := r.Get(b.Name, fno)
			if !ok {
				rotations[i] = [4]float32{0, 0, 0, 1}
				translations[i] = rest
				continue
			}
			rotations[i] = gltfRotation(t.LocalRotation)
			translations[i] = gltfPosition(b.ParentRelativePosition.Add(t.LocalPosition), opts.Scale)
		}

		rotate := !isDefaultRotations(rotations)
		translate := !isRestTranslations(translations, rest)
		if (rotate || translate) && !hasKeys {
			keysAcc = modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, keys)
			hasKeys = true
		}
		if rotate {
			addChannel(a, keysAcc, modeler.WriteTangent(doc, rotations), b.Index, gltf.TRSRotation)
		}
		if translate {
			addChannel(a, keysAcc, modeler.WritePosition(doc, translations), b.Index, gltf.TRSTranslation)
		}
	}
	return nil
}

// NewAnimatedDocument builds a glTF scene with one node per bone and the
// bone motion of m as a single animation.
func NewAnimatedDocument(ctx context.Context, sk *skeleton.Skeleton, m *motion.Motion, opts *GLBOptions) (*gltf.Document, error) {
	var o GLBOptions
	if opts != nil {
		o = *opts
	}
	if o.Scale == 0 {
		o.Scale = DefaultGLBScale
	}
	doc := gltf.NewDocument()
	doc.Asset.Generator = "motiontrace"
	addBoneNodes(doc, sk, o.Scale)

	a := gltf.Animation{Name: m.ModelName}
	if err := addBoneChannels(ctx, doc, &a, sk, m, &o); err != nil {
		return nil, err
	}
	if len(a.Channels) > 0 {
		doc.Animations = append(doc.Animations, &a)
	}
	return doc, nil
}

// ExportGLB writes a binary glTF preview of m played on sk.
func ExportGLB(ctx context.Context, path string, sk *skeleton.Skeleton, m *motion.Motion, opts *GLBOptions) error {
	doc, err := NewAnimatedDocument(ctx, sk, m, opts)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}
