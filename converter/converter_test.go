package converter

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/motiontrace/config"
	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/kinematics"
	"github.com/binzume/motiontrace/mmd"
	"github.com/binzume/motiontrace/motion"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bodyFlags = mmd.BoneFlagRotatable | mmd.BoneFlagVisible | mmd.BoneFlagEnabled

func legBone(name string, parent int, x, y float32) *mmd.Bone {
	return &mmd.Bone{Name: name, ParentID: parent, TailID: -1, Pos: mmd.Vector3{X: x, Y: y}, Flags: bodyFlags}
}

func ikBone(name string, x, y float32, target, knee, leg int) *mmd.Bone {
	return &mmd.Bone{
		Name: name, ParentID: -1, TailID: -1, Pos: mmd.Vector3{X: x, Y: y},
		Flags: bodyFlags | mmd.BoneFlagTranslatable | mmd.BoneFlagEnableIK,
		IK: mmd.IK{TargetID: target, Loop: 40, LimitRad: 2, Links: []*mmd.Link{
			{TargetID: knee}, {TargetID: leg},
		}},
	}
}

// testDocument is a lower body rig standing on y = 1.
func testDocument() *mmd.Document {
	doc := mmd.NewDocument()
	doc.Name = "test model"
	doc.Bones = []*mmd.Bone{
		legBone("センター", -1, 0, 8),
		legBone("下半身", 0, 0, 12),
		legBone("下半身先", 1, 0, 11),
		legBone("左足", 1, 1, 11),
		legBone("左ひざ", 3, 1, 6),
		legBone("左足首", 4, 1, 1),
		legBone("右足", 1, -1, 11),
		legBone("右ひざ", 6, -1, 6),
		legBone("右足首", 7, -1, 1),
		ikBone("左足ＩＫ", 1, 1, 5, 4, 3),
		ikBone("右足ＩＫ", -1, 1, 8, 7, 6),
	}
	doc.Bones[0].Flags |= mmd.BoneFlagTranslatable
	return doc
}

func testSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	sk, err := skeleton.FromDocument(testDocument())
	require.NoError(t, err)
	config.DefaultProfile().ApplyIkConstraints(sk, 0)
	return sk
}

func writeModel(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "model.pmx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, mmd.WritePMX(testDocument(), f))
	return path
}

var restJoints = map[string]geom.Vector3{
	"OP MidHip": geom.NewVector3(0, 12, 0),
	"OP LHip":   geom.NewVector3(1, 11, 0),
	"OP LKnee":  geom.NewVector3(1, 6, 0),
	"OP LAnkle": geom.NewVector3(1, 1, 0),
	"OP RHip":   geom.NewVector3(-1, 11, 0),
	"OP RKnee":  geom.NewVector3(-1, 6, 0),
	"OP RAnkle": geom.NewVector3(-1, 1, 0),
}

// traceFrame converts model unit positions to tracker units.
func traceFrame(joints map[string]geom.Vector3, camera Position) TraceFrame {
	scale := config.DefaultProfile().Scale
	f := TraceFrame{Camera: camera, Joint3D: map[string]Position{}, Mediapipe: map[string]Landmark{}}
	for name, v := range joints {
		f.Joint3D[name] = Position{X: v.X / scale, Y: v.Y / scale, Z: v.Z / scale}
	}
	return f
}

// bentTrace keys the rest pose at frame 0 and the left shin pointing
// backwards at frame 1.
func bentTrace() *Trace {
	bent := map[string]geom.Vector3{}
	for k, v := range restJoints {
		bent[k] = v
	}
	bent["OP LAnkle"] = geom.NewVector3(1, 6, 5)
	camera := Position{Z: 40}
	return &Trace{
		Path: "person01_smooth.json",
		Frames: map[int]TraceFrame{
			0: traceFrame(restJoints, camera),
			1: traceFrame(bent, camera),
		},
	}
}

func writeTrace(t *testing.T, path string, trace *Trace) {
	t.Helper()
	data, err := json.Marshal(trace)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestLoadTrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "person01_smooth.json")
	data := `{"frames": {"3": {"tracked_bbox": [1, 2, 3, 4], "conf": 0.9,
		"camera": {"x": 0.1, "y": 0.2, "z": 30},
		"3d_joints": {"OP Neck": {"x": 1, "y": 2, "z": 3}},
		"mediapipe": {"left wrist": {"x": 1, "y": 1, "z": 1, "visibility": 0.5, "presence": 0.7}}},
		"0": {"conf": 0.8}}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	trace, err := LoadTrace(path)
	require.NoError(t, err)
	assert.Equal(t, "person01", trace.Name())
	assert.Equal(t, []int{0, 3}, trace.Indexes())

	f := trace.Frames[3]
	assert.Equal(t, []float64{1, 2, 3, 4}, f.TrackedBBox)
	assert.InDelta(t, 0.9, f.Confidence, 1e-9)
	assert.Equal(t, Position{X: 0.1, Y: 0.2, Z: 30}, f.Camera)
	assert.Equal(t, geom.NewVector3(1, 2, 3), f.Joint3D["OP Neck"].Vector3())
	assert.InDelta(t, 0.5, f.Mediapipe["left wrist"].Visibility, 1e-9)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadTrace(path)
	assert.Error(t, err)

	_, err = LoadTrace(filepath.Join(dir, "missing_smooth.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindTraces(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_smooth.json", "a_smooth.json", "a.json", "end_of_frame"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c_smooth.json"), []byte("{}"), 0644))

	paths, err := FindTraces(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a_smooth.json"), filepath.Join(dir, "b_smooth.json")}, paths)
}

func TestMove(t *testing.T) {
	trace := bentTrace()
	lm := trace.Frames[0]
	lm.Mediapipe["left wrist"] = Landmark{X: 0.9, Y: 0.9, Z: 0, Visibility: 0.95}
	trace.Frames[0] = lm

	tracked, err := Move(context.Background(), trace, config.DefaultProfile(), Position{Z: 30})
	require.NoError(t, err)

	assert.Equal(t, "person01", tracked.Name)
	assert.Equal(t, []int{0, 1}, tracked.Frames)
	assert.InDelta(t, 1, tracked.Ground, 1e-9)

	hip, ok := tracked.Joint("下半身", 0)
	require.True(t, ok)
	assert.True(t, hip.NearEquals(geom.NewVector3(0, 11, 0), 1e-9), hip)

	ankle, ok := tracked.Joint("左足首", 1)
	require.True(t, ok)
	assert.True(t, ankle.NearEquals(geom.NewVector3(1, 5, 5), 1e-9), ankle)

	end, ok := tracked.Joint("下半身先", 0)
	require.True(t, ok)
	assert.True(t, end.NearEquals(geom.NewVector3(0, 10, 0), 1e-9), end)

	// the center keeps the camera offset and is not grounded
	center, ok := tracked.Joint("センター", 1)
	require.True(t, ok)
	assert.True(t, center.NearEquals(geom.NewVector3(0, 0, 10), 1e-9), center)

	wrist, ok := tracked.Landmark("左手首", 0)
	require.True(t, ok)
	assert.InDelta(t, 10, wrist.X, 1e-9)
	assert.InDelta(t, 0.95, tracked.Visibility["left wrist"][0], 1e-9)

	_, ok = tracked.Joint("首", 0)
	assert.False(t, ok)
}

func TestMove_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Move(ctx, bentTrace(), config.DefaultProfile(), Position{})
	assert.ErrorIs(t, err, context.Canceled)
}

func moveBent(t *testing.T) *Tracked {
	t.Helper()
	tracked, err := Move(context.Background(), bentTrace(), config.DefaultProfile(), Position{Z: 40})
	require.NoError(t, err)
	return tracked
}

func TestRotate(t *testing.T) {
	sk := testSkeleton(t)
	tracked := moveBent(t)

	m, err := Rotate(context.Background(), tracked, sk, config.DefaultProfile(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "test model", m.ModelName)

	for _, name := range []string{"下半身", "左足", "左ひざ", "右足", "右ひざ"} {
		f := m.BoneFrame(name, 0)
		assert.True(t, f.IsRegistered(), name)
		assert.True(t, f.Rotation.Quaternion().NearEquals(geom.IdentityQuaternion(), 1e-6), name)
	}
	// no 左つま先 in the rig
	_, ok := m.BoneFrames.Lookup("左足首")
	assert.False(t, ok)

	knee := m.BoneFrame("左ひざ", 1).Rotation.Quaternion()
	shin := knee.ApplyTo(geom.NewVector3(0, -1, 0))
	assert.True(t, shin.NearEquals(geom.NewVector3(0, 0, 1), 1e-6), shin)
	assert.InDelta(t, math.Pi/2, knee.Angle(), 1e-6)
	assert.True(t, m.BoneFrame("右ひざ", 1).Rotation.Quaternion().NearEquals(geom.IdentityQuaternion(), 1e-6))

	center := m.BoneFrame("センター", 1)
	assert.True(t, center.IsRegistered())
	assert.True(t, center.Position.NearEquals(geom.Vector3{}, 1e-9), center.Position)
}

func TestRotate_Landmarks(t *testing.T) {
	sk := testSkeleton(t)
	profile := &config.Profile{
		Scale:         1,
		MinVisibility: 0.5,
		Landmarks:     map[string]string{"a": "左ひざ", "b": "左足首", "c": "左足", "d": "右足"},
		Rotations: []*config.BoneRotation{{
			Name: "左ひざ", DirectionFrom: "左ひざ", DirectionTo: "左足首", UpFrom: "左足", UpTo: "右足",
			Landmarks: true, Visibility: "a",
		}},
	}
	trace := &Trace{Frames: map[int]TraceFrame{}}
	for fno, visibility := range []float64{0.9, 0.1} {
		trace.Frames[fno] = TraceFrame{Mediapipe: map[string]Landmark{
			"a": {X: 1, Y: 6, Visibility: visibility},
			"b": {X: 1, Y: 6, Z: 5, Visibility: visibility},
			"c": {X: 1, Y: 11, Visibility: visibility},
			"d": {X: -1, Y: 11, Visibility: visibility},
		}}
	}
	tracked, err := Move(context.Background(), trace, profile, Position{})
	require.NoError(t, err)

	m, err := Rotate(context.Background(), tracked, sk, profile, zerolog.Nop())
	require.NoError(t, err)
	tl, ok := m.BoneFrames.Lookup("左ひざ")
	require.True(t, ok)
	assert.Equal(t, []int{0}, tl.RegisteredIndexes())
}

func TestSolveLegIk(t *testing.T) {
	sk := testSkeleton(t)
	profile := config.DefaultProfile()
	tracked := moveBent(t)
	rotated, err := Rotate(context.Background(), tracked, sk, profile, zerolog.Nop())
	require.NoError(t, err)

	out, shortfalls, err := SolveLegIk(context.Background(), rotated, sk, profile, kinematics.Options{Workers: 2})
	require.NoError(t, err)
	assert.Empty(t, shortfalls)

	leftIk := out.BoneFrame("左足ＩＫ", 1)
	assert.True(t, leftIk.IsRegistered())
	assert.True(t, leftIk.Position.NearEquals(geom.NewVector3(0, 5, 5), 1e-6), leftIk.Position)
	assert.True(t, out.BoneFrame("右足ＩＫ", 0).Position.NearEquals(geom.Vector3{}, 1e-6))

	require.Equal(t, 1, out.IkFrames.Len())
	ikFrame := out.IkFrames.Get(0)
	assert.Equal(t, []string{"左足ＩＫ", "右足ＩＫ"}, []string{ikFrame.Iks[0].Name, ikFrame.Iks[1].Name})
	assert.True(t, ikFrame.Iks[0].Enabled)

	// the IK pose reproduces the tracked ankle
	r, err := kinematics.Evaluate(context.Background(), []int{1}, sk, out, kinematics.Options{SolveIk: true, BoneNames: []string{"左足首"}})
	require.NoError(t, err)
	ankle, ok := r.Get("左足首", 1)
	require.True(t, ok)
	assert.True(t, ankle.GlobalPosition.NearEquals(geom.NewVector3(1, 6, 5), 1e-3), ankle.GlobalPosition)

	// the input is left untouched
	_, ok = rotated.BoneFrames.Lookup("左足ＩＫ")
	assert.False(t, ok)
}

func armSkeleton(t *testing.T) *skeleton.Skeleton {
	t.Helper()
	bone := func(name string, parent int, x, y float64) *skeleton.Bone {
		return &skeleton.Bone{Name: name, ParentIndex: parent, TailIndex: -1, Position: geom.NewVector3(x, y, 0)}
	}
	arm := bone("左腕", -1, 1, 15)
	arm.TailIndex = 2
	elbow := bone("左ひじ", 1, 4, 15)
	elbow.TailIndex = 4
	sk, err := skeleton.New("arm", []*skeleton.Bone{
		arm,
		bone("左腕捩", 0, 2.5, 15),
		elbow,
		bone("左手捩", 2, 5.5, 15),
		bone("左手首", 3, 7, 15),
	})
	require.NoError(t, err)
	return sk
}

func TestSeparateTwist(t *testing.T) {
	sk := armSkeleton(t)
	twist := geom.NewQuaternionFromAxisAngle(geom.NewVector3(1, 0, 0), 0.8)
	swing := geom.NewQuaternionFromAxisAngle(geom.NewVector3(0, 0, 1), -0.5)
	elbowTwist := geom.NewQuaternionFromAxisAngle(geom.NewVector3(1, 0, 0), -0.3)

	m := motion.NewMotion("")
	for _, fno := range []int{0, 4} {
		f := motion.NewBoneFrame(fno)
		f.Rotation = geom.NewRotationFromQuaternion(swing.Mul(twist))
		m.AppendBoneFrame("左腕", f)
	}
	f := motion.NewBoneFrame(4)
	f.Rotation = geom.NewRotationFromQuaternion(elbowTwist)
	m.AppendBoneFrame("左ひじ", f)

	out, err := SeparateTwist(context.Background(), m, sk, kinematics.Options{})
	require.NoError(t, err)

	tl, ok := out.BoneFrames.Lookup("左腕捩")
	require.True(t, ok)
	assert.Equal(t, []int{0, 4}, tl.RegisteredIndexes())
	for _, fno := range []int{0, 4} {
		assert.True(t, out.BoneFrame("左腕", fno).Rotation.Quaternion().NearEquals(swing, 1e-9), fno)
		assert.True(t, out.BoneFrame("左腕捩", fno).Rotation.Quaternion().NearEquals(twist, 1e-9), fno)
	}
	assert.True(t, out.BoneFrame("左ひじ", 4).Rotation.Quaternion().NearEquals(geom.IdentityQuaternion(), 1e-9))
	assert.True(t, out.BoneFrame("左手捩", 4).Rotation.Quaternion().NearEquals(elbowTwist, 1e-9))

	before, err := kinematics.Evaluate(context.Background(), []int{0, 4}, sk, m, kinematics.Options{})
	require.NoError(t, err)
	after, err := kinematics.Evaluate(context.Background(), []int{0, 4}, sk, out, kinematics.Options{})
	require.NoError(t, err)
	for _, fno := range []int{0, 4} {
		a, _ := before.Get("左手首", fno)
		b, _ := after.Get("左手首", fno)
		assert.True(t, a.GlobalPosition.NearEquals(b.GlobalPosition, 1e-9), fno)
	}

	// motions without twin bones pass through
	passed, err := SeparateTwist(context.Background(), m, testSkeleton(t), kinematics.Options{})
	require.NoError(t, err)
	assert.Equal(t, m.BoneFrames.Count(), passed.BoneFrames.Count())
}
