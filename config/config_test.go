package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "end_of_frame", c.Sentinel.EndOfFrame)
	assert.Equal(t, "complete", c.Sentinel.Complete)
	assert.Equal(t, "_full.vmd", c.Output.FullSuffix)
	assert.Equal(t, "_reduce.vmd", c.Output.ReduceSuffix)
	assert.InDelta(t, 5.0, c.Reduce.RotationBig, 1e-9)
	assert.InDelta(t, 1e-4, c.Ik.Tolerance, 1e-12)

	opts := c.ReduceOptions()
	assert.InDelta(t, geom.DegToRad(5), opts.RotationBig, 1e-9)
	assert.InDelta(t, 0.5, opts.MoveBig, 1e-9)
}

func TestLoad_EmptyDir(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_File(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := `
logLevel: debug
workers: 3
reduce:
  moveBig: 1.5
ik:
  maxLoop: 20
sentinel:
  complete: done
`
	err := os.WriteFile(filepath.Join(tmpDir, "motiontrace.yaml"), []byte(yamlContent), 0644)
	require.NoError(t, err)

	c, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 3, c.Workers)
	assert.InDelta(t, 1.5, c.Reduce.MoveBig, 1e-9)
	assert.InDelta(t, 0.05, c.Reduce.MoveSmall, 1e-9)
	assert.Equal(t, 20, c.Ik.MaxLoop)
	assert.Equal(t, "done", c.Sentinel.Complete)
	assert.Equal(t, "end_of_frame", c.Sentinel.EndOfFrame)
	assert.Equal(t, 3, c.ReduceOptions().Workers)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MOTIONTRACE_LOGLEVEL", "warn")
	t.Setenv("MOTIONTRACE_OUTPUT_MODELNAME", "Test Model")

	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "Test Model", c.Output.ModelName)
}

func TestLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "motiontrace.yaml"), []byte("logLevel: [unclosed"), 0644)
	require.NoError(t, err)

	_, err = Load(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	assert.InDelta(t, 1/0.09, p.Scale, 1e-9)
	assert.Equal(t, "首", p.Joints["OP Neck"])
	assert.Equal(t, "下半身先", p.Joints["Pelvis2"])
	assert.Equal(t, "左手首", p.Landmarks["left wrist"])
	assert.Len(t, p.Legs, 2)

	var shoulder *BoneRotation
	for _, r := range p.Rotations {
		if r.Name == "左肩" {
			shoulder = r
		}
	}
	require.NotNil(t, shoulder)
	assert.Equal(t, []string{"上半身", "上半身2"}, shoulder.Cancels)
	assert.Equal(t, [3]float64{0, 0, 20}, shoulder.Invert)
	assert.InDelta(t, geom.DegToRad(20), shoulder.InvertQuaternion().Angle(), 1e-9)
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, DefaultProfile().Save(path))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), p)

	p, err = LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "mmd-standard", p.Name)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rotations:\n  - name: 首\n"), 0644))
	_, err = LoadProfile(bad)
	assert.Error(t, err)

	unknown := filepath.Join(t.TempDir(), "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("bogus: 1\n"), 0644))
	_, err = LoadProfile(unknown)
	assert.Error(t, err)
}

func TestApplyIkConstraints(t *testing.T) {
	bones := []*skeleton.Bone{
		{Name: "左足", ParentIndex: -1, TailIndex: -1},
		{Name: "左ひざ", ParentIndex: 0, TailIndex: -1, Position: geom.NewVector3(0, -4, 0)},
		{Name: "左足首", ParentIndex: 1, TailIndex: -1, Position: geom.NewVector3(0, -8, 0)},
		{Name: "左足ＩＫ", ParentIndex: -1, TailIndex: -1, Position: geom.NewVector3(0, -8, 0),
			Ik: &skeleton.Ik{BoneIndex: 2, LoopCount: 40, UnitRotation: 2,
				Links: []*skeleton.IkLink{{BoneIndex: 1}, {BoneIndex: 0}}}},
	}
	sk, err := skeleton.New("legs", bones)
	require.NoError(t, err)

	n := DefaultProfile().ApplyIkConstraints(sk, 10)
	assert.Equal(t, 1, n)

	ik := sk.Bones[3].Ik
	assert.Equal(t, 10, ik.LoopCount)
	knee := ik.Links[0]
	assert.True(t, knee.AngleLimit)
	axis, ok := knee.LimitAxis()
	assert.True(t, ok)
	assert.Equal(t, geom.NewVector3(1, 0, 0), axis)
	assert.InDelta(t, -geom.DegToRad(180), knee.MinAngleLimit.X, 1e-9)
	assert.InDelta(t, -geom.DegToRad(0.5), knee.MaxAngleLimit.X, 1e-9)
	assert.False(t, ik.Links[1].AngleLimit)
}
