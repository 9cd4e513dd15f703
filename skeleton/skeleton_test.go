package skeleton

import (
	"bytes"
	"errors"
	"testing"

	"github.com/binzume/motiontrace/geom"
	"github.com/binzume/motiontrace/mmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bone(name string, parent int, x, y, z float64) *Bone {
	return &Bone{Name: name, ParentIndex: parent, TailIndex: -1, Position: geom.NewVector3(x, y, z)}
}

func armBones() []*Bone {
	return []*Bone{
		bone("センター", -1, 0, 8, 0),
		bone("上半身", 0, 0, 10, 0),
		bone("左腕", 1, 1, 15, 0),
		bone("左腕捩", 2, 2, 15, 0),
		bone("左ひじ", 3, 3, 15, 0),
		bone("左手首", 4, 5, 15, 0),
		bone("左腕飾り", 2, 1, 14, 0),
	}
}

func TestNew(t *testing.T) {
	bones := armBones()
	bones[2].TailIndex = 4
	sk, err := New("test", bones)
	require.NoError(t, err)

	assert.Equal(t, 7, sk.Len())
	b, ok := sk.BoneByName("左ひじ")
	require.True(t, ok)
	assert.Equal(t, 4, b.Index)
	assert.Equal(t, geom.NewVector3(1, 0, 0), b.ParentRelativePosition)

	arm, _ := sk.BoneByName("左腕")
	assert.Equal(t, geom.NewVector3(1, 0, 0), arm.LocalAxis)
	assert.Equal(t, 3, arm.TwistIndex)
	elbow, _ := sk.BoneByName("左ひじ")
	assert.Equal(t, -1, elbow.TwistIndex)

	assert.Nil(t, sk.Bone(10))
	assert.False(t, sk.Contains("右腕"))
}

func TestNew_ParentFirstOrder(t *testing.T) {
	sk, err := New("test", []*Bone{
		bone("child", 2, 0, 2, 0),
		bone("other", -1, 0, 0, 1),
		bone("root", -1, 0, 0, 0),
	})
	require.NoError(t, err)

	pos := map[string]int{}
	for i, b := range sk.Ordered() {
		pos[b.Name] = i
	}
	assert.Less(t, pos["root"], pos["child"])
	assert.Len(t, pos, 3)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("cycle", []*Bone{
		bone("a", 1, 0, 0, 0),
		bone("b", 0, 0, 1, 0),
	})
	var perr *mmd.ParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, ErrCyclicParent)

	_, err = New("missing", []*Bone{
		bone("a", -1, 0, 0, 0),
		bone("b", 5, 0, 1, 0),
	})
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Index)
	assert.ErrorIs(t, err, ErrParentOutOfRange)

	b := bone("ik", -1, 0, 0, 0)
	b.Ik = &Ik{BoneIndex: 3}
	_, err = New("ik", []*Bone{b})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestBoneTree(t *testing.T) {
	sk, err := New("test", armBones())
	require.NoError(t, err)

	tree, err := sk.BoneTree("左手首")
	require.NoError(t, err)
	assert.Equal(t, []string{"センター", "上半身", "左腕", "左腕捩", "左ひじ", "左手首"}, tree.Names())
	assert.Equal(t, "センター", tree.Root().Name)
	assert.Equal(t, "左手首", tree.Tip().Name)
	assert.True(t, tree.Contains("左腕"))
	assert.False(t, tree.Contains("左腕飾り"))
	b, ok := tree.GetByName("左ひじ")
	require.True(t, ok)
	assert.Equal(t, b, tree.Get(4))

	sub, err := tree.Filter("左腕", "左ひじ")
	require.NoError(t, err)
	assert.Equal(t, []string{"左腕", "左腕捩", "左ひじ"}, sub.Names())
	sub, err = tree.Filter("左ひじ", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"左ひじ", "左手首"}, sub.Names())
	_, err = tree.Filter("左手首", "左腕")
	assert.Error(t, err)

	_, err = sk.BoneTree("右手首")
	assert.ErrorIs(t, err, ErrBoneNotFound)
}

func TestBoneTree_CycleAfterMutation(t *testing.T) {
	sk, err := New("test", armBones())
	require.NoError(t, err)
	sk.Bones[0].ParentIndex = 4

	_, err = sk.BoneTree("左手首")
	var perr *mmd.ParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, ErrCyclicParent)
}

func TestBoneTrees(t *testing.T) {
	sk, err := New("test", armBones())
	require.NoError(t, err)
	trees, err := sk.BoneTrees()
	require.NoError(t, err)

	assert.Equal(t, []string{"左手首", "左腕飾り"}, trees.Names())
	assert.True(t, trees.IsStandard("左ひじ"))
	assert.False(t, trees.IsStandard("左腕飾り"))
	assert.True(t, trees.HasStandardDescendant("左腕"))
	assert.False(t, trees.HasStandardDescendant("左手首"))

	tip, err := trees.DisplayTip("左ひじ")
	require.NoError(t, err)
	assert.Equal(t, geom.NewVector3(3, 15, 0), tip)

	names := []string{}
	for _, b := range sk.StandardChildren("左腕") {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"左腕捩"}, names)
	assert.Nil(t, sk.StandardChildren("右腕"))
}

func TestIkLink_RestrictToAxis(t *testing.T) {
	l := &IkLink{AngleLimit: true, MinAngleLimit: geom.NewVector3(-1, -1, -1)}
	l.RestrictToLocalAxis(geom.NewVector3(-1, 0, 0), 10, 90)

	assert.False(t, l.AngleLimit)
	assert.True(t, l.LocalAngleLimit)
	assert.InDelta(t, geom.DegToRad(-90), l.LocalMinAngleLimit.X, 1e-12)
	assert.InDelta(t, geom.DegToRad(-10), l.LocalMaxAngleLimit.X, 1e-12)
	axis, ok := l.LimitAxis()
	assert.True(t, ok)
	assert.Equal(t, geom.NewVector3(1, 0, 0), axis)

	l.RestrictToAxis(geom.NewVector3(0, 0, 1), -30, 30)
	assert.True(t, l.AngleLimit)
	assert.False(t, l.LocalAngleLimit)
	axis, ok = l.LimitAxis()
	assert.True(t, ok)
	assert.Equal(t, geom.NewVector3(0, 0, 1), axis)
}

func TestLoad(t *testing.T) {
	doc := mmd.NewDocument()
	doc.Name = "leg"
	doc.Bones = []*mmd.Bone{
		{Name: "左足", ParentID: -1, TailID: 1, Pos: mmd.Vector3{X: 1, Y: 10}, Flags: mmd.BoneFlagTailIndex | mmd.BoneFlagRotatable},
		{Name: "左ひざ", ParentID: 0, TailID: 2, Pos: mmd.Vector3{X: 1, Y: 5}, Flags: mmd.BoneFlagTailIndex | mmd.BoneFlagRotatable},
		{Name: "左足首", ParentID: 1, TailID: -1, Pos: mmd.Vector3{X: 1, Y: 1}, Flags: mmd.BoneFlagRotatable},
		{Name: "左足ＩＫ", ParentID: -1, TailID: -1, Pos: mmd.Vector3{X: 1, Y: 1},
			Flags: mmd.BoneFlagRotatable | mmd.BoneFlagTranslatable | mmd.BoneFlagEnableIK,
			IK: mmd.IK{TargetID: 2, Loop: 40, LimitRad: 2, Links: []*mmd.Link{
				{TargetID: 1, HasLimit: true, LimitMin: mmd.Vector3{X: -3}, LimitMax: mmd.Vector3{X: -0.01}},
				{TargetID: 0},
			}}},
	}
	var buf bytes.Buffer
	require.NoError(t, mmd.WritePMX(doc, &buf))

	sk, err := Load(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "leg", sk.Name)

	ik := sk.IkBones()
	require.Len(t, ik, 1)
	assert.Equal(t, "左足ＩＫ", ik[0].Name)
	assert.Equal(t, 2, ik[0].Ik.BoneIndex)
	assert.Equal(t, 40, ik[0].Ik.LoopCount)
	require.Len(t, ik[0].Ik.Links, 2)
	assert.True(t, ik[0].Ik.Links[0].AngleLimit)
	assert.InDelta(t, -3, ik[0].Ik.Links[0].MinAngleLimit.X, 1e-6)
	assert.False(t, ik[0].Ik.Links[1].AngleLimit)

	knee, _ := sk.BoneByName("左ひざ")
	assert.True(t, knee.LocalAxis.NearEquals(geom.NewVector3(0, -1, 0), 1e-9))

	_, err = Load([]byte("PMX "))
	var perr *mmd.ParseError
	assert.True(t, errors.As(err, &perr))
}
