package mmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(encoding byte) *Document {
	doc := NewDocument()
	doc.Header.Info[AttrStringEncoding] = encoding
	doc.Name = "テスト"
	doc.Comment = "comment"
	doc.Vertexes = []*Vertex{
		{Pos: Vector3{0, 1, 0}, Normal: Vector3{0, 0, -1}, Bones: []int{0}, BoneWeights: []float32{1}, EdgeScale: 1},
		{Pos: Vector3{1, 1, 0}, Bones: []int{0, 1}, BoneWeights: []float32{0.25, 0.75}},
		{Pos: Vector3{0, 2, 0}, Bones: []int{0, 1, 2, 3}, BoneWeights: []float32{0.1, 0.2, 0.3, 0.4}},
	}
	doc.Faces = []*Face{{Verts: [3]int{0, 1, 2}}}
	doc.Materials = []*Material{{Name: "body", Color: Vector4{1, 1, 1, 1}, TextureID: -1, EnvID: -1, ToonType: 1, Count: 3}}
	doc.Bones = []*Bone{
		{Name: "センター", ParentID: -1, TailID: 1, Flags: BoneFlagTailIndex | BoneFlagRotatable | BoneFlagTranslatable, InheritParentID: -1, ExternalParent: -1},
		{Name: "左ひざ", ParentID: 0, TailID: -1, TailPos: Vector3{0, -1, 0}, Pos: Vector3{1, 5, 0},
			Flags: BoneFlagRotatable | BoneFlagLocalAxis, LocalAxisX: Vector3{1, 0, 0}, LocalAxisZ: Vector3{0, 0, 1}, InheritParentID: -1, ExternalParent: -1},
		{Name: "左足首", ParentID: 1, TailID: -1, Pos: Vector3{1, 1, 0}, Flags: BoneFlagRotatable, InheritParentID: -1, ExternalParent: -1},
		{Name: "左足ＩＫ", ParentID: 0, TailID: -1, Pos: Vector3{1, 1, 0}, Flags: BoneFlagRotatable | BoneFlagTranslatable | BoneFlagEnableIK,
			InheritParentID: -1, ExternalParent: -1,
			IK: IK{TargetID: 2, Loop: 40, LimitRad: 2, Links: []*Link{
				{TargetID: 1, HasLimit: true, LimitMin: Vector3{-3.14, 0, 0}, LimitMax: Vector3{-0.01, 0, 0}},
			}}},
	}
	doc.Morphs = []*Morph{
		{Name: "あ", PanelType: 3, MorphType: 1, Vertex: []*MorphVertex{{Target: 2, Offset: Vector3{0, 0.1, 0}}}},
		{Name: "上下", PanelType: 4, MorphType: 2, Bone: []*MorphBone{{Target: 1, Translation: Vector3{0, 1, 0}, Rotation: Vector4{0, 0, 0, 1}}}},
	}
	return doc
}

func TestPMX_RoundTrip(t *testing.T) {
	for _, enc := range []byte{0, 1} {
		src := testDocument(enc)
		var buf bytes.Buffer
		require.NoError(t, WritePMX(src, &buf))

		doc, err := Parse(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)

		assert.Equal(t, "テスト", doc.Name)
		assert.Equal(t, "comment", doc.Comment)
		require.Len(t, doc.Vertexes, 3)
		for i, v := range doc.Vertexes {
			assert.Equal(t, src.Vertexes[i].Pos, v.Pos)
			assert.Equal(t, src.Vertexes[i].Bones, v.Bones)
			assert.Equal(t, src.Vertexes[i].BoneWeights, v.BoneWeights)
		}
		assert.Equal(t, src.Faces, doc.Faces)
		require.Len(t, doc.Materials, 1)
		assert.Equal(t, "body", doc.Materials[0].Name)
		assert.Equal(t, -1, doc.Materials[0].TextureID)
		assert.Equal(t, 3, doc.Materials[0].Count)

		assert.Equal(t, src.Bones, doc.Bones)
		assert.True(t, doc.Bones[3].HasIK())

		require.Len(t, doc.Morphs, 2)
		assert.Equal(t, src.Morphs[0].Vertex, doc.Morphs[0].Vertex)
		assert.Equal(t, src.Morphs[1].Bone, doc.Morphs[1].Bone)
	}
}

func TestPMX_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePMX(testDocument(1), &buf))
	data := buf.Bytes()

	_, err := Parse(bytes.NewReader(data[:len(data)-40]))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "PMX", perr.Format)

	_, err = Parse(bytes.NewReader([]byte("PMX")))
	assert.Error(t, err)
}
