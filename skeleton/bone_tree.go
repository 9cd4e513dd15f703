package skeleton

import (
	"fmt"

	"github.com/binzume/motiontrace/geom"
)

// BoneTree is a single parent chain ordered from root to tip.
type BoneTree struct {
	bones   []*Bone
	indexes map[string]int
}

func newBoneTree(bones []*Bone) *BoneTree {
	t := &BoneTree{bones: bones, indexes: make(map[string]int, len(bones))}
	for i, b := range bones {
		t.indexes[b.Name] = i
	}
	return t
}

func (t *BoneTree) Len() int {
	return len(t.bones)
}

func (t *BoneTree) Root() *Bone {
	return t.bones[0]
}

func (t *BoneTree) Tip() *Bone {
	return t.bones[len(t.bones)-1]
}

// Get returns the bone at position i counted from the root.
func (t *BoneTree) Get(i int) *Bone {
	if i < 0 || i >= len(t.bones) {
		return nil
	}
	return t.bones[i]
}

func (t *BoneTree) GetByName(name string) (*Bone, bool) {
	i, ok := t.indexes[name]
	if !ok {
		return nil, false
	}
	return t.bones[i], true
}

func (t *BoneTree) Contains(name string) bool {
	_, ok := t.indexes[name]
	return ok
}

func (t *BoneTree) Bones() []*Bone {
	return append([]*Bone(nil), t.bones...)
}

func (t *BoneTree) Names() []string {
	names := make([]string, len(t.bones))
	for i, b := range t.bones {
		names[i] = b.Name
	}
	return names
}

// Filter returns the sub-chain from start to end inclusive. An empty end
// means the tip.
func (t *BoneTree) Filter(start, end string) (*BoneTree, error) {
	s, ok := t.indexes[start]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoneNotFound, start)
	}
	e := len(t.bones) - 1
	if end != "" {
		if e, ok = t.indexes[end]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrBoneNotFound, end)
		}
	}
	if e < s {
		return nil, fmt.Errorf("%s is not an ancestor of %s", start, end)
	}
	bones := t.bones[s : e+1]
	for i := 1; i < len(bones); i++ {
		if bones[i].ParentIndex != bones[i-1].Index {
			return nil, boneError(bones[i].Index, fmt.Errorf("%w: parent of %s changed", ErrParentOutOfRange, bones[i].Name))
		}
	}
	return newBoneTree(append([]*Bone(nil), bones...)), nil
}

// BoneTrees holds the tree of every leaf bone of a skeleton.
type BoneTrees struct {
	skeleton *Skeleton
	names    []string
	trees    map[string]*BoneTree
}

func (bt *BoneTrees) Get(tipName string) (*BoneTree, bool) {
	t, ok := bt.trees[tipName]
	return t, ok
}

func (bt *BoneTrees) Names() []string {
	return append([]string(nil), bt.names...)
}

func (bt *BoneTrees) Len() int {
	return len(bt.names)
}

func (bt *BoneTrees) IsStandard(name string) bool {
	return IsStandard(name)
}

// HasStandardDescendant reports whether any bone below name is standard.
func (bt *BoneTrees) HasStandardDescendant(name string) bool {
	for _, tip := range bt.names {
		t := bt.trees[tip]
		i, ok := t.indexes[name]
		if !ok {
			continue
		}
		for _, b := range t.bones[i+1:] {
			if IsStandard(b.Name) {
				return true
			}
		}
	}
	return false
}

// DisplayTip returns the global position the bone points at: its tail bone
// or its tail offset.
func (bt *BoneTrees) DisplayTip(name string) (geom.Vector3, error) {
	b, ok := bt.skeleton.BoneByName(name)
	if !ok {
		return geom.Vector3{}, fmt.Errorf("%w: %s", ErrBoneNotFound, name)
	}
	if b.TailIndex >= 0 {
		return bt.skeleton.Bones[b.TailIndex].Position, nil
	}
	return b.Position.Add(b.TailPosition), nil
}
