package skeleton

import (
	"errors"
	"fmt"

	"github.com/binzume/motiontrace/mmd"
)

const formatSkeleton = "skeleton"

var (
	ErrBoneNotFound     = errors.New("bone not found")
	ErrParentOutOfRange = errors.New("parent index out of range")
	ErrIndexOutOfRange  = errors.New("bone index out of range")
	ErrCyclicParent     = errors.New("cyclic parent chain")
)

// Skeleton is an arena of bones addressed by index.
type Skeleton struct {
	Name  string
	Bones []*Bone

	byName map[string]int
	order  []int
}

// New validates bones and derives the cached per-bone values. Bones are
// renumbered to their slice position.
func New(name string, bones []*Bone) (*Skeleton, error) {
	sk := &Skeleton{Name: name, Bones: bones, byName: make(map[string]int, len(bones))}
	for i, b := range bones {
		b.Index = i
		if _, ok := sk.byName[b.Name]; !ok {
			sk.byName[b.Name] = i
		}
	}

	for i, b := range bones {
		if b.ParentIndex < -1 || b.ParentIndex >= len(bones) {
			return nil, boneError(i, fmt.Errorf("%w: %d", ErrParentOutOfRange, b.ParentIndex))
		}
		if b.TailIndex >= len(bones) {
			return nil, boneError(i, fmt.Errorf("%w: tail %d", ErrIndexOutOfRange, b.TailIndex))
		}
		if b.Ik != nil {
			if !sk.inRange(b.Ik.BoneIndex) {
				return nil, boneError(i, fmt.Errorf("%w: ik target %d", ErrIndexOutOfRange, b.Ik.BoneIndex))
			}
			for _, l := range b.Ik.Links {
				if !sk.inRange(l.BoneIndex) {
					return nil, boneError(i, fmt.Errorf("%w: ik link %d", ErrIndexOutOfRange, l.BoneIndex))
				}
			}
		}
	}

	for i := range bones {
		if _, err := sk.chain(i); err != nil {
			return nil, err
		}
	}

	sk.order = sk.parentFirstOrder()
	for _, b := range bones {
		sk.setup(b)
	}
	return sk, nil
}

func boneError(index int, err error) error {
	return &mmd.ParseError{Format: formatSkeleton, Section: "bone", Index: index, Err: err}
}

func (sk *Skeleton) inRange(index int) bool {
	return index >= 0 && index < len(sk.Bones)
}

// chain returns the indexes from index up to its root, failing on a cycle
// or an absent parent.
func (sk *Skeleton) chain(index int) ([]int, error) {
	visited := map[int]bool{}
	var chain []int
	for i := index; i >= 0; i = sk.Bones[i].ParentIndex {
		if visited[i] {
			return nil, boneError(index, fmt.Errorf("%w at %q", ErrCyclicParent, sk.Bones[i].Name))
		}
		visited[i] = true
		chain = append(chain, i)
		if p := sk.Bones[i].ParentIndex; p >= len(sk.Bones) || p < -1 {
			return nil, boneError(i, fmt.Errorf("%w: %d", ErrParentOutOfRange, p))
		}
	}
	return chain, nil
}

func (sk *Skeleton) parentFirstOrder() []int {
	order := make([]int, 0, len(sk.Bones))
	done := make([]bool, len(sk.Bones))
	var visit func(i int)
	visit = func(i int) {
		if done[i] {
			return
		}
		if p := sk.Bones[i].ParentIndex; p >= 0 {
			visit(p)
		}
		done[i] = true
		order = append(order, i)
	}
	for i := range sk.Bones {
		visit(i)
	}
	return order
}

func (sk *Skeleton) setup(b *Bone) {
	b.ParentRelativePosition = b.Position
	if b.ParentIndex >= 0 {
		b.ParentRelativePosition = b.Position.Sub(sk.Bones[b.ParentIndex].Position)
	}

	tail := b.TailPosition
	if b.TailIndex >= 0 {
		tail = sk.Bones[b.TailIndex].Position.Sub(b.Position)
	}
	b.LocalAxis = tail.Normalize()

	b.TwistIndex = -1
	if twist, ok := twistBones[b.Name]; ok {
		if t, ok := sk.byName[twist]; ok {
			b.TwistIndex = t
		}
	}
}

func (sk *Skeleton) Len() int {
	return len(sk.Bones)
}

// Bone returns the bone at index, or nil.
func (sk *Skeleton) Bone(index int) *Bone {
	if !sk.inRange(index) {
		return nil
	}
	return sk.Bones[index]
}

func (sk *Skeleton) BoneByName(name string) (*Bone, bool) {
	i, ok := sk.byName[name]
	if !ok {
		return nil, false
	}
	return sk.Bones[i], true
}

func (sk *Skeleton) Contains(name string) bool {
	_, ok := sk.byName[name]
	return ok
}

func (sk *Skeleton) Names() []string {
	names := make([]string, len(sk.Bones))
	for i, b := range sk.Bones {
		names[i] = b.Name
	}
	return names
}

// Ordered returns the bones with every parent before its children.
func (sk *Skeleton) Ordered() []*Bone {
	bones := make([]*Bone, len(sk.order))
	for i, index := range sk.order {
		bones[i] = sk.Bones[index]
	}
	return bones
}

// IkBones returns the bones carrying an IK descriptor in evaluation order.
func (sk *Skeleton) IkBones() []*Bone {
	var bones []*Bone
	for _, b := range sk.Ordered() {
		if b.Ik != nil {
			bones = append(bones, b)
		}
	}
	return bones
}

func (sk *Skeleton) Children(index int) []*Bone {
	var bones []*Bone
	for _, b := range sk.Bones {
		if b.ParentIndex == index && b.Index != index {
			bones = append(bones, b)
		}
	}
	return bones
}

// StandardChildren returns the direct children of name that belong to the
// standard bone set.
func (sk *Skeleton) StandardChildren(name string) []*Bone {
	b, ok := sk.BoneByName(name)
	if !ok {
		return nil
	}
	var bones []*Bone
	for _, c := range sk.Children(b.Index) {
		if IsStandard(c.Name) {
			bones = append(bones, c)
		}
	}
	return bones
}

// BoneTree returns the chain from the root down to tipName.
func (sk *Skeleton) BoneTree(tipName string) (*BoneTree, error) {
	tip, ok := sk.byName[tipName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoneNotFound, tipName)
	}
	chain, err := sk.chain(tip)
	if err != nil {
		return nil, err
	}
	bones := make([]*Bone, len(chain))
	for i, index := range chain {
		bones[len(chain)-1-i] = sk.Bones[index]
	}
	return newBoneTree(bones), nil
}

// BoneTrees builds a tree for every leaf bone.
func (sk *Skeleton) BoneTrees() (*BoneTrees, error) {
	hasChild := make([]bool, len(sk.Bones))
	for _, b := range sk.Bones {
		if b.ParentIndex >= 0 {
			hasChild[b.ParentIndex] = true
		}
	}
	trees := &BoneTrees{skeleton: sk, trees: map[string]*BoneTree{}}
	for _, b := range sk.Bones {
		if hasChild[b.Index] {
			continue
		}
		t, err := sk.BoneTree(b.Name)
		if err != nil {
			return nil, err
		}
		trees.names = append(trees.names, b.Name)
		trees.trees[b.Name] = t
	}
	return trees, nil
}
