package motion

import (
	"github.com/petar/GoLLRB/llrb"
)

// Frame is implemented by every keyframe record.
type Frame interface {
	Index() int
	SetIndex(index int)
	IsRegistered() bool
	SetRegistered(registered bool)
}

// Keyframe is a record that can be copied and interpolated. Lerp is called on
// the later key and interpolates from prev, so the later key's curves apply.
type Keyframe[T any] interface {
	Frame
	Copy() T
	Lerp(prev T, index int) T
}

// BaseFrame carries the frame number and the registered flag. Registered
// frames are explicit keys; unregistered ones are derived samples.
type BaseFrame struct {
	index      int
	registered bool
}

func NewBaseFrame(index int) BaseFrame {
	return BaseFrame{index: index}
}

func (f *BaseFrame) Index() int {
	return f.index
}

func (f *BaseFrame) SetIndex(index int) {
	f.index = index
}

func (f *BaseFrame) IsRegistered() bool {
	return f.registered
}

func (f *BaseFrame) SetRegistered(registered bool) {
	f.registered = registered
}

// Timeline is a sparse frame -> keyframe mapping with a sorted index of the
// registered frames. Reads never mutate it.
type Timeline[T Keyframe[T]] struct {
	Name     string
	data     map[int]T
	indexes  *llrb.LLRB
	newFrame func(index int) T
}

func NewTimeline[T Keyframe[T]](name string, newFrame func(index int) T) *Timeline[T] {
	return &Timeline[T]{
		Name:     name,
		data:     make(map[int]T),
		indexes:  llrb.New(),
		newFrame: newFrame,
	}
}

// Append stores f, replacing any record at the same frame.
func (t *Timeline[T]) Append(f T) {
	index := f.Index()
	t.data[index] = f
	if f.IsRegistered() {
		t.indexes.ReplaceOrInsert(llrb.Int(index))
	} else {
		t.indexes.Delete(llrb.Int(index))
	}
}

func (t *Timeline[T]) Delete(index int) {
	delete(t.data, index)
	t.indexes.Delete(llrb.Int(index))
}

// Has reports whether a record is stored at index.
func (t *Timeline[T]) Has(index int) bool {
	_, ok := t.data[index]
	return ok
}

func (t *Timeline[T]) IsRegistered(index int) bool {
	return t.indexes.Has(llrb.Int(index))
}

// Len returns the number of registered frames.
func (t *Timeline[T]) Len() int {
	return t.indexes.Len()
}

func (t *Timeline[T]) MinIndex() int {
	if t.indexes.Len() == 0 {
		return 0
	}
	return int(t.indexes.Min().(llrb.Int))
}

func (t *Timeline[T]) MaxIndex() int {
	if t.indexes.Len() == 0 {
		return 0
	}
	return int(t.indexes.Max().(llrb.Int))
}

// Prev returns the last registered frame at or before index.
func (t *Timeline[T]) Prev(index int) (int, bool) {
	found, ok := 0, false
	t.indexes.DescendLessOrEqual(llrb.Int(index), func(i llrb.Item) bool {
		found, ok = int(i.(llrb.Int)), true
		return false
	})
	return found, ok
}

// Next returns the first registered frame at or after index.
func (t *Timeline[T]) Next(index int) (int, bool) {
	found, ok := 0, false
	t.indexes.AscendGreaterOrEqual(llrb.Int(index), func(i llrb.Item) bool {
		found, ok = int(i.(llrb.Int)), true
		return false
	})
	return found, ok
}

func (t *Timeline[T]) RegisteredIndexes() []int {
	indexes := make([]int, 0, t.indexes.Len())
	if t.indexes.Len() == 0 {
		return indexes
	}
	t.indexes.AscendGreaterOrEqual(t.indexes.Min(), func(i llrb.Item) bool {
		indexes = append(indexes, int(i.(llrb.Int)))
		return true
	})
	return indexes
}

func (t *Timeline[T]) RegisteredIndexesDesc() []int {
	asc := t.RegisteredIndexes()
	for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
		asc[i], asc[j] = asc[j], asc[i]
	}
	return asc
}

// Get returns the record stored at index, or an unregistered sample
// interpolated between the surrounding registered keys. A stored record is
// shared with the timeline: Copy it before changing it, or use Update.
func (t *Timeline[T]) Get(index int) T {
	if f, ok := t.data[index]; ok {
		return f
	}
	prev, hasPrev := t.Prev(index)
	next, hasNext := t.Next(index)
	var f T
	switch {
	case !hasPrev && !hasNext:
		return t.newFrame(index)
	case !hasPrev:
		f = t.data[next].Copy()
	case !hasNext:
		f = t.data[prev].Copy()
	default:
		f = t.data[next].Lerp(t.data[prev], index)
	}
	f.SetIndex(index)
	f.SetRegistered(false)
	return f
}

// Update applies fn to the record stored at index and reports whether one
// was found. fn must not change the frame number.
func (t *Timeline[T]) Update(index int, fn func(f T)) bool {
	f, ok := t.data[index]
	if !ok {
		return false
	}
	fn(f)
	return true
}

// Copy returns a deep copy of the timeline.
func (t *Timeline[T]) Copy() *Timeline[T] {
	c := NewTimeline(t.Name, t.newFrame)
	for index, f := range t.data {
		c.data[index] = f.Copy()
	}
	for _, index := range t.RegisteredIndexes() {
		c.indexes.ReplaceOrInsert(llrb.Int(index))
	}
	return c
}

// NamedTimelines keeps one timeline per name in insertion order.
type NamedTimelines[T Keyframe[T]] struct {
	names    []string
	data     map[string]*Timeline[T]
	newFrame func(index int) T
}

func NewNamedTimelines[T Keyframe[T]](newFrame func(index int) T) *NamedTimelines[T] {
	return &NamedTimelines[T]{data: make(map[string]*Timeline[T]), newFrame: newFrame}
}

// Get returns the timeline for name, creating it when missing.
func (n *NamedTimelines[T]) Get(name string) *Timeline[T] {
	if t, ok := n.data[name]; ok {
		return t
	}
	t := NewTimeline(name, n.newFrame)
	n.data[name] = t
	n.names = append(n.names, name)
	return t
}

// Lookup returns the timeline for name without creating it.
func (n *NamedTimelines[T]) Lookup(name string) (*Timeline[T], bool) {
	t, ok := n.data[name]
	return t, ok
}

func (n *NamedTimelines[T]) Delete(name string) {
	if _, ok := n.data[name]; !ok {
		return
	}
	delete(n.data, name)
	for i, v := range n.names {
		if v == name {
			n.names = append(n.names[:i:i], n.names[i+1:]...)
			break
		}
	}
}

func (n *NamedTimelines[T]) Names() []string {
	return append([]string(nil), n.names...)
}

func (n *NamedTimelines[T]) Len() int {
	return len(n.names)
}

// Count returns the number of registered frames over all timelines.
func (n *NamedTimelines[T]) Count() int {
	c := 0
	for _, t := range n.data {
		c += t.Len()
	}
	return c
}

func (n *NamedTimelines[T]) MaxIndex() int {
	max := 0
	for _, t := range n.data {
		if t.Len() > 0 && t.MaxIndex() > max {
			max = t.MaxIndex()
		}
	}
	return max
}

func (n *NamedTimelines[T]) Copy() *NamedTimelines[T] {
	c := NewNamedTimelines(n.newFrame)
	for _, name := range n.names {
		c.names = append(c.names, name)
		c.data[name] = n.data[name].Copy()
	}
	return c
}
