package gc

import "testing"

type node struct {
	hdr   Header
	name  string
	edges []*node
}

func (n *node) GCHeader() *Header { return &n.hdr }

func (n *node) References() []Object {
	out := make([]Object, 0, len(n.edges))
	for _, e := range n.edges {
		out = append(out, e)
	}
	return out
}

type holder struct {
	hdr   Header
	value *node
}

func (h *holder) GCHeader() *Header { return &h.hdr }

func (h *holder) References() []Object {
	if h.value == nil {
		return nil
	}
	return []Object{h.value}
}

func newCollector() *Collector[*node] {
	return New[*node](Config{Enabled: true, MaxHeap: 0})
}

func alloc(c *Collector[*node], name string) *node {
	return c.Allocate(&node{name: name})
}

func TestCollectKeepsCycleReachableFromRoot(t *testing.T) {
	c := newCollector()
	arr := alloc(c, "arr")
	st := alloc(c, "struct")
	field := alloc(c, "field")
	arr.edges = []*node{st}
	st.edges = []*node{field, arr}
	garbage := alloc(c, "garbage")

	c.AddRoot(arr)
	c.Force()
	if c.Len() != 3 {
		t.Fatalf("expected 3 survivors, got %d", c.Len())
	}
	if !garbage.GCHeader().Freed() {
		t.Fatalf("expected unreachable object to be freed")
	}
	for _, n := range []*node{arr, st, field} {
		if n.GCHeader().Freed() || n.GCHeader().Marked() {
			t.Fatalf("%s: expected live and unmarked after sweep", n.name)
		}
	}

	c.RemoveRoot(arr)
	c.Force()
	if c.Len() != 0 {
		t.Fatalf("expected cyclic subgraph to be reclaimed, heap=%d", c.Len())
	}
}

func TestCollectRespectsThreshold(t *testing.T) {
	c := New[*node](Config{Enabled: true, MaxHeap: 2})
	alloc(c, "a")
	alloc(c, "b")
	c.Collect()
	if c.Len() != 2 {
		t.Fatalf("collection should not run at the threshold")
	}
	alloc(c, "c")
	c.Collect()
	if c.Len() != 0 {
		t.Fatalf("expected heap to be swept past the threshold, got %d", c.Len())
	}

	disabled := New[*node](Config{Enabled: false, MaxHeap: 1})
	alloc(disabled, "a")
	alloc(disabled, "b")
	disabled.Collect()
	if disabled.Len() != 2 {
		t.Fatalf("disabled collector must not reclaim")
	}
}

func TestPtrRootFollowsReseatedSlot(t *testing.T) {
	c := newCollector()
	first := alloc(c, "first")
	second := alloc(c, "second")
	slot := first
	c.AddPtrRoot(&slot)
	slot = second
	c.Force()
	if !first.GCHeader().Freed() || second.GCHeader().Freed() {
		t.Fatalf("pointer root must pin the current slot value only")
	}
	c.RemovePtrRoot(&slot)
	c.Force()
	if c.Len() != 0 {
		t.Fatalf("expected empty heap after removing pointer root")
	}
}

func TestVarRootPinsValueAndPrunesExpired(t *testing.T) {
	c := newCollector()
	value := alloc(c, "value")
	v := &holder{value: value}
	ref := NewWeak[Object](v)
	c.AddVarRoot(ref)
	c.Force()
	if value.GCHeader().Freed() {
		t.Fatalf("variable root should keep its value alive")
	}
	if v.GCHeader().Marked() {
		t.Fatalf("root members must be unmarked after sweep")
	}

	ref.Expire()
	c.RemoveVarRoot(ref)
	if got := c.Stats().VarRoots; got != 1 {
		t.Fatalf("removing an expired root should be a no-op, got %d roots", got)
	}
	c.Force()
	if got := c.Stats().VarRoots; got != 0 {
		t.Fatalf("expected mark to prune the expired root, got %d", got)
	}
	if !value.GCHeader().Freed() {
		t.Fatalf("value of expired variable should be reclaimed")
	}
}

func TestExpiredRemovalKeepsOtherEntries(t *testing.T) {
	c := newCollector()
	kept := alloc(c, "kept")
	dropped := alloc(c, "dropped")
	keptList := []*node{kept}
	droppedList := []*node{dropped}
	keptRef := NewWeak(&keptList)
	droppedRef := NewWeak(&droppedList)
	c.AddRootContainer(keptRef)
	c.AddRootContainer(droppedRef)
	c.AddArrayRoot(droppedRef)

	droppedRef.Expire()
	c.RemoveRootContainer(droppedRef)
	c.RemoveArrayRoot(droppedRef)
	c.Force()

	if kept.GCHeader().Freed() {
		t.Fatalf("remaining container entry was corrupted")
	}
	if !dropped.GCHeader().Freed() {
		t.Fatalf("expired container should no longer pin its elements")
	}
	stats := c.Stats()
	if stats.Containers != 1 || stats.ArrayRoots != 0 {
		t.Fatalf("unexpected root sets after pruning: %+v", stats)
	}

	c.RemoveRootContainer(keptRef)
	c.Force()
	if c.Len() != 0 {
		t.Fatalf("expected empty heap, got %d", c.Len())
	}
}

func TestRootPinsAreCounted(t *testing.T) {
	c := newCollector()
	obj := alloc(c, "obj")
	c.AddRoot(obj)
	c.AddRoot(obj)
	c.RemoveRoot(obj)
	c.Force()
	if obj.GCHeader().Freed() {
		t.Fatalf("object pinned twice should survive a single release")
	}
	c.RemoveRoot(obj)
	c.Force()
	if !obj.GCHeader().Freed() {
		t.Fatalf("object should be freed after every pin is released")
	}
}

func TestOnFreeHook(t *testing.T) {
	var released []string
	c := New[*node](Config{Enabled: true, OnFree: func(obj Object) {
		released = append(released, obj.(*node).name)
	}})
	alloc(c, "x")
	c.Force()
	if len(released) != 1 || released[0] != "x" {
		t.Fatalf("expected hook to see x, got %v", released)
	}
}
