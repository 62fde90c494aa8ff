package gc

import (
	"context"
	"io"
	"log/slog"
)

// DefaultMaxHeap is the heap size a collection has to exceed before it runs.
const DefaultMaxHeap = 9999

// Header carries the collector's per-object bookkeeping.
type Header struct {
	marked bool
	freed  bool
}

// Marked reports whether the object was reached during the current mark.
func (h *Header) Marked() bool { return h.marked }

// Freed reports whether a sweep reclaimed the object.
func (h *Header) Freed() bool { return h.freed }

// Object is anything the collector can traverse. References returns the
// outgoing ownership edges; back-references must not be listed.
type Object interface {
	GCHeader() *Header
	References() []Object
}

// Config tunes a Collector.
type Config struct {
	Enabled bool
	MaxHeap int
	Logger  *slog.Logger
	// OnFree is invoked for every object a sweep reclaims.
	OnFree func(Object)
}

// DefaultConfig enables collection with the default threshold.
func DefaultConfig() Config {
	return Config{Enabled: true, MaxHeap: DefaultMaxHeap}
}

// Stats summarizes the collector state.
type Stats struct {
	Heap       int
	Roots      int
	PtrRoots   int
	VarRoots   int
	Containers int
	ArrayRoots int
	Cycles     int
	Freed      int
}

// Collector is a mark-sweep collector over heap objects of type T. It owns
// every object passed to Allocate and tracks five independent root sets.
// It is not safe for concurrent use.
type Collector[T interface {
	Object
	comparable
}] struct {
	cfg    Config
	logger *slog.Logger

	heap []T

	roots      map[T]int
	ptrRoots   map[*T]int
	varRoots   []*Weak[Object]
	containers []*Weak[*[]T]
	arrayRoots []*Weak[*[]T]

	visited []Object
	cycles  int
	freed   int
}

// New builds a collector from cfg. A non-positive MaxHeap selects the default.
func New[T interface {
	Object
	comparable
}](cfg Config) *Collector[T] {
	if cfg.MaxHeap <= 0 {
		cfg.MaxHeap = DefaultMaxHeap
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector[T]{
		cfg:      cfg,
		logger:   logger,
		roots:    make(map[T]int),
		ptrRoots: make(map[*T]int),
	}
}

// Enabled reports whether Collect can reclaim anything.
func (c *Collector[T]) Enabled() bool { return c.cfg.Enabled }

// SetEnabled toggles collection.
func (c *Collector[T]) SetEnabled(enabled bool) { c.cfg.Enabled = enabled }

// MaxHeap returns the collection threshold.
func (c *Collector[T]) MaxHeap() int { return c.cfg.MaxHeap }

// SetMaxHeap changes the collection threshold.
func (c *Collector[T]) SetMaxHeap(n int) {
	if n < 0 {
		n = 0
	}
	c.cfg.MaxHeap = n
}

// Allocate takes ownership of obj and returns it.
func (c *Collector[T]) Allocate(obj T) T {
	c.heap = append(c.heap, obj)
	return obj
}

// Len returns the number of live heap objects.
func (c *Collector[T]) Len() int { return len(c.heap) }

// Stats snapshots the collector counters.
func (c *Collector[T]) Stats() Stats {
	ptrs := 0
	for _, n := range c.ptrRoots {
		ptrs += n
	}
	roots := 0
	for _, n := range c.roots {
		roots += n
	}
	return Stats{
		Heap:       len(c.heap),
		Roots:      roots,
		PtrRoots:   ptrs,
		VarRoots:   len(c.varRoots),
		Containers: len(c.containers),
		ArrayRoots: len(c.arrayRoots),
		Cycles:     c.cycles,
		Freed:      c.freed,
	}
}

// AddRoot pins obj. Pins are counted, so every AddRoot needs a RemoveRoot.
func (c *Collector[T]) AddRoot(obj T) {
	var zero T
	if obj == zero {
		return
	}
	c.roots[obj]++
}

// RemoveRoot releases one pin of obj.
func (c *Collector[T]) RemoveRoot(obj T) {
	if n, ok := c.roots[obj]; ok {
		if n <= 1 {
			delete(c.roots, obj)
			return
		}
		c.roots[obj] = n - 1
	}
}

// AddPtrRoot pins whatever *slot holds at collection time.
func (c *Collector[T]) AddPtrRoot(slot *T) {
	if slot == nil {
		return
	}
	c.ptrRoots[slot]++
}

// RemovePtrRoot releases one pin of slot.
func (c *Collector[T]) RemovePtrRoot(slot *T) {
	if n, ok := c.ptrRoots[slot]; ok {
		if n <= 1 {
			delete(c.ptrRoots, slot)
			return
		}
		c.ptrRoots[slot] = n - 1
	}
}

// AddVarRoot registers a variable whose value subtree must survive while the
// reference is live.
func (c *Collector[T]) AddVarRoot(ref *Weak[Object]) {
	if ref.Expired() {
		return
	}
	c.varRoots = append(c.varRoots, ref)
}

// RemoveVarRoot drops ref. It does nothing when ref already expired; the
// next mark prunes it.
func (c *Collector[T]) RemoveVarRoot(ref *Weak[Object]) {
	if ref.Expired() {
		return
	}
	c.varRoots = removeWeak(c.varRoots, ref)
}

// AddRootContainer pins every element of *list at collection time.
func (c *Collector[T]) AddRootContainer(ref *Weak[*[]T]) {
	if ref.Expired() {
		return
	}
	c.containers = append(c.containers, ref)
}

// RemoveRootContainer drops ref. Expired references are ignored.
func (c *Collector[T]) RemoveRootContainer(ref *Weak[*[]T]) {
	if ref.Expired() {
		return
	}
	c.containers = removeWeak(c.containers, ref)
}

// AddArrayRoot pins an array buffer, typically an iteration snapshot.
func (c *Collector[T]) AddArrayRoot(ref *Weak[*[]T]) {
	if ref.Expired() {
		return
	}
	c.arrayRoots = append(c.arrayRoots, ref)
}

// RemoveArrayRoot drops ref. Expired references are ignored.
func (c *Collector[T]) RemoveArrayRoot(ref *Weak[*[]T]) {
	if ref.Expired() {
		return
	}
	c.arrayRoots = removeWeak(c.arrayRoots, ref)
}

func removeWeak[W any](list []*Weak[W], ref *Weak[W]) []*Weak[W] {
	for idx := len(list) - 1; idx >= 0; idx-- {
		if list[idx] == ref {
			return append(list[:idx], list[idx+1:]...)
		}
	}
	return list
}

// Collect runs a mark-sweep cycle when collection is enabled and the heap has
// grown past the threshold.
func (c *Collector[T]) Collect() {
	if !c.cfg.Enabled || len(c.heap) <= c.cfg.MaxHeap {
		return
	}
	c.Force()
}

// Force runs a mark-sweep cycle regardless of the threshold.
func (c *Collector[T]) Force() {
	before := len(c.heap)
	c.mark()
	freed := c.sweep()
	c.cycles++
	c.freed += freed
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		stats := c.Stats()
		c.logger.Debug("gc cycle",
			"heap_before", before,
			"heap_after", stats.Heap,
			"freed", freed,
			"roots", stats.Roots,
			"ptr_roots", stats.PtrRoots,
			"var_roots", stats.VarRoots,
			"containers", stats.Containers,
			"array_roots", stats.ArrayRoots,
		)
	}
}

func (c *Collector[T]) mark() {
	var zero T
	var stack []Object
	push := func(obj Object) {
		h := obj.GCHeader()
		if h == nil || h.marked {
			return
		}
		h.marked = true
		c.visited = append(c.visited, obj)
		stack = append(stack, obj)
	}
	pushT := func(obj T) {
		if obj != zero {
			push(obj)
		}
	}

	for obj := range c.roots {
		pushT(obj)
	}
	for slot := range c.ptrRoots {
		pushT(*slot)
	}

	live := c.varRoots[:0]
	for _, ref := range c.varRoots {
		obj, ok := ref.Get()
		if !ok {
			continue
		}
		live = append(live, ref)
		if obj != nil {
			push(obj)
		}
	}
	clearTail(c.varRoots, len(live))
	c.varRoots = live

	c.containers = markLists(c.containers, pushT)
	c.arrayRoots = markLists(c.arrayRoots, pushT)

	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ref := range obj.References() {
			if ref != nil {
				push(ref)
			}
		}
	}
}

func markLists[T any](refs []*Weak[*[]T], push func(T)) []*Weak[*[]T] {
	live := refs[:0]
	for _, ref := range refs {
		list, ok := ref.Get()
		if !ok || list == nil {
			continue
		}
		live = append(live, ref)
		for _, obj := range *list {
			push(obj)
		}
	}
	clearTail(refs, len(live))
	return live
}

func clearTail[W any](list []*Weak[W], keep int) {
	for idx := keep; idx < len(list); idx++ {
		list[idx] = nil
	}
}

func (c *Collector[T]) sweep() int {
	kept := c.heap[:0]
	freed := 0
	for _, obj := range c.heap {
		h := obj.GCHeader()
		if h.marked {
			kept = append(kept, obj)
			continue
		}
		h.freed = true
		freed++
		if c.cfg.OnFree != nil {
			c.cfg.OnFree(obj)
		}
	}
	var zero T
	for idx := len(kept); idx < len(c.heap); idx++ {
		c.heap[idx] = zero
	}
	c.heap = kept

	for _, obj := range c.visited {
		obj.GCHeader().marked = false
	}
	c.visited = c.visited[:0]
	return freed
}
