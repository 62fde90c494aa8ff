package runtime

import (
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Heap allocates values and owns the collector that reclaims them.
type Heap struct {
	gc     *gc.Collector[*Value]
	nextID uint64
}

// NewHeap builds a heap whose collector uses cfg.
func NewHeap(cfg gc.Config) *Heap {
	return &Heap{gc: gc.New[*Value](cfg)}
}

// GC exposes the collector for root registration.
func (h *Heap) GC() *gc.Collector[*Value] { return h.gc }

// Alloc hands v to the collector and assigns its identity.
func (h *Heap) Alloc(v *Value) *Value {
	h.nextID++
	v.id = h.nextID
	return h.gc.Allocate(v)
}

func (h *Heap) newKind(t types.Type) *Value {
	return h.Alloc(&Value{Shape: types.NewShape(t)})
}

func (h *Heap) NewUndefined() *Value { return h.newKind(types.Undefined) }
func (h *Heap) NewVoid() *Value      { return h.newKind(types.Void) }

func (h *Heap) NewBool(b bool) *Value {
	v := h.newKind(types.Bool)
	v.b = b
	return v
}

func (h *Heap) NewInt(i int64) *Value {
	v := h.newKind(types.Int)
	v.i = i
	return v
}

func (h *Heap) NewFloat(f float64) *Value {
	v := h.newKind(types.Float)
	v.f = f
	return v
}

func (h *Heap) NewChar(c rune) *Value {
	v := h.newKind(types.Char)
	v.c = c
	return v
}

func (h *Heap) NewString(s string) *Value {
	v := h.newKind(types.String)
	v.s = s
	return v
}

func (h *Heap) NewFunction(namespace, identifier string) *Value {
	v := h.newKind(types.Function)
	v.fn = FunctionRef{Namespace: namespace, Identifier: identifier}
	return v
}

// NewArray allocates an array value. The shape is cloned; its kind is forced
// to array.
func (h *Heap) NewArray(shape types.Shape, elems []*Value) *Value {
	s := shape.Clone()
	s.Type = types.Array
	s.ResetRef()
	return h.Alloc(&Value{Shape: s, arr: elems})
}

// NewArrayLiteral allocates an array whose shape is composed from elems.
func (h *Heap) NewArrayLiteral(elems []*Value) *Value {
	shapes := make([]*types.Shape, len(elems))
	for idx, elem := range elems {
		shapes[idx] = &elem.Shape
	}
	return h.NewArray(types.ComposeArrayShape(shapes), elems)
}

// NewStruct allocates an empty struct value of the given identity.
func (h *Heap) NewStruct(name, namespace string) *Value {
	return h.Alloc(&Value{
		Shape:  types.StructShape(name, namespace),
		fields: make(map[string]*Value),
	})
}

// Zero returns the value an uninitialized slot of shape holds: typed zeros
// for primitives, a sized array for arrays with fixed axes and void for
// everything else.
func (h *Heap) Zero(shape types.Shape) *Value {
	switch shape.Type {
	case types.Bool:
		return h.NewBool(false)
	case types.Int:
		return h.NewInt(0)
	case types.Float:
		return h.NewFloat(0)
	case types.Char:
		return h.NewChar(0)
	case types.String:
		return h.NewString("")
	case types.Array:
		return h.BuildArray(shape)
	default:
		return h.NewVoid()
	}
}

// BuildArray allocates an array of shape, filling every fixed axis with zero
// values. Unconstrained axes produce empty arrays.
func (h *Heap) BuildArray(shape types.Shape) *Value {
	size := 0
	if len(shape.Dim) > 0 {
		size = shape.Dim[0]
	}
	elems := make([]*Value, 0, size)
	if size > 0 {
		elemShape := shape.ElementShape()
		for idx := 0; idx < size; idx++ {
			elems = append(elems, h.Zero(elemShape))
		}
	}
	out := shape.Clone()
	if len(out.Dim) == 0 {
		out.Dim = []int{0}
	}
	return h.NewArray(out, elems)
}

// Copy returns a value-semantics copy of v. Nested values flagged as
// references are shared with the source; everything else is duplicated. The
// copy's reference flag is reset from its kind.
func (h *Heap) Copy(v *Value) *Value {
	out := h.copy(v, false, make(map[*Value]*Value))
	out.ResetRef()
	return out
}

// DeepCopy duplicates v and every value reachable from it, references
// included. It backs unref.
func (h *Heap) DeepCopy(v *Value) *Value {
	return h.copy(v, true, make(map[*Value]*Value))
}

func (h *Heap) copy(v *Value, deep bool, seen map[*Value]*Value) *Value {
	if v == nil {
		return h.NewVoid()
	}
	if out, ok := seen[v]; ok {
		return out
	}
	out := h.Alloc(&Value{
		Shape: v.Shape.Clone(),
		b:     v.b,
		i:     v.i,
		f:     v.f,
		c:     v.c,
		s:     v.s,
		fn:    v.fn,
	})
	seen[v] = out
	nested := func(elem *Value) *Value {
		if elem == nil {
			return nil
		}
		if !deep && (elem.UseRef || elem.shared()) {
			return elem
		}
		return h.copy(elem, deep, seen)
	}
	switch v.Type {
	case types.Array:
		out.arr = make([]*Value, len(v.arr))
		for idx, elem := range v.arr {
			out.arr[idx] = nested(elem)
		}
	case types.Struct:
		out.fields = make(map[string]*Value, len(v.fields))
		out.fieldOrder = append([]string(nil), v.fieldOrder...)
		for name, field := range v.fields {
			out.fields[name] = nested(field)
		}
	}
	return out
}
