package runtime

import (
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// FunctionRef identifies a function value by the namespace and identifier it
// was declared under.
type FunctionRef struct {
	Namespace  string
	Identifier string
}

// Value is a heap-allocated runtime value. Exactly one payload is live and
// the embedded Shape.Type says which. Values are created through a Heap and
// owned by its collector.
type Value struct {
	types.Shape

	hdr gc.Header
	id  uint64

	b   bool
	i   int64
	f   float64
	c   rune
	s   string
	arr []*Value
	fn  FunctionRef

	fields     map[string]*Value
	fieldOrder []string

	owner *gc.Weak[gc.Object]
}

// GCHeader implements gc.Object.
func (v *Value) GCHeader() *gc.Header { return &v.hdr }

// References returns array elements and struct field values. The owner
// back-reference is never reported.
func (v *Value) References() []gc.Object {
	switch v.Type {
	case types.Array:
		out := make([]gc.Object, 0, len(v.arr))
		for _, elem := range v.arr {
			if elem != nil {
				out = append(out, elem)
			}
		}
		return out
	case types.Struct:
		out := make([]gc.Object, 0, len(v.fieldOrder))
		for _, name := range v.fieldOrder {
			if field := v.fields[name]; field != nil {
				out = append(out, field)
			}
		}
		return out
	default:
		return nil
	}
}

// ID is the allocation identity reported by refid.
func (v *Value) ID() uint64 { return v.id }

// Owner returns the variable the value was last bound to, if it is still in
// scope.
func (v *Value) Owner() (*Variable, bool) {
	obj, ok := v.owner.Get()
	if !ok {
		return nil, false
	}
	variable, ok := obj.(*Variable)
	return variable, ok
}

// shared reports whether v is also the value of a live variable. Only a ref
// store puts such a value inside a container.
func (v *Value) shared() bool {
	_, ok := v.Owner()
	return ok
}

func (v *Value) Bool() bool                { return v.b }
func (v *Value) Int() int64                { return v.i }
func (v *Value) Float() float64            { return v.f }
func (v *Value) Char() rune                { return v.c }
func (v *Value) Str() string               { return v.s }
func (v *Value) Function() FunctionRef     { return v.fn }
func (v *Value) Elements() []*Value        { return v.arr }
func (v *Value) FieldNames() []string      { return v.fieldOrder }
func (v *Value) Len() int                  { return len(v.arr) }
func (v *Value) IsVoidOrUndefined() bool   { return v == nil || v.Type == types.Void || v.Type == types.Undefined }
func (v *Value) Fields() map[string]*Value { return v.fields }

// Field returns a struct member.
func (v *Value) Field(name string) (*Value, bool) {
	if v.Type != types.Struct || v.fields == nil {
		return nil, false
	}
	field, ok := v.fields[name]
	return field, ok
}

// SetField stores a struct member, appending it to the field order when new.
func (v *Value) SetField(name string, field *Value) {
	if v.fields == nil {
		v.fields = make(map[string]*Value)
	}
	if _, ok := v.fields[name]; !ok {
		v.fieldOrder = append(v.fieldOrder, name)
	}
	v.fields[name] = field
}

// Element returns the element at idx.
func (v *Value) Element(idx int) (*Value, bool) {
	if v.Type != types.Array || idx < 0 || idx >= len(v.arr) {
		return nil, false
	}
	return v.arr[idx], true
}

// SetElement replaces the element at idx.
func (v *Value) SetElement(idx int, elem *Value) bool {
	if v.Type != types.Array || idx < 0 || idx >= len(v.arr) {
		return false
	}
	v.arr[idx] = elem
	return true
}

// AppendElement grows an array value.
func (v *Value) AppendElement(elem *Value) {
	v.arr = append(v.arr, elem)
	if len(v.Dim) > 0 {
		v.Dim[0] = len(v.arr)
	}
}

func (v *Value) setKind(t types.Type) {
	useRef := v.UseRef
	v.Shape = types.Shape{Type: t, UseRef: useRef}
	v.arr = nil
	v.fields = nil
	v.fieldOrder = nil
	v.s = ""
}

func (v *Value) SetVoid() { v.setKind(types.Void) }

func (v *Value) SetBool(b bool) {
	v.setKind(types.Bool)
	v.b = b
}

func (v *Value) SetInt(i int64) {
	v.setKind(types.Int)
	v.i = i
}

func (v *Value) SetFloat(f float64) {
	v.setKind(types.Float)
	v.f = f
}

func (v *Value) SetChar(c rune) {
	v.setKind(types.Char)
	v.c = c
}

func (v *Value) SetString(s string) {
	v.setKind(types.String)
	v.s = s
}

func (v *Value) SetFunction(ref FunctionRef) {
	v.setKind(types.Function)
	v.fn = ref
}

// SetArray replaces the payload with elems under the given array shape.
func (v *Value) SetArray(shape types.Shape, elems []*Value) {
	useRef := v.UseRef
	v.setKind(types.Array)
	v.Shape = shape.Clone()
	v.Type = types.Array
	v.UseRef = useRef
	v.arr = elems
}

// SetStruct replaces the payload with a struct of the given identity.
func (v *Value) SetStruct(name, namespace string, order []string, fields map[string]*Value) {
	useRef := v.UseRef
	v.setKind(types.Struct)
	v.TypeName = name
	v.TypeNamespace = namespace
	v.UseRef = useRef
	v.fieldOrder = order
	v.fields = fields
}

// Overwrite copies src's shape and payload into v, keeping v's identity,
// owner and reference flag. Nested values are shared with src.
func (v *Value) Overwrite(src *Value) {
	useRef := v.UseRef
	v.Shape = src.Shape.Clone()
	v.UseRef = useRef
	v.b, v.i, v.f, v.c, v.s, v.fn = src.b, src.i, src.f, src.c, src.s, src.fn
	v.arr = nil
	if src.arr != nil {
		v.arr = append([]*Value(nil), src.arr...)
	}
	v.fields = nil
	v.fieldOrder = nil
	if src.fields != nil {
		v.fields = make(map[string]*Value, len(src.fields))
		for k, field := range src.fields {
			v.fields[k] = field
		}
		v.fieldOrder = append([]string(nil), src.fieldOrder...)
	}
}

// Normalize applies the implicit widening a slot of shape slot performs on
// assignment: int becomes float and char becomes a one-character string.
// Arrays are widened element by element. It reports whether v changed.
func Normalize(slot *types.Shape, v *Value) bool {
	if slot == nil || v == nil {
		return false
	}
	switch {
	case slot.Type == types.Float && v.Type == types.Int:
		v.SetFloat(float64(v.i))
		return true
	case slot.Type == types.String && v.Type == types.Char:
		v.SetString(string(v.c))
		return true
	case slot.Type == types.Array && v.Type == types.Array:
		if slot.ArrayType != types.Float && slot.ArrayType != types.String {
			return false
		}
		changed := normalizeElements(slot.ArrayType, v, make(map[*Value]bool))
		if changed && v.ArrayType != types.Any {
			v.ArrayType = slot.ArrayType
		}
		return changed
	}
	return false
}

func normalizeElements(target types.Type, v *Value, seen map[*Value]bool) bool {
	if seen[v] {
		return false
	}
	seen[v] = true
	changed := false
	for _, elem := range v.arr {
		if elem == nil {
			continue
		}
		switch {
		case elem.Type == types.Array:
			if normalizeElements(target, elem, seen) {
				if elem.ArrayType != types.Any {
					elem.ArrayType = target
				}
				changed = true
			}
		case target == types.Float && elem.Type == types.Int:
			elem.SetFloat(float64(elem.i))
			changed = true
		case target == types.String && elem.Type == types.Char:
			elem.SetString(string(elem.c))
			changed = true
		}
	}
	return changed
}
