package types

import (
	"fmt"
	"strings"
)

// DefaultNamespace is the namespace every program belongs to unless it
// declares another one. It is always implicitly included.
const DefaultNamespace = "__default"

// Type is the closed set of value kinds.
type Type int

const (
	Undefined Type = iota
	Void
	Bool
	Int
	Float
	Char
	String
	Array
	Struct
	Any
	Function
)

func (t Type) String() string {
	switch t {
	case Undefined:
		return "undefined"
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Char:
		return "char"
	case String:
		return "string"
	case Array:
		return "array"
	case Struct:
		return "struct"
	case Any:
		return "any"
	case Function:
		return "function"
	default:
		return fmt.Sprintf("unknown_type_%d", int(t))
	}
}

// ParseType maps a type keyword back to its Type. Unknown names are reported
// as struct types since user structs share the identifier space.
func ParseType(name string) (Type, bool) {
	switch name {
	case "undefined":
		return Undefined, true
	case "void":
		return Void, true
	case "bool":
		return Bool, true
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "char":
		return Char, true
	case "string":
		return String, true
	case "array":
		return Array, true
	case "struct":
		return Struct, true
	case "any":
		return Any, true
	case "function":
		return Function, true
	default:
		return Struct, false
	}
}

// IsPrimitive reports whether t is a scalar kind with a single payload slot.
func (t Type) IsPrimitive() bool {
	switch t {
	case Bool, Int, Float, Char, String:
		return true
	default:
		return false
	}
}

// IsNumeric reports int or float.
func (t Type) IsNumeric() bool {
	return t == Int || t == Float
}

// IsTextual reports char or string.
func (t Type) IsTextual() bool {
	return t == Char || t == String
}

// Shape describes the static form of a typed entity: its kind, the element
// kind of arrays, the struct identity and the per-axis array sizes. A zero
// axis size is unconstrained.
type Shape struct {
	Type          Type
	ArrayType     Type
	TypeName      string
	TypeNamespace string
	Dim           []int
	UseRef        bool
}

// HasShape is implemented by every entity that carries a Shape: values,
// variables, variable and function definitions.
type HasShape interface {
	TypeShape() *Shape
}

// TypeShape returns s itself so embedders satisfy HasShape.
func (s *Shape) TypeShape() *Shape { return s }

// NewShape returns a shape of kind t with reference-ness derived from the kind.
func NewShape(t Type) Shape {
	s := Shape{Type: t}
	s.ResetRef()
	return s
}

// ArrayShape returns an array shape with element kind elem.
func ArrayShape(elem Type, dim ...int) Shape {
	s := Shape{Type: Array, ArrayType: elem, Dim: append([]int(nil), dim...)}
	s.ResetRef()
	return s
}

// StructShape returns the shape of struct typeName declared in namespace.
func StructShape(typeName, namespace string) Shape {
	s := Shape{Type: Struct, TypeName: typeName, TypeNamespace: namespace}
	s.ResetRef()
	return s
}

// ResetRef derives reference-ness from the kind: structs are reference-like.
func (s *Shape) ResetRef() {
	s.UseRef = s.Type == Struct
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	out := s
	if s.Dim != nil {
		out.Dim = append([]int(nil), s.Dim...)
	}
	return out
}

// ElementShape returns the shape of an element one axis below s.
func (s Shape) ElementShape() Shape {
	if s.Type != Array {
		return s.Clone()
	}
	if len(s.Dim) > 1 {
		out := s.Clone()
		out.Dim = out.Dim[1:]
		return out
	}
	elem := s.ArrayType
	if elem == Undefined {
		elem = Any
	}
	out := Shape{Type: elem}
	if elem == Struct {
		out.TypeName = s.TypeName
		out.TypeNamespace = s.TypeNamespace
	}
	out.ResetRef()
	return out
}

// IsUndefined etc. are convenience predicates used across the evaluator.
func (s *Shape) IsUndefined() bool { return s.Type == Undefined }
func (s *Shape) IsVoid() bool      { return s.Type == Void }
func (s *Shape) IsBool() bool      { return s.Type == Bool }
func (s *Shape) IsInt() bool       { return s.Type == Int }
func (s *Shape) IsFloat() bool     { return s.Type == Float }
func (s *Shape) IsChar() bool      { return s.Type == Char }
func (s *Shape) IsString() bool    { return s.Type == String }
func (s *Shape) IsArray() bool     { return s.Type == Array }
func (s *Shape) IsStruct() bool    { return s.Type == Struct }
func (s *Shape) IsAny() bool       { return s.Type == Any }
func (s *Shape) IsFunction() bool  { return s.Type == Function }

// IsAnyOrVoid reports whether s disables static checks.
func (s *Shape) IsAnyOrVoid() bool { return s.Type == Any || s.Type == Void }

// String renders the shape the way typeof reports it.
func (s Shape) String() string {
	return BuildTypeString(&s)
}

// BuildTypeString renders name[dim][dim]..., qualifying struct names with
// their namespace unless it is the default one.
func BuildTypeString(s *Shape) string {
	if s == nil {
		return Undefined.String()
	}
	if s.Type != Array {
		return baseTypeName(s.Type, s.TypeName, s.TypeNamespace)
	}
	elem := s.ArrayType
	if elem == Undefined {
		elem = Any
	}
	var b strings.Builder
	b.WriteString(baseTypeName(elem, s.TypeName, s.TypeNamespace))
	if len(s.Dim) == 0 {
		b.WriteString("[]")
	}
	for _, d := range s.Dim {
		if d > 0 {
			fmt.Fprintf(&b, "[%d]", d)
		} else {
			b.WriteString("[]")
		}
	}
	return b.String()
}

func baseTypeName(t Type, name, namespace string) string {
	if t != Struct || name == "" {
		return t.String()
	}
	if namespace == "" || namespace == DefaultNamespace {
		return name
	}
	return namespace + "::" + name
}
