package scope

import (
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// VariableDefinition is a typed name with an optional default: a function
// parameter or a struct field.
type VariableDefinition struct {
	types.Shape

	Identifier string
	Default    ast.Expression
	Node       ast.Node
}

// NewVariableDefinition builds a definition from a declaration node.
func NewVariableDefinition(decl *ast.Declaration) VariableDefinition {
	return VariableDefinition{
		Shape:      decl.TypeSpec.Shape(),
		Identifier: decl.Identifier,
		Default:    decl.Value,
		Node:       decl,
	}
}

// FunctionDefinition is one overload. The embedded Shape is the return type.
// Program names the program that declared it; its body resolves names
// from there.
type FunctionDefinition struct {
	types.Shape

	Identifier string
	Namespace  string
	Program    string
	Params     []VariableDefinition
	Body       *ast.Block
	Node       ast.Node
}

// NewFunctionDefinition builds an overload from its declaration node.
func NewFunctionDefinition(namespace string, decl *ast.FunctionDefinition) *FunctionDefinition {
	params := make([]VariableDefinition, 0, len(decl.Params))
	for _, p := range decl.Params {
		params = append(params, NewVariableDefinition(p))
	}
	ret := types.NewShape(types.Any)
	if decl.ReturnType != nil {
		ret = decl.ReturnType.Shape()
	}
	return &FunctionDefinition{
		Shape:      ret,
		Identifier: decl.Identifier,
		Namespace:  namespace,
		Params:     params,
		Body:       decl.Body,
		Node:       decl,
	}
}

// IsBuiltin reports whether a native callable implements the overload.
func (f *FunctionDefinition) IsBuiltin() bool { return f.Body == nil }

// ParamShapes returns the declared parameter shapes.
func (f *FunctionDefinition) ParamShapes() []*types.Shape {
	out := make([]*types.Shape, len(f.Params))
	for idx := range f.Params {
		out[idx] = &f.Params[idx].Shape
	}
	return out
}

func (f *FunctionDefinition) optional() []bool {
	out := make([]bool, len(f.Params))
	for idx, p := range f.Params {
		out[idx] = p.Default != nil
	}
	return out
}

// Accepts reports whether a call with argument shapes args can bind to f.
// Trailing parameters with defaults may be omitted.
func (f *FunctionDefinition) Accepts(args []*types.Shape, strict bool) bool {
	return types.MatchSignature(f.ParamShapes(), f.optional(), args, strict)
}

// SameSignature reports whether f was declared with a parameter list
// compatible with params: equal arity and pairwise matching kinds.
func (f *FunctionDefinition) SameSignature(params []*types.Shape, strict bool) bool {
	if len(params) != len(f.Params) {
		return false
	}
	for idx := range f.Params {
		mine := &f.Params[idx].Shape
		if strict {
			if !types.Match(mine, params[idx], true, true) {
				return false
			}
			continue
		}
		if !types.IsAnyOrMatch(mine, params[idx]) {
			return false
		}
	}
	return true
}

// String renders name(type, type).
func (f *FunctionDefinition) String() string {
	return Signature(f.Identifier, f.ParamShapes())
}

// Signature renders a call signature for diagnostics.
func Signature(identifier string, args []*types.Shape) string {
	var b strings.Builder
	b.WriteString(identifier)
	b.WriteString("(")
	for idx, arg := range args {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(types.BuildTypeString(arg))
	}
	b.WriteString(")")
	return b.String()
}

// StructDefinition lists the fields of a struct type in declaration order.
type StructDefinition struct {
	Identifier string
	Namespace  string
	Fields     []VariableDefinition
	Node       ast.Node
}

// NewStructDefinition builds a struct type from its declaration node.
func NewStructDefinition(namespace string, decl *ast.StructDefinition) *StructDefinition {
	fields := make([]VariableDefinition, 0, len(decl.Fields))
	for _, f := range decl.Fields {
		fields = append(fields, NewVariableDefinition(f))
	}
	return &StructDefinition{Identifier: decl.Identifier, Namespace: namespace, Fields: fields, Node: decl}
}

// Field looks up a field definition by name.
func (s *StructDefinition) Field(name string) (*VariableDefinition, bool) {
	for idx := range s.Fields {
		if s.Fields[idx].Identifier == name {
			return &s.Fields[idx], true
		}
	}
	return nil, false
}

// Shape returns the struct type as a value shape.
func (s *StructDefinition) Shape() types.Shape {
	return types.StructShape(s.Identifier, s.Namespace)
}
