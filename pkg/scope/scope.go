package scope

import (
	"sort"

	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Scope is one lexical binding level. V is the variable representation of
// the component using it: runtime variables for the evaluator, semantic
// variables for the analyzer. Scope does not reject redeclarations; callers
// check AlreadyDeclaredVariable first where that is an error.
type Scope[V any] struct {
	name      string
	structs   map[string]*StructDefinition
	functions map[string][]*FunctionDefinition
	variables map[string]V
	order     []string
}

// New returns an empty scope. name is set only for function call scopes
// and identifies the target of a return.
func New[V any](name string) *Scope[V] {
	return &Scope[V]{
		name:      name,
		structs:   make(map[string]*StructDefinition),
		functions: make(map[string][]*FunctionDefinition),
		variables: make(map[string]V),
	}
}

// Name returns the function name a call scope was opened for.
func (s *Scope[V]) Name() string { return s.name }

func (s *Scope[V]) DeclareStructureDefinition(def *StructDefinition) {
	s.structs[def.Identifier] = def
}

func (s *Scope[V]) AlreadyDeclaredStructureDefinition(name string) bool {
	_, ok := s.structs[name]
	return ok
}

func (s *Scope[V]) FindDeclaredStructureDefinition(name string) (*StructDefinition, bool) {
	def, ok := s.structs[name]
	return def, ok
}

// DeclareFunction adds an overload under name.
func (s *Scope[V]) DeclareFunction(name string, def *FunctionDefinition) {
	s.functions[name] = append(s.functions[name], def)
}

// AlreadyDeclaredFunction reports whether an overload with a compatible
// parameter list exists.
func (s *Scope[V]) AlreadyDeclaredFunction(name string, params []*types.Shape, strict bool) bool {
	for _, def := range s.functions[name] {
		if def.SameSignature(params, strict) {
			return true
		}
	}
	return false
}

// FindDeclaredFunction returns the first overload, in declaration order,
// that accepts args.
func (s *Scope[V]) FindDeclaredFunction(name string, args []*types.Shape, strict bool) (*FunctionDefinition, bool) {
	for _, def := range s.functions[name] {
		if def.Accepts(args, strict) {
			return def, true
		}
	}
	return nil, false
}

// FindAnyFunction returns some overload of name; it is used for existence
// checks rather than dispatch.
func (s *Scope[V]) FindAnyFunction(name string) (*FunctionDefinition, bool) {
	defs := s.functions[name]
	if len(defs) == 0 {
		return nil, false
	}
	return defs[0], true
}

// Functions returns every overload declared under name.
func (s *Scope[V]) Functions(name string) []*FunctionDefinition {
	return s.functions[name]
}

// DeclareVariable binds name, replacing any previous binding in this scope.
func (s *Scope[V]) DeclareVariable(name string, v V) {
	if _, ok := s.variables[name]; !ok {
		s.order = append(s.order, name)
	}
	s.variables[name] = v
}

func (s *Scope[V]) AlreadyDeclaredVariable(name string) bool {
	_, ok := s.variables[name]
	return ok
}

func (s *Scope[V]) FindDeclaredVariable(name string) (V, bool) {
	v, ok := s.variables[name]
	return v, ok
}

// TotalDeclaredVariables counts the variables bound in this scope.
func (s *Scope[V]) TotalDeclaredVariables() int {
	return len(s.variables)
}

// Variables returns the bound variables in declaration order.
func (s *Scope[V]) Variables() []V {
	out := make([]V, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.variables[name])
	}
	return out
}

// VariableNames returns the bound names sorted, for deterministic output.
func (s *Scope[V]) VariableNames() []string {
	names := make([]string, 0, len(s.variables))
	for name := range s.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
