package scope

import (
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Manager owns the scope stacks of every namespace and resolves names across
// them. Lookups never fail loudly: a nil scope means nothing matched and the
// caller words the error.
type Manager[V any] struct {
	scopes            map[string][]*Scope[V]
	programNamespace  map[string]string
	programIncludes   map[string][]string
	namespacePrograms map[string][]string
}

// NewManager returns a manager with no programs registered.
func NewManager[V any]() *Manager[V] {
	return &Manager[V]{
		scopes:            make(map[string][]*Scope[V]),
		programNamespace:  make(map[string]string),
		programIncludes:   make(map[string][]string),
		namespacePrograms: make(map[string][]string),
	}
}

// RegisterProgram records the namespace a program belongs to. The default
// namespace is included for every program.
func (m *Manager[V]) RegisterProgram(program, namespace string) {
	if namespace == "" {
		namespace = types.DefaultNamespace
	}
	if _, ok := m.programNamespace[program]; ok {
		return
	}
	m.programNamespace[program] = namespace
	m.namespacePrograms[namespace] = append(m.namespacePrograms[namespace], program)
	m.IncludeNamespace(program, types.DefaultNamespace)
}

// ProgramNamespace returns the namespace a program was registered under.
func (m *Manager[V]) ProgramNamespace(program string) string {
	if ns, ok := m.programNamespace[program]; ok {
		return ns
	}
	return types.DefaultNamespace
}

// IncludeNamespace makes namespace searchable from program.
func (m *Manager[V]) IncludeNamespace(program, namespace string) {
	for _, ns := range m.programIncludes[program] {
		if ns == namespace {
			return
		}
	}
	m.programIncludes[program] = append(m.programIncludes[program], namespace)
}

// ExcludeNamespace removes a previously included namespace. The default
// namespace cannot be excluded.
func (m *Manager[V]) ExcludeNamespace(program, namespace string) {
	if namespace == types.DefaultNamespace {
		return
	}
	list := m.programIncludes[program]
	for idx, ns := range list {
		if ns == namespace {
			m.programIncludes[program] = append(list[:idx:idx], list[idx+1:]...)
			return
		}
	}
}

// Includes returns the namespaces program has opted into, in order.
func (m *Manager[V]) Includes(program string) []string {
	return m.programIncludes[program]
}

// Push opens s as the innermost scope of namespace.
func (m *Manager[V]) Push(namespace string, s *Scope[V]) {
	m.scopes[namespace] = append(m.scopes[namespace], s)
}

// Pop closes and returns the innermost scope of namespace.
func (m *Manager[V]) Pop(namespace string) *Scope[V] {
	stack := m.scopes[namespace]
	if len(stack) == 0 {
		return nil
	}
	top := stack[len(stack)-1]
	stack[len(stack)-1] = nil
	m.scopes[namespace] = stack[:len(stack)-1]
	return top
}

// Back returns the innermost scope of namespace.
func (m *Manager[V]) Back(namespace string) *Scope[V] {
	stack := m.scopes[namespace]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// Front returns the outermost (global) scope of namespace.
func (m *Manager[V]) Front(namespace string) *Scope[V] {
	stack := m.scopes[namespace]
	if len(stack) == 0 {
		return nil
	}
	return stack[0]
}

// Depth returns the number of open scopes in namespace.
func (m *Manager[V]) Depth(namespace string) int {
	return len(m.scopes[namespace])
}

// FindVariableScope returns the innermost scope declaring identifier.
func (m *Manager[V]) FindVariableScope(program, namespace, identifier string) *Scope[V] {
	return m.find(program, namespace, func(s *Scope[V]) bool {
		return s.AlreadyDeclaredVariable(identifier)
	})
}

// FindVariable resolves identifier to its innermost binding.
func (m *Manager[V]) FindVariable(program, namespace, identifier string) (V, bool) {
	if s := m.FindVariableScope(program, namespace, identifier); s != nil {
		return s.FindDeclaredVariable(identifier)
	}
	var zero V
	return zero, false
}

// FindStructScope returns the innermost scope declaring struct name.
func (m *Manager[V]) FindStructScope(program, namespace, name string) *Scope[V] {
	return m.find(program, namespace, func(s *Scope[V]) bool {
		return s.AlreadyDeclaredStructureDefinition(name)
	})
}

// FindStruct resolves a struct definition.
func (m *Manager[V]) FindStruct(program, namespace, name string) (*StructDefinition, bool) {
	if s := m.FindStructScope(program, namespace, name); s != nil {
		return s.FindDeclaredStructureDefinition(name)
	}
	return nil, false
}

// FindFunctionScope returns the innermost scope with an overload of
// identifier accepting args under the strict or loose rule.
func (m *Manager[V]) FindFunctionScope(program, namespace, identifier string, args []*types.Shape, strict bool) *Scope[V] {
	return m.find(program, namespace, func(s *Scope[V]) bool {
		_, ok := s.FindDeclaredFunction(identifier, args, strict)
		return ok
	})
}

// FindAnyFunctionScope returns the innermost scope declaring any overload of
// identifier.
func (m *Manager[V]) FindAnyFunctionScope(program, namespace, identifier string) *Scope[V] {
	return m.find(program, namespace, func(s *Scope[V]) bool {
		_, ok := s.FindAnyFunction(identifier)
		return ok
	})
}

// FindDeclaredFunctionScope returns the innermost scope holding an overload
// whose parameter list is compatible with params, for redeclaration checks.
func (m *Manager[V]) FindDeclaredFunctionScope(program, namespace, identifier string, params []*types.Shape, strict bool) *Scope[V] {
	return m.find(program, namespace, func(s *Scope[V]) bool {
		return s.AlreadyDeclaredFunction(identifier, params, strict)
	})
}

// ResolveFunction performs call dispatch: a strict pass over every visible
// scope, then a loose pass only if the strict one found nothing.
func (m *Manager[V]) ResolveFunction(program, namespace, identifier string, args []*types.Shape) (*FunctionDefinition, *Scope[V], bool) {
	for _, strict := range []bool{true, false} {
		if s := m.FindFunctionScope(program, namespace, identifier, args, strict); s != nil {
			def, _ := s.FindDeclaredFunction(identifier, args, strict)
			return def, s, true
		}
	}
	return nil, nil, false
}

func (m *Manager[V]) find(program, namespace string, pred func(*Scope[V]) bool) *Scope[V] {
	return m.search(program, namespace, pred, make(map[string]bool), make(map[string]bool))
}

// search checks, in order, the hinted namespace, the program's namespace and
// each namespace the program includes, innermost scope first. It then
// follows the programs living in those namespaces. vp and vf hold the
// programs and namespaces already visited.
func (m *Manager[V]) search(program, namespace string, pred func(*Scope[V]) bool, vp, vf map[string]bool) *Scope[V] {
	if vp[program] {
		return nil
	}
	vp[program] = true

	candidates := make([]string, 0, 2+len(m.programIncludes[program]))
	if namespace != "" {
		candidates = append(candidates, namespace)
	}
	candidates = append(candidates, m.ProgramNamespace(program))
	candidates = append(candidates, m.programIncludes[program]...)

	var checked []string
	for _, ns := range candidates {
		if vf[ns] {
			continue
		}
		vf[ns] = true
		checked = append(checked, ns)
		if s := m.innermost(ns, pred); s != nil {
			return s
		}
	}

	for _, ns := range checked {
		for _, other := range m.namespacePrograms[ns] {
			if s := m.search(other, "", pred, vp, vf); s != nil {
				return s
			}
		}
	}
	return nil
}

func (m *Manager[V]) innermost(namespace string, pred func(*Scope[V]) bool) *Scope[V] {
	stack := m.scopes[namespace]
	for idx := len(stack) - 1; idx >= 0; idx-- {
		if pred(stack[idx]) {
			return stack[idx]
		}
	}
	return nil
}
