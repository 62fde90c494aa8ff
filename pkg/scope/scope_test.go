package scope

import (
	"testing"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

type testVar struct {
	name string
	kind types.Type
}

func fn(namespace, name string, params ...*ast.Declaration) *FunctionDefinition {
	return NewFunctionDefinition(namespace, ast.Fn(name, params, nil))
}

func shapes(ts ...types.Type) []*types.Shape {
	out := make([]*types.Shape, len(ts))
	for idx, t := range ts {
		s := types.NewShape(t)
		out[idx] = &s
	}
	return out
}

func TestShadowingRevertsAfterPop(t *testing.T) {
	m := NewManager[*testVar]()
	m.RegisterProgram("main", "")
	ns := types.DefaultNamespace
	outer := New[*testVar]("")
	outer.DeclareVariable("x", &testVar{name: "outer", kind: types.Int})
	m.Push(ns, outer)

	inner := New[*testVar]("")
	inner.DeclareVariable("x", &testVar{name: "inner", kind: types.String})
	m.Push(ns, inner)

	v, ok := m.FindVariable("main", "", "x")
	if !ok || v.name != "inner" {
		t.Fatalf("expected inner x, got %+v", v)
	}
	m.Pop(ns)
	v, ok = m.FindVariable("main", "", "x")
	if !ok || v.name != "outer" || v.kind != types.Int {
		t.Fatalf("expected outer x after pop, got %+v", v)
	}
	if _, ok := m.FindVariable("main", "", "missing"); ok {
		t.Fatalf("unknown names must resolve to nothing")
	}
}

func TestOverloadResolutionPrefersStrict(t *testing.T) {
	m := NewManager[*testVar]()
	m.RegisterProgram("main", "")
	global := New[*testVar]("")
	anyF := fn(types.DefaultNamespace, "f", ast.Param("v", ast.Ty(types.Any)))
	intF := fn(types.DefaultNamespace, "f", ast.Param("v", ast.Ty(types.Int)))
	global.DeclareFunction("f", anyF)
	global.DeclareFunction("f", intF)
	m.Push(types.DefaultNamespace, global)

	def, _, ok := m.ResolveFunction("main", "", "f", shapes(types.Int))
	if !ok || def != intF {
		t.Fatalf("f(5) should bind to f(int), got %v", def)
	}
	def, _, ok = m.ResolveFunction("main", "", "f", shapes(types.String))
	if !ok || def != anyF {
		t.Fatalf("f(\"x\") should bind to f(any), got %v", def)
	}
	if _, _, ok := m.ResolveFunction("main", "", "f", shapes(types.Int, types.Int)); ok {
		t.Fatalf("arity mismatch must not resolve")
	}
}

func TestDefaultsAllowShorterCalls(t *testing.T) {
	s := New[*testVar]("")
	def := fn(types.DefaultNamespace, "g", ast.Param("a", ast.Ty(types.Int)), ast.ParamDefault("b", ast.Ty(types.Int), ast.Int(2)))
	s.DeclareFunction("g", def)
	if _, ok := s.FindDeclaredFunction("g", shapes(types.Int), true); !ok {
		t.Fatalf("expected g(int) to accept a single argument")
	}
	if !s.AlreadyDeclaredFunction("g", shapes(types.Int, types.Int), true) {
		t.Fatalf("expected redeclaration check to match the full parameter list")
	}
	if s.AlreadyDeclaredFunction("g", shapes(types.Int), true) {
		t.Fatalf("redeclaration check requires equal arity")
	}
	if got := def.String(); got != "g(int, int)" {
		t.Fatalf("unexpected signature %s", got)
	}
}

func TestNamespaceResolutionOrder(t *testing.T) {
	m := NewManager[*testVar]()
	m.RegisterProgram("main", "")
	m.RegisterProgram("mathlib", "math")
	m.RegisterProgram("utillib", "util")

	def := New[*testVar]("")
	def.DeclareVariable("pi", &testVar{name: "default"})
	m.Push(types.DefaultNamespace, def)

	math := New[*testVar]("")
	math.DeclareVariable("pi", &testVar{name: "math"})
	math.DeclareVariable("e", &testVar{name: "math"})
	m.Push("math", math)

	util := New[*testVar]("")
	util.DeclareVariable("helper", &testVar{name: "util"})
	m.Push("util", util)

	if v, _ := m.FindVariable("main", "math", "pi"); v.name != "math" {
		t.Fatalf("explicit namespace should win, got %s", v.name)
	}
	if v, _ := m.FindVariable("main", "", "pi"); v.name != "default" {
		t.Fatalf("own namespace should win without a hint, got %s", v.name)
	}
	if _, ok := m.FindVariable("main", "", "e"); ok {
		t.Fatalf("math is not included yet")
	}
	m.IncludeNamespace("main", "math")
	if v, ok := m.FindVariable("main", "", "e"); !ok || v.name != "math" {
		t.Fatalf("expected e through include")
	}

	m.IncludeNamespace("mathlib", "util")
	if v, ok := m.FindVariable("main", "", "helper"); !ok || v.name != "util" {
		t.Fatalf("expected helper through the programs of included namespaces")
	}

	m.ExcludeNamespace("main", "math")
	if _, ok := m.FindVariable("main", "", "e"); ok {
		t.Fatalf("excluded namespace must no longer resolve")
	}
	m.ExcludeNamespace("main", types.DefaultNamespace)
	if len(m.Includes("main")) != 1 {
		t.Fatalf("default namespace cannot be excluded")
	}
}

func TestMutualIncludesTerminate(t *testing.T) {
	m := NewManager[*testVar]()
	m.RegisterProgram("a", "nsa")
	m.RegisterProgram("b", "nsb")
	m.IncludeNamespace("a", "nsb")
	m.IncludeNamespace("b", "nsa")
	m.Push("nsa", New[*testVar](""))
	m.Push("nsb", New[*testVar](""))
	if s := m.FindVariableScope("a", "", "nothing"); s != nil {
		t.Fatalf("expected no match")
	}
}

func TestTotalDeclaredVariables(t *testing.T) {
	s := New[*testVar]("create_date_time")
	if s.Name() != "create_date_time" || s.TotalDeclaredVariables() != 0 {
		t.Fatalf("unexpected fresh scope")
	}
	s.DeclareVariable("y", &testVar{})
	s.DeclareVariable("m", &testVar{})
	s.DeclareVariable("y", &testVar{})
	if s.TotalDeclaredVariables() != 2 || len(s.Variables()) != 2 {
		t.Fatalf("expected 2 variables, got %d", s.TotalDeclaredVariables())
	}
}

func TestStructDefinitionLookup(t *testing.T) {
	m := NewManager[*testVar]()
	m.RegisterProgram("main", "geo")
	s := New[*testVar]("")
	s.DeclareStructureDefinition(NewStructDefinition("geo", ast.Struct("Point", ast.Param("x", ast.Ty(types.Float)))))
	m.Push("geo", s)
	def, ok := m.FindStruct("main", "", "Point")
	if !ok {
		t.Fatalf("expected Point")
	}
	if _, ok := def.Field("x"); !ok {
		t.Fatalf("expected field x")
	}
	shape := def.Shape()
	if types.BuildTypeString(&shape) != "geo::Point" {
		t.Fatalf("unexpected shape %s", types.BuildTypeString(&shape))
	}
}
