package runtime

import (
	"testing"

	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func newHeap() *Heap {
	return NewHeap(gc.Config{Enabled: true})
}

func TestCyclicStructArraySurvivesThroughVariable(t *testing.T) {
	h := newHeap()
	s := h.NewStruct("Node", types.DefaultNamespace)
	arr := h.NewArrayLiteral([]*Value{s})
	s.SetField("owner", arr)
	s.SetField("tag", h.NewInt(7))

	v := NewVariable("a", arr.Shape)
	v.Bind(arr)
	h.GC().AddVarRoot(v.Handle())
	h.NewString("garbage")

	h.GC().Force()
	if h.GC().Len() != 3 {
		t.Fatalf("expected array, struct and field to survive, heap=%d", h.GC().Len())
	}

	v.Release()
	h.GC().Force()
	if h.GC().Len() != 0 {
		t.Fatalf("expected cyclic graph to be reclaimed, heap=%d", h.GC().Len())
	}
}

func TestOwnerBackReferenceIsWeak(t *testing.T) {
	h := newHeap()
	val := h.NewInt(1)
	v := NewVariable("x", types.NewShape(types.Int))
	v.Bind(val)
	owner, ok := val.Owner()
	if !ok || owner != v {
		t.Fatalf("expected value to report its owning variable")
	}
	v.Release()
	if _, ok := val.Owner(); ok {
		t.Fatalf("released variable must not be reachable from its value")
	}
}

func TestCopySharesElementsHeldByLiveVariables(t *testing.T) {
	h := newHeap()
	held := h.NewInt(1)
	first := NewVariable("a", types.NewShape(types.Int))
	first.Bind(held)
	second := NewVariable("b", types.NewShape(types.Int))
	second.Bind(held)
	if owner, _ := held.Owner(); owner != first {
		t.Fatalf("expected the first live holder to stay the owner")
	}

	arr := h.NewArrayLiteral([]*Value{held, h.NewInt(2)})
	out := h.Copy(arr)
	if out.Elements()[0] != held {
		t.Fatalf("expected element held by a variable to be shared")
	}
	if out.Elements()[1] == arr.Elements()[1] {
		t.Fatalf("expected plain element to be copied")
	}

	first.Release()
	second.Release()
	if h.Copy(arr).Elements()[0] == held {
		t.Fatalf("expected element to be copied once no variable holds it")
	}
}

func TestNormalizeWidensOnce(t *testing.T) {
	h := newHeap()
	slot := types.NewShape(types.Float)
	val := h.NewInt(42)
	if !Normalize(&slot, val) {
		t.Fatalf("expected int to widen into float slot")
	}
	if val.Type != types.Float || val.Float() != 42 {
		t.Fatalf("expected float 42, got %s %v", val.Type, val.Float())
	}
	if Normalize(&slot, val) {
		t.Fatalf("second normalize must be a no-op")
	}

	str := types.NewShape(types.String)
	c := h.NewChar('z')
	Normalize(&str, c)
	if c.Type != types.String || c.Str() != "z" {
		t.Fatalf("expected char to become string, got %s", Format(c))
	}

	floats := types.ArrayShape(types.Float, 0)
	arr := h.NewArrayLiteral([]*Value{h.NewInt(1), h.NewInt(2)})
	Normalize(&floats, arr)
	if arr.ArrayType != types.Float || arr.Elements()[1].Type != types.Float {
		t.Fatalf("expected array elements widened, got %s", types.BuildTypeString(&arr.Shape))
	}
}

func TestCopySharesReferencesOnly(t *testing.T) {
	h := newHeap()
	inner := h.NewStruct("Inner", types.DefaultNamespace)
	inner.SetField("n", h.NewInt(1))
	outer := h.NewArrayLiteral([]*Value{h.NewInt(5), inner})

	cp := h.Copy(outer)
	if cp == outer || cp.Elements()[0] == outer.Elements()[0] {
		t.Fatalf("primitive elements must be duplicated")
	}
	if cp.Elements()[1] != inner {
		t.Fatalf("struct elements are references and must be shared")
	}

	deep := h.DeepCopy(outer)
	if deep.Elements()[1] == inner {
		t.Fatalf("deep copy must duplicate struct elements")
	}
	if !Equal(deep, outer) {
		t.Fatalf("deep copy should be structurally equal")
	}
}

func TestDeepCopyHandlesCycles(t *testing.T) {
	h := newHeap()
	s := h.NewStruct("Node", types.DefaultNamespace)
	s.SetField("self", s)
	cp := h.DeepCopy(s)
	self, _ := cp.Field("self")
	if self != cp {
		t.Fatalf("expected cycle to be preserved in the copy")
	}
}

func TestBuildArrayFixedAxes(t *testing.T) {
	h := newHeap()
	arr := h.Zero(types.ArrayShape(types.Int, 2, 3))
	if arr.Len() != 2 || arr.Elements()[0].Len() != 3 {
		t.Fatalf("expected 2x3 array, got %s", Format(arr))
	}
	if got := types.BuildTypeString(&arr.Shape); got != "int[2][3]" {
		t.Fatalf("unexpected type %s", got)
	}
	empty := h.Zero(types.ArrayShape(types.String))
	if empty.Len() != 0 {
		t.Fatalf("expected empty dynamic array")
	}
}

func TestFormat(t *testing.T) {
	h := newHeap()
	p := h.NewStruct("Point", "geo")
	p.SetField("x", h.NewFloat(1))
	p.SetField("name", h.NewString("a"))
	arr := h.NewArrayLiteral([]*Value{h.NewInt(1), h.NewChar('c'), p})
	want := `{1, 'c', geo::Point{x: 1.0, name: "a"}}`
	if got := Format(arr); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := Format(h.NewVoid()); got != "null" {
		t.Fatalf("expected null, got %s", got)
	}
}

func TestEqualNumericAndTextual(t *testing.T) {
	h := newHeap()
	if !Equal(h.NewInt(2), h.NewFloat(2)) {
		t.Fatalf("2 == 2.0")
	}
	if !Equal(h.NewChar('a'), h.NewString("a")) {
		t.Fatalf("'a' == \"a\"")
	}
	if Equal(h.NewInt(1), h.NewString("1")) {
		t.Fatalf("1 != \"1\"")
	}
	if !Equal(h.NewVoid(), h.NewVoid()) {
		t.Fatalf("null == null")
	}
}

func TestSettersReplacePayload(t *testing.T) {
	h := newHeap()
	v := h.NewArrayLiteral([]*Value{h.NewInt(1), h.NewInt(2)})
	v.UseRef = true

	v.SetInt(3)
	if v.Type != types.Int || v.Int() != 3 || v.Len() != 0 || !v.UseRef {
		t.Fatalf("SetInt left %+v", v.Shape)
	}
	v.SetFloat(1.5)
	if !v.Shape.IsFloat() || v.Float() != 1.5 {
		t.Fatalf("SetFloat left %+v", v.Shape)
	}
	v.SetChar('x')
	if v.Type != types.Char || v.Char() != 'x' {
		t.Fatalf("SetChar left %+v", v.Shape)
	}
	v.SetBool(true)
	if v.Type != types.Bool || !v.Bool() {
		t.Fatalf("SetBool left %+v", v.Shape)
	}
	v.SetFunction(FunctionRef{Namespace: types.DefaultNamespace, Identifier: "f"})
	if v.Type != types.Function || v.Function().Identifier != "f" {
		t.Fatalf("SetFunction left %+v", v.Shape)
	}
	v.SetVoid()
	if !v.IsVoidOrUndefined() || !v.UseRef {
		t.Fatalf("SetVoid left %+v", v.Shape)
	}
	if !h.NewUndefined().IsVoidOrUndefined() {
		t.Fatalf("undefined value must report void or undefined")
	}
}
