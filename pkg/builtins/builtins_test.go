package builtins

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

type callHarness struct {
	heap  *runtime.Heap
	scope *scope.Scope[*runtime.Variable]
	out   bytes.Buffer
}

func newHarness() *callHarness {
	return &callHarness{
		heap:  runtime.NewHeap(gc.DefaultConfig()),
		scope: scope.New[*runtime.Variable]("native"),
	}
}

func (h *callHarness) arg(name string, v *runtime.Value) {
	variable := runtime.NewVariable(name, v.Shape)
	variable.Bind(v)
	h.scope.DeclareVariable(name, variable)
}

func (h *callHarness) ctx(stdin string) *NativeCallContext {
	return &NativeCallContext{
		Scope:  h.scope,
		Heap:   h.heap,
		Stdout: &h.out,
		Stdin:  bufio.NewReader(strings.NewReader(stdin)),
	}
}

func (h *callHarness) reset() {
	h.scope = scope.New[*runtime.Variable]("native")
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	want := []string{CoreLibrary, DBLibrary, MathLibrary, DateTimeLibrary}
	for _, name := range want {
		m, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("missing %s", name)
		}
		if len(m.Declarations) == 0 || len(m.Natives) == 0 {
			t.Fatalf("%s declares nothing", name)
		}
	}
	if len(r.Names()) != len(want) {
		t.Fatalf("unexpected libraries %v", r.Names())
	}
}

func TestCorePrintAndRead(t *testing.T) {
	h := newHarness()
	core := Core()
	h.arg("value", h.heap.NewArrayLiteral([]*runtime.Value{h.heap.NewInt(1), h.heap.NewString("a")}))
	if _, err := core.Natives["println"](h.ctx("")); err != nil {
		t.Fatalf("println: %v", err)
	}
	if got := h.out.String(); got != "{1, \"a\"}\n" {
		t.Fatalf("unexpected output %q", got)
	}

	h.reset()
	h.out.Reset()
	h.arg("prompt", h.heap.NewString("> "))
	v, err := core.Natives["read"](h.ctx("hello\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.Str() != "hello" || h.out.String() != "> " {
		t.Fatalf("unexpected read %q / prompt %q", v.Str(), h.out.String())
	}
}

func TestCoreLen(t *testing.T) {
	h := newHarness()
	h.arg("value", h.heap.NewString("héllo"))
	v, err := Core().Natives["len"](h.ctx(""))
	if err != nil || v.Int() != 5 {
		t.Fatalf("expected 5 runes, got %v (%v)", v, err)
	}
	h.reset()
	h.arg("value", h.heap.NewBool(true))
	if _, err := Core().Natives["len"](h.ctx("")); err == nil {
		t.Fatalf("expected len(bool) to fail")
	}
}

func TestRegistryClock(t *testing.T) {
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRegistry(DateTime())
	r.SetClock(func() time.Time { return fixed })
	if got := r.Now(); !got.Equal(fixed) {
		t.Fatalf("expected fixed clock, got %v", got)
	}
	r.SetClock(nil)
	if got := r.Now(); got.Equal(fixed) {
		t.Fatalf("expected wall clock after reset")
	}
}

func TestCreateDateTimeDispatchesOnArity(t *testing.T) {
	fixed := time.Date(2024, 2, 29, 12, 30, 15, 0, time.UTC)
	h := newHarness()
	native := DateTime().Natives["create_date_time"]
	ctx := h.ctx("")
	ctx.Clock = func() time.Time { return fixed }
	now, err := native(ctx)
	if err != nil {
		t.Fatalf("create_date_time(): %v", err)
	}
	if year, _ := now.Field("year"); year.Int() != 2024 {
		t.Fatalf("expected 2024, got %s", runtime.Format(now))
	}

	h.arg("year", h.heap.NewInt(1999))
	h.arg("month", h.heap.NewInt(12))
	h.arg("day", h.heap.NewInt(31))
	ymd, err := native(h.ctx(""))
	if err != nil {
		t.Fatalf("create_date_time(y, m, d): %v", err)
	}
	if day, _ := ymd.Field("day"); day.Int() != 31 {
		t.Fatalf("unexpected %s", runtime.Format(ymd))
	}
	if hour, _ := ymd.Field("hour"); hour.Int() != 0 {
		t.Fatalf("expected midnight, got %s", runtime.Format(ymd))
	}

	h.reset()
	h.arg("date", ymd)
	h.arg("layout", h.heap.NewString("2006-01-02"))
	formatted, err := DateTime().Natives["format_date_time"](h.ctx(""))
	if err != nil || formatted.Str() != "1999-12-31" {
		t.Fatalf("unexpected format %v (%v)", formatted, err)
	}
}

func TestDBRoundTrip(t *testing.T) {
	h := newHarness()
	m := DB()
	h.arg("path", h.heap.NewString(filepath.Join(t.TempDir(), "test.db")))
	handle, err := m.Natives["db_open"](h.ctx(""))
	if err != nil {
		t.Fatalf("db_open: %v", err)
	}

	exec := func(stmt string) *runtime.Value {
		t.Helper()
		h.reset()
		h.arg("db", handle)
		h.arg("sql", h.heap.NewString(stmt))
		v, err := m.Natives["db_exec"](h.ctx(""))
		if err != nil {
			t.Fatalf("db_exec %q: %v", stmt, err)
		}
		return v
	}
	exec("CREATE TABLE t (id INTEGER, name TEXT, score REAL)")
	if n := exec("INSERT INTO t VALUES (1, 'a', 1.5), (2, NULL, 2.0)"); n.Int() != 2 {
		t.Fatalf("expected 2 rows affected, got %d", n.Int())
	}

	h.reset()
	h.arg("db", handle)
	h.arg("sql", h.heap.NewString("SELECT id, name, score FROM t ORDER BY id"))
	rows, err := m.Natives["db_query"](h.ctx(""))
	if err != nil {
		t.Fatalf("db_query: %v", err)
	}
	if got := runtime.Format(rows); got != `{{1, "a", 1.5}, {2, null, 2.0}}` {
		t.Fatalf("unexpected rows %s", got)
	}
	cols, err := m.Natives["db_columns"](h.ctx(""))
	if err != nil || cols.Len() != 3 || cols.Elements()[1].Str() != "name" {
		t.Fatalf("unexpected columns %v (%v)", cols, err)
	}

	h.reset()
	h.arg("db", handle)
	if _, err := m.Natives["db_close"](h.ctx("")); err != nil {
		t.Fatalf("db_close: %v", err)
	}
	if _, err := m.Natives["db_close"](h.ctx("")); err == nil {
		t.Fatalf("expected closed handle to be rejected")
	}
	if got := types.BuildTypeString(&rows.Shape); got != "any[2][3]" {
		t.Fatalf("unexpected row shape %s", got)
	}
}
