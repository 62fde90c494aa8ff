package builtins

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// CoreLibrary is loaded into every program before its first statement.
const CoreLibrary = "flx.core"

// NativeCallContext is what a native function sees: the call scope holding
// its arguments by name and the interpreter's heap and streams.
type NativeCallContext struct {
	Scope  *scope.Scope[*runtime.Variable]
	Heap   *runtime.Heap
	Stdout io.Writer
	Stdin  *bufio.Reader
	// Clock is read by the date builtins. Nil means time.Now.
	Clock  func() time.Time
}

// Now reads the call's clock.
func (c *NativeCallContext) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// Arg returns the value bound to parameter name.
func (c *NativeCallContext) Arg(name string) (*runtime.Value, bool) {
	if c.Scope == nil {
		return nil, false
	}
	v, ok := c.Scope.FindDeclaredVariable(name)
	if !ok || v.Value() == nil {
		return nil, false
	}
	return v.Value(), true
}

// ArgCount reports how many parameters the matched overload bound; natives
// shared by several overloads dispatch on it.
func (c *NativeCallContext) ArgCount() int {
	if c.Scope == nil {
		return 0
	}
	return c.Scope.TotalDeclaredVariables()
}

// IntArg reads an int parameter.
func (c *NativeCallContext) IntArg(name string) (int64, error) {
	v, ok := c.Arg(name)
	if !ok || v.Type != types.Int {
		return 0, fmt.Errorf("'%s' expects an int argument", name)
	}
	return v.Int(), nil
}

// FloatArg reads a numeric parameter as float.
func (c *NativeCallContext) FloatArg(name string) (float64, error) {
	v, ok := c.Arg(name)
	if !ok || !v.Type.IsNumeric() {
		return 0, fmt.Errorf("'%s' expects a numeric argument", name)
	}
	return runtime.AsFloat(v), nil
}

// StringArg reads a textual parameter.
func (c *NativeCallContext) StringArg(name string) (string, error) {
	v, ok := c.Arg(name)
	if !ok || !v.Type.IsTextual() {
		return "", fmt.Errorf("'%s' expects a string argument", name)
	}
	return runtime.AsString(v), nil
}

// NativeFunc implements a builtin. A nil result is void.
type NativeFunc func(ctx *NativeCallContext) (*runtime.Value, error)

// Module is one builtin library: the statements declaring its functions and
// structs, and the natives behind its body-less functions.
type Module struct {
	Name         string
	Declarations []ast.Statement
	Natives      map[string]NativeFunc
}

// Registry maps library names to modules. It is built once and handed to
// the evaluator and the analyzer.
type Registry struct {
	modules map[string]*Module
	clock   func() time.Time
}

// SetClock replaces the clock native calls made through r read. Nil restores
// time.Now.
func (r *Registry) SetClock(clock func() time.Time) {
	r.clock = clock
}

// Now reads the registry clock.
func (r *Registry) Now() time.Time {
	if r.clock == nil {
		return time.Now()
	}
	return r.clock()
}

// NewRegistry returns a registry holding modules.
func NewRegistry(modules ...*Module) *Registry {
	r := &Registry{modules: make(map[string]*Module)}
	for _, m := range modules {
		r.Register(m)
	}
	return r
}

// Default returns a registry with every bundled module.
func Default() *Registry {
	return NewRegistry(Core(), Math(), DateTime(), DB())
}

// Register adds or replaces a module.
func (r *Registry) Register(m *Module) {
	r.modules[m.Name] = m
}

// Lookup finds a module by library name.
func (r *Registry) Lookup(name string) (*Module, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.modules[name]
	return m, ok
}

// Names lists the registered libraries, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func param(name string, t types.Type) *ast.Declaration {
	return ast.Param(name, ast.Ty(t))
}
