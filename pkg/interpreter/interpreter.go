// Package interpreter evaluates Flexa programs over the shared AST. The tree
// walker is the reference engine; the bytecode engine lowers expressions to
// a small stack machine and defers everything else to the walker.
package interpreter

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Engine selects how expressions are evaluated.
type Engine string

const (
	EngineTree     Engine = "tree"
	EngineBytecode Engine = "bytecode"
)

// ParseEngine validates an engine name. The empty name selects the tree
// walker.
func ParseEngine(name string) (Engine, bool) {
	switch Engine(name) {
	case "", EngineTree:
		return EngineTree, true
	case EngineBytecode:
		return EngineBytecode, true
	default:
		return "", false
	}
}

// Options configures a new interpreter.
type Options struct {
	GC gc.Config
	// Registry resolves builtin libraries. Nil selects builtins.Default().
	Registry *builtins.Registry
	// Libraries maps library names to parsed programs for `using`.
	Libraries map[string]*ast.Program
	Stdout    io.Writer
	Stdin     io.Reader
	Logger    *slog.Logger
	Engine    Engine
}

// DefaultOptions returns options for a tree-walking interpreter on the
// process streams.
func DefaultOptions() Options {
	return Options{
		GC:     gc.DefaultConfig(),
		Stdout: os.Stdout,
		Stdin:  os.Stdin,
		Engine: EngineTree,
	}
}

type callFrame struct {
	def       *scope.FunctionDefinition
	scopeName string
	result    *runtime.Value
}

// Interpreter owns one heap, one scope manager and the control state of a
// single evaluation thread. It is not safe for concurrent use.
type Interpreter struct {
	heap     *runtime.Heap
	scopes   *scope.Manager[*runtime.Variable]
	registry *builtins.Registry
	natives  map[string]builtins.NativeFunc

	libs     map[string]*ast.Program
	programs map[string]*ast.Program
	loaded   map[string]bool

	programStack []*ast.Program
	frames       []*callFrame
	control      controlState
	current      *runtime.Value
	loopDepth    int
	switchDepth  int

	engine Engine
	vm     *bytecodeVM
	stdout io.Writer
	stdin  *bufio.Reader
	logger *slog.Logger
}

// New returns an interpreter configured by opts.
func New(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	gcCfg := opts.GC
	if gcCfg.Logger == nil {
		gcCfg.Logger = logger
	}
	registry := opts.Registry
	if registry == nil {
		registry = builtins.Default()
	}
	engine, ok := ParseEngine(string(opts.Engine))
	if !ok {
		engine = EngineTree
	}
	i := &Interpreter{
		heap:     runtime.NewHeap(gcCfg),
		scopes:   scope.NewManager[*runtime.Variable](),
		registry: registry,
		natives:  make(map[string]builtins.NativeFunc),
		libs:     make(map[string]*ast.Program),
		programs: make(map[string]*ast.Program),
		loaded:   make(map[string]bool),
		engine:   engine,
		stdout:   opts.Stdout,
		logger:   logger,
	}
	for name, prog := range opts.Libraries {
		i.libs[name] = prog
	}
	if i.stdout == nil {
		i.stdout = io.Discard
	}
	if opts.Stdin != nil {
		i.stdin = bufio.NewReader(opts.Stdin)
	}
	i.current = i.heap.NewVoid()
	i.heap.GC().AddPtrRoot(&i.current)
	i.vm = newBytecodeVM(i)
	return i
}

// Heap exposes the interpreter's heap.
func (i *Interpreter) Heap() *runtime.Heap { return i.heap }

// Scopes exposes the scope manager.
func (i *Interpreter) Scopes() *scope.Manager[*runtime.Variable] { return i.scopes }

// Engine reports the active evaluation engine.
func (i *Interpreter) Engine() Engine { return i.engine }

// Current returns the value of the most recently evaluated expression.
func (i *Interpreter) Current() *runtime.Value { return i.current }

// AddLibrary makes prog available to `using name`.
func (i *Interpreter) AddLibrary(name string, prog *ast.Program) {
	i.libs[name] = prog
}

// Run executes program from its first statement and returns the exit code:
// the argument of exit when the program exits, otherwise the int value of
// the last evaluated expression (zero when it is not an int). An uncaught
// error returns code 1.
func (i *Interpreter) Run(program *ast.Program) (int, error) {
	if err := i.Start(program); err != nil {
		return 1, err
	}
	return i.ExitCode(), nil
}

// Start loads the core library and executes program. The interpreter keeps
// its state afterwards so Exec can continue in the same globals.
func (i *Interpreter) Start(program *ast.Program) error {
	i.registerProgram(program)
	i.pushProgram(program)
	defer i.popProgram()
	if err := i.useLibrary(builtins.CoreLibrary); err != nil {
		return err
	}
	for _, lib := range program.Libs {
		if err := i.useLibrary(lib); err != nil {
			return err
		}
	}
	return i.executeStatements(program.Statements)
}

// Exec executes more statements in the global scope of program, which must
// have been started. It backs the REPL.
func (i *Interpreter) Exec(program *ast.Program, statements []ast.Statement) error {
	if _, ok := i.programs[program.Name]; !ok {
		return i.Start(&ast.Program{Name: program.Name, Namespace: program.Namespace, Statements: statements, Libs: program.Libs})
	}
	i.pushProgram(i.programs[program.Name])
	defer i.popProgram()
	if i.control.kind != controlExit {
		i.control.reset()
	}
	return i.executeStatements(statements)
}

// Exited reports whether an exit statement ran.
func (i *Interpreter) Exited() bool { return i.control.kind == controlExit }

// ExitCode is the status Run reports for a program that finished without an
// uncaught error.
func (i *Interpreter) ExitCode() int {
	if i.control.kind == controlExit {
		return i.control.code
	}
	if i.current != nil && i.current.Type == types.Int {
		return int(i.current.Int())
	}
	return 0
}

func (i *Interpreter) registerProgram(program *ast.Program) {
	if _, ok := i.programs[program.Name]; ok {
		return
	}
	i.programs[program.Name] = program
	ns := program.EffectiveNamespace()
	i.scopes.RegisterProgram(program.Name, ns)
	i.ensureGlobalScope(ns)
	i.ensureGlobalScope(types.DefaultNamespace)
}

func (i *Interpreter) ensureGlobalScope(namespace string) {
	if i.scopes.Depth(namespace) == 0 {
		i.scopes.Push(namespace, scope.New[*runtime.Variable](namespace))
	}
}

func (i *Interpreter) pushProgram(program *ast.Program) {
	i.programStack = append(i.programStack, program)
}

func (i *Interpreter) popProgram() {
	i.programStack[len(i.programStack)-1] = nil
	i.programStack = i.programStack[:len(i.programStack)-1]
}

func (i *Interpreter) currentProgram() *ast.Program {
	if len(i.programStack) == 0 {
		return nil
	}
	return i.programStack[len(i.programStack)-1]
}

func (i *Interpreter) currentProgramName() string {
	if p := i.currentProgram(); p != nil {
		return p.Name
	}
	return ""
}

func (i *Interpreter) currentNamespace() string {
	return i.scopes.ProgramNamespace(i.currentProgramName())
}

func (i *Interpreter) currentScope() *scope.Scope[*runtime.Variable] {
	ns := i.currentNamespace()
	i.ensureGlobalScope(ns)
	return i.scopes.Back(ns)
}

// pushScope opens a scope in the current program's namespace and returns
// the namespace popScope must be given.
func (i *Interpreter) pushScope(name string) (*scope.Scope[*runtime.Variable], string) {
	ns := i.currentNamespace()
	s := scope.New[*runtime.Variable](name)
	i.scopes.Push(ns, s)
	return s, ns
}

// popScope closes the innermost scope of namespace, drops its variables
// from the root set and runs a collection point.
func (i *Interpreter) popScope(namespace string) {
	s := i.scopes.Pop(namespace)
	if s == nil {
		return
	}
	collector := i.heap.GC()
	for _, variable := range s.Variables() {
		collector.RemoveVarRoot(variable.Handle())
		variable.Release()
	}
	collector.Collect()
}

func (i *Interpreter) withScope(name string, fn func(s *scope.Scope[*runtime.Variable]) error) error {
	s, ns := i.pushScope(name)
	defer i.popScope(ns)
	return fn(s)
}

// pin keeps v alive until the returned func runs.
func (i *Interpreter) pin(v *runtime.Value) func() {
	if v == nil {
		return func() {}
	}
	collector := i.heap.GC()
	collector.AddRoot(v)
	return func() { collector.RemoveRoot(v) }
}

// pinAll keeps every value in *values alive, including ones appended after
// the call, until the returned func runs.
func (i *Interpreter) pinAll(values *[]*runtime.Value) func() {
	ref := gc.NewWeak(values)
	collector := i.heap.GC()
	collector.AddRootContainer(ref)
	return func() {
		collector.RemoveRootContainer(ref)
		ref.Expire()
	}
}

func (i *Interpreter) currentFrame() *callFrame {
	if len(i.frames) == 0 {
		return nil
	}
	return i.frames[len(i.frames)-1]
}
