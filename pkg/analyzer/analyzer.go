package analyzer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Diagnostic is one semantic problem located in a program.
type Diagnostic struct {
	Program string
	Pos     ast.Position
	Message string
	Node    ast.Node
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("(SERR) %s[%d:%d]: %s", d.Program, d.Pos.Row, d.Pos.Col, d.Message)
}

// Diagnostics is the error Check returns when analysis found problems.
type Diagnostics []Diagnostic

func (d Diagnostics) Error() string {
	lines := make([]string, len(d))
	for idx, diag := range d {
		lines[idx] = diag.String()
	}
	return strings.Join(lines, "\n")
}

// Options configures an Analyzer. Registry and Libraries must match what the
// evaluator will be given so library declarations resolve identically.
type Options struct {
	Registry  *builtins.Registry
	Libraries map[string]*ast.Program
	Logger    *slog.Logger
}

// Analyzer checks programs statically. An Analyzer keeps its scopes between
// calls to Analyze so a REPL can check input against earlier declarations.
type Analyzer struct {
	scopes       *scope.Manager[*SemanticVariable]
	registry     *builtins.Registry
	libs         map[string]*ast.Program
	loaded       map[string]bool
	registered   map[string]bool
	programStack []*ast.Program
	functions    []*scope.FunctionDefinition
	loopDepth    int
	switchDepth  int
	diags        []Diagnostic
	logger       *slog.Logger
}

// New returns an analyzer for opts.
func New(opts Options) *Analyzer {
	registry := opts.Registry
	if registry == nil {
		registry = builtins.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	libs := make(map[string]*ast.Program, len(opts.Libraries))
	for name, prog := range opts.Libraries {
		libs[name] = prog
	}
	return &Analyzer{
		scopes:     scope.NewManager[*SemanticVariable](),
		registry:   registry,
		libs:       libs,
		loaded:     make(map[string]bool),
		registered: make(map[string]bool),
		logger:     logger,
	}
}

// AddLibrary makes prog available to `using name`.
func (a *Analyzer) AddLibrary(name string, prog *ast.Program) {
	a.libs[name] = prog
}

// Check analyzes program and returns its diagnostics as an error, or nil.
func Check(program *ast.Program, opts Options) error {
	if diags := New(opts).Analyze(program); len(diags) > 0 {
		return Diagnostics(diags)
	}
	return nil
}

// Analyze checks every statement of program and returns the diagnostics it
// produced. The core library is loaded first, then the program's libs.
func (a *Analyzer) Analyze(program *ast.Program) []Diagnostic {
	return a.AnalyzeStatements(program, program.Statements)
}

// AnalyzeStatements checks statements as if they were part of program,
// registering the program on first use.
func (a *Analyzer) AnalyzeStatements(program *ast.Program, statements []ast.Statement) []Diagnostic {
	a.diags = nil
	first := !a.registered[program.Name]
	a.registerProgram(program)
	a.pushProgram(program)
	defer a.popProgram()
	if first {
		a.useLibrary(program, builtins.CoreLibrary)
		for _, lib := range program.Libs {
			a.useLibrary(program, lib)
		}
	}
	a.statements(statements)
	return a.diags
}

func (a *Analyzer) report(node ast.Node, format string, args ...any) {
	var pos ast.Position
	if node != nil {
		pos = node.Pos()
	}
	a.diags = append(a.diags, Diagnostic{
		Program: a.currentProgramName(),
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	})
}

func (a *Analyzer) registerProgram(program *ast.Program) {
	if a.registered[program.Name] {
		return
	}
	a.registered[program.Name] = true
	ns := program.EffectiveNamespace()
	a.scopes.RegisterProgram(program.Name, ns)
	for _, name := range []string{ns, types.DefaultNamespace} {
		if a.scopes.Depth(name) == 0 {
			a.scopes.Push(name, scope.New[*SemanticVariable](name))
		}
	}
}

func (a *Analyzer) pushProgram(program *ast.Program) {
	a.programStack = append(a.programStack, program)
}

func (a *Analyzer) popProgram() {
	a.programStack[len(a.programStack)-1] = nil
	a.programStack = a.programStack[:len(a.programStack)-1]
}

func (a *Analyzer) currentProgram() *ast.Program {
	return a.programStack[len(a.programStack)-1]
}

func (a *Analyzer) currentProgramName() string {
	if len(a.programStack) == 0 {
		return ""
	}
	return a.currentProgram().Name
}

func (a *Analyzer) currentNamespace() string {
	return a.currentProgram().EffectiveNamespace()
}

func (a *Analyzer) currentScope() *scope.Scope[*SemanticVariable] {
	return a.scopes.Back(a.currentNamespace())
}

func (a *Analyzer) withScope(name string, fn func(*scope.Scope[*SemanticVariable])) {
	ns := a.currentNamespace()
	s := scope.New[*SemanticVariable](name)
	a.scopes.Push(ns, s)
	defer a.scopes.Pop(ns)
	fn(s)
}

// useLibrary declares the contents of a library once. Diagnostics inside a
// library are attributed to the library program.
func (a *Analyzer) useLibrary(at ast.Node, name string) {
	if a.loaded[name] {
		return
	}
	var prog *ast.Program
	if module, ok := a.registry.Lookup(name); ok {
		prog = &ast.Program{Name: module.Name, Namespace: types.DefaultNamespace, Statements: module.Declarations}
	} else if lib, ok := a.libs[name]; ok {
		prog = lib
	} else {
		a.report(at, "library '%s' not found", name)
		return
	}
	a.loaded[name] = true
	a.logger.Debug("library analyzed", "name", name, "namespace", prog.EffectiveNamespace())
	a.registerProgram(prog)
	a.pushProgram(prog)
	defer a.popProgram()
	for _, dep := range prog.Libs {
		a.useLibrary(prog, dep)
	}
	loop, sw, fns := a.loopDepth, a.switchDepth, a.functions
	a.loopDepth, a.switchDepth, a.functions = 0, 0, nil
	a.statements(prog.Statements)
	a.loopDepth, a.switchDepth, a.functions = loop, sw, fns
}
