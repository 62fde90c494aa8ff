package analyzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func analyze(t *testing.T, stmts ...ast.Statement) []Diagnostic {
	t.Helper()
	return New(Options{}).Analyze(ast.Prog("main", stmts...))
}

func messages(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for idx, d := range diags {
		out[idx] = d.Message
	}
	return out
}

func expectClean(t *testing.T, diags []Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", messages(diags))
	}
}

func expectOne(t *testing.T, diags []Diagnostic, want string) {
	t.Helper()
	if len(diags) != 1 || diags[0].Message != want {
		t.Fatalf("expected %q, got %v", want, messages(diags))
	}
}

func TestValidProgramHasNoDiagnostics(t *testing.T) {
	fib := ast.Fn("fib", []*ast.Declaration{ast.Param("n", ast.Ty(types.Int))}, ast.Ty(types.Int),
		ast.IfThen(ast.Bin("<", ast.ID("n"), ast.Int(2)), ast.Ret(ast.ID("n"))),
		ast.Ret(ast.Bin("+",
			ast.Call("fib", ast.Bin("-", ast.ID("n"), ast.Int(1))),
			ast.Call("fib", ast.Bin("-", ast.ID("n"), ast.Int(2))))),
	)
	expectClean(t, analyze(t,
		ast.Struct("P", ast.Param("x", ast.Ty(types.Int)), ast.Param("next", ast.StructTy("P"))),
		fib,
		ast.Var("p", ast.StructTy("P"), ast.StructLit("P", ast.FieldV("x", ast.Int(1)))),
		ast.Assign(ast.Path("p", "x"), ast.Call("fib", ast.Int(10))),
		ast.Var("y", ast.Ty(types.Float), ast.Int(3)),
		ast.Var("s", ast.Ty(types.String), ast.Chr('c')),
		ast.Var("arr", ast.ArrTy(types.Int, ast.Int(3)), ast.Arr(ast.Int(1), ast.Int(2), ast.Int(3))),
		ast.Each(ast.Var("v", ast.Ty(types.Int), nil), ast.ID("arr"),
			ast.IfThen(ast.Bin(">", ast.ID("v"), ast.Int(1)), ast.NewBreak()),
		),
		ast.Call("println", ast.Bin("+", ast.Str("fib="), ast.Path("p", "x"))),
		ast.Try(ast.Blk(ast.NewThrow(ast.Str("x"))), ast.Var("e", ast.StructTy("Exception"), nil), ast.Blk(
			ast.Call("println", ast.Path("e", "error")),
		)),
	))
}

func TestUndeclaredNames(t *testing.T) {
	cases := []struct {
		name string
		stmt ast.Statement
		want string
	}{
		{"identifier", ast.Var("x", nil, ast.ID("nope")), "identifier 'nope' was not declared"},
		{"function", ast.Call("nope", ast.Int(1)), "function 'nope(int)' was never declared"},
		{"struct", ast.Var("x", ast.StructTy("Nope"), nil), "struct 'Nope' was not declared"},
		{"constructor", ast.Var("x", nil, ast.StructLit("Nope")), "struct 'Nope' was not declared"},
		{"library", ast.NewUsing("no.such.lib"), "library 'no.such.lib' not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectOne(t, analyze(t, tc.stmt), tc.want)
		})
	}
}

func TestRedeclarations(t *testing.T) {
	expectOne(t, analyze(t,
		ast.Var("x", nil, ast.Int(1)),
		ast.Var("x", nil, ast.Int(2)),
	), "variable 'x' already declared")

	expectClean(t, analyze(t,
		ast.Var("x", nil, ast.Int(1)),
		ast.Blk(ast.Var("x", nil, ast.Int(2))),
	))

	expectOne(t, analyze(t,
		ast.Fn("f", []*ast.Declaration{ast.Param("a", ast.Ty(types.Int))}, nil),
		ast.Fn("f", []*ast.Declaration{ast.Param("b", ast.Ty(types.Int))}, nil),
	), "function 'f(int)' already declared")

	expectClean(t, analyze(t,
		ast.Fn("f", []*ast.Declaration{ast.Param("a", ast.Ty(types.Int))}, nil),
		ast.Fn("f", []*ast.Declaration{ast.Param("a", ast.Ty(types.Float))}, nil),
	))

	expectOne(t, analyze(t,
		ast.Struct("S"),
		ast.Struct("S"),
	), "struct 'S' already declared")
}

func TestTypeMismatches(t *testing.T) {
	cases := []struct {
		name  string
		stmts []ast.Statement
		want  string
	}{
		{
			"declaration",
			[]ast.Statement{ast.Var("x", ast.Ty(types.Int), ast.Str("a"))},
			"invalid type 'string' trying to assign 'x' of type 'int'",
		},
		{
			"assignment",
			[]ast.Statement{ast.Var("x", ast.Ty(types.Bool), ast.Bool(true)), ast.Assign(ast.ID("x"), ast.Flt(1))},
			"invalid type 'float' trying to assign 'x' of type 'bool'",
		},
		{
			"field",
			[]ast.Statement{
				ast.Struct("P", ast.Param("x", ast.Ty(types.Int))),
				ast.Var("p", ast.StructTy("P"), ast.StructLit("P")),
				ast.Assign(ast.Path("p", "x"), ast.Str("no")),
			},
			"invalid type 'string' trying to assign 'p.x' of type 'int'",
		},
		{
			"return",
			[]ast.Statement{ast.Fn("f", nil, ast.Ty(types.Int), ast.Ret(ast.Str("no")))},
			"invalid return type 'string' for function 'f()' declared 'int'",
		},
		{
			"void return",
			[]ast.Statement{ast.Fn("f", nil, ast.Ty(types.Void), ast.Ret(ast.Int(1)))},
			"void function 'f()' returned 'int'",
		},
		{
			"operands",
			[]ast.Statement{ast.Var("x", nil, ast.Bin("-", ast.Str("a"), ast.Int(1)))},
			"invalid '-' operand types 'string' and 'int'",
		},
		{
			"condition",
			[]ast.Statement{ast.WhileLoop(ast.Int(1))},
			"condition must be bool, got 'int'",
		},
		{
			"unknown field",
			[]ast.Statement{
				ast.Struct("P", ast.Param("x", ast.Ty(types.Int))),
				ast.Var("p", nil, ast.StructLit("P", ast.FieldV("y", ast.Int(1)))),
			},
			"'y' is not a member of 'P'",
		},
		{
			"array dims",
			[]ast.Statement{ast.Var("a", ast.ArrTy(types.Int, ast.Int(2)), ast.Arr(ast.Int(1), ast.Int(2), ast.Int(3)))},
			"invalid type 'int[3]' trying to assign 'a' of type 'int[2]'",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectOne(t, analyze(t, tc.stmts...), tc.want)
		})
	}
}

func TestConstReassignment(t *testing.T) {
	expectOne(t, analyze(t,
		ast.Const("k", ast.Ty(types.Int), ast.Int(1)),
		ast.AssignOp("+=", ast.ID("k"), ast.Int(1)),
	), "cannot assign to constant 'k'")
}

func TestControlFlowPlacement(t *testing.T) {
	expectOne(t, analyze(t, ast.NewBreak()), "break must be inside a loop or switch")
	expectOne(t, analyze(t, ast.NewContinue()), "continue must be inside a loop")
	expectOne(t, analyze(t, ast.Ret(ast.Int(1))), "return must be inside a function")

	expectOne(t, analyze(t,
		ast.WhileLoop(ast.Bool(true),
			ast.Fn("inner", nil, nil, ast.NewBreak()),
		),
	), "break must be inside a loop or switch")

	expectClean(t, analyze(t,
		ast.SwitchOn(ast.Int(1), ast.Case(ast.Int(1), ast.NewBreak())),
	))
}

func TestDuplicateSwitchCases(t *testing.T) {
	expectOne(t, analyze(t,
		ast.Const("two", nil, ast.Int(2)),
		ast.SwitchOn(ast.Int(1),
			ast.Case(ast.Int(1)),
			ast.Case(ast.ID("two")),
			ast.Case(ast.Int(2)),
		),
	), "duplicate case value 2")

	expectClean(t, analyze(t,
		ast.SwitchOn(ast.Str("1"),
			ast.Case(ast.Str("1")),
			ast.Case(ast.Chr('1')),
		),
	))
}

func TestOverloadResolution(t *testing.T) {
	diags := analyze(t,
		ast.Fn("f", []*ast.Declaration{ast.Param("v", ast.Ty(types.Int))}, ast.Ty(types.Int), ast.Ret(ast.ID("v"))),
		ast.Fn("f", []*ast.Declaration{ast.Param("v", ast.Ty(types.Any))}, ast.Ty(types.String), ast.Ret(ast.Str("any"))),
		ast.Var("a", ast.Ty(types.Int), ast.Call("f", ast.Int(1))),
		ast.Var("b", ast.Ty(types.String), ast.Call("f", ast.Flt(1))),
	)
	expectClean(t, diags)

	expectOne(t, analyze(t,
		ast.Fn("g", []*ast.Declaration{ast.Param("v", ast.Ty(types.Int))}, nil),
		ast.Call("g", ast.Str("x")),
	), "no overload of 'g' accepts (string)")
}

func TestLibrariesResolveAcrossNamespaces(t *testing.T) {
	geo := ast.ProgNS("geo", "geo",
		ast.Fn("area", []*ast.Declaration{ast.Param("w", ast.Ty(types.Float))}, ast.Ty(types.Float), ast.Ret(ast.ID("w"))),
	)
	a := New(Options{Libraries: map[string]*ast.Program{"geo": geo}})
	diags := a.Analyze(ast.Prog("main",
		ast.NewUsing("geo"),
		ast.NewUsing("flx.std.math"),
		ast.Var("x", ast.Ty(types.Float), ast.NewFunctionCall(ast.NSID("geo", "area"), []ast.Expression{ast.Int(1)}, nil)),
		ast.Var("y", ast.Ty(types.Float), ast.Call("sqrt", ast.ID("x"))),
		ast.Call("area", ast.Int(1)),
	))
	expectOne(t, diags, "function 'area(int)' was never declared")
}

func TestAnalyzeStatementsKeepsState(t *testing.T) {
	a := New(Options{})
	prog := ast.Prog("repl")
	expectClean(t, a.AnalyzeStatements(prog, []ast.Statement{ast.Var("x", ast.Ty(types.Int), ast.Int(1))}))
	expectClean(t, a.AnalyzeStatements(prog, []ast.Statement{ast.Assign(ast.ID("x"), ast.Int(2))}))
	expectOne(t, a.AnalyzeStatements(prog, []ast.Statement{ast.Var("x", nil, ast.Int(3))}), "variable 'x' already declared")
}

func TestDiagnosticsFormatting(t *testing.T) {
	stmt := ast.SetPos(ast.Var("x", ast.Ty(types.Int), ast.Bool(true)), 3, 7)
	err := Check(ast.Prog("main", stmt), Options{})
	var diags Diagnostics
	if !errors.As(err, &diags) {
		t.Fatalf("expected Diagnostics, got %v", err)
	}
	want := "(SERR) main[3:7]: invalid type 'bool' trying to assign 'x' of type 'int'"
	if err.Error() != want {
		t.Fatalf("unexpected %q", err.Error())
	}
	if !strings.HasPrefix(diags[0].String(), "(SERR) main[3:7]") {
		t.Fatalf("unexpected diagnostic %q", diags[0].String())
	}
	if Check(ast.Prog("ok", ast.Var("x", nil, ast.Int(1))), Options{}) != nil {
		t.Fatalf("expected nil error for a clean program")
	}
}

func TestSemanticValueHashing(t *testing.T) {
	a := New(Options{})
	a.registerProgram(ast.Prog("main"))
	a.pushProgram(ast.Prog("main"))
	defer a.popProgram()
	one, oneAgain := a.expr(ast.Int(1)), a.expr(ast.Int(1))
	if !one.IsConst || one.Hash != oneAgain.Hash {
		t.Fatalf("equal constants must hash equally")
	}
	if a.expr(ast.Str("1")).Hash == one.Hash {
		t.Fatalf("constants of different kinds must not collide")
	}
	sum := a.expr(ast.Bin("+", ast.Int(1), ast.Int(2)))
	if sum.IsConst || sum.Type != types.Int {
		t.Fatalf("unexpected folded value %+v", sum)
	}
	sub := a.expr(ast.Path("missing", "x"))
	if sub.Type != types.Any {
		t.Fatalf("unknown identifiers degrade to any")
	}
}
