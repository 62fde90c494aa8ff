package builtins

import (
	"fmt"
	"math"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// MathLibrary is the library name of the math module.
const MathLibrary = "flx.std.math"

// Math declares the numeric helpers and the PI and E constants.
func Math() *Module {
	unary := func(name string) *ast.FunctionDefinition {
		return ast.NativeFn(name, []*ast.Declaration{param("x", types.Float)}, ast.Ty(types.Float))
	}
	return &Module{
		Name: MathLibrary,
		Declarations: []ast.Statement{
			ast.Const("PI", ast.Ty(types.Float), ast.Flt(math.Pi)),
			ast.Const("E", ast.Ty(types.Float), ast.Flt(math.E)),
			unary("sqrt"),
			unary("floor"),
			unary("ceil"),
			unary("round"),
			unary("sin"),
			unary("cos"),
			unary("log"),
			ast.NativeFn("pow", []*ast.Declaration{param("x", types.Float), param("y", types.Float)}, ast.Ty(types.Float)),
			ast.NativeFn("abs", []*ast.Declaration{param("x", types.Int)}, ast.Ty(types.Int)),
			ast.NativeFn("abs", []*ast.Declaration{param("x", types.Float)}, ast.Ty(types.Float)),
			ast.NativeFn("min", []*ast.Declaration{param("a", types.Any), param("b", types.Any)}, ast.Ty(types.Any)),
			ast.NativeFn("max", []*ast.Declaration{param("a", types.Any), param("b", types.Any)}, ast.Ty(types.Any)),
		},
		Natives: map[string]NativeFunc{
			"sqrt":  floatFunc(math.Sqrt),
			"floor": floatFunc(math.Floor),
			"ceil":  floatFunc(math.Ceil),
			"round": floatFunc(math.Round),
			"sin":   floatFunc(math.Sin),
			"cos":   floatFunc(math.Cos),
			"log":   floatFunc(math.Log),
			"pow": func(ctx *NativeCallContext) (*runtime.Value, error) {
				x, err := ctx.FloatArg("x")
				if err != nil {
					return nil, err
				}
				y, err := ctx.FloatArg("y")
				if err != nil {
					return nil, err
				}
				return ctx.Heap.NewFloat(math.Pow(x, y)), nil
			},
			"abs": func(ctx *NativeCallContext) (*runtime.Value, error) {
				v, ok := ctx.Arg("x")
				if !ok {
					return nil, fmt.Errorf("abs expects a value")
				}
				if v.Type == types.Int {
					if v.Int() < 0 {
						return ctx.Heap.NewInt(-v.Int()), nil
					}
					return ctx.Heap.NewInt(v.Int()), nil
				}
				return ctx.Heap.NewFloat(math.Abs(runtime.AsFloat(v))), nil
			},
			"min": extremum(func(a, b float64) bool { return a < b }),
			"max": extremum(func(a, b float64) bool { return a > b }),
		},
	}
}

func floatFunc(fn func(float64) float64) NativeFunc {
	return func(ctx *NativeCallContext) (*runtime.Value, error) {
		x, err := ctx.FloatArg("x")
		if err != nil {
			return nil, err
		}
		return ctx.Heap.NewFloat(fn(x)), nil
	}
}

func extremum(better func(a, b float64) bool) NativeFunc {
	return func(ctx *NativeCallContext) (*runtime.Value, error) {
		a, okA := ctx.Arg("a")
		b, okB := ctx.Arg("b")
		if !okA || !okB || !a.Type.IsNumeric() || !b.Type.IsNumeric() {
			return nil, fmt.Errorf("min and max expect numeric arguments")
		}
		pick := b
		if better(runtime.AsFloat(a), runtime.AsFloat(b)) {
			pick = a
		}
		return ctx.Heap.Copy(pick), nil
	}
}
