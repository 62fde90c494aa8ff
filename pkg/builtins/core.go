package builtins

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// ExceptionStruct is the struct try/catch binds caught errors to.
const ExceptionStruct = "Exception"

// Core declares console I/O, len and the Exception struct.
func Core() *Module {
	return &Module{
		Name: CoreLibrary,
		Declarations: []ast.Statement{
			ast.Struct(ExceptionStruct, param("error", types.String), param("code", types.Int)),
			ast.NativeFn("print", []*ast.Declaration{param("value", types.Any)}, ast.Ty(types.Void)),
			ast.NativeFn("println", nil, ast.Ty(types.Void)),
			ast.NativeFn("println", []*ast.Declaration{param("value", types.Any)}, ast.Ty(types.Void)),
			ast.NativeFn("read", nil, ast.Ty(types.String)),
			ast.NativeFn("read", []*ast.Declaration{param("prompt", types.String)}, ast.Ty(types.String)),
			ast.NativeFn("len", []*ast.Declaration{param("value", types.Any)}, ast.Ty(types.Int)),
		},
		Natives: map[string]NativeFunc{
			"print":   nativePrint(false),
			"println": nativePrint(true),
			"read":    nativeRead,
			"len":     nativeLen,
		},
	}
}

func nativePrint(newline bool) NativeFunc {
	return func(ctx *NativeCallContext) (*runtime.Value, error) {
		var b strings.Builder
		if v, ok := ctx.Arg("value"); ok {
			b.WriteString(runtime.Format(v))
		}
		if newline {
			b.WriteString("\n")
		}
		if ctx.Stdout != nil {
			if _, err := io.WriteString(ctx.Stdout, b.String()); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
}

func nativeRead(ctx *NativeCallContext) (*runtime.Value, error) {
	if prompt, ok := ctx.Arg("prompt"); ok && ctx.Stdout != nil {
		fmt.Fprint(ctx.Stdout, runtime.AsString(prompt))
	}
	if ctx.Stdin == nil {
		return ctx.Heap.NewString(""), nil
	}
	line, err := ctx.Stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return ctx.Heap.NewString(strings.TrimRight(line, "\r\n")), nil
}

func nativeLen(ctx *NativeCallContext) (*runtime.Value, error) {
	v, ok := ctx.Arg("value")
	if !ok {
		return nil, fmt.Errorf("len expects a value")
	}
	switch v.Type {
	case types.Array:
		return ctx.Heap.NewInt(int64(v.Len())), nil
	case types.String:
		return ctx.Heap.NewInt(int64(utf8.RuneCountInString(v.Str()))), nil
	case types.Char:
		return ctx.Heap.NewInt(1), nil
	case types.Struct:
		return ctx.Heap.NewInt(int64(len(v.FieldNames()))), nil
	default:
		return nil, fmt.Errorf("invalid type '%s' for len", types.BuildTypeString(&v.Shape))
	}
}
