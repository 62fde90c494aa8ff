package interpreter

import (
	"fmt"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// callTarget is the (namespace, identifier) pair a call site resolves. A
// plain target may also name a variable holding a function value.
type callTarget struct {
	namespace  string
	identifier string
	plain      bool
}

func (i *Interpreter) evaluateCall(n *ast.FunctionCall) (*runtime.Value, error) {
	target, err := i.callTargetOf(n.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]*runtime.Value, 0, len(n.Args))
	defer i.pinAll(&args)()
	for _, expr := range n.Args {
		v, err := i.evaluateExpression(expr)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	result, err := i.callFunction(target, args)
	if err != nil {
		return nil, err
	}
	if len(n.Access) == 0 {
		return result, nil
	}
	return i.access(result, target.identifier+"()", n.Access)
}

// callTargetOf derives the call target from the three callee shapes: a
// plain identifier, a dotted access path and any other expression. The last
// two must evaluate to a function value.
func (i *Interpreter) callTargetOf(callee ast.Expression) (callTarget, error) {
	if id, ok := callee.(*ast.Identifier); ok && len(id.Access) == 0 {
		return callTarget{namespace: id.Namespace, identifier: id.Name, plain: true}, nil
	}
	v, err := i.evaluateExpression(callee)
	if err != nil {
		return callTarget{}, err
	}
	if v.Type != types.Function {
		return callTarget{}, newRuntimeError("'%s' value is not callable", types.BuildTypeString(&v.Shape))
	}
	ref := v.Function()
	return callTarget{namespace: ref.Namespace, identifier: ref.Identifier}, nil
}

// CallFunction resolves identifier in namespace against args and invokes
// it. Natives and embedders use it to call back into programs.
func (i *Interpreter) CallFunction(namespace, identifier string, args ...*runtime.Value) (*runtime.Value, error) {
	defer i.pinAll(&args)()
	return i.callFunction(callTarget{namespace: namespace, identifier: identifier, plain: true}, args)
}

func (i *Interpreter) callFunction(target callTarget, args []*runtime.Value) (*runtime.Value, error) {
	def, err := i.resolveFunction(target, args)
	if err != nil {
		return nil, err
	}
	return i.invoke(def, args)
}

// resolveFunction is the single resolution routine every call site shares:
// a strict pass then a loose pass over the visible scopes, and for plain
// targets the same two passes against a function value held by a variable
// of that name.
func (i *Interpreter) resolveFunction(target callTarget, args []*runtime.Value) (*scope.FunctionDefinition, error) {
	shapes := make([]*types.Shape, len(args))
	for idx, arg := range args {
		shapes[idx] = &arg.Shape
	}
	program := i.currentProgramName()
	if def, _, ok := i.scopes.ResolveFunction(program, target.namespace, target.identifier, shapes); ok {
		return def, nil
	}
	if target.plain {
		if variable, ok := i.scopes.FindVariable(program, target.namespace, target.identifier); ok {
			if v := variable.Value(); v != nil && v.Type == types.Function {
				ref := v.Function()
				if def, _, ok := i.scopes.ResolveFunction(program, ref.Namespace, ref.Identifier, shapes); ok {
					return def, nil
				}
			}
		}
	}
	return nil, newRuntimeError("function '%s' was never declared", scope.Signature(target.identifier, shapes))
}

// invoke runs def in a fresh call scope of its own namespace with the
// declaring program current. The result is pinned until the caller owns it.
func (i *Interpreter) invoke(def *scope.FunctionDefinition, args []*runtime.Value) (*runtime.Value, error) {
	program := i.programs[def.Program]
	if program == nil {
		program = i.currentProgram()
	}
	i.pushProgram(program)
	defer i.popProgram()

	frame := &callFrame{def: def, scopeName: fmt.Sprintf("%s#%d", def.Identifier, len(i.frames))}
	collector := i.heap.GC()
	collector.AddPtrRoot(&frame.result)
	defer collector.RemovePtrRoot(&frame.result)

	fnScope, ns := i.pushScope(frame.scopeName)
	defer i.popScope(ns)

	loopDepth, switchDepth := i.loopDepth, i.switchDepth
	i.loopDepth, i.switchDepth = 0, 0
	i.frames = append(i.frames, frame)
	defer func() {
		i.frames[len(i.frames)-1] = nil
		i.frames = i.frames[:len(i.frames)-1]
		i.loopDepth, i.switchDepth = loopDepth, switchDepth
	}()

	for idx := range def.Params {
		param := &def.Params[idx]
		var v *runtime.Value
		switch {
		case idx < len(args):
			v = args[idx]
		case param.Default != nil:
			var err error
			if v, err = i.evaluateExpression(param.Default); err != nil {
				return nil, err
			}
		default:
			return nil, newRuntimeError("missing argument '%s' calling '%s'", param.Identifier, def)
		}
		if err := i.declareVariable(fnScope, param.Identifier, param.Shape.Clone(), v, false); err != nil {
			return nil, err
		}
	}

	if def.IsBuiltin() {
		native, ok := i.natives[def.Identifier]
		if !ok {
			return nil, newRuntimeError("builtin function '%s' has no implementation", def)
		}
		result, err := native(&builtins.NativeCallContext{Scope: fnScope, Heap: i.heap, Stdout: i.stdout, Stdin: i.stdin, Clock: i.registry.Now})
		if err != nil {
			return nil, err
		}
		frame.result = result
	} else if def.Body != nil {
		if err := i.executeStatements(def.Body.Statements); err != nil {
			return nil, err
		}
		if i.control.kind == controlReturn && i.control.target == frame.scopeName {
			i.control.reset()
		}
	}
	return i.checkReturn(frame)
}

func (i *Interpreter) checkReturn(frame *callFrame) (*runtime.Value, error) {
	def := frame.def
	result := frame.result
	if result == nil {
		result = i.heap.NewVoid()
		frame.result = result
	}
	if def.Type == types.Void {
		if !result.IsVoidOrUndefined() {
			return nil, newRuntimeError("void function '%s' returned '%s'", def, types.BuildTypeString(&result.Shape))
		}
		return result, nil
	}
	if !result.UseRef {
		result = i.heap.Copy(result)
		frame.result = result
	}
	if def.Type == types.Any {
		return result, nil
	}
	if result.UseRef {
		if err := checkReference(&def.Shape, def.Identifier, result); err != nil {
			return nil, err
		}
	}
	if !types.AcceptsValue(&def.Shape, &result.Shape) {
		return nil, newRuntimeError("invalid return type '%s' for function '%s' declared '%s'",
			types.BuildTypeString(&result.Shape), def, types.BuildTypeString(&def.Shape))
	}
	runtime.Normalize(&def.Shape, result)
	return result, nil
}
