package interpreter

import (
	"fmt"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
)

type bytecodeOp int

const (
	bytecodeOpConst bytecodeOp = iota
	bytecodeOpLoadName
	bytecodeOpBinary
	bytecodeOpUnary
	bytecodeOpCallName
	bytecodeOpEvalExpression
)

func (op bytecodeOp) String() string {
	switch op {
	case bytecodeOpConst:
		return "const"
	case bytecodeOpLoadName:
		return "load_name"
	case bytecodeOpBinary:
		return "binary"
	case bytecodeOpUnary:
		return "unary"
	case bytecodeOpCallName:
		return "call_name"
	case bytecodeOpEvalExpression:
		return "eval_expression"
	default:
		return fmt.Sprintf("op_%d", int(op))
	}
}

type bytecodeInstruction struct {
	op       bytecodeOp
	node     ast.Expression
	operator string
	target   callTarget
	argCount int
}

type bytecodeProgram struct {
	instructions []bytecodeInstruction
}

// bytecodeVM runs lowered expressions on an operand stack shared by nested
// runs. The stack is a root container, so pending operands survive the
// collections a nested call triggers.
type bytecodeVM struct {
	interp   *Interpreter
	stack    []*runtime.Value
	programs map[ast.Expression]*bytecodeProgram
}

func newBytecodeVM(i *Interpreter) *bytecodeVM {
	vm := &bytecodeVM{interp: i, programs: make(map[ast.Expression]*bytecodeProgram)}
	i.heap.GC().AddRootContainer(gc.NewWeak(&vm.stack))
	return vm
}

func (vm *bytecodeVM) evaluate(expr ast.Expression) (*runtime.Value, error) {
	program, ok := vm.programs[expr]
	if !ok {
		program = lowerExpression(expr)
		vm.programs[expr] = program
	}
	return vm.run(program)
}

func lowerExpression(expr ast.Expression) *bytecodeProgram {
	program := &bytecodeProgram{}
	emitExpression(program, expr)
	return program
}

func emitExpression(program *bytecodeProgram, expr ast.Expression) {
	emit := func(instr bytecodeInstruction) {
		program.instructions = append(program.instructions, instr)
	}
	switch n := expr.(type) {
	case *ast.BoolLiteral, *ast.IntLiteral, *ast.FloatLiteral, *ast.CharLiteral, *ast.StringLiteral, *ast.NullLiteral:
		emit(bytecodeInstruction{op: bytecodeOpConst, node: expr})
	case *ast.Identifier:
		if len(n.Access) > 0 {
			emit(bytecodeInstruction{op: bytecodeOpEvalExpression, node: expr})
			return
		}
		emit(bytecodeInstruction{op: bytecodeOpLoadName, node: expr})
	case *ast.Binary:
		if n.Operator == "and" || n.Operator == "or" {
			emit(bytecodeInstruction{op: bytecodeOpEvalExpression, node: expr})
			return
		}
		emitExpression(program, n.Left)
		emitExpression(program, n.Right)
		emit(bytecodeInstruction{op: bytecodeOpBinary, node: expr, operator: n.Operator})
	case *ast.Unary:
		emitExpression(program, n.Operand)
		emit(bytecodeInstruction{op: bytecodeOpUnary, node: expr, operator: n.Operator})
	case *ast.FunctionCall:
		id, ok := n.Callee.(*ast.Identifier)
		if !ok || len(id.Access) > 0 || len(n.Access) > 0 {
			emit(bytecodeInstruction{op: bytecodeOpEvalExpression, node: expr})
			return
		}
		for _, arg := range n.Args {
			emitExpression(program, arg)
		}
		emit(bytecodeInstruction{
			op:       bytecodeOpCallName,
			node:     expr,
			target:   callTarget{namespace: id.Namespace, identifier: id.Name, plain: true},
			argCount: len(n.Args),
		})
	default:
		emit(bytecodeInstruction{op: bytecodeOpEvalExpression, node: expr})
	}
}

func (vm *bytecodeVM) run(program *bytecodeProgram) (result *runtime.Value, err error) {
	base := len(vm.stack)
	defer func() {
		clear(vm.stack[base:])
		vm.stack = vm.stack[:base]
	}()
	i := vm.interp
	for ip := 0; ip < len(program.instructions); ip++ {
		instr := program.instructions[ip]
		var out *runtime.Value
		switch instr.op {
		case bytecodeOpConst:
			out, err = i.evaluateNode(instr.node)
		case bytecodeOpLoadName:
			out, err = i.evaluateIdentifier(instr.node.(*ast.Identifier))
		case bytecodeOpBinary:
			right := vm.pop()
			left := vm.pop()
			// Operands stay reachable until the operator has allocated its result.
			vm.stack = append(vm.stack, left, right)
			out, err = i.binaryOp(instr.operator, left, right)
			vm.stack = vm.stack[:len(vm.stack)-2]
		case bytecodeOpUnary:
			operand := vm.pop()
			out, err = i.unaryOp(instr.operator, operand)
		case bytecodeOpCallName:
			args := append([]*runtime.Value(nil), vm.stack[len(vm.stack)-instr.argCount:]...)
			out, err = i.callFunction(instr.target, args)
			clear(vm.stack[len(vm.stack)-instr.argCount:])
			vm.stack = vm.stack[:len(vm.stack)-instr.argCount]
		case bytecodeOpEvalExpression:
			out, err = i.evaluateNode(instr.node)
		default:
			err = fmt.Errorf("unknown bytecode op %s", instr.op)
		}
		if err != nil {
			return nil, i.attachRuntimeContext(err, instr.node)
		}
		vm.stack = append(vm.stack, out)
	}
	if len(vm.stack) != base+1 {
		return nil, fmt.Errorf("bytecode stack imbalance: %d values left", len(vm.stack)-base)
	}
	return vm.stack[base], nil
}

func (vm *bytecodeVM) pop() *runtime.Value {
	top := vm.stack[len(vm.stack)-1]
	vm.stack[len(vm.stack)-1] = nil
	vm.stack = vm.stack[:len(vm.stack)-1]
	return top
}
