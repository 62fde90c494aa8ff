package interpreter

import (
	"math"
	"strconv"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func invalidOperands(op string, left, right *runtime.Value) error {
	if right == nil {
		return newRuntimeError("invalid '%s' operand type '%s'", op, types.BuildTypeString(&left.Shape))
	}
	return newRuntimeError("invalid '%s' operand types '%s' and '%s'", op,
		types.BuildTypeString(&left.Shape), types.BuildTypeString(&right.Shape))
}

func (i *Interpreter) binaryOp(op string, left, right *runtime.Value) (*runtime.Value, error) {
	switch op {
	case "==":
		return i.heap.NewBool(runtime.Equal(left, right)), nil
	case "!=":
		return i.heap.NewBool(!runtime.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return i.compare(op, left, right)
	case "and", "or":
		if left.Type != types.Bool || right.Type != types.Bool {
			return nil, invalidOperands(op, left, right)
		}
		if op == "and" {
			return i.heap.NewBool(left.Bool() && right.Bool()), nil
		}
		return i.heap.NewBool(left.Bool() || right.Bool()), nil
	case "+":
		if left.Type == types.String || right.Type == types.String || (left.Type == types.Char && right.Type == types.Char) {
			return i.concat(left, right)
		}
		if left.Type == types.Array && right.Type == types.Array {
			return i.concatArrays(left, right), nil
		}
		return i.arithmetic(op, left, right)
	case "-", "*", "/", "%", "//", "**":
		return i.arithmetic(op, left, right)
	case "&", "|", "^", "<<", ">>":
		return i.bitwise(op, left, right)
	default:
		return nil, newRuntimeError("unknown operator '%s'", op)
	}
}

func (i *Interpreter) compare(op string, left, right *runtime.Value) (*runtime.Value, error) {
	var cmp int
	switch {
	case left.Type == types.Int && right.Type == types.Int:
		cmp = compareOrdered(left.Int(), right.Int())
	case left.Type.IsNumeric() && right.Type.IsNumeric():
		cmp = compareOrdered(runtime.AsFloat(left), runtime.AsFloat(right))
	case left.Type.IsTextual() && right.Type.IsTextual():
		cmp = strings.Compare(runtime.AsString(left), runtime.AsString(right))
	default:
		return nil, invalidOperands(op, left, right)
	}
	var out bool
	switch op {
	case "<":
		out = cmp < 0
	case "<=":
		out = cmp <= 0
	case ">":
		out = cmp > 0
	case ">=":
		out = cmp >= 0
	}
	return i.heap.NewBool(out), nil
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (i *Interpreter) concat(left, right *runtime.Value) (*runtime.Value, error) {
	for _, v := range []*runtime.Value{left, right} {
		if v.Type == types.Array || v.Type == types.Struct {
			return nil, invalidOperands("+", left, right)
		}
	}
	return i.heap.NewString(text(left) + text(right)), nil
}

func text(v *runtime.Value) string {
	if v.Type.IsTextual() {
		return runtime.AsString(v)
	}
	return runtime.Format(v)
}

func (i *Interpreter) concatArrays(left, right *runtime.Value) *runtime.Value {
	elems := make([]*runtime.Value, 0, left.Len()+right.Len())
	for _, src := range []*runtime.Value{left, right} {
		for _, elem := range src.Elements() {
			if elem != nil && !elem.UseRef {
				elem = i.heap.Copy(elem)
			}
			elems = append(elems, elem)
		}
	}
	return i.heap.NewArrayLiteral(elems)
}

func (i *Interpreter) arithmetic(op string, left, right *runtime.Value) (*runtime.Value, error) {
	if !left.Type.IsNumeric() || !right.Type.IsNumeric() {
		return nil, invalidOperands(op, left, right)
	}
	if left.Type == types.Int && right.Type == types.Int {
		return i.intArithmetic(op, left.Int(), right.Int())
	}
	a, b := runtime.AsFloat(left), runtime.AsFloat(right)
	switch op {
	case "+":
		return i.heap.NewFloat(a + b), nil
	case "-":
		return i.heap.NewFloat(a - b), nil
	case "*":
		return i.heap.NewFloat(a * b), nil
	case "/":
		if b == 0 {
			return nil, newRuntimeError("division by zero")
		}
		return i.heap.NewFloat(a / b), nil
	case "%":
		if b == 0 {
			return nil, newRuntimeError("remainder by zero")
		}
		return i.heap.NewFloat(math.Mod(a, b)), nil
	case "//":
		if b == 0 {
			return nil, newRuntimeError("floor division by zero")
		}
		return i.heap.NewFloat(math.Floor(a / b)), nil
	case "**":
		return i.heap.NewFloat(math.Pow(a, b)), nil
	}
	return nil, newRuntimeError("unknown operator '%s'", op)
}

func (i *Interpreter) intArithmetic(op string, a, b int64) (*runtime.Value, error) {
	switch op {
	case "+":
		return i.heap.NewInt(a + b), nil
	case "-":
		return i.heap.NewInt(a - b), nil
	case "*":
		return i.heap.NewInt(a * b), nil
	case "/":
		if b == 0 {
			return nil, newRuntimeError("division by zero")
		}
		return i.heap.NewInt(a / b), nil
	case "%":
		if b == 0 {
			return nil, newRuntimeError("remainder by zero")
		}
		return i.heap.NewInt(a % b), nil
	case "//":
		if b == 0 {
			return nil, newRuntimeError("floor division by zero")
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return i.heap.NewInt(q), nil
	case "**":
		if b < 0 {
			return i.heap.NewFloat(math.Pow(float64(a), float64(b))), nil
		}
		out := int64(1)
		for base, exp := a, b; exp > 0; exp >>= 1 {
			if exp&1 == 1 {
				out *= base
			}
			base *= base
		}
		return i.heap.NewInt(out), nil
	}
	return nil, newRuntimeError("unknown operator '%s'", op)
}

func (i *Interpreter) bitwise(op string, left, right *runtime.Value) (*runtime.Value, error) {
	if left.Type != types.Int || right.Type != types.Int {
		return nil, invalidOperands(op, left, right)
	}
	a, b := left.Int(), right.Int()
	switch op {
	case "&":
		return i.heap.NewInt(a & b), nil
	case "|":
		return i.heap.NewInt(a | b), nil
	case "^":
		return i.heap.NewInt(a ^ b), nil
	case "<<", ">>":
		if b < 0 {
			return nil, newRuntimeError("negative shift count %d", b)
		}
		if op == "<<" {
			return i.heap.NewInt(a << uint64(b)), nil
		}
		return i.heap.NewInt(a >> uint64(b)), nil
	}
	return nil, newRuntimeError("unknown operator '%s'", op)
}

func (i *Interpreter) unaryOp(op string, operand *runtime.Value) (*runtime.Value, error) {
	switch op {
	case "-":
		switch operand.Type {
		case types.Int:
			return i.heap.NewInt(-operand.Int()), nil
		case types.Float:
			return i.heap.NewFloat(-operand.Float()), nil
		}
	case "+":
		if operand.Type.IsNumeric() {
			return i.heap.Copy(operand), nil
		}
	case "not", "!":
		if operand.Type == types.Bool {
			return i.heap.NewBool(!operand.Bool()), nil
		}
	case "~":
		if operand.Type == types.Int {
			return i.heap.NewInt(^operand.Int()), nil
		}
	case "ref":
		if owner, ok := operand.Owner(); ok && owner.Const {
			return nil, newRuntimeError("cannot reference constant '%s'", owner.Identifier)
		}
		operand.UseRef = true
		return operand, nil
	case "unref":
		out := i.heap.DeepCopy(operand)
		out.UseRef = false
		return out, nil
	default:
		return nil, newRuntimeError("unknown operator '%s'", op)
	}
	return nil, invalidOperands(op, operand, nil)
}

func (i *Interpreter) cast(target types.Type, v *runtime.Value) (*runtime.Value, error) {
	fail := func() (*runtime.Value, error) {
		return nil, newRuntimeError("invalid cast from '%s' to '%s'", types.BuildTypeString(&v.Shape), target)
	}
	switch target {
	case types.Any:
		return v, nil
	case types.Int:
		switch v.Type {
		case types.Int:
			return i.heap.NewInt(v.Int()), nil
		case types.Float:
			return i.heap.NewInt(int64(v.Float())), nil
		case types.Bool:
			if v.Bool() {
				return i.heap.NewInt(1), nil
			}
			return i.heap.NewInt(0), nil
		case types.Char:
			return i.heap.NewInt(int64(v.Char())), nil
		case types.String:
			n, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
			if err != nil {
				return fail()
			}
			return i.heap.NewInt(n), nil
		}
	case types.Float:
		switch v.Type {
		case types.Int, types.Float:
			return i.heap.NewFloat(runtime.AsFloat(v)), nil
		case types.Bool:
			if v.Bool() {
				return i.heap.NewFloat(1), nil
			}
			return i.heap.NewFloat(0), nil
		case types.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
			if err != nil {
				return fail()
			}
			return i.heap.NewFloat(f), nil
		}
	case types.String:
		return i.heap.NewString(text(v)), nil
	case types.Char:
		switch v.Type {
		case types.Char:
			return i.heap.NewChar(v.Char()), nil
		case types.Int:
			return i.heap.NewChar(rune(v.Int())), nil
		case types.String:
			runes := []rune(v.Str())
			if len(runes) != 1 {
				return fail()
			}
			return i.heap.NewChar(runes[0]), nil
		}
	case types.Bool:
		switch v.Type {
		case types.Bool:
			return i.heap.NewBool(v.Bool()), nil
		case types.Int:
			return i.heap.NewBool(v.Int() != 0), nil
		case types.Float:
			return i.heap.NewBool(v.Float() != 0), nil
		case types.String:
			b, err := strconv.ParseBool(strings.TrimSpace(v.Str()))
			if err != nil {
				return fail()
			}
			return i.heap.NewBool(b), nil
		}
	}
	return fail()
}
