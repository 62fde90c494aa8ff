package analyzer

import (
	"strconv"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func (a *Analyzer) expr(expr ast.Expression) *SemanticValue {
	switch n := expr.(type) {
	case nil:
		return newSemanticValue(types.NewShape(types.Void))
	case *ast.BoolLiteral:
		return constValue(types.Bool, strconv.FormatBool(n.Value))
	case *ast.IntLiteral:
		return constValue(types.Int, strconv.FormatInt(n.Value, 10))
	case *ast.FloatLiteral:
		return constValue(types.Float, floatRepr(n.Value))
	case *ast.CharLiteral:
		return constValue(types.Char, string(n.Value))
	case *ast.StringLiteral:
		return constValue(types.String, n.Value)
	case *ast.NullLiteral:
		return newSemanticValue(types.NewShape(types.Void))
	case *ast.ArrayConstructor:
		shapes := make([]*types.Shape, len(n.Elements))
		for idx, elem := range n.Elements {
			shapes[idx] = &a.expr(elem).Shape
		}
		return newSemanticValue(types.ComposeArrayShape(shapes))
	case *ast.StructConstructor:
		return a.structConstructor(n)
	case *ast.Identifier:
		return a.identifier(n)
	case *ast.Binary:
		return a.binary(n)
	case *ast.Unary:
		return a.unary(n)
	case *ast.Ternary:
		a.condition(n.Condition)
		then, other := a.expr(n.Then), a.expr(n.Else)
		if types.Match(&then.Shape, &other.Shape, true, true) {
			return newSemanticValue(then.Shape)
		}
		return anyValue()
	case *ast.FunctionCall:
		return a.call(n)
	case *ast.TypeCast:
		v := a.expr(n.Value)
		if v.IsArray() || v.IsStruct() {
			if n.Target != types.String && n.Target != types.Any {
				a.report(n, "invalid cast from '%s' to '%s'", v.Describe(), n.Target)
			}
		}
		return newSemanticValue(types.NewShape(n.Target))
	case *ast.TypeOf:
		a.expr(n.Value)
		return newSemanticValue(types.NewShape(types.String))
	case *ast.RefID:
		a.expr(n.Value)
		return newSemanticValue(types.NewShape(types.Int))
	case *ast.In:
		value, collection := a.expr(n.Value), a.expr(n.Collection)
		switch collection.Type {
		case types.Array, types.Struct, types.Any:
		case types.String:
			if !value.IsAny() && !value.Type.IsTextual() {
				a.report(n, "invalid 'in' operand types '%s' and '%s'", value.Describe(), collection.Describe())
			}
		default:
			a.report(n, "invalid 'in' operand types '%s' and '%s'", value.Describe(), collection.Describe())
		}
		return newSemanticValue(types.NewShape(types.Bool))
	default:
		a.report(expr, "unsupported expression %T", expr)
		return anyValue()
	}
}

func (a *Analyzer) structConstructor(n *ast.StructConstructor) *SemanticValue {
	def, ok := a.scopes.FindStruct(a.currentProgramName(), n.TypeNamespace, n.TypeName)
	if !ok {
		a.report(n, "struct '%s' was not declared", n.TypeName)
		for _, f := range n.Fields {
			a.expr(f.Value)
		}
		return anyValue()
	}
	shape := types.StructShape(def.Identifier, def.Namespace)
	for _, f := range n.Fields {
		v := a.expr(f.Value)
		field, ok := def.Field(f.Name)
		if !ok {
			a.report(n, "'%s' is not a member of '%s'", f.Name, types.BuildTypeString(&shape))
			continue
		}
		fieldShape := a.qualify(field.Shape)
		if !accepts(&fieldShape, v) {
			a.report(n, "invalid type '%s' trying to assign '%s.%s' of type '%s'",
				v.Describe(), def.Identifier, f.Name, types.BuildTypeString(&fieldShape))
		}
	}
	return newSemanticValue(shape)
}

// qualify fills the namespace of a struct-typed field shape declared
// without one.
func (a *Analyzer) qualify(shape types.Shape) types.Shape {
	if shape.TypeName == "" || shape.TypeNamespace != "" {
		return shape
	}
	if def, ok := a.scopes.FindStruct(a.currentProgramName(), "", shape.TypeName); ok {
		shape.TypeNamespace = def.Namespace
	}
	return shape
}

func qualified(n *ast.Identifier) string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "::" + n.Name
}

func (a *Analyzer) lookup(n *ast.Identifier) (*SemanticVariable, bool) {
	return a.scopes.FindVariable(a.currentProgramName(), n.Namespace, n.Name)
}

func (a *Analyzer) identifier(n *ast.Identifier) *SemanticValue {
	variable, ok := a.lookup(n)
	if !ok {
		if len(n.Access) == 0 && a.scopes.FindAnyFunctionScope(a.currentProgramName(), n.Namespace, n.Name) != nil {
			return newSemanticValue(types.NewShape(types.Function))
		}
		a.report(n, "identifier '%s' was not declared", qualified(n))
		return anyValue()
	}
	base := newSemanticValue(variable.effective())
	base.IsConst = variable.IsConst && variable.Value != nil && variable.Value.IsConst
	if base.IsConst {
		base.Hash = variable.Value.Hash
	}
	if len(n.Access) == 0 {
		return base
	}
	return a.access(n, base, qualified(n), n.Access)
}

// access follows steps statically. Steps below an any value are unknown.
func (a *Analyzer) access(node ast.Node, base *SemanticValue, path string, steps []*ast.AccessStep) *SemanticValue {
	current := base.Shape
	for _, step := range steps {
		if current.Type == types.Any {
			if step.IsIndex() {
				a.index(step)
			}
			return &SemanticValue{Shape: types.NewShape(types.Any), IsSub: true}
		}
		if !step.IsIndex() {
			next := path + "." + step.Field
			if current.Type != types.Struct {
				a.report(node, "'%s' is not a struct", path)
				return anyValue()
			}
			def, ok := a.scopes.FindStruct(a.currentProgramName(), current.TypeNamespace, current.TypeName)
			if !ok {
				return &SemanticValue{Shape: types.NewShape(types.Any), IsSub: true}
			}
			field, ok := def.Field(step.Field)
			if !ok {
				a.report(node, "'%s' is not a member of '%s'", step.Field, types.BuildTypeString(&current))
				return anyValue()
			}
			current, path = a.qualify(field.Shape.Clone()), next
			continue
		}
		a.index(step)
		switch current.Type {
		case types.Array:
			current = current.ElementShape()
		case types.String:
			current = types.NewShape(types.Char)
		default:
			a.report(node, "'%s' is not an array", path)
			return anyValue()
		}
		path += "[]"
	}
	return &SemanticValue{Shape: current, IsSub: true}
}

func (a *Analyzer) index(step *ast.AccessStep) {
	if v := a.expr(step.Index); !v.IsAny() && !v.IsInt() {
		a.report(step.Index, "array index must be int, got '%s'", v.Describe())
	}
}

func (a *Analyzer) invalidOperands(node ast.Node, op string, left, right *SemanticValue) *SemanticValue {
	if right == nil {
		a.report(node, "invalid '%s' operand type '%s'", op, left.Describe())
	} else {
		a.report(node, "invalid '%s' operand types '%s' and '%s'", op, left.Describe(), right.Describe())
	}
	return anyValue()
}

func (a *Analyzer) binary(n *ast.Binary) *SemanticValue {
	left, right := a.expr(n.Left), a.expr(n.Right)
	return a.binaryShape(n, n.Operator, left, right)
}

func (a *Analyzer) binaryShape(node ast.Node, op string, left, right *SemanticValue) *SemanticValue {
	boolean := newSemanticValue(types.NewShape(types.Bool))
	unknown := left.IsAny() || right.IsAny()
	switch op {
	case "==", "!=":
		return boolean
	case "<", "<=", ">", ">=":
		if unknown || (left.Type.IsNumeric() && right.Type.IsNumeric()) || (left.Type.IsTextual() && right.Type.IsTextual()) {
			return boolean
		}
		return a.invalidOperands(node, op, left, right)
	case "and", "or":
		if (left.IsAny() || left.IsBool()) && (right.IsAny() || right.IsBool()) {
			return boolean
		}
		return a.invalidOperands(node, op, left, right)
	case "+":
		if left.IsString() || right.IsString() || (left.IsChar() && right.IsChar()) {
			if left.IsArray() || left.IsStruct() || right.IsArray() || right.IsStruct() {
				return a.invalidOperands(node, op, left, right)
			}
			return newSemanticValue(types.NewShape(types.String))
		}
		if left.IsArray() && right.IsArray() {
			return newSemanticValue(types.ArrayShape(types.Any))
		}
		return a.arithmetic(node, op, left, right)
	case "-", "*", "/", "%", "//", "**":
		return a.arithmetic(node, op, left, right)
	case "&", "|", "^", "<<", ">>":
		if unknown {
			return anyValue()
		}
		if left.IsInt() && right.IsInt() {
			return newSemanticValue(types.NewShape(types.Int))
		}
		return a.invalidOperands(node, op, left, right)
	default:
		a.report(node, "unknown operator '%s'", op)
		return anyValue()
	}
}

func (a *Analyzer) arithmetic(node ast.Node, op string, left, right *SemanticValue) *SemanticValue {
	if left.IsAny() || right.IsAny() {
		return anyValue()
	}
	if !left.Type.IsNumeric() || !right.Type.IsNumeric() {
		return a.invalidOperands(node, op, left, right)
	}
	if left.IsInt() && right.IsInt() {
		if op == "**" {
			// Negative exponents produce floats.
			return anyValue()
		}
		return newSemanticValue(types.NewShape(types.Int))
	}
	return newSemanticValue(types.NewShape(types.Float))
}

func (a *Analyzer) unary(n *ast.Unary) *SemanticValue {
	operand := a.expr(n.Operand)
	if operand.IsAny() {
		return anyValue()
	}
	switch n.Operator {
	case "-", "+":
		if operand.Type.IsNumeric() {
			return newSemanticValue(operand.Shape)
		}
	case "not", "!":
		if operand.IsBool() {
			return newSemanticValue(operand.Shape)
		}
	case "~":
		if operand.IsInt() {
			return newSemanticValue(operand.Shape)
		}
	case "ref", "unref":
		out := newSemanticValue(operand.Shape.Clone())
		out.UseRef = n.Operator == "ref"
		return out
	default:
		a.report(n, "unknown operator '%s'", n.Operator)
		return anyValue()
	}
	return a.invalidOperands(n, n.Operator, operand, nil)
}

func (a *Analyzer) call(n *ast.FunctionCall) *SemanticValue {
	id, plain := n.Callee.(*ast.Identifier)
	plain = plain && len(id.Access) == 0
	if !plain {
		callee := a.expr(n.Callee)
		if !callee.IsAny() && !callee.IsFunction() {
			a.report(n, "'%s' value is not callable", callee.Describe())
		}
	}
	args := make([]*types.Shape, len(n.Args))
	for idx, arg := range n.Args {
		args[idx] = &a.expr(arg).Shape
	}
	result := anyValue()
	if plain {
		result = a.resolveCall(n, id, args)
	}
	if len(n.Access) == 0 {
		return result
	}
	name := "call"
	if plain {
		name = id.Name
	}
	return a.access(n, result, name+"()", n.Access)
}

// resolveCall mirrors run-time dispatch: overloads in scope first, then a
// variable holding a function value, which is only known dynamically.
func (a *Analyzer) resolveCall(n *ast.FunctionCall, id *ast.Identifier, args []*types.Shape) *SemanticValue {
	program := a.currentProgramName()
	if def, _, ok := a.scopes.ResolveFunction(program, id.Namespace, id.Name, args); ok {
		if def.Type == types.Any {
			return anyValue()
		}
		return newSemanticValue(def.Shape.Clone())
	}
	if variable, ok := a.lookup(id); ok && (variable.IsFunction() || variable.IsAny()) {
		return anyValue()
	}
	if s := a.scopes.FindAnyFunctionScope(program, id.Namespace, id.Name); s != nil {
		a.report(n, "no overload of '%s' accepts %s", qualified(id), scope.Signature("", args))
		return anyValue()
	}
	a.report(n, "function '%s' was never declared", scope.Signature(qualified(id), args))
	return anyValue()
}

func (a *Analyzer) assignment(n *ast.Assignment) {
	value := a.expr(n.Value)
	if _, declared := a.lookup(n.Target); declared && n.Operator != "" && n.Operator != "=" {
		current := a.identifier(n.Target)
		value = a.binaryShape(n, strings.TrimSuffix(n.Operator, "="), current, value)
	}
	a.assignTarget(n.Target, value)
}

// assignTarget checks a store of value into target: constness first, then
// the slot's declared shape.
func (a *Analyzer) assignTarget(target *ast.Identifier, value *SemanticValue) {
	variable, ok := a.lookup(target)
	if !ok {
		a.report(target, "identifier '%s' was not declared", qualified(target))
		return
	}
	if variable.IsConst {
		a.report(target, "cannot assign to constant '%s'", qualified(target))
		return
	}
	if len(target.Access) == 0 {
		if !accepts(&variable.Shape, value) {
			a.report(target, "invalid type '%s' trying to assign '%s' of type '%s'",
				value.Describe(), qualified(target), types.BuildTypeString(&variable.Shape))
		}
		if variable.Type == types.Any {
			variable.Value = value
		}
		return
	}
	slot := a.access(target, newSemanticValue(variable.effective()), qualified(target), target.Access)
	if slot.IsChar() && value.IsString() {
		return
	}
	if !accepts(&slot.Shape, value) {
		a.report(target, "invalid type '%s' trying to assign '%s' of type '%s'",
			value.Describe(), targetPath(target), slot.Describe())
	}
}

// targetPath renders an assignment target with its access chain; index
// steps render as [].
func targetPath(target *ast.Identifier) string {
	var b strings.Builder
	b.WriteString(qualified(target))
	for _, step := range target.Access {
		if step.IsIndex() {
			b.WriteString("[]")
			continue
		}
		b.WriteString(".")
		b.WriteString(step.Field)
	}
	return b.String()
}
