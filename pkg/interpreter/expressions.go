package interpreter

import (
	"fmt"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// evaluateExpression evaluates expr with the configured engine and records
// the result as the current expression value.
func (i *Interpreter) evaluateExpression(expr ast.Expression) (result *runtime.Value, err error) {
	defer func() {
		err = i.attachRuntimeContext(err, expr)
		if err == nil && result != nil {
			i.current = result
		}
	}()
	if expr == nil {
		return i.heap.NewVoid(), nil
	}
	if i.engine == EngineBytecode {
		return i.vm.evaluate(expr)
	}
	return i.evaluateNode(expr)
}

// evaluateNode is the tree walker proper. Child expressions go back through
// evaluateExpression so both engines see every node.
func (i *Interpreter) evaluateNode(expr ast.Expression) (*runtime.Value, error) {
	switch n := expr.(type) {
	case *ast.BoolLiteral:
		return i.heap.NewBool(n.Value), nil
	case *ast.IntLiteral:
		return i.heap.NewInt(n.Value), nil
	case *ast.FloatLiteral:
		return i.heap.NewFloat(n.Value), nil
	case *ast.CharLiteral:
		return i.heap.NewChar(n.Value), nil
	case *ast.StringLiteral:
		return i.heap.NewString(n.Value), nil
	case *ast.NullLiteral:
		return i.heap.NewVoid(), nil
	case *ast.ArrayConstructor:
		return i.evaluateArrayConstructor(n)
	case *ast.StructConstructor:
		return i.evaluateStructConstructor(n)
	case *ast.Identifier:
		return i.evaluateIdentifier(n)
	case *ast.Binary:
		return i.evaluateBinary(n)
	case *ast.Unary:
		operand, err := i.evaluateExpression(n.Operand)
		if err != nil {
			return nil, err
		}
		return i.unaryOp(n.Operator, operand)
	case *ast.Ternary:
		ok, err := i.condition(n.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			return i.evaluateExpression(n.Then)
		}
		return i.evaluateExpression(n.Else)
	case *ast.FunctionCall:
		return i.evaluateCall(n)
	case *ast.TypeCast:
		v, err := i.evaluateExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return i.cast(n.Target, v)
	case *ast.TypeOf:
		v, err := i.evaluateExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return i.heap.NewString(types.BuildTypeString(&v.Shape)), nil
	case *ast.RefID:
		v, err := i.evaluateExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return i.heap.NewInt(int64(v.ID())), nil
	case *ast.In:
		return i.evaluateIn(n)
	default:
		return nil, newRuntimeError("unsupported expression %s", expr.NodeType())
	}
}

func (i *Interpreter) evaluateBinary(n *ast.Binary) (*runtime.Value, error) {
	left, err := i.evaluateExpression(n.Left)
	if err != nil {
		return nil, err
	}
	if n.Operator == "and" || n.Operator == "or" {
		if left.Type != types.Bool {
			return nil, invalidOperands(n.Operator, left, nil)
		}
		if (n.Operator == "and") != left.Bool() {
			return i.heap.NewBool(left.Bool()), nil
		}
		right, err := i.evaluateExpression(n.Right)
		if err != nil {
			return nil, err
		}
		if right.Type != types.Bool {
			return nil, invalidOperands(n.Operator, left, right)
		}
		return i.heap.NewBool(right.Bool()), nil
	}
	defer i.pin(left)()
	right, err := i.evaluateExpression(n.Right)
	if err != nil {
		return nil, err
	}
	return i.binaryOp(n.Operator, left, right)
}

func (i *Interpreter) evaluateArrayConstructor(n *ast.ArrayConstructor) (*runtime.Value, error) {
	elems := make([]*runtime.Value, 0, len(n.Elements))
	defer i.pinAll(&elems)()
	for _, expr := range n.Elements {
		v, err := i.evaluateExpression(expr)
		if err != nil {
			return nil, err
		}
		if v.UseRef {
			v.ResetRef()
		} else {
			v = i.heap.Copy(v)
		}
		elems = append(elems, v)
	}
	return i.heap.NewArrayLiteral(elems), nil
}

func (i *Interpreter) evaluateStructConstructor(n *ast.StructConstructor) (*runtime.Value, error) {
	def, ok := i.scopes.FindStruct(i.currentProgramName(), n.TypeNamespace, n.TypeName)
	if !ok {
		return nil, newRuntimeError("struct '%s' was not declared", n.TypeName)
	}
	// Initializers run in source order; slots are filled in definition order.
	provided := make(map[string]*runtime.Value, len(n.Fields))
	values := make([]*runtime.Value, 0, len(n.Fields))
	defer i.pinAll(&values)()
	for _, f := range n.Fields {
		if _, ok := def.Field(f.Name); !ok {
			return nil, newRuntimeError("'%s' is not a member of '%s'", f.Name, def.Identifier)
		}
		v, err := i.evaluateExpression(f.Value)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		provided[f.Name] = v
	}
	out := i.heap.NewStruct(def.Identifier, def.Namespace)
	defer i.pin(out)()
	for idx := range def.Fields {
		field := &def.Fields[idx]
		v, ok := provided[field.Identifier]
		var err error
		switch {
		case ok:
		case field.Default != nil:
			v, err = i.evaluateExpression(field.Default)
		default:
			v = i.heap.Zero(field.Shape)
		}
		if err != nil {
			return nil, err
		}
		stored, err := i.prepareStore(&field.Shape, def.Identifier+"."+field.Identifier, v)
		if err != nil {
			return nil, err
		}
		out.SetField(field.Identifier, stored)
	}
	return out, nil
}

func (i *Interpreter) evaluateIdentifier(n *ast.Identifier) (*runtime.Value, error) {
	variable, ok := i.scopes.FindVariable(i.currentProgramName(), n.Namespace, n.Name)
	if !ok {
		if len(n.Access) == 0 {
			if s := i.scopes.FindAnyFunctionScope(i.currentProgramName(), n.Namespace, n.Name); s != nil {
				def, _ := s.FindAnyFunction(n.Name)
				return i.heap.NewFunction(def.Namespace, def.Identifier), nil
			}
		}
		return nil, newRuntimeError("identifier '%s' was not declared", qualified(n))
	}
	value := variable.Value()
	if value == nil {
		value = i.heap.NewVoid()
		variable.Bind(value)
	}
	if len(n.Access) == 0 {
		return value, nil
	}
	return i.access(value, n.Name, n.Access)
}

func qualified(n *ast.Identifier) string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "::" + n.Name
}

// access walks steps from base. path names base in error messages.
func (i *Interpreter) access(base *runtime.Value, path string, steps []*ast.AccessStep) (*runtime.Value, error) {
	defer i.pin(base)()
	current := base
	for _, step := range steps {
		next, nextPath, err := i.accessStep(current, path, step)
		if err != nil {
			return nil, err
		}
		current, path = next, nextPath
	}
	return current, nil
}

func (i *Interpreter) accessStep(base *runtime.Value, path string, step *ast.AccessStep) (*runtime.Value, string, error) {
	if !step.IsIndex() {
		return i.accessField(base, path, step.Field)
	}
	idx, err := i.index(step)
	if err != nil {
		return nil, path, err
	}
	return i.accessIndex(base, path, idx)
}

func (i *Interpreter) accessField(base *runtime.Value, path, field string) (*runtime.Value, string, error) {
	next := path + "." + field
	if base.IsVoidOrUndefined() {
		return nil, next, newRuntimeError("cannot reach '%s', previous '%s' is null", next, path)
	}
	if base.Type != types.Struct {
		return nil, next, newRuntimeError("'%s' is not a struct", path)
	}
	value, ok := base.Field(field)
	if !ok {
		return nil, next, newRuntimeError("'%s' is not a member of '%s'", field, types.BuildTypeString(&base.Shape))
	}
	return value, next, nil
}

func (i *Interpreter) accessIndex(base *runtime.Value, path string, idx int) (*runtime.Value, string, error) {
	next := fmt.Sprintf("%s[%d]", path, idx)
	switch base.Type {
	case types.Array:
		elem, ok := base.Element(idx)
		if !ok {
			return nil, next, newRuntimeError("invalid array access position %d", idx)
		}
		if elem == nil {
			elem = i.heap.NewVoid()
			base.SetElement(idx, elem)
		}
		return elem, next, nil
	case types.String:
		runes := []rune(base.Str())
		if idx < 0 || idx >= len(runes) {
			return nil, next, newRuntimeError("invalid string access position %d", idx)
		}
		return i.heap.NewChar(runes[idx]), next, nil
	case types.Void, types.Undefined:
		return nil, next, newRuntimeError("cannot reach '%s', previous '%s' is null", next, path)
	default:
		return nil, next, newRuntimeError("'%s' is not an array", path)
	}
}

func (i *Interpreter) index(step *ast.AccessStep) (int, error) {
	v, err := i.evaluateExpression(step.Index)
	if err != nil {
		return 0, err
	}
	if v.Type != types.Int {
		return 0, newRuntimeError("array index must be int, got '%s'", types.BuildTypeString(&v.Shape))
	}
	return int(v.Int()), nil
}

func (i *Interpreter) evaluateIn(n *ast.In) (*runtime.Value, error) {
	value, err := i.evaluateExpression(n.Value)
	if err != nil {
		return nil, err
	}
	defer i.pin(value)()
	collection, err := i.evaluateExpression(n.Collection)
	if err != nil {
		return nil, err
	}
	switch collection.Type {
	case types.Array:
		for _, elem := range collection.Elements() {
			if runtime.Equal(value, elem) {
				return i.heap.NewBool(true), nil
			}
		}
		return i.heap.NewBool(false), nil
	case types.String:
		if !value.Type.IsTextual() {
			return nil, invalidOperands("in", value, collection)
		}
		return i.heap.NewBool(strings.Contains(collection.Str(), runtime.AsString(value))), nil
	case types.Struct:
		if !value.Type.IsTextual() {
			return nil, invalidOperands("in", value, collection)
		}
		_, ok := collection.Field(runtime.AsString(value))
		return i.heap.NewBool(ok), nil
	default:
		return nil, invalidOperands("in", value, collection)
	}
}

// Assignment

// location is an assignment target with every index expression already
// evaluated. A nil parent means the target is the variable itself.
type location struct {
	variable *runtime.Variable
	parent   *runtime.Value
	path     string
	field    string
	index    int
	isIndex  bool
}

func (i *Interpreter) executeAssignment(n *ast.Assignment) error {
	loc, err := i.resolveLocation(n.Target)
	if err != nil {
		return err
	}
	defer i.pin(loc.parent)()
	value, err := i.evaluateExpression(n.Value)
	if err != nil {
		return err
	}
	defer i.pin(value)()
	if op := strings.TrimSuffix(n.Operator, "="); op != "" {
		current, err := i.load(loc)
		if err != nil {
			return err
		}
		if value, err = i.binaryOp(op, current, value); err != nil {
			return err
		}
		defer i.pin(value)()
	}
	return i.store(loc, value)
}

// assignTo stores value into the variable or access path target names.
func (i *Interpreter) assignTo(target *ast.Identifier, value *runtime.Value) error {
	loc, err := i.resolveLocation(target)
	if err != nil {
		return err
	}
	defer i.pin(loc.parent)()
	return i.store(loc, value)
}

// resolveLocation walks target up to its last step, evaluating each index
// once, left to right.
func (i *Interpreter) resolveLocation(target *ast.Identifier) (*location, error) {
	variable, ok := i.scopes.FindVariable(i.currentProgramName(), target.Namespace, target.Name)
	if !ok {
		return nil, newRuntimeError("identifier '%s' was not declared", qualified(target))
	}
	if variable.Const {
		return nil, newRuntimeError("cannot assign to constant '%s'", target.Name)
	}
	loc := &location{variable: variable, path: target.Name}
	if len(target.Access) == 0 {
		return loc, nil
	}
	current := variable.Value()
	if current == nil {
		current = i.heap.NewVoid()
		variable.Bind(current)
	}
	defer i.pin(current)()
	steps := target.Access
	for _, step := range steps[:len(steps)-1] {
		next, nextPath, err := i.accessStep(current, loc.path, step)
		if err != nil {
			return nil, err
		}
		current, loc.path = next, nextPath
	}
	loc.parent = current
	last := steps[len(steps)-1]
	if !last.IsIndex() {
		loc.field = last.Field
		return loc, nil
	}
	idx, err := i.index(last)
	if err != nil {
		return nil, err
	}
	loc.index, loc.isIndex = idx, true
	return loc, nil
}

// load reads the current value at loc.
func (i *Interpreter) load(loc *location) (*runtime.Value, error) {
	if loc.parent == nil {
		value := loc.variable.Value()
		if value == nil {
			value = i.heap.NewVoid()
			loc.variable.Bind(value)
		}
		return value, nil
	}
	var value *runtime.Value
	var err error
	if loc.isIndex {
		value, _, err = i.accessIndex(loc.parent, loc.path, loc.index)
	} else {
		value, _, err = i.accessField(loc.parent, loc.path, loc.field)
	}
	return value, err
}

func (i *Interpreter) store(loc *location, value *runtime.Value) error {
	switch {
	case loc.parent == nil:
		return i.assignVariable(loc.variable, value)
	case loc.isIndex:
		return i.assignIndex(loc.parent, loc.path, loc.index, value)
	default:
		return i.assignField(loc.parent, loc.path, loc.field, value)
	}
}

func (i *Interpreter) assignVariable(variable *runtime.Variable, value *runtime.Value) error {
	if value.UseRef {
		if _, err := aliasValue(&variable.Shape, variable.Identifier, value); err != nil {
			return err
		}
		variable.Bind(value)
		return nil
	}
	out := i.heap.Copy(value)
	if !types.AcceptsValue(&variable.Shape, &out.Shape) {
		return mismatch(variable.Identifier, &variable.Shape, out)
	}
	runtime.Normalize(&variable.Shape, out)
	if existing := variable.Value(); existing != nil {
		existing.Overwrite(out)
		return nil
	}
	variable.Bind(out)
	return nil
}

// prepareStore returns what a slot of shape slot holds after storing value:
// value itself when it is a reference, otherwise a checked, widened copy.
func (i *Interpreter) prepareStore(slot *types.Shape, name string, value *runtime.Value) (*runtime.Value, error) {
	if value.UseRef {
		return aliasValue(slot, name, value)
	}
	out := i.heap.Copy(value)
	if !types.AcceptsValue(slot, &out.Shape) {
		return nil, mismatch(name, slot, out)
	}
	runtime.Normalize(slot, out)
	return out, nil
}

func (i *Interpreter) assignField(parent *runtime.Value, path, field string, value *runtime.Value) error {
	next := path + "." + field
	if parent.IsVoidOrUndefined() {
		return newRuntimeError("cannot reach '%s', previous '%s' is null", next, path)
	}
	if parent.Type != types.Struct {
		return newRuntimeError("'%s' is not a struct", path)
	}
	def, ok := i.scopes.FindStruct(i.currentProgramName(), parent.TypeNamespace, parent.TypeName)
	if !ok {
		return newRuntimeError("struct '%s' was not declared", parent.TypeName)
	}
	fieldDef, ok := def.Field(field)
	if !ok {
		return newRuntimeError("'%s' is not a member of '%s'", field, def.Identifier)
	}
	stored, err := i.prepareStore(&fieldDef.Shape, next, value)
	if err != nil {
		return err
	}
	if existing, ok := parent.Field(field); ok && existing != nil && stored != value {
		existing.Overwrite(stored)
		return nil
	}
	parent.SetField(field, stored)
	return nil
}

func (i *Interpreter) assignIndex(parent *runtime.Value, path string, idx int, value *runtime.Value) error {
	next := fmt.Sprintf("%s[%d]", path, idx)
	switch parent.Type {
	case types.Array:
		existing, ok := parent.Element(idx)
		if !ok {
			return newRuntimeError("invalid array access position %d", idx)
		}
		elemShape := parent.ElementShape()
		stored, err := i.prepareStore(&elemShape, next, value)
		if err != nil {
			return err
		}
		if existing != nil && stored != value {
			existing.Overwrite(stored)
			return nil
		}
		parent.SetElement(idx, stored)
		return nil
	case types.String:
		runes := []rune(parent.Str())
		if idx < 0 || idx >= len(runes) {
			return newRuntimeError("invalid string access position %d", idx)
		}
		var r rune
		switch {
		case value.Type == types.Char:
			r = value.Char()
		case value.Type == types.String && len([]rune(value.Str())) == 1:
			r = []rune(value.Str())[0]
		default:
			return newRuntimeError("invalid type '%s' trying to assign '%s' of type 'char'", types.BuildTypeString(&value.Shape), next)
		}
		runes[idx] = r
		parent.SetString(string(runes))
		return nil
	case types.Void, types.Undefined:
		return newRuntimeError("cannot reach '%s', previous '%s' is null", next, path)
	default:
		return newRuntimeError("'%s' is not an array", path)
	}
}
