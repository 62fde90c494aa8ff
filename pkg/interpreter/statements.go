package interpreter

import (
	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func (i *Interpreter) executeStatements(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := i.executeStatement(stmt); err != nil {
			return err
		}
		if !i.control.running() {
			return nil
		}
	}
	return nil
}

func (i *Interpreter) executeStatement(stmt ast.Statement) (err error) {
	defer func() {
		err = i.attachRuntimeContext(err, stmt)
	}()
	switch n := stmt.(type) {
	case nil:
		return nil
	case *ast.Using:
		return i.useLibrary(n.Library)
	case *ast.IncludeNamespace:
		i.scopes.IncludeNamespace(i.currentProgramName(), n.Namespace)
		return nil
	case *ast.ExcludeNamespace:
		i.scopes.ExcludeNamespace(i.currentProgramName(), n.Namespace)
		return nil
	case *ast.Declaration:
		return i.executeDeclaration(n)
	case *ast.UnpackedDeclaration:
		return i.executeUnpackedDeclaration(n)
	case *ast.Assignment:
		return i.executeAssignment(n)
	case *ast.FunctionDefinition:
		return i.defineFunction(n)
	case *ast.StructDefinition:
		return i.defineStruct(n)
	case *ast.Block:
		return i.withScope("block", func(*scope.Scope[*runtime.Variable]) error {
			return i.executeStatements(n.Statements)
		})
	case *ast.If:
		return i.executeIf(n)
	case *ast.While:
		return i.executeWhile(n)
	case *ast.DoWhile:
		return i.executeDoWhile(n)
	case *ast.For:
		return i.executeFor(n)
	case *ast.ForEach:
		return i.executeForEach(n)
	case *ast.Switch:
		return i.executeSwitch(n)
	case *ast.TryCatch:
		return i.executeTryCatch(n)
	case *ast.Throw:
		return i.executeThrow(n)
	case *ast.Return:
		return i.executeReturn(n)
	case *ast.Break:
		if i.loopDepth == 0 && i.switchDepth == 0 {
			return newRuntimeError("break must be inside a loop or switch")
		}
		i.control.requestBreak()
		return nil
	case *ast.Continue:
		if i.loopDepth == 0 {
			return newRuntimeError("continue must be inside a loop")
		}
		i.control.requestContinue()
		return nil
	case *ast.Exit:
		return i.executeExit(n)
	case ast.Expression:
		_, err := i.evaluateExpression(n)
		return err
	default:
		return newRuntimeError("unsupported statement %s", stmt.NodeType())
	}
}

// Libraries

func (i *Interpreter) useLibrary(name string) error {
	if i.loaded[name] {
		return nil
	}
	var prog *ast.Program
	if module, ok := i.registry.Lookup(name); ok {
		prog = &ast.Program{Name: module.Name, Namespace: types.DefaultNamespace, Statements: module.Declarations}
		for id, native := range module.Natives {
			i.natives[id] = native
		}
	} else if lib, ok := i.libs[name]; ok {
		prog = lib
	} else {
		return newRuntimeError("library '%s' not found", name)
	}
	i.loaded[name] = true
	i.logger.Debug("library loaded", "name", name, "namespace", prog.EffectiveNamespace())
	i.registerProgram(prog)
	i.pushProgram(prog)
	defer i.popProgram()
	for _, dep := range prog.Libs {
		if err := i.useLibrary(dep); err != nil {
			return err
		}
	}
	if err := i.executeStatements(prog.Statements); err != nil {
		return err
	}
	if i.control.kind != controlExit {
		i.control.reset()
	}
	return nil
}

// Declarations

func (i *Interpreter) executeDeclaration(n *ast.Declaration) error {
	s := i.currentScope()
	if s.AlreadyDeclaredVariable(n.Identifier) {
		return newRuntimeError("variable '%s' already declared", n.Identifier)
	}
	shape, err := i.resolveShape(n.TypeSpec)
	if err != nil {
		return err
	}
	if n.Value == nil {
		// Unset until first assignment. The declared shape stays on the
		// variable, so that assignment is still checked.
		i.registerVariable(s, n.Identifier, shape, i.heap.NewUndefined(), n.Const)
		return nil
	}
	value, err := i.evaluateExpression(n.Value)
	if err != nil {
		return err
	}
	return i.declareVariable(s, n.Identifier, shape, value, n.Const)
}

func (i *Interpreter) declareVariable(s *scope.Scope[*runtime.Variable], name string, shape types.Shape, value *runtime.Value, isConst bool) error {
	bound, err := i.bindValue(&shape, name, value)
	if err != nil {
		return err
	}
	i.registerVariable(s, name, shape, bound, isConst)
	return nil
}

func (i *Interpreter) registerVariable(s *scope.Scope[*runtime.Variable], name string, shape types.Shape, bound *runtime.Value, isConst bool) {
	variable := runtime.NewVariable(name, shape)
	variable.Const = isConst
	variable.Bind(bound)
	i.heap.GC().AddVarRoot(variable.Handle())
	s.DeclareVariable(name, variable)
}

// bindValue prepares value for a slot of shape slot. References are aliased
// after the reference checks; everything else is copied, auto-sized,
// type-checked and widened.
func (i *Interpreter) bindValue(slot *types.Shape, name string, value *runtime.Value) (*runtime.Value, error) {
	if value == nil {
		value = i.heap.NewVoid()
	}
	if value.UseRef {
		return aliasValue(slot, name, value)
	}
	out := i.heap.Copy(value)
	if slot.Type == types.Array && len(slot.Dim) > 0 && slot.Dim[0] > 0 && out.Type == types.Array && out.Len() <= 1 {
		out = i.autoSize(slot, out)
	}
	if !types.AcceptsValue(slot, &out.Shape) {
		return nil, mismatch(name, slot, out)
	}
	runtime.Normalize(slot, out)
	return out, nil
}

// autoSize expands an initializer of at most one element to the slot's
// fixed size, repeating the element when there is one.
func (i *Interpreter) autoSize(slot *types.Shape, value *runtime.Value) *runtime.Value {
	built := i.heap.BuildArray(*slot)
	if value.Len() == 1 {
		fill := value.Elements()[0]
		for idx := 0; idx < built.Len(); idx++ {
			built.SetElement(idx, i.heap.Copy(fill))
		}
		if fill.Type != types.Array && slot.ArrayType == types.Any {
			built.ArrayType = fill.Type
		}
	}
	return built
}

// aliasValue checks that a slot of shape slot may share value. The ref marker
// is reset to the kind's default once consumed, so later plain reads of the
// same value copy again.
func aliasValue(slot *types.Shape, name string, value *runtime.Value) (*runtime.Value, error) {
	value.ResetRef()
	if err := checkReference(slot, name, value); err != nil {
		return nil, err
	}
	if !types.AcceptsValue(slot, &value.Shape) {
		return nil, mismatch(name, slot, value)
	}
	return value, nil
}

func checkReference(slot *types.Shape, name string, value *runtime.Value) error {
	switch {
	case slot.Type == types.Float && value.Type == types.Int:
		return newRuntimeError("cannot reference int value from float variable '%s'", name)
	case slot.Type == types.String && value.Type == types.Char:
		return newRuntimeError("cannot reference char value from string variable '%s'", name)
	}
	return nil
}

func mismatch(name string, slot *types.Shape, value *runtime.Value) error {
	return newRuntimeError("invalid type '%s' trying to assign '%s' of type '%s'",
		types.BuildTypeString(&value.Shape), name, types.BuildTypeString(slot))
}

// resolveShape evaluates dimension expressions and qualifies struct names
// with the namespace that declares them.
func (i *Interpreter) resolveShape(spec *ast.TypeSpec) (types.Shape, error) {
	shape := spec.Shape()
	if spec == nil {
		return shape, nil
	}
	for idx, dim := range spec.Dim {
		if dim == nil {
			continue
		}
		v, err := i.evaluateExpression(dim)
		if err != nil {
			return shape, err
		}
		if v.Type != types.Int {
			return shape, newRuntimeError("array size must be int, got '%s'", types.BuildTypeString(&v.Shape))
		}
		if v.Int() < 0 {
			return shape, newRuntimeError("invalid array size %d", v.Int())
		}
		shape.Dim[idx] = int(v.Int())
	}
	if shape.TypeName != "" && (shape.Type == types.Struct || shape.ArrayType == types.Struct) {
		def, ok := i.scopes.FindStruct(i.currentProgramName(), shape.TypeNamespace, shape.TypeName)
		if !ok {
			return shape, newRuntimeError("struct '%s' was not declared", shape.TypeName)
		}
		shape.TypeNamespace = def.Namespace
	}
	return shape, nil
}

func (i *Interpreter) executeUnpackedDeclaration(n *ast.UnpackedDeclaration) error {
	if n.Value == nil {
		return newRuntimeError("unpacked declaration needs a value")
	}
	value, err := i.evaluateExpression(n.Value)
	if err != nil {
		return err
	}
	defer i.pin(value)()
	return i.unpack(i.currentScope(), n, value)
}

// unpack binds decls by position from an array or by field name from a
// struct.
func (i *Interpreter) unpack(s *scope.Scope[*runtime.Variable], n *ast.UnpackedDeclaration, value *runtime.Value) error {
	for idx, decl := range n.Declarations {
		if s.AlreadyDeclaredVariable(decl.Identifier) {
			return newRuntimeError("variable '%s' already declared", decl.Identifier)
		}
		spec := decl.TypeSpec
		if spec == nil {
			spec = n.TypeSpec
		}
		shape, err := i.resolveShape(spec)
		if err != nil {
			return err
		}
		var part *runtime.Value
		switch value.Type {
		case types.Array:
			elem, ok := value.Element(idx)
			if !ok {
				return newRuntimeError("cannot unpack %d values from an array of %d", len(n.Declarations), value.Len())
			}
			part = elem
		case types.Struct:
			field, ok := value.Field(decl.Identifier)
			if !ok {
				return newRuntimeError("'%s' is not a member of '%s'", decl.Identifier, types.BuildTypeString(&value.Shape))
			}
			part = field
		default:
			return newRuntimeError("cannot unpack a '%s' value", types.BuildTypeString(&value.Shape))
		}
		if err := i.declareVariable(s, decl.Identifier, shape, part, decl.Const); err != nil {
			return err
		}
	}
	return nil
}

// Definitions

func (i *Interpreter) defineFunction(n *ast.FunctionDefinition) error {
	s := i.currentScope()
	def := scope.NewFunctionDefinition(i.currentNamespace(), n)
	def.Program = i.currentProgramName()
	if s.AlreadyDeclaredFunction(n.Identifier, def.ParamShapes(), true) {
		return newRuntimeError("function '%s' already declared", def)
	}
	s.DeclareFunction(n.Identifier, def)
	return nil
}

func (i *Interpreter) defineStruct(n *ast.StructDefinition) error {
	s := i.currentScope()
	if s.AlreadyDeclaredStructureDefinition(n.Identifier) {
		return newRuntimeError("struct '%s' already declared", n.Identifier)
	}
	s.DeclareStructureDefinition(scope.NewStructDefinition(i.currentNamespace(), n))
	return nil
}

// Control flow

func (i *Interpreter) condition(expr ast.Expression) (bool, error) {
	v, err := i.evaluateExpression(expr)
	if err != nil {
		return false, err
	}
	if v.Type != types.Bool {
		return false, newRuntimeError("condition must be bool, got '%s'", types.BuildTypeString(&v.Shape))
	}
	return v.Bool(), nil
}

func (i *Interpreter) executeBlock(name string, block *ast.Block) error {
	if block == nil {
		return nil
	}
	return i.withScope(name, func(*scope.Scope[*runtime.Variable]) error {
		return i.executeStatements(block.Statements)
	})
}

func (i *Interpreter) executeIf(n *ast.If) error {
	ok, err := i.condition(n.Condition)
	if err != nil {
		return err
	}
	if ok {
		return i.executeBlock("if", n.Then)
	}
	for _, arm := range n.ElseIfs {
		ok, err := i.condition(arm.Condition)
		if err != nil {
			return err
		}
		if ok {
			return i.executeBlock("elif", arm.Body)
		}
	}
	return i.executeBlock("else", n.Else)
}

// loopStep consumes a break or continue after one iteration and reports
// whether the loop should go on.
func (i *Interpreter) loopStep() bool {
	switch i.control.kind {
	case controlBreak:
		i.control.reset()
		return false
	case controlContinue:
		i.control.reset()
		return true
	case controlRunning:
		return true
	default:
		return false
	}
}

func (i *Interpreter) executeWhile(n *ast.While) error {
	i.loopDepth++
	defer func() { i.loopDepth-- }()
	for {
		ok, err := i.condition(n.Condition)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := i.executeBlock("while", n.Body); err != nil {
			return err
		}
		if !i.loopStep() {
			return nil
		}
	}
}

func (i *Interpreter) executeDoWhile(n *ast.DoWhile) error {
	i.loopDepth++
	defer func() { i.loopDepth-- }()
	for {
		if err := i.executeBlock("do", n.Body); err != nil {
			return err
		}
		if !i.loopStep() {
			return nil
		}
		ok, err := i.condition(n.Condition)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func (i *Interpreter) executeFor(n *ast.For) error {
	return i.withScope("for", func(*scope.Scope[*runtime.Variable]) error {
		for _, init := range n.Init {
			if err := i.executeStatement(init); err != nil {
				return err
			}
		}
		i.loopDepth++
		defer func() { i.loopDepth-- }()
		for {
			if n.Condition != nil {
				ok, err := i.condition(n.Condition)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			if err := i.executeBlock("for-body", n.Body); err != nil {
				return err
			}
			if !i.loopStep() {
				return nil
			}
			for _, update := range n.Update {
				if err := i.executeStatement(update); err != nil {
					return err
				}
			}
		}
	})
}

func (i *Interpreter) executeForEach(n *ast.ForEach) error {
	collection, err := i.evaluateExpression(n.Collection)
	if err != nil {
		return err
	}
	defer i.pin(collection)()

	var items []*runtime.Value
	defer i.pinAll(&items)()
	switch collection.Type {
	case types.Array:
		items = append(items, collection.Elements()...)
	case types.String:
		for _, r := range collection.Str() {
			items = append(items, i.heap.NewChar(r))
		}
	case types.Struct:
		for _, name := range collection.FieldNames() {
			field, _ := collection.Field(name)
			items = append(items, i.heap.NewArrayLiteral([]*runtime.Value{i.heap.NewString(name), field}))
		}
	default:
		return newRuntimeError("cannot iterate over '%s'", types.BuildTypeString(&collection.Shape))
	}

	i.loopDepth++
	defer func() { i.loopDepth-- }()
	for _, item := range items {
		err := i.withScope("foreach", func(s *scope.Scope[*runtime.Variable]) error {
			if err := i.bindBinder(s, n.Binder, item); err != nil {
				return err
			}
			return i.executeStatements(n.Body.Statements)
		})
		if err != nil {
			return err
		}
		if !i.loopStep() {
			return nil
		}
	}
	return nil
}

// bindBinder binds value through one of the binder shapes foreach and catch
// accept.
func (i *Interpreter) bindBinder(s *scope.Scope[*runtime.Variable], binder ast.Binder, value *runtime.Value) error {
	switch b := binder.(type) {
	case nil, *ast.DiscardBinder:
		return nil
	case *ast.Declaration:
		shape, err := i.resolveShape(b.TypeSpec)
		if err != nil {
			return err
		}
		return i.declareVariable(s, b.Identifier, shape, value, b.Const)
	case *ast.UnpackedDeclaration:
		return i.unpack(s, b, value)
	case *ast.Identifier:
		return i.assignTo(b, value)
	default:
		return newRuntimeError("unsupported binder %s", binder.NodeType())
	}
}

func (i *Interpreter) executeSwitch(n *ast.Switch) error {
	subject, err := i.evaluateExpression(n.Subject)
	if err != nil {
		return err
	}
	defer i.pin(subject)()

	start, fallback := -1, -1
	for idx, c := range n.Cases {
		if c.Value == nil {
			if fallback < 0 {
				fallback = idx
			}
			continue
		}
		v, err := i.evaluateExpression(c.Value)
		if err != nil {
			return err
		}
		if runtime.Equal(subject, v) {
			start = idx
			break
		}
	}
	if start < 0 {
		start = fallback
	}
	if start < 0 {
		return nil
	}

	i.switchDepth++
	defer func() { i.switchDepth-- }()
	err = i.withScope("switch", func(*scope.Scope[*runtime.Variable]) error {
		for _, c := range n.Cases[start:] {
			if err := i.executeStatements(c.Body); err != nil {
				return err
			}
			if !i.control.running() {
				return nil
			}
		}
		return nil
	})
	if i.control.kind == controlBreak {
		i.control.reset()
	}
	return err
}

func (i *Interpreter) executeTryCatch(n *ast.TryCatch) error {
	err := i.executeBlock("try", n.Try)
	if err == nil {
		return nil
	}
	rt := asRuntimeError(err)
	return i.withScope("catch", func(s *scope.Scope[*runtime.Variable]) error {
		if err := i.bindCaught(s, n.Binder, rt); err != nil {
			return err
		}
		if n.Catch == nil {
			return nil
		}
		return i.executeStatements(n.Catch.Statements)
	})
}

func (i *Interpreter) bindCaught(s *scope.Scope[*runtime.Variable], binder ast.Binder, rt *RuntimeError) error {
	if b, ok := binder.(*ast.UnpackedDeclaration); ok {
		values := []*runtime.Value{i.heap.NewString(rt.Message), i.heap.NewInt(int64(rt.Code))}
		defer i.pinAll(&values)()
		if len(b.Declarations) > len(values) {
			return newRuntimeError("cannot unpack %d values from an exception", len(b.Declarations))
		}
		for idx, decl := range b.Declarations {
			shape, err := i.resolveShape(decl.TypeSpec)
			if err != nil {
				return err
			}
			if err := i.declareVariable(s, decl.Identifier, shape, values[idx], decl.Const); err != nil {
				return err
			}
		}
		return nil
	}
	exception := i.newException(rt)
	defer i.pin(exception)()
	return i.bindBinder(s, binder, exception)
}

func (i *Interpreter) newException(rt *RuntimeError) *runtime.Value {
	v := i.heap.NewStruct(builtins.ExceptionStruct, types.DefaultNamespace)
	v.SetField("error", i.heap.NewString(rt.Message))
	v.SetField("code", i.heap.NewInt(int64(rt.Code)))
	return v
}

func (i *Interpreter) executeThrow(n *ast.Throw) error {
	v, err := i.evaluateExpression(n.Value)
	if err != nil {
		return err
	}
	rt := &RuntimeError{Kind: KindInterpreter}
	switch {
	case v.Type == types.Struct && v.TypeName == builtins.ExceptionStruct:
		if msg, ok := v.Field("error"); ok {
			rt.Message = runtime.AsString(msg)
		}
		if code, ok := v.Field("code"); ok && code.Type == types.Int {
			rt.Code = int(code.Int())
		}
	case v.Type.IsTextual():
		rt.Message = runtime.AsString(v)
	default:
		rt.Message = runtime.Format(v)
	}
	return rt
}

func (i *Interpreter) executeReturn(n *ast.Return) error {
	frame := i.currentFrame()
	if frame == nil {
		return newRuntimeError("return must be inside a function")
	}
	var value *runtime.Value
	if n.Value != nil {
		v, err := i.evaluateExpression(n.Value)
		if err != nil {
			return err
		}
		value = v
	} else {
		value = i.heap.NewVoid()
	}
	frame.result = value
	i.control.requestReturn(frame.scopeName)
	return nil
}

func (i *Interpreter) executeExit(n *ast.Exit) error {
	code := 0
	if n.Code != nil {
		v, err := i.evaluateExpression(n.Code)
		if err != nil {
			return err
		}
		if v.Type != types.Int {
			return newRuntimeError("exit code must be int, got '%s'", types.BuildTypeString(&v.Shape))
		}
		code = int(v.Int())
	}
	i.control.requestExit(code)
	return nil
}
