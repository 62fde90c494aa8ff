package analyzer

import (
	"fmt"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/builtins"
	"github.com/flexa-script/interpreter-sub000/pkg/scope"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

func (a *Analyzer) statements(list []ast.Statement) {
	for _, stmt := range list {
		a.statement(stmt)
	}
}

func (a *Analyzer) statement(stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.Using:
		a.useLibrary(n, n.Library)
	case *ast.IncludeNamespace:
		a.scopes.IncludeNamespace(a.currentProgramName(), n.Namespace)
	case *ast.ExcludeNamespace:
		a.scopes.ExcludeNamespace(a.currentProgramName(), n.Namespace)
	case *ast.Declaration:
		a.declaration(a.currentScope(), n)
	case *ast.UnpackedDeclaration:
		a.unpackedDeclaration(n)
	case *ast.Assignment:
		a.assignment(n)
	case *ast.FunctionDefinition:
		a.functionDefinition(n)
	case *ast.StructDefinition:
		a.structDefinition(n)
	case *ast.Block:
		a.block("block", n)
	case *ast.If:
		a.condition(n.Condition)
		a.block("if", n.Then)
		for _, elif := range n.ElseIfs {
			a.condition(elif.Condition)
			a.block("elif", elif.Body)
		}
		a.block("else", n.Else)
	case *ast.While:
		a.condition(n.Condition)
		a.loop("while", n.Body)
	case *ast.DoWhile:
		a.loop("do", n.Body)
		a.condition(n.Condition)
	case *ast.For:
		a.withScope("for", func(*scope.Scope[*SemanticVariable]) {
			a.statements(n.Init)
			if n.Condition != nil {
				a.condition(n.Condition)
			}
			a.loop("for-body", n.Body)
			a.loopDepth++
			a.statements(n.Update)
			a.loopDepth--
		})
	case *ast.ForEach:
		a.forEach(n)
	case *ast.Switch:
		a.switchStatement(n)
	case *ast.TryCatch:
		a.tryCatch(n)
	case *ast.Throw:
		a.expr(n.Value)
	case *ast.Return:
		a.returnStatement(n)
	case *ast.Break:
		if a.loopDepth == 0 && a.switchDepth == 0 {
			a.report(n, "break must be inside a loop or switch")
		}
	case *ast.Continue:
		if a.loopDepth == 0 {
			a.report(n, "continue must be inside a loop")
		}
	case *ast.Exit:
		if n.Code != nil {
			if code := a.expr(n.Code); !code.IsAny() && !code.IsInt() {
				a.report(n, "exit code must be int, got '%s'", code.Describe())
			}
		}
	case ast.Expression:
		a.expr(n)
	default:
		a.report(stmt, "unsupported statement %T", stmt)
	}
}

func (a *Analyzer) block(name string, b *ast.Block) {
	if b == nil {
		return
	}
	a.withScope(name, func(*scope.Scope[*SemanticVariable]) {
		a.statements(b.Statements)
	})
}

func (a *Analyzer) loop(name string, body *ast.Block) {
	a.loopDepth++
	a.block(name, body)
	a.loopDepth--
}

func (a *Analyzer) condition(expr ast.Expression) {
	v := a.expr(expr)
	if !v.IsAny() && !v.IsBool() {
		a.report(expr, "condition must be bool, got '%s'", v.Describe())
	}
}

// resolveShape fills constant array sizes and qualifies struct names.
func (a *Analyzer) resolveShape(node ast.Node, spec *ast.TypeSpec) types.Shape {
	shape := spec.Shape()
	if spec == nil {
		return shape
	}
	for idx, dim := range spec.Dim {
		if dim == nil {
			continue
		}
		v := a.expr(dim)
		if !v.IsAny() && !v.IsInt() {
			a.report(node, "array size must be int, got '%s'", v.Describe())
			continue
		}
		if lit, ok := dim.(*ast.IntLiteral); ok {
			if lit.Value < 0 {
				a.report(node, "invalid array size %d", lit.Value)
				continue
			}
			shape.Dim[idx] = int(lit.Value)
		}
	}
	if shape.TypeName != "" && (shape.Type == types.Struct || shape.ArrayType == types.Struct) {
		def, ok := a.scopes.FindStruct(a.currentProgramName(), shape.TypeNamespace, shape.TypeName)
		if !ok {
			a.report(node, "struct '%s' was not declared", shape.TypeName)
			return types.NewShape(types.Any)
		}
		shape.TypeNamespace = def.Namespace
	}
	return shape
}

// accepts reports whether a value of shape rhs may be stored in slot lhs.
// Unknown values are accepted; they are checked at run time.
func accepts(lhs *types.Shape, rhs *SemanticValue) bool {
	if rhs.IsAny() || rhs.IsUndefined() {
		return true
	}
	return types.AcceptsValue(lhs, &rhs.Shape)
}

func (a *Analyzer) declare(s *scope.Scope[*SemanticVariable], node ast.Node, name string, shape types.Shape, value *SemanticValue, isConst bool) {
	if s.AlreadyDeclaredVariable(name) {
		a.report(node, "variable '%s' already declared", name)
		return
	}
	s.DeclareVariable(name, newSemanticVariable(name, shape, value, isConst))
}

func (a *Analyzer) declaration(s *scope.Scope[*SemanticVariable], n *ast.Declaration) {
	shape := a.resolveShape(n, n.TypeSpec)
	var value *SemanticValue
	if n.Value != nil {
		value = a.expr(n.Value)
		if !accepts(&shape, value) {
			a.report(n, "invalid type '%s' trying to assign '%s' of type '%s'",
				value.Describe(), n.Identifier, types.BuildTypeString(&shape))
		}
	} else if n.Const {
		a.report(n, "constant '%s' must be initialized", n.Identifier)
	}
	a.declare(s, n, n.Identifier, shape, value, n.Const)
}

func (a *Analyzer) unpackedDeclaration(n *ast.UnpackedDeclaration) {
	if n.Value == nil {
		a.report(n, "unpacked declaration needs a value")
		return
	}
	value := a.expr(n.Value)
	a.unpack(a.currentScope(), n, value)
}

// unpack declares each name of n from source: positionally from arrays of
// known length and by field name from structs.
func (a *Analyzer) unpack(s *scope.Scope[*SemanticVariable], n *ast.UnpackedDeclaration, source *SemanticValue) {
	var def *scope.StructDefinition
	switch source.Type {
	case types.Array:
		if len(source.Dim) == 1 && source.Dim[0] > 0 && source.Dim[0] < len(n.Declarations) {
			a.report(n, "cannot unpack %d values from an array of %d", len(n.Declarations), source.Dim[0])
		}
	case types.Struct:
		def, _ = a.scopes.FindStruct(a.currentProgramName(), source.TypeNamespace, source.TypeName)
	case types.Any:
	default:
		a.report(n, "cannot unpack a value of type '%s'", source.Describe())
	}
	for _, decl := range n.Declarations {
		spec := decl.TypeSpec
		if spec == nil {
			spec = n.TypeSpec
		}
		shape := a.resolveShape(decl, spec)
		elem := anyValue()
		switch {
		case source.Type == types.Array:
			elem = newSemanticValue(source.ElementShape())
		case def != nil:
			field, ok := def.Field(decl.Identifier)
			if !ok {
				a.report(decl, "'%s' is not a member of '%s'", decl.Identifier, source.Describe())
				break
			}
			elem = newSemanticValue(field.Shape.Clone())
		}
		if !accepts(&shape, elem) {
			a.report(decl, "invalid type '%s' trying to assign '%s' of type '%s'",
				elem.Describe(), decl.Identifier, types.BuildTypeString(&shape))
		}
		a.declare(s, decl, decl.Identifier, shape, elem, decl.Const)
	}
}

func (a *Analyzer) functionDefinition(n *ast.FunctionDefinition) {
	s := a.currentScope()
	def := scope.NewFunctionDefinition(a.currentNamespace(), n)
	def.Program = a.currentProgramName()
	if n.ReturnType != nil {
		def.Shape = a.resolveShape(n, n.ReturnType)
	}
	for idx, p := range n.Params {
		def.Params[idx].Shape = a.resolveShape(p, p.TypeSpec)
	}
	if s.AlreadyDeclaredFunction(n.Identifier, def.ParamShapes(), true) {
		a.report(n, "function '%s' already declared", def)
		return
	}
	// Declared before the body so recursion resolves.
	s.DeclareFunction(n.Identifier, def)
	if n.Body == nil {
		return
	}

	loop, sw := a.loopDepth, a.switchDepth
	a.loopDepth, a.switchDepth = 0, 0
	a.functions = append(a.functions, def)
	defer func() {
		a.functions = a.functions[:len(a.functions)-1]
		a.loopDepth, a.switchDepth = loop, sw
	}()
	a.withScope(n.Identifier, func(fnScope *scope.Scope[*SemanticVariable]) {
		for idx, p := range n.Params {
			shape := def.Params[idx].Shape
			var value *SemanticValue
			if p.Value != nil {
				value = a.expr(p.Value)
				if !accepts(&shape, value) {
					a.report(p, "invalid default '%s' for parameter '%s' of type '%s'",
						value.Describe(), p.Identifier, types.BuildTypeString(&shape))
				}
			}
			a.declare(fnScope, p, p.Identifier, shape, value, false)
		}
		a.statements(n.Body.Statements)
	})
}

func (a *Analyzer) structDefinition(n *ast.StructDefinition) {
	s := a.currentScope()
	if s.AlreadyDeclaredStructureDefinition(n.Identifier) {
		a.report(n, "struct '%s' already declared", n.Identifier)
		return
	}
	def := scope.NewStructDefinition(a.currentNamespace(), n)
	s.DeclareStructureDefinition(def)
	seen := make(map[string]bool, len(n.Fields))
	for _, field := range n.Fields {
		if seen[field.Identifier] {
			a.report(field, "field '%s' already declared in struct '%s'", field.Identifier, n.Identifier)
			continue
		}
		seen[field.Identifier] = true
		shape := a.resolveShape(field, field.TypeSpec)
		if field.Value != nil {
			if v := a.expr(field.Value); !accepts(&shape, v) {
				a.report(field, "invalid default '%s' for field '%s' of type '%s'",
					v.Describe(), field.Identifier, types.BuildTypeString(&shape))
			}
		}
	}
}

func (a *Analyzer) returnStatement(n *ast.Return) {
	if len(a.functions) == 0 {
		a.report(n, "return must be inside a function")
		return
	}
	def := a.functions[len(a.functions)-1]
	value := newSemanticValue(types.NewShape(types.Void))
	if n.Value != nil {
		value = a.expr(n.Value)
	}
	switch {
	case def.Type == types.Void:
		if !value.IsVoid() && !value.IsAny() {
			a.report(n, "void function '%s' returned '%s'", def, value.Describe())
		}
	case def.Type == types.Any:
	case !accepts(&def.Shape, value):
		a.report(n, "invalid return type '%s' for function '%s' declared '%s'",
			value.Describe(), def, types.BuildTypeString(&def.Shape))
	}
}

func (a *Analyzer) forEach(n *ast.ForEach) {
	collection := a.expr(n.Collection)
	var elem *SemanticValue
	switch collection.Type {
	case types.Array:
		elem = newSemanticValue(collection.ElementShape())
	case types.String:
		elem = newSemanticValue(types.NewShape(types.Char))
	case types.Struct:
		elem = newSemanticValue(types.ArrayShape(types.Any, 2))
	case types.Any:
		elem = anyValue()
	default:
		a.report(n.Collection, "cannot iterate a value of type '%s'", collection.Describe())
		elem = anyValue()
	}
	a.loopDepth++
	defer func() { a.loopDepth-- }()
	a.withScope("foreach", func(s *scope.Scope[*SemanticVariable]) {
		a.bindBinder(s, n.Binder, elem)
		a.block("foreach-body", n.Body)
	})
}

func (a *Analyzer) bindBinder(s *scope.Scope[*SemanticVariable], binder ast.Binder, value *SemanticValue) {
	switch b := binder.(type) {
	case nil, *ast.DiscardBinder:
	case *ast.Declaration:
		shape := a.resolveShape(b, b.TypeSpec)
		if !accepts(&shape, value) {
			a.report(b, "invalid type '%s' trying to assign '%s' of type '%s'",
				value.Describe(), b.Identifier, types.BuildTypeString(&shape))
		}
		a.declare(s, b, b.Identifier, shape, value, b.Const)
	case *ast.UnpackedDeclaration:
		a.unpack(s, b, value)
	case *ast.Identifier:
		a.assignTarget(b, value)
	default:
		a.report(binder, "unsupported binder %T", binder)
	}
}

func (a *Analyzer) switchStatement(n *ast.Switch) {
	subject := a.expr(n.Subject)
	seen := make(map[uint64]bool)
	hasDefault := false
	a.switchDepth++
	defer func() { a.switchDepth-- }()
	a.withScope("switch", func(*scope.Scope[*SemanticVariable]) {
		for _, c := range n.Cases {
			if c.Value == nil {
				if hasDefault {
					a.report(n, "switch has more than one default case")
				}
				hasDefault = true
			} else {
				v := a.expr(c.Value)
				if !subject.IsAny() && !v.IsAny() && !types.IsAnyOrMatch(&subject.Shape, &v.Shape) && !types.IsAnyOrMatch(&v.Shape, &subject.Shape) {
					a.report(c.Value, "case of type '%s' never matches subject of type '%s'", v.Describe(), subject.Describe())
				}
				if v.IsConst {
					if seen[v.Hash] {
						a.report(c.Value, "duplicate case value %s", describeCase(c.Value))
					}
					seen[v.Hash] = true
				}
			}
			a.statements(c.Body)
		}
	})
}

func describeCase(expr ast.Expression) string {
	switch lit := expr.(type) {
	case *ast.IntLiteral:
		return fmt.Sprint(lit.Value)
	case *ast.FloatLiteral:
		return floatRepr(lit.Value)
	case *ast.StringLiteral:
		return fmt.Sprintf("%q", lit.Value)
	case *ast.CharLiteral:
		return fmt.Sprintf("'%c'", lit.Value)
	case *ast.BoolLiteral:
		return fmt.Sprint(lit.Value)
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", expr), "*ast.")
	}
}

func (a *Analyzer) tryCatch(n *ast.TryCatch) {
	a.block("try", n.Try)
	a.withScope("catch", func(s *scope.Scope[*SemanticVariable]) {
		switch b := n.Binder.(type) {
		case *ast.UnpackedDeclaration:
			for idx, decl := range b.Declarations {
				shape := types.NewShape(types.String)
				if idx == 1 {
					shape = types.NewShape(types.Int)
				}
				if idx > 1 {
					a.report(decl, "catch binds at most two values")
					continue
				}
				a.declare(s, decl, decl.Identifier, shape, nil, decl.Const)
			}
		case *ast.Declaration:
			exc := types.StructShape(builtins.ExceptionStruct, types.DefaultNamespace)
			a.bindBinder(s, b, newSemanticValue(exc))
		default:
			a.bindBinder(s, n.Binder, anyValue())
		}
		if n.Catch != nil {
			a.statements(n.Catch.Statements)
		}
	})
}
