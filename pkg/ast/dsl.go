package ast

import "github.com/flexa-script/interpreter-sub000/pkg/types"

// Program helpers.

func Prog(name string, statements ...Statement) *Program {
	return NewProgram(name, "", statements, nil)
}

func ProgNS(name, namespace string, statements ...Statement) *Program {
	return NewProgram(name, namespace, statements, nil)
}

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier("", name, nil)
}

func NSID(namespace, name string) *Identifier {
	return NewIdentifier(namespace, name, nil)
}

// Path builds an identifier followed by access steps. Steps are either
// strings (fields) or expressions (indices).
func Path(name string, steps ...any) *Identifier {
	return NewIdentifier("", name, Steps(steps...))
}

func Steps(steps ...any) []*AccessStep {
	out := make([]*AccessStep, 0, len(steps))
	for _, step := range steps {
		switch s := step.(type) {
		case string:
			out = append(out, &AccessStep{Field: s})
		case Expression:
			out = append(out, &AccessStep{Index: s})
		default:
			panic("ast.Steps expects field names or index expressions")
		}
	}
	return out
}

func Bool(value bool) *BoolLiteral {
	return NewBoolLiteral(value)
}

func Int(value int64) *IntLiteral {
	return NewIntLiteral(value)
}

func Flt(value float64) *FloatLiteral {
	return NewFloatLiteral(value)
}

func Chr(value rune) *CharLiteral {
	return NewCharLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Null() *NullLiteral {
	return NewNullLiteral()
}

func Arr(elements ...Expression) *ArrayConstructor {
	return NewArrayConstructor(elements)
}

func StructLit(typeName string, fields ...*FieldInit) *StructConstructor {
	return NewStructConstructor(typeName, "", fields)
}

func FieldV(name string, value Expression) *FieldInit {
	return &FieldInit{Name: name, Value: value}
}

// Type spec helpers.

func Ty(t types.Type) *TypeSpec {
	return &TypeSpec{Type: t}
}

func StructTy(name string) *TypeSpec {
	return &TypeSpec{Type: types.Struct, TypeName: name}
}

// ArrTy builds an array type; a nil dimension is unconstrained.
func ArrTy(elem types.Type, dim ...Expression) *TypeSpec {
	if len(dim) == 0 {
		dim = []Expression{nil}
	}
	return &TypeSpec{Type: types.Array, ArrayType: elem, Dim: dim}
}

// Statement helpers.

func Var(name string, spec *TypeSpec, value Expression) *Declaration {
	return NewDeclaration(name, false, spec, value)
}

func Const(name string, spec *TypeSpec, value Expression) *Declaration {
	return NewDeclaration(name, true, spec, value)
}

func Unpack(value Expression, names ...string) *UnpackedDeclaration {
	decls := make([]*Declaration, 0, len(names))
	for _, name := range names {
		decls = append(decls, Var(name, nil, nil))
	}
	return NewUnpackedDeclaration(nil, decls, value)
}

func Discard() *DiscardBinder {
	return NewDiscardBinder()
}

func Assign(target *Identifier, value Expression) *Assignment {
	return NewAssignment(target, "=", value)
}

func AssignOp(operator string, target *Identifier, value Expression) *Assignment {
	return NewAssignment(target, operator, value)
}

func Param(name string, spec *TypeSpec) *Declaration {
	return NewDeclaration(name, false, spec, nil)
}

func ParamDefault(name string, spec *TypeSpec, value Expression) *Declaration {
	return NewDeclaration(name, false, spec, value)
}

func Fn(name string, params []*Declaration, returnType *TypeSpec, body ...Statement) *FunctionDefinition {
	return NewFunctionDefinition(name, params, returnType, NewBlock(body))
}

// NativeFn declares a function whose body is supplied by a builtin module.
func NativeFn(name string, params []*Declaration, returnType *TypeSpec) *FunctionDefinition {
	return NewFunctionDefinition(name, params, returnType, nil)
}

func Struct(name string, fields ...*Declaration) *StructDefinition {
	return NewStructDefinition(name, fields)
}

func Blk(statements ...Statement) *Block {
	return NewBlock(statements)
}

func IfThen(condition Expression, then ...Statement) *If {
	return NewIf(condition, NewBlock(then), nil, nil)
}

func IfElse(condition Expression, then *Block, elseBlock *Block) *If {
	return NewIf(condition, then, nil, elseBlock)
}

func WhileLoop(condition Expression, body ...Statement) *While {
	return NewWhile(condition, NewBlock(body))
}

func ForLoop(init Statement, condition Expression, update Statement, body ...Statement) *For {
	var inits, updates []Statement
	if init != nil {
		inits = []Statement{init}
	}
	if update != nil {
		updates = []Statement{update}
	}
	return NewFor(inits, condition, updates, NewBlock(body))
}

func Each(binder Binder, collection Expression, body ...Statement) *ForEach {
	return NewForEach(binder, collection, NewBlock(body))
}

func Case(value Expression, body ...Statement) *SwitchCase {
	return &SwitchCase{Value: value, Body: body}
}

func Default(body ...Statement) *SwitchCase {
	return &SwitchCase{Body: body}
}

func SwitchOn(subject Expression, cases ...*SwitchCase) *Switch {
	return NewSwitch(subject, cases)
}

func Try(try *Block, binder Binder, catch *Block) *TryCatch {
	return NewTryCatch(try, binder, catch)
}

func Ret(value Expression) *Return {
	return NewReturn(value)
}

// Expression helpers.

func Bin(operator string, left, right Expression) *Binary {
	return NewBinary(operator, left, right)
}

func Un(operator string, operand Expression) *Unary {
	return NewUnary(operator, operand)
}

func Call(name string, args ...Expression) *FunctionCall {
	return NewFunctionCall(ID(name), args, nil)
}

func CallExpr(callee Expression, args ...Expression) *FunctionCall {
	return NewFunctionCall(callee, args, nil)
}

func Cast(target types.Type, value Expression) *TypeCast {
	return NewTypeCast(target, value)
}

func TypeOfExpr(value Expression) *TypeOf {
	return NewTypeOf(value)
}
