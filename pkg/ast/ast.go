package ast

import "github.com/flexa-script/interpreter-sub000/pkg/types"

type NodeType string

const (
	NodeProgram             NodeType = "Program"
	NodeUsing               NodeType = "Using"
	NodeIncludeNamespace    NodeType = "IncludeNamespace"
	NodeExcludeNamespace    NodeType = "ExcludeNamespace"
	NodeDeclaration         NodeType = "Declaration"
	NodeUnpackedDeclaration NodeType = "UnpackedDeclaration"
	NodeDiscardBinder       NodeType = "DiscardBinder"
	NodeAssignment          NodeType = "Assignment"
	NodeFunctionDefinition  NodeType = "FunctionDefinition"
	NodeStructDefinition    NodeType = "StructDefinition"
	NodeBlock               NodeType = "Block"
	NodeIf                  NodeType = "If"
	NodeWhile               NodeType = "While"
	NodeDoWhile             NodeType = "DoWhile"
	NodeFor                 NodeType = "For"
	NodeForEach             NodeType = "ForEach"
	NodeSwitch              NodeType = "Switch"
	NodeTryCatch            NodeType = "TryCatch"
	NodeThrow               NodeType = "Throw"
	NodeReturn              NodeType = "Return"
	NodeBreak               NodeType = "Break"
	NodeContinue            NodeType = "Continue"
	NodeExit                NodeType = "Exit"
	NodeBoolLiteral         NodeType = "BoolLiteral"
	NodeIntLiteral          NodeType = "IntLiteral"
	NodeFloatLiteral        NodeType = "FloatLiteral"
	NodeCharLiteral         NodeType = "CharLiteral"
	NodeStringLiteral       NodeType = "StringLiteral"
	NodeNullLiteral         NodeType = "NullLiteral"
	NodeArrayConstructor    NodeType = "ArrayConstructor"
	NodeStructConstructor   NodeType = "StructConstructor"
	NodeIdentifier          NodeType = "Identifier"
	NodeBinary              NodeType = "Binary"
	NodeUnary               NodeType = "Unary"
	NodeTernary             NodeType = "Ternary"
	NodeFunctionCall        NodeType = "FunctionCall"
	NodeTypeCast            NodeType = "TypeCast"
	NodeTypeOf              NodeType = "TypeOf"
	NodeRefID               NodeType = "RefID"
	NodeIn                  NodeType = "In"
)

type Node interface {
	NodeType() NodeType
	Pos() Position
	isNode()
}

// Position is the source location reported by the parser.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	pos  Position
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType   { return n.Type }
func (n nodeImpl) Pos() Position        { return n.pos }
func (nodeImpl) isNode()                {}
func (n *nodeImpl) setPos(pos Position) { n.pos = pos }

type positioned interface {
	setPos(Position)
}

// SetPos records the source location of n and returns it.
func SetPos[T Node](n T, row, col int) T {
	if p, ok := any(n).(positioned); ok {
		p.setPos(Position{Row: row, Col: col})
	}
	return n
}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Binder is the closed set of targets a foreach or catch clause binds:
// *Declaration, *UnpackedDeclaration, *Identifier and *DiscardBinder.
type Binder interface {
	Node
	binderNode()
}

type binderMarker struct{}

func (binderMarker) binderNode() {}

// Program

type Program struct {
	nodeImpl

	Name       string      `json:"name"`
	Namespace  string      `json:"namespace"`
	Statements []Statement `json:"statements"`
	Libs       []string    `json:"libs"`
}

func NewProgram(name, namespace string, statements []Statement, libs []string) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Name: name, Namespace: namespace, Statements: statements, Libs: libs}
}

// EffectiveNamespace returns the program namespace, defaulting when unset.
func (p *Program) EffectiveNamespace() string {
	if p.Namespace == "" {
		return types.DefaultNamespace
	}
	return p.Namespace
}

// Type specs

// TypeSpec is a declared type. A nil entry in Dim is an unconstrained axis.
type TypeSpec struct {
	Type          types.Type   `json:"kind"`
	ArrayType     types.Type   `json:"arrayType"`
	TypeName      string       `json:"name,omitempty"`
	TypeNamespace string       `json:"namespace,omitempty"`
	Dim           []Expression `json:"dim,omitempty"`
}

// Shape returns the static part of the spec. Dimension expressions are left
// unconstrained; callers that can evaluate them fill Dim in.
func (s *TypeSpec) Shape() types.Shape {
	if s == nil {
		return types.NewShape(types.Any)
	}
	shape := types.Shape{
		Type:          s.Type,
		ArrayType:     s.ArrayType,
		TypeName:      s.TypeName,
		TypeNamespace: s.TypeNamespace,
	}
	if len(s.Dim) > 0 {
		shape.Dim = make([]int, len(s.Dim))
	}
	if shape.Type == types.Array && shape.ArrayType == types.Undefined {
		shape.ArrayType = types.Any
	}
	shape.ResetRef()
	return shape
}

// Statements

type Using struct {
	nodeImpl
	statementMarker

	Library string `json:"library"`
}

func NewUsing(library string) *Using {
	return &Using{nodeImpl: newNodeImpl(NodeUsing), Library: library}
}

type IncludeNamespace struct {
	nodeImpl
	statementMarker

	Namespace string `json:"namespace"`
}

func NewIncludeNamespace(namespace string) *IncludeNamespace {
	return &IncludeNamespace{nodeImpl: newNodeImpl(NodeIncludeNamespace), Namespace: namespace}
}

type ExcludeNamespace struct {
	nodeImpl
	statementMarker

	Namespace string `json:"namespace"`
}

func NewExcludeNamespace(namespace string) *ExcludeNamespace {
	return &ExcludeNamespace{nodeImpl: newNodeImpl(NodeExcludeNamespace), Namespace: namespace}
}

// Declaration introduces one variable. A nil TypeSpec declares a dynamic
// (any) variable.
type Declaration struct {
	nodeImpl
	statementMarker
	binderMarker

	Identifier string     `json:"identifier"`
	Const      bool       `json:"const"`
	TypeSpec   *TypeSpec  `json:"typeSpec,omitempty"`
	Value      Expression `json:"value,omitempty"`
}

func NewDeclaration(identifier string, isConst bool, spec *TypeSpec, value Expression) *Declaration {
	return &Declaration{nodeImpl: newNodeImpl(NodeDeclaration), Identifier: identifier, Const: isConst, TypeSpec: spec, Value: value}
}

// UnpackedDeclaration binds several variables from one array or struct.
type UnpackedDeclaration struct {
	nodeImpl
	statementMarker
	binderMarker

	TypeSpec     *TypeSpec      `json:"typeSpec,omitempty"`
	Declarations []*Declaration `json:"declarations"`
	Value        Expression     `json:"value,omitempty"`
}

func NewUnpackedDeclaration(spec *TypeSpec, decls []*Declaration, value Expression) *UnpackedDeclaration {
	return &UnpackedDeclaration{nodeImpl: newNodeImpl(NodeUnpackedDeclaration), TypeSpec: spec, Declarations: decls, Value: value}
}

// DiscardBinder accepts a value without binding it.
type DiscardBinder struct {
	nodeImpl
	binderMarker
}

func NewDiscardBinder() *DiscardBinder {
	return &DiscardBinder{nodeImpl: newNodeImpl(NodeDiscardBinder)}
}

type Assignment struct {
	nodeImpl
	statementMarker

	Target   *Identifier `json:"target"`
	Operator string      `json:"operator"`
	Value    Expression  `json:"value"`
}

func NewAssignment(target *Identifier, operator string, value Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Target: target, Operator: operator, Value: value}
}

// FunctionDefinition declares a function. A nil Body marks a builtin whose
// implementation is native.
type FunctionDefinition struct {
	nodeImpl
	statementMarker

	Identifier string         `json:"identifier"`
	Params     []*Declaration `json:"params"`
	ReturnType *TypeSpec      `json:"returnType,omitempty"`
	Body       *Block         `json:"body,omitempty"`
}

func NewFunctionDefinition(identifier string, params []*Declaration, returnType *TypeSpec, body *Block) *FunctionDefinition {
	return &FunctionDefinition{nodeImpl: newNodeImpl(NodeFunctionDefinition), Identifier: identifier, Params: params, ReturnType: returnType, Body: body}
}

type StructDefinition struct {
	nodeImpl
	statementMarker

	Identifier string         `json:"identifier"`
	Fields     []*Declaration `json:"fields"`
}

func NewStructDefinition(identifier string, fields []*Declaration) *StructDefinition {
	return &StructDefinition{nodeImpl: newNodeImpl(NodeStructDefinition), Identifier: identifier, Fields: fields}
}

type Block struct {
	nodeImpl
	statementMarker

	Statements []Statement `json:"statements"`
}

func NewBlock(statements []Statement) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Statements: statements}
}

// ElseIf is one `else if` arm of an If.
type ElseIf struct {
	Condition Expression `json:"condition"`
	Body      *Block     `json:"body"`
}

type If struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Then      *Block     `json:"then"`
	ElseIfs   []*ElseIf  `json:"elseIfs,omitempty"`
	Else      *Block     `json:"else,omitempty"`
}

func NewIf(condition Expression, then *Block, elseIfs []*ElseIf, elseBlock *Block) *If {
	return &If{nodeImpl: newNodeImpl(NodeIf), Condition: condition, Then: then, ElseIfs: elseIfs, Else: elseBlock}
}

type While struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Body      *Block     `json:"body"`
}

func NewWhile(condition Expression, body *Block) *While {
	return &While{nodeImpl: newNodeImpl(NodeWhile), Condition: condition, Body: body}
}

type DoWhile struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Body      *Block     `json:"body"`
}

func NewDoWhile(condition Expression, body *Block) *DoWhile {
	return &DoWhile{nodeImpl: newNodeImpl(NodeDoWhile), Condition: condition, Body: body}
}

// For is the three-clause loop. Any clause may be absent.
type For struct {
	nodeImpl
	statementMarker

	Init      []Statement `json:"init,omitempty"`
	Condition Expression  `json:"condition,omitempty"`
	Update    []Statement `json:"update,omitempty"`
	Body      *Block      `json:"body"`
}

func NewFor(init []Statement, condition Expression, update []Statement, body *Block) *For {
	return &For{nodeImpl: newNodeImpl(NodeFor), Init: init, Condition: condition, Update: update, Body: body}
}

type ForEach struct {
	nodeImpl
	statementMarker

	Binder     Binder     `json:"binder"`
	Collection Expression `json:"collection"`
	Body       *Block     `json:"body"`
}

func NewForEach(binder Binder, collection Expression, body *Block) *ForEach {
	return &ForEach{nodeImpl: newNodeImpl(NodeForEach), Binder: binder, Collection: collection, Body: body}
}

// SwitchCase is one label of a switch. A nil Value is the default label.
// Execution falls through into following cases until a break.
type SwitchCase struct {
	Value Expression  `json:"value,omitempty"`
	Body  []Statement `json:"body"`
}

type Switch struct {
	nodeImpl
	statementMarker

	Subject Expression    `json:"subject"`
	Cases   []*SwitchCase `json:"cases"`
}

func NewSwitch(subject Expression, cases []*SwitchCase) *Switch {
	return &Switch{nodeImpl: newNodeImpl(NodeSwitch), Subject: subject, Cases: cases}
}

type TryCatch struct {
	nodeImpl
	statementMarker

	Try    *Block `json:"try"`
	Binder Binder `json:"binder"`
	Catch  *Block `json:"catch"`
}

func NewTryCatch(try *Block, binder Binder, catch *Block) *TryCatch {
	return &TryCatch{nodeImpl: newNodeImpl(NodeTryCatch), Try: try, Binder: binder, Catch: catch}
}

type Throw struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value"`
}

func NewThrow(value Expression) *Throw {
	return &Throw{nodeImpl: newNodeImpl(NodeThrow), Value: value}
}

type Return struct {
	nodeImpl
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturn(value Expression) *Return {
	return &Return{nodeImpl: newNodeImpl(NodeReturn), Value: value}
}

type Break struct {
	nodeImpl
	statementMarker
}

func NewBreak() *Break {
	return &Break{nodeImpl: newNodeImpl(NodeBreak)}
}

type Continue struct {
	nodeImpl
	statementMarker
}

func NewContinue() *Continue {
	return &Continue{nodeImpl: newNodeImpl(NodeContinue)}
}

type Exit struct {
	nodeImpl
	statementMarker

	Code Expression `json:"code,omitempty"`
}

func NewExit(code Expression) *Exit {
	return &Exit{nodeImpl: newNodeImpl(NodeExit), Code: code}
}

// Literals

type BoolLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value bool `json:"value"`
}

func NewBoolLiteral(value bool) *BoolLiteral {
	return &BoolLiteral{nodeImpl: newNodeImpl(NodeBoolLiteral), Value: value}
}

type IntLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value int64 `json:"value"`
}

func NewIntLiteral(value int64) *IntLiteral {
	return &IntLiteral{nodeImpl: newNodeImpl(NodeIntLiteral), Value: value}
}

type FloatLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value float64 `json:"value"`
}

func NewFloatLiteral(value float64) *FloatLiteral {
	return &FloatLiteral{nodeImpl: newNodeImpl(NodeFloatLiteral), Value: value}
}

type CharLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value rune `json:"value"`
}

func NewCharLiteral(value rune) *CharLiteral {
	return &CharLiteral{nodeImpl: newNodeImpl(NodeCharLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type NullLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
}

func NewNullLiteral() *NullLiteral {
	return &NullLiteral{nodeImpl: newNodeImpl(NodeNullLiteral)}
}

type ArrayConstructor struct {
	nodeImpl
	expressionMarker
	statementMarker

	Elements []Expression `json:"elements"`
}

func NewArrayConstructor(elements []Expression) *ArrayConstructor {
	return &ArrayConstructor{nodeImpl: newNodeImpl(NodeArrayConstructor), Elements: elements}
}

// FieldInit is one `name = value` entry of a struct constructor.
type FieldInit struct {
	Name  string     `json:"name"`
	Value Expression `json:"value"`
}

type StructConstructor struct {
	nodeImpl
	expressionMarker
	statementMarker

	TypeName      string       `json:"typeName"`
	TypeNamespace string       `json:"typeNamespace,omitempty"`
	Fields        []*FieldInit `json:"fields"`
}

func NewStructConstructor(typeName, typeNamespace string, fields []*FieldInit) *StructConstructor {
	return &StructConstructor{nodeImpl: newNodeImpl(NodeStructConstructor), TypeName: typeName, TypeNamespace: typeNamespace, Fields: fields}
}

// AccessStep is one `.field` or `[index]` hop of an access chain.
type AccessStep struct {
	Field string     `json:"field,omitempty"`
	Index Expression `json:"index,omitempty"`
}

// IsIndex reports whether the step indexes an array or string.
func (s *AccessStep) IsIndex() bool { return s.Index != nil }

// Identifier names a variable or function, optionally qualified with a
// namespace and followed by an access chain.
type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker
	binderMarker

	Namespace string        `json:"namespace,omitempty"`
	Name      string        `json:"name"`
	Access    []*AccessStep `json:"access,omitempty"`
}

func NewIdentifier(namespace, name string, access []*AccessStep) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Namespace: namespace, Name: name, Access: access}
}

type Binary struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinary(operator string, left, right Expression) *Binary {
	return &Binary{nodeImpl: newNodeImpl(NodeBinary), Operator: operator, Left: left, Right: right}
}

type Unary struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
}

func NewUnary(operator string, operand Expression) *Unary {
	return &Unary{nodeImpl: newNodeImpl(NodeUnary), Operator: operator, Operand: operand}
}

type Ternary struct {
	nodeImpl
	expressionMarker
	statementMarker

	Condition Expression `json:"condition"`
	Then      Expression `json:"then"`
	Else      Expression `json:"else"`
}

func NewTernary(condition, then, elseExpr Expression) *Ternary {
	return &Ternary{nodeImpl: newNodeImpl(NodeTernary), Condition: condition, Then: then, Else: elseExpr}
}

// FunctionCall calls Callee with Args. An *Identifier callee without access
// steps is a plain call, one with field steps is a dotted call, and any
// other expression is called through its value. Access is applied to the
// result.
type FunctionCall struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee Expression    `json:"callee"`
	Args   []Expression  `json:"args"`
	Access []*AccessStep `json:"access,omitempty"`
}

func NewFunctionCall(callee Expression, args []Expression, access []*AccessStep) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Callee: callee, Args: args, Access: access}
}

type TypeCast struct {
	nodeImpl
	expressionMarker
	statementMarker

	Target types.Type `json:"target"`
	Value  Expression `json:"value"`
}

func NewTypeCast(target types.Type, value Expression) *TypeCast {
	return &TypeCast{nodeImpl: newNodeImpl(NodeTypeCast), Target: target, Value: value}
}

type TypeOf struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value Expression `json:"value"`
}

func NewTypeOf(value Expression) *TypeOf {
	return &TypeOf{nodeImpl: newNodeImpl(NodeTypeOf), Value: value}
}

type RefID struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value Expression `json:"value"`
}

func NewRefID(value Expression) *RefID {
	return &RefID{nodeImpl: newNodeImpl(NodeRefID), Value: value}
}

// In tests membership of Value in an array, a string or a struct's fields.
type In struct {
	nodeImpl
	expressionMarker
	statementMarker

	Value      Expression `json:"value"`
	Collection Expression `json:"collection"`
}

func NewIn(value, collection Expression) *In {
	return &In{nodeImpl: newNodeImpl(NodeIn), Value: value, Collection: collection}
}
