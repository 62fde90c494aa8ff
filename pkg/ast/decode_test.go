package ast

import (
	"strings"
	"testing"

	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

const sampleProgram = `{
  "type": "Program",
  "name": "main",
  "namespace": "demo",
  "libs": ["flx.std.math"],
  "statements": [
    {"type": "Using", "library": "flx.std.math", "row": 1, "col": 1},
    {"type": "Declaration", "identifier": "arr", "row": 2, "col": 1,
     "typeSpec": {"kind": "array", "arrayType": "int", "dim": [null]},
     "value": {"type": "ArrayConstructor", "elements": [
       {"type": "IntLiteral", "value": 1},
       {"type": "IntLiteral", "value": 2},
       {"type": "ArrayConstructor", "elements": [
         {"type": "IntLiteral", "value": 3},
         {"type": "IntLiteral", "value": 4}
       ]}
     ]}},
    {"type": "ForEach", "row": 3, "col": 1,
     "binder": {"type": "Declaration", "identifier": "x"},
     "collection": {"type": "Identifier", "name": "arr"},
     "body": {"type": "Block", "statements": []}},
    {"type": "TryCatch",
     "try": {"type": "Block", "statements": [
       {"type": "Throw", "value": {"type": "StringLiteral", "value": "boom"}}
     ]},
     "binder": {"type": "DiscardBinder"},
     "catch": {"type": "Block", "statements": []}},
    {"type": "Assignment", "operator": "+=",
     "target": {"type": "Identifier", "name": "p", "access": [{"field": "x"}, {"index": {"type": "IntLiteral", "value": 0}}]},
     "value": {"type": "CharLiteral", "value": "c"}},
    {"type": "FunctionCall", "callee": {"type": "Identifier", "namespace": "math", "name": "sqrt"},
     "args": [{"type": "FloatLiteral", "value": 2.5}]}
  ]
}`

func TestDecodeProgram(t *testing.T) {
	prog, err := DecodeProgram(strings.NewReader(sampleProgram))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if prog.Name != "main" || prog.EffectiveNamespace() != "demo" || len(prog.Libs) != 1 {
		t.Fatalf("unexpected program header %+v", prog)
	}
	if len(prog.Statements) != 6 {
		t.Fatalf("expected 6 statements, got %d", len(prog.Statements))
	}

	decl, ok := prog.Statements[1].(*Declaration)
	if !ok {
		t.Fatalf("expected declaration, got %T", prog.Statements[1])
	}
	if decl.Pos() != (Position{Row: 2, Col: 1}) {
		t.Fatalf("unexpected position %+v", decl.Pos())
	}
	if decl.TypeSpec.Type != types.Array || decl.TypeSpec.ArrayType != types.Int || len(decl.TypeSpec.Dim) != 1 || decl.TypeSpec.Dim[0] != nil {
		t.Fatalf("unexpected type spec %+v", decl.TypeSpec)
	}
	arr := decl.Value.(*ArrayConstructor)
	if len(arr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(arr.Elements))
	}

	each := prog.Statements[2].(*ForEach)
	if _, ok := each.Binder.(*Declaration); !ok {
		t.Fatalf("expected declaration binder, got %T", each.Binder)
	}
	try := prog.Statements[3].(*TryCatch)
	if _, ok := try.Binder.(*DiscardBinder); !ok {
		t.Fatalf("expected discard binder, got %T", try.Binder)
	}

	assign := prog.Statements[4].(*Assignment)
	if assign.Operator != "+=" || len(assign.Target.Access) != 2 || !assign.Target.Access[1].IsIndex() {
		t.Fatalf("unexpected assignment %+v", assign)
	}
	if c := assign.Value.(*CharLiteral); c.Value != 'c' {
		t.Fatalf("unexpected char %q", c.Value)
	}

	call := prog.Statements[5].(*FunctionCall)
	callee := call.Callee.(*Identifier)
	if callee.Namespace != "math" || callee.Name != "sqrt" {
		t.Fatalf("unexpected callee %+v", callee)
	}
}

func TestDecodeStatementErrorsNameNode(t *testing.T) {
	_, err := DecodeStatement([]byte(`{"type": "Binary", "operator": "+", "left": {"type": "IntLiteral", "value": 1}}`))
	if err == nil || !strings.Contains(err.Error(), "Binary") {
		t.Fatalf("expected error naming Binary, got %v", err)
	}
	_, err = DecodeStatement([]byte(`{"type": "Mystery"}`))
	if err == nil || !strings.Contains(err.Error(), "Mystery") {
		t.Fatalf("expected error naming Mystery, got %v", err)
	}
}

func TestTypeSpecShape(t *testing.T) {
	spec := ArrTy(types.Int, Int(3), nil)
	shape := spec.Shape()
	if shape.Type != types.Array || len(shape.Dim) != 2 || shape.UseRef {
		t.Fatalf("unexpected shape %+v", shape)
	}
	var nilSpec *TypeSpec
	if nilSpec.Shape().Type != types.Any {
		t.Fatalf("missing type spec should declare any")
	}
	structShape := StructTy("Point").Shape()
	if !structShape.UseRef {
		t.Fatalf("struct type specs are reference-like")
	}
}

func TestUnknownTypeNameIsStruct(t *testing.T) {
	stmt, err := DecodeStatement([]byte(`{"type": "Declaration", "identifier": "p", "typeSpec": {"kind": "Point", "namespace": "geo"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decl := stmt.(*Declaration)
	if decl.TypeSpec.Type != types.Struct || decl.TypeSpec.TypeName != "Point" || decl.TypeSpec.TypeNamespace != "geo" {
		t.Fatalf("unexpected spec %+v", decl.TypeSpec)
	}
}
