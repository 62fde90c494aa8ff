package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// DecodeProgram reads one program in the parser's JSON form.
func DecodeProgram(r io.Reader) (*Program, error) {
	raw, err := readObject(r)
	if err != nil {
		return nil, err
	}
	if typ, _ := raw["type"].(string); typ != string(NodeProgram) {
		return nil, fmt.Errorf("expected Program node, got %q", typ)
	}
	stmts, err := decodeStatements(raw["statements"])
	if err != nil {
		return nil, err
	}
	name, _ := raw["name"].(string)
	namespace, _ := raw["namespace"].(string)
	var libs []string
	if libsRaw, ok := raw["libs"].([]any); ok {
		for _, lib := range libsRaw {
			s, ok := lib.(string)
			if !ok {
				return nil, fmt.Errorf("invalid program lib %T", lib)
			}
			libs = append(libs, s)
		}
	}
	prog := NewProgram(name, namespace, stmts, libs)
	applyPos(prog, raw)
	return prog, nil
}

// DecodeStatement decodes a single statement, as the REPL receives them.
func DecodeStatement(data []byte) (Statement, error) {
	raw, err := readObject(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return decodeStatement(raw)
}

func readObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode ast: empty document")
	}
	return raw, nil
}

func applyPos(n Node, raw map[string]any) {
	row, _ := intField(raw, "row")
	col, _ := intField(raw, "col")
	SetPos(n, int(row), int(col))
}

func intField(raw map[string]any, key string) (int64, bool) {
	switch v := raw[key].(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func asObject(raw any, what string) (map[string]any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid %s %T", what, raw)
	}
	return obj, nil
}

func decodeStatements(raw any) ([]Statement, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid statement list %T", raw)
	}
	out := make([]Statement, 0, len(list))
	for _, item := range list {
		obj, err := asObject(item, "statement")
		if err != nil {
			return nil, err
		}
		stmt, err := decodeStatement(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

func decodeStatement(raw map[string]any) (Statement, error) {
	node, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	stmt, ok := node.(Statement)
	if !ok {
		return nil, fmt.Errorf("%s is not a statement", node.NodeType())
	}
	return stmt, nil
}

func decodeExpression(raw any) (Expression, error) {
	if raw == nil {
		return nil, nil
	}
	obj, err := asObject(raw, "expression")
	if err != nil {
		return nil, err
	}
	node, err := decodeNode(obj)
	if err != nil {
		return nil, err
	}
	expr, ok := node.(Expression)
	if !ok {
		return nil, fmt.Errorf("%s is not an expression", node.NodeType())
	}
	return expr, nil
}

func decodeExpressions(raw any) ([]Expression, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid expression list %T", raw)
	}
	out := make([]Expression, 0, len(list))
	for _, item := range list {
		expr, err := decodeExpression(item)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func decodeBlock(raw any) (*Block, error) {
	if raw == nil {
		return nil, nil
	}
	obj, err := asObject(raw, "block")
	if err != nil {
		return nil, err
	}
	node, err := decodeNode(obj)
	if err != nil {
		return nil, err
	}
	block, ok := node.(*Block)
	if !ok {
		return nil, fmt.Errorf("expected Block, got %s", node.NodeType())
	}
	return block, nil
}

func decodeDeclaration(raw any) (*Declaration, error) {
	obj, err := asObject(raw, "declaration")
	if err != nil {
		return nil, err
	}
	node, err := decodeNode(obj)
	if err != nil {
		return nil, err
	}
	decl, ok := node.(*Declaration)
	if !ok {
		return nil, fmt.Errorf("expected Declaration, got %s", node.NodeType())
	}
	return decl, nil
}

func decodeDeclarations(raw any) ([]*Declaration, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid declaration list %T", raw)
	}
	out := make([]*Declaration, 0, len(list))
	for _, item := range list {
		decl, err := decodeDeclaration(item)
		if err != nil {
			return nil, err
		}
		out = append(out, decl)
	}
	return out, nil
}

func decodeBinder(raw any) (Binder, error) {
	if raw == nil {
		return nil, nil
	}
	obj, err := asObject(raw, "binder")
	if err != nil {
		return nil, err
	}
	node, err := decodeNode(obj)
	if err != nil {
		return nil, err
	}
	binder, ok := node.(Binder)
	if !ok {
		return nil, fmt.Errorf("%s cannot bind a value", node.NodeType())
	}
	return binder, nil
}

func decodeTypeName(raw any, what string) (types.Type, string, error) {
	name, ok := raw.(string)
	if !ok || name == "" {
		return types.Undefined, "", fmt.Errorf("missing %s", what)
	}
	t, known := types.ParseType(name)
	if !known {
		return types.Struct, name, nil
	}
	return t, "", nil
}

func decodeTypeSpec(raw any) (*TypeSpec, error) {
	if raw == nil {
		return nil, nil
	}
	obj, err := asObject(raw, "type spec")
	if err != nil {
		return nil, err
	}
	t, structName, err := decodeTypeName(obj["kind"], "type spec kind")
	if err != nil {
		return nil, err
	}
	spec := &TypeSpec{Type: t, TypeName: structName}
	if name, ok := obj["name"].(string); ok && name != "" {
		spec.TypeName = name
	}
	spec.TypeNamespace, _ = obj["namespace"].(string)
	if elemRaw, ok := obj["arrayType"]; ok && elemRaw != nil {
		elem, elemName, err := decodeTypeName(elemRaw, "array element type")
		if err != nil {
			return nil, err
		}
		spec.ArrayType = elem
		if elemName != "" {
			spec.TypeName = elemName
		}
	}
	if dimRaw, ok := obj["dim"].([]any); ok {
		spec.Dim = make([]Expression, 0, len(dimRaw))
		for _, d := range dimRaw {
			expr, err := decodeExpression(d)
			if err != nil {
				return nil, err
			}
			spec.Dim = append(spec.Dim, expr)
		}
	}
	return spec, nil
}

func decodeAccess(raw any) ([]*AccessStep, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid access chain %T", raw)
	}
	out := make([]*AccessStep, 0, len(list))
	for _, item := range list {
		obj, err := asObject(item, "access step")
		if err != nil {
			return nil, err
		}
		step := &AccessStep{}
		if field, ok := obj["field"].(string); ok {
			step.Field = field
		}
		if idx, ok := obj["index"]; ok && idx != nil {
			expr, err := decodeExpression(idx)
			if err != nil {
				return nil, err
			}
			step.Index = expr
		}
		if step.Field == "" && step.Index == nil {
			return nil, fmt.Errorf("access step needs a field or an index")
		}
		out = append(out, step)
	}
	return out, nil
}

func decodeNode(raw map[string]any) (Node, error) {
	typ, _ := raw["type"].(string)
	node, err := decodeNodeOfType(raw, NodeType(typ))
	if err != nil {
		if typ == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	applyPos(node, raw)
	return node, nil
}

func decodeNodeOfType(raw map[string]any, typ NodeType) (Node, error) {
	if node, ok, err := decodeStatementNodes(raw, typ); ok {
		return node, err
	}
	if node, ok, err := decodeExpressionNodes(raw, typ); ok {
		return node, err
	}
	if typ == "" {
		return nil, fmt.Errorf("node is missing its type")
	}
	return nil, fmt.Errorf("unsupported node type")
}

func decodeStatementNodes(raw map[string]any, typ NodeType) (Node, bool, error) {
	switch typ {
	case NodeUsing:
		lib, _ := raw["library"].(string)
		if lib == "" {
			return nil, true, fmt.Errorf("missing library")
		}
		return NewUsing(lib), true, nil
	case NodeIncludeNamespace:
		ns, _ := raw["namespace"].(string)
		return NewIncludeNamespace(ns), true, nil
	case NodeExcludeNamespace:
		ns, _ := raw["namespace"].(string)
		return NewExcludeNamespace(ns), true, nil
	case NodeDeclaration:
		id, _ := raw["identifier"].(string)
		if id == "" {
			return nil, true, fmt.Errorf("missing identifier")
		}
		isConst, _ := raw["const"].(bool)
		spec, err := decodeTypeSpec(raw["typeSpec"])
		if err != nil {
			return nil, true, err
		}
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		return NewDeclaration(id, isConst, spec, value), true, nil
	case NodeUnpackedDeclaration:
		spec, err := decodeTypeSpec(raw["typeSpec"])
		if err != nil {
			return nil, true, err
		}
		decls, err := decodeDeclarations(raw["declarations"])
		if err != nil {
			return nil, true, err
		}
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		return NewUnpackedDeclaration(spec, decls, value), true, nil
	case NodeDiscardBinder:
		return NewDiscardBinder(), true, nil
	case NodeAssignment:
		targetNode, err := decodeExpression(raw["target"])
		if err != nil {
			return nil, true, err
		}
		target, ok := targetNode.(*Identifier)
		if !ok {
			return nil, true, fmt.Errorf("assignment target must be an identifier")
		}
		op, _ := raw["operator"].(string)
		if op == "" {
			op = "="
		}
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		return NewAssignment(target, op, value), true, nil
	case NodeFunctionDefinition:
		id, _ := raw["identifier"].(string)
		params, err := decodeDeclarations(raw["params"])
		if err != nil {
			return nil, true, err
		}
		ret, err := decodeTypeSpec(raw["returnType"])
		if err != nil {
			return nil, true, err
		}
		body, err := decodeBlock(raw["body"])
		if err != nil {
			return nil, true, err
		}
		return NewFunctionDefinition(id, params, ret, body), true, nil
	case NodeStructDefinition:
		id, _ := raw["identifier"].(string)
		fields, err := decodeDeclarations(raw["fields"])
		if err != nil {
			return nil, true, err
		}
		return NewStructDefinition(id, fields), true, nil
	case NodeBlock:
		stmts, err := decodeStatements(raw["statements"])
		if err != nil {
			return nil, true, err
		}
		return NewBlock(stmts), true, nil
	case NodeIf:
		cond, err := decodeExpression(raw["condition"])
		if err != nil {
			return nil, true, err
		}
		then, err := decodeBlock(raw["then"])
		if err != nil {
			return nil, true, err
		}
		var elseIfs []*ElseIf
		if list, ok := raw["elseIfs"].([]any); ok {
			for _, item := range list {
				obj, err := asObject(item, "else if")
				if err != nil {
					return nil, true, err
				}
				c, err := decodeExpression(obj["condition"])
				if err != nil {
					return nil, true, err
				}
				b, err := decodeBlock(obj["body"])
				if err != nil {
					return nil, true, err
				}
				elseIfs = append(elseIfs, &ElseIf{Condition: c, Body: b})
			}
		}
		elseBlock, err := decodeBlock(raw["else"])
		if err != nil {
			return nil, true, err
		}
		return NewIf(cond, then, elseIfs, elseBlock), true, nil
	case NodeWhile, NodeDoWhile:
		cond, err := decodeExpression(raw["condition"])
		if err != nil {
			return nil, true, err
		}
		body, err := decodeBlock(raw["body"])
		if err != nil {
			return nil, true, err
		}
		if typ == NodeWhile {
			return NewWhile(cond, body), true, nil
		}
		return NewDoWhile(cond, body), true, nil
	case NodeFor:
		init, err := decodeStatements(raw["init"])
		if err != nil {
			return nil, true, err
		}
		cond, err := decodeExpression(raw["condition"])
		if err != nil {
			return nil, true, err
		}
		update, err := decodeStatements(raw["update"])
		if err != nil {
			return nil, true, err
		}
		body, err := decodeBlock(raw["body"])
		if err != nil {
			return nil, true, err
		}
		return NewFor(init, cond, update, body), true, nil
	case NodeForEach:
		binder, err := decodeBinder(raw["binder"])
		if err != nil {
			return nil, true, err
		}
		collection, err := decodeExpression(raw["collection"])
		if err != nil {
			return nil, true, err
		}
		body, err := decodeBlock(raw["body"])
		if err != nil {
			return nil, true, err
		}
		return NewForEach(binder, collection, body), true, nil
	case NodeSwitch:
		subject, err := decodeExpression(raw["subject"])
		if err != nil {
			return nil, true, err
		}
		var cases []*SwitchCase
		if list, ok := raw["cases"].([]any); ok {
			for _, item := range list {
				obj, err := asObject(item, "switch case")
				if err != nil {
					return nil, true, err
				}
				value, err := decodeExpression(obj["value"])
				if err != nil {
					return nil, true, err
				}
				body, err := decodeStatements(obj["body"])
				if err != nil {
					return nil, true, err
				}
				cases = append(cases, &SwitchCase{Value: value, Body: body})
			}
		}
		return NewSwitch(subject, cases), true, nil
	case NodeTryCatch:
		try, err := decodeBlock(raw["try"])
		if err != nil {
			return nil, true, err
		}
		binder, err := decodeBinder(raw["binder"])
		if err != nil {
			return nil, true, err
		}
		catch, err := decodeBlock(raw["catch"])
		if err != nil {
			return nil, true, err
		}
		return NewTryCatch(try, binder, catch), true, nil
	case NodeThrow:
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		return NewThrow(value), true, nil
	case NodeReturn:
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		return NewReturn(value), true, nil
	case NodeBreak:
		return NewBreak(), true, nil
	case NodeContinue:
		return NewContinue(), true, nil
	case NodeExit:
		code, err := decodeExpression(raw["code"])
		if err != nil {
			return nil, true, err
		}
		return NewExit(code), true, nil
	}
	return nil, false, nil
}

func decodeExpressionNodes(raw map[string]any, typ NodeType) (Node, bool, error) {
	switch typ {
	case NodeBoolLiteral:
		value, _ := raw["value"].(bool)
		return NewBoolLiteral(value), true, nil
	case NodeIntLiteral:
		value, ok := intField(raw, "value")
		if !ok {
			return nil, true, fmt.Errorf("invalid integer value")
		}
		return NewIntLiteral(value), true, nil
	case NodeFloatLiteral:
		num, ok := raw["value"].(json.Number)
		if !ok {
			return nil, true, fmt.Errorf("invalid float value")
		}
		value, err := num.Float64()
		if err != nil {
			return nil, true, err
		}
		return NewFloatLiteral(value), true, nil
	case NodeCharLiteral:
		s, _ := raw["value"].(string)
		if utf8.RuneCountInString(s) != 1 {
			return nil, true, fmt.Errorf("char literal must hold exactly one character")
		}
		r, _ := utf8.DecodeRuneInString(s)
		return NewCharLiteral(r), true, nil
	case NodeStringLiteral:
		value, _ := raw["value"].(string)
		return NewStringLiteral(value), true, nil
	case NodeNullLiteral:
		return NewNullLiteral(), true, nil
	case NodeArrayConstructor:
		elems, err := decodeExpressions(raw["elements"])
		if err != nil {
			return nil, true, err
		}
		return NewArrayConstructor(elems), true, nil
	case NodeStructConstructor:
		name, _ := raw["typeName"].(string)
		ns, _ := raw["typeNamespace"].(string)
		var fields []*FieldInit
		if list, ok := raw["fields"].([]any); ok {
			for _, item := range list {
				obj, err := asObject(item, "struct field")
				if err != nil {
					return nil, true, err
				}
				fieldName, _ := obj["name"].(string)
				value, err := decodeExpression(obj["value"])
				if err != nil {
					return nil, true, err
				}
				fields = append(fields, &FieldInit{Name: fieldName, Value: value})
			}
		}
		return NewStructConstructor(name, ns, fields), true, nil
	case NodeIdentifier:
		name, _ := raw["name"].(string)
		if name == "" {
			return nil, true, fmt.Errorf("missing name")
		}
		ns, _ := raw["namespace"].(string)
		access, err := decodeAccess(raw["access"])
		if err != nil {
			return nil, true, err
		}
		return NewIdentifier(ns, name, access), true, nil
	case NodeBinary:
		op, _ := raw["operator"].(string)
		left, err := decodeExpression(raw["left"])
		if err != nil {
			return nil, true, err
		}
		right, err := decodeExpression(raw["right"])
		if err != nil {
			return nil, true, err
		}
		if left == nil || right == nil {
			return nil, true, fmt.Errorf("binary %q needs two operands", op)
		}
		return NewBinary(op, left, right), true, nil
	case NodeUnary:
		op, _ := raw["operator"].(string)
		operand, err := decodeExpression(raw["operand"])
		if err != nil {
			return nil, true, err
		}
		if operand == nil {
			return nil, true, fmt.Errorf("unary %q needs an operand", op)
		}
		return NewUnary(op, operand), true, nil
	case NodeTernary:
		cond, err := decodeExpression(raw["condition"])
		if err != nil {
			return nil, true, err
		}
		then, err := decodeExpression(raw["then"])
		if err != nil {
			return nil, true, err
		}
		elseExpr, err := decodeExpression(raw["else"])
		if err != nil {
			return nil, true, err
		}
		return NewTernary(cond, then, elseExpr), true, nil
	case NodeFunctionCall:
		callee, err := decodeExpression(raw["callee"])
		if err != nil {
			return nil, true, err
		}
		if callee == nil {
			return nil, true, fmt.Errorf("missing callee")
		}
		args, err := decodeExpressions(raw["args"])
		if err != nil {
			return nil, true, err
		}
		access, err := decodeAccess(raw["access"])
		if err != nil {
			return nil, true, err
		}
		return NewFunctionCall(callee, args, access), true, nil
	case NodeTypeCast:
		target, _, err := decodeTypeName(raw["target"], "cast target")
		if err != nil {
			return nil, true, err
		}
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		return NewTypeCast(target, value), true, nil
	case NodeTypeOf, NodeRefID:
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		if typ == NodeTypeOf {
			return NewTypeOf(value), true, nil
		}
		return NewRefID(value), true, nil
	case NodeIn:
		value, err := decodeExpression(raw["value"])
		if err != nil {
			return nil, true, err
		}
		collection, err := decodeExpression(raw["collection"])
		if err != nil {
			return nil, true, err
		}
		return NewIn(value, collection), true, nil
	}
	return nil, false, nil
}
