package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Format renders v the way print and string() show it.
func Format(v *Value) string {
	var b strings.Builder
	format(&b, v, make(map[*Value]bool), false)
	return b.String()
}

func format(b *strings.Builder, v *Value, seen map[*Value]bool, quoted bool) {
	if v == nil {
		b.WriteString("null")
		return
	}
	switch v.Type {
	case types.Undefined:
		b.WriteString("undefined")
	case types.Void:
		b.WriteString("null")
	case types.Bool:
		b.WriteString(strconv.FormatBool(v.b))
	case types.Int:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case types.Float:
		b.WriteString(FormatFloat(v.f))
	case types.Char:
		if quoted {
			fmt.Fprintf(b, "'%c'", v.c)
			return
		}
		b.WriteRune(v.c)
	case types.String:
		if quoted {
			b.WriteString(strconv.Quote(v.s))
			return
		}
		b.WriteString(v.s)
	case types.Function:
		b.WriteString("function<")
		if v.fn.Namespace != "" && v.fn.Namespace != types.DefaultNamespace {
			b.WriteString(v.fn.Namespace)
			b.WriteString("::")
		}
		b.WriteString(v.fn.Identifier)
		b.WriteString(">")
	case types.Array:
		if seen[v] {
			b.WriteString("{...}")
			return
		}
		seen[v] = true
		b.WriteString("{")
		for idx, elem := range v.arr {
			if idx > 0 {
				b.WriteString(", ")
			}
			format(b, elem, seen, true)
		}
		b.WriteString("}")
		delete(seen, v)
	case types.Struct:
		if seen[v] {
			b.WriteString(v.TypeName)
			b.WriteString("{...}")
			return
		}
		seen[v] = true
		b.WriteString(types.BuildTypeString(&v.Shape))
		b.WriteString("{")
		for idx, name := range v.fieldOrder {
			if idx > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			format(b, v.fields[name], seen, true)
		}
		b.WriteString("}")
		delete(seen, v)
	default:
		b.WriteString(v.Type.String())
	}
}

// FormatFloat renders a float so that integral values keep a fraction digit.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

// Equal compares two values structurally. Arrays compare element-wise and
// structs compare their identity and every field; cycles compare equal when
// the same pair is revisited.
func Equal(a, b *Value) bool {
	return equal(a, b, make(map[[2]*Value]bool))
}

func equal(a, b *Value, seen map[[2]*Value]bool) bool {
	if a == b {
		return true
	}
	if a.IsVoidOrUndefined() || b.IsVoidOrUndefined() {
		return a.IsVoidOrUndefined() && b.IsVoidOrUndefined()
	}
	if a.Type.IsNumeric() && b.Type.IsNumeric() {
		if a.Type == types.Int && b.Type == types.Int {
			return a.i == b.i
		}
		return AsFloat(a) == AsFloat(b)
	}
	if a.Type.IsTextual() && b.Type.IsTextual() {
		return AsString(a) == AsString(b)
	}
	if a.Type != b.Type {
		return false
	}
	key := [2]*Value{a, b}
	if seen[key] {
		return true
	}
	seen[key] = true
	switch a.Type {
	case types.Bool:
		return a.b == b.b
	case types.Function:
		return a.fn == b.fn
	case types.Array:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for idx := range a.arr {
			if !equal(a.arr[idx], b.arr[idx], seen) {
				return false
			}
		}
		return true
	case types.Struct:
		if !types.MatchStruct(&a.Shape, &b.Shape) || len(a.fields) != len(b.fields) {
			return false
		}
		for name, field := range a.fields {
			other, ok := b.fields[name]
			if !ok || !equal(field, other, seen) {
				return false
			}
		}
		return true
	}
	return false
}

// AsFloat widens a numeric value.
func AsFloat(v *Value) float64 {
	if v.Type == types.Int {
		return float64(v.i)
	}
	return v.f
}

// AsString promotes a textual value.
func AsString(v *Value) string {
	if v.Type == types.Char {
		return string(v.c)
	}
	return v.s
}
