package types

// IsAnyOrMatch is true when either side is any/void, otherwise it defers to
// a non-strict Match.
func IsAnyOrMatch(lhs, rhs *Shape) bool {
	if lhs == nil || rhs == nil {
		return false
	}
	if lhs.IsAnyOrVoid() || rhs.IsAnyOrVoid() {
		return true
	}
	return Match(lhs, rhs, false, false)
}

// Match applies the per-kind compatibility rules. With strict unset, float
// accepts int and string accepts char. strictArray compares array element
// kinds exactly instead of letting any on either side match.
func Match(lhs, rhs *Shape, strict, strictArray bool) bool {
	if lhs == nil || rhs == nil {
		return false
	}
	switch lhs.Type {
	case Bool, Int, Char, Function:
		return rhs.Type == lhs.Type
	case Float:
		return rhs.Type == Float || (!strict && rhs.Type == Int)
	case String:
		return rhs.Type == String || (!strict && rhs.Type == Char)
	case Struct:
		return MatchStruct(lhs, rhs)
	case Array:
		return rhs.Type == Array && matchArray(lhs, rhs, strict, strictArray)
	default:
		return lhs.Type == rhs.Type
	}
}

// MatchStruct reports whether both shapes name the same struct in the same
// namespace.
func MatchStruct(lhs, rhs *Shape) bool {
	if lhs.Type != Struct || rhs.Type != Struct {
		return false
	}
	return lhs.TypeName == rhs.TypeName && normalizeNamespace(lhs.TypeNamespace) == normalizeNamespace(rhs.TypeNamespace)
}

func normalizeNamespace(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

func matchArray(lhs, rhs *Shape, strict, strictArray bool) bool {
	lelem := elementOf(lhs)
	relem := elementOf(rhs)
	var ok bool
	if strictArray {
		ok = lelem.Type == Any || Match(&lelem, &relem, strict, strictArray)
	} else {
		ok = IsAnyOrMatch(&lelem, &relem)
	}
	return ok && MatchArrayDim(lhs.Dim, rhs.Dim)
}

func elementOf(s *Shape) Shape {
	elem := s.ArrayType
	if elem == Undefined {
		elem = Any
	}
	out := Shape{Type: elem}
	if elem == Struct {
		out.TypeName = s.TypeName
		out.TypeNamespace = s.TypeNamespace
	}
	return out
}

// MatchArrayDim compares per-axis sizes. Empty vectors and single axes of
// size one or less are unconstrained; otherwise ranks must agree and every
// pair of non-zero axes must be equal.
func MatchArrayDim(lhs, rhs []int) bool {
	if len(lhs) == 0 || len(rhs) == 0 {
		return true
	}
	if (len(lhs) == 1 && lhs[0] <= 1) || (len(rhs) == 1 && rhs[0] <= 1) {
		return true
	}
	if len(lhs) != len(rhs) {
		return false
	}
	for i := range lhs {
		if lhs[i] == 0 || rhs[i] == 0 {
			continue
		}
		if lhs[i] != rhs[i] {
			return false
		}
	}
	return true
}

// AcceptsValue is the declaration and assignment rule: rhs may be stored in
// a slot declared as lhs.
func AcceptsValue(lhs, rhs *Shape) bool {
	if IsAnyOrMatch(lhs, rhs) {
		return true
	}
	return lhs.Type == Array && lhs.ArrayType != Any && Match(lhs, rhs, false, true)
}

// MatchSignature compares a parameter list against argument shapes. The
// strict pass requires Match with strict kinds; the loose pass lets any on
// either side through and permits numeric and textual widening. Parameters
// past the supplied arguments must be optional.
func MatchSignature(params []*Shape, optional []bool, args []*Shape, strict bool) bool {
	if len(args) > len(params) {
		return false
	}
	for idx, param := range params {
		if idx >= len(args) {
			if idx >= len(optional) || !optional[idx] {
				return false
			}
			continue
		}
		if strict {
			if !Match(param, args[idx], true, true) {
				return false
			}
			continue
		}
		if !IsAnyOrMatch(param, args[idx]) {
			return false
		}
	}
	return true
}
