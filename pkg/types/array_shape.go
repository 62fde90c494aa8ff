package types

// ComposeArrayShape derives the shape of an array literal from the shapes of
// its elements. The element kind is the first concrete scalar kind seen and
// collapses to any when a later element disagrees. Void and undefined
// elements never influence the result. When every concrete element is an
// array the axis vector is the literal length followed by the merged child
// axes; axes on which children disagree become unconstrained. Scalars mixed
// with nested arrays at the same depth produce any with a single axis.
func ComposeArrayShape(elems []*Shape) Shape {
	out := Shape{Type: Array, ArrayType: Undefined, Dim: []int{len(elems)}}
	var (
		scalars, arrays int
		childDim        []int
		rankMismatch    bool
		forceAny        bool
	)
	merge := func(t Type, name, namespace string) {
		if forceAny || t == Undefined {
			return
		}
		if t == Any {
			forceAny = true
			return
		}
		if out.ArrayType == Undefined {
			out.ArrayType = t
			out.TypeName = name
			out.TypeNamespace = namespace
			return
		}
		if out.ArrayType != t {
			forceAny = true
			return
		}
		if t == Struct && (out.TypeName != name || normalizeNamespace(out.TypeNamespace) != normalizeNamespace(namespace)) {
			forceAny = true
		}
	}
	for _, elem := range elems {
		if elem == nil || elem.Type == Undefined || elem.Type == Void {
			continue
		}
		if elem.Type == Array {
			arrays++
			if elem.ArrayType != Undefined {
				merge(elem.ArrayType, elem.TypeName, elem.TypeNamespace)
			}
			switch {
			case childDim == nil:
				childDim = append([]int(nil), elem.Dim...)
			case len(childDim) != len(elem.Dim):
				rankMismatch = true
			default:
				for i := range childDim {
					if childDim[i] != elem.Dim[i] {
						childDim[i] = 0
					}
				}
			}
			continue
		}
		scalars++
		if elem.Type == Any {
			continue
		}
		merge(elem.Type, elem.TypeName, elem.TypeNamespace)
	}
	if scalars > 0 && arrays > 0 {
		return anyArray(len(elems))
	}
	if arrays > 0 {
		if rankMismatch {
			return anyArray(len(elems))
		}
		out.Dim = append(out.Dim, childDim...)
	}
	if forceAny {
		out.ArrayType = Any
		out.TypeName = ""
		out.TypeNamespace = ""
	}
	out.ResetRef()
	return out
}

func anyArray(size int) Shape {
	return ArrayShape(Any, size)
}
