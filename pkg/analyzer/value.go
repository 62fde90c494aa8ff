package analyzer

import (
	"hash/fnv"
	"math"
	"strconv"

	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// SemanticValue is the analysis-time view of a value: its shape plus what
// is known statically about it. Hash is non-zero only for constant
// primitives; equal constants of the same kind hash equally.
type SemanticValue struct {
	types.Shape

	Hash    uint64
	IsConst bool
	IsSub   bool
}

func newSemanticValue(shape types.Shape) *SemanticValue {
	return &SemanticValue{Shape: shape}
}

func anyValue() *SemanticValue {
	return newSemanticValue(types.NewShape(types.Any))
}

func constValue(t types.Type, repr string) *SemanticValue {
	h := fnv.New64a()
	h.Write([]byte(t.String()))
	h.Write([]byte{0})
	h.Write([]byte(repr))
	return &SemanticValue{Shape: types.NewShape(t), Hash: h.Sum64(), IsConst: true}
}

func floatRepr(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Describe renders the shape for diagnostics.
func (v *SemanticValue) Describe() string {
	return types.BuildTypeString(&v.Shape)
}

// SemanticVariable is a declared name during analysis. Shape is the
// declared slot; Value is the last value known to flow into it.
type SemanticVariable struct {
	types.Shape

	Identifier string
	IsConst    bool
	Value      *SemanticValue
}

func newSemanticVariable(name string, shape types.Shape, value *SemanticValue, isConst bool) *SemanticVariable {
	if value == nil {
		value = newSemanticValue(shape)
	}
	return &SemanticVariable{Shape: shape, Identifier: name, IsConst: isConst, Value: value}
}

// effective is the shape reads of the variable produce: the declared shape,
// or the held value's shape for untyped slots.
func (v *SemanticVariable) effective() types.Shape {
	if v.Type == types.Any && v.Value != nil && !v.IsConst {
		return types.NewShape(types.Any)
	}
	if v.Type == types.Any && v.Value != nil {
		return v.Value.Shape
	}
	return v.Shape
}
