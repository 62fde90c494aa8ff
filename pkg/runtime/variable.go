package runtime

import (
	"github.com/flexa-script/interpreter-sub000/pkg/gc"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// Variable is a named slot with a declared shape. It is not heap-allocated:
// the scope that declares it owns it, and it reaches the collector as a
// weak variable root.
type Variable struct {
	types.Shape

	Identifier string
	Const      bool

	hdr    gc.Header
	value  *Value
	handle *gc.Weak[gc.Object]
}

// NewVariable returns an unbound variable of the given declared shape.
func NewVariable(identifier string, shape types.Shape) *Variable {
	v := &Variable{Shape: shape.Clone(), Identifier: identifier}
	v.handle = gc.NewWeak[gc.Object](v)
	return v
}

// GCHeader implements gc.Object.
func (v *Variable) GCHeader() *gc.Header { return &v.hdr }

// References reports the bound value.
func (v *Variable) References() []gc.Object {
	if v.value == nil {
		return nil
	}
	return []gc.Object{v.value}
}

// Handle is the weak reference registered as a variable root and stamped
// onto bound values.
func (v *Variable) Handle() *gc.Weak[gc.Object] { return v.handle }

// Value returns the bound value.
func (v *Variable) Value() *Value { return v.value }

// Bind makes val the variable's value. A value shared through ref keeps
// reporting the first variable that still holds it.
func (v *Variable) Bind(val *Value) {
	v.value = val
	if val == nil {
		return
	}
	if _, ok := val.Owner(); !ok {
		val.owner = v.handle
	}
}

// Release expires the variable's handle once its scope is gone.
func (v *Variable) Release() {
	v.handle.Expire()
}

// Released reports whether Release has been called.
func (v *Variable) Released() bool {
	return v.handle.Expired()
}
