package gc

// Weak is a revocable non-owning reference. The holder of the target expires
// it when the target leaves its owning scope; every reader must check Get's
// second result.
type Weak[T any] struct {
	target  T
	expired bool
}

// NewWeak wraps target in a live weak reference.
func NewWeak[T any](target T) *Weak[T] {
	return &Weak[T]{target: target}
}

// Get resolves the reference. ok is false once the reference has expired.
func (w *Weak[T]) Get() (T, bool) {
	if w == nil || w.expired {
		var zero T
		return zero, false
	}
	return w.target, true
}

// Expire drops the target. It is safe to call more than once.
func (w *Weak[T]) Expire() {
	if w == nil {
		return
	}
	var zero T
	w.target = zero
	w.expired = true
}

// Expired reports whether Get would fail.
func (w *Weak[T]) Expired() bool {
	return w == nil || w.expired
}
