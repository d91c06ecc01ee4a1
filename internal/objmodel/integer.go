package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// NewInt returns a small-int tagged Value when n fits the tagged range,
// and a boxed Int object otherwise. Boxed ints exist for literal
// construction and native-function results outside the small-int
// range; the interpreter's inline arithmetic fast path wraps modulo
// the word size rather than promoting to a boxed int on overflow (see
// DESIGN.md's Open Questions entry).
func (r *Registry) NewInt(n int64) value.Value {
	if value.InSmallIntRange(n) {
		return value.FromSmallInt(n)
	}
	v := r.H.Alloc(heap.PolicySurvivor, r.IntClass, 0)
	r.H.SetNative(v, n)
	return v
}

func (r *Registry) IsInt(v value.Value) bool {
	if value.IsSmallInt(v) {
		return true
	}
	return !r.isSingleton(v) && r.H.ClassOf(v) == r.IntClass
}

// IntValue reads the numeric value of a small or boxed int. The caller
// must have checked IsInt first.
func (r *Registry) IntValue(v value.Value) int64 {
	if value.IsSmallInt(v) {
		return value.ToSmallInt(v)
	}
	n, _ := r.H.Native(v).(int64)
	return n
}

func (r *Registry) isSingleton(v value.Value) bool {
	return v == value.Nil || v == r.NilValue || v == r.TrueValue || v == r.FalseValue
}
