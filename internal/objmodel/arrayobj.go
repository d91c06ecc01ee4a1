package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// NewArray builds a mutable array holding elems, stored directly as the
// cell's Fields (spec: "straightforward mutable container").
func (r *Registry) NewArray(elems ...value.Value) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.ArrayClass, 0)
	for _, e := range elems {
		r.H.AppendField(v, e)
	}
	return v
}

func (r *Registry) IsArray(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.ArrayClass
}

func (r *Registry) ArrayLen(v value.Value) int { return r.H.FieldCount(v) }

// normalizeIndex resolves negative indices counting back from the end
// (spec §3.1: "-1 is the last element").
func normalizeIndex(i, n int) int {
	if i < 0 {
		return n + i
	}
	return i
}

func (r *Registry) ArrayGet(v value.Value, i int) (value.Value, bool) {
	n := r.H.FieldCount(v)
	idx := normalizeIndex(i, n)
	if idx < 0 || idx >= n {
		return value.Nil, false
	}
	return r.H.GetField(v, idx), true
}

func (r *Registry) ArraySet(v value.Value, i int, val value.Value) bool {
	n := r.H.FieldCount(v)
	idx := normalizeIndex(i, n)
	if idx < 0 || idx >= n {
		return false
	}
	r.H.SetField(v, idx, val)
	return true
}

func (r *Registry) ArrayAppend(v, val value.Value) { r.H.AppendField(v, val) }

func (r *Registry) ArrayTruncate(v value.Value, n int) { r.H.TruncateFields(v, n) }
