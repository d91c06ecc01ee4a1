package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

type tupleKind uint8

const (
	tupleInner tupleKind = iota
	tupleSlice
	tupleCons
)

// tupleMeta mirrors stringMeta's tri-form, but over object references
// rather than bytes — those references live directly in Fields (for
// tupleInner, the elements themselves; for tupleSlice/tupleCons, the
// base/left/right pointers), since a tuple is immutable and so can
// store its elements as plain Fields without a container-specific
// mutation API.
type tupleMeta struct {
	kind           tupleKind
	offset, length int // tupleSlice only
}

func (r *Registry) tupleMeta(v value.Value) *tupleMeta {
	m, _ := r.H.Native(v).(*tupleMeta)
	return m
}

// NewTuple builds an inner (leaf) tuple holding elems verbatim.
func (r *Registry) NewTuple(elems ...value.Value) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.TupleClass, len(elems))
	for i, e := range elems {
		r.H.SetField(v, i, e)
	}
	r.H.SetNative(v, &tupleMeta{kind: tupleInner})
	return v
}

// TupleConcat builds a lazy cons node over two tuples.
func (r *Registry) TupleConcat(a, b value.Value) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.TupleClass, 2)
	r.H.SetField(v, 0, a)
	r.H.SetField(v, 1, b)
	r.H.SetNative(v, &tupleMeta{kind: tupleCons})
	return v
}

func (r *Registry) TupleSliceOf(base value.Value, offset, length int) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.TupleClass, 1)
	r.H.SetField(v, 0, base)
	r.H.SetNative(v, &tupleMeta{kind: tupleSlice, offset: offset, length: length})
	return v
}

func (r *Registry) IsTuple(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.TupleClass
}

func (r *Registry) TupleLen(v value.Value) int {
	m := r.tupleMeta(v)
	switch m.kind {
	case tupleInner:
		return r.H.FieldCount(v)
	case tupleSlice:
		return m.length
	case tupleCons:
		return r.TupleLen(r.H.GetField(v, 0)) + r.TupleLen(r.H.GetField(v, 1))
	}
	return 0
}

// TupleGet returns the i-th element (0-based), walking the rope.
func (r *Registry) TupleGet(v value.Value, i int) value.Value {
	m := r.tupleMeta(v)
	switch m.kind {
	case tupleInner:
		return r.H.GetField(v, i)
	case tupleSlice:
		return r.TupleGet(r.H.GetField(v, 0), m.offset+i)
	case tupleCons:
		left := r.H.GetField(v, 0)
		ll := r.TupleLen(left)
		if i < ll {
			return r.TupleGet(left, i)
		}
		return r.TupleGet(r.H.GetField(v, 1), i-ll)
	}
	return value.Nil
}
