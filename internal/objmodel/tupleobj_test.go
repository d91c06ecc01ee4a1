package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestTupleInnerGetLen(t *testing.T) {
	r := NewRegistry(heap.New())
	tup := r.NewTuple(value.FromSmallInt(1), value.FromSmallInt(2), value.FromSmallInt(3))
	require.Equal(t, 3, r.TupleLen(tup))
	require.Equal(t, int64(2), value.ToSmallInt(r.TupleGet(tup, 1)))
}

func TestTupleConcatWalksBothSides(t *testing.T) {
	r := NewRegistry(heap.New())
	a := r.NewTuple(value.FromSmallInt(1), value.FromSmallInt(2))
	b := r.NewTuple(value.FromSmallInt(3))
	cons := r.TupleConcat(a, b)
	require.Equal(t, 3, r.TupleLen(cons))
	require.Equal(t, int64(1), value.ToSmallInt(r.TupleGet(cons, 0)))
	require.Equal(t, int64(3), value.ToSmallInt(r.TupleGet(cons, 2)))
}

func TestTupleSliceView(t *testing.T) {
	r := NewRegistry(heap.New())
	base := r.NewTuple(value.FromSmallInt(10), value.FromSmallInt(20), value.FromSmallInt(30))
	sl := r.TupleSliceOf(base, 1, 2)
	require.Equal(t, 2, r.TupleLen(sl))
	require.Equal(t, int64(20), value.ToSmallInt(r.TupleGet(sl, 0)))
	require.Equal(t, int64(30), value.ToSmallInt(r.TupleGet(sl, 1)))
}
