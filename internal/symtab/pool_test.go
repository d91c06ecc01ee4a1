package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func newFixturePool(t *testing.T) (*heap.Heap, *Pool) {
	t.Helper()
	h := heap.New()
	class := h.Alloc(heap.PolicySurvivor, value.Nil, 0)
	factory := func(s string) value.Value {
		v := h.Alloc(heap.PolicySurvivor, class, 0)
		h.SetNative(v, s)
		return v
	}
	return h, New(h, factory)
}

func TestInternDeduplicatesByBytes(t *testing.T) {
	h, p := newFixturePool(t)
	a := p.Intern("foo")
	b := p.Intern("foo")
	c := p.Intern("bar")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, "foo", h.Native(a))
}

func TestLookupWithoutAllocating(t *testing.T) {
	_, p := newFixturePool(t)
	_, ok := p.Lookup("missing")
	require.False(t, ok)
	p.Intern("present")
	v, ok := p.Lookup("present")
	require.True(t, ok)
	require.NotEqual(t, value.Nil, v)
}

func TestPoolMoveTracksRootedSymbolAcrossFullGC(t *testing.T) {
	h, p := newFixturePool(t)
	sym := p.Intern("moves")

	// Something else must keep the symbol reachable, or the pool's own
	// weak finalize pass would correctly drop it.
	root := &stubRoot{v: sym}
	h.AddGCRoot(root, root.visit)

	h.FullGC(nil)

	got, ok := p.Lookup("moves")
	require.True(t, ok)
	require.Equal(t, root.v, got)
	require.Equal(t, "moves", h.Native(got))
}

func TestPoolDropsUnreachableSymbolOnFullGC(t *testing.T) {
	h, p := newFixturePool(t)
	p.Intern("gone")

	h.FullGC(nil)

	_, ok := p.Lookup("gone")
	require.False(t, ok)
}

type stubRoot struct{ v value.Value }

func (r *stubRoot) visit(op heap.VisitOp, visit heap.VisitFunc) {
	switch op {
	case heap.VisitMarkRec, heap.VisitMarkRecYoung:
		visit(r.v)
	case heap.VisitMove:
		r.v = visit(r.v)
	}
}
