package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestWellKnownClassesSurviveFullGCWithNoOtherRoot(t *testing.T) {
	h := heap.New()
	reg := NewRegistry(h)

	// Allocate enough old-space garbage to make a compaction actually
	// move things around, then run a full GC with no external root at
	// all — only Registry.VisitRoots (registered by NewRegistry's
	// caller in production; wired manually here) should keep the class
	// table and singletons alive.
	h.AddGCRoot(reg, reg.VisitRoots)
	for i := 0; i < 8; i++ {
		h.Alloc(heap.PolicySurvivor, reg.ObjectClass, 0)
	}

	h.FullGC(nil)

	require.True(t, reg.IsNil(reg.NilValue))
	require.Equal(t, "Object", reg.Classes.Name(reg.ObjectClass))
	require.Equal(t, "Int", reg.Classes.Name(reg.IntClass))
	obj := h.Alloc(heap.PolicyAuto, reg.ObjectClass, 0)
	require.Equal(t, reg.ObjectClass, h.ClassOf(obj))
}

func TestClassFinalizerRunsOnReclaim(t *testing.T) {
	h := heap.New()
	reg := NewRegistry(h)
	cls := reg.Classes.NewClass("Resource", reg.ObjectClass, false)

	var finalizedAddr value.Value
	reg.Classes.SetFinalizer(cls, func(_ *heap.Heap, obj value.Value) {
		finalizedAddr = obj
	})

	obj := h.Alloc(heap.PolicyAuto, cls, 0)
	h.FullGC(nil) // no root holds obj; it's garbage and must be finalized

	require.Equal(t, obj, finalizedAddr)
}
