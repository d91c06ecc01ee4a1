package heap

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/value"
)

// sliceRoot is a minimal RootVisitor implementation used by tests to
// stand in for the call stack / module globals / symbol table.
type sliceRoot struct{ slots []value.Value }

func (r *sliceRoot) visitor(op VisitOp, visit VisitFunc) {
	for i, v := range r.slots {
		switch op {
		case VisitMarkRecYoung, VisitMarkRec:
			visit(v)
		case VisitMove:
			r.slots[i] = visit(v)
		}
	}
}

func newFixtureClass(h *Heap) value.Value {
	return h.Alloc(PolicySurvivor, value.Nil, 0)
}

func TestFieldReadWriteRoundTrip(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	obj := h.Alloc(PolicyAuto, class, 3)
	h.SetField(obj, 0, value.FromSmallInt(7))
	h.SetField(obj, 1, value.FromSmallInt(-3))
	require.Equal(t, int64(7), value.ToSmallInt(h.GetField(obj, 0)))
	require.Equal(t, int64(-3), value.ToSmallInt(h.GetField(obj, 1)))
	require.Equal(t, value.Nil, h.GetField(obj, 2))
	require.Equal(t, 3, h.FieldCount(obj))
}

func TestAppendFieldGrows(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	arr := h.Alloc(PolicyAuto, class, 0)
	idx := h.AppendField(arr, value.FromSmallInt(1))
	require.Equal(t, 0, idx)
	idx = h.AppendField(arr, value.FromSmallInt(2))
	require.Equal(t, 1, idx)
	require.Equal(t, 2, h.FieldCount(arr))
}

func TestWriteBarrierRecordsRememberedSet(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	old := h.Alloc(PolicySurvivor, class, 1)
	young := h.Alloc(PolicyAuto, class, 0)
	require.True(t, h.IsOld(old))
	require.False(t, h.IsOld(young))

	h.SetField(old, 0, young)

	_, slot := splitAddr(old)
	require.True(t, h.olds.isRemembered(slot))
}

func TestFastGCReclaimsUnreachableYoung(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	root := &sliceRoot{}
	h.AddGCRoot(root, root.visitor)

	kept := h.Alloc(PolicyAuto, class, 0)
	_ = h.Alloc(PolicyAuto, class, 0) // unreachable garbage
	root.slots = []value.Value{kept}

	h.FastGC(nil)

	require.Equal(t, 1, h.Stats().FastGCs)
	// kept must still resolve after the root rewrite.
	require.NotEqual(t, value.Nil, root.slots[0])
	require.True(t, h.FieldCount(root.slots[0]) >= 0)
}

func TestFastGCPromotesOnSecondSurvival(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	root := &sliceRoot{}
	h.AddGCRoot(root, root.visitor)

	obj := h.Alloc(PolicyAuto, class, 0)
	root.slots = []value.Value{obj}

	h.FastGC(nil)
	sp, _ := splitAddr(root.slots[0])
	require.Equal(t, spaceNew, sp)
	require.False(t, h.IsOld(root.slots[0]))

	h.FastGC(nil)
	sp, _ = splitAddr(root.slots[0])
	require.Equal(t, spaceOld, sp)
	require.True(t, h.IsOld(root.slots[0]))
}

func TestFastGCFollowsRememberedSetIntoYoung(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	root := &sliceRoot{}
	h.AddGCRoot(root, root.visitor)

	old := h.Alloc(PolicySurvivor, class, 1)
	young := h.Alloc(PolicyAuto, class, 0)
	h.SetField(old, 0, young)
	root.slots = []value.Value{old} // only reachable via the old object

	h.FastGC(nil)

	got := h.GetField(root.slots[0], 0)
	require.NotEqual(t, value.Nil, got)
	require.Equal(t, 0, h.FieldCount(got))

	// A young object reached only through an old holder's remembered-set
	// entry must be forced into promotion in the same cycle (the entry
	// is cleared unconditionally afterward) — otherwise it sits in new
	// space with no remembered-set entry pointing at it, and the next
	// FastGC's root/remembered-set scan never reaches it again. Run a
	// second cycle with nothing else keeping it alive and confirm it's
	// still there, not collected out from under the old object's field.
	h.FastGC(nil)

	got2 := h.GetField(root.slots[0], 0)
	require.NotEqual(t, value.Nil, got2)
	require.Equal(t, 0, h.FieldCount(got2))
}

func TestFullGCClearsMarkAndRememberedAfterRun(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	root := &sliceRoot{}
	h.AddGCRoot(root, root.visitor)

	old := h.Alloc(PolicySurvivor, class, 1)
	young := h.Alloc(PolicyAuto, class, 0)
	h.SetField(old, 0, young)
	root.slots = []value.Value{old}

	h.FullGC(nil)

	require.Equal(t, 1, h.Stats().FullGCs)
	for _, c := range h.olds.slots {
		require.False(t, c.meta.mark)
	}
	require.Empty(t, h.olds.remembered)
}

// TestTraceLogsOneLinePerCollection covers the "M" VERBOSE subsystem
// (spec §6 sysctl): once a logger is installed, every FastGC/FullGC
// writes one line to it, and removing the logger (SetTrace(nil))
// silences further runs.
func TestTraceLogsOneLinePerCollection(t *testing.T) {
	h := New()
	var buf bytes.Buffer
	h.SetTrace(log.New(&buf, "M test: ", 0))

	h.FastGC(nil)
	require.Contains(t, buf.String(), "FastGC #1")

	h.FullGC(nil)
	require.Contains(t, buf.String(), "FullGC #1")

	buf.Reset()
	h.SetTrace(nil)
	h.FastGC(nil)
	require.Empty(t, buf.String())
}

func TestNoGCSuppressesCollection(t *testing.T) {
	h := New()
	class := newFixtureClass(h)
	h.NoGC()
	defer h.EndNoGC()
	_ = h.Alloc(PolicyAuto, class, 0)
	before := h.Stats().FastGCs
	h.FastGC(nil)
	require.Equal(t, before, h.Stats().FastGCs)
}
