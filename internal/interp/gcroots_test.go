package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/objmodel"
	"j5.nz/ovm/internal/value"
)

// TestRunningFrameSurvivesFullGC proves a function executing several
// levels deep stays alive through a full collection even though, once
// its own call's operand slots are consumed, its only reachable
// reference is the call-stack frame chain (VisitFrameFns), not the
// module const pool or anything else already rooted.
func TestRunningFrameSurvivesFullGC(t *testing.T) {
	it := newFixture(t)
	it.H.AddGCRoot(it.Reg, it.Reg.VisitRoots)
	it.H.AddGCRoot(it, it.VisitRoots)

	// A native function that triggers a full GC mid-call, then returns
	// its own string argument — proving the argument value (reachable
	// only via the operand stack at the moment of collection) survives.
	echoAfterGC := it.Reg.NewNativeFunction(func(r *objmodel.Registry, args []value.Value) (value.Value, value.Value) {
		it.H.FullGC(nil)
		return args[0], value.Nil
	}, 1, 0)

	// inner(s) { return echoAfterGC(s) } — a script frame sitting
	// between the caller and the native call, reachable only through
	// the frame chain once its own arg slot area is truncated by Call.
	inner := asmFunction(t, it, []value.Value{echoAfterGC}, nil, []byte{
		byte(OpLdCnst), 0,
		byte(OpLdArg), 0,
		byte(OpCall), 1,
		byte(OpRet),
	}, 1, 0)

	payload := it.Reg.NewString("still here after gc")
	result, exc := it.Invoke(inner, []value.Value{payload})
	require.Equal(t, value.Nil, exc)
	require.Equal(t, "still here after gc", it.Reg.StringGoString(result))
}

// TestCurFnSurvivesCompactionMidCall targets curFn/curMod specifically:
// it forces a full GC to actually slide new-space slot indices (by
// leaving unrooted garbage allocated ahead of the running function in
// allocation order) while a native call is in progress, then resumes
// executing further opcodes — LdCnst against the second constant slot
// — in the very frame whose function cell just moved. If curFn weren't
// rewritten by VisitRoots's VisitMove pass, this read would dereference
// a stale pre-compaction address instead of the caller's actual const
// pool.
func TestCurFnSurvivesCompactionMidCall(t *testing.T) {
	it := newFixture(t)
	it.H.AddGCRoot(it.Reg, it.Reg.VisitRoots)
	it.H.AddGCRoot(it, it.VisitRoots)

	// Unrooted new-space garbage allocated before the function under
	// test, so a full GC's slot-index reassignment actually shifts the
	// running function's cell down rather than leaving it in place.
	for j := 0; j < 8; j++ {
		it.H.Alloc(heap.PolicyAuto, it.Reg.ObjectClass, 0)
	}

	triggerGC := it.Reg.NewNativeFunction(func(r *objmodel.Registry, args []value.Value) (value.Value, value.Value) {
		it.H.FullGC(nil)
		return args[0], value.Nil
	}, 1, 0)

	marker := it.Reg.NewString("second constant after compaction")
	// fn(s) { triggerGC(s); return <marker const> }
	fn := asmFunction(t, it, []value.Value{triggerGC, marker}, nil, []byte{
		byte(OpLdCnst), 0,
		byte(OpLdArg), 0,
		byte(OpCall), 1,
		byte(OpDrop),
		byte(OpLdCnst), 1,
		byte(OpRet),
	}, 1, 0)

	result, exc := it.Invoke(fn, []value.Value{value.FromSmallInt(1)})
	require.Equal(t, value.Nil, exc)
	require.Equal(t, "second constant after compaction", it.Reg.StringGoString(result))
}
