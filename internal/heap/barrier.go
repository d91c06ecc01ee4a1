package heap

import "j5.nz/ovm/internal/value"

// AssertNoYoungRef is the debug-only omission-proof hook described in
// spec §9 ("Write barrier omission proofs"): immutable constructors
// (e.g. a tuple built from already-initialized, known-non-young
// elements) may skip SetField's barrier bookkeeping by writing fields
// directly and calling this instead, which panics in builds that want
// the invariant checked rather than silently trusting the proof. It is
// a no-op unless DebugAssertions is enabled, matching spec's "Write-
// barrier omissions are debug-only assertions" failure semantics.
var DebugAssertions = false

func (h *Heap) AssertNoYoungRef(holder value.Value, fieldVal value.Value) {
	if !DebugAssertions {
		return
	}
	c := h.resolve(holder)
	if c == nil || !c.meta.oldGen {
		return
	}
	target := h.resolve(fieldVal)
	if target != nil && !target.meta.oldGen {
		panic("heap: write-barrier omission proof violated: old object references young value without recording it")
	}
}
