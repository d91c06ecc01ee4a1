package heap

import "j5.nz/ovm/internal/value"

// WeakOp mirrors VisitOp for weak-reference containers (spec §4.E: "the
// same shape exists for weak-reference containers with its own op-code
// set (finalize, finalize-young, move)").
type WeakOp int

const (
	// WeakFinalizeYoung: drop entries whose target is an unreachable
	// young object (fast GC).
	WeakFinalizeYoung WeakOp = iota
	// WeakFinalize: drop entries whose target is unreachable at all
	// (full GC).
	WeakFinalize
	// WeakMove: rewrite entries whose target relocated.
	WeakMove
)

// WeakQuery is supplied to a WeakVisitor. In a finalize pass it reports
// whether v's target is still alive; in WeakMove it returns v's current
// address.
type WeakQuery func(v value.Value) (alive bool, current value.Value)

// WeakVisitor is implemented by containers that hold non-owning
// references (e.g. the symbol pool) and must cooperate with GC to drop
// or rewrite entries rather than keeping their targets alive forever.
type WeakVisitor func(op WeakOp, query WeakQuery)

type weakEntry struct {
	handle  any
	visitor WeakVisitor
}

// AddWeakRoot registers a weak-reference container.
func (h *Heap) AddWeakRoot(handle any, visitor WeakVisitor) {
	h.weaks = append(h.weaks, weakEntry{handle: handle, visitor: visitor})
}

// RemoveWeakRoot unregisters one.
func (h *Heap) RemoveWeakRoot(handle any) {
	for i, w := range h.weaks {
		if w.handle == handle {
			h.weaks = append(h.weaks[:i], h.weaks[i+1:]...)
			return
		}
	}
}

// query implements WeakQuery against a live mark/moved state.
func (h *Heap) weakQueryAlive(markedOnly bool) WeakQuery {
	return func(v value.Value) (bool, value.Value) {
		if value.IsSmallInt(v) || v == value.Nil {
			return true, v
		}
		c := h.resolve(v)
		if c == nil {
			return false, v
		}
		if markedOnly {
			return c.meta.mark, v
		}
		// finalize-young: old/big targets are always alive this cycle.
		if c.meta.oldGen {
			return true, v
		}
		return c.meta.mark, v
	}
}

func (h *Heap) weakQueryMove(moved map[value.Value]value.Value) WeakQuery {
	return func(v value.Value) (bool, value.Value) {
		if nv, ok := moved[v]; ok {
			return true, nv
		}
		return true, v
	}
}
