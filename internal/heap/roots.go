package heap

import "j5.nz/ovm/internal/value"

// VisitOp tells a registered root or weak-reference visitor which pass
// of the collector is invoking it (spec §4.E "Roots and weak refs").
type VisitOp int

const (
	// VisitMarkRecYoung: recursively mark young objects reachable from
	// this root, ignoring edges into old objects (fast GC root scan).
	VisitMarkRecYoung VisitOp = iota
	// VisitMarkRec: recursively mark all reachable objects, no
	// generation filter (full GC root scan).
	VisitMarkRec
	// VisitMove: the previous collection relocated some objects; the
	// root must rewrite any held Value through the supplied function
	// and store the result back into its own storage.
	VisitMove
)

// VisitFunc is supplied by the collector to a RootVisitor/WeakVisitor
// callback. Its behavior depends on the active VisitOp: during mark
// passes it marks v's target (return value is v itself); during
// VisitMove it returns v's current (possibly forwarded) address, which
// the caller must persist.
type VisitFunc func(v value.Value) value.Value

// RootVisitor lets an external owner (call stack, symbol pool, class
// table, embedder registration) expose the Values it holds to the
// collector without the collector needing to understand its structure.
type RootVisitor func(op VisitOp, visit VisitFunc)

type rootEntry struct {
	handle  any
	visitor RootVisitor
}

// AddGCRoot registers a root visitor under handle, returning the handle
// for later RemoveGCRoot calls.
func (h *Heap) AddGCRoot(handle any, visitor RootVisitor) {
	h.roots = append(h.roots, rootEntry{handle: handle, visitor: visitor})
}

// RemoveGCRoot unregisters a previously-added root.
func (h *Heap) RemoveGCRoot(handle any) {
	for i, r := range h.roots {
		if r.handle == handle {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}
