package heap

import "j5.nz/ovm/internal/value"

// cell is the generic representation of every heap object: the two-word
// header (meta flags + class address) described in spec §4.B, a slice
// of GC-scanned child references ("fields" — attribute slots, container
// elements, small integers stored inline), and an opaque non-scanned
// native payload (boxed int/float bits, raw string bytes, bytecode,
// native Go closures — spec's "native fields not scanned automatically").
//
// Every Value-typed reference an object needs to expose to the GC must
// live in Fields; Native is never walked. This lets the collector be
// written once, generically, instead of per concrete type.
type cell struct {
	meta   metaFlags
	class  value.Value
	Fields []value.Value
	Native any

	addr    value.Value // this cell's own current address
	forward value.Value // set mid-GC when this cell has moved; zero otherwise

	// finalizerCalled guards against double-invocation when a cell is
	// both swept and, on the same pass, reachable through a stale root.
	finalizerCalled bool
}

type metaFlags struct {
	oldGen        bool
	survivedOnce  bool
	large         bool
	mark          bool
	remembered    bool // old cell known to point at a young object
	bigYoungRef   bool // big-space node known to point at a young object
}

func newCell(class value.Value, fieldCount int) *cell {
	c := &cell{class: class}
	if fieldCount > 0 {
		c.Fields = make([]value.Value, fieldCount)
	}
	return c
}

func (c *cell) hasForwarded() bool { return c.forward != value.Nil }
