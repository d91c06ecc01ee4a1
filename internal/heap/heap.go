// Package heap implements the VM's generational memory manager: three
// spaces (new, old, big), allocation policies, the write barrier, and
// the fast/full GC algorithms of SPEC_FULL.md §4.E.
package heap

import (
	"log"

	"j5.nz/ovm/internal/value"
)

// defaultNewLimit/defaultOldLimit are soft slot-count limits, standing
// in for the byte-size chunk limits of spec §4.E (our cells are
// individually Go-managed rather than packed into raw byte chunks — see
// DESIGN.md). defaultBigThreshold is the field count above which
// PolicyAuto routes to big space.
const (
	defaultNewLimit     = 4096
	defaultOldLimit      = 1 << 20
	defaultBigThreshold = 64
)

// Finalizer is invoked once for each object about to be reclaimed, if
// the object's class registered one. addr is the object's current
// address; the callback must not allocate.
type Finalizer func(classAddr, objAddr value.Value)

// Heap is the VM's memory manager. It is not safe for concurrent use;
// the VM is single-threaded and cooperative (spec §5).
type Heap struct {
	news *newSpace
	olds *oldSpace
	bigs *bigSpace

	bigThreshold int
	noGC         int // re-entrancy counter; >0 suppresses collection (§4.E)

	roots []rootEntry
	weaks []weakEntry

	finalize Finalizer

	stats Stats

	// trace is non-nil when sysctl VERBOSE has selected subsystem M
	// (spec §6); FastGC/FullGC write one short line to it per run.
	trace *log.Logger
}

// Stats exposes collection counters used by tests and the VERBOSE trace
// subsystem (sysctl "M").
type Stats struct {
	FastGCs int
	FullGCs int
}

// New creates a heap with default size limits.
func New() *Heap {
	return &Heap{
		news:         newNewSpace(defaultNewLimit),
		olds:         newOldSpace(defaultOldLimit),
		bigs:         newBigSpace(),
		bigThreshold: defaultBigThreshold,
	}
}

// SetFinalizer installs the callback objmodel uses to run class
// finalizers during sweep/reclaim.
func (h *Heap) SetFinalizer(f Finalizer) { h.finalize = f }

// SetTrace installs (or, with nil, removes) the logger FastGC/FullGC
// write their "M" VERBOSE trace line to (spec §6 sysctl VERBOSE).
func (h *Heap) SetTrace(l *log.Logger) { h.trace = l }

// Policy selects where an allocation request is placed (spec §4.E).
type Policy int

const (
	// PolicyAuto routes to new space unless the field count exceeds
	// the big-object threshold, in which case it routes to big space.
	PolicyAuto Policy = iota
	// PolicySurvivor allocates directly in old space (classes, symbols).
	PolicySurvivor
	// PolicyHuge always allocates in big space.
	PolicyHuge
)

// Alloc allocates a new object with the given class address and field
// count, per policy. Class objects pass their own address as classAddr
// == value.Nil only during bootstrap (see objmodel's class-of-classes
// recipe, spec §9); ordinary allocations always supply a real class.
func (h *Heap) Alloc(policy Policy, classAddr value.Value, fieldCount int) value.Value {
	switch policy {
	case PolicySurvivor:
		return h.allocOld(classAddr, fieldCount)
	case PolicyHuge:
		return h.allocBig(classAddr, fieldCount)
	default:
		if fieldCount > h.bigThreshold {
			return h.allocBig(classAddr, fieldCount)
		}
		return h.allocNew(classAddr, fieldCount)
	}
}

func (h *Heap) allocNew(classAddr value.Value, fieldCount int) value.Value {
	if h.news.full() && h.noGC == 0 {
		h.FastGC(nil)
	}
	c := newCell(classAddr, fieldCount)
	slot := len(h.news.active)
	h.news.active = append(h.news.active, c)
	c.addr = makeAddr(spaceNew, slot)
	return c.addr
}

func (h *Heap) allocOld(classAddr value.Value, fieldCount int) value.Value {
	c := newCell(classAddr, fieldCount)
	c.meta.oldGen = true
	slot := len(h.olds.slots)
	h.olds.slots = append(h.olds.slots, c)
	c.addr = makeAddr(spaceOld, slot)
	if h.olds.full() && h.noGC == 0 {
		h.FullGC(nil)
	}
	return c.addr
}

func (h *Heap) allocBig(classAddr value.Value, fieldCount int) value.Value {
	c := newCell(classAddr, fieldCount)
	c.meta.oldGen = true
	c.meta.large = true
	slot := h.bigs.put(c)
	c.addr = makeAddr(spaceBig, slot)
	return c.addr
}

// resolve returns the cell an address refers to, or nil if the slot is
// free (already reclaimed) — callers treat that as a programming error
// except during defensive reads.
func (h *Heap) resolve(v value.Value) *cell {
	if value.IsSmallInt(v) || v == value.Nil {
		return nil
	}
	sp, slot := splitAddr(v)
	switch sp {
	case spaceNew:
		if slot < len(h.news.active) {
			return h.news.active[slot]
		}
	case spaceOld:
		if slot < len(h.olds.slots) {
			return h.olds.slots[slot]
		}
	case spaceBig:
		if slot < len(h.bigs.slots) {
			return h.bigs.slots[slot]
		}
	}
	return nil
}

// ClassOf returns the class address stored in an object's header.
func (h *Heap) ClassOf(v value.Value) value.Value {
	c := h.resolve(v)
	if c == nil {
		return value.Nil
	}
	return c.class
}

// SetClass overwrites an object's class pointer; used only by the
// class-of-classes bootstrap (spec §9), which allocates the first class
// object with a placeholder class and then patches it to itself.
func (h *Heap) SetClass(v, classAddr value.Value) {
	if c := h.resolve(v); c != nil {
		c.class = classAddr
	}
}

// FieldCount reports how many Value-typed field slots an object has.
func (h *Heap) FieldCount(v value.Value) int {
	c := h.resolve(v)
	if c == nil {
		return 0
	}
	return len(c.Fields)
}

// GetField reads field i of v (0-based).
func (h *Heap) GetField(v value.Value, i int) value.Value {
	c := h.resolve(v)
	if c == nil || i < 0 || i >= len(c.Fields) {
		return value.Nil
	}
	return c.Fields[i]
}

// SetField writes field i of v, applying the write barrier (spec
// §4.E): if v's object is old and newVal points into new space, the
// holder is recorded in the remembered set (or flagged, for big space).
func (h *Heap) SetField(v value.Value, i int, newVal value.Value) {
	c := h.resolve(v)
	if c == nil || i < 0 || i >= len(c.Fields) {
		return
	}
	c.Fields[i] = newVal
	h.barrier(v, c, newVal)
}

// AppendField grows a container object's field slice by one and returns
// its index — used by array/tuple/map/set/string-rope append paths.
func (h *Heap) AppendField(v value.Value, newVal value.Value) int {
	c := h.resolve(v)
	if c == nil {
		return -1
	}
	c.Fields = append(c.Fields, newVal)
	idx := len(c.Fields) - 1
	h.barrier(v, c, newVal)
	return idx
}

// TruncateFields shrinks a container's field slice to n entries.
func (h *Heap) TruncateFields(v value.Value, n int) {
	if c := h.resolve(v); c != nil && n <= len(c.Fields) {
		c.Fields = c.Fields[:n]
	}
}

func (h *Heap) barrier(holder value.Value, c *cell, newVal value.Value) {
	if !c.meta.oldGen {
		return
	}
	target := h.resolve(newVal)
	if target == nil || target.meta.oldGen {
		return
	}
	sp, slot := splitAddr(holder)
	switch sp {
	case spaceOld:
		h.olds.markRemembered(slot)
	case spaceBig:
		c.meta.bigYoungRef = true
	}
}

// Native reads/writes the opaque non-scanned payload of an object
// (boxed int/float bits, raw string bytes, bytecode, native closures).
func (h *Heap) Native(v value.Value) any {
	if c := h.resolve(v); c != nil {
		return c.Native
	}
	return nil
}

func (h *Heap) SetNative(v value.Value, native any) {
	if c := h.resolve(v); c != nil {
		c.Native = native
	}
}

// IsOld/IsLarge/IsMarked expose header flags needed by §8's invariant
// tests and by the interpreter's inline fast paths.
func (h *Heap) IsOld(v value.Value) bool {
	c := h.resolve(v)
	return c != nil && c.meta.oldGen
}

func (h *Heap) IsLarge(v value.Value) bool {
	c := h.resolve(v)
	return c != nil && c.meta.large
}

// NoGC suppresses collection; EndNoGC resumes it (spec §5 re-entrancy:
// embedding code constructing a multi-step object graph brackets itself
// with this pair so a GC mid-construction can't see a half-built root).
func (h *Heap) NoGC()    { h.noGC++ }
func (h *Heap) EndNoGC() {
	if h.noGC > 0 {
		h.noGC--
	}
}

func (h *Heap) gcSuppressed() bool { return h.noGC > 0 }

// Stats returns a copy of the collection counters.
func (h *Heap) Stats() Stats { return h.stats }

// mmapThreshold is the payload size above which AllocBytes backs a
// native buffer with a real mmap'd chunk instead of ordinary Go memory.
const mmapThreshold = 4096

// AllocBytes returns a byte buffer sized n for use as an object's
// native payload (flattened big-string content, raw byte-array
// storage). Buffers at or above mmapThreshold are backed by an
// anonymous mmap region (see chunk_linux.go); smaller ones are ordinary
// Go slices, since the syscall overhead isn't worth it for small
// strings/symbols.
func (h *Heap) AllocBytes(n int) []byte {
	if n >= mmapThreshold {
		return allocChunk(n)
	}
	return make([]byte, n)
}

// FreeBytes releases a buffer obtained from AllocBytes. Safe to call on
// a plain make()'d slice (freeChunk is a no-op below mmapThreshold use,
// since such buffers were never mmap'd).
func (h *Heap) FreeBytes(b []byte) {
	if len(b) >= mmapThreshold {
		freeChunk(b)
	}
}
