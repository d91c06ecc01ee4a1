// Package symtab implements the symbol pool of SPEC_FULL.md §4.F: a
// weak-referenced, byte-content-keyed deduplication table for symbol
// objects.
package symtab

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// SymbolFactory allocates a new symbol object holding bytes s, returning
// its address. Supplied by objmodel so symtab does not need to know the
// symbol object's internal layout.
type SymbolFactory func(s string) value.Value

// Pool deduplicates symbol objects by their underlying bytes. Class
// attribute/method maps and the pool itself key on the Go string rather
// than the symbol's heap address: addresses are not stable across a
// full GC compaction (old-space objects can move during compaction,
// spec §4.E step 4), while the byte content never changes — so keying
// by content sidesteps having to rekey every map on every full GC.
type Pool struct {
	h       *heap.Heap
	factory SymbolFactory
	entries map[string]value.Value
}

// New creates a pool and registers it as a weak-reference root with h.
func New(h *heap.Heap, factory SymbolFactory) *Pool {
	p := &Pool{h: h, factory: factory, entries: make(map[string]value.Value)}
	h.AddWeakRoot(p, p.visit)
	return p
}

// Intern returns the unique symbol object for s, allocating one on
// first use (always in old space via PolicySurvivor, per spec §4.F).
func (p *Pool) Intern(s string) value.Value {
	if v, ok := p.entries[s]; ok {
		return v
	}
	v := p.factory(s)
	p.entries[s] = v
	return v
}

// Lookup reports whether s is currently interned, without allocating.
func (p *Pool) Lookup(s string) (value.Value, bool) {
	v, ok := p.entries[s]
	return v, ok
}

// Len reports the number of live interned symbols.
func (p *Pool) Len() int { return len(p.entries) }

func (p *Pool) visit(op heap.WeakOp, query heap.WeakQuery) {
	switch op {
	case heap.WeakFinalizeYoung, heap.WeakFinalize:
		for k, v := range p.entries {
			if alive, _ := query(v); !alive {
				delete(p.entries, k)
			}
		}
	case heap.WeakMove:
		for k, v := range p.entries {
			if _, nv := query(v); nv != v {
				p.entries[k] = nv
			}
		}
	}
}
