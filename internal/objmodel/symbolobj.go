package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/symtab"
	"j5.nz/ovm/internal/value"
)

// NewSymbolPool constructs the interning pool for this registry's
// Symbol class: the pool's factory allocates the backing heap object
// (Native payload = the Go string) the first time a given name is seen
// (spec §4.F).
func (r *Registry) NewSymbolPool() *symtab.Pool {
	factory := func(s string) value.Value {
		v := r.H.Alloc(heap.PolicySurvivor, r.SymbolClass, 0)
		r.H.SetNative(v, s)
		return v
	}
	return symtab.New(r.H, factory)
}

func (r *Registry) IsSymbol(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.SymbolClass
}

// SymbolName reads a symbol's interned name. The caller must have
// checked IsSymbol first.
func (r *Registry) SymbolName(v value.Value) string {
	s, _ := r.H.Native(v).(string)
	return s
}
