package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// moduleMeta holds the ordered name→global-index map; the values
// themselves are the module cell's own Fields (spec: "ordered
// name→global-index map and a parallel array of global values").
type moduleMeta struct {
	name       string
	hasName    bool
	names      []string
	index      map[string]int
	finalizer  Finalizer
}

func (r *Registry) moduleMeta(v value.Value) *moduleMeta {
	m, _ := r.H.Native(v).(*moduleMeta)
	return m
}

// NewModule builds an empty module object with an optional symbol name
// (spec: "plus an optional symbol name and finalizer").
func (r *Registry) NewModule(name string, hasName bool) value.Value {
	v := r.H.Alloc(heap.PolicySurvivor, r.ModuleClass, 0)
	r.H.SetNative(v, &moduleMeta{name: name, hasName: hasName, index: map[string]int{}})
	return v
}

func (r *Registry) IsModule(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.ModuleClass
}

func (r *Registry) ModuleName(v value.Value) (string, bool) {
	m := r.moduleMeta(v)
	return m.name, m.hasName
}

func (r *Registry) SetModuleFinalizer(v value.Value, f Finalizer) { r.moduleMeta(v).finalizer = f }
func (r *Registry) ModuleFinalizer(v value.Value) Finalizer        { return r.moduleMeta(v).finalizer }

// ModuleDeclareGlobal adds a new global slot (initialized to the nil
// singleton) and returns its index, or the existing index if name is
// already declared.
func (r *Registry) ModuleDeclareGlobal(v value.Value, name string) int {
	m := r.moduleMeta(v)
	if idx, ok := m.index[name]; ok {
		return idx
	}
	idx := r.H.AppendField(v, r.NilValue)
	m.index[name] = idx
	m.names = append(m.names, name)
	return idx
}

func (r *Registry) ModuleGetGlobal(v value.Value, name string) (value.Value, bool) {
	m := r.moduleMeta(v)
	idx, ok := m.index[name]
	if !ok {
		return value.Nil, false
	}
	return r.H.GetField(v, idx), true
}

func (r *Registry) ModuleSetGlobal(v value.Value, name string, val value.Value) bool {
	m := r.moduleMeta(v)
	idx, ok := m.index[name]
	if !ok {
		return false
	}
	r.H.SetField(v, idx, val)
	return true
}

func (r *Registry) ModuleGetGlobalByIndex(v value.Value, idx int) value.Value {
	return r.H.GetField(v, idx)
}

func (r *Registry) ModuleSetGlobalByIndex(v value.Value, idx int, val value.Value) {
	r.H.SetField(v, idx, val)
}

func (r *Registry) ModuleGlobalIndex(v value.Value, name string) (int, bool) {
	idx, ok := r.moduleMeta(v).index[name]
	return idx, ok
}

// ModuleGlobalNames returns global names in declaration order.
func (r *Registry) ModuleGlobalNames(v value.Value) []string {
	return append([]string(nil), r.moduleMeta(v).names...)
}
