package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// NativeEntry is a native function's entry point. It returns either a
// result value or an exception object (never both) — the same
// "success value xor exception on stack" contract script functions use
// (spec §4.H/§6), just expressed as a direct Go return instead of a
// stack push.
type NativeEntry func(r *Registry, args []value.Value) (result value.Value, exc value.Value)

type nativeMeta struct {
	entry            NativeEntry
	argCount         int
	optionalArgCount int
}

// NewNativeFunction builds a native-function object (spec: "holds
// instead a native entry point and the same arity spec").
func (r *Registry) NewNativeFunction(entry NativeEntry, argCount, optionalArgCount int) value.Value {
	v := r.H.Alloc(heap.PolicySurvivor, r.NativeFunctionClass, 0)
	r.H.SetNative(v, &nativeMeta{entry: entry, argCount: argCount, optionalArgCount: optionalArgCount})
	return v
}

func (r *Registry) IsNativeFunction(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.NativeFunctionClass
}

func (r *Registry) NativeFunctionEntry(v value.Value) NativeEntry {
	m, _ := r.H.Native(v).(*nativeMeta)
	if m == nil {
		return nil
	}
	return m.entry
}

func (r *Registry) NativeFunctionArity(v value.Value) (argCount, optionalArgCount int, variadic bool) {
	m, _ := r.H.Native(v).(*nativeMeta)
	if m == nil {
		return 0, 0, false
	}
	return m.argCount, m.optionalArgCount, m.argCount < 0
}
