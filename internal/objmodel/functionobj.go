package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// functionMeta is a function object's non-scanned payload: the
// bytecode bytes and arity spec (spec: "arg_count < 0 denotes variadic
// with minimum -1 - arg_count"). The module back-reference, constant
// pool and symbol pool are heap references and so live in Fields
// instead, where compaction/copying can see and rewrite them.
type functionMeta struct {
	bytecode         []byte
	argCount         int
	optionalArgCount int
}

// NewFunction builds a script function object. constPool and symPool
// are Array objects (internal/objmodel arrays), matching the spec's
// "constant pool (array of values)" / "symbol pool (array of symbols)".
func (r *Registry) NewFunction(module, constPool, symPool value.Value, bytecode []byte, argCount, optionalArgCount int) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.FunctionClass, 3)
	r.H.SetField(v, 0, module)
	r.H.SetField(v, 1, constPool)
	r.H.SetField(v, 2, symPool)
	r.H.SetNative(v, &functionMeta{bytecode: bytecode, argCount: argCount, optionalArgCount: optionalArgCount})
	return v
}

func (r *Registry) IsFunction(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.FunctionClass
}

func (r *Registry) FunctionModule(v value.Value) value.Value   { return r.H.GetField(v, 0) }
func (r *Registry) FunctionConstPool(v value.Value) value.Value { return r.H.GetField(v, 1) }
func (r *Registry) FunctionSymPool(v value.Value) value.Value   { return r.H.GetField(v, 2) }

func (r *Registry) FunctionBytecode(v value.Value) []byte {
	m, _ := r.H.Native(v).(*functionMeta)
	if m == nil {
		return nil
	}
	return m.bytecode
}

// FunctionArity returns (argCount, optionalArgCount, variadic). A
// negative argCount denotes variadic with minimum -1-argCount required
// arguments (spec §4.D).
func (r *Registry) FunctionArity(v value.Value) (argCount, optionalArgCount int, variadic bool) {
	m, _ := r.H.Native(v).(*functionMeta)
	if m == nil {
		return 0, 0, false
	}
	return m.argCount, m.optionalArgCount, m.argCount < 0
}
