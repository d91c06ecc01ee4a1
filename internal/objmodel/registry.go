// Package objmodel builds the language's object model — classes and
// every primitive value type — on top of internal/heap's generic cell
// storage (SPEC_FULL.md §4.B/C/D).
package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// HashFunc computes a hash for a map/set key, returning ok=false for an
// unhashable value (spec §3.1: "unhashable values ... raise TypeError
// when used as a key"). EqFunc compares two keys for equality. objmodel
// has no access to the interpreter's method dispatch, so Registry ships
// defaults (DefaultHash/DefaultEq) covering the primitive types it knows
// about. The Hash and Eq fields are replaceable, but nothing in this
// module replaces them, so user-defined `<=>`/`__eq__`/`__hash__`
// methods are not consulted for map and set keys.
type HashFunc func(r *Registry, v value.Value) (uint64, bool)
type EqFunc func(r *Registry, a, b value.Value) bool

// Registry is the VM's bootstrapped set of well-known classes and
// singleton objects (spec §9's "root set of always-alive classes"),
// plus the pluggable key hash/equality used by map and set.
type Registry struct {
	H       *heap.Heap
	Classes *Classes

	ObjectClass         value.Value
	NilClass            value.Value
	BoolClass           value.Value
	IntClass            value.Value
	FloatClass          value.Value
	SymbolClass         value.Value
	StringClass         value.Value
	TupleClass          value.Value
	ArrayClass          value.Value
	MapClass            value.Value
	SetClass            value.Value
	FunctionClass       value.Value
	NativeFunctionClass value.Value
	ModuleClass         value.Value
	ExceptionClass      value.Value

	NilValue   value.Value
	TrueValue  value.Value
	FalseValue value.Value

	Hash HashFunc
	Eq   EqFunc
}

// NewRegistry bootstraps the class-of-classes (through NewClasses), the
// Object root class, every well-known leaf class as a direct subclass of
// Object, and the nil/true/false singletons.
func NewRegistry(h *heap.Heap) *Registry {
	r := &Registry{H: h, Classes: NewClasses(h)}
	r.ObjectClass = r.Classes.NewClass("Object", value.Nil, false)
	leaf := func(name string) value.Value { return r.Classes.NewClass(name, r.ObjectClass, false) }

	r.NilClass = leaf("Nil")
	r.BoolClass = leaf("Bool")
	r.IntClass = leaf("Int")
	r.FloatClass = leaf("Float")
	r.SymbolClass = leaf("Symbol")
	r.StringClass = leaf("String")
	r.TupleClass = leaf("Tuple")
	r.ArrayClass = leaf("Array")
	r.MapClass = leaf("Map")
	r.SetClass = leaf("Set")
	r.FunctionClass = leaf("Function")
	r.NativeFunctionClass = leaf("NativeFunction")
	r.ModuleClass = leaf("Module")
	r.ExceptionClass = leaf("Exception")

	r.NilValue = h.Alloc(heap.PolicySurvivor, r.NilClass, 0)
	r.TrueValue = newBool(h, r.BoolClass, true)
	r.FalseValue = newBool(h, r.BoolClass, false)

	r.Hash = DefaultHash
	r.Eq = DefaultEq

	h.SetFinalizer(func(classAddr, objAddr value.Value) {
		if f := r.Classes.GetFinalizer(classAddr); f != nil {
			f(h, objAddr)
		}
	})
	return r
}

// DefaultHash covers the primitive types objmodel knows about natively.
// Values whose hash depends on a user-defined `__hash__` method report
// ok=false; nothing in this module installs a fallback to method
// dispatch, so such values are unhashable as map/set keys.
func DefaultHash(r *Registry, v value.Value) (uint64, bool) {
	if value.IsSmallInt(v) {
		return uint64(value.ToSmallInt(v)), true
	}
	switch v {
	case r.NilValue:
		return 0x9e3779b97f4a7c15, true
	case r.TrueValue:
		return 1, true
	case r.FalseValue:
		return 2, true
	}
	if r.IsSymbol(v) {
		return hashBytes([]byte(r.SymbolName(v))) ^ 0x517cc1b727220a95, true
	}
	if r.IsString(v) {
		return r.StringHash(v), true
	}
	if r.IsInt(v) {
		return uint64(r.IntValue(v)), true
	}
	if r.IsFloat(v) {
		return hashFloatBits(r.FloatValue(v)), true
	}
	return 0, false
}

// DefaultEq covers the same primitive types as DefaultHash.
func DefaultEq(r *Registry, a, b value.Value) bool {
	if a == b {
		return true
	}
	if r.IsString(a) && r.IsString(b) {
		return r.StringEqual(a, b)
	}
	aInt, aIsInt := r.numericValue(a)
	bInt, bIsInt := r.numericValue(b)
	if aIsInt && bIsInt {
		return aInt == bInt
	}
	return false
}

// VisitRoots exposes every well-known class and singleton to a GC root
// visitor, so the class table and nil/true/false survive a collection
// even when nothing on the operand stack currently references them.
// The owning VM registers this with heap.AddGCRoot at Create time.
func (r *Registry) VisitRoots(op heap.VisitOp, visit heap.VisitFunc) {
	rewrite := op == heap.VisitMove
	slots := []*value.Value{
		&r.ObjectClass, &r.NilClass, &r.BoolClass, &r.IntClass, &r.FloatClass,
		&r.SymbolClass, &r.StringClass, &r.TupleClass, &r.ArrayClass,
		&r.MapClass, &r.SetClass, &r.FunctionClass, &r.NativeFunctionClass,
		&r.ModuleClass, &r.ExceptionClass,
		&r.NilValue, &r.TrueValue, &r.FalseValue,
	}
	for _, s := range slots {
		nv := visit(*s)
		if rewrite {
			*s = nv
		}
	}
	classClass := r.Classes.ClassClass()
	nv := visit(classClass)
	if rewrite {
		r.Classes.setClassClass(nv)
	}
}

func (r *Registry) numericValue(v value.Value) (float64, bool) {
	if r.IsInt(v) {
		return float64(r.IntValue(v)), true
	}
	if r.IsFloat(v) {
		return r.FloatValue(v), true
	}
	return 0, false
}
