package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// NewFloat boxes a float64 (the tagged Value representation has no
// inline float form, unlike small ints — spec §4.D lists float as its
// own object type).
func (r *Registry) NewFloat(f float64) value.Value {
	v := r.H.Alloc(heap.PolicySurvivor, r.FloatClass, 0)
	r.H.SetNative(v, f)
	return v
}

func (r *Registry) IsFloat(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.FloatClass
}

// FloatValue reads a float object's value. The caller must have
// checked IsFloat first.
func (r *Registry) FloatValue(v value.Value) float64 {
	f, _ := r.H.Native(v).(float64)
	return f
}
