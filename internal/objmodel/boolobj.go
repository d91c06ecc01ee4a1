package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func newBool(h *heap.Heap, class value.Value, b bool) value.Value {
	v := h.Alloc(heap.PolicySurvivor, class, 0)
	h.SetNative(v, b)
	return v
}

// Bool returns the shared true/false singleton for b.
func (r *Registry) Bool(b bool) value.Value {
	if b {
		return r.TrueValue
	}
	return r.FalseValue
}

func (r *Registry) IsBool(v value.Value) bool {
	return v == r.TrueValue || v == r.FalseValue
}

// BoolValue reads a bool object's truth value. The caller must have
// checked IsBool first.
func (r *Registry) BoolValue(v value.Value) bool { return v == r.TrueValue }
