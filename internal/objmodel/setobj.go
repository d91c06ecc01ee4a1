package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

const initialSetSize = 8

// setMeta mirrors mapMeta but with one Field per slot (the key only).
type setMeta struct {
	size   int
	used   int
	tomb   int
	states []slotState
}

func (r *Registry) setMeta(v value.Value) *setMeta {
	m, _ := r.H.Native(v).(*setMeta)
	return m
}

func (r *Registry) NewSet() value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.SetClass, initialSetSize)
	for i := 0; i < initialSetSize; i++ {
		r.H.SetField(v, i, value.Nil)
	}
	r.H.SetNative(v, &setMeta{size: initialSetSize, states: make([]slotState, initialSetSize)})
	return v
}

func (r *Registry) IsSet(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.SetClass
}

func (r *Registry) SetLen(v value.Value) int { return r.setMeta(v).used }

func (r *Registry) SetHas(v, key value.Value) bool {
	h, ok := r.Hash(r, key)
	if !ok {
		return false
	}
	m := r.setMeta(v)
	idx := int(h % uint64(m.size))
	for i := 0; i < m.size; i++ {
		slot := (idx + i) % m.size
		switch m.states[slot] {
		case slotEmpty:
			return false
		case slotUsed:
			if r.Eq(r, r.H.GetField(v, slot), key) {
				return true
			}
		}
	}
	return false
}

// SetAdd inserts key, returning false if it was already present.
func (r *Registry) SetAdd(v, key value.Value) (bool, error) {
	h, ok := r.Hash(r, key)
	if !ok {
		return false, ErrUnhashable
	}
	r.setMaybeGrow(v)
	m := r.setMeta(v)
	idx := int(h % uint64(m.size))
	firstTomb := -1
	for i := 0; i < m.size; i++ {
		slot := (idx + i) % m.size
		switch m.states[slot] {
		case slotEmpty:
			target := slot
			if firstTomb >= 0 {
				target = firstTomb
				m.tomb--
			}
			r.H.SetField(v, target, key)
			m.states[target] = slotUsed
			m.used++
			return true, nil
		case slotTombstone:
			if firstTomb < 0 {
				firstTomb = slot
			}
		case slotUsed:
			if r.Eq(r, r.H.GetField(v, slot), key) {
				return false, nil
			}
		}
	}
	return false, ErrUnhashable
}

func (r *Registry) SetRemove(v, key value.Value) bool {
	h, ok := r.Hash(r, key)
	if !ok {
		return false
	}
	m := r.setMeta(v)
	idx := int(h % uint64(m.size))
	for i := 0; i < m.size; i++ {
		slot := (idx + i) % m.size
		switch m.states[slot] {
		case slotEmpty:
			return false
		case slotUsed:
			if r.Eq(r, r.H.GetField(v, slot), key) {
				r.H.SetField(v, slot, value.Nil)
				m.states[slot] = slotTombstone
				m.used--
				m.tomb++
				return true
			}
		}
	}
	return false
}

func (r *Registry) setMaybeGrow(v value.Value) {
	m := r.setMeta(v)
	if float64(m.used+m.tomb+1)/float64(m.size) < 0.7 {
		return
	}
	r.setResize(v, m.size*2)
}

func (r *Registry) setResize(v value.Value, newSize int) {
	m := r.setMeta(v)
	keys := make([]value.Value, 0, m.used)
	for i := 0; i < m.size; i++ {
		if m.states[i] == slotUsed {
			keys = append(keys, r.H.GetField(v, i))
		}
	}
	r.H.TruncateFields(v, 0)
	for i := 0; i < newSize; i++ {
		r.H.AppendField(v, value.Nil)
	}
	m.size = newSize
	m.used = 0
	m.tomb = 0
	m.states = make([]slotState, newSize)
	for _, k := range keys {
		_, _ = r.SetAdd(v, k)
	}
}
