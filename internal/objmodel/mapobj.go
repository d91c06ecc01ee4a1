package objmodel

import (
	"errors"

	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// ErrUnhashable is returned by MapSet and SetAdd when the key has no
// defined hash (spec §3.1); MapGet and MapDelete report such a key as
// absent instead. Package ovm wraps this with pkg/errors
// at the embedding-API boundary; objmodel itself stays on stdlib errors
// since nothing below that boundary needs the wrapped form.
var ErrUnhashable = errors.New("objmodel: value is not hashable as a map/set key")

type slotState uint8

const (
	slotEmpty slotState = iota
	slotUsed
	slotTombstone
)

const initialMapSize = 8

// mapMeta is a map object's non-scanned payload; keys/values live in
// the cell's Fields (2*size slots, interleaved key/value per slot) so
// the GC walks them like any other reference.
type mapMeta struct {
	size   int
	used   int
	tomb   int
	states []slotState
}

func (r *Registry) mapMeta(v value.Value) *mapMeta {
	m, _ := r.H.Native(v).(*mapMeta)
	return m
}

// NewMap builds an empty map object, open-addressed over a
// power-of-two slot table (spec §3.1).
func (r *Registry) NewMap() value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.MapClass, 2*initialMapSize)
	for i := 0; i < 2*initialMapSize; i++ {
		r.H.SetField(v, i, value.Nil)
	}
	r.H.SetNative(v, &mapMeta{size: initialMapSize, states: make([]slotState, initialMapSize)})
	return v
}

func (r *Registry) IsMap(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.MapClass
}

func (r *Registry) MapLen(v value.Value) int { return r.mapMeta(v).used }

func (r *Registry) MapGet(v, key value.Value) (value.Value, bool) {
	h, ok := r.Hash(r, key)
	if !ok {
		return value.Nil, false
	}
	m := r.mapMeta(v)
	idx := int(h % uint64(m.size))
	for i := 0; i < m.size; i++ {
		slot := (idx + i) % m.size
		switch m.states[slot] {
		case slotEmpty:
			return value.Nil, false
		case slotUsed:
			if r.Eq(r, r.H.GetField(v, 2*slot), key) {
				return r.H.GetField(v, 2*slot+1), true
			}
		}
	}
	return value.Nil, false
}

// MapSet inserts or overwrites key→val. Returns ErrUnhashable if key
// has no defined hash.
func (r *Registry) MapSet(v, key, val value.Value) error {
	h, ok := r.Hash(r, key)
	if !ok {
		return ErrUnhashable
	}
	r.mapMaybeGrow(v)
	m := r.mapMeta(v)
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
			r.H.SetField(v, 2*target, key)
			r.H.SetField(v, 2*target+1, val)
			m.states[target] = slotUsed
			m.used++
			return nil
		case slotTombstone:
			if firstTomb < 0 {
				firstTomb = slot
			}
		case slotUsed:
			if r.Eq(r, r.H.GetField(v, 2*slot), key) {
				r.H.SetField(v, 2*slot+1, val)
				return nil
			}
		}
	}
	return ErrUnhashable // table scanned fully without a slot — unreachable given mapMaybeGrow
}

func (r *Registry) MapDelete(v, key value.Value) bool {
	h, ok := r.Hash(r, key)
	if !ok {
		return false
	}
	m := r.mapMeta(v)
	idx := int(h % uint64(m.size))
	for i := 0; i < m.size; i++ {
		slot := (idx + i) % m.size
		switch m.states[slot] {
		case slotEmpty:
			return false
		case slotUsed:
			if r.Eq(r, r.H.GetField(v, 2*slot), key) {
				r.H.SetField(v, 2*slot, value.Nil)
				r.H.SetField(v, 2*slot+1, value.Nil)
				m.states[slot] = slotTombstone
				m.used--
				m.tomb++
				return true
			}
		}
	}
	return false
}

func (r *Registry) mapMaybeGrow(v value.Value) {
	m := r.mapMeta(v)
	if float64(m.used+m.tomb+1)/float64(m.size) < 0.7 {
		return
	}
	r.mapResize(v, m.size*2)
}

func (r *Registry) mapResize(v value.Value, newSize int) {
	m := r.mapMeta(v)
	type kv struct{ k, val value.Value }
	entries := make([]kv, 0, m.used)
	for i := 0; i < m.size; i++ {
		if m.states[i] == slotUsed {
			entries = append(entries, kv{r.H.GetField(v, 2*i), r.H.GetField(v, 2*i+1)})
		}
	}
	r.H.TruncateFields(v, 0)
	for i := 0; i < 2*newSize; i++ {
		r.H.AppendField(v, value.Nil)
	}
	m.size = newSize
	m.used = 0
	m.tomb = 0
	m.states = make([]slotState, newSize)
	for _, e := range entries {
		_ = r.MapSet(v, e.k, e.val)
	}
}
