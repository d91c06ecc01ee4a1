package objmodel

import (
	"bytes"
	"unicode/utf8"

	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

type stringKind uint8

const (
	stringInner stringKind = iota
	stringSlice
	stringCons
)

// stringMeta is a string object's non-scanned payload; any heap
// reference a node needs (the cons children, the slice base) lives in
// the cell's Fields instead, where the GC can see it.
type stringMeta struct {
	kind stringKind

	bytes []byte // stringInner only

	offset int // stringSlice only: byte offset into Fields[0]
	length int // stringSlice only: byte length

	hash      uint64
	hashed    bool
	runeLen   int
	runeKnown bool
}

func (r *Registry) stringMeta(v value.Value) *stringMeta {
	m, _ := r.H.Native(v).(*stringMeta)
	return m
}

// NewString builds an inner (leaf) string object from a Go string.
func (r *Registry) NewString(s string) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.StringClass, 0)
	buf := r.H.AllocBytes(len(s))
	copy(buf, s)
	r.H.SetNative(v, &stringMeta{kind: stringInner, bytes: buf})
	return v
}

// StringConcat builds a lazy cons node over two existing strings (spec:
// "cons (two string children for lazy concatenation)").
func (r *Registry) StringConcat(a, b value.Value) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.StringClass, 2)
	r.H.SetField(v, 0, a)
	r.H.SetField(v, 1, b)
	r.H.SetNative(v, &stringMeta{kind: stringCons})
	return v
}

// StringSliceOf builds a slice view of base spanning [offset,
// offset+length) bytes, without copying.
func (r *Registry) StringSliceOf(base value.Value, offset, length int) value.Value {
	v := r.H.Alloc(heap.PolicyAuto, r.StringClass, 1)
	r.H.SetField(v, 0, base)
	r.H.SetNative(v, &stringMeta{kind: stringSlice, offset: offset, length: length})
	return v
}

func (r *Registry) IsString(v value.Value) bool {
	return !value.IsSmallInt(v) && !r.isSingleton(v) && r.H.ClassOf(v) == r.StringClass
}

// StringLen reports byte length, walking (and collapsing, for cons) the
// rope as needed.
func (r *Registry) StringLen(v value.Value) int {
	m := r.stringMeta(v)
	switch m.kind {
	case stringInner:
		return len(m.bytes)
	case stringSlice:
		return m.length
	case stringCons:
		return len(r.Flatten(v))
	}
	return 0
}

// StringCodepointLen reports the UTF-8 codepoint count, cached after
// first computed (spec: "both byte size and codepoint length are
// stored").
func (r *Registry) StringCodepointLen(v value.Value) int {
	m := r.stringMeta(v)
	if m.kind == stringCons {
		r.Flatten(v)
		m = r.stringMeta(v)
	}
	if m.runeKnown {
		return m.runeLen
	}
	n := utf8.RuneCount(r.Flatten(v))
	m.runeLen = n
	m.runeKnown = true
	return n
}

// Flatten returns the node's full byte content, walking cons/slice
// nodes as needed. Flattening a cons node mutates it in place into a
// slice over a freshly allocated inner node (spec §3: "mutate it into a
// slice over a new inner"), so repeated reads skip the rope walk.
func (r *Registry) Flatten(v value.Value) []byte {
	m := r.stringMeta(v)
	switch m.kind {
	case stringInner:
		return m.bytes
	case stringSlice:
		base := r.Flatten(r.H.GetField(v, 0))
		return base[m.offset : m.offset+m.length]
	case stringCons:
		left := r.Flatten(r.H.GetField(v, 0))
		right := r.Flatten(r.H.GetField(v, 1))
		buf := r.H.AllocBytes(len(left) + len(right))
		copy(buf, left)
		copy(buf[len(left):], right)

		inner := r.H.Alloc(heap.PolicyAuto, r.StringClass, 0)
		r.H.SetNative(inner, &stringMeta{kind: stringInner, bytes: buf})

		r.H.TruncateFields(v, 0)
		r.H.AppendField(v, inner)
		m.kind = stringSlice
		m.offset = 0
		m.length = len(buf)
		return buf
	}
	return nil
}

// StringHash returns the FNV-1a hash of the flattened bytes, cached on
// the node after first computed.
func (r *Registry) StringHash(v value.Value) uint64 {
	b := r.Flatten(v)
	m := r.stringMeta(v) // re-fetch: Flatten may have rewritten a cons node's meta
	if m.hashed {
		return m.hash
	}
	h := hashBytes(b)
	m.hash = h
	m.hashed = true
	return h
}

func (r *Registry) StringEqual(a, b value.Value) bool {
	if a == b {
		return true
	}
	return bytes.Equal(r.Flatten(a), r.Flatten(b))
}

func (r *Registry) StringGoString(v value.Value) string { return string(r.Flatten(v)) }
