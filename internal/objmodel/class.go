package objmodel

import (
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

// Finalizer is a class-registered destructor, invoked by the heap's
// reclaim path (spec: "a finalizer function pointer" on the class).
type Finalizer func(h *heap.Heap, obj value.Value)

// classData is the non-scanned payload of a class object: everything
// the heap's generic cell model can't express as GC-tracked fields.
// Name→attribute and name→method indices share one map (spec §4.B/C:
// "this two-directional encoding lets one map answer both 'where is
// attribute X' and 'where is method Y' in one lookup"), keyed by the
// attribute/method's plain Go string rather than a symbol object or
// heap address, for the same address-stability reason the symbol pool
// keys by bytes (see internal/symtab).
type classData struct {
	name             string
	basicFieldCount  int
	nativeFieldCount int
	hasExtended      bool
	finalizer        Finalizer
	attrMethod       map[string]int // >=0: attribute index; <0: -(methodIndex+1)
	methodNames      []string
	methodFieldIdx   []int // cls's Fields offset of methodNames[i]; statics may be interleaved into the same Fields array, so this is never assumed to be 1+i
	staticNames      map[string]int
}

// Classes bootstraps and manages class objects: the self-referential
// class-of-classes (spec §9) plus attribute/method table construction.
type Classes struct {
	h          *heap.Heap
	classClass value.Value
}

// NewClasses bootstraps the class-of-classes: allocate it with a
// placeholder (nil) class pointer, then patch the pointer to itself
// once the object exists — the language-neutral recipe of spec §9
// realized without a recursive constructor.
func NewClasses(h *heap.Heap) *Classes {
	c := &Classes{h: h}
	cc := h.Alloc(heap.PolicySurvivor, value.Nil, 1)
	h.SetField(cc, 0, value.Nil) // "super" of the class-of-classes
	h.SetNative(cc, &classData{
		name:        "Class",
		attrMethod:  map[string]int{},
		staticNames: map[string]int{},
	})
	h.SetClass(cc, cc)
	c.classClass = cc
	return c
}

// ClassClass returns the class-of-classes (every class object's own
// class, and the root class object is itself an instance of it).
func (c *Classes) ClassClass() value.Value { return c.classClass }

// setClassClass updates the cached class-of-classes address after a
// full GC compaction moves it (spec §4.E step 4); used only by
// Registry.VisitRoots's VisitMove pass.
func (c *Classes) setClassClass(v value.Value) { c.classClass = v }

func (c *Classes) data(cls value.Value) *classData {
	d, _ := c.h.Native(cls).(*classData)
	return d
}

// NewClass allocates a class object, inheriting super's attribute and
// method table by inclusion (spec §4.B/C): the combined map and the
// method Fields are copied at construction time rather than chained
// dynamically, so a later mutation of super's methods is not observed
// by already-created subclasses (matching the spec's "by inclusion at
// construction" wording).
func (c *Classes) NewClass(name string, super value.Value, hasExtended bool) value.Value {
	d := &classData{name: name, hasExtended: hasExtended, attrMethod: map[string]int{}, staticNames: map[string]int{}}
	var inherited []value.Value
	if super != value.Nil {
		sd := c.data(super)
		for k, v := range sd.attrMethod {
			d.attrMethod[k] = v
		}
		d.methodNames = append(d.methodNames, sd.methodNames...)
		d.basicFieldCount = sd.basicFieldCount
		d.nativeFieldCount = sd.nativeFieldCount
		for _, fieldIdx := range sd.methodFieldIdx {
			inherited = append(inherited, c.h.GetField(super, fieldIdx))
		}
	}
	cls := c.h.Alloc(heap.PolicySurvivor, c.classClass, 1+len(inherited))
	c.h.SetField(cls, 0, super)
	for i, fn := range inherited {
		c.h.SetField(cls, 1+i, fn)
		d.methodFieldIdx = append(d.methodFieldIdx, 1+i)
	}
	c.h.SetNative(cls, d)
	return cls
}

func (c *Classes) Super(cls value.Value) value.Value { return c.h.GetField(cls, 0) }
func (c *Classes) Name(cls value.Value) string        { return c.data(cls).name }
func (c *Classes) BasicFieldCount(cls value.Value) int {
	return c.data(cls).basicFieldCount
}
func (c *Classes) HasExtended(cls value.Value) bool { return c.data(cls).hasExtended }

func (c *Classes) SetFinalizer(cls value.Value, f Finalizer) { c.data(cls).finalizer = f }
func (c *Classes) GetFinalizer(cls value.Value) Finalizer     { return c.data(cls).finalizer }

// AddAttribute declares a new basic (instance) field and returns its
// index.
func (c *Classes) AddAttribute(cls value.Value, name string) int {
	d := c.data(cls)
	idx := d.basicFieldCount
	d.basicFieldCount++
	d.attrMethod[name] = idx
	return idx
}

// AddMethod installs fn (a function or native-function object) as
// cls's method named name and returns its method-table index.
func (c *Classes) AddMethod(cls value.Value, name string, fn value.Value) int {
	d := c.data(cls)
	idx := len(d.methodNames)
	d.methodNames = append(d.methodNames, name)
	d.attrMethod[name] = -(idx + 1)
	fieldIdx := c.h.AppendField(cls, fn)
	d.methodFieldIdx = append(d.methodFieldIdx, fieldIdx)
	return idx
}

// AddStatic declares a class-level static value slot and sets it.
func (c *Classes) AddStatic(cls value.Value, name string, v value.Value) {
	d := c.data(cls)
	if d.staticNames == nil {
		d.staticNames = map[string]int{}
	}
	idx, ok := d.staticNames[name]
	if !ok {
		idx = c.h.AppendField(cls, v)
		d.staticNames[name] = idx
		return
	}
	c.h.SetField(cls, idx, v)
}

func (c *Classes) GetStatic(cls value.Value, name string) (value.Value, bool) {
	d := c.data(cls)
	idx, ok := d.staticNames[name]
	if !ok {
		return value.Nil, false
	}
	return c.h.GetField(cls, idx), true
}

// Resolve looks up name in cls's combined attribute/method map.
func (c *Classes) Resolve(cls value.Value, name string) (idx int, isMethod bool, found bool) {
	d := c.data(cls)
	if d == nil {
		return 0, false, false
	}
	v, ok := d.attrMethod[name]
	if !ok {
		return 0, false, false
	}
	if v < 0 {
		return -(v + 1), true, true
	}
	return v, false, true
}

// Method returns the callable installed at method-table index idx.
// Looks up the method's actual Fields offset rather than assuming
// 1+idx: AddStatic appends into the same Fields array (spec §4.B/C
// statics are class-level GC-scanned slots, so they can't live outside
// it), and may interleave with methods added afterward depending on
// call order.
func (c *Classes) Method(cls value.Value, idx int) value.Value {
	d := c.data(cls)
	return c.h.GetField(cls, d.methodFieldIdx[idx])
}
