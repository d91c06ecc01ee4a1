package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestClassOfClassesIsSelfReferential(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	require.Equal(t, c.ClassClass(), h.ClassOf(c.ClassClass()))
}

func TestNewClassHasClassClassAsClass(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	root := c.NewClass("Object", value.Nil, false)
	require.Equal(t, c.ClassClass(), h.ClassOf(root))
	require.Equal(t, value.Nil, c.Super(root))
	require.Equal(t, "Object", c.Name(root))
}

func TestAddAttributeAssignsSequentialIndices(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	root := c.NewClass("Point", value.Nil, false)

	x := c.AddAttribute(root, "x")
	y := c.AddAttribute(root, "y")
	require.Equal(t, 0, x)
	require.Equal(t, 1, y)
	require.Equal(t, 2, c.BasicFieldCount(root))

	idx, isMethod, found := c.Resolve(root, "y")
	require.True(t, found)
	require.False(t, isMethod)
	require.Equal(t, 1, idx)
}

func TestAddMethodInstallsCallableAndIsInheritedByIncludedCopy(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	base := c.NewClass("Base", value.Nil, false)

	fnClass := h.Alloc(heap.PolicySurvivor, value.Nil, 0)
	fn := h.Alloc(heap.PolicySurvivor, fnClass, 0)
	h.SetNative(fn, "greet-impl")

	midx := c.AddMethod(base, "greet", fn)
	require.Equal(t, 0, midx)

	sub := c.NewClass("Sub", base, false)
	idx, isMethod, found := c.Resolve(sub, "greet")
	require.True(t, found)
	require.True(t, isMethod)
	require.Equal(t, 0, idx)
	require.Equal(t, fn, c.Method(sub, idx))

	// Mutating base after Sub's construction must not retroactively
	// appear on Sub (spec: "by inclusion at construction").
	fn2 := h.Alloc(heap.PolicySurvivor, fnClass, 0)
	c.AddMethod(base, "farewell", fn2)
	_, _, found = c.Resolve(sub, "farewell")
	require.False(t, found)
}

func TestStaticValueRoundTrip(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	cls := c.NewClass("Counter", value.Nil, false)

	c.AddStatic(cls, "count", value.FromSmallInt(0))
	v, ok := c.GetStatic(cls, "count")
	require.True(t, ok)
	require.Equal(t, int64(0), value.ToSmallInt(v))

	c.AddStatic(cls, "count", value.FromSmallInt(1))
	v, ok = c.GetStatic(cls, "count")
	require.True(t, ok)
	require.Equal(t, int64(1), value.ToSmallInt(v))

	_, ok = c.GetStatic(cls, "missing")
	require.False(t, ok)
}

// TestMethodOffsetStableAcrossInterleavedStatics exercises AddStatic
// appending into the same Fields array as AddMethod: since AddStatic
// runs first on a class with no inherited methods, it lands in the
// Fields slot AddMethod's old 1+idx formula would assume was the first
// method. Method must still resolve the right field.
func TestMethodOffsetStableAcrossInterleavedStatics(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	cls := c.NewClass("Widget", value.Nil, false)

	c.AddStatic(cls, "count", value.FromSmallInt(7))

	fnClass := h.Alloc(heap.PolicySurvivor, value.Nil, 0)
	fn := h.Alloc(heap.PolicySurvivor, fnClass, 0)
	h.SetNative(fn, "render-impl")
	midx := c.AddMethod(cls, "render", fn)

	require.Equal(t, fn, c.Method(cls, midx))
	v, ok := c.GetStatic(cls, "count")
	require.True(t, ok)
	require.Equal(t, int64(7), value.ToSmallInt(v))
}

func TestResolveUnknownNameNotFound(t *testing.T) {
	h := heap.New()
	c := NewClasses(h)
	cls := c.NewClass("Empty", value.Nil, false)
	_, _, found := c.Resolve(cls, "nope")
	require.False(t, found)
}
