package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestModuleDeclareAndAccessGlobals(t *testing.T) {
	r := NewRegistry(heap.New())
	mod := r.NewModule("main", true)
	name, hasName := r.ModuleName(mod)
	require.True(t, hasName)
	require.Equal(t, "main", name)

	idx := r.ModuleDeclareGlobal(mod, "x")
	require.Equal(t, 0, idx)
	require.True(t, r.ModuleSetGlobal(mod, "x", value.FromSmallInt(7)))

	v, ok := r.ModuleGetGlobal(mod, "x")
	require.True(t, ok)
	require.Equal(t, int64(7), value.ToSmallInt(v))

	require.Equal(t, []string{"x"}, r.ModuleGlobalNames(mod))
}

func TestModuleDeclareGlobalIsIdempotent(t *testing.T) {
	r := NewRegistry(heap.New())
	mod := r.NewModule("m", false)
	a := r.ModuleDeclareGlobal(mod, "g")
	b := r.ModuleDeclareGlobal(mod, "g")
	require.Equal(t, a, b)
	require.Len(t, r.ModuleGlobalNames(mod), 1)
}

func TestModuleGetUnknownGlobal(t *testing.T) {
	r := NewRegistry(heap.New())
	mod := r.NewModule("m", false)
	_, ok := r.ModuleGetGlobal(mod, "missing")
	require.False(t, ok)
	require.False(t, r.ModuleSetGlobal(mod, "missing", value.Nil))
}
