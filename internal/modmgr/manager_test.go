package modmgr

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/objmodel"
	"j5.nz/ovm/internal/value"
)

func newFixture(t *testing.T) (*Manager, *objmodel.Registry) {
	t.Helper()
	h := heap.New()
	reg := objmodel.NewRegistry(h)
	return New(reg), reg
}

func TestLoadNativeModuleCachesResult(t *testing.T) {
	m, reg := newFixture(t)
	require.NoError(t, m.RegisterNative(NativeModuleDef{
		Name: "sys",
		Globals: map[string]value.Value{
			"version": reg.NewInt(1),
		},
	}))

	mod, exc := m.Load("sys", 0)
	require.Equal(t, value.Nil, exc)
	require.True(t, reg.IsModule(mod))
	v, ok := reg.ModuleGetGlobal(mod, "version")
	require.True(t, ok)
	require.Equal(t, int64(1), reg.IntValue(v))

	mod2, exc := m.Load("sys", 0)
	require.Equal(t, value.Nil, exc)
	require.Equal(t, mod, mod2)
}

func TestRegisterNativeTwiceFails(t *testing.T) {
	m, _ := newFixture(t)
	def := NativeModuleDef{Name: "dup"}
	require.NoError(t, m.RegisterNative(def))
	require.Error(t, m.RegisterNative(def))
}

func TestLoadUnknownModuleReturnsException(t *testing.T) {
	m, reg := newFixture(t)
	_, exc := m.Load("missing", 0)
	require.NotEqual(t, value.Nil, exc)
	require.True(t, reg.IsException(exc))
}

func TestLoadSourceModuleRunsTopLevel(t *testing.T) {
	m, reg := newFixture(t)

	topLevel := reg.NewNativeFunction(func(r *objmodel.Registry, args []value.Value) (value.Value, value.Value) {
		mod := args[0]
		idx := r.ModuleDeclareGlobal(mod, "greeting")
		r.ModuleSetGlobalByIndex(mod, idx, r.NewString("hello"))
		return r.NilValue, value.Nil
	}, 1, 0)

	m.Source = func(name string) (CompiledUnit, bool, error) {
		if name != "greet" {
			return CompiledUnit{}, false, nil
		}
		return CompiledUnit{TopLevel: topLevel}, true, nil
	}
	m.Invoke = func(callable value.Value, args []value.Value) (value.Value, value.Value) {
		entry := reg.NativeFunctionEntry(callable)
		return entry(reg, args)
	}

	mod, exc := m.Load("greet", 0)
	require.Equal(t, value.Nil, exc)
	v, ok := reg.ModuleGetGlobal(mod, "greeting")
	require.True(t, ok)
	require.Equal(t, "hello", reg.StringGoString(v))
}

func TestResolveAdaptsToModuleResolverShape(t *testing.T) {
	m, reg := newFixture(t)
	require.NoError(t, m.RegisterNative(NativeModuleDef{Name: "sys", Globals: map[string]value.Value{}}))

	mod, ok := m.Resolve("sys")
	require.True(t, ok)
	require.True(t, reg.IsModule(mod))

	_, ok = m.Resolve("nope")
	require.False(t, ok)
}

func TestReloadFlagBypassesCache(t *testing.T) {
	m, reg := newFixture(t)
	calls := 0
	m.Source = func(name string) (CompiledUnit, bool, error) {
		calls++
		fn := reg.NewNativeFunction(func(r *objmodel.Registry, args []value.Value) (value.Value, value.Value) {
			return r.NilValue, value.Nil
		}, 1, 0)
		return CompiledUnit{TopLevel: fn}, true, nil
	}
	m.Invoke = func(callable value.Value, args []value.Value) (value.Value, value.Value) {
		entry := reg.NativeFunctionEntry(callable)
		return entry(reg, args)
	}

	_, exc := m.Load("dyn", 0)
	require.Equal(t, value.Nil, exc)
	_, exc = m.Load("dyn", 0)
	require.Equal(t, value.Nil, exc)
	require.Equal(t, 1, calls)

	_, exc = m.Load("dyn", FlagReload)
	require.Equal(t, value.Nil, exc)
	require.Equal(t, 2, calls)
}
