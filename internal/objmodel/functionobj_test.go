package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestFunctionObjectFieldsAndArity(t *testing.T) {
	r := NewRegistry(heap.New())
	mod := r.NewModule("main", true)
	consts := r.NewArray(value.FromSmallInt(1))
	syms := r.NewArray()
	code := []byte{0x01, 0x02, 0x03}

	fn := r.NewFunction(mod, consts, syms, code, 2, 1)
	require.True(t, r.IsFunction(fn))
	require.Equal(t, mod, r.FunctionModule(fn))
	require.Equal(t, consts, r.FunctionConstPool(fn))
	require.Equal(t, syms, r.FunctionSymPool(fn))
	require.Equal(t, code, r.FunctionBytecode(fn))

	argc, optc, variadic := r.FunctionArity(fn)
	require.Equal(t, 2, argc)
	require.Equal(t, 1, optc)
	require.False(t, variadic)
}

func TestFunctionVariadicArityEncoding(t *testing.T) {
	r := NewRegistry(heap.New())
	fn := r.NewFunction(r.NilValue, r.NewArray(), r.NewArray(), nil, -1-2, 0)
	argc, _, variadic := r.FunctionArity(fn)
	require.True(t, variadic)
	require.Equal(t, -3, argc)
}

func TestNativeFunctionEntryInvocation(t *testing.T) {
	r := NewRegistry(heap.New())
	nf := r.NewNativeFunction(func(rr *Registry, args []value.Value) (value.Value, value.Value) {
		return rr.NewInt(value.ToSmallInt(args[0]) + 1), value.Nil
	}, 1, 0)
	require.True(t, r.IsNativeFunction(nf))

	entry := r.NativeFunctionEntry(nf)
	result, exc := entry(r, []value.Value{value.FromSmallInt(41)})
	require.Equal(t, value.Nil, exc)
	require.Equal(t, int64(42), r.IntValue(result))
}
