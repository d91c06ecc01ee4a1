package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestExceptionPayloadAndBacktrace(t *testing.T) {
	r := NewRegistry(heap.New())
	payload := r.NewString("boom")
	exc := r.NewException(payload)
	require.True(t, r.IsException(exc))
	require.Equal(t, payload, r.ExceptionPayload(exc))
	require.Empty(t, r.ExceptionBacktrace(exc))

	fn1 := r.NewFunction(r.NilValue, r.NewArray(), r.NewArray(), nil, 0, 0)
	fn2 := r.NewFunction(r.NilValue, r.NewArray(), r.NewArray(), nil, 0, 0)
	r.ExceptionAppendFrame(exc, fn1, 10)
	r.ExceptionAppendFrame(exc, fn2, 20)

	bt := r.ExceptionBacktrace(exc)
	require.Len(t, bt, 2)
	require.Equal(t, fn1, bt[0].Function)
	require.Equal(t, 10, bt[0].IP)
	require.Equal(t, fn2, bt[1].Function)
	require.Equal(t, 20, bt[1].IP)
}

func TestExceptionPayloadCanBeAnyValue(t *testing.T) {
	r := NewRegistry(heap.New())
	exc := r.NewException(value.FromSmallInt(42))
	require.Equal(t, int64(42), value.ToSmallInt(r.ExceptionPayload(exc)))
}
