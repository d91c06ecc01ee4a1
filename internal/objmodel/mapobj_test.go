package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestMapSetGetDelete(t *testing.T) {
	r := NewRegistry(heap.New())
	m := r.NewMap()

	require.NoError(t, r.MapSet(m, value.FromSmallInt(1), r.NewString("one")))
	v, ok := r.MapGet(m, value.FromSmallInt(1))
	require.True(t, ok)
	require.Equal(t, "one", r.StringGoString(v))
	require.Equal(t, 1, r.MapLen(m))

	require.True(t, r.MapDelete(m, value.FromSmallInt(1)))
	_, ok = r.MapGet(m, value.FromSmallInt(1))
	require.False(t, ok)
	require.Equal(t, 0, r.MapLen(m))
}

func TestMapOverwriteExistingKey(t *testing.T) {
	r := NewRegistry(heap.New())
	m := r.NewMap()
	require.NoError(t, r.MapSet(m, value.FromSmallInt(1), value.FromSmallInt(100)))
	require.NoError(t, r.MapSet(m, value.FromSmallInt(1), value.FromSmallInt(200)))
	require.Equal(t, 1, r.MapLen(m))
	v, _ := r.MapGet(m, value.FromSmallInt(1))
	require.Equal(t, int64(200), value.ToSmallInt(v))
}

func TestMapGrowsAndKeepsAllEntries(t *testing.T) {
	r := NewRegistry(heap.New())
	m := r.NewMap()
	for i := 0; i < 100; i++ {
		require.NoError(t, r.MapSet(m, value.FromSmallInt(int64(i)), value.FromSmallInt(int64(i*2))))
	}
	require.Equal(t, 100, r.MapLen(m))
	for i := 0; i < 100; i++ {
		v, ok := r.MapGet(m, value.FromSmallInt(int64(i)))
		require.True(t, ok)
		require.Equal(t, int64(i*2), value.ToSmallInt(v))
	}
}

func TestMapUnhashableKeyErrors(t *testing.T) {
	r := NewRegistry(heap.New())
	m := r.NewMap()
	arr := r.NewArray()
	require.ErrorIs(t, r.MapSet(m, arr, value.FromSmallInt(1)), ErrUnhashable)
}

func TestMapStringKeysByContent(t *testing.T) {
	r := NewRegistry(heap.New())
	m := r.NewMap()
	require.NoError(t, r.MapSet(m, r.NewString("key"), value.FromSmallInt(1)))
	v, ok := r.MapGet(m, r.NewString("key"))
	require.True(t, ok)
	require.Equal(t, int64(1), value.ToSmallInt(v))
}
