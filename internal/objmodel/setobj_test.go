package objmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"j5.nz/ovm/internal/heap"
	"j5.nz/ovm/internal/value"
)

func TestSetAddHasRemove(t *testing.T) {
	r := NewRegistry(heap.New())
	s := r.NewSet()

	added, err := r.SetAdd(s, value.FromSmallInt(5))
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, r.SetHas(s, value.FromSmallInt(5)))

	added, err = r.SetAdd(s, value.FromSmallInt(5))
	require.NoError(t, err)
	require.False(t, added, "duplicate add reports already-present")
	require.Equal(t, 1, r.SetLen(s))

	require.True(t, r.SetRemove(s, value.FromSmallInt(5)))
	require.False(t, r.SetHas(s, value.FromSmallInt(5)))
	require.Equal(t, 0, r.SetLen(s))
}

func TestSetGrows(t *testing.T) {
	r := NewRegistry(heap.New())
	s := r.NewSet()
	for i := 0; i < 50; i++ {
		_, err := r.SetAdd(s, value.FromSmallInt(int64(i)))
		require.NoError(t, err)
	}
	require.Equal(t, 50, r.SetLen(s))
	for i := 0; i < 50; i++ {
		require.True(t, r.SetHas(s, value.FromSmallInt(int64(i))))
	}
}
