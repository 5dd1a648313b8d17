package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	arena "github.com/bytekit/arena"
)

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, arena.AlignUp(0, 8))
	require.Equal(t, 8, arena.AlignUp(1, 8))
	require.Equal(t, 8, arena.AlignUp(8, 8))
	require.Equal(t, 16, arena.AlignUp(9, 8))
	require.Equal(t, 7, arena.AlignUp(7, 1))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, arena.AlignDown(7, 8))
	require.Equal(t, 8, arena.AlignDown(8, 8))
	require.Equal(t, 8, arena.AlignDown(15, 8))
	require.Equal(t, 7, arena.AlignDown(7, 1))
}

func TestAlign(t *testing.T) {
	// Placement already aligned.
	offset, ok := arena.Align(8, 8, 8, 8)
	require.True(t, ok)
	require.Equal(t, 8, offset)

	// Padding consumed from the available space.
	offset, ok = arena.Align(9, 15, 8, 8)
	require.True(t, ok)
	require.Equal(t, 16, offset)

	// One byte short.
	_, ok = arena.Align(9, 14, 8, 8)
	require.False(t, ok)

	// Zero-size placement right at the end of the space.
	offset, ok = arena.Align(16, 0, 0, 8)
	require.True(t, ok)
	require.Equal(t, 16, offset)
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, arena.CheckPow2(1, "alignment"))
	require.NoError(t, arena.CheckPow2(64, "alignment"))
	err := arena.CheckPow2(24, "alignment")
	require.ErrorIs(t, err, arena.PowerOfTwoError)
}
