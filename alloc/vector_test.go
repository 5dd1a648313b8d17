package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/alloc"
	"github.com/bytekit/arena/policy"
	"github.com/bytekit/arena/storage"
	"github.com/bytekit/arena/strategy"
)

func TestVectorPushPop(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(1024))
	counter := policy.NewCounter()
	state := alloc.NewState(view, strategy.NewStack(view, counter))
	vec := alloc.NewVector(alloc.New[int32](state))

	require.True(t, vec.Empty())

	for i := int32(0); i < 20; i++ {
		require.NoError(t, vec.PushBack(i*i))
	}
	require.Equal(t, 20, vec.Len())
	require.GreaterOrEqual(t, vec.Cap(), 20)
	for i := 0; i < 20; i++ {
		require.Equal(t, int32(i*i), vec.At(i))
	}

	require.Equal(t, int32(19*19), vec.PopBack())
	require.Equal(t, 19, vec.Len())

	vec.Set(0, -1)
	require.Equal(t, int32(-1), vec.At(0))

	vec.Release()
	require.True(t, vec.Empty())
	require.Equal(t, 0, counter.Count())
}

func TestVectorReserve(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(256))
	state := alloc.NewState(view, strategy.NewMonotonic(view, nil))
	vec := alloc.NewVector(alloc.New[byte](state))

	require.NoError(t, vec.Reserve(64))
	require.Equal(t, 64, vec.Cap())

	// Shrinking is a no-op.
	require.NoError(t, vec.Reserve(8))
	require.Equal(t, 64, vec.Cap())

	require.NoError(t, vec.PushBack(0xff))
	require.Equal(t, 1, vec.Len())
}

func TestVectorGrowthFailure(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	state := alloc.NewState(view, strategy.NewMonotonic(view, nil))
	vec := alloc.NewVector(alloc.New[byte](state))

	require.NoError(t, vec.Reserve(48))
	for i := 0; i < 48; i++ {
		require.NoError(t, vec.PushBack(byte(i)))
	}

	// Doubling past the storage fails and leaves the contents intact.
	err := vec.PushBack(0)
	require.ErrorIs(t, err, arena.OutOfMemoryError)
	require.Equal(t, 48, vec.Len())
	require.Equal(t, byte(47), vec.At(47))
}
