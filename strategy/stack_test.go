package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/storage"
	"github.com/bytekit/arena/strategy"
)

func TestStackAlloc(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	stack := strategy.NewStack(view, nil)

	require.Equal(t, 64, stack.FreeMemory())
	require.Equal(t, 0, stack.FreeMemoryOffset())

	// Every block is preceded by an 8-byte header.
	p1, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	require.Equal(t, 8, p1)
	require.Equal(t, 48, stack.FreeMemory())

	p2, err := stack.Allocate(16, 1)
	require.NoError(t, err)
	require.Equal(t, 24, p2)
	require.Equal(t, 24, stack.FreeMemory())

	p3, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	require.Equal(t, 48, p3)
	require.Equal(t, 8, stack.FreeMemory())

	_, err = stack.Allocate(8, 1)
	require.ErrorIs(t, err, arena.OutOfMemoryError)

	require.NoError(t, stack.Validate())
}

func TestStackLifoReclaim(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	stack := strategy.NewStack(view, nil)

	p1, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	p2, err := stack.Allocate(16, 1)
	require.NoError(t, err)
	p3, err := stack.Allocate(8, 1)
	require.NoError(t, err)

	stack.Deallocate(p3, 8)
	require.Equal(t, 24, stack.FreeMemory())
	stack.Deallocate(p2, 16)
	require.Equal(t, 48, stack.FreeMemory())
	stack.Deallocate(p1, 8)
	require.Equal(t, 64, stack.FreeMemory())
	require.Equal(t, 0, stack.FreeMemoryOffset())
}

func TestStackOutOfOrderReclaim(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(128))
	stack := strategy.NewStack(view, nil)

	a, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	b, err := stack.Allocate(16, 1)
	require.NoError(t, err)
	c, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	d, err := stack.Allocate(32, 1)
	require.NoError(t, err)
	require.Equal(t, 32, stack.FreeMemory())

	// Freeing interior blocks reclaims nothing while a live block sits
	// above them.
	stack.Deallocate(b, 16)
	require.Equal(t, 32, stack.FreeMemory())
	stack.Deallocate(c, 8)
	require.Equal(t, 32, stack.FreeMemory())

	// Freeing the top block cascades down over the marked run.
	stack.Deallocate(d, 32)
	require.Equal(t, 112, stack.FreeMemory())
	require.Equal(t, 16, stack.FreeMemoryOffset())

	stack.Deallocate(a, 8)
	require.Equal(t, 128, stack.FreeMemory())
	require.Equal(t, 0, stack.FreeMemoryOffset())
}

func TestStackExactFit(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(32))
	stack := strategy.NewStack(view, nil)

	// Header plus block consumes the storage exactly.
	p, err := stack.Allocate(24, 1)
	require.NoError(t, err)
	require.Equal(t, 8, p)
	require.Equal(t, 0, stack.FreeMemory())

	stack.Deallocate(p, 24)

	// One byte over must fail.
	_, err = stack.Allocate(25, 1)
	require.ErrorIs(t, err, arena.OutOfMemoryError)
}

func TestStackAlignmentPaddingLost(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	stack := strategy.NewStack(view, nil)

	p1, err := stack.Allocate(24, 8)
	require.NoError(t, err)
	require.Equal(t, 8, p1)
	require.Equal(t, 32, stack.FreeMemory())

	p2, err := stack.Allocate(9, 16)
	require.NoError(t, err)
	require.Equal(t, 48, p2)
	require.Equal(t, 7, stack.FreeMemory())

	// The padding inserted below the stronger-aligned block stays lost
	// until the block below it goes away as well.
	stack.Deallocate(p2, 9)
	require.Equal(t, 24, stack.FreeMemory())

	stack.Deallocate(p1, 24)
	require.Equal(t, 64, stack.FreeMemory())
}

func TestStackPolicyCallbacks(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	recorder := &strategy.RecordingPolicy{}
	stack := strategy.NewStack(view, recorder)

	p, err := stack.Allocate(8, 2)
	require.NoError(t, err)
	stack.Deallocate(p, 8)

	require.Equal(t, []strategy.RecordedAllocate{
		{Size: 8, Alignment: 8, Offset: p},
	}, recorder.Allocates)
	require.Equal(t, []strategy.RecordedDeallocate{
		{Offset: p, Size: 8},
	}, recorder.Deallocates)
}

func TestStackStatistics(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	stack := strategy.NewStack(view, nil)

	p1, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	_, err = stack.Allocate(16, 1)
	require.NoError(t, err)
	stack.Deallocate(p1, 8)

	var stats arena.Statistics
	stack.AddStatistics(&stats)
	require.Equal(t, arena.Statistics{
		BlockCount:      1,
		BlockBytes:      64,
		AllocationCount: 1,
		AllocationBytes: 40,
	}, stats)
}

func TestStackDetailedStatistics(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	stack := strategy.NewStack(view, nil)

	p1, err := stack.Allocate(8, 1)
	require.NoError(t, err)
	_, err = stack.Allocate(16, 1)
	require.NoError(t, err)
	stack.Deallocate(p1, 8)

	// The freed-but-unreclaimed bottom block and the space past the cursor
	// both show up as unused ranges; the live block's size includes its
	// header.
	var stats arena.DetailedStatistics
	stats.Clear()
	stack.AddDetailedStatistics(&stats)
	require.Equal(t, arena.DetailedStatistics{
		Statistics: arena.Statistics{
			BlockCount:      1,
			AllocationCount: 1,
			BlockBytes:      64,
			AllocationBytes: 24,
		},
		UnusedRangeCount:   2,
		AllocationSizeMin:  24,
		AllocationSizeMax:  24,
		UnusedRangeSizeMin: 16,
		UnusedRangeSizeMax: 24,
	}, stats)
}
