package ringpool_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/ringpool"
	"github.com/bytekit/arena/storage"
)

func TestPoolAllocate(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(128))
	pool := ringpool.New(view, nil)

	require.Equal(t, 128, pool.Size())
	require.Equal(t, 0, pool.InFlightBytes())

	// Every block carries an 8-byte size prefix; payloads are rounded up
	// to 8 bytes.
	p1, err := pool.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, 8, p1)
	require.Equal(t, 16, pool.InFlightBytes())

	p2, err := pool.Allocate(5)
	require.NoError(t, err)
	require.Equal(t, 24, p2)
	require.Equal(t, 32, pool.InFlightBytes())

	payload := pool.Slice(p2, 5)
	require.Len(t, payload, 5)
}

func TestPoolExhaustion(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	pool := ringpool.New(view, nil)

	p1, err := pool.Allocate(24)
	require.NoError(t, err)
	_, err = pool.Allocate(24)
	require.NoError(t, err)

	_, err = pool.Allocate(8)
	require.ErrorIs(t, err, arena.OutOfMemoryError)

	// Freeing the oldest block makes room again.
	pool.Free(p1)
	p3, err := pool.Allocate(24)
	require.NoError(t, err)
	require.Equal(t, p1, p3)
}

func TestPoolFifoReclaim(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	pool := ringpool.New(view, nil)

	offsets := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		p, err := pool.Allocate(8)
		require.NoError(t, err)
		offsets = append(offsets, p)
	}

	// Out-of-order frees stay pending until the oldest block goes too.
	pool.Free(offsets[1])
	pool.Free(offsets[2])
	require.Equal(t, 64, pool.InFlightBytes())

	// Freeing the oldest block only advances over that block; the pending
	// ones behind it are reclaimed lazily.
	pool.Free(offsets[0])
	require.Equal(t, 48, pool.InFlightBytes())
	require.True(t, pool.ReclaimPending())
	require.Equal(t, 16, pool.InFlightBytes())

	pool.Free(offsets[3])
	require.Equal(t, 0, pool.InFlightBytes())
}

func TestPoolInOrderFree(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	pool := ringpool.New(view, nil)

	offsets := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		p, err := pool.Allocate(8)
		require.NoError(t, err)
		offsets = append(offsets, p)
	}
	require.Equal(t, 48, pool.InFlightBytes())

	// Freeing oldest-first reclaims each block immediately, without a trip
	// through the pending list.
	for i, p := range offsets {
		pool.Free(p)
		require.Equal(t, 48-16*(i+1), pool.InFlightBytes())
	}
	require.False(t, pool.ReclaimPending())
}

func TestPoolWrapAround(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	pool := ringpool.New(view, nil)

	// Cycle through the buffer several times; the cursor wraps and keeps
	// serving as long as frees keep pace.
	previous := -1
	for i := 0; i < 32; i++ {
		p, err := pool.Allocate(24)
		require.NoError(t, err)
		if previous >= 0 {
			pool.Free(previous)
		}
		previous = p
	}
	pool.Free(previous)
	require.True(t, pool.ReclaimPending() || pool.InFlightBytes() == 0)
	require.Equal(t, 0, pool.InFlightBytes())
}

func TestPoolSkippedTail(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(64))
	pool := ringpool.New(view, nil)

	p1, err := pool.Allocate(32)
	require.NoError(t, err)
	pool.Free(p1)

	// 24 bytes remain at the tail; a 24-byte request needs 32 and wraps,
	// parking the tail as padding.
	p2, err := pool.Allocate(24)
	require.NoError(t, err)
	require.Equal(t, 8, p2)
	pool.Free(p2)
	require.Equal(t, 0, pool.InFlightBytes())
}

func TestPoolFallback(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(32))
	fallbackCalls := 0
	pool := ringpool.New(view, func(n int) (int, error) {
		fallbackCalls++
		return -1, nil
	})

	_, err := pool.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, 0, fallbackCalls)

	p, err := pool.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, -1, p)
	require.Equal(t, 1, fallbackCalls)
}

func TestPoolConcurrentProducers(t *testing.T) {
	view := storage.MakeView(storage.NewDynamic(1024))
	pool := ringpool.New(view, nil)

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				p, err := pool.Allocate(16)
				if err != nil {
					// Contention exhausted the ring; reclaim and
					// move on.
					pool.ReclaimPending()
					continue
				}
				pool.Free(p)
			}
		}()
	}
	wg.Wait()

	pool.ReclaimPending()
	require.Equal(t, 0, pool.InFlightBytes())
}
