// Package ringpool provides a concurrent byte allocator over a fixed
// buffer. Allocation claims space from a forward-moving cursor with a
// compare-and-swap, so concurrent allocators never block each other.
// Reclamation is FIFO: freeing the oldest live block moves the trailing
// cursor forward with a compare-and-swap, while blocks freed out of order
// are parked on a mutex-guarded pending list and reclaimed lazily once
// every older block has been freed as well.
package ringpool

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/storage"
)

// prefixSize is the in-band bookkeeping cost of one block: a word holding
// the full block size, written immediately before the payload.
const prefixSize = 8

// FallbackFunc is consulted when the pool cannot satisfy an allocation even
// after reclaiming all pending frees. It may serve the request from
// elsewhere and return a substitute offset, or return an error to fail the
// allocation. Offsets produced by a fallback must be recognizable to the
// caller, since Free only accepts offsets from the pool itself.
type FallbackFunc func(n int) (int, error)

// pendingEntry records a block or padding run awaiting reclamation. Sizes
// include the prefix.
type pendingEntry struct {
	size uint64
}

// Pool is a concurrent ring allocator. The left and right cursors are
// virtual: they increase monotonically and are reduced modulo the buffer
// size on access, which keeps full and empty states distinguishable without
// wasting a slot.
type Pool struct {
	view     storage.View
	size     uint64
	fallback FallbackFunc

	right atomic.Uint64
	left  atomic.Uint64

	mu      sync.Mutex
	pending *swiss.Map[int, pendingEntry]
}

// New creates a pool over view. The view size must be a multiple of 8 and
// large enough for at least one prefixed block. A nil fallback fails
// exhausted allocations with arena.OutOfMemoryError.
func New(view storage.View, fallback FallbackFunc) *Pool {
	arena.Assertf(view.Size() >= 2*prefixSize, "storage of %d bytes is too small", view.Size())
	arena.Assertf(view.Size()%prefixSize == 0, "storage size %d is not a multiple of %d", view.Size(), prefixSize)
	return &Pool{
		view:     view,
		size:     uint64(view.Size()),
		fallback: fallback,
		pending:  swiss.NewMap[int, pendingEntry](16),
	}
}

// Allocate reserves n bytes and returns their offset within the buffer.
// Blocks are aligned to 8 bytes and contiguous; a request that does not fit
// before the end of the buffer wraps to the start, parking the skipped tail
// for reclamation. When the pool is exhausted, pending frees are reclaimed
// and the allocation retried once before the fallback is consulted.
func (p *Pool) Allocate(n int) (int, error) {
	arena.Assertf(n >= 0, "invalid allocation size %d", n)

	total := prefixSize + arena.AlignUp(n, prefixSize)
	reclaimed := false
	for {
		right := p.right.Load()
		left := p.left.Load()

		pos := right % p.size
		var pad uint64
		if pos+uint64(total) > p.size {
			pad = p.size - pos
		}
		if right+pad+uint64(total)-left > p.size {
			if !reclaimed && p.ReclaimPending() {
				reclaimed = true
				continue
			}
			if p.fallback != nil {
				return p.fallback(n)
			}
			return 0, cerrors.Wrapf(arena.OutOfMemoryError,
				"allocating %d bytes from a ring of %d with %d in flight", n, p.size, right-left)
		}
		if !p.right.CompareAndSwap(right, right+pad+uint64(total)) {
			continue
		}

		if pad != 0 {
			p.mu.Lock()
			p.pending.Put(int(pos), pendingEntry{size: pad})
			p.advanceLocked()
			p.mu.Unlock()
		}
		start := int((right + pad) % p.size)
		binary.LittleEndian.PutUint64(p.view.Bytes[start:], uint64(total))
		return start + prefixSize, nil
	}
}

// Free releases the block at offset. Freeing the oldest live block advances
// the trailing cursor directly without taking the lock. Any other block is
// parked on the pending list; its bytes become reusable once every block
// allocated before it has been freed as well, reclaimed lazily by a later
// out-of-order Free, an exhausted Allocate, or an explicit ReclaimPending.
func (p *Pool) Free(offset int) {
	header := offset - prefixSize
	arena.Assertf(header >= 0 && header+prefixSize <= int(p.size), "offset %d does not address a block", offset)
	total := binary.LittleEndian.Uint64(p.view.Bytes[header:])

	// The oldest live block is only ever advanced past by its own Free, so
	// a successful swap here cannot race with the locked reclaimer.
	for {
		left := p.left.Load()
		if int(left%p.size) != header {
			break
		}
		if p.left.CompareAndSwap(left, left+total) {
			return
		}
	}

	p.mu.Lock()
	_, doubleFree := p.pending.Get(header)
	arena.Assertf(!doubleFree, "block at offset %d freed twice", offset)
	p.pending.Put(header, pendingEntry{size: total})
	p.advanceLocked()
	p.mu.Unlock()
}

// ReclaimPending advances the trailing cursor over all contiguously freed
// blocks and reports whether any memory was recovered.
func (p *Pool) ReclaimPending() bool {
	p.mu.Lock()
	before := p.left.Load()
	p.advanceLocked()
	after := p.left.Load()
	p.mu.Unlock()
	return after != before
}

func (p *Pool) advanceLocked() {
	for {
		left := p.left.Load()
		if left == p.right.Load() {
			return
		}
		pos := int(left % p.size)
		entry, ok := p.pending.Get(pos)
		if !ok {
			return
		}
		p.pending.Delete(pos)
		p.left.Store(left + entry.size)
	}
}

// Size returns the total capacity of the buffer in bytes.
func (p *Pool) Size() int {
	return int(p.size)
}

// InFlightBytes returns the number of bytes between the trailing and
// leading cursors, including prefixes, padding, and blocks freed but not
// yet reclaimed. The value is a snapshot and immediately stale under
// concurrent use.
func (p *Pool) InFlightBytes() int {
	return int(p.right.Load() - p.left.Load())
}

// Slice returns the payload bytes of the block of n bytes at offset.
func (p *Pool) Slice(offset, n int) []byte {
	return p.view.Slice(offset, n)
}
