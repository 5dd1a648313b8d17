package strategy

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/policy"
	"github.com/bytekit/arena/storage"
)

// poolHeaderSize is the in-band bookkeeping cost of one chunk: a single
// tagged word that either links to the next free chunk or marks the chunk
// occupied.
const poolHeaderSize = headerWordSize

// Pool divides the storage into fixed-size chunks and serves each
// allocation from one whole chunk. Free chunks form an intrusive singly
// linked list threaded through their headers; allocation and deallocation
// are O(1), and freed chunks are recycled LIFO. Requests of any size up to
// the chunk capacity succeed as long as a free chunk remains.
type Pool struct {
	view      storage.View
	debug     policy.Policy
	chunkSize int
	// firstFree is the header offset of the first free chunk, noHeader
	// when the pool is exhausted.
	firstFree int
}

// CalculateStorageSize returns the number of bytes of storage needed for a
// pool of numberOfChunks chunks of chunkSize bytes each, including the
// per-chunk headers.
func CalculateStorageSize(chunkSize, numberOfChunks int) int {
	return (chunkSize + poolHeaderSize) * numberOfChunks
}

// NewPool creates a pool strategy over view serving chunks of chunkSize
// bytes. Trailing storage too small for another chunk plus its header is
// left unused. A nil debug policy defaults to policy.NoDebug.
func NewPool(view storage.View, chunkSize int, debug policy.Policy) *Pool {
	arena.Assertf(chunkSize > 0, "invalid chunk size %d", chunkSize)
	if debug == nil {
		debug = policy.NoDebug{}
	}
	p := &Pool{
		view:      view,
		debug:     debug,
		chunkSize: chunkSize,
	}
	p.writeHeaders()
	return p
}

// writeHeaders lays out the free list over all chunks, linking each chunk to
// the one at the next higher address.
func (p *Pool) writeHeaders() {
	stride := p.chunkSize + poolHeaderSize
	chunks := p.view.Size() / stride
	next := noHeader
	for i := chunks - 1; i >= 0; i-- {
		header := i * stride
		writeWord(p.view, header, makeTagged(next, true))
		next = header
	}
	p.firstFree = next
}

// Allocate returns the offset of a block of n bytes aligned to alignment,
// which must be a power of two, carved from the first free chunk. Fails
// with arena.OutOfMemoryError when no chunk is free or when the aligned
// request does not fit the chunk capacity.
func (p *Pool) Allocate(n int, alignment uint) (int, error) {
	arena.DebugCheckPow2(alignment, "alignment")

	if p.firstFree == noHeader {
		return 0, cerrors.Wrapf(arena.OutOfMemoryError,
			"allocating %d bytes with no free chunks", n)
	}
	ret, ok := arena.Align(p.firstFree+poolHeaderSize, p.chunkSize, n, alignment)
	if !ok {
		return 0, cerrors.Wrapf(arena.OutOfMemoryError,
			"allocating %d bytes aligned to %d exceeds the chunk capacity of %d bytes",
			n, alignment, p.chunkSize)
	}

	header := p.firstFree
	p.firstFree = readWord(p.view, header).ref()
	writeWord(p.view, header, makeTagged(noHeader, false))

	p.debug.OnAllocate(n, alignment, ret)
	arena.DebugValidate(p)
	return ret, nil
}

// Deallocate returns the chunk containing offset to the front of the free
// list, so it is the first one recycled.
func (p *Pool) Deallocate(offset, n int) {
	p.debug.OnDeallocate(offset, n)

	stride := p.chunkSize + poolHeaderSize
	header := (offset / stride) * stride
	writeWord(p.view, header, makeTagged(p.firstFree, true))
	p.firstFree = header
	arena.DebugValidate(p)
}

// Reset returns every chunk to the free list and restores the initial
// ascending order. The debug policy observes the reset first and may fault
// if chunks are still outstanding.
func (p *Pool) Reset() {
	p.debug.OnReset()
	p.writeHeaders()
	arena.DebugValidate(p)
}

// ChunkSize returns the usable capacity of a single chunk in bytes.
func (p *Pool) ChunkSize() int {
	return p.chunkSize
}

// FreeChunkCount walks the free list and returns the number of chunks
// currently available.
func (p *Pool) FreeChunkCount() int {
	count := 0
	for header := p.firstFree; header != noHeader; header = readWord(p.view, header).ref() {
		count++
	}
	return count
}

func (p *Pool) totalChunks() int {
	return p.view.Size() / (p.chunkSize + poolHeaderSize)
}

func (p *Pool) Validate() error {
	stride := p.chunkSize + poolHeaderSize
	chunks := p.totalChunks()
	seen := 0
	for header := p.firstFree; header != noHeader; header = readWord(p.view, header).ref() {
		if header < 0 || header%stride != 0 || header/stride >= chunks {
			return errors.New("free list entry does not address a chunk header")
		}
		if !readWord(p.view, header).flag() {
			return errors.New("free list entry is marked occupied")
		}
		seen++
		if seen > chunks {
			return errors.New("free list contains a cycle")
		}
	}
	return nil
}

// AddStatistics accumulates coarse usage numbers for this strategy.
func (p *Pool) AddStatistics(stats *arena.Statistics) {
	used := p.totalChunks() - p.FreeChunkCount()
	stats.BlockCount++
	stats.BlockBytes += p.view.Size()
	stats.AllocationCount += used
	stats.AllocationBytes += used * p.chunkSize
}

// AddDetailedStatistics scans every chunk header and accumulates per-chunk
// usage numbers. Trailing storage too small for another chunk is reported as
// an unused range.
func (p *Pool) AddDetailedStatistics(stats *arena.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += p.view.Size()
	stride := p.chunkSize + poolHeaderSize
	chunks := p.totalChunks()
	for i := 0; i < chunks; i++ {
		if readWord(p.view, i*stride).flag() {
			stats.AddUnusedRange(p.chunkSize)
		} else {
			stats.AddAllocation(p.chunkSize)
		}
	}
	if tail := p.view.Size() - chunks*stride; tail > 0 {
		stats.AddUnusedRange(tail)
	}
}

// JsonData writes a debug dump of the strategy state to an open json object.
func (p *Pool) JsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(p.view.Size())
	json.Name("ChunkSize").Int(p.chunkSize)
	json.Name("TotalChunks").Int(p.totalChunks())
	json.Name("FreeChunks").Int(p.FreeChunkCount())
}
