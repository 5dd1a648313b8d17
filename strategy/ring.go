package strategy

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/policy"
	"github.com/bytekit/arena/storage"
)

// ringHeaderSize is the in-band bookkeeping cost of one ring block: a word
// referencing the next block toward the top, and a word referencing the
// previous block toward the bottom that also carries the freed flag.
const ringHeaderSize = 2 * headerWordSize

const (
	ringNextWord = 0
	ringPrevWord = headerWordSize
)

// Ring hands out blocks from a forward-moving cursor that wraps back to the
// start of the storage once the end is reached, as long as that does not
// overrun the oldest live block. Live blocks form an intrusive doubly linked
// chain between the bottom (oldest) and top (newest) block; freeing in FIFO
// order reclaims memory immediately, while out-of-order frees only mark the
// block until a neighbor at either end of the chain catches up.
type Ring struct {
	view  storage.View
	debug policy.Policy
	// top and bottom are the header offsets of the newest and oldest
	// block on the chain, noHeader when the ring is empty.
	top        int
	bottom     int
	freeOffset int
}

// NewRing creates a ring strategy over view. A nil debug policy defaults to
// policy.NoDebug.
func NewRing(view storage.View, debug policy.Policy) *Ring {
	if debug == nil {
		debug = policy.NoDebug{}
	}
	return &Ring{
		view:   view,
		debug:  debug,
		top:    noHeader,
		bottom: noHeader,
	}
}

// contiguous returns the number of bytes usable in one piece starting at
// offset: up to the bottom block's header if it lies ahead of offset, or up
// to the end of the storage otherwise.
func (r *Ring) contiguous(offset int) int {
	if r.bottom == noHeader || r.bottom < offset {
		return r.view.Size() - offset
	}
	return r.bottom - offset
}

// IsWrappedAround reports whether the free cursor has wrapped past the end
// of the storage and now lies at or below the bottom block.
func (r *Ring) IsWrappedAround() bool {
	return r.bottom != noHeader && r.freeOffset <= r.bottom
}

// Allocate returns the offset of a new block of n bytes aligned to
// alignment, which must be a power of two. The effective alignment is
// raised to the header alignment. When the region ahead of the cursor is
// too small the allocation wraps around to the start of the storage; fails
// with arena.OutOfMemoryError when neither region can hold the header plus
// the aligned block.
func (r *Ring) Allocate(n int, alignment uint) (int, error) {
	arena.DebugCheckPow2(alignment, "alignment")
	if alignment < headerAlign {
		alignment = headerAlign
	}

	free := r.contiguous(r.freeOffset)
	var ret int
	ok := false
	if free >= ringHeaderSize {
		ret, ok = arena.Align(r.freeOffset+ringHeaderSize, free-ringHeaderSize, n, alignment)
	}
	if !ok {
		if r.IsWrappedAround() {
			return 0, cerrors.Wrapf(arena.OutOfMemoryError,
				"allocating %d bytes aligned to %d with %d contiguous bytes free", n, alignment, free)
		}
		free = r.contiguous(0)
		if free >= ringHeaderSize {
			ret, ok = arena.Align(ringHeaderSize, free-ringHeaderSize, n, alignment)
		}
		if !ok {
			return 0, cerrors.Wrapf(arena.OutOfMemoryError,
				"allocating %d bytes aligned to %d with %d contiguous bytes free after wrap", n, alignment, free)
		}
	}

	header := ret - ringHeaderSize
	writeWord(r.view, header+ringNextWord, makeTagged(noHeader, false))
	writeWord(r.view, header+ringPrevWord, makeTagged(r.top, false))
	if r.top == noHeader {
		r.bottom = header
	} else {
		writeWord(r.view, r.top+ringNextWord, makeTagged(header, false))
	}
	r.top = header
	r.freeOffset = ret + n

	r.debug.OnAllocate(n, alignment, ret)
	arena.DebugValidate(r)
	return ret, nil
}

// Deallocate releases the block of n bytes at offset. Freeing an interior
// block only marks it; memory is reclaimed when marked blocks reach the top
// or bottom end of the chain, shrinking it from both sides over all blocks
// already marked.
func (r *Ring) Deallocate(offset, n int) {
	r.debug.OnDeallocate(offset, n)

	header := offset - ringHeaderSize
	writeWord(r.view, header+ringPrevWord, readWord(r.view, header+ringPrevWord).withFlag())

	for r.top != noHeader && readWord(r.view, r.top+ringPrevWord).flag() {
		cleared := r.top
		r.top = readWord(r.view, cleared+ringPrevWord).ref()
		if r.top != noHeader {
			writeWord(r.view, r.top+ringNextWord, makeTagged(noHeader, false))
			r.freeOffset = cleared
		} else {
			r.bottom = noHeader
			r.freeOffset = 0
		}
	}
	for r.bottom != noHeader && readWord(r.view, r.bottom+ringPrevWord).flag() {
		cleared := r.bottom
		r.bottom = readWord(r.view, cleared+ringNextWord).ref()
		if r.bottom != noHeader {
			// Keep the freed flag of the new bottom intact while
			// dropping its back reference.
			prev := readWord(r.view, r.bottom+ringPrevWord)
			writeWord(r.view, r.bottom+ringPrevWord, prev&1)
		}
	}
	arena.DebugValidate(r)
}

// FreeMemory returns the number of bytes usable in one piece from the
// current cursor position.
func (r *Ring) FreeMemory() int {
	return r.contiguous(r.freeOffset)
}

// FreeMemoryOffset returns the offset of the first byte past the topmost
// block, 0 when the ring is empty.
func (r *Ring) FreeMemoryOffset() int {
	return r.freeOffset
}

func (r *Ring) Validate() error {
	if r.freeOffset < 0 || r.freeOffset > r.view.Size() {
		return errors.New("free cursor lies outside the storage bounds")
	}
	if (r.top == noHeader) != (r.bottom == noHeader) {
		return errors.New("chain has only one end")
	}
	seen := 0
	prev := noHeader
	for header := r.bottom; header != noHeader; header = readWord(r.view, header+ringNextWord).ref() {
		if header < 0 || header+ringHeaderSize > r.view.Size() {
			return errors.New("block header lies outside the storage bounds")
		}
		if readWord(r.view, header+ringPrevWord).ref() != prev {
			return errors.New("chain back reference does not match")
		}
		prev = header
		seen++
		if seen > r.view.Size() {
			return errors.New("chain contains a cycle")
		}
	}
	if prev != r.top {
		return errors.New("chain does not end at the top block")
	}
	return nil
}

// AddStatistics accumulates coarse usage numbers for this strategy.
func (r *Ring) AddStatistics(stats *arena.Statistics) {
	stats.BlockCount++
	stats.BlockBytes += r.view.Size()
	for header := r.bottom; header != noHeader; header = readWord(r.view, header+ringNextWord).ref() {
		if !readWord(r.view, header+ringPrevWord).flag() {
			stats.AllocationCount++
		}
	}
	stats.AllocationBytes += r.view.Size() - r.contiguous(r.freeOffset)
}

// AddDetailedStatistics walks the block chain and accumulates per-block
// usage numbers. Block sizes include the header and any padding up to the
// next header; marked-but-unreclaimed blocks count as unused ranges, as does
// the gap reclaimed below the bottom block after FIFO frees.
func (r *Ring) AddDetailedStatistics(stats *arena.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += r.view.Size()
	if free := r.contiguous(r.freeOffset); free > 0 {
		stats.AddUnusedRange(free)
	}
	if r.bottom != noHeader && r.bottom > 0 && r.bottom < r.freeOffset {
		stats.AddUnusedRange(r.bottom)
	}
	for header := r.bottom; header != noHeader; {
		next := readWord(r.view, header+ringNextWord).ref()
		end := r.view.Size()
		switch {
		case next != noHeader && next > header:
			end = next
		case next == noHeader && r.freeOffset > header:
			end = r.freeOffset
		}
		if readWord(r.view, header+ringPrevWord).flag() {
			stats.AddUnusedRange(end - header)
		} else {
			stats.AddAllocation(end - header)
		}
		header = next
	}
}

// JsonData writes a debug dump of the strategy state to an open json object.
func (r *Ring) JsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(r.view.Size())
	json.Name("FreeMemoryOffset").Int(r.freeOffset)
	json.Name("ContiguousFreeBytes").Int(r.FreeMemory())
	json.Name("WrappedAround").Bool(r.IsWrappedAround())
}
