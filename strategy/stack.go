package strategy

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/policy"
	"github.com/bytekit/arena/storage"
)

// stackHeaderSize is the in-band bookkeeping cost of one stack block: a
// single tagged word holding the offset of the previous block's header and
// the freed flag.
const stackHeaderSize = headerWordSize

// Stack hands out blocks in LIFO order. Each block is preceded by a header
// linking it to the block below, forming an intrusive chain from the top of
// the stack down to the first allocation. Blocks may be deallocated in any
// order, but memory is only reclaimed when the topmost block is freed, at
// which point the free cursor cascades down over every contiguous run of
// blocks already marked freed.
type Stack struct {
	view  storage.View
	debug policy.Policy
	// top is the header offset of the topmost live-or-freed block still
	// on the chain, noHeader when the stack is empty.
	top        int
	freeOffset int
}

// NewStack creates a stack strategy over view. A nil debug policy defaults
// to policy.NoDebug.
func NewStack(view storage.View, debug policy.Policy) *Stack {
	if debug == nil {
		debug = policy.NoDebug{}
	}
	return &Stack{
		view:  view,
		debug: debug,
		top:   noHeader,
	}
}

// Allocate returns the offset of a new block of n bytes aligned to
// alignment, which must be a power of two. The effective alignment is
// raised to the header alignment so the preceding header lands on a word
// boundary. Fails with arena.OutOfMemoryError when the free region cannot
// fit the header plus the aligned block.
func (s *Stack) Allocate(n int, alignment uint) (int, error) {
	arena.DebugCheckPow2(alignment, "alignment")
	if alignment < headerAlign {
		alignment = headerAlign
	}

	free := s.FreeMemory()
	if free < stackHeaderSize {
		return 0, cerrors.Wrapf(arena.OutOfMemoryError,
			"allocating %d bytes with only %d bytes free", n, free)
	}
	ret, ok := arena.Align(s.freeOffset+stackHeaderSize, free-stackHeaderSize, n, alignment)
	if !ok {
		return 0, cerrors.Wrapf(arena.OutOfMemoryError,
			"allocating %d bytes aligned to %d with %d bytes free", n, alignment, free)
	}

	header := ret - stackHeaderSize
	writeWord(s.view, header, makeTagged(s.top, false))
	s.top = header
	s.freeOffset = ret + n

	s.debug.OnAllocate(n, alignment, ret)
	arena.DebugValidate(s)
	return ret, nil
}

// Deallocate releases the block of n bytes at offset. Freeing a block below
// the top only marks it; the free cursor moves once the top block is freed,
// cascading down over all blocks already marked.
func (s *Stack) Deallocate(offset, n int) {
	s.debug.OnDeallocate(offset, n)

	header := offset - stackHeaderSize
	writeWord(s.view, header, readWord(s.view, header).withFlag())

	for s.top != noHeader && readWord(s.view, s.top).flag() {
		cleared := s.top
		s.top = readWord(s.view, cleared).ref()
		s.freeOffset = cleared
	}
	if s.top == noHeader {
		s.freeOffset = 0
	}
	arena.DebugValidate(s)
}

// FreeMemory returns the number of bytes between the free cursor and the end
// of storage. Padding bytes below a live block count as used until that
// block is freed.
func (s *Stack) FreeMemory() int {
	return s.view.Size() - s.freeOffset
}

// FreeMemoryOffset returns the offset of the first byte past the topmost
// live block, 0 when the stack is empty.
func (s *Stack) FreeMemoryOffset() int {
	return s.freeOffset
}

func (s *Stack) Validate() error {
	if s.freeOffset < 0 || s.freeOffset > s.view.Size() {
		return errors.New("free cursor lies outside the storage bounds")
	}
	seen := 0
	for header := s.top; header != noHeader; header = readWord(s.view, header).ref() {
		if header < 0 || header+stackHeaderSize > s.view.Size() {
			return errors.New("block header lies outside the storage bounds")
		}
		next := readWord(s.view, header).ref()
		if next != noHeader && next >= header {
			return errors.New("block chain does not descend")
		}
		seen++
		if seen > s.view.Size() {
			return errors.New("block chain contains a cycle")
		}
	}
	if s.top != noHeader && s.freeOffset < s.top+stackHeaderSize {
		return errors.New("free cursor lies below the topmost block")
	}
	return nil
}

// AddStatistics accumulates coarse usage numbers for this strategy.
func (s *Stack) AddStatistics(stats *arena.Statistics) {
	stats.BlockCount++
	stats.BlockBytes += s.view.Size()
	stats.AllocationBytes += s.freeOffset
	for header := s.top; header != noHeader; header = readWord(s.view, header).ref() {
		if !readWord(s.view, header).flag() {
			stats.AllocationCount++
		}
	}
}

// AddDetailedStatistics walks the block chain and accumulates per-block
// usage numbers. Block sizes include the header and any trailing padding up
// to the next header; freed-but-unreclaimed blocks count as unused ranges.
func (s *Stack) AddDetailedStatistics(stats *arena.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += s.view.Size()
	if free := s.FreeMemory(); free > 0 {
		stats.AddUnusedRange(free)
	}
	upper := s.freeOffset
	for header := s.top; header != noHeader; header = readWord(s.view, header).ref() {
		if readWord(s.view, header).flag() {
			stats.AddUnusedRange(upper - header)
		} else {
			stats.AddAllocation(upper - header)
		}
		upper = header
	}
	if upper > 0 {
		stats.AddUnusedRange(upper)
	}
}

// JsonData writes a debug dump of the strategy state to an open json object.
func (s *Stack) JsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(s.view.Size())
	json.Name("FreeMemoryOffset").Int(s.freeOffset)
	json.Name("FreeBytes").Int(s.FreeMemory())
}
