package strategy

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/policy"
	"github.com/bytekit/arena/storage"
)

// Monotonic hands out blocks from a single forward-moving cursor. Individual
// blocks cannot be reclaimed; Deallocate only notifies the debug policy, and
// memory is only recovered wholesale through Reset. This is the cheapest
// strategy when all allocations share a lifetime.
type Monotonic struct {
	view   storage.View
	debug  policy.Policy
	offset int
}

// NewMonotonic creates a monotonic strategy over view. A nil debug policy
// defaults to policy.NoDebug.
func NewMonotonic(view storage.View, debug policy.Policy) *Monotonic {
	if debug == nil {
		debug = policy.NoDebug{}
	}
	return &Monotonic{
		view:  view,
		debug: debug,
	}
}

// Allocate returns the offset of a new block of n bytes aligned to
// alignment, which must be a power of two. Zero-size allocations succeed and
// return distinct offsets. Fails with arena.OutOfMemoryError when the
// remaining storage cannot satisfy the request.
func (m *Monotonic) Allocate(n int, alignment uint) (int, error) {
	arena.DebugCheckPow2(alignment, "alignment")

	// Zero-size blocks still consume a byte so that consecutive
	// allocations stay distinguishable; the byte counts against the
	// free space like any other.
	advance := n
	if advance == 0 {
		advance = 1
	}
	ret, ok := arena.Align(m.offset, m.FreeMemory(), advance, alignment)
	if !ok {
		return 0, cerrors.Wrapf(arena.OutOfMemoryError,
			"allocating %d bytes aligned to %d with %d bytes free", n, alignment, m.FreeMemory())
	}
	m.offset = ret + advance

	m.debug.OnAllocate(n, alignment, ret)
	arena.DebugValidate(m)
	return ret, nil
}

// Deallocate releases the block at offset. The memory itself is not
// reclaimed until Reset; only the debug policy is notified.
func (m *Monotonic) Deallocate(offset, n int) {
	m.debug.OnDeallocate(offset, n)
	arena.DebugValidate(m)
}

// Reset rewinds the cursor to the start of the storage, reclaiming all
// allocations at once. The debug policy observes the reset first and may
// fault if blocks are still outstanding.
func (m *Monotonic) Reset() {
	m.debug.OnReset()
	m.offset = 0
	arena.DebugValidate(m)
}

// FreeMemory returns the number of bytes left before the end of storage.
func (m *Monotonic) FreeMemory() int {
	return m.view.Size() - m.offset
}

func (m *Monotonic) Validate() error {
	if m.offset < 0 || m.offset > m.view.Size() {
		return errors.New("cursor lies outside the storage bounds")
	}
	return nil
}

// AddStatistics accumulates coarse usage numbers for this strategy.
func (m *Monotonic) AddStatistics(stats *arena.Statistics) {
	stats.BlockCount++
	stats.BlockBytes += m.view.Size()
	stats.AllocationBytes += m.offset
}

// AddDetailedStatistics accumulates detailed usage numbers. Individual
// blocks are not tracked, so the whole used region is reported as a single
// allocation.
func (m *Monotonic) AddDetailedStatistics(stats *arena.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.view.Size()
	if m.offset > 0 {
		stats.AddAllocation(m.offset)
	}
	if free := m.FreeMemory(); free > 0 {
		stats.AddUnusedRange(free)
	}
}

// JsonData writes a debug dump of the strategy state to an open json object.
func (m *Monotonic) JsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(m.view.Size())
	json.Name("UsedBytes").Int(m.offset)
	json.Name("FreeBytes").Int(m.FreeMemory())
}
