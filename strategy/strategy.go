package strategy

import (
	arena "github.com/bytekit/arena"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Strategy is the interface shared by all allocation strategies. Offsets
// returned by Allocate index into the storage view the strategy was created
// over.
type Strategy interface {
	arena.Validatable

	// Allocate reserves n bytes aligned to alignment, which must be a
	// power of two, and returns the offset of the new block
	Allocate(n int, alignment uint) (int, error)
	// Deallocate releases the block of n bytes at offset, which must
	// have been returned by a previous Allocate with the same size
	Deallocate(offset, n int)
	// AddStatistics accumulates usage numbers into stats
	AddStatistics(stats *arena.Statistics)
	// AddDetailedStatistics walks the strategy's bookkeeping and
	// accumulates detailed usage numbers into stats
	AddDetailedStatistics(stats *arena.DetailedStatistics)
	// JsonData writes a debug dump of the strategy state to an open
	// json object
	JsonData(json jwriter.ObjectState)
}

var _ Strategy = (*Monotonic)(nil)
var _ Strategy = (*Stack)(nil)
var _ Strategy = (*Pool)(nil)
var _ Strategy = (*Ring)(nil)
