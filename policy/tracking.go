package policy

import (
	"context"

	"github.com/bytekit/arena"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// Record is an allocation record maintained by the Tracking debug policy.
type Record struct {
	// Offset of the memory block returned by the allocation.
	Offset int
	// Alignment requested for the allocation.
	Alignment uint
	// Size in bytes requested for the allocation.
	Size int
	// Id assigned by the policy. Ids are monotonically increasing and unique
	// per policy up to overflow.
	Id uint64
}

// Tracking maintains a full track record of all active allocations. Each
// allocation is saved to an internal map keyed by offset. Deallocations are
// checked to match entries in the map. The policy asserts that no
// allocations are active upon reset and destruction; before tripping the
// assert handler it logs every outstanding allocation, so that leaks can be
// diagnosed from the log alone. A list of all active allocations can be
// retrieved through Records.
type Tracking struct {
	records *swiss.Map[int, Record]
	counter uint64
	logger  *slog.Logger
}

var _ Policy = &Tracking{}

// NewTracking creates a Tracking policy that reports leaked allocations to
// the provided logger. A nil logger falls back to slog.Default().
func NewTracking(logger *slog.Logger) *Tracking {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracking{
		records: swiss.NewMap[int, Record](42),
		logger:  logger,
	}
}

func (t *Tracking) OnAllocate(size int, alignment uint, offset int) {
	_, ok := t.records.Get(offset)
	arena.Assertf(!ok, "same memory block at offset %d was allocated twice", offset)

	t.records.Put(offset, Record{
		Offset:    offset,
		Alignment: alignment,
		Size:      size,
		Id:        t.counter,
	})
	t.counter++
}

func (t *Tracking) OnDeallocate(offset, size int) {
	record, ok := t.records.Get(offset)
	if !ok {
		arena.Assertf(false, "deallocating a block at offset %d that was not allocated from this resource", offset)
		return
	}
	arena.Assertf(record.Size == size,
		"deallocation size %d at offset %d does not match allocation size %d", size, offset, record.Size)
	t.records.Delete(offset)
}

func (t *Tracking) OnReset() {
	t.assertEmpty("reset")
}

// Destroy asserts that no allocations are outstanding, logging each leaked
// record first. Call it when the observed strategy goes out of use.
func (t *Tracking) Destroy() {
	t.assertEmpty("destroyed")
}

func (t *Tracking) assertEmpty(event string) {
	if t.records.Count() == 0 {
		return
	}

	for _, record := range t.Records() {
		t.logger.LogAttrs(context.Background(),
			slog.LevelError,
			"[UNRELEASED MEMORY] allocation still active",
			slog.Uint64("id", record.Id),
			slog.Int("offset", record.Offset),
			slog.Int("size", record.Size),
		)
	}

	arena.Assertf(false,
		"memory resource was %s while there were still %d allocations active", event, t.records.Count())
}

// Records returns a list of all active allocations. An allocation is active
// if it was allocated but not yet deallocated. The order of entries in the
// returned list matches the order of the corresponding allocations.
func (t *Tracking) Records() []Record {
	records := make([]Record, 0, t.records.Count())
	t.records.Iter(func(offset int, record Record) bool {
		records = append(records, record)
		return false
	})
	slices.SortFunc(records, func(lhs, rhs Record) bool { return lhs.Id < rhs.Id })
	return records
}

// JsonData populates a json object with information about the currently
// active allocations.
func (t *Tracking) JsonData(json jwriter.ObjectState) {
	var activeBytes int
	t.records.Iter(func(offset int, record Record) bool {
		activeBytes += record.Size
		return false
	})

	json.Name("ActiveAllocations").Int(t.records.Count())
	json.Name("ActiveBytes").Int(activeBytes)
	json.Name("TotalAllocations").Int(int(t.counter))
}
