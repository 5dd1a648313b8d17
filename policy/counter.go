package policy

import (
	"github.com/bytekit/arena"
)

// Counter counts allocations and deallocations. The internal counter is
// incremented with each OnAllocate call and decremented with each
// OnDeallocate call. The policy asserts that the counter is 0 upon reset and
// destruction, and that the total number of deallocations never exceeds the
// number of allocations. It does not track whether deallocate calls actually
// match previous allocate calls; use Tracking for that.
type Counter struct {
	count int
}

var _ Policy = &Counter{}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) OnAllocate(size int, alignment uint, offset int) {
	c.count++
}

func (c *Counter) OnDeallocate(offset, size int) {
	arena.Assert(c.count > 0, "deallocation count exceeds allocation count")
	if c.count > 0 {
		c.count--
	}
}

func (c *Counter) OnReset() {
	arena.Assertf(c.count == 0,
		"memory resource was reset while there were still %d allocations active", c.count)
}

// Destroy asserts that no allocations are outstanding. Call it when the
// observed strategy goes out of use.
func (c *Counter) Destroy() {
	arena.Assertf(c.count == 0,
		"memory resource was destroyed while there were still %d allocations active", c.count)
}

// Count returns the current allocation count. The counter is increased for
// each allocation and decreased for each deallocation.
func (c *Counter) Count() int {
	return c.count
}
