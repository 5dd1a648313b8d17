// Package policy contains the pluggable debug policies that observe
// allocation strategies. Every strategy forwards each allocate, deallocate,
// and reset call to its policy before finalizing the operation, which lets a
// policy count allocations, keep a full track record, or paint memory with
// recognizable bit patterns without the strategy knowing which (if any)
// instrumentation is active.
package policy

// Policy is the observer interface invoked by an allocation strategy.
// Offsets are byte offsets into the strategy's storage view, matching the
// values the strategy hands out from Allocate.
type Policy interface {
	// OnAllocate is invoked after a successful allocation, before the offset
	// is returned to the caller.
	OnAllocate(size int, alignment uint, offset int)
	// OnDeallocate is invoked at the start of a deallocation, before the
	// strategy reclaims the block.
	OnDeallocate(offset, size int)
	// OnReset is invoked on explicit resets (not all strategies provide such a reset).
	OnReset()
}

// NoDebug is the empty policy. It does nothing.
type NoDebug struct{}

var _ Policy = NoDebug{}

func (NoDebug) OnAllocate(size int, alignment uint, offset int) {}
func (NoDebug) OnDeallocate(offset, size int)                   {}
func (NoDebug) OnReset()                                        {}

// Combined is a debug policy combined of multiple other debug policies. All
// calls to the combined policy get forwarded to each of the contained
// policies in the order they were passed to NewCombined.
type Combined struct {
	policies []Policy
}

var _ Policy = &Combined{}

func NewCombined(policies ...Policy) *Combined {
	return &Combined{policies: policies}
}

// Contained retrieves one of the contained policies by its 0-based position
// in the NewCombined argument list.
func (c *Combined) Contained(index int) Policy {
	return c.policies[index]
}

func (c *Combined) OnAllocate(size int, alignment uint, offset int) {
	for _, p := range c.policies {
		p.OnAllocate(size, alignment, offset)
	}
}

func (c *Combined) OnDeallocate(offset, size int) {
	for _, p := range c.policies {
		p.OnDeallocate(offset, size)
	}
}

func (c *Combined) OnReset() {
	for _, p := range c.policies {
		p.OnReset()
	}
}
