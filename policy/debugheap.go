package policy

import (
	"github.com/bytekit/arena/storage"
)

const (
	// AllocatedPattern is written over every byte of a freshly allocated
	// block, making reads of uninitialized memory recognizable.
	AllocatedPattern byte = 0xcd
	// FreedPattern is written over every byte of a freed block, making
	// use-after-free bugs recognizable.
	FreedPattern byte = 0xdd
)

// DebugHeap writes magic bit patterns into memory to ease debugging. Only
// the requested block bytes are touched; the strategy's headers and any
// padding bytes outside [offset, offset+size) are left alone.
type DebugHeap struct {
	view storage.View
}

var _ Policy = DebugHeap{}

// NewDebugHeap creates a DebugHeap policy over the same view the observed
// strategy manages.
func NewDebugHeap(view storage.View) DebugHeap {
	return DebugHeap{view: view}
}

func (d DebugHeap) OnAllocate(size int, alignment uint, offset int) {
	d.fill(offset, size, AllocatedPattern)
}

func (d DebugHeap) OnDeallocate(offset, size int) {
	d.fill(offset, size, FreedPattern)
}

func (d DebugHeap) OnReset() {}

func (d DebugHeap) fill(offset, size int, pattern byte) {
	block := d.view.Slice(offset, size)
	for i := range block {
		block[i] = pattern
	}
}
