// Package alloc adapts an allocation strategy into a typed allocator that
// hands out slices instead of raw byte offsets.
package alloc

import (
	"unsafe"

	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/storage"
	"github.com/bytekit/arena/strategy"
)

// State bundles a storage view with the strategy managing it. All typed
// allocators rebound from one another share a single State, and two
// allocators compare equal exactly when they share it.
type State struct {
	view     storage.View
	strategy strategy.Strategy
}

func NewState(view storage.View, s strategy.Strategy) *State {
	return &State{
		view:     view,
		strategy: s,
	}
}

// View returns the storage view the state allocates from.
func (s *State) View() storage.View {
	return s.view
}

// StatefulAllocator hands out []T slices backed by the shared state's
// storage. It is a value type; copies refer to the same state.
type StatefulAllocator[T any] struct {
	state *State
}

// New creates a typed allocator over state.
func New[T any](state *State) StatefulAllocator[T] {
	return StatefulAllocator[T]{state: state}
}

// Rebind converts an allocator for one element type into an allocator for
// another, sharing the same state.
func Rebind[U, T any](a StatefulAllocator[T]) StatefulAllocator[U] {
	return StatefulAllocator[U]{state: a.state}
}

// Allocate reserves storage for count elements and returns them as a slice
// of length count over the underlying buffer. The request is sized
// count*sizeof(T) and aligned to alignof(T).
func (a StatefulAllocator[T]) Allocate(count int) ([]T, error) {
	arena.Assertf(count >= 0, "invalid element count %d", count)

	var zero T
	size := int(unsafe.Sizeof(zero)) * count
	align := uint(unsafe.Alignof(zero))
	offset, err := a.state.strategy.Allocate(size, align)
	if err != nil {
		return nil, err
	}

	ptr := (*T)(unsafe.Pointer(unsafe.SliceData(a.state.view.Bytes[offset:])))
	return unsafe.Slice(ptr, count), nil
}

// Deallocate releases a slice of count elements previously returned by
// Allocate on an allocator sharing this state.
func (a StatefulAllocator[T]) Deallocate(slice []T, count int) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.state.view.Bytes)))
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(slice)))
	arena.Assert(ptr >= base, "slice does not belong to this allocator")
	offset := int(ptr - base)

	var zero T
	a.state.strategy.Deallocate(offset, int(unsafe.Sizeof(zero))*count)
}

// State returns the shared state, for identity comparison and rebinding.
func (a StatefulAllocator[T]) State() *State {
	return a.state
}

// Equal reports whether two allocators draw from the same state. Memory
// allocated through one can be deallocated through the other exactly when
// this holds.
func (a StatefulAllocator[T]) Equal(other StatefulAllocator[T]) bool {
	return a.state == other.state
}
