// Package fixedring provides a fixed-capacity ring-buffer container. The
// backing array never moves after construction, so elements can be stored in
// arena memory through a typed allocator.
package fixedring

import (
	arena "github.com/bytekit/arena"
	"github.com/bytekit/arena/alloc"
)

// Ring is a FIFO container holding at most Cap elements. Pushing onto a
// full ring and popping from an empty one are precondition violations.
type Ring[T any] struct {
	data []T
	head int
	size int

	// allocated is set when the backing array came from an allocator and
	// must be returned through Destroy.
	allocated bool
	alloc     alloc.StatefulAllocator[T]
}

// New creates a ring of the given capacity backed by ordinary heap memory.
func New[T any](capacity int) *Ring[T] {
	arena.Assertf(capacity > 0, "invalid capacity %d", capacity)
	return &Ring[T]{data: make([]T, capacity)}
}

// NewIn creates a ring of the given capacity with its backing array
// allocated through a. The ring must be released with Destroy before the
// backing strategy is reset.
func NewIn[T any](capacity int, a alloc.StatefulAllocator[T]) (*Ring[T], error) {
	arena.Assertf(capacity > 0, "invalid capacity %d", capacity)
	data, err := a.Allocate(capacity)
	if err != nil {
		return nil, err
	}
	return &Ring[T]{
		data:      data,
		allocated: true,
		alloc:     a,
	}, nil
}

// Destroy returns an allocator-backed ring's storage. The ring must be
// empty. Destroying a heap-backed ring only checks emptiness.
func (r *Ring[T]) Destroy() {
	arena.Assertf(r.size == 0, "ring destroyed with %d elements still stored", r.size)
	if r.allocated {
		r.alloc.Deallocate(r.data, len(r.data))
		r.allocated = false
	}
	r.data = nil
}

// PushBack appends value at the back of the ring.
func (r *Ring[T]) PushBack(value T) {
	if r.Full() {
		arena.Assert(false, "push onto a full ring")
		return
	}
	r.data[(r.head+r.size)%len(r.data)] = value
	r.size++
}

// PopFront removes and returns the element at the front of the ring.
func (r *Ring[T]) PopFront() T {
	var zero T
	if r.Empty() {
		arena.Assert(false, "pop from an empty ring")
		return zero
	}
	value := r.data[r.head]
	r.data[r.head] = zero
	r.head = (r.head + 1) % len(r.data)
	r.size--
	return value
}

// Front returns the oldest element.
func (r *Ring[T]) Front() T {
	if r.Empty() {
		arena.Assert(false, "front of an empty ring")
		var zero T
		return zero
	}
	return r.data[r.head]
}

// Back returns the newest element.
func (r *Ring[T]) Back() T {
	if r.Empty() {
		arena.Assert(false, "back of an empty ring")
		var zero T
		return zero
	}
	return r.data[(r.head+r.size-1)%len(r.data)]
}

// At returns the i-th element counted from the front.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		arena.Assertf(false, "index %d out of range for size %d", i, r.size)
		var zero T
		return zero
	}
	return r.data[(r.head+i)%len(r.data)]
}

func (r *Ring[T]) Len() int {
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.data)
}

func (r *Ring[T]) Empty() bool {
	return r.size == 0
}

func (r *Ring[T]) Full() bool {
	return r.size == len(r.data)
}
