package alloc

import (
	arena "github.com/bytekit/arena"
)

// Vector is a growable array storing its elements through a
// StatefulAllocator. Growing allocates a fresh backing slice, copies the
// elements over, and releases the old one, so the backing strategy must
// support deallocation to avoid leaking (a Monotonic strategy works, but
// retires the old backing until its next reset).
type Vector[T any] struct {
	alloc StatefulAllocator[T]
	data  []T
	size  int
}

func NewVector[T any](a StatefulAllocator[T]) *Vector[T] {
	return &Vector[T]{alloc: a}
}

// PushBack appends v, growing the backing storage when full.
func (v *Vector[T]) PushBack(value T) error {
	if v.size == len(v.data) {
		capacity := 2 * len(v.data)
		if capacity == 0 {
			capacity = 4
		}
		if err := v.Reserve(capacity); err != nil {
			return err
		}
	}
	v.data[v.size] = value
	v.size++
	return nil
}

// Reserve grows the backing storage to hold at least capacity elements.
// Shrinking is not supported; a smaller capacity is a no-op.
func (v *Vector[T]) Reserve(capacity int) error {
	if capacity <= len(v.data) {
		return nil
	}
	grown, err := v.alloc.Allocate(capacity)
	if err != nil {
		return err
	}
	copy(grown, v.data[:v.size])
	if v.data != nil {
		v.alloc.Deallocate(v.data, len(v.data))
	}
	v.data = grown
	return nil
}

// PopBack removes and returns the last element.
func (v *Vector[T]) PopBack() T {
	if v.size == 0 {
		arena.Assert(false, "pop from an empty vector")
		var zero T
		return zero
	}
	v.size--
	return v.data[v.size]
}

// At returns the element at index i.
func (v *Vector[T]) At(i int) T {
	if i < 0 || i >= v.size {
		arena.Assertf(false, "index %d out of range for size %d", i, v.size)
		var zero T
		return zero
	}
	return v.data[i]
}

// Set overwrites the element at index i.
func (v *Vector[T]) Set(i int, value T) {
	if i < 0 || i >= v.size {
		arena.Assertf(false, "index %d out of range for size %d", i, v.size)
		return
	}
	v.data[i] = value
}

func (v *Vector[T]) Len() int {
	return v.size
}

func (v *Vector[T]) Cap() int {
	return len(v.data)
}

func (v *Vector[T]) Empty() bool {
	return v.size == 0
}

// Release returns the backing storage to the allocator and empties the
// vector. The vector remains usable afterwards.
func (v *Vector[T]) Release() {
	if v.data != nil {
		v.alloc.Deallocate(v.data, len(v.data))
		v.data = nil
	}
	v.size = 0
}
