// Package storage provides the backing buffers that allocation strategies
// carve blocks from. A strategy never owns its memory: it is constructed over
// a View, a non-owning window into bytes that live in a Dynamic storage, a
// caller-supplied Buffer, or any user type implementing ByteStorage.
package storage

// View is a non-owning view on a region of memory used by an allocation
// strategy. The producer of the underlying bytes is responsible for keeping
// them alive for as long as the View (and any strategy built on it) is in
// use. Allocation strategies identify blocks by their byte offset within the
// View, so a View can be snapshotted, copied, and rebuilt without
// invalidating outstanding offsets.
type View struct {
	// Bytes is the region of memory managed by an allocation strategy.
	Bytes []byte
}

// Size returns the size in bytes of the viewed region.
func (v View) Size() int {
	return len(v.Bytes)
}

// Slice returns the sub-region of size bytes starting at offset. It is the
// caller's responsibility to only slice regions handed out by the strategy
// that manages this view.
func (v View) Slice(offset, size int) []byte {
	return v.Bytes[offset : offset+size : offset+size]
}

// ByteStorage is implemented by any type that can expose its backing bytes.
// An allocation strategy obtains a View on the storage it is handed by
// calling MakeView, so custom storage types only need this single method.
type ByteStorage interface {
	Bytes() []byte
}

// MakeView builds a View from any storage type.
func MakeView(storage ByteStorage) View {
	return View{Bytes: storage.Bytes()}
}

// Dynamic is a heap-owned storage of a fixed size.
type Dynamic struct {
	buf []byte
}

// NewDynamic allocates a storage of n bytes from the Go heap.
func NewDynamic(n int) *Dynamic {
	return &Dynamic{buf: make([]byte, n)}
}

func (d *Dynamic) Bytes() []byte {
	return d.buf
}

func (d *Dynamic) Size() int {
	return len(d.buf)
}

// Buffer is a non-owning storage over a caller-supplied byte slice. It covers
// both stack-like usage (a local array sliced into a Buffer) and user-defined
// backing memory such as mmap'd regions.
type Buffer struct {
	buf []byte
}

// NewBuffer wraps an existing byte slice as a storage. The slice is used
// directly, not copied.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{buf: buf}
}

func (b *Buffer) Bytes() []byte {
	return b.buf
}

func (b *Buffer) Size() int {
	return len(b.buf)
}
