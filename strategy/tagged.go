// Package strategy implements the allocation strategies that hand out
// byte-aligned blocks from a storage view: Monotonic, Stack, Pool, and Ring.
// Blocks are identified by their byte offset within the view. Each strategy
// embeds its bookkeeping headers directly into the managed buffer, in the
// bytes immediately preceding each block, and forwards every operation to a
// debug policy before finalizing it.
//
// None of the strategies perform internal synchronization. Sharing a
// strategy between goroutines requires external locking; the ringpool
// package provides a self-contained concurrent allocator for that use case.
package strategy

import (
	"encoding/binary"

	"github.com/bytekit/arena/storage"
)

const (
	// headerWordSize is the size in bytes of a single in-band header word.
	headerWordSize = 8
	// headerAlign is the natural alignment of in-band headers. Block
	// alignment is raised to at least this value by the strategies that
	// place a header immediately before each block, so that the header
	// itself ends up on a word boundary.
	headerAlign uint = 8
)

// noHeader is the offset value representing the absence of a header
// reference, in place of a null pointer.
const noHeader = -1

// taggedWord packs an optional header offset and a single flag bit into one
// in-band header word. The flag lives in bit 0, mirroring low-bit pointer
// tagging; the remaining bits hold the offset biased by one, so that the
// absent reference stays representable alongside a reference to offset 0.
// The zero word is an absent reference with a cleared flag.
type taggedWord uint64

func makeTagged(offset int, flag bool) taggedWord {
	var word taggedWord
	if offset != noHeader {
		word = taggedWord(offset+1) << 1
	}
	if flag {
		word |= 1
	}
	return word
}

// ref returns the referenced header offset, or noHeader if none.
func (w taggedWord) ref() int {
	biased := int(w >> 1)
	if biased == 0 {
		return noHeader
	}
	return biased - 1
}

// flag returns the tag bit.
func (w taggedWord) flag() bool {
	return w&1 != 0
}

// withFlag returns a copy of the word with the tag bit set.
func (w taggedWord) withFlag() taggedWord {
	return w | 1
}

func readWord(view storage.View, offset int) taggedWord {
	return taggedWord(binary.LittleEndian.Uint64(view.Bytes[offset:]))
}

func writeWord(view storage.View, offset int, word taggedWord) {
	binary.LittleEndian.PutUint64(view.Bytes[offset:], uint64(word))
}
