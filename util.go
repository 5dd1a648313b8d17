package arena

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// CheckPow2 returns an error wrapping PowerOfTwoError if number is not a
// power of two. Allocation alignments are required to be powers of two.
func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// Align locates the lowest offset at or after offset that satisfies alignment
// and still leaves room for size bytes within the space bytes available at
// offset. It returns false when no such placement exists. This is the single
// place where alignment arithmetic on raw offsets happens; the allocation
// strategies express their placement logic in terms of it.
func Align(offset, space, size int, alignment uint) (int, bool) {
	aligned := AlignUp(offset, alignment)
	if aligned-offset+size > space {
		return 0, false
	}
	return aligned, true
}
