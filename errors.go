package arena

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// OutOfMemoryError is the error returned from an allocation strategy when no region of
// storage can satisfy the requested size and alignment. Callers can test for it with
// errors.Is; strategies wrap it with details about the failed request.
var OutOfMemoryError error = errors.New("not enough free storage for allocation")
