//go:build arena_debug

package arena_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	arena "github.com/bytekit/arena"
)

type fixedValidatable struct {
	err error
}

func (v fixedValidatable) Validate() error {
	return v.err
}

func TestDebugValidate(t *testing.T) {
	require.NotPanics(t, func() {
		arena.DebugValidate(fixedValidatable{})
	})
	require.Panics(t, func() {
		arena.DebugValidate(fixedValidatable{err: errors.New("corrupt")})
	})
}

func TestDebugCheckPow2(t *testing.T) {
	require.NotPanics(t, func() {
		arena.DebugCheckPow2(uint(16), "alignment")
	})
	require.Panics(t, func() {
		arena.DebugCheckPow2(uint(24), "alignment")
	})
}
