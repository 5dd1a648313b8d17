//go:build !arena_debug

package arena

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the arena_debug build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the arena_debug build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
}
