//go:build realloc

package module

// reallocMode disables the allocation cache: every retrieval allocates.
const reallocMode = true
