//go:build !realloc

package module

const reallocMode = false
