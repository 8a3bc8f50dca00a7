// Package alloc defines the contract between the buffer core and device backends.
//
// A backend provides an Allocator: allocate zero-initialised storage for N
// elements, allocate-and-copy from host data, free, and copy between host
// and device. Everything above this package (cache, lazy graph, gradients,
// module stack) is backend-agnostic.
package alloc

import "github.com/gomlx/exceptions"

// Allocator is implemented by every compute backend.
type Allocator interface {
	// Name returns the backend name, e.g. "CPU".
	Name() string

	// Alloc allocates zero-initialised storage for n elements of elemSize bytes.
	// n must be positive; a zero-length request is a contract violation and panics.
	Alloc(n, elemSize int, flag Flag) (*Raw, error)

	// AllocFromBytes allocates storage and copies data into it.
	// data must be non-empty and a multiple of elemSize.
	AllocFromBytes(data []byte, elemSize int) (*Raw, error)

	// Free releases the backend resources of r. Called by Raw.Release only.
	Free(r *Raw) error

	// CopyToHost copies the contents of r into dst (len(dst) == r.ByteSize()).
	CopyToHost(r *Raw, dst []byte) error

	// CopyFromHost copies src into r (len(src) == r.ByteSize()).
	CopyFromHost(r *Raw, src []byte) error
}

// Adopter is implemented by allocators that can take ownership of host
// memory without copying. It backs the "allocate from vector" path.
type Adopter interface {
	Adopt(data []byte, elemSize int) (*Raw, error)
}

// CheckLen panics on non-positive element counts.
// Zero-length buffers are disallowed by contract.
func CheckLen(n int) {
	if n <= 0 {
		exceptions.Panicf("invalid buffer len: %d", n)
	}
}

// CheckHostCopy validates a host copy of len(host) bytes against r.
func CheckHostCopy(r *Raw, host []byte) error {
	if r.Released() {
		return ErrReleasedAllocation
	}
	if len(host) != r.ByteSize() {
		return ErrSizeMismatch
	}
	return nil
}
