package alloc

import "github.com/pkg/errors"

// Common errors.
var (
	ErrAllocation          = errors.New("allocation failed")
	ErrNotHostAddressable  = errors.New("allocation is not host addressable")
	ErrSizeMismatch        = errors.New("host slice size does not match allocation")
	ErrReleasedAllocation  = errors.New("allocation already released")
	ErrEmptyHostAllocation = errors.New("cannot allocate from empty host data")
)
