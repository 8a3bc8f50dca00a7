package core

import "github.com/pkg/errors"

// Errors returned by devices and buffers.
var (
	ErrAutogradUnavailable = errors.New("autograd module is not available")
	ErrTypeMismatch        = errors.New("buffer element type mismatch")
	ErrLengthMismatch      = errors.New("buffer length mismatch")
	ErrShapeMismatch       = errors.New("buffer shape mismatch")
	ErrReleased            = errors.New("buffer already released")
)
