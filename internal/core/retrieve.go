package core

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/module"
	"github.com/Suad0/custos/internal/shape"
	"github.com/pkg/errors"
)

// Retrieve returns a buffer of n elements produced by the device's module
// chain. The identity is taken from the device counter, which advances once
// per successful retrieval whether the chain allocated or reused memory.
// parents are the buffers the new one is computed from.
//
// The contents are unspecified: a cached retrieval returns memory holding the
// previous iteration's values.
func Retrieve[T dtype.Element](dev Dev, n int, parents ...module.Handle) (*Buffer[T], error) {
	return retrieve[T](dev, n, nil, parents)
}

// RetrieveShaped is Retrieve with a fixed shape bound to the buffer.
func RetrieveShaped[T dtype.Element](dev Dev, s shape.Shape, parents ...module.Handle) (*Buffer[T], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return retrieve[T](dev, s.NumElements(), s, parents)
}

func retrieve[T dtype.Element](dev Dev, n int, s shape.Shape, parents []module.Handle) (*Buffer[T], error) {
	alloc.CheckLen(n)
	counter := dev.Counter()
	id := counter.Id(n)
	raw, err := dev.Stack().Retrieve(dev, id, dtype.SizeOf[T](), parents)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieving %s", id)
	}
	counter.Bump()
	buf := newBuffer[T](dev, raw, id, s)
	dev.Stack().OnRetrieveFinish(dev, buf)
	return buf, nil
}

// Zeros allocates a new zeroed buffer of n elements, bypassing the cache.
func Zeros[T dtype.Element](dev Dev, n int) (*Buffer[T], error) {
	alloc.CheckLen(n)
	raw, err := dev.Allocator().Alloc(n, dtype.SizeOf[T](), alloc.Owned)
	if err != nil {
		return nil, err
	}
	return construct[T](dev, raw, nil), nil
}

// FromSlice allocates a new buffer holding a copy of data.
func FromSlice[T dtype.Element](dev Dev, data []T) (*Buffer[T], error) {
	alloc.CheckLen(len(data))
	raw, err := dev.Allocator().AllocFromBytes(dtype.Bytes(data), dtype.SizeOf[T]())
	if err != nil {
		return nil, err
	}
	return construct[T](dev, raw, nil), nil
}

// FromSliceShaped allocates a buffer of shape s holding a copy of the first
// s.NumElements() elements of data.
func FromSliceShaped[T dtype.Element](dev Dev, s shape.Shape, data []T) (*Buffer[T], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	n := s.NumElements()
	if n == 0 || n > len(data) {
		return nil, errors.Wrapf(ErrLengthMismatch, "shape %s needs %d elements, got %d", s, n, len(data))
	}
	raw, err := dev.Allocator().AllocFromBytes(dtype.Bytes(data[:n]), dtype.SizeOf[T]())
	if err != nil {
		return nil, err
	}
	return construct[T](dev, raw, s), nil
}

// FromVec creates a buffer that takes ownership of data. Allocators that can
// adopt host memory use it directly; others copy it. data must not be used
// by the caller afterwards.
func FromVec[T dtype.Element](dev Dev, data []T) (*Buffer[T], error) {
	alloc.CheckLen(len(data))
	adopter, ok := dev.Allocator().(alloc.Adopter)
	if !ok {
		return FromSlice(dev, data)
	}
	raw, err := adopter.Adopt(dtype.Bytes(data), dtype.SizeOf[T]())
	if err != nil {
		return nil, err
	}
	return construct[T](dev, raw, nil), nil
}

// WrapHost creates a non-owning buffer over caller memory. Releasing it never
// frees data; the caller keeps data alive for as long as the buffer is used.
func WrapHost[T dtype.Element](dev Dev, data []T) *Buffer[T] {
	alloc.CheckLen(len(data))
	raw := alloc.NewHost(dev.Allocator(), dtype.Bytes(data), len(data), dtype.SizeOf[T](), alloc.Wrapper)
	return construct[T](dev, raw, nil)
}

func construct[T dtype.Element](dev Dev, raw *alloc.Raw, s shape.Shape) *Buffer[T] {
	id := ident.Id{Index: dev.Counter().Next(), Len: raw.Len()}
	buf := newBuffer[T](dev, raw, id, s)
	dev.Stack().OnNewBuffer(dev, buf)
	return buf
}

// newGradient creates the gradient buffer of origin: zeroed, of the same
// length and shape, with a key of its own. The allocation is a recycled
// spare when one of the right size is available, and never comes from the
// cache or the counter.
func newGradient[T dtype.Element](origin *Buffer[T], grads *autograd.Gradients) (*Buffer[T], error) {
	dev := origin.dev
	raw, reused := grads.Spare(origin.Len(), dtype.SizeOf[T]())
	if !reused {
		var err error
		if raw, err = dev.Allocator().Alloc(origin.Len(), dtype.SizeOf[T](), alloc.Owned); err != nil {
			return nil, err
		}
	}
	grad := newBuffer[T](dev, raw, origin.id, origin.shape)
	grad.gradient = true
	if reused {
		if err := grad.Clear(); err != nil {
			return nil, errors.Wrapf(err, "zeroing recycled %s", raw)
		}
	}
	dev.Stack().OnNewBuffer(dev, grad)
	return grad, nil
}
