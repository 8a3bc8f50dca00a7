package core

import (
	"fmt"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/module"
	"github.com/Suad0/custos/internal/shape"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Buffer is a typed, fixed-length array of T living on a device.
//
// A Buffer holds one reference to its allocation. Release drops it and runs
// the module chain's drop hook; buffers that are never released keep their
// allocation alive until garbage collection.
type Buffer[T dtype.Element] struct {
	dev   Dev
	raw   *alloc.Raw
	id    ident.Id
	key   ident.Key
	shape shape.Shape

	// detached buffers (views) bypass the module hooks.
	detached bool
	// gradient buffers hand their allocation back to the tape on release.
	gradient bool
	released bool
}

var _ module.Handle = (*Buffer[float32])(nil)

func newBuffer[T dtype.Element](dev Dev, raw *alloc.Raw, id ident.Id, s shape.Shape) *Buffer[T] {
	return &Buffer[T]{dev: dev, raw: raw, id: id, key: ident.NewKey(), shape: s.Clone()}
}

// Len returns the number of elements.
func (b *Buffer[T]) Len() int { return b.id.Len }

// Id returns the slot identity the cache keys the buffer by.
func (b *Buffer[T]) Id() ident.Id { return b.id }

// Key returns the key that tells this buffer apart from every other live
// buffer. Lazy operations and backward closures resolve buffers by Key.
func (b *Buffer[T]) Key() ident.Key { return b.key }

// IsGrad reports whether b is the gradient buffer of another buffer.
func (b *Buffer[T]) IsGrad() bool { return b.gradient }

// Shape returns the fixed shape, or nil if the buffer was created without one.
func (b *Buffer[T]) Shape() shape.Shape { return b.shape }

// Raw returns the underlying allocation.
func (b *Buffer[T]) Raw() *alloc.Raw { return b.raw }

// Flag returns the disposal flag of the underlying allocation.
func (b *Buffer[T]) Flag() alloc.Flag { return b.raw.Flag() }

// Device returns the device the buffer belongs to.
func (b *Buffer[T]) Device() Dev { return b.dev }

// Released reports whether Release was called.
func (b *Buffer[T]) Released() bool { return b.released }

// Read copies the buffer contents to a new host slice.
func (b *Buffer[T]) Read() ([]T, error) {
	if b.released {
		return nil, ErrReleased
	}
	out := make([]T, b.Len())
	if b.raw.HostAddressable() {
		copy(out, dtype.FromBytes[T](b.raw.Host(), b.Len()))
		return out, nil
	}
	if err := b.raw.Owner().CopyToHost(b.raw, dtype.Bytes(out)); err != nil {
		return nil, errors.Wrapf(err, "reading %s", b)
	}
	return out, nil
}

// Write overwrites the buffer contents. len(data) must equal Len.
func (b *Buffer[T]) Write(data []T) error {
	if b.released {
		return ErrReleased
	}
	if len(data) != b.Len() {
		return errors.Wrapf(ErrLengthMismatch, "writing %d elements into %s", len(data), b)
	}
	if b.raw.HostAddressable() {
		copy(dtype.FromBytes[T](b.raw.Host(), b.Len()), data)
		return nil
	}
	if err := b.raw.Owner().CopyFromHost(b.raw, dtype.Bytes(data)); err != nil {
		return errors.Wrapf(err, "writing %s", b)
	}
	return nil
}

// Slice returns the buffer memory as a slice without copying.
// It panics if the buffer is released or its memory is not host addressable.
// WARNING: Direct access to underlying memory.
func (b *Buffer[T]) Slice() []T {
	if b.released {
		exceptions.Panicf("slice of %s: %v", b, ErrReleased)
	}
	if !b.raw.HostAddressable() {
		exceptions.Panicf("slice of %s: %v", b, alloc.ErrNotHostAddressable)
	}
	return dtype.FromBytes[T](b.raw.Host(), b.Len())
}

// Clear sets every element to zero.
func (b *Buffer[T]) Clear() error {
	if b.released {
		return ErrReleased
	}
	if b.raw.HostAddressable() {
		clear(b.raw.Host())
		return nil
	}
	return b.raw.Owner().CopyFromHost(b.raw, make([]byte, b.raw.ByteSize()))
}

// View returns a non-owning buffer sharing this buffer's memory, identity
// and key, so operations recorded over a view resolve to b.
// Views skip the module hooks and never free memory.
func (b *Buffer[T]) View() *Buffer[T] {
	v := newBuffer[T](b.dev, b.raw.View(), b.id, b.shape)
	v.key = b.key
	v.detached = true
	return v
}

// Release runs the drop hook and drops the buffer's allocation reference.
// Calling Release more than once is a no-op.
func (b *Buffer[T]) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	if !b.detached {
		b.dev.Stack().OnDropBuffer(b.dev, b)
	}
	if b.gradient {
		if tape, ok := b.dev.Stack().Tape(); ok {
			return tape.Gradients().Recycle(b.raw)
		}
	}
	return b.raw.Release()
}

// String returns e.g. "Buffer[float32](#3[10], CPU, owned)".
func (b *Buffer[T]) String() string {
	return fmt.Sprintf("Buffer[%s](%s, %s, %s)", dtype.Of[T](), b.id, b.dev.Name(), b.raw.Flag())
}
