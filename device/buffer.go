// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package device

import (
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/module"
)

// Handle is any buffer passed as a parent of a retrieval.
type Handle = module.Handle

// Retrieve returns a buffer of n elements produced by the device's module chain.
//
// Example:
//
//	out, err := device.Retrieve[float32](dev, x.Len(), x)
func Retrieve[T Element](dev Dev, n int, parents ...Handle) (*Buffer[T], error) {
	return core.Retrieve[T](dev, n, parents...)
}

// RetrieveShaped is Retrieve with a fixed shape.
func RetrieveShaped[T Element](dev Dev, s Shape, parents ...Handle) (*Buffer[T], error) {
	return core.RetrieveShaped[T](dev, s, parents...)
}

// Zeros allocates a zeroed buffer.
func Zeros[T Element](dev Dev, n int) (*Buffer[T], error) {
	return core.Zeros[T](dev, n)
}

// FromSlice creates a buffer holding a copy of data.
//
// Example:
//
//	x, err := device.FromSlice(dev, []float32{1, 2, 3})
func FromSlice[T Element](dev Dev, data []T) (*Buffer[T], error) {
	return core.FromSlice(dev, data)
}

// FromSliceShaped creates a buffer of shape s from the leading elements of data.
func FromSliceShaped[T Element](dev Dev, s Shape, data []T) (*Buffer[T], error) {
	return core.FromSliceShaped(dev, s, data)
}

// FromVec creates a buffer that takes ownership of data.
func FromVec[T Element](dev Dev, data []T) (*Buffer[T], error) {
	return core.FromVec(dev, data)
}

// WrapHost creates a non-owning buffer over caller memory.
func WrapHost[T Element](dev Dev, data []T) *Buffer[T] {
	return core.WrapHost(dev, data)
}

// AddOp runs fn over a now, or records it when the device is lazy.
func AddOp[A Element](dev Dev, name string, a *Buffer[A], fn func(a *Buffer[A]) error) error {
	return core.AddOp(dev, name, a, fn)
}

// AddOp2 is AddOp over two buffers.
func AddOp2[A, B Element](dev Dev, name string, a *Buffer[A], b *Buffer[B], fn func(a *Buffer[A], b *Buffer[B]) error) error {
	return core.AddOp2(dev, name, a, b, fn)
}

// AddOp3 is AddOp over three buffers.
func AddOp3[A, B, C Element](dev Dev, name string, a *Buffer[A], b *Buffer[B], c *Buffer[C], fn func(a *Buffer[A], b *Buffer[B], c *Buffer[C]) error) error {
	return core.AddOp3(dev, name, a, b, c, fn)
}
