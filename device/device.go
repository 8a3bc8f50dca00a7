// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package device

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/module"
	"github.com/Suad0/custos/internal/shape"
)

// Type aliases for public API

// Element is a constraint for buffer element types.
type Element = dtype.Element

// Float is the constraint for differentiable element types.
type Float = dtype.Float

// DataType represents runtime type information for buffers.
type DataType = dtype.DataType

// Shape is an optional fixed shape bound to a buffer.
type Shape = shape.Shape

// Id identifies a buffer by counter index and length.
type Id = ident.Id

// Key tells live buffers apart; it is never reused.
type Key = ident.Key

// Counter hands out buffer identities.
type Counter = ident.Counter

// Allocator is the contract every backend implements.
type Allocator = alloc.Allocator

// Flag tells whether releasing an allocation frees memory.
type Flag = alloc.Flag

// Disposal flags.
const (
	Owned      = alloc.Owned
	Wrapper    = alloc.Wrapper
	CacheEntry = alloc.CacheEntry
)

// Device couples an allocator with the module stack M.
type Device[M Module] = core.Device[M]

// Dev is the type-erased device accepted by the buffer functions.
type Dev = core.Dev

// Buffer is a typed, fixed-length array living on a device.
type Buffer[T Element] = core.Buffer[T]

// Option configures a Device at construction.
type Option = core.Option

// Errors.
var (
	ErrAutogradUnavailable = core.ErrAutogradUnavailable
	ErrTypeMismatch        = core.ErrTypeMismatch
	ErrLengthMismatch      = core.ErrLengthMismatch
	ErrShapeMismatch       = core.ErrShapeMismatch
	ErrReleased            = core.ErrReleased
	ErrAllocation          = alloc.ErrAllocation
	ErrNotHostAddressable  = alloc.ErrNotHostAddressable
)

// New creates a device over allocator with the given module stack.
//
// Example:
//
//	dev, err := device.New(cpu.New(), device.NewCached(device.Base{}))
func New[M Module](allocator Allocator, modules M, opts ...Option) (*Device[M], error) {
	return core.New(allocator, modules, opts...)
}

// WithName sets the device name used in logs.
func WithName(name string) Option {
	return core.WithName(name)
}

// WithCounter makes the device share an identity counter.
func WithCounter(counter *Counter) Option {
	return core.WithCounter(counter)
}

// NewCounter creates a counter starting at zero.
func NewCounter() *Counter {
	return ident.NewCounter()
}

// Module is one layer of a device's module stack.
type Module = module.Module

// Base is the terminal module.
type Base = module.Base

// Cached serves retrievals from an allocation cache.
type Cached[M Module] = module.Cached[M]

// Lazy records operations for deferred execution.
type Lazy[M Module] = module.Lazy[M]

// NewCached wraps inner with an allocation cache.
func NewCached[M Module](inner M) *Cached[M] {
	return module.NewCached(inner)
}

// NewLazy wraps inner with a lazy graph.
func NewLazy[M Module](inner M) *Lazy[M] {
	return module.NewLazy(inner)
}
