// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides gradient tapes for devices.
//
// Reverse-mode differentiation is opt-in per device: wrap the module stack
// with NewAutograd and every op that registers a backward closure becomes
// differentiable.
//
// Example:
//
//	import (
//	    "github.com/Suad0/custos/autodiff"
//	    "github.com/Suad0/custos/backend/cpu"
//	    "github.com/Suad0/custos/device"
//	    "github.com/Suad0/custos/ops"
//	)
//
//	func main() {
//	    dev, _ := device.New(cpu.New(), autodiff.NewAutograd(device.Base{}))
//	    x, _ := device.FromSlice(dev, []float32{1, 2, 3})
//	    loss, _ := ops.Sum(x)
//	    _ = loss.Backward()
//	    grad, _ := x.Grad() // [1, 1, 1]
//	}
package autodiff

import (
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/module"
)

// Autograd is the module providing a gradient tape.
type Autograd[M module.Module] = module.Autograd[M]

// NewAutograd wraps inner with a gradient tape.
func NewAutograd[M module.Module](inner M) *Autograd[M] {
	return module.NewAutograd(inner)
}

// Tape records backward closures and runs them in reverse order.
type Tape = autograd.Tape

// Gradients holds gradient buffers by the key of their origin.
type Gradients = autograd.Gradients

// GradFn is a backward closure.
type GradFn = autograd.GradFn

// AddGradFn records fn on the device's tape. It is a no-op without an Autograd module.
func AddGradFn(dev core.Dev, fn GradFn) bool {
	return core.AddGradFn(dev, fn)
}

// AddGradFn1 records a backward closure over one key-resolved buffer.
func AddGradFn1[A dtype.Element](dev core.Dev, a *core.Buffer[A], fn func(a *core.Buffer[A]) error) bool {
	return core.AddGradFn1(dev, a, fn)
}

// AddGradFn2 records a backward closure over two key-resolved buffers.
func AddGradFn2[A, B dtype.Element](dev core.Dev, a *core.Buffer[A], b *core.Buffer[B], fn func(a *core.Buffer[A], b *core.Buffer[B]) error) bool {
	return core.AddGradFn2(dev, a, b, fn)
}

// AddGradFn3 records a backward closure over three key-resolved buffers.
func AddGradFn3[A, B, C dtype.Element](dev core.Dev, a *core.Buffer[A], b *core.Buffer[B], c *core.Buffer[C], fn func(a *core.Buffer[A], b *core.Buffer[B], c *core.Buffer[C]) error) bool {
	return core.AddGradFn3(dev, a, b, c, fn)
}
