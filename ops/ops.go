// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides differentiable element-wise operations on buffers.
//
// Every op works on any device: it runs eagerly, is recorded on a lazy
// device, reuses cached outputs and registers its backward closure when the
// device has an autograd module.
package ops

import (
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/dtype"
	internalops "github.com/Suad0/custos/internal/ops"
)

// Add returns a + b element-wise.
func Add[T dtype.Float](a, b *core.Buffer[T]) (*core.Buffer[T], error) {
	return internalops.Add(a, b)
}

// Mul returns a * b element-wise.
func Mul[T dtype.Float](a, b *core.Buffer[T]) (*core.Buffer[T], error) {
	return internalops.Mul(a, b)
}

// ReLU returns max(x, 0) element-wise.
func ReLU[T dtype.Float](x *core.Buffer[T]) (*core.Buffer[T], error) {
	return internalops.ReLU(x)
}

// Sum returns a one-element buffer holding the sum of x.
func Sum[T dtype.Float](x *core.Buffer[T]) (*core.Buffer[T], error) {
	return internalops.Sum(x)
}
