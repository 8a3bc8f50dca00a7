//go:build windows

// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU allocator.
//
// Buffers allocated on it are device resident; Read and Write go through
// staging buffers and the ops package falls back to host copies.
//
// Example:
//
//	import (
//	    "github.com/Suad0/custos/backend/webgpu"
//	    "github.com/Suad0/custos/device"
//	)
//
//	func main() {
//	    gpu, err := webgpu.New()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer gpu.Release()
//
//	    dev, _ := device.New(gpu, device.NewCached(device.Base{}))
//	    x, _ := device.FromSlice(dev, []float32{1, 2, 3})
//	}
package webgpu

import (
	"github.com/Suad0/custos/internal/alloc"
	internalwebgpu "github.com/Suad0/custos/internal/backend/webgpu"
)

// Backend represents the WebGPU allocator.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements the allocator contract.
var _ alloc.Allocator = (*Backend)(nil)

// ErrUnavailable is returned when WebGPU cannot be initialised.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// New creates a new WebGPU backend. Call Release when done to free GPU resources.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
