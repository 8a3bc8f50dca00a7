// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/Suad0/custos/internal/alloc"
	internalcpu "github.com/Suad0/custos/internal/backend/cpu"
	"github.com/Suad0/custos/internal/parallel"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Stats contains allocation counters.
type Stats = internalcpu.Stats

// Compile-time check that Backend implements the allocator contract.
var _ alloc.Allocator = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/Suad0/custos/backend/cpu"
//	    "github.com/Suad0/custos/device"
//	)
//
//	func main() {
//	    dev, _ := device.New(cpu.New(), device.Base{})
//	    x, _ := device.Zeros[float32](dev, 6)
//	}
func New() *Backend {
	return internalcpu.New()
}

// SetWorkers sets how many goroutines the host kernels split large buffers
// across. n <= 1 runs them on the calling goroutine.
// Not safe to call while kernels are running.
func SetWorkers(n int) {
	internalcpu.SetParallel(parallel.Workers(n))
}

// Workers returns the number of goroutines the host kernels split across.
func Workers() int {
	cfg := internalcpu.Parallel()
	if !cfg.Enabled {
		return 1
	}
	return cfg.NumWorkers
}
