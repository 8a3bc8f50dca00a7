// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host backend.
//
// # Overview
//
// Allocations are plain Go memory, always host addressable:
//   - Alloc returns zeroed, word-aligned storage
//   - FromVec adopts caller slices without copying
//   - Stats tracks allocations, frees and live bytes
//
// The element-wise kernels used by the ops package split large inputs across
// goroutines and join before returning.
//
// # Basic Usage
//
//	backend := cpu.New()
//	dev, _ := device.New(backend, device.NewCached(device.Base{}))
//	fmt.Println(backend.Stats()) // allocs=0 frees=0 live=0 B
package cpu
