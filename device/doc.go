// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device provides the public API for devices and buffers.
//
// A device couples an allocator (backend) with a module stack. The stack is
// built from wrapper modules and decides what happens on every buffer request:
//   - Base: allocate fresh memory
//   - Cached: reuse the allocation of the same identity from an earlier iteration
//   - Lazy: record operations and run them later, in order
//   - Autograd: record backward closures on a gradient tape
//
// Example:
//
//	dev, err := device.New(cpu.New(), device.NewCached(device.NewAutograd(device.Base{})))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for range dev.Range(0, 100) {
//	    out, _ := device.Retrieve[float32](dev, 10) // same memory every epoch
//	    ...
//	}
package device
