// Copyright 2026 The Custos Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package device_test

import (
	"fmt"
	"testing"

	"github.com/Suad0/custos/autodiff"
	"github.com/Suad0/custos/backend/cpu"
	"github.com/Suad0/custos/device"
	"github.com/Suad0/custos/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicAPI(t *testing.T) {
	backend := cpu.New()
	dev, err := device.New(backend, device.NewCached(autodiff.NewAutograd(device.Base{})), device.WithName("host"))
	require.NoError(t, err)
	assert.Equal(t, "host", dev.Name())

	x, err := device.FromSlice(dev, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, device.Owned, x.Flag())

	loss, err := ops.Sum(x)
	require.NoError(t, err)
	require.NoError(t, loss.Backward())

	grad, err := x.Grad()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, grad.Slice())
}

func TestPublicAPI_NoAutograd(t *testing.T) {
	dev, err := device.New(cpu.New(), device.Base{})
	require.NoError(t, err)
	x, err := device.Zeros[float64](dev, 2)
	require.NoError(t, err)

	_, err = x.Grad()
	assert.ErrorIs(t, err, device.ErrAutogradUnavailable)
}

func ExampleNew() {
	dev, err := device.New(cpu.New(), device.NewLazy(device.Base{}))
	if err != nil {
		panic(err)
	}
	a, _ := device.FromSlice(dev, []float32{1, 2})
	b, _ := device.FromSlice(dev, []float32{3, 4})
	sum, _ := ops.Add(a, b)

	fmt.Println(sum.Slice())
	_ = dev.Run()
	fmt.Println(sum.Slice())
	// Output:
	// [0 0]
	// [4 6]
}
