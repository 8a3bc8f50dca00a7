//go:build !realloc

package core_test

import (
	"testing"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/module"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCached_HitDeterminism tests that every epoch gets the same allocation back.
func TestCached_HitDeterminism(t *testing.T) {
	dev, backend := newDevice(t, module.NewCached(module.Base{}))

	var ptrs []uintptr
	for range dev.Range(0, 5) {
		buf := must.M1(core.Retrieve[float32](dev, 10))
		assert.Equal(t, alloc.CacheEntry, buf.Flag())
		ptrs = append(ptrs, buf.Raw().Ptr())
		require.NoError(t, buf.Release())
	}
	for _, p := range ptrs {
		assert.Equal(t, ptrs[0], p)
	}
	assert.Equal(t, int64(1), backend.Stats().Allocs)
	assert.Equal(t, int64(0), backend.Stats().Frees)

	c, ok := dev.Cache()
	require.True(t, ok)
	assert.Equal(t, 4, c.Stats().Hits)
	assert.Equal(t, 1, c.Stats().Misses)
}

// TestCached_MissOnSizeChange tests that a different length at the same index allocates.
func TestCached_MissOnSizeChange(t *testing.T) {
	dev, backend := newDevice(t, module.NewCached(module.Base{}))

	a := must.M1(core.Retrieve[float32](dev, 10))
	dev.ResetCount()
	b := must.M1(core.Retrieve[float32](dev, 20))

	assert.Equal(t, a.Id().Index, b.Id().Index)
	assert.NotEqual(t, a.Raw().Ptr(), b.Raw().Ptr())
	assert.Equal(t, 20, b.Len())
	assert.Equal(t, int64(2), backend.Stats().Allocs)
}

// TestCached_SharedAllocation tests that two live buffers of one slot share memory.
func TestCached_SharedAllocation(t *testing.T) {
	dev, backend := newDevice(t, module.NewCached(module.Base{}))

	a := must.M1(core.Retrieve[float32](dev, 2))
	a.Slice()[0] = 3
	dev.ResetCount()
	b := must.M1(core.Retrieve[float32](dev, 2))
	assert.Equal(t, float32(3), b.Slice()[0])

	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
	assert.Equal(t, int64(0), backend.Stats().Frees)

	require.NoError(t, dev.Close())
	assert.Equal(t, int64(1), backend.Stats().Frees)
}

// TestCached_TrainingLoop runs a small differentiated loop over cached buffers.
func TestCached_TrainingLoop(t *testing.T) {
	dev, backend := newDevice(t, module.NewCached(module.NewAutograd(module.Base{})))

	var outPtr uintptr
	for epoch := range dev.Range(0, 4) {
		require.NoError(t, dev.ZeroGrad())
		x := must.M1(core.FromSlice(dev, []float32{1, 2, 3}))
		out := must.M1(core.Retrieve[float32](dev, 3, x))
		require.NoError(t, core.AddOp2(dev, "square", x, out, func(x, out *core.Buffer[float32]) error {
			for i, v := range x.Slice() {
				out.Slice()[i] = v * v
			}
			return nil
		}))
		core.AddGradFn2(dev, x, out, func(x, out *core.Buffer[float32]) error {
			gx := must.M1(x.Grad())
			gout := must.M1(out.Grad())
			for i, v := range x.Slice() {
				gx.Slice()[i] += 2 * v * gout.Slice()[i]
			}
			return nil
		})
		require.NoError(t, out.Backward())
		assert.Equal(t, []float32{2, 4, 6}, must.M1(x.Grad()).Slice(), "epoch %d", epoch)

		if epoch == 0 {
			outPtr = out.Raw().Ptr()
		}
		assert.Equal(t, outPtr, out.Raw().Ptr())
		require.NoError(t, x.Release())
		require.NoError(t, out.Release())
	}
	// One cached output plus two gradients, allocated once, and one input per epoch.
	assert.Equal(t, int64(3+4), backend.Stats().Allocs)
}
