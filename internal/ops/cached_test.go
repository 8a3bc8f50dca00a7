//go:build !realloc

package ops_test

import (
	"testing"

	"github.com/Suad0/custos/internal/backend/cpu"
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/module"
	"github.com/Suad0/custos/internal/ops"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOps_CachedLoop tests that a lazy cached loop reuses its outputs every epoch.
func TestOps_CachedLoop(t *testing.T) {
	backend := cpu.New()
	dev := must.M1(core.New(backend, module.NewCached(module.NewLazy(module.Base{}))))
	a := must.M1(core.FromSlice(dev, []float32{1, 2}))
	b := must.M1(core.FromSlice(dev, []float32{3, 4}))

	for epoch := range dev.Range(0, 3) {
		sum := must.M1(ops.Add(a, b))
		out := must.M1(ops.Mul(sum, b))
		require.NoError(t, dev.Run())
		assert.Equal(t, []float32{12, 24}, out.Slice(), "epoch %d", epoch)
	}
	// Two inputs plus two cached outputs.
	assert.Equal(t, int64(4), backend.Stats().Allocs)
}
