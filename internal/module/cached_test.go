//go:build !realloc

package module_test

import (
	"testing"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCached_ReusesAllocation tests that Cached serves a repeated identity from its cache.
func TestCached_ReusesAllocation(t *testing.T) {
	host := newTestHost()
	stack := module.NewCached(module.Base{})
	require.NoError(t, stack.Setup(host))
	assert.False(t, module.Realloc())

	id := ident.Id{Index: 0, Len: 16}
	a, err := stack.Retrieve(host, id, 4, nil)
	require.NoError(t, err)
	b, err := stack.Retrieve(host, id, 4, nil)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, alloc.CacheEntry, a.Flag())
	assert.Equal(t, int64(1), host.backend.Stats().Allocs)

	c, ok := stack.Cache()
	require.True(t, ok)
	assert.Equal(t, 1, c.Len())
}
