package module

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/cache"
	"github.com/Suad0/custos/internal/ident"
)

// Cached serves retrievals from an allocation cache keyed by buffer identity.
// Built with the realloc tag it passes every retrieval to its inner module.
type Cached[M Module] struct {
	inner M
	cache *cache.Cache
}

var _ Module = (*Cached[Base])(nil)

// NewCached wraps inner with an allocation cache.
func NewCached[M Module](inner M) *Cached[M] {
	return &Cached[M]{inner: inner}
}

// Inner returns the wrapped module.
func (c *Cached[M]) Inner() M {
	return c.inner
}

// Setup binds the cache to the device counter.
func (c *Cached[M]) Setup(host Host) error {
	c.cache = cache.New(host.Counter())
	return c.inner.Setup(host)
}

// Retrieve returns the cached allocation for (id, elemSize), allocating
// through the inner module on a miss.
func (c *Cached[M]) Retrieve(host Host, id ident.Id, elemSize int, parents []Handle) (*alloc.Raw, error) {
	if reallocMode {
		return c.inner.Retrieve(host, id, elemSize, parents)
	}
	return c.cache.Get(id, elemSize, func() (*alloc.Raw, error) {
		return c.inner.Retrieve(host, id, elemSize, parents)
	})
}

func (c *Cached[M]) OnRetrieveFinish(host Host, buf Handle) { c.inner.OnRetrieveFinish(host, buf) }
func (c *Cached[M]) OnNewBuffer(host Host, buf Handle)      { c.inner.OnNewBuffer(host, buf) }

// OnDropBuffer forwards only. Cache memory is freed when its last reference drops.
func (c *Cached[M]) OnDropBuffer(host Host, buf Handle) { c.inner.OnDropBuffer(host, buf) }

// Cache returns the allocation cache.
func (c *Cached[M]) Cache() (*cache.Cache, bool) {
	return c.cache, c.cache != nil
}

func (c *Cached[M]) Lazy() (LazyActions, bool)    { return c.inner.Lazy() }
func (c *Cached[M]) Tape() (*autograd.Tape, bool) { return c.inner.Tape() }

func (c *Cached[M]) Name() string {
	return "Cached(" + c.inner.Name() + ")"
}
