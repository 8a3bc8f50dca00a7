// Package cache implements the allocation cache used by the Cached module.
//
// Entries are keyed by buffer identity (counter index and length) plus element
// size. A workload that performs the same sequence of retrievals after every
// counter reset gets the same allocations back, so steady-state loops stop
// allocating after their first iteration.
package cache

import (
	"fmt"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/ident"
	"github.com/dustin/go-humanize"
	"github.com/emirpasic/gods/maps/treemap"
	"k8s.io/klog/v2"
)

// key identifies a cache slot. A different length or element size at the
// same counter index is a different slot.
type key struct {
	id       ident.Id
	elemSize int
}

func compareKeys(a, b any) int {
	ka, kb := a.(key), b.(key)
	if c := ident.Compare(ka.id, kb.id); c != 0 {
		return c
	}
	switch {
	case ka.elemSize < kb.elemSize:
		return -1
	case ka.elemSize > kb.elemSize:
		return 1
	default:
		return 0
	}
}

// Cache maps buffer identities to pooled allocations.
// Not safe for concurrent use.
type Cache struct {
	nodes   *treemap.Map
	counter *ident.Counter

	hits, misses int
}

// New creates an empty cache bound to counter.
func New(counter *ident.Counter) *Cache {
	return &Cache{
		nodes:   treemap.NewWith(compareKeys),
		counter: counter,
	}
}

// Get returns the allocation cached for (id, elemSize) with one extra reference
// taken for the caller. On a miss it calls miss, stores the result and returns it.
// Errors from miss are returned unchanged and nothing is stored.
func (c *Cache) Get(id ident.Id, elemSize int, miss func() (*alloc.Raw, error)) (*alloc.Raw, error) {
	k := key{id: id, elemSize: elemSize}
	if v, ok := c.nodes.Get(k); ok {
		c.hits++
		raw := v.(*alloc.Raw)
		klog.V(2).Infof("cache: hit %s (%s)", id, raw)
		return raw.Retain(), nil
	}
	c.misses++
	raw, err := miss()
	if err != nil {
		return nil, err
	}
	c.AddNode(id, raw)
	klog.V(2).Infof("cache: miss %s, added %s", id, raw)
	return raw, nil
}

// AddNode stores raw under id. The cache takes its own reference and marks the
// allocation as a cache entry. An existing entry for the same slot is released.
func (c *Cache) AddNode(id ident.Id, raw *alloc.Raw) {
	k := key{id: id, elemSize: raw.ElemSize()}
	if v, ok := c.nodes.Get(k); ok {
		old := v.(*alloc.Raw)
		if old == raw {
			return
		}
		c.release(old)
	}
	raw.SetFlag(alloc.CacheEntry)
	c.nodes.Put(k, raw.Retain())
}

// Lookup returns the allocation cached for (id, elemSize) without taking a reference.
func (c *Cache) Lookup(id ident.Id, elemSize int) (*alloc.Raw, bool) {
	v, ok := c.nodes.Get(key{id: id, elemSize: elemSize})
	if !ok {
		return nil, false
	}
	return v.(*alloc.Raw), true
}

// Remove drops the entry for (id, elemSize), releasing the cache's reference.
func (c *Cache) Remove(id ident.Id, elemSize int) bool {
	k := key{id: id, elemSize: elemSize}
	v, ok := c.nodes.Get(k)
	if !ok {
		return false
	}
	c.nodes.Remove(k)
	c.release(v.(*alloc.Raw))
	return true
}

// Clear drops every entry. Allocations still referenced by live buffers
// are freed when those buffers are released.
func (c *Cache) Clear() {
	it := c.nodes.Iterator()
	for it.Next() {
		c.release(it.Value().(*alloc.Raw))
	}
	c.nodes.Clear()
}

// Reset re-synchronises the bound counter to v. Entries are kept.
func (c *Cache) Reset(v int) {
	if c.counter != nil {
		c.counter.Set(v)
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.nodes.Size()
}

// Idents returns the identities of all entries in counter order.
func (c *Cache) Idents() []ident.Id {
	ids := make([]ident.Id, 0, c.nodes.Size())
	it := c.nodes.Iterator()
	for it.Next() {
		ids = append(ids, it.Key().(key).id)
	}
	return ids
}

func (c *Cache) release(raw *alloc.Raw) {
	if err := raw.Release(); err != nil {
		klog.Warningf("cache: releasing %s: %v", raw, err)
	}
}

// Stats contains cache counters.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
	Bytes   int
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	s := Stats{Hits: c.hits, Misses: c.misses, Entries: c.nodes.Size()}
	it := c.nodes.Iterator()
	for it.Next() {
		s.Bytes += it.Value().(*alloc.Raw).ByteSize()
	}
	return s
}

// String returns e.g. "Cache(2 entries, 48 B, hits=3 misses=2)".
func (c *Cache) String() string {
	s := c.Stats()
	return fmt.Sprintf("Cache(%d entries, %s, hits=%d misses=%d)",
		s.Entries, humanize.IBytes(uint64(s.Bytes)), s.Hits, s.Misses) //nolint:gosec // G115: byte sizes are non-negative
}
