package ident

import "iter"

// Counter hands out slot indices.
//
// A Counter is owned by exactly one device and is not safe for concurrent
// use. Goroutines that need independent retrieval sequences must use
// independent devices (and therefore independent counters).
type Counter struct {
	n int
}

// NewCounter creates a counter starting at zero.
func NewCounter() *Counter {
	return &Counter{}
}

// Get returns the current index without advancing.
func (c *Counter) Get() int {
	return c.n
}

// Set re-synchronises the counter to v.
func (c *Counter) Set(v int) {
	c.n = v
}

// Bump advances the counter by one.
func (c *Counter) Bump() {
	c.n++
}

// Next returns the current index and advances the counter.
func (c *Counter) Next() int {
	n := c.n
	c.n++
	return n
}

// Id returns the identity the next request of length n would get.
func (c *Counter) Id(n int) Id {
	return Id{Index: c.n, Len: n}
}

// Range yields the epochs start, start+1, ..., end-1.
//
// Before every epoch the counter is reset to the value it had when the loop
// started, so each trip of the loop body replays the same index sequence and
// cached retrievals line up across trips. After the loop the counter keeps
// the value reached by the last epoch.
//
//	for epoch := range ident.Range(counter, 0, 100) {
//	    out, _ := core.Retrieve[float32](dev, 10) // same slot every epoch
//	    ...
//	}
func Range(c *Counter, start, end int) iter.Seq[int] {
	return func(yield func(int) bool) {
		idx := c.Get()
		for epoch := start; epoch < end; epoch++ {
			c.Set(idx)
			if !yield(epoch) {
				return
			}
		}
	}
}
