//go:build windows

package webgpu

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPerSize caps the number of idle buffers kept for one size.
const maxPerSize = 16

// BufferPool recycles freed storage buffers by exact size. It sits below the
// identity cache: the cache reuses allocations across iterations, the pool
// reuses GPU buffers across allocations of equal size.
type BufferPool struct {
	create func(size uint64) *wgpu.Buffer

	mu   sync.Mutex
	idle map[uint64][]*wgpu.Buffer

	stats PoolStats
}

// PoolStats contains buffer pool counters.
type PoolStats struct {
	Created   uint64
	Hits      uint64
	Released  uint64
	IdleBytes uint64
}

// String returns e.g. "created=2 hits=5 released=6 idle=1.0 KiB".
func (s PoolStats) String() string {
	return fmt.Sprintf("created=%d hits=%d released=%d idle=%s", s.Created, s.Hits, s.Released, humanize.IBytes(s.IdleBytes))
}

// NewBufferPool creates a pool that creates missing buffers with create.
func NewBufferPool(create func(size uint64) *wgpu.Buffer) *BufferPool {
	return &BufferPool{
		create: create,
		idle:   make(map[uint64][]*wgpu.Buffer),
	}
}

// Acquire returns an idle buffer of exactly size bytes, or a new one.
// reused reports whether the buffer came from the pool.
func (p *BufferPool) Acquire(size uint64) (buffer *wgpu.Buffer, reused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if list := p.idle[size]; len(list) > 0 {
		buffer = list[len(list)-1]
		p.idle[size] = list[:len(list)-1]
		p.stats.Hits++
		p.stats.IdleBytes -= size
		return buffer, true
	}
	p.stats.Created++
	return p.create(size), false
}

// Release returns buffer to the pool, or releases it if the pool for its size is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Released++
	if len(p.idle[size]) >= maxPerSize {
		buffer.Release()
		return
	}
	p.idle[size] = append(p.idle[size], buffer)
	p.stats.IdleBytes += size
}

// Clear releases every idle buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for size, list := range p.idle {
		for _, buffer := range list {
			buffer.Release()
		}
		delete(p.idle, size)
	}
	p.stats.IdleBytes = 0
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
