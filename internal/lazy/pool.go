package lazy

import "github.com/Suad0/custos/internal/ident"

// Pool resolves buffer keys to live buffers.
type Pool interface {
	Lookup(key ident.Key) (any, bool)
}

// Buffers is the pool of live buffers of a lazy device. Buffers are registered
// when they are created and unregistered when they are released, so a recorded
// operation referring to a released buffer fails to resolve.
//
// Buffers are keyed by ident.Key rather than by slot Id: two live buffers
// holding the same slot after a counter reset stay distinct.
type Buffers struct {
	m map[ident.Key]any
}

var _ Pool = (*Buffers)(nil)

// NewBuffers creates an empty pool.
func NewBuffers() *Buffers {
	return &Buffers{m: make(map[ident.Key]any)}
}

// Register binds key to buf, replacing any previous binding.
func (p *Buffers) Register(key ident.Key, buf any) {
	p.m[key] = buf
}

// Unregister removes the binding for key if it still refers to buf.
func (p *Buffers) Unregister(key ident.Key, buf any) bool {
	cur, ok := p.m[key]
	if !ok || cur != buf {
		return false
	}
	delete(p.m, key)
	return true
}

// Lookup returns the buffer bound to key.
func (p *Buffers) Lookup(key ident.Key) (any, bool) {
	buf, ok := p.m[key]
	return buf, ok
}

// Len returns the number of registered buffers.
func (p *Buffers) Len() int {
	return len(p.m)
}

// Clear removes every binding.
func (p *Buffers) Clear() {
	clear(p.m)
}
