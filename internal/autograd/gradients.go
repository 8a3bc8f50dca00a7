package autograd

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/ident"
	"github.com/pkg/errors"
)

// maxSparePerSize bounds the recycled gradient allocations kept per size.
const maxSparePerSize = 16

// GradBuffer is a gradient buffer as seen by the tape.
// Concrete typed buffers live in the core package.
type GradBuffer interface {
	Clear() error
	Release() error
}

type spareKey struct {
	n, elemSize int
}

// Gradients holds the gradient buffers of a device and the pool of live
// buffers that backward closures resolve their inputs from.
//
// Both pools are keyed by the ident.Key of the originating buffer, so a
// gradient is itself a distinct buffer with a gradient of its own. The
// allocations of gradients whose origin was released are kept as spares and
// handed to the next gradient of the same size, which keeps a loop that
// recreates its buffers every epoch from allocating new gradients.
type Gradients struct {
	grads   map[ident.Key]GradBuffer
	noGrads map[ident.Key]any
	spare   map[spareKey][]*alloc.Raw
}

// NewGradients creates empty pools.
func NewGradients() *Gradients {
	return &Gradients{
		grads:   make(map[ident.Key]GradBuffer),
		noGrads: make(map[ident.Key]any),
		spare:   make(map[spareKey][]*alloc.Raw),
	}
}

// Grad returns the gradient buffer of the buffer with key, if one was allocated.
func (g *Gradients) Grad(key ident.Key) (GradBuffer, bool) {
	grad, ok := g.grads[key]
	return grad, ok
}

// GetOrInit returns the gradient buffer of key, creating it with create on first access.
func (g *Gradients) GetOrInit(key ident.Key, create func() (GradBuffer, error)) (GradBuffer, error) {
	if grad, ok := g.grads[key]; ok {
		return grad, nil
	}
	grad, err := create()
	if err != nil {
		return nil, err
	}
	g.grads[key] = grad
	return grad, nil
}

// SetGrad stores grad for key, releasing any previous gradient buffer.
func (g *Gradients) SetGrad(key ident.Key, grad GradBuffer) error {
	if old, ok := g.grads[key]; ok && old != grad {
		if err := old.Release(); err != nil {
			return err
		}
	}
	g.grads[key] = grad
	return nil
}

// Drop releases the gradient of key, if any. Called when the originating
// buffer is released.
func (g *Gradients) Drop(key ident.Key) error {
	grad, ok := g.grads[key]
	if !ok {
		return nil
	}
	delete(g.grads, key)
	return grad.Release()
}

// ZeroGrad clears every gradient buffer in place.
func (g *Gradients) ZeroGrad() error {
	for key, grad := range g.grads {
		if err := grad.Clear(); err != nil {
			return errors.Wrapf(err, "zeroing gradient of %s", key)
		}
	}
	return nil
}

// Reset releases every gradient buffer and frees the spare allocations.
func (g *Gradients) Reset() error {
	var first error
	for key, grad := range g.grads {
		delete(g.grads, key)
		if err := grad.Release(); err != nil && first == nil {
			first = errors.Wrapf(err, "releasing gradient of %s", key)
		}
	}
	for k, raws := range g.spare {
		for _, raw := range raws {
			if err := raw.Release(); err != nil && first == nil {
				first = errors.Wrapf(err, "releasing spare %s", raw)
			}
		}
		delete(g.spare, k)
	}
	return first
}

// Len returns the number of allocated gradient buffers.
func (g *Gradients) Len() int {
	return len(g.grads)
}

// Recycle keeps raw as a spare for a later gradient of the same size.
// Shared or non-owning allocations, and allocations beyond the per-size
// limit, are released instead.
func (g *Gradients) Recycle(raw *alloc.Raw) error {
	k := spareKey{raw.Len(), raw.ElemSize()}
	if !raw.IsUnique() || raw.Flag() != alloc.Owned || len(g.spare[k]) >= maxSparePerSize {
		return raw.Release()
	}
	g.spare[k] = append(g.spare[k], raw)
	return nil
}

// Spare returns a recycled allocation of n elements of elemSize bytes.
// Its contents are those of the gradient it last backed.
func (g *Gradients) Spare(n, elemSize int) (*alloc.Raw, bool) {
	k := spareKey{n, elemSize}
	raws := g.spare[k]
	if len(raws) == 0 {
		return nil, false
	}
	raw := raws[len(raws)-1]
	raws[len(raws)-1] = nil
	g.spare[k] = raws[:len(raws)-1]
	return raw, true
}

// Spares returns the number of recycled allocations waiting for reuse.
func (g *Gradients) Spares() int {
	n := 0
	for _, raws := range g.spare {
		n += len(raws)
	}
	return n
}

// Register adds a live buffer to the no-grad pool.
func (g *Gradients) Register(key ident.Key, buf any) {
	g.noGrads[key] = buf
}

// Unregister removes buf from the no-grad pool if it is still the buffer bound to key.
func (g *Gradients) Unregister(key ident.Key, buf any) bool {
	cur, ok := g.noGrads[key]
	if !ok || cur != buf {
		return false
	}
	delete(g.noGrads, key)
	return true
}

// NoGrad returns the live buffer bound to key.
func (g *Gradients) NoGrad(key ident.Key) (any, bool) {
	buf, ok := g.noGrads[key]
	return buf, ok
}

// Lookup is NoGrad, so Gradients can serve as a lazy.Pool.
func (g *Gradients) Lookup(key ident.Key) (any, bool) {
	return g.NoGrad(key)
}
