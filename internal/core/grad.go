package core

import (
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/lazy"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Grad returns the gradient buffer of b, allocating a zeroed one of the same
// length and shape on first access. Later calls return the same buffer until
// b is released. A gradient buffer has a gradient of its own.
func (b *Buffer[T]) Grad() (*Buffer[T], error) {
	if b.released {
		return nil, ErrReleased
	}
	tape, ok := b.dev.Stack().Tape()
	if !ok {
		return nil, ErrAutogradUnavailable
	}
	grads := tape.Gradients()
	g, err := grads.GetOrInit(b.key, func() (autograd.GradBuffer, error) {
		return newGradient(b, grads)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "allocating gradient of %s", b)
	}
	grad, ok := g.(*Buffer[T])
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "gradient of %s is a %T", b, g)
	}
	return grad, nil
}

// TryGrad returns the gradient buffer of b if one was already allocated.
// It never allocates and reports false without an Autograd module.
func (b *Buffer[T]) TryGrad() (*Buffer[T], bool) {
	tape, ok := b.dev.Stack().Tape()
	if !ok {
		return nil, false
	}
	g, ok := tape.Gradients().Grad(b.key)
	if !ok {
		return nil, false
	}
	grad, ok := g.(*Buffer[T])
	return grad, ok
}

// Backward seeds the gradient of b with ones and runs the tape.
func (b *Buffer[T]) Backward() error {
	seed := make([]T, b.Len())
	one := dtype.One[T]()
	for i := range seed {
		seed[i] = one
	}
	return b.BackwardSeeded(seed)
}

// BackwardSeeded writes seed into the gradient of b and runs the tape.
// Pending lazy operations run first, then the backward closures run with
// lazy recording suspended so they see concrete values.
func (b *Buffer[T]) BackwardSeeded(seed []T) error {
	tape, ok := b.dev.Stack().Tape()
	if !ok {
		return ErrAutogradUnavailable
	}
	grad, err := b.Grad()
	if err != nil {
		return err
	}
	if err := grad.Write(seed); err != nil {
		return errors.Wrapf(err, "seeding gradient of %s", b)
	}
	lz, ok := b.dev.Stack().Lazy()
	if !ok {
		return tape.Backward()
	}
	klog.V(1).Infof("core: flushing %d lazy operations before backward", lz.Graph().Len())
	if err := lz.RunGraph(); err != nil {
		return errors.Wrap(err, "running lazy graph before backward")
	}
	return lz.Eagerly(tape.Backward)
}

// AddGradFn records fn on the device's tape. Without an Autograd module, or
// while the tape is not recording, it does nothing and returns false.
func AddGradFn(dev Dev, fn autograd.GradFn) bool {
	tape, ok := dev.Stack().Tape()
	if !ok {
		return false
	}
	return tape.AddGradFn(fn)
}

// AddGradFn1 records a backward closure over one buffer. The buffer is
// resolved by key when the closure runs.
func AddGradFn1[A dtype.Element](dev Dev, a *Buffer[A], fn func(a *Buffer[A]) error) bool {
	ka := a.key
	return AddGradFn(dev, func(grads *autograd.Gradients) error {
		ra, err := resolve[A](grads, ka)
		if err != nil {
			return err
		}
		return fn(ra)
	})
}

// AddGradFn2 records a backward closure over two buffers.
func AddGradFn2[A, B dtype.Element](dev Dev, a *Buffer[A], b *Buffer[B], fn func(a *Buffer[A], b *Buffer[B]) error) bool {
	ka, kb := a.key, b.key
	return AddGradFn(dev, func(grads *autograd.Gradients) error {
		ra, err := resolve[A](grads, ka)
		if err != nil {
			return err
		}
		rb, err := resolve[B](grads, kb)
		if err != nil {
			return err
		}
		return fn(ra, rb)
	})
}

// AddGradFn3 records a backward closure over three buffers.
func AddGradFn3[A, B, C dtype.Element](dev Dev, a *Buffer[A], b *Buffer[B], c *Buffer[C], fn func(a *Buffer[A], b *Buffer[B], c *Buffer[C]) error) bool {
	ka, kb, kc := a.key, b.key, c.key
	return AddGradFn(dev, func(grads *autograd.Gradients) error {
		ra, err := resolve[A](grads, ka)
		if err != nil {
			return err
		}
		rb, err := resolve[B](grads, kb)
		if err != nil {
			return err
		}
		rc, err := resolve[C](grads, kc)
		if err != nil {
			return err
		}
		return fn(ra, rb, rc)
	})
}

// resolve looks key up in pool and checks its element type.
func resolve[T dtype.Element](pool lazy.Pool, key ident.Key) (*Buffer[T], error) {
	v, ok := pool.Lookup(key)
	if !ok {
		return nil, errors.Wrapf(lazy.ErrStaleReference, "buffer %s", key)
	}
	buf, ok := v.(*Buffer[T])
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "buffer %s is a %T", key, v)
	}
	return buf, nil
}
