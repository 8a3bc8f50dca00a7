package core

import (
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/lazy"
)

// AddOp runs fn over a, or records it when the device is in lazy mode.
// A recorded operation resolves a by key when the graph runs, so it
// fails with lazy.ErrStaleReference if a was released in between.
func AddOp[A dtype.Element](dev Dev, name string, a *Buffer[A], fn func(a *Buffer[A]) error) error {
	lz, ok := dev.Stack().Lazy()
	if !ok || !lz.IsLazy() {
		return fn(a)
	}
	ka := a.key
	lz.AddOperation(lazy.Func{
		Name: name,
		Args: []ident.Key{ka},
		Fn: func(pool lazy.Pool) error {
			ra, err := resolve[A](pool, ka)
			if err != nil {
				return err
			}
			return fn(ra)
		},
	})
	return nil
}

// AddOp2 is AddOp over two buffers.
func AddOp2[A, B dtype.Element](dev Dev, name string, a *Buffer[A], b *Buffer[B], fn func(a *Buffer[A], b *Buffer[B]) error) error {
	lz, ok := dev.Stack().Lazy()
	if !ok || !lz.IsLazy() {
		return fn(a, b)
	}
	ka, kb := a.key, b.key
	lz.AddOperation(lazy.Func{
		Name: name,
		Args: []ident.Key{ka, kb},
		Fn: func(pool lazy.Pool) error {
			ra, err := resolve[A](pool, ka)
			if err != nil {
				return err
			}
			rb, err := resolve[B](pool, kb)
			if err != nil {
				return err
			}
			return fn(ra, rb)
		},
	})
	return nil
}

// AddOp3 is AddOp over three buffers.
func AddOp3[A, B, C dtype.Element](dev Dev, name string, a *Buffer[A], b *Buffer[B], c *Buffer[C], fn func(a *Buffer[A], b *Buffer[B], c *Buffer[C]) error) error {
	lz, ok := dev.Stack().Lazy()
	if !ok || !lz.IsLazy() {
		return fn(a, b, c)
	}
	ka, kb, kc := a.key, b.key, c.key
	lz.AddOperation(lazy.Func{
		Name: name,
		Args: []ident.Key{ka, kb, kc},
		Fn: func(pool lazy.Pool) error {
			ra, err := resolve[A](pool, ka)
			if err != nil {
				return err
			}
			rb, err := resolve[B](pool, kb)
			if err != nil {
				return err
			}
			rc, err := resolve[C](pool, kc)
			if err != nil {
				return err
			}
			return fn(ra, rb, rc)
		},
	})
	return nil
}
