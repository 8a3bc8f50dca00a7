// Package core implements devices and the typed buffers they produce.
//
// A Device pairs an allocator with a module stack and owns the identity
// counter. Buffers are created through Retrieve (which runs the module chain)
// or through the explicit constructors (FromSlice, Zeros, ...), and record
// their work through AddOp and AddGradFn so that the Lazy and Autograd
// modules can defer or differentiate it.
package core

import (
	"fmt"
	"iter"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/cache"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/module"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Dev is the type-erased view of a Device that buffers hold.
type Dev interface {
	module.Host
	Stack() module.Module
	Name() string
}

// Device couples an allocator with a module stack M.
// Not safe for concurrent use.
type Device[M module.Module] struct {
	id        uuid.UUID
	name      string
	allocator alloc.Allocator
	modules   M
	counter   *ident.Counter
}

var _ Dev = (*Device[module.Base])(nil)

// Option configures a Device at construction.
type Option func(*options)

type options struct {
	name    string
	counter *ident.Counter
}

// WithName sets the device name used in logs. Defaults to the allocator name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithCounter makes the device share counter instead of owning a fresh one.
func WithCounter(counter *ident.Counter) Option {
	return func(o *options) { o.counter = counter }
}

// New creates a device and runs the Setup hook of every module.
func New[M module.Module](allocator alloc.Allocator, modules M, opts ...Option) (*Device[M], error) {
	o := options{name: allocator.Name()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.counter == nil {
		o.counter = ident.NewCounter()
	}
	d := &Device[M]{
		id:        uuid.New(),
		name:      o.name,
		allocator: allocator,
		modules:   modules,
		counter:   o.counter,
	}
	if err := modules.Setup(d); err != nil {
		return nil, errors.Wrapf(err, "setting up %s", modules.Name())
	}
	klog.V(1).Infof("core: created %s", d)
	return d, nil
}

// Allocator implements module.Host.
func (d *Device[M]) Allocator() alloc.Allocator { return d.allocator }

// Counter implements module.Host.
func (d *Device[M]) Counter() *ident.Counter { return d.counter }

// Stack returns the module stack as a module.Module.
func (d *Device[M]) Stack() module.Module { return d.modules }

// Modules returns the typed module stack.
func (d *Device[M]) Modules() M { return d.modules }

// Name returns the device name.
func (d *Device[M]) Name() string { return d.name }

// UUID returns the unique identity of this device instance.
func (d *Device[M]) UUID() uuid.UUID { return d.id }

// Cache returns the allocation cache, if the stack has one.
func (d *Device[M]) Cache() (*cache.Cache, bool) { return d.modules.Cache() }

// Tape returns the gradient tape, if the stack has one.
func (d *Device[M]) Tape() (*autograd.Tape, bool) { return d.modules.Tape() }

// Lazy returns the lazy capability, if the stack has one.
func (d *Device[M]) Lazy() (module.LazyActions, bool) { return d.modules.Lazy() }

// Run executes the recorded lazy graph. A device without a Lazy module has
// nothing recorded and Run returns nil.
func (d *Device[M]) Run() error {
	lz, ok := d.modules.Lazy()
	if !ok {
		return nil
	}
	return lz.RunGraph()
}

// Eagerly runs fn with lazy recording suspended.
func (d *Device[M]) Eagerly(fn func() error) error {
	lz, ok := d.modules.Lazy()
	if !ok {
		return fn()
	}
	return lz.Eagerly(fn)
}

// SetHold keeps the lazy graph and the backward closures after they ran,
// so a fixed workload can be replayed.
func (d *Device[M]) SetHold(hold bool) {
	if lz, ok := d.modules.Lazy(); ok {
		lz.SetHold(hold)
	}
	if tape, ok := d.modules.Tape(); ok {
		tape.SetRetain(hold)
	}
}

// ResetCount resets the identity counter to zero.
func (d *Device[M]) ResetCount() {
	d.counter.Set(0)
}

// Range iterates over epochs [start, end), restoring the counter at the start
// of each epoch so every epoch retrieves the same identities.
func (d *Device[M]) Range(start, end int) iter.Seq[int] {
	return ident.Range(d.counter, start, end)
}

// ZeroGrad clears every gradient buffer in place.
func (d *Device[M]) ZeroGrad() error {
	tape, ok := d.modules.Tape()
	if !ok {
		return ErrAutogradUnavailable
	}
	return tape.Gradients().ZeroGrad()
}

// Close releases the cache entries and gradient buffers held by the device.
// Buffers still alive keep their own allocations.
func (d *Device[M]) Close() error {
	if c, ok := d.modules.Cache(); ok {
		c.Clear()
	}
	var err error
	if tape, ok := d.modules.Tape(); ok {
		tape.Clear()
		err = tape.Gradients().Reset()
	}
	klog.V(1).Infof("core: closed %s", d)
	return err
}

// String returns e.g. "Device(CPU, Cached(Base), 3f1c...)".
func (d *Device[M]) String() string {
	return fmt.Sprintf("Device(%s, %s, %s)", d.name, d.modules.Name(), d.id)
}
