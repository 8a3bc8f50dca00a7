package module

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/cache"
	"github.com/Suad0/custos/internal/ident"
	"k8s.io/klog/v2"
)

// Autograd provides a gradient tape. Every live buffer is registered in the
// tape's no-grad pool so backward closures can resolve buffers by key.
// Releasing a buffer releases its gradient.
type Autograd[M Module] struct {
	inner M
	tape  *autograd.Tape
}

var _ Module = (*Autograd[Base])(nil)

// NewAutograd wraps inner with a gradient tape.
func NewAutograd[M Module](inner M) *Autograd[M] {
	return &Autograd[M]{inner: inner, tape: autograd.NewTape()}
}

// Inner returns the wrapped module.
func (a *Autograd[M]) Inner() M {
	return a.inner
}

func (a *Autograd[M]) Setup(host Host) error { return a.inner.Setup(host) }

func (a *Autograd[M]) Retrieve(host Host, id ident.Id, elemSize int, parents []Handle) (*alloc.Raw, error) {
	return a.inner.Retrieve(host, id, elemSize, parents)
}

func (a *Autograd[M]) OnRetrieveFinish(host Host, buf Handle) {
	a.tape.Gradients().Register(buf.Key(), buf)
	a.inner.OnRetrieveFinish(host, buf)
}

func (a *Autograd[M]) OnNewBuffer(host Host, buf Handle) {
	a.tape.Gradients().Register(buf.Key(), buf)
	a.inner.OnNewBuffer(host, buf)
}

func (a *Autograd[M]) OnDropBuffer(host Host, buf Handle) {
	grads := a.tape.Gradients()
	grads.Unregister(buf.Key(), buf)
	if err := grads.Drop(buf.Key()); err != nil {
		klog.Warningf("autograd: releasing gradient of %s: %v", buf.Id(), err)
	}
	a.inner.OnDropBuffer(host, buf)
}

func (a *Autograd[M]) Cache() (*cache.Cache, bool) { return a.inner.Cache() }
func (a *Autograd[M]) Lazy() (LazyActions, bool)   { return a.inner.Lazy() }

// Tape returns the gradient tape.
func (a *Autograd[M]) Tape() (*autograd.Tape, bool) {
	return a.tape, true
}

func (a *Autograd[M]) Name() string {
	return "Autograd(" + a.inner.Name() + ")"
}
