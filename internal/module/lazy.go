package module

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/cache"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/lazy"
)

// Lazy records operations into a graph instead of executing them.
// Retrieval still allocates concrete storage through the inner module; the
// contents are only meaningful once the graph has run.
type Lazy[M Module] struct {
	inner   M
	graph   *lazy.Graph
	buffers *lazy.Buffers
	enabled bool
	hold    bool
}

var (
	_ Module      = (*Lazy[Base])(nil)
	_ LazyActions = (*Lazy[Base])(nil)
)

// NewLazy wraps inner with a lazy graph. Recording starts enabled.
func NewLazy[M Module](inner M) *Lazy[M] {
	return &Lazy[M]{
		inner:   inner,
		graph:   lazy.NewGraph(),
		buffers: lazy.NewBuffers(),
		enabled: true,
	}
}

// Inner returns the wrapped module.
func (l *Lazy[M]) Inner() M {
	return l.inner
}

func (l *Lazy[M]) Setup(host Host) error { return l.inner.Setup(host) }

func (l *Lazy[M]) Retrieve(host Host, id ident.Id, elemSize int, parents []Handle) (*alloc.Raw, error) {
	return l.inner.Retrieve(host, id, elemSize, parents)
}

func (l *Lazy[M]) OnRetrieveFinish(host Host, buf Handle) {
	l.buffers.Register(buf.Key(), buf)
	l.inner.OnRetrieveFinish(host, buf)
}

func (l *Lazy[M]) OnNewBuffer(host Host, buf Handle) {
	l.buffers.Register(buf.Key(), buf)
	l.inner.OnNewBuffer(host, buf)
}

func (l *Lazy[M]) OnDropBuffer(host Host, buf Handle) {
	l.buffers.Unregister(buf.Key(), buf)
	l.inner.OnDropBuffer(host, buf)
}

func (l *Lazy[M]) Cache() (*cache.Cache, bool) { return l.inner.Cache() }

// Lazy returns l itself.
func (l *Lazy[M]) Lazy() (LazyActions, bool) { return l, true }

func (l *Lazy[M]) Tape() (*autograd.Tape, bool) { return l.inner.Tape() }

func (l *Lazy[M]) Name() string {
	return "Lazy(" + l.inner.Name() + ")"
}

// IsLazy implements LazyActions.
func (l *Lazy[M]) IsLazy() bool {
	return l.enabled
}

// AddOperation implements LazyActions.
func (l *Lazy[M]) AddOperation(op lazy.Operation) {
	l.graph.Add(op)
}

// RunGraph executes the graph against the lazy buffer pool. On success the
// graph is cleared unless hold is set; on failure it is left intact.
func (l *Lazy[M]) RunGraph() error {
	if err := l.graph.Run(l.buffers); err != nil {
		return err
	}
	if !l.hold {
		l.graph.Clear()
	}
	return nil
}

// Eagerly implements LazyActions.
func (l *Lazy[M]) Eagerly(fn func() error) error {
	prev := l.enabled
	l.enabled = false
	defer func() {
		l.enabled = prev
	}()
	return fn()
}

// Graph implements LazyActions.
func (l *Lazy[M]) Graph() *lazy.Graph { return l.graph }

// Buffers implements LazyActions.
func (l *Lazy[M]) Buffers() *lazy.Buffers { return l.buffers }

// SetHold implements LazyActions.
func (l *Lazy[M]) SetHold(hold bool) { l.hold = hold }
