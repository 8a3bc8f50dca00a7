package module

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/cache"
	"github.com/Suad0/custos/internal/ident"
)

// Base is the terminal module. It allocates fresh memory for every retrieval.
type Base struct{}

var _ Module = Base{}

// Setup implements Module.
func (Base) Setup(Host) error { return nil }

// Retrieve implements Module.
func (Base) Retrieve(host Host, id ident.Id, elemSize int, _ []Handle) (*alloc.Raw, error) {
	return host.Allocator().Alloc(id.Len, elemSize, alloc.Owned)
}

// OnRetrieveFinish implements Module.
func (Base) OnRetrieveFinish(Host, Handle) {}

// OnNewBuffer implements Module.
func (Base) OnNewBuffer(Host, Handle) {}

// OnDropBuffer implements Module.
func (Base) OnDropBuffer(Host, Handle) {}

// Cache implements Module.
func (Base) Cache() (*cache.Cache, bool) { return nil, false }

// Lazy implements Module.
func (Base) Lazy() (LazyActions, bool) { return nil, false }

// Tape implements Module.
func (Base) Tape() (*autograd.Tape, bool) { return nil, false }

// Name implements Module.
func (Base) Name() string { return "Base" }
