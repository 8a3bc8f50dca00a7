// Package module defines the composable module stack of a device.
//
// A stack is built bottom-up from wrapper values, each holding its inner
// module and forwarding every hook and capability it does not implement:
//
//	stack := module.NewCached(module.NewAutograd(module.Base{}))
//
// The device drives the stack: Retrieve produces the allocation for a
// requested identity, the On* hooks observe buffer lifecycle, and the
// capability accessors expose the cache, lazy graph and tape of whichever
// layer provides them.
package module

import (
	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/cache"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/lazy"
)

// Host is the device as seen by its modules.
type Host interface {
	Allocator() alloc.Allocator
	Counter() *ident.Counter
}

// Handle is a buffer as seen by the modules.
// Id is the slot the cache keys on; Key tells live buffers apart.
type Handle interface {
	Id() ident.Id
	Key() ident.Key
	Raw() *alloc.Raw
}

// Module is one layer of a device's module stack.
type Module interface {
	// Setup runs once when the device is created.
	Setup(host Host) error
	// Retrieve returns the allocation for a buffer of identity id.
	// id.Len is the element count, elemSize the byte size of one element.
	Retrieve(host Host, id ident.Id, elemSize int, parents []Handle) (*alloc.Raw, error)
	// OnRetrieveFinish runs after a retrieved buffer was constructed.
	OnRetrieveFinish(host Host, buf Handle)
	// OnNewBuffer runs after an explicitly constructed buffer was created.
	OnNewBuffer(host Host, buf Handle)
	// OnDropBuffer runs when a buffer is released.
	OnDropBuffer(host Host, buf Handle)

	Cache() (*cache.Cache, bool)
	Lazy() (LazyActions, bool)
	Tape() (*autograd.Tape, bool)

	Name() string
}

// LazyActions is the capability exposed by the Lazy module.
type LazyActions interface {
	// IsLazy reports whether operations are currently recorded instead of executed.
	IsLazy() bool
	AddOperation(op lazy.Operation)
	// RunGraph executes the recorded operations in order.
	RunGraph() error
	// Eagerly runs fn with recording suspended.
	Eagerly(fn func() error) error
	Graph() *lazy.Graph
	Buffers() *lazy.Buffers
	// SetHold keeps the graph after a successful RunGraph.
	SetHold(hold bool)
}

// Realloc reports whether the binary was built with the realloc tag,
// in which case Cached never reuses allocations.
func Realloc() bool {
	return reallocMode
}
