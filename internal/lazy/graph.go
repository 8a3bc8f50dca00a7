// Package lazy records operations for deferred, in-order execution.
//
// Operations never hold buffers directly. They capture buffer keys and
// resolve them against a Pool when the graph runs, so running a graph after
// one of its buffers was released reports ErrStaleReference instead of
// touching freed memory.
package lazy

import (
	"github.com/Suad0/custos/internal/ident"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Errors returned by graph execution.
var (
	ErrStaleReference = errors.New("stale buffer reference")
	ErrInvalidRange   = errors.New("invalid operation range")
)

// Operation is a recorded unit of work.
type Operation interface {
	// Keys returns the keys of the buffers the operation reads or writes.
	Keys() []ident.Key
	// Execute runs the operation, resolving its buffers from pool.
	Execute(pool Pool) error
}

// Func is an Operation backed by a closure.
type Func struct {
	Name string
	Args []ident.Key
	Fn   func(pool Pool) error
}

// Keys implements Operation.
func (f Func) Keys() []ident.Key { return f.Args }

// Execute implements Operation.
func (f Func) Execute(pool Pool) error { return f.Fn(pool) }

func (f Func) String() string {
	if f.Name == "" {
		return "func"
	}
	return f.Name
}

// Graph is an ordered list of recorded operations.
// Not safe for concurrent use.
type Graph struct {
	ops []Operation
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Add appends op.
func (g *Graph) Add(op Operation) {
	g.ops = append(g.ops, op)
}

// Len returns the number of recorded operations.
func (g *Graph) Len() int {
	return len(g.ops)
}

// Run executes every operation in record order. The buffers of each
// operation are resolved right before it executes; execution stops at the
// first failure and the graph is left unchanged.
func (g *Graph) Run(pool Pool) error {
	klog.V(1).Infof("lazy: running %d operations", len(g.ops))
	return run(g.ops, 0, pool)
}

// RunRange executes operations [start, end) in order and removes them from
// the graph on success.
func (g *Graph) RunRange(start, end int, pool Pool) error {
	if start < 0 || end > len(g.ops) || start > end {
		return errors.Wrapf(ErrInvalidRange, "[%d, %d) of %d operations", start, end, len(g.ops))
	}
	klog.V(1).Infof("lazy: running operations [%d, %d)", start, end)
	if err := run(g.ops[start:end], start, pool); err != nil {
		return err
	}
	g.ops = append(g.ops[:start], g.ops[end:]...)
	return nil
}

// Clear drops every recorded operation.
func (g *Graph) Clear() {
	clear(g.ops)
	g.ops = g.ops[:0]
}

func run(ops []Operation, offset int, pool Pool) error {
	for i, op := range ops {
		for _, key := range op.Keys() {
			if _, ok := pool.Lookup(key); !ok {
				return errors.Wrapf(ErrStaleReference, "operation %d (%v): buffer %s", offset+i, op, key)
			}
		}
		if err := op.Execute(pool); err != nil {
			return errors.Wrapf(err, "operation %d (%v)", offset+i, op)
		}
	}
	return nil
}
