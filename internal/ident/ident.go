// Package ident provides positional slot identities for buffers.
//
// An Id correlates logical buffer requests across time: the n-th retrieval of
// a loop body gets the same Id on every trip as long as the counter is
// re-synchronised between trips. Ids are not content hashes.
package ident

import "fmt"

// Id identifies a logical allocation slot.
type Id struct {
	Index int // Counter value at the time of the request
	Len   int // Number of elements requested
}

// String returns a compact representation, e.g. "#3[10]".
func (id Id) String() string {
	return fmt.Sprintf("#%d[%d]", id.Index, id.Len)
}

// Compare orders ids by index, then by length.
// Returns -1, 0 or +1.
func Compare(a, b Id) int {
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	case a.Len < b.Len:
		return -1
	case a.Len > b.Len:
		return 1
	default:
		return 0
	}
}
