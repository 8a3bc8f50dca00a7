package ident

import (
	"strconv"
	"sync/atomic"
)

// Key identifies one buffer for as long as it lives.
//
// Unlike Id, a Key is never handed out twice, so two live buffers never share
// one even when the counter was reset and their slots collide. Views share
// the Key of the buffer they alias.
type Key uint64

var lastKey atomic.Uint64

// NewKey returns a process-unique key. Safe for concurrent use.
func NewKey() Key {
	return Key(lastKey.Add(1))
}

// String returns e.g. "@12".
func (k Key) String() string {
	return "@" + strconv.FormatUint(uint64(k), 10)
}
