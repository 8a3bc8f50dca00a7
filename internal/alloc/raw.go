package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"
)

// Raw is a backend-opaque allocation.
//
// It carries either host-visible bytes, a backend handle (e.g. a GPU buffer),
// or both, plus the element metadata needed to interpret it. Raw is reference
// counted: every Buffer and every Cache entry holding it owns one reference.
// The owning Allocator's Free runs exactly once, when the count drops to zero,
// and never for Wrapper allocations.
type Raw struct {
	owner    Allocator
	host     []byte
	handle   any
	len      int
	elemSize int

	flag     Flag
	refCount atomic.Int32
	released atomic.Bool
	mu       sync.Mutex
}

// NewHost creates a host-addressable allocation over data with refCount = 1.
// data must hold at least n*elemSize bytes.
func NewHost(owner Allocator, data []byte, n, elemSize int, flag Flag) *Raw {
	CheckLen(n)
	if len(data) < n*elemSize {
		panic(fmt.Sprintf("alloc: host data of %d bytes too short for %d elements of %d bytes", len(data), n, elemSize))
	}
	r := &Raw{
		owner:    owner,
		host:     data[:n*elemSize],
		len:      n,
		elemSize: elemSize,
		flag:     flag,
	}
	r.refCount.Store(1)
	return r
}

// NewDevice creates a device-resident allocation identified by handle with refCount = 1.
func NewDevice(owner Allocator, handle any, n, elemSize int, flag Flag) *Raw {
	CheckLen(n)
	r := &Raw{
		owner:    owner,
		handle:   handle,
		len:      n,
		elemSize: elemSize,
		flag:     flag,
	}
	r.refCount.Store(1)
	return r
}

// Len returns the number of elements.
func (r *Raw) Len() int {
	return r.len
}

// ElemSize returns the byte size of one element.
func (r *Raw) ElemSize() int {
	return r.elemSize
}

// ByteSize returns the total allocation size in bytes.
func (r *Raw) ByteSize() int {
	return r.len * r.elemSize
}

// Flag returns the disposal flag.
func (r *Raw) Flag() Flag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flag
}

// SetFlag changes the disposal flag. Used by the cache when it adopts an allocation.
func (r *Raw) SetFlag(flag Flag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flag = flag
}

// Owner returns the allocator that created this allocation.
func (r *Raw) Owner() Allocator {
	return r.owner
}

// Host returns the host-visible bytes, or nil for device-only allocations.
// WARNING: Direct access to underlying memory.
func (r *Raw) Host() []byte {
	return r.host
}

// HostAddressable reports whether Host returns usable memory.
func (r *Raw) HostAddressable() bool {
	return r.host != nil
}

// Handle returns the backend handle, or nil for host-only allocations.
func (r *Raw) Handle() any {
	return r.handle
}

// Ptr returns an address identifying the underlying memory.
// Two Raws with the same Ptr share storage.
func (r *Raw) Ptr() uintptr {
	if len(r.host) > 0 {
		return uintptr(unsafe.Pointer(&r.host[0])) //nolint:gosec // G103: identity only, never dereferenced
	}
	if v := reflect.ValueOf(r.handle); v.Kind() == reflect.Pointer || v.Kind() == reflect.UnsafePointer {
		return v.Pointer()
	}
	return 0
}

// Retain increments the reference count and returns r.
func (r *Raw) Retain() *Raw {
	r.refCount.Add(1)
	return r
}

// RefCount returns the current number of references.
func (r *Raw) RefCount() int {
	return int(r.refCount.Load())
}

// IsUnique returns true if only one reference is left.
func (r *Raw) IsUnique() bool {
	return r.refCount.Load() == 1
}

// Released reports whether the allocation has been freed.
func (r *Raw) Released() bool {
	return r.released.Load()
}

// Release drops one reference. When the last reference drops and the flag
// permits it, the owner's Free runs. Returns the error from Free, if any.
func (r *Raw) Release() error {
	n := r.refCount.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		return ErrReleasedAllocation
	}
	if !r.Flag().Frees() {
		return nil
	}
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if r.owner != nil {
		err = r.owner.Free(r)
	}
	r.mu.Lock()
	r.host = nil
	r.handle = nil
	r.mu.Unlock()
	return err
}

// View creates a non-owning Wrapper allocation sharing r's memory.
// Releasing the view never frees the memory.
func (r *Raw) View() *Raw {
	v := &Raw{
		owner:    r.owner,
		host:     r.host,
		handle:   r.handle,
		len:      r.len,
		elemSize: r.elemSize,
		flag:     Wrapper,
	}
	v.refCount.Store(1)
	return v
}

// String returns a short description, e.g. "Raw(40 B, 10x4, owned, refs=1)".
func (r *Raw) String() string {
	return fmt.Sprintf("Raw(%s, %dx%d, %s, refs=%d)",
		humanize.IBytes(uint64(r.ByteSize())), r.len, r.elemSize, r.Flag(), r.RefCount()) //nolint:gosec // G115: ByteSize is non-negative
}
