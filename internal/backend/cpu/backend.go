// Package cpu implements the host allocator and the host kernels used by the reference ops.
package cpu

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CPUBackend allocates host memory. Every allocation it returns is host addressable.
type CPUBackend struct {
	allocs    atomic.Int64
	frees     atomic.Int64
	liveBytes atomic.Int64
}

// Compile-time checks.
var (
	_ alloc.Allocator = (*CPUBackend)(nil)
	_ alloc.Adopter   = (*CPUBackend)(nil)
)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Alloc returns zeroed host storage for n elements of elemSize bytes.
// Storage is backed by 8-byte words so every element type is naturally aligned.
func (cpu *CPUBackend) Alloc(n, elemSize int, flag alloc.Flag) (*alloc.Raw, error) {
	alloc.CheckLen(n)
	if elemSize <= 0 {
		return nil, errors.Wrapf(alloc.ErrAllocation, "element size %d", elemSize)
	}
	size := n * elemSize
	words := make([]uint64, (size+7)/8)
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size) //nolint:gosec // G103: reinterpret word storage as bytes
	raw := alloc.NewHost(cpu, data, n, elemSize, flag)
	cpu.track(raw)
	return raw, nil
}

// AllocFromBytes allocates and copies data into the new storage.
func (cpu *CPUBackend) AllocFromBytes(data []byte, elemSize int) (*alloc.Raw, error) {
	if len(data) == 0 {
		return nil, alloc.ErrEmptyHostAllocation
	}
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, errors.Wrapf(alloc.ErrAllocation, "%d bytes is not a multiple of element size %d", len(data), elemSize)
	}
	raw, err := cpu.Alloc(len(data)/elemSize, elemSize, alloc.Owned)
	if err != nil {
		return nil, err
	}
	copy(raw.Host(), data)
	return raw, nil
}

// Adopt takes ownership of data without copying it.
func (cpu *CPUBackend) Adopt(data []byte, elemSize int) (*alloc.Raw, error) {
	if len(data) == 0 {
		return nil, alloc.ErrEmptyHostAllocation
	}
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, errors.Wrapf(alloc.ErrAllocation, "%d bytes is not a multiple of element size %d", len(data), elemSize)
	}
	raw := alloc.NewHost(cpu, data, len(data)/elemSize, elemSize, alloc.Owned)
	cpu.track(raw)
	return raw, nil
}

// Free forgets the allocation. Host memory is reclaimed by the garbage collector.
func (cpu *CPUBackend) Free(raw *alloc.Raw) error {
	cpu.frees.Add(1)
	cpu.liveBytes.Add(-int64(raw.ByteSize()))
	if klog.V(2).Enabled() {
		klog.Infof("cpu: free %s", humanize.IBytes(uint64(raw.ByteSize()))) //nolint:gosec // G115: sizes are non-negative
	}
	return nil
}

// CopyToHost copies the allocation into dst.
func (cpu *CPUBackend) CopyToHost(raw *alloc.Raw, dst []byte) error {
	if err := alloc.CheckHostCopy(raw, dst); err != nil {
		return err
	}
	copy(dst, raw.Host())
	return nil
}

// CopyFromHost overwrites the allocation with src.
func (cpu *CPUBackend) CopyFromHost(raw *alloc.Raw, src []byte) error {
	if err := alloc.CheckHostCopy(raw, src); err != nil {
		return err
	}
	copy(raw.Host(), src)
	return nil
}

func (cpu *CPUBackend) track(raw *alloc.Raw) {
	cpu.allocs.Add(1)
	cpu.liveBytes.Add(int64(raw.ByteSize()))
	if klog.V(2).Enabled() {
		klog.Infof("cpu: alloc %s", raw)
	}
}

// Stats contains allocation counters.
type Stats struct {
	Allocs    int64
	Frees     int64
	LiveBytes int64
}

// String returns e.g. "allocs=3 frees=1 live=8.0 KiB".
func (s Stats) String() string {
	return fmt.Sprintf("allocs=%d frees=%d live=%s", s.Allocs, s.Frees, humanize.IBytes(uint64(max(s.LiveBytes, 0)))) //nolint:gosec // G115: clamped
}

// Stats returns a snapshot of the allocation counters.
func (cpu *CPUBackend) Stats() Stats {
	return Stats{
		Allocs:    cpu.allocs.Load(),
		Frees:     cpu.frees.Load(),
		LiveBytes: cpu.liveBytes.Load(),
	}
}
