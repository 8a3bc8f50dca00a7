//go:build windows

// Package webgpu implements a GPU allocator on WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// storageUsage is the usage of every buffer handed out by the backend.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// ErrUnavailable is returned when no WebGPU adapter or device can be created.
var ErrUnavailable = errors.New("webgpu: not available")

// Backend allocates WebGPU storage buffers. Allocations are device resident
// and not host addressable; host copies go through staging buffers.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo wgpu.AdapterInfo
	pool        *BufferPool

	mu sync.Mutex
}

var _ alloc.Allocator = (*Backend)(nil)

// New creates a WebGPU backend on the high performance adapter.
// Returns ErrUnavailable if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = errors.Wrapf(ErrUnavailable, "native library: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, errors.Wrapf(ErrUnavailable, "requesting adapter: %v", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.Wrapf(ErrUnavailable, "requesting device: %v", err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.Wrap(ErrUnavailable, "no queue")
	}

	b := &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: adapter.GetInfo(),
	}
	b.pool = NewBufferPool(b.createStorage)
	klog.V(1).Infof("webgpu: created %s", b.Name())
	return b, nil
}

// IsAvailable checks if a WebGPU adapter can be created.
func IsAvailable() bool {
	b, err := New()
	if err != nil {
		return false
	}
	b.Release()
	return true
}

// Name returns the backend name with the adapter description.
func (b *Backend) Name() string {
	return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
}

// Pool returns the buffer pool backing allocations.
func (b *Backend) Pool() *BufferPool {
	return b.pool
}

// Alloc returns a zeroed storage buffer for n elements of elemSize bytes.
func (b *Backend) Alloc(n, elemSize int, flag alloc.Flag) (*alloc.Raw, error) {
	alloc.CheckLen(n)
	size := alignedSize(n * elemSize)
	buffer, reused := b.pool.Acquire(size)
	if buffer == nil {
		return nil, errors.Wrapf(alloc.ErrAllocation, "webgpu: creating %d byte buffer", size)
	}
	raw := alloc.NewDevice(b, buffer, n, elemSize, flag)
	if reused {
		// Pooled buffers hold stale contents.
		if err := b.CopyFromHost(raw, make([]byte, raw.ByteSize())); err != nil {
			b.pool.Release(buffer, size)
			return nil, err
		}
	}
	return raw, nil
}

// AllocFromBytes creates a storage buffer initialised with data.
func (b *Backend) AllocFromBytes(data []byte, elemSize int) (*alloc.Raw, error) {
	if len(data) == 0 {
		return nil, alloc.ErrEmptyHostAllocation
	}
	if elemSize <= 0 || len(data)%elemSize != 0 {
		return nil, errors.Wrapf(alloc.ErrAllocation, "%d bytes is not a multiple of element size %d", len(data), elemSize)
	}
	raw, err := b.Alloc(len(data)/elemSize, elemSize, alloc.Owned)
	if err != nil {
		return nil, err
	}
	if err := b.CopyFromHost(raw, data); err != nil {
		_ = raw.Release()
		return nil, err
	}
	return raw, nil
}

// Free returns the buffer to the pool.
func (b *Backend) Free(raw *alloc.Raw) error {
	buffer, ok := raw.Handle().(*wgpu.Buffer)
	if !ok {
		return errors.Errorf("webgpu: freeing foreign allocation %s", raw)
	}
	b.pool.Release(buffer, alignedSize(raw.ByteSize()))
	return nil
}

// CopyToHost reads the buffer back through a mapped staging buffer.
func (b *Backend) CopyToHost(raw *alloc.Raw, dst []byte) error {
	if err := alloc.CheckHostCopy(raw, dst); err != nil {
		return err
	}
	src, ok := raw.Handle().(*wgpu.Buffer)
	if !ok {
		return errors.Wrapf(alloc.ErrNotHostAddressable, "webgpu: %s has no buffer", raw)
	}
	size := alignedSize(len(dst))

	b.mu.Lock()
	defer b.mu.Unlock()

	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return errors.Wrap(err, "webgpu: mapping staging buffer")
	}
	mapped := staging.GetMappedRange(0, size)
	copy(dst, unsafe.Slice((*byte)(mapped), len(dst))) //nolint:gosec // G103: mapped GPU memory
	staging.Unmap()
	return nil
}

// CopyFromHost uploads src through a buffer mapped at creation.
func (b *Backend) CopyFromHost(raw *alloc.Raw, src []byte) error {
	if err := alloc.CheckHostCopy(raw, src); err != nil {
		return err
	}
	dst, ok := raw.Handle().(*wgpu.Buffer)
	if !ok {
		return errors.Wrapf(alloc.ErrNotHostAddressable, "webgpu: %s has no buffer", raw)
	}
	size := alignedSize(len(src))

	b.mu.Lock()
	defer b.mu.Unlock()

	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mapped := staging.GetMappedRange(0, size)
	copy(unsafe.Slice((*byte)(mapped), size), src) //nolint:gosec // G103: mapped GPU memory
	staging.Unmap()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, dst, 0, size)
	b.queue.Submit(encoder.Finish(nil))
	return nil
}

// Release releases the pooled buffers and every WebGPU object.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pool.Clear()
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}

func (b *Backend) createStorage(size uint64) *wgpu.Buffer {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  size,
	})
}

// alignedSize rounds n up to the 4-byte copy alignment WebGPU requires.
func alignedSize(n int) uint64 {
	return uint64((n + 3) &^ 3) //nolint:gosec // G115: sizes are non-negative
}
