package core_test

import (
	"testing"

	"github.com/Suad0/custos/internal/alloc"
	"github.com/Suad0/custos/internal/autograd"
	"github.com/Suad0/custos/internal/backend/cpu"
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/ident"
	"github.com/Suad0/custos/internal/lazy"
	"github.com/Suad0/custos/internal/module"
	"github.com/Suad0/custos/internal/shape"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice[M module.Module](t *testing.T, modules M) (*core.Device[M], *cpu.CPUBackend) {
	t.Helper()
	backend := cpu.New()
	dev, err := core.New(backend, modules)
	require.NoError(t, err)
	return dev, backend
}

// TestDevice_New tests device construction and options.
func TestDevice_New(t *testing.T) {
	counter := ident.NewCounter()
	counter.Set(5)
	dev := must.M1(core.New(cpu.New(), module.NewAutograd(module.Base{}),
		core.WithName("host"), core.WithCounter(counter)))

	assert.Equal(t, "host", dev.Name())
	assert.Same(t, counter, dev.Counter())
	assert.Contains(t, dev.String(), "Device(host, Autograd(Base), ")
	assert.NotEqual(t, dev.UUID(), must.M1(core.New(cpu.New(), module.Base{})).UUID())

	buf := must.M1(core.Zeros[float32](dev, 3))
	assert.Equal(t, ident.Id{Index: 5, Len: 3}, buf.Id())
	assert.Equal(t, 6, counter.Get())
}

// TestBuffer_ReadWrite tests host round trips and length checks.
func TestBuffer_ReadWrite(t *testing.T) {
	dev, _ := newDevice(t, module.Base{})
	buf := must.M1(core.FromSlice(dev, []float64{1, 2, 3}))

	assert.Equal(t, []float64{1, 2, 3}, must.M1(buf.Read()))
	require.NoError(t, buf.Write([]float64{4, 5, 6}))
	assert.Equal(t, []float64{4, 5, 6}, buf.Slice())
	assert.ErrorIs(t, buf.Write([]float64{1}), core.ErrLengthMismatch)

	require.NoError(t, buf.Clear())
	assert.Equal(t, []float64{0, 0, 0}, buf.Slice())
	assert.Equal(t, "Buffer[float64](#0[3], CPU, owned)", buf.String())
}

// TestBuffer_Release tests idempotent release and use after release.
func TestBuffer_Release(t *testing.T) {
	dev, backend := newDevice(t, module.Base{})
	buf := must.M1(core.FromSlice(dev, []int32{1, 2}))

	require.NoError(t, buf.Release())
	require.NoError(t, buf.Release())
	assert.True(t, buf.Released())
	assert.Equal(t, int64(1), backend.Stats().Frees)

	_, err := buf.Read()
	assert.ErrorIs(t, err, core.ErrReleased)
	assert.Panics(t, func() { buf.Slice() })
}

// TestBuffer_DisposalFlags tests that only owning buffers free their memory.
func TestBuffer_DisposalFlags(t *testing.T) {
	dev, backend := newDevice(t, module.Base{})

	owned := must.M1(core.FromSlice(dev, []float32{1, 2}))
	assert.Equal(t, alloc.Owned, owned.Flag())

	view := owned.View()
	assert.Equal(t, alloc.Wrapper, view.Flag())
	assert.Equal(t, owned.Id(), view.Id())
	assert.Equal(t, owned.Key(), view.Key())
	require.NoError(t, view.Release())
	assert.Equal(t, int64(0), backend.Stats().Frees)
	assert.Equal(t, []float32{1, 2}, owned.Slice())

	data := []float32{7, 8}
	wrapped := core.WrapHost(dev, data)
	assert.Equal(t, alloc.Wrapper, wrapped.Flag())
	wrapped.Slice()[0] = 9
	assert.Equal(t, float32(9), data[0])
	require.NoError(t, wrapped.Release())
	assert.Equal(t, int64(0), backend.Stats().Frees)

	require.NoError(t, owned.Release())
	assert.Equal(t, int64(1), backend.Stats().Frees)
}

// TestBuffer_FromVec tests that adoptable memory is not copied.
func TestBuffer_FromVec(t *testing.T) {
	dev, _ := newDevice(t, module.Base{})
	data := []uint8{1, 2, 3}
	buf := must.M1(core.FromVec(dev, data))
	data[0] = 42
	assert.Equal(t, uint8(42), buf.Slice()[0])
}

// TestBuffer_Shaped tests shape binding.
func TestBuffer_Shaped(t *testing.T) {
	dev, _ := newDevice(t, module.Base{})

	buf := must.M1(core.FromSliceShaped(dev, shape.Shape{2, 2}, []float32{1, 2, 3, 4, 5}))
	assert.Equal(t, shape.Shape{2, 2}, buf.Shape())
	assert.Equal(t, 4, buf.Len())

	_, err := core.FromSliceShaped(dev, shape.Shape{3, 2}, []float32{1, 2})
	assert.ErrorIs(t, err, core.ErrLengthMismatch)

	out := must.M1(core.RetrieveShaped[float32](dev, shape.Shape{2, 3}))
	assert.Equal(t, 6, out.Len())
	assert.Equal(t, shape.Shape{2, 3}, out.Shape())

	_, err = core.RetrieveShaped[float32](dev, shape.Shape{2, 0})
	assert.Error(t, err)
}

// TestRetrieve_ZeroLenPanics tests that an empty retrieval is a contract violation.
func TestRetrieve_ZeroLenPanics(t *testing.T) {
	dev, _ := newDevice(t, module.Base{})
	assert.Panics(t, func() { _, _ = core.Retrieve[float32](dev, 0) })
	assert.Panics(t, func() { _, _ = core.FromSlice[float32](dev, nil) })
}

// TestRetrieve_CounterAdvances tests that every retrieval takes the next index.
func TestRetrieve_CounterAdvances(t *testing.T) {
	dev, _ := newDevice(t, module.Base{})
	a := must.M1(core.Retrieve[float32](dev, 4))
	b := must.M1(core.Retrieve[float32](dev, 4))
	assert.Equal(t, ident.Id{Index: 0, Len: 4}, a.Id())
	assert.Equal(t, ident.Id{Index: 1, Len: 4}, b.Id())

	dev.ResetCount()
	c := must.M1(core.Retrieve[float32](dev, 4))
	assert.Equal(t, a.Id(), c.Id())
	assert.NotEqual(t, a.Key(), c.Key())
}

// TestRetrieve_ResetCountKeepsBuffersApart tests that a buffer retrieved into
// the slot of a live buffer does not replace it in the lazy and no-grad pools.
func TestRetrieve_ResetCountKeepsBuffersApart(t *testing.T) {
	dev, _ := newDevice(t, module.NewLazy(module.NewAutograd(module.Base{})))
	a := must.M1(core.FromSlice(dev, []float32{1, 2}))
	dev.ResetCount()
	c := must.M1(core.Retrieve[float32](dev, 2))
	require.Equal(t, a.Id(), c.Id())

	lz, _ := dev.Lazy()
	tape, _ := dev.Tape()
	for _, buf := range []*core.Buffer[float32]{a, c} {
		got, ok := lz.Buffers().Lookup(buf.Key())
		require.True(t, ok)
		assert.Same(t, buf, got)
		got, ok = tape.Gradients().NoGrad(buf.Key())
		require.True(t, ok)
		assert.Same(t, buf, got)
	}

	require.NoError(t, c.Release())
	_, ok := lz.Buffers().Lookup(a.Key())
	assert.True(t, ok, "releasing c keeps a registered")
}

// TestGrad_MissingAutograd tests the errors without an Autograd module.
func TestGrad_MissingAutograd(t *testing.T) {
	dev, _ := newDevice(t, module.NewCached(module.Base{}))
	buf := must.M1(core.FromSlice(dev, []float32{1}))

	_, err := buf.Grad()
	require.ErrorIs(t, err, core.ErrAutogradUnavailable)
	_, ok := buf.TryGrad()
	assert.False(t, ok)
	assert.ErrorIs(t, buf.Backward(), core.ErrAutogradUnavailable)
	assert.ErrorIs(t, dev.ZeroGrad(), core.ErrAutogradUnavailable)
	assert.False(t, core.AddGradFn(dev, func(*autograd.Gradients) error { return nil }))
}

// TestGrad_Idempotent tests that repeated gradient access returns the same buffer.
func TestGrad_Idempotent(t *testing.T) {
	dev, backend := newDevice(t, module.NewAutograd(module.Base{}))
	x := must.M1(core.FromSlice(dev, []float32{1, 2, 3}))
	before := dev.Counter().Get()

	_, ok := x.TryGrad()
	assert.False(t, ok)

	g1 := must.M1(x.Grad())
	g2 := must.M1(x.Grad())
	assert.Same(t, g1, g2)
	assert.Equal(t, []float32{0, 0, 0}, g1.Slice())
	assert.Equal(t, x.Id(), g1.Id())
	assert.Equal(t, before, dev.Counter().Get())

	g3, ok := x.TryGrad()
	require.True(t, ok)
	assert.Same(t, g1, g3)
	assert.Equal(t, int64(2), backend.Stats().Allocs)

	g1.Slice()[1] = 5
	require.NoError(t, dev.ZeroGrad())
	assert.Equal(t, []float32{0, 0, 0}, g1.Slice())
}

// TestGrad_OfGradient tests that a gradient buffer is distinct from its
// origin and has a gradient of its own.
func TestGrad_OfGradient(t *testing.T) {
	dev, _ := newDevice(t, module.NewAutograd(module.Base{}))
	x := must.M1(core.FromSlice(dev, []float32{1, 2}))

	gx := must.M1(x.Grad())
	ggx := must.M1(gx.Grad())
	assert.True(t, gx.IsGrad())
	assert.False(t, x.IsGrad())
	assert.NotSame(t, x, gx)
	assert.NotSame(t, gx, ggx)
	assert.NotEqual(t, x.Key(), gx.Key())
	assert.Same(t, gx, must.M1(x.Grad()))

	ggx.Slice()[0] = 1
	assert.Equal(t, []float32{0, 0}, gx.Slice())
	assert.Equal(t, []float32{1, 2}, x.Slice())
}

// TestGrad_ReleasedWithOrigin tests that releasing a buffer releases its
// gradient and that the next gradient of the same size reuses its memory.
func TestGrad_ReleasedWithOrigin(t *testing.T) {
	dev, backend := newDevice(t, module.NewAutograd(module.Base{}))
	tape, _ := dev.Tape()
	x := must.M1(core.FromSlice(dev, []float32{1, 2}))
	gx := must.M1(x.Grad())
	gx.Slice()[0] = 3
	ptr := gx.Raw().Ptr()

	require.NoError(t, x.Release())
	assert.True(t, gx.Released())
	assert.Equal(t, 0, tape.Gradients().Len())
	assert.Equal(t, 1, tape.Gradients().Spares())
	_, err := x.Grad()
	assert.ErrorIs(t, err, core.ErrReleased)

	y := must.M1(core.FromSlice(dev, []float32{5, 6}))
	gy := must.M1(y.Grad())
	assert.Equal(t, ptr, gy.Raw().Ptr())
	assert.Equal(t, []float32{0, 0}, gy.Slice())
	assert.Equal(t, int64(3), backend.Stats().Allocs)

	require.NoError(t, dev.Close())
	assert.Equal(t, int64(2), backend.Stats().Frees)
}

// TestLazy_OpOverGradient tests that a recorded operation reading a gradient
// resolves the gradient and not its origin.
func TestLazy_OpOverGradient(t *testing.T) {
	dev, _ := newDevice(t, module.NewLazy(module.NewAutograd(module.Base{})))
	w := must.M1(core.FromSlice(dev, []float32{1, 2}))
	gw := must.M1(w.Grad())
	require.NoError(t, gw.Write([]float32{3, 4}))
	out := must.M1(core.Retrieve[float32](dev, 2, w, gw))

	require.NoError(t, core.AddOp3(dev, "add", w, gw, out, func(w, gw, out *core.Buffer[float32]) error {
		for i := range out.Slice() {
			out.Slice()[i] = w.Slice()[i] + gw.Slice()[i]
		}
		return nil
	}))
	require.NoError(t, dev.Run())
	assert.Equal(t, []float32{4, 6}, out.Slice())
}

// TestBackward_ReverseOrder tests that closures run in reverse registration order.
func TestBackward_ReverseOrder(t *testing.T) {
	dev, _ := newDevice(t, module.NewAutograd(module.Base{}))
	y := must.M1(core.FromSlice(dev, []float32{1}))

	var log []string
	for _, name := range []string{"A", "B", "C"} {
		require.True(t, core.AddGradFn(dev, func(*autograd.Gradients) error {
			log = append(log, name)
			return nil
		}))
	}
	require.NoError(t, y.Backward())
	assert.Equal(t, []string{"C", "B", "A"}, log)
	assert.Equal(t, []float32{1}, must.M1(y.Grad()).Slice())

	tape, _ := dev.Tape()
	assert.Equal(t, 0, tape.Len())
}

// TestBackward_Seeded tests custom seeds and identity-resolved closure buffers.
func TestBackward_Seeded(t *testing.T) {
	dev, _ := newDevice(t, module.NewAutograd(module.Base{}))
	x := must.M1(core.FromSlice(dev, []float64{2, 3}))
	y := must.M1(core.FromSlice(dev, []float64{0, 0}))

	core.AddGradFn2(dev, x, y, func(x, y *core.Buffer[float64]) error {
		gx, err := x.Grad()
		if err != nil {
			return err
		}
		gy, err := y.Grad()
		if err != nil {
			return err
		}
		for i, v := range gy.Slice() {
			gx.Slice()[i] += 10 * v
		}
		return nil
	})
	require.NoError(t, y.BackwardSeeded([]float64{1, 2}))
	assert.Equal(t, []float64{10, 20}, must.M1(x.Grad()).Slice())
	assert.ErrorIs(t, y.BackwardSeeded([]float64{1}), core.ErrLengthMismatch)
}

// TestBackward_StaleClosureBuffer tests that a released buffer cannot be resolved by a closure.
func TestBackward_StaleClosureBuffer(t *testing.T) {
	dev, _ := newDevice(t, module.NewAutograd(module.Base{}))
	x := must.M1(core.FromSlice(dev, []float32{1}))
	y := must.M1(core.FromSlice(dev, []float32{1}))

	core.AddGradFn1(dev, x, func(*core.Buffer[float32]) error { return nil })
	require.NoError(t, x.Release())
	assert.ErrorIs(t, y.Backward(), lazy.ErrStaleReference)
}

// TestLazy_DefersOps tests that operations are recorded until the graph runs.
func TestLazy_DefersOps(t *testing.T) {
	dev, _ := newDevice(t, module.NewLazy(module.Base{}))
	a := must.M1(core.FromSlice(dev, []float32{1, 2}))
	out := must.M1(core.Retrieve[float32](dev, 2, a))

	double := func(a, out *core.Buffer[float32]) error {
		for i, v := range a.Slice() {
			out.Slice()[i] = 2 * v
		}
		return nil
	}
	require.NoError(t, core.AddOp2(dev, "double", a, out, double))
	assert.Equal(t, []float32{0, 0}, out.Slice())

	require.NoError(t, dev.Run())
	assert.Equal(t, []float32{2, 4}, out.Slice())

	lz, ok := dev.Lazy()
	require.True(t, ok)
	assert.Equal(t, 0, lz.Graph().Len())

	require.NoError(t, dev.Eagerly(func() error {
		return core.AddOp2(dev, "double", out, out, double)
	}))
	assert.Equal(t, []float32{4, 8}, out.Slice())
}

// TestLazy_StaleReference tests that running a graph over a released buffer fails.
func TestLazy_StaleReference(t *testing.T) {
	dev, _ := newDevice(t, module.NewLazy(module.Base{}))
	a := must.M1(core.FromSlice(dev, []float32{1, 2}))
	out := must.M1(core.Retrieve[float32](dev, 2, a))

	ran := false
	require.NoError(t, core.AddOp2(dev, "touch", a, out, func(_, _ *core.Buffer[float32]) error {
		ran = true
		return nil
	}))
	require.NoError(t, a.Release())

	err := dev.Run()
	require.ErrorIs(t, err, lazy.ErrStaleReference)
	assert.False(t, ran)

	lz, _ := dev.Lazy()
	assert.Equal(t, 1, lz.Graph().Len())
}

// TestDevice_EagerWithoutLazy tests that ops run immediately without a Lazy module.
func TestDevice_EagerWithoutLazy(t *testing.T) {
	dev, _ := newDevice(t, module.Base{})
	a := must.M1(core.FromSlice(dev, []int64{3}))
	require.NoError(t, core.AddOp(dev, "inc", a, func(a *core.Buffer[int64]) error {
		a.Slice()[0]++
		return nil
	}))
	assert.Equal(t, int64(4), a.Slice()[0])
	require.NoError(t, dev.Run())
}

// TestDevice_Close tests that closing releases device-held resources.
func TestDevice_Close(t *testing.T) {
	dev, backend := newDevice(t, module.NewAutograd(module.Base{}))
	x := must.M1(core.FromSlice(dev, []float32{1}))
	_ = must.M1(x.Grad())

	require.NoError(t, dev.Close())
	tape, _ := dev.Tape()
	assert.Equal(t, 0, tape.Gradients().Len())
	assert.Equal(t, int64(1), backend.Stats().Frees)
}
