// Package ops implements reference operations on core buffers.
//
// Every op retrieves its output through the device's module chain, records
// its forward kernel with core.AddOp* and its backward closure with
// core.AddGradFn*, so the same code runs eagerly, lazily, cached and
// differentiated depending on the device's stack.
package ops

import (
	"github.com/Suad0/custos/internal/backend/cpu"
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/module"
	"github.com/pkg/errors"
)

// Add returns a + b element-wise.
func Add[T dtype.Float](a, b *core.Buffer[T]) (*core.Buffer[T], error) {
	if err := sameLen(a, b); err != nil {
		return nil, errors.WithMessage(err, "add")
	}
	dev := a.Device()
	out, err := retrieveLike(a, a, b)
	if err != nil {
		return nil, err
	}
	err = core.AddOp3(dev, "add", a, b, out, func(a, b, out *core.Buffer[T]) error {
		return kernel3(a, b, out, func(as, bs, outs []T) { cpu.Add(outs, as, bs) })
	})
	if err != nil {
		return nil, err
	}
	core.AddGradFn3(dev, a, b, out, func(a, b, out *core.Buffer[T]) error {
		ga, gb, gout, err := grads3(a, b, out)
		if err != nil {
			return err
		}
		return kernel3(ga, gb, gout, func(gas, gbs, gouts []T) {
			cpu.AddInplace(gas, gouts)
			cpu.AddInplace(gbs, gouts)
		})
	})
	return out, nil
}

// Mul returns a * b element-wise.
func Mul[T dtype.Float](a, b *core.Buffer[T]) (*core.Buffer[T], error) {
	if err := sameLen(a, b); err != nil {
		return nil, errors.WithMessage(err, "mul")
	}
	dev := a.Device()
	out, err := retrieveLike(a, a, b)
	if err != nil {
		return nil, err
	}
	err = core.AddOp3(dev, "mul", a, b, out, func(a, b, out *core.Buffer[T]) error {
		return kernel3(a, b, out, func(as, bs, outs []T) { cpu.Mul(outs, as, bs) })
	})
	if err != nil {
		return nil, err
	}
	core.AddGradFn3(dev, a, b, out, func(a, b, out *core.Buffer[T]) error {
		ga, gb, gout, err := grads3(a, b, out)
		if err != nil {
			return err
		}
		as, err := a.Read()
		if err != nil {
			return err
		}
		bs, err := b.Read()
		if err != nil {
			return err
		}
		return kernel3(ga, gb, gout, func(gas, gbs, gouts []T) {
			cpu.MulAcc(gas, bs, gouts)
			cpu.MulAcc(gbs, as, gouts)
		})
	})
	return out, nil
}

// ReLU returns max(x, 0) element-wise.
func ReLU[T dtype.Float](x *core.Buffer[T]) (*core.Buffer[T], error) {
	dev := x.Device()
	out, err := retrieveLike(x, x)
	if err != nil {
		return nil, err
	}
	err = core.AddOp2(dev, "relu", x, out, func(x, out *core.Buffer[T]) error {
		return kernel2(x, out, func(xs, outs []T) { cpu.ReLU(outs, xs) })
	})
	if err != nil {
		return nil, err
	}
	core.AddGradFn2(dev, x, out, func(x, out *core.Buffer[T]) error {
		gx, err := x.Grad()
		if err != nil {
			return err
		}
		gout, err := out.Grad()
		if err != nil {
			return err
		}
		xs, err := x.Read()
		if err != nil {
			return err
		}
		return kernel2(gx, gout, func(gxs, gouts []T) { cpu.ReLUGrad(gxs, xs, gouts) })
	})
	return out, nil
}

// Sum returns a one-element buffer holding the sum of x.
func Sum[T dtype.Float](x *core.Buffer[T]) (*core.Buffer[T], error) {
	dev := x.Device()
	out, err := core.Retrieve[T](dev, 1, x)
	if err != nil {
		return nil, err
	}
	err = core.AddOp2(dev, "sum", x, out, func(x, out *core.Buffer[T]) error {
		return kernel2(x, out, func(xs, outs []T) { outs[0] = cpu.Sum(xs) })
	})
	if err != nil {
		return nil, err
	}
	core.AddGradFn2(dev, x, out, func(x, out *core.Buffer[T]) error {
		gx, err := x.Grad()
		if err != nil {
			return err
		}
		gout, err := out.Grad()
		if err != nil {
			return err
		}
		seed, err := gout.Read()
		if err != nil {
			return err
		}
		return kernel1(gx, func(gxs []T) { cpu.AddScalarInplace(gxs, seed[0]) })
	})
	return out, nil
}

// sameLen checks that a and b can be combined element-wise. Fixed shapes
// must agree; an unshaped operand only needs the same length.
func sameLen[T dtype.Element](a, b *core.Buffer[T]) error {
	if a.Len() != b.Len() {
		return errors.Wrapf(core.ErrLengthMismatch, "%d vs %d elements", a.Len(), b.Len())
	}
	if a.Shape().Fixed() && b.Shape().Fixed() && !a.Shape().Equal(b.Shape()) {
		return errors.Wrapf(core.ErrShapeMismatch, "%s vs %s", a.Shape(), b.Shape())
	}
	return nil
}

// retrieveLike retrieves an output of like's length, carrying the first fixed
// shape among like and parents.
func retrieveLike[T dtype.Element](like *core.Buffer[T], parents ...*core.Buffer[T]) (*core.Buffer[T], error) {
	handles := make([]module.Handle, len(parents))
	s := like.Shape()
	for i, p := range parents {
		handles[i] = p
		if !s.Fixed() {
			s = p.Shape()
		}
	}
	if s.Fixed() {
		return core.RetrieveShaped[T](like.Device(), s, handles...)
	}
	return core.Retrieve[T](like.Device(), like.Len(), handles...)
}

func grads3[T dtype.Float](a, b, c *core.Buffer[T]) (ga, gb, gc *core.Buffer[T], err error) {
	if ga, err = a.Grad(); err != nil {
		return
	}
	if gb, err = b.Grad(); err != nil {
		return
	}
	gc, err = c.Grad()
	return
}
