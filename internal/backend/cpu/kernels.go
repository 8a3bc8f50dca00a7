package cpu

import (
	"github.com/Suad0/custos/internal/dtype"
	"github.com/Suad0/custos/internal/parallel"
)

var parallelConfig = parallel.DefaultConfig()

// SetParallel replaces the fan-out configuration used by the element-wise kernels.
// Not safe to call while kernels are running.
func SetParallel(cfg parallel.Config) {
	parallelConfig = cfg
}

// Parallel returns the fan-out configuration of the element-wise kernels.
func Parallel() parallel.Config {
	return parallelConfig
}

// Add computes dst = a + b element-wise.
func Add[T dtype.Numeric](dst, a, b []T) {
	parallel.ForRange(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = a[i] + b[i]
		}
	}, parallelConfig)
}

// Mul computes dst = a * b element-wise.
func Mul[T dtype.Numeric](dst, a, b []T) {
	parallel.ForRange(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] = a[i] * b[i]
		}
	}, parallelConfig)
}

// AddInplace accumulates src into dst.
func AddInplace[T dtype.Numeric](dst, src []T) {
	parallel.ForRange(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] += src[i]
		}
	}, parallelConfig)
}

// MulAcc accumulates a * b into dst.
func MulAcc[T dtype.Numeric](dst, a, b []T) {
	parallel.ForRange(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst[i] += a[i] * b[i]
		}
	}, parallelConfig)
}

// AddScalarInplace adds v to every element of dst.
func AddScalarInplace[T dtype.Numeric](dst []T, v T) {
	for i := range dst {
		dst[i] += v
	}
}

// ReLU computes dst = max(x, 0).
func ReLU[T dtype.Numeric](dst, x []T) {
	parallel.ForRange(len(dst), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if x[i] > 0 {
				dst[i] = x[i]
			} else {
				dst[i] = 0
			}
		}
	}, parallelConfig)
}

// ReLUGrad accumulates outGrad into xGrad wherever x is positive.
func ReLUGrad[T dtype.Numeric](xGrad, x, outGrad []T) {
	parallel.ForRange(len(xGrad), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if x[i] > 0 {
				xGrad[i] += outGrad[i]
			}
		}
	}, parallelConfig)
}

// Sum returns the sum of all elements.
func Sum[T dtype.Numeric](x []T) T {
	var sum T
	for _, v := range x {
		sum += v
	}
	return sum
}
