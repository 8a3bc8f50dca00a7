// Package dtype defines the element types a Buffer can hold.
package dtype

import (
	"reflect"
	"unsafe"

	"github.com/x448/float16"
)

// Element is a constraint for buffer element types.
// Every element type is fixed-size and pointer-free so buffers can be backed
// by raw host bytes or device memory.
type Element interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~bool
}

// Numeric is the constraint for element types that support arithmetic.
type Numeric interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Float is the constraint for differentiable element types.
type Float interface {
	~float32 | ~float64
}

// DataType represents runtime type information for buffers.
type DataType int

// Supported data types.
const (
	Unknown DataType = iota
	Float16
	Float32
	Float64
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Bool
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Int8, Uint8, Bool:
		return 1
	case Float16, Int16, Uint16:
		return 2
	case Float32, Int32, Uint32:
		return 4
	case Float64, Int64, Uint64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Of infers the DataType of T.
// Named types other than float16.Float16 report Unknown.
func Of[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case bool:
		return Bool
	default:
		return Unknown
	}
}

// SizeOf returns the byte size of one element of T.
func SizeOf[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// One returns the multiplicative identity of T, used to seed gradients.
// float16.Float16 is encoded properly instead of as the integer 1.
func One[T Element]() T {
	var v T
	if p, ok := any(&v).(*float16.Float16); ok {
		*p = float16.Fromfloat32(1)
		return v
	}
	ptr := unsafe.Pointer(&v) //nolint:gosec // G103: width and kind checked below
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Float32:
		*(*float32)(ptr) = 1
	case reflect.Float64:
		*(*float64)(ptr) = 1
	case reflect.Bool:
		*(*bool)(ptr) = true
	case reflect.Int8, reflect.Uint8:
		*(*uint8)(ptr) = 1
	case reflect.Int16, reflect.Uint16:
		*(*uint16)(ptr) = 1
	case reflect.Int32, reflect.Uint32:
		*(*uint32)(ptr) = 1
	case reflect.Int64, reflect.Uint64:
		*(*uint64)(ptr) = 1
	}
	return v
}

// Bytes reinterprets a slice of elements as its raw bytes without copying.
func Bytes[T Element](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion, length derived from element size
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*SizeOf[T]())
}

// FromBytes reinterprets raw bytes as a slice of n elements without copying.
// Panics if data is too short.
func FromBytes[T Element](data []byte, n int) []T {
	if n == 0 {
		return nil
	}
	if len(data) < n*SizeOf[T]() {
		panic("dtype: byte slice too short for element count")
	}
	//nolint:gosec // unsafe.Slice for zero-copy conversion, bounds checked above
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}
