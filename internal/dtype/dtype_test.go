package dtype_test

import (
	"testing"

	"github.com/Suad0/custos/internal/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/x448/float16"
)

type celsius float32

func TestOf(t *testing.T) {
	assert.Equal(t, dtype.Float32, dtype.Of[float32]())
	assert.Equal(t, dtype.Float16, dtype.Of[float16.Float16]())
	assert.Equal(t, dtype.Int64, dtype.Of[int64]())
	assert.Equal(t, dtype.Unknown, dtype.Of[celsius]())
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, 4, dtype.SizeOf[float32]())
	assert.Equal(t, 2, dtype.SizeOf[float16.Float16]())
	assert.Equal(t, 8, dtype.SizeOf[uint64]())
	assert.Equal(t, 1, dtype.SizeOf[bool]())
	assert.Equal(t, dtype.Float64.Size(), dtype.SizeOf[float64]())
}

func TestOne(t *testing.T) {
	assert.Equal(t, float32(1), dtype.One[float32]())
	assert.Equal(t, float64(1), dtype.One[float64]())
	assert.Equal(t, int32(1), dtype.One[int32]())
	assert.Equal(t, uint8(1), dtype.One[uint8]())
	assert.True(t, dtype.One[bool]())
	assert.Equal(t, celsius(1), dtype.One[celsius]())
	assert.Equal(t, float32(1), dtype.One[float16.Float16]().Float32())
}

func TestBytesRoundTrip(t *testing.T) {
	data := []float32{1, 2, 3}
	raw := dtype.Bytes(data)
	assert.Len(t, raw, 12)

	back := dtype.FromBytes[float32](raw, 3)
	back[1] = 42
	assert.Equal(t, float32(42), data[1], "FromBytes must alias the same memory")
}

func TestFromBytes_TooShort(t *testing.T) {
	assert.Panics(t, func() {
		dtype.FromBytes[float64](make([]byte, 4), 1)
	})
}
