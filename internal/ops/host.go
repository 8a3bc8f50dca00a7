package ops

import (
	"github.com/Suad0/custos/internal/core"
	"github.com/Suad0/custos/internal/dtype"
)

// hostSlice exposes b as a host slice. Host-addressable buffers are used in
// place; device buffers are read into a copy that flush writes back.
type hostSlice[T dtype.Element] struct {
	buf   *core.Buffer[T]
	data  []T
	owned bool
}

func load[T dtype.Element](b *core.Buffer[T]) (hostSlice[T], error) {
	if b.Raw().HostAddressable() {
		return hostSlice[T]{buf: b, data: b.Slice()}, nil
	}
	data, err := b.Read()
	if err != nil {
		return hostSlice[T]{}, err
	}
	return hostSlice[T]{buf: b, data: data, owned: true}, nil
}

func (h hostSlice[T]) flush() error {
	if !h.owned {
		return nil
	}
	return h.buf.Write(h.data)
}

func kernel1[T dtype.Element](a *core.Buffer[T], fn func(as []T)) error {
	ha, err := load(a)
	if err != nil {
		return err
	}
	fn(ha.data)
	return ha.flush()
}

func kernel2[T dtype.Element](a, b *core.Buffer[T], fn func(as, bs []T)) error {
	ha, err := load(a)
	if err != nil {
		return err
	}
	hb, err := load(b)
	if err != nil {
		return err
	}
	fn(ha.data, hb.data)
	return flush(ha, hb)
}

func kernel3[T dtype.Element](a, b, c *core.Buffer[T], fn func(as, bs, cs []T)) error {
	ha, err := load(a)
	if err != nil {
		return err
	}
	hb, err := load(b)
	if err != nil {
		return err
	}
	hc, err := load(c)
	if err != nil {
		return err
	}
	fn(ha.data, hb.data, hc.data)
	return flush(ha, hb, hc)
}

// flush writes back every device copy, inputs included.
func flush[T dtype.Element](hs ...hostSlice[T]) error {
	for _, h := range hs {
		if err := h.flush(); err != nil {
			return err
		}
	}
	return nil
}
