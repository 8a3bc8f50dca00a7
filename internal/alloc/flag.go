package alloc

// Flag records who is responsible for releasing an allocation.
type Flag uint8

// Disposal flags.
const (
	// Owned allocations are freed when their last reference is released.
	Owned Flag = iota
	// Wrapper allocations are non-owning views over memory owned elsewhere.
	// They never run the free path.
	Wrapper
	// CacheEntry allocations are shared between a Cache and the buffers it
	// handed out. They are freed when the last of those references drops.
	CacheEntry
)

// String returns a human-readable flag name.
func (f Flag) String() string {
	switch f {
	case Owned:
		return "owned"
	case Wrapper:
		return "wrapper"
	case CacheEntry:
		return "cache"
	default:
		return "unknown"
	}
}

// Frees reports whether allocations with this flag run the free path.
func (f Flag) Frees() bool {
	return f != Wrapper
}
