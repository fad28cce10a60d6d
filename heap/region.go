package heap

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// DefaultCapacity is the address space reserved when Config.Capacity is zero.
const DefaultCapacity = 1 << 30

// Region is a contiguous, grow-only byte range.
type Region interface {
	// Grow extends the region by n bytes and returns the offset of the
	// first new byte, which is always the previous Len().
	Grow(n int) (int, error)

	// Bytes returns the region contents, len == Len().
	Bytes() []byte

	// Len returns the number of bytes grown so far.
	Len() int

	// Cap returns the most bytes the region can ever hold.
	Cap() int

	// Close releases the backing memory.
	Close() error
}

// Config configures a new Region.
type Config struct {
	// Capacity is the maximum region size in bytes. Zero means DefaultCapacity.
	Capacity int

	// ForceSlice selects a SliceRegion even where mapping is available.
	ForceSlice bool
}

// New creates the best region available on this platform.
func New(cfg Config) (Region, error) {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if cfg.ForceSlice {
		return NewSlice(capacity), nil
	}
	return NewMapped(capacity)
}

// ParseCapacity parses a human-readable size such as "64MiB" or "1GB".
func ParseCapacity(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > uint64(^uint(0)>>1) {
		return 0, fmt.Errorf("heap: capacity %q exceeds address space", s)
	}
	return int(n), nil
}
