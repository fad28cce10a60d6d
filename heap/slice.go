package heap

import "github.com/joshuapare/tralloc/internal/buf"

// SliceRegion is a Region backed by an ordinary Go byte slice.
type SliceRegion struct {
	data   []byte
	limit  int
	closed bool
}

// NewSlice returns an empty SliceRegion that can grow to limit bytes.
func NewSlice(limit int) *SliceRegion {
	return &SliceRegion{limit: limit}
}

// FromBytes wraps an existing image. The region takes ownership of b and can
// keep growing up to limit; a limit below len(b) is raised to len(b).
func FromBytes(b []byte, limit int) *SliceRegion {
	if limit < len(b) {
		limit = len(b)
	}
	return &SliceRegion{data: b, limit: limit}
}

// Grow implements Region.
func (r *SliceRegion) Grow(n int) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrBadGrow
	}
	end, ok := buf.AddOverflowSafe(len(r.data), n)
	if !ok || end > r.limit {
		return 0, ErrExhausted
	}
	off := len(r.data)
	if end <= cap(r.data) {
		r.data = r.data[:end]
		clear(r.data[off:end])
		return off, nil
	}
	newCap := max(end, 2*cap(r.data))
	newCap = min(newCap, r.limit)
	grown := make([]byte, end, newCap)
	copy(grown, r.data)
	r.data = grown
	return off, nil
}

// Bytes implements Region.
func (r *SliceRegion) Bytes() []byte { return r.data }

// Len implements Region.
func (r *SliceRegion) Len() int { return len(r.data) }

// Cap implements Region.
func (r *SliceRegion) Cap() int { return r.limit }

// Close implements Region.
func (r *SliceRegion) Close() error {
	r.closed = true
	r.data = nil
	return nil
}
