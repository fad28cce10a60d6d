package alloc

import "fmt"

// tracker remembers where the chunk chain starts and where the region ends.
type tracker struct {
	first chunk // first chunk ever grown, noChunk until then
	guard int   // offset just past the last grown byte
}

// grow extends the region by n bytes and returns the offset of the new range.
func (a *Allocator) grow(n int) (int, error) {
	off, err := a.region.Grow(n)
	if err != nil {
		return 0, err
	}
	if off != a.track.guard {
		return 0, fmt.Errorf("%w: region grew at %#x, expected %#x", ErrCorrupt, off, a.track.guard)
	}
	a.img = image(a.region.Bytes())
	a.track.guard = off + n
	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(n)
	a.log.Debug("grow", "off", off, "bytes", n, "guard", a.track.guard)
	return off, nil
}

// hasPrev reports whether c has a physical predecessor chunk.
func (a *Allocator) hasPrev(c chunk) bool { return c != a.track.first }

// hasNext reports whether c has a physical successor chunk.
func (a *Allocator) hasNext(c chunk) bool { return a.img.end(c) != a.track.guard }
