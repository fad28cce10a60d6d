package alloc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/internal/buf"
	"github.com/joshuapare/tralloc/internal/format"
)

// Allocator serves Allocate and Release from a single grow-only region.
type Allocator struct {
	region heap.Region
	img    image // region bytes, refreshed after every growth

	tree  freeTree
	track tracker
	live  *liveSet

	log   *slog.Logger
	stats Stats
}

// New creates an allocator over an empty region.
//
// Parameters:
//   - r: The region to allocate from. It must be empty; use Restore for an
//     existing image.
//   - opts: Allocator options (use nil for DefaultOptions)
func New(r heap.Region, opts *Options) (*Allocator, error) {
	if r.Len() != 0 {
		return nil, ErrRegionInUse
	}
	a := newAllocator(r, opts)
	a.tree.root = noChunk
	a.track.first = noChunk
	return a, nil
}

func newAllocator(r heap.Region, opts *Options) *Allocator {
	if opts == nil {
		opts = &DefaultOptions
	}
	a := &Allocator{
		region: r,
		img:    image(r.Bytes()),
		log:    opts.Logger,
	}
	if a.log == nil {
		a.log = slog.New(slog.DiscardHandler)
	}
	if opts.TrackLive {
		a.live = newLiveSet()
	}
	return a
}

// Allocate returns a payload of at least size bytes.
// The returned slice covers the whole chunk payload, which may be larger
// than size. On a SliceRegion it is only valid until the next Allocate.
func (a *Allocator) Allocate(size int) (Ptr, []byte, error) {
	target, err := requestSize(size)
	if err != nil {
		a.stats.FailedCalls++
		return NilPtr, nil, err
	}
	if err := a.ensureRoot(); err != nil {
		a.stats.FailedCalls++
		return NilPtr, nil, err
	}

	c := a.takeFit(target)
	if c == noChunk {
		if c, err = a.growChunk(target); err != nil {
			a.stats.FailedCalls++
			return NilPtr, nil, err
		}
	} else {
		a.stats.ReuseHits++
		if a.img.size(c) >= target+splitOverhead {
			a.split(c, target)
		}
	}

	m := a.img
	m.setInUse(c, true)
	p := Ptr(nodeOf(c))
	a.live.add(p)
	a.stats.AllocCalls++

	end := m.footerOf(c)
	return p, m[nodeOf(c):end:end], nil
}

// Release returns a payload obtained from Allocate to the free tree,
// merging it with free physical neighbours.
func (a *Allocator) Release(p Ptr) error {
	c, err := a.lookup(p)
	if err != nil {
		a.stats.FailedCalls++
		return err
	}
	a.live.remove(p)
	a.stats.FreeCalls++

	m := a.img
	if a.hasPrev(c) {
		if prev := m.prev(c); !m.inUse(prev) {
			a.unlink(prev)
			m.setSize(prev, m.size(prev)+footerPad+headerPad+m.size(c))
			m.syncFooter(prev)
			m.clearTag(c)
			a.stats.CoalesceBackward++
			a.log.Debug("coalesce backward", "chunk", int(prev), "size", m.size(prev))
			c = prev
		}
	}
	if a.hasNext(c) {
		if next := m.next(c); !m.inUse(next) {
			a.unlink(next)
			m.setSize(c, m.size(c)+footerPad+headerPad+m.size(next))
			m.syncFooter(c)
			m.clearTag(next)
			a.stats.CoalesceForward++
			a.log.Debug("coalesce forward", "chunk", int(c), "size", m.size(c))
		}
	}
	a.insert(c)
	return nil
}

// Payload returns the payload slice of a live allocation.
func (a *Allocator) Payload(p Ptr) ([]byte, error) {
	c, err := a.lookup(p)
	if err != nil {
		return nil, err
	}
	end := a.img.footerOf(c)
	return a.img[nodeOf(c):end:end], nil
}

// SizeOf returns the usable payload size of a live allocation.
func (a *Allocator) SizeOf(p Ptr) (int, error) {
	c, err := a.lookup(p)
	if err != nil {
		return 0, err
	}
	return a.img.size(c), nil
}

// requestSize rounds a request to a word and raises it to a node.
func requestSize(size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrSizeOverflow, size)
	}
	if _, ok := buf.AddOverflowSafe(size, format.WordMask); !ok {
		return 0, fmt.Errorf("%w: %d", ErrSizeOverflow, size)
	}
	rounded := max(format.AlignWord(size), nodePad)
	if _, ok := buf.SumOverflowSafe(headerPad, rounded, footerPad); !ok {
		return 0, fmt.Errorf("%w: %d", ErrSizeOverflow, size)
	}
	return rounded, nil
}

// ensureRoot creates the sentinel on first use.
func (a *Allocator) ensureRoot() error {
	if a.tree.root != noChunk {
		return nil
	}
	off, err := a.grow(format.SentinelSize)
	if err != nil {
		return exhausted(err)
	}
	root := chunk(off)
	m := a.img
	m.setSize(root, 0)
	m.setInUse(root, false)
	m.setParent(root, noChunk)
	m.setLeft(root, noChunk)
	m.setRight(root, noChunk)
	a.tree.root = root
	return nil
}

// growChunk extends the region by exactly one chunk of the given payload size.
func (a *Allocator) growChunk(size int) (chunk, error) {
	off, err := a.grow(chunkTotal(size))
	if err != nil {
		return noChunk, exhausted(err)
	}
	c := chunk(off)
	if a.track.first == noChunk {
		a.track.first = c
	}
	m := a.img
	m.setSize(c, size)
	m.syncFooter(c)
	return c, nil
}

// split carves size bytes off the front of c and files the rest as a free chunk.
func (a *Allocator) split(c chunk, size int) {
	m := a.img
	rest := chunk(int(c) + chunkTotal(size))
	m.setSize(rest, m.size(c)-size-footerPad-headerPad)
	m.setInUse(rest, false)
	m.syncFooter(rest)
	a.insert(rest)

	m.setSize(c, size)
	m.syncFooter(c)
	a.stats.SplitCount++
	a.log.Debug("split", "chunk", int(c), "size", size, "rest", int(rest), "restSize", m.size(rest))
}

// lookup validates p and returns its chunk. It never trusts the bytes at p
// beyond bounds-checked reads.
func (a *Allocator) lookup(p Ptr) (chunk, error) {
	if a.track.first == noChunk || p > Ptr(a.track.guard) {
		return noChunk, fmt.Errorf("%w: %#x outside heap", ErrBadPointer, p)
	}
	off := int(p)
	if off < int(a.track.first)+headerPad || !format.IsWordAligned(off) {
		return noChunk, fmt.Errorf("%w: %#x not a payload address", ErrBadPointer, p)
	}
	c := headerOfPayload(off)
	m := a.img
	if !format.TagValid(m.tag(c)) {
		return noChunk, fmt.Errorf("%w: %#x has no chunk header", ErrBadPointer, p)
	}
	size := m.size(c)
	if size < nodePad || size > a.track.guard-off-footerPad {
		return noChunk, fmt.Errorf("%w: %#x has implausible size %d", ErrBadPointer, p, size)
	}
	if !m.inUse(c) {
		return noChunk, fmt.Errorf("%w: %#x", ErrDoubleFree, p)
	}
	if !a.live.contains(p) {
		return noChunk, fmt.Errorf("%w: %#x is not a live allocation", ErrBadPointer, p)
	}
	return c, nil
}

func exhausted(err error) error {
	if errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHeapExhausted, err)
}
