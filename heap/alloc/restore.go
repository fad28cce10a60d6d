package alloc

import (
	"fmt"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/internal/format"
)

// State is the engine bookkeeping that lives outside the region. Together
// with the region bytes it fully describes an allocator.
type State struct {
	WordSize    int
	HeaderPad   int
	FooterPad   int
	NodePad     int
	Root        int // -1 before the first allocation
	First       int // -1 before the first chunk
	Guard       int
	EqualsLeft  bool
	Predecessor bool
}

// State returns the current bookkeeping.
func (a *Allocator) State() State {
	return State{
		WordSize:    wordSize,
		HeaderPad:   headerPad,
		FooterPad:   footerPad,
		NodePad:     nodePad,
		Root:        int(a.tree.root),
		First:       int(a.track.first),
		Guard:       a.track.guard,
		EqualsLeft:  a.tree.equalsLeft,
		Predecessor: a.tree.predecessor,
	}
}

// Image returns the region bytes backing the heap. The slice aliases live
// memory; copy it before the next Allocate or Release if it must not change.
func (a *Allocator) Image() []byte { return a.img }

// Restore rebuilds an allocator from a region holding a previously captured
// image and its State. The heap is checked before it is returned.
func Restore(r heap.Region, st State, opts *Options) (*Allocator, error) {
	if st.WordSize != wordSize || st.HeaderPad != headerPad || st.FooterPad != footerPad || st.NodePad != nodePad {
		return nil, fmt.Errorf("%w: layout %d/%d/%d/%d does not match %d/%d/%d/%d", ErrCorrupt,
			st.WordSize, st.HeaderPad, st.FooterPad, st.NodePad,
			wordSize, headerPad, footerPad, nodePad)
	}
	if st.Guard != r.Len() {
		return nil, fmt.Errorf("%w: guard %#x but image holds %#x bytes", ErrCorrupt, st.Guard, r.Len())
	}
	if st.Root < -1 || st.First < -1 || (st.Root == -1 && st.Guard != 0) {
		return nil, fmt.Errorf("%w: bad root %d or first chunk %d", ErrCorrupt, st.Root, st.First)
	}
	if err := checkFirstChunk(st); err != nil {
		return nil, err
	}

	a := newAllocator(r, opts)
	a.tree = freeTree{
		root:        chunk(st.Root),
		equalsLeft:  st.EqualsLeft,
		predecessor: st.Predecessor,
	}
	a.track = tracker{first: chunk(st.First), guard: st.Guard}
	if a.tree.root != noChunk && !a.nodeInBounds(a.tree.root) {
		return nil, fmt.Errorf("%w: root %#x outside image", ErrCorrupt, st.Root)
	}

	if a.live != nil {
		err := a.Walk(func(ci ChunkInfo) bool {
			if ci.InUse {
				a.live.add(ci.Payload())
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	if err := a.Check(); err != nil {
		return nil, err
	}
	return a, nil
}

// checkFirstChunk requires the chunk walk to start right after the sentinel.
// First is -1 only while nothing follows the sentinel.
func checkFirstChunk(st State) error {
	want := -1
	if st.Root != -1 && st.Guard != st.Root+format.SentinelSize {
		want = st.Root + format.SentinelSize
	}
	if st.First != want {
		return fmt.Errorf("%w: first chunk %d, want %d", ErrCorrupt, st.First, want)
	}
	return nil
}
