package alloc

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// liveSet records the payload word index of every in-use chunk.
// A nil liveSet accepts everything.
type liveSet struct {
	rb *roaring64.Bitmap
}

func newLiveSet() *liveSet {
	return &liveSet{rb: roaring64.New()}
}

func (s *liveSet) add(p Ptr) {
	if s != nil {
		s.rb.Add(p / wordSize)
	}
}

func (s *liveSet) remove(p Ptr) {
	if s != nil {
		s.rb.Remove(p / wordSize)
	}
}

func (s *liveSet) contains(p Ptr) bool {
	if s == nil {
		return true
	}
	return s.rb.Contains(p / wordSize)
}

func (s *liveSet) count() uint64 {
	if s == nil {
		return 0
	}
	return s.rb.GetCardinality()
}
