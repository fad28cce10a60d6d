// Package format defines the in-band chunk layout used by the allocator:
// word size, header/footer/node padding, and the tag word encoding. It holds
// no state; every value here is a compile-time constant.
package format

const (
	// WordSize is the allocation granule. Every chunk field is one word and
	// every payload size is a multiple of WordSize.
	WordSize = 8

	// WordMask is WordSize-1, used by the rounding helpers.
	WordMask = WordSize - 1
)

// Raw field counts before padding.
//
// Header layout:
//
//	0x00  size   (payload bytes)
//	0x08  tag    (bit 0 = in use, bits 32..63 = ChunkMagic)
//
// Node layout (overlaps the payload of a free chunk):
//
//	0x00  parent
//	0x08  left
//	0x10  right
//
// Footer layout:
//
//	0x00  size   (copy of header size)
const (
	headerRaw = 2 * WordSize
	nodeRaw   = 3 * WordSize
	footerRaw = 1 * WordSize
)

const (
	// HeaderSize is the padded header length.
	HeaderSize = (headerRaw + WordMask) &^ WordMask

	// NodeSize is the padded free-tree node length. It is also the smallest
	// payload a chunk may carry, since a released chunk must host a node.
	NodeSize = (nodeRaw + WordMask) &^ WordMask

	// FooterSize is the padded footer length.
	FooterSize = (footerRaw + WordMask) &^ WordMask

	// SplitOverhead is the slack a free chunk needs beyond a request before
	// the remainder can stand as a chunk of its own.
	SplitOverhead = HeaderSize + FooterSize + NodeSize

	// SentinelSize is the footprint of the zero-size tree root: header and
	// node only, no footer.
	SentinelSize = HeaderSize + NodeSize
)

// Field offsets relative to the chunk header.
const (
	SizeOffset = 0x00
	TagOffset  = 0x08
)

// Node slot offsets relative to the start of the payload.
const (
	ParentOffset = 0x00
	LeftOffset   = 0x08
	RightOffset  = 0x10
)

const (
	// ChunkMagic occupies the upper half of every tag word ("tral").
	ChunkMagic uint64 = 0x7472616c

	// TagInUse is the in-use bit of the tag word.
	TagInUse uint64 = 1

	// NilLink marks an absent parent/left/right link.
	NilLink uint64 = ^uint64(0)
)

// Tag builds a tag word.
func Tag(inUse bool) uint64 {
	t := ChunkMagic << 32
	if inUse {
		t |= TagInUse
	}
	return t
}

// TagValid reports whether t carries ChunkMagic.
func TagValid(t uint64) bool { return t>>32 == ChunkMagic }
