package alloc

import "github.com/joshuapare/tralloc/internal/format"

const (
	wordSize      = format.WordSize
	headerPad     = format.HeaderSize
	footerPad     = format.FooterSize
	nodePad       = format.NodeSize
	splitOverhead = format.SplitOverhead
)

// chunk is the region offset of a chunk header.
type chunk int

// noChunk is the in-memory form of format.NilLink.
const noChunk chunk = -1

// image is a typed view of the region bytes. All translations between
// header, node and footer are fixed offsets from the chunk's own size.
type image []byte

// Header fields.

func (m image) size(c chunk) int {
	return int(format.ReadU64(m, int(c)+format.SizeOffset))
}

func (m image) setSize(c chunk, n int) {
	format.PutU64(m, int(c)+format.SizeOffset, uint64(n))
}

func (m image) tag(c chunk) uint64 {
	return format.ReadU64(m, int(c)+format.TagOffset)
}

func (m image) inUse(c chunk) bool {
	return m.tag(c)&format.TagInUse != 0
}

func (m image) setInUse(c chunk, inUse bool) {
	format.PutU64(m, int(c)+format.TagOffset, format.Tag(inUse))
}

// clearTag scrubs the header of a chunk absorbed by a merge so a stale
// pointer to it no longer looks like a chunk.
func (m image) clearTag(c chunk) {
	format.PutU64(m, int(c)+format.TagOffset, 0)
}

// Translations.

func nodeOf(c chunk) int { return int(c) + headerPad }

func headerOfPayload(p int) chunk { return chunk(p - headerPad) }

func (m image) footerOf(c chunk) int { return int(c) + headerPad + m.size(c) }

func (m image) footerSize(c chunk) int {
	return int(format.ReadU64(m, m.footerOf(c)))
}

// syncFooter copies the header size into the footer.
func (m image) syncFooter(c chunk) {
	format.PutU64(m, m.footerOf(c), uint64(m.size(c)))
}

// headerOfFooter walks back from a footer offset to its header.
func (m image) headerOfFooter(f int) chunk {
	return chunk(f - int(format.ReadU64(m, f)) - headerPad)
}

// end returns the offset just past the chunk's footer.
func (m image) end(c chunk) int { return m.footerOf(c) + footerPad }

// next returns the physical successor; callers check hasNext first.
func (m image) next(c chunk) chunk { return chunk(m.end(c)) }

// prev returns the physical predecessor; callers check hasPrev first.
func (m image) prev(c chunk) chunk { return m.headerOfFooter(int(c) - footerPad) }

// Node links. Only meaningful while the chunk is free.

func (m image) link(c chunk, slot int) chunk {
	v := format.ReadU64(m, nodeOf(c)+slot)
	if v == format.NilLink {
		return noChunk
	}
	return chunk(v)
}

func (m image) setLink(c chunk, slot int, to chunk) {
	v := format.NilLink
	if to != noChunk {
		v = uint64(to)
	}
	format.PutU64(m, nodeOf(c)+slot, v)
}

func (m image) parent(c chunk) chunk { return m.link(c, format.ParentOffset) }
func (m image) left(c chunk) chunk   { return m.link(c, format.LeftOffset) }
func (m image) right(c chunk) chunk  { return m.link(c, format.RightOffset) }

func (m image) setParent(c, to chunk) { m.setLink(c, format.ParentOffset, to) }
func (m image) setLeft(c, to chunk)   { m.setLink(c, format.LeftOffset, to) }
func (m image) setRight(c, to chunk)  { m.setLink(c, format.RightOffset, to) }

// word returns the i-th payload word, for audit dumps.
func (m image) word(c chunk, i int) uint64 {
	return format.ReadU64(m, nodeOf(c)+i*wordSize)
}

// chunkTotal is the region footprint of a chunk with the given payload size.
func chunkTotal(size int) int { return headerPad + size + footerPad }
