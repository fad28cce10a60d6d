// Package snapshot captures an allocator's heap image together with its
// bookkeeping so it can be stored, inspected and restored later.
//
// File layout:
//
//	magic    8 bytes  "TRSNAP\x00\x01"
//	metaLen  4 bytes  little-endian
//	meta     metaLen bytes of CBOR (Meta)
//	body     the heap image, compressed per Meta.Codec
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/joshuapare/tralloc/heap"
	"github.com/joshuapare/tralloc/heap/alloc"
	"github.com/joshuapare/tralloc/internal/format"
	"github.com/joshuapare/tralloc/internal/mmfile"
)

// Version is the current Meta version.
const Version = 1

const (
	magic      = "TRSNAP\x00\x01"
	prefixSize = len(magic) + 4
)

var (
	// ErrFormat indicates a malformed or truncated snapshot.
	ErrFormat = errors.New("snapshot: malformed")

	// ErrVersion indicates a snapshot written by an unsupported version.
	ErrVersion = errors.New("snapshot: unsupported version")
)

// Meta describes a snapshot body.
type Meta struct {
	_       struct{} `cbor:",toarray"`
	Version uint32
	Codec   Codec
	RawSize uint64
	Created int64 // unix seconds
	Label   string
	State   alloc.State
}

// CreatedAt returns Created as a time.
func (m Meta) CreatedAt() time.Time { return time.Unix(m.Created, 0).UTC() }

// Snapshot is a decoded heap image and its metadata.
type Snapshot struct {
	Meta  Meta
	Image []byte
}

// Capture copies the allocator's current image and state.
func Capture(a *alloc.Allocator, label string) *Snapshot {
	img := bytes.Clone(a.Image())
	if img == nil {
		img = []byte{}
	}
	return &Snapshot{
		Meta: Meta{
			Version: Version,
			RawSize: uint64(len(img)),
			Created: time.Now().Unix(),
			Label:   label,
			State:   a.State(),
		},
		Image: img,
	}
}

// Encode serializes the snapshot with the given codec. The codec recorded in
// the output may be CodecNone when compression does not help.
func (s *Snapshot) Encode(c Codec) ([]byte, error) {
	body, used, err := compress(s.Image, c)
	if err != nil {
		return nil, err
	}
	meta := s.Meta
	meta.Version = Version
	meta.Codec = used
	meta.RawSize = uint64(len(s.Image))
	mb, err := cbor.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode meta: %w", err)
	}

	out := make([]byte, prefixSize, prefixSize+len(mb)+len(body))
	copy(out, magic)
	format.PutU32(out, len(magic), uint32(len(mb)))
	out = append(out, mb...)
	out = append(out, body...)
	return out, nil
}

// WriteTo writes the snapshot encoded with codec to w.
func (s *Snapshot) WriteTo(w io.Writer, c Codec) (int64, error) {
	b, err := s.Encode(c)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// Save writes the snapshot to path atomically.
func (s *Snapshot) Save(path string, c Codec) error {
	b, err := s.Encode(c)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Decode parses an encoded snapshot. The returned image never aliases b.
func Decode(b []byte) (*Snapshot, error) {
	meta, body, err := decodeMeta(b)
	if err != nil {
		return nil, err
	}
	if meta.RawSize > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("%w: raw size %d", ErrFormat, meta.RawSize)
	}
	img, err := decompress(body, meta.Codec, int(meta.RawSize))
	if err != nil {
		return nil, err
	}
	if meta.Codec == CodecNone {
		img = bytes.Clone(img)
		if img == nil {
			img = []byte{}
		}
	}
	return &Snapshot{Meta: meta, Image: img}, nil
}

// DecodeMeta parses only the metadata of an encoded snapshot.
func DecodeMeta(b []byte) (Meta, error) {
	meta, _, err := decodeMeta(b)
	return meta, err
}

func decodeMeta(b []byte) (Meta, []byte, error) {
	var meta Meta
	if len(b) < prefixSize {
		return meta, nil, fmt.Errorf("%w: %w", ErrFormat, format.ErrTruncated)
	}
	if string(b[:len(magic)]) != magic {
		return meta, nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	n := int(format.ReadU32(b, len(magic)))
	if n > len(b)-prefixSize {
		return meta, nil, fmt.Errorf("%w: meta length %d: %w", ErrFormat, n, format.ErrTruncated)
	}
	if err := cbor.Unmarshal(b[prefixSize:prefixSize+n], &meta); err != nil {
		return meta, nil, fmt.Errorf("%w: meta: %w", ErrFormat, err)
	}
	if meta.Version != Version {
		return meta, nil, fmt.Errorf("%w: %d", ErrVersion, meta.Version)
	}
	return meta, b[prefixSize+n:], nil
}

// Open reads a snapshot file through a read-only mapping.
func Open(path string) (*Snapshot, error) {
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Restore rebuilds a working allocator over a private copy of the image. The
// restored heap may keep growing up to capacity bytes (zero keeps it at its
// captured size).
func (s *Snapshot) Restore(capacity int, opts *alloc.Options) (*alloc.Allocator, error) {
	r := heap.FromBytes(bytes.Clone(s.Image), capacity)
	return alloc.Restore(r, s.Meta.State, opts)
}

// RestoreInto copies the image into the empty region r and rebuilds an
// allocator over it. The caller keeps ownership of r.
func (s *Snapshot) RestoreInto(r heap.Region, opts *alloc.Options) (*alloc.Allocator, error) {
	if r.Len() != 0 {
		return nil, fmt.Errorf("snapshot: restore into region holding %d bytes", r.Len())
	}
	if _, err := r.Grow(len(s.Image)); err != nil {
		return nil, fmt.Errorf("snapshot: image of %d bytes: %w", len(s.Image), err)
	}
	copy(r.Bytes(), s.Image)
	return alloc.Restore(r, s.Meta.State, opts)
}
