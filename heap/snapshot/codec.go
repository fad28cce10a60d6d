package snapshot

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how the heap image is compressed.
type Codec uint8

const (
	// CodecNone stores the image as is.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast).
	CodecLZ4 Codec = 1
	// CodecZstd uses zstd (better ratio).
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec parses a codec name as printed by Codec.String.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd", "zst":
		return CodecZstd, nil
	default:
		return CodecNone, fmt.Errorf("snapshot: unknown codec %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
}

// compress returns the encoded body and the codec actually used. Images that
// do not shrink are stored with CodecNone.
func compress(data []byte, c Codec) ([]byte, Codec, error) {
	if len(data) == 0 {
		return data, CodecNone, nil
	}
	var out []byte
	switch c {
	case CodecNone:
		return data, CodecNone, nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, CodecNone, fmt.Errorf("snapshot: lz4: %w", err)
		}
		out = dst[:n]
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, CodecNone, fmt.Errorf("snapshot: zstd: %w", err)
		}
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, CodecNone, fmt.Errorf("snapshot: unknown codec %d", uint8(c))
	}
	if len(out) == 0 || len(out) >= len(data) {
		return data, CodecNone, nil
	}
	return out, c, nil
}

// maxExpansion bounds what n compressed bytes can decode to at ratio per
// input byte, plus one block of slack.
func maxExpansion(n, ratio, slack int) int {
	if n > (math.MaxInt-slack)/ratio {
		return math.MaxInt
	}
	return n*ratio + slack
}

// An lz4 match length byte adds at most 255 output bytes. A zstd RLE block
// turns 4 input bytes into at most 128 KiB.
func lz4MaxExpansion(n int) int  { return maxExpansion(n, 255, 16) }
func zstdMaxExpansion(n int) int { return maxExpansion(n, 32<<10, 128<<10) }

// decompress expands body to exactly rawSize bytes. rawSize comes from the
// file and is checked against the body before anything is allocated.
func decompress(body []byte, c Codec, rawSize int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(body) != rawSize {
			return nil, fmt.Errorf("%w: body holds %d bytes, want %d", ErrFormat, len(body), rawSize)
		}
		return body, nil
	case CodecLZ4:
		if rawSize > lz4MaxExpansion(len(body)) {
			return nil, fmt.Errorf("%w: lz4 body of %d bytes cannot expand to %d", ErrFormat, len(body), rawSize)
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrFormat, err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, want %d", ErrFormat, n, rawSize)
		}
		return out, nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("snapshot: zstd: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		if rawSize > zstdMaxExpansion(len(body)) {
			return nil, fmt.Errorf("%w: zstd body of %d bytes cannot expand to %d", ErrFormat, len(body), rawSize)
		}
		var h zstd.Header
		if err := h.Decode(body); err != nil {
			return nil, fmt.Errorf("%w: zstd frame: %w", ErrFormat, err)
		}
		if h.HasFCS && h.FrameContentSize != uint64(rawSize) {
			return nil, fmt.Errorf("%w: zstd frame holds %d bytes, want %d", ErrFormat, h.FrameContentSize, rawSize)
		}
		// The decoder is capped at cap(dst), so trailing frames cannot grow it.
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrFormat, err)
		}
		if len(out) != rawSize {
			return nil, fmt.Errorf("%w: zstd produced %d bytes, want %d", ErrFormat, len(out), rawSize)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrFormat, uint8(c))
	}
}
