// Package buf contains overflow-safe arithmetic and bounds-checked slicing
// used when translating sizes and offsets inside the heap image.
package buf

import "math"

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// SumOverflowSafe adds every term, failing on the first overflow.
// Used for header + payload + footer totals.
func SumOverflowSafe(terms ...int) (int, bool) {
	total := 0
	for _, t := range terms {
		var ok bool
		if total, ok = AddOverflowSafe(total, t); !ok {
			return 0, false
		}
	}
	return total, true
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
