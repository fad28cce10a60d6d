//go:build !unix

package heap

// NewMapped falls back to a SliceRegion where anonymous mappings with
// mprotect are unavailable.
func NewMapped(capacity int) (Region, error) {
	return NewSlice(capacity), nil
}
