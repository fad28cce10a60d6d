package format

// AlignWord returns n rounded up to the next multiple of WordSize.
//
// Example:
//
//	AlignWord(1)  = 8
//	AlignWord(8)  = 8
//	AlignWord(9)  = 16
//	AlignWord(24) = 24
//
// n + WordMask must not overflow; callers guard with buf.AddOverflowSafe.
func AlignWord(n int) int {
	return (n + WordMask) &^ WordMask
}

// IsWordAligned reports whether n is a multiple of WordSize.
func IsWordAligned(n int) bool {
	return n&WordMask == 0
}
