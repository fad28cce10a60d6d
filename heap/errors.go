package heap

import "errors"

var (
	// ErrExhausted indicates the region cannot grow any further.
	ErrExhausted = errors.New("heap: region exhausted")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("heap: region closed")

	// ErrBadGrow indicates a negative growth request.
	ErrBadGrow = errors.New("heap: negative growth")
)
