package imaging

import "errors"

// Sentinel kinds for materializer errors. Each failure wraps exactly one of
// them together with the underlying cause.
var (
	ErrDecode     = errors.New("image decode failed")
	ErrScale      = errors.New("image scale failed")
	ErrConversion = errors.New("pixel conversion failed")
	ErrAllocate   = errors.New("bitmap allocation failed")
)
