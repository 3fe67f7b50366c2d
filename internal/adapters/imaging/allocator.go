package imaging

import (
	"fmt"
	"sync/atomic"
)

// Allocator hands out bitmap storage. Implementations wrap the platform's
// bitmap type; the returned Pix must be exactly stride*height bytes.
type Allocator interface {
	Allocate(width, height, stride int) (*Bitmap, error)
}

// HeapAllocator allocates bitmaps on the Go heap and tracks live bytes.
type HeapAllocator struct {
	maxLive int64
	live    atomic.Int64
}

// NewHeapAllocator returns an allocator. maxLive caps the bytes held by
// unreleased bitmaps; zero or negative means unbounded.
func NewHeapAllocator(maxLive int64) *HeapAllocator {
	return &HeapAllocator{maxLive: maxLive}
}

// Allocate reserves stride*height bytes.
func (a *HeapAllocator) Allocate(width, height, stride int) (*Bitmap, error) {
	n := int64(stride) * int64(height)
	if width <= 0 || height <= 0 || n <= 0 {
		return nil, fmt.Errorf("invalid bitmap %dx%d stride %d", width, height, stride)
	}
	if after := a.live.Add(n); a.maxLive > 0 && after > a.maxLive {
		a.live.Add(-n)
		return nil, fmt.Errorf("bitmap of %d bytes exceeds budget of %d", n, a.maxLive)
	}
	return NewBitmap(width, height, stride, make([]byte, n), func() { a.live.Add(-n) }), nil
}

// LiveBytes returns the bytes held by unreleased bitmaps.
func (a *HeapAllocator) LiveBytes() int64 {
	return a.live.Load()
}
