package imaging

import "sync"

// BytesPerPixel is the size of one BGRX pixel.
const BytesPerPixel = 4

// Bitmap is a display-ready 32bpp BGRX image with top-down rows. The fourth
// byte of every pixel is unused and set to 0xFF.
type Bitmap struct {
	Width  int
	Height int
	Stride int
	Pix    []byte

	once    sync.Once
	release func()
}

// NewBitmap wraps pix as a bitmap. release, if not nil, runs once on the
// first call to Release.
func NewBitmap(width, height, stride int, pix []byte, release func()) *Bitmap {
	return &Bitmap{Width: width, Height: height, Stride: stride, Pix: pix, release: release}
}

// Release returns the bitmap to its allocator. Safe to call more than once.
func (b *Bitmap) Release() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		if b.release != nil {
			b.release()
		}
		b.Pix = nil
	})
}

// BGRX returns the pixel at (x, y) as blue, green, red.
func (b *Bitmap) BGRX(x, y int) (blue, green, red uint8) {
	i := y*b.Stride + x*BytesPerPixel
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}
