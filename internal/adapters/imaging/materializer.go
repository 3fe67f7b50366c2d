// Package imaging turns encoded image bytes into display-ready bitmaps.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"time"

	_ "golang.org/x/image/bmp" // register decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

// Materializer decodes, scales and converts images. It keeps no per-call
// state and is safe for concurrent use.
type Materializer struct {
	alloc        Allocator
	maxDimension int
	maxSource    int
	log          logger.Logger
}

// NewMaterializer returns a materializer backed by an unbounded heap
// allocator unless WithAllocator is given.
func NewMaterializer(opts ...Option) *Materializer {
	m := &Materializer{
		alloc:        NewHeapAllocator(0),
		maxDimension: defaultMaxDimension,
		maxSource:    MaxSourceDimension,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.GetOrNop().Named("imaging")
	}
	return m
}

// Materialize produces a size.Width x size.Height BGRX bitmap from src.
// The caller owns the returned bitmap and must Release it.
func (m *Materializer) Materialize(src []byte, size model.Size) (*Bitmap, error) {
	start := time.Now()
	bmp, stage, err := m.materialize(src, size)
	if err != nil {
		metrics.RecordMaterializeFailure(stage)
		m.log.Debug(context.Background(), "materialize failed",
			logger.String("stage", stage), logger.String("size", size.String()), logger.Error(err))
		return nil, err
	}
	metrics.RecordMaterializeLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	return bmp, nil
}

func (m *Materializer) materialize(src []byte, size model.Size) (*Bitmap, string, error) {
	if _, _, err := readHeader(src, m.maxSource); err != nil {
		return nil, "decode", err
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, "decode", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	scaled, err := m.scale(img, size)
	if err != nil {
		return nil, "scale", err
	}

	pix, stride, err := toBGRX(scaled)
	if err != nil {
		return nil, "convert", err
	}

	bmp, err := m.alloc.Allocate(size.Width, size.Height, stride)
	if err != nil {
		return nil, "allocate", fmt.Errorf("%w: %w", ErrAllocate, err)
	}
	if bmp.Stride != stride || len(bmp.Pix) != len(pix) {
		bmp.Release()
		return nil, "convert", fmt.Errorf("%w: allocator returned %d bytes with stride %d, want %d with stride %d",
			ErrConversion, len(bmp.Pix), bmp.Stride, len(pix), stride)
	}
	copy(bmp.Pix, pix)
	return bmp, "", nil
}

// scale resamples img to exactly the target box. Aspect ratio is not kept.
func (m *Materializer) scale(img image.Image, size model.Size) (*image.RGBA, error) {
	if size.Empty() {
		return nil, fmt.Errorf("%w: target size %s", ErrScale, size)
	}
	if size.Width > m.maxDimension || size.Height > m.maxDimension {
		return nil, fmt.Errorf("%w: target size %s exceeds %d", ErrScale, size, m.maxDimension)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source image", ErrScale)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// toBGRX drops alpha and reorders channels into rows of 4*width bytes.
func toBGRX(img *image.RGBA) ([]byte, int, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w > math.MaxInt32/BytesPerPixel {
		return nil, 0, fmt.Errorf("%w: stride overflow for width %d", ErrConversion, w)
	}
	stride := w * BytesPerPixel
	if h > 0 && stride > math.MaxInt32/h {
		return nil, 0, fmt.Errorf("%w: buffer overflow for %dx%d", ErrConversion, w, h)
	}
	out := make([]byte, stride*h)
	for y := range h {
		srcRow := img.Pix[y*img.Stride : y*img.Stride+stride]
		dstRow := out[y*stride : (y+1)*stride]
		for x := 0; x < stride; x += BytesPerPixel {
			dstRow[x] = srcRow[x+2]
			dstRow[x+1] = srcRow[x+1]
			dstRow[x+2] = srcRow[x]
			dstRow[x+3] = 0xFF
		}
	}
	return out, stride, nil
}
