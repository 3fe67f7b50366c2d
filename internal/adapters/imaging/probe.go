package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/okian/badgeboard/internal/domain/model"
)

// MaxSourceDimension bounds the width and height of an encoded image before
// any pixel is decoded.
const MaxSourceDimension = 4096

// Probe reads only the image header and returns its size and format name.
// Images wider or taller than MaxSourceDimension are rejected.
func Probe(src []byte) (model.Size, string, error) {
	return readHeader(src, MaxSourceDimension)
}

func readHeader(src []byte, limit int) (model.Size, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return model.Size{}, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return model.Size{}, format, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}
	size := model.Size{Width: cfg.Width, Height: cfg.Height}
	if cfg.Width > limit || cfg.Height > limit {
		return size, format, fmt.Errorf("%w: %s source %s exceeds %d", ErrDecode, format, size, limit)
	}
	return size, format, nil
}
