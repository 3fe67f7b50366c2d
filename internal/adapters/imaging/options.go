package imaging

import "github.com/okian/badgeboard/pkg/logger"

const defaultMaxDimension = 4096

// Option applies a configuration option to the Materializer.
type Option func(*Materializer)

// WithAllocator sets the bitmap allocator.
func WithAllocator(a Allocator) Option {
	return func(m *Materializer) {
		if a != nil {
			m.alloc = a
		}
	}
}

// WithMaxDimension bounds the target width and height.
func WithMaxDimension(px int) Option {
	return func(m *Materializer) {
		if px > 0 {
			m.maxDimension = px
		}
	}
}

// WithMaxSourceDimension bounds the width and height of the encoded source.
// Larger images are refused from their header, before decoding.
func WithMaxSourceDimension(px int) Option {
	return func(m *Materializer) {
		if px > 0 {
			m.maxSource = px
		}
	}
}

// WithLogger sets the materializer logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Materializer) {
		m.log = l
	}
}
