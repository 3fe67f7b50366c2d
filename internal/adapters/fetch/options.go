package fetch

import (
	"time"

	"github.com/okian/badgeboard/pkg/logger"
)

// FetcherOption applies a configuration option to the Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the fetcher logger.
func WithFetcherLogger(l logger.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.log = l
	}
}

// HandlerOption applies a configuration option to the Handler.
type HandlerOption func(*Handler)

// WithRetryBackoff keeps a failed download's key in flight for d before
// releasing it, so a missing asset is not requested on every frame.
func WithRetryBackoff(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.retryBackoff = d
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = l
	}
}
