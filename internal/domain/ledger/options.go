package ledger

import "github.com/okian/badgeboard/pkg/logger"

// Option configures the in-memory ledger.
type Option func(*inMemoryLedger)

// WithLogger sets the logger used for dedupe diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(d *inMemoryLedger) {
		d.log = l
	}
}
