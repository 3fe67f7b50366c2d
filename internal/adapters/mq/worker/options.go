package worker

import (
	"time"

	"github.com/okian/badgeboard/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithJobTimeout bounds a single Handle call. Zero disables the bound.
func WithJobTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d >= 0 {
			w.jobTimeout = d
		}
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*poolConfig)

type poolConfig struct {
	logger     logger.Logger
	jobTimeout time.Duration
}

// WithPoolLogger sets the logger shared by the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPoolJobTimeout sets WithJobTimeout on every worker.
func WithPoolJobTimeout(d time.Duration) PoolOption {
	return func(c *poolConfig) {
		c.jobTimeout = d
	}
}
