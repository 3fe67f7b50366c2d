package queue

import (
	"context"

	"github.com/okian/badgeboard/internal/domain/model"
)

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithDropHandler sets the callback for jobs that leave the queue without
// reaching a worker, so their owner can release whatever they hold.
func WithDropHandler(fn func(ctx context.Context, j model.Job)) Option {
	return func(q *InMemoryQueue) {
		q.onDrop = fn
	}
}
