// Package queue holds background fetch jobs between the interactive thread
// and the fetch workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j model.Job) bool
	// Dequeue returns a channel of jobs, closed when the queue is closed and
	// drained or when ctx is done.
	Dequeue(ctx context.Context) <-chan model.Job
	Len(ctx context.Context) int
	// Close stops accepting jobs. Jobs already queued are still delivered.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan model.Job
	capacity int
	onDrop   func(context.Context, model.Job)

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan model.Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue never blocks.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j model.Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return false
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return false
	default:
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	default:
		metrics.RecordQueueRejected("queue_full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue forwards jobs to the returned channel until the queue is closed
// and drained or ctx is done. A job taken off the queue that cannot be
// delivered because ctx ended is passed to the drop handler.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Job {
	out := make(chan model.Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case j, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case out <- j:
					metrics.RecordQueueDequeue()
					metrics.RecordQueueWait(float64(time.Since(j.EnqueuedAt).Milliseconds()))
					metrics.UpdateQueueSize(len(q.jobs))
				case <-ctx.Done():
					// Nobody is reading any more; the job was taken off
					// the queue and must not vanish silently.
					q.drop(context.WithoutCancel(ctx), j)
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close is idempotent.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// Flush removes every job still buffered and passes each to the drop
// handler. It returns the number of jobs removed.
func (q *InMemoryQueue) Flush(ctx context.Context) int {
	n := 0
	for {
		select {
		case j, ok := <-q.jobs:
			if !ok {
				metrics.UpdateQueueSize(0)
				return n
			}
			q.drop(ctx, j)
			n++
		default:
			metrics.UpdateQueueSize(len(q.jobs))
			return n
		}
	}
}

func (q *InMemoryQueue) drop(ctx context.Context, j model.Job) {
	metrics.RecordQueueRejected("dropped")
	if q.onDrop != nil {
		q.onDrop(ctx, j)
	}
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
