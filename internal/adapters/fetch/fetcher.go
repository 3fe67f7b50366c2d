// Package fetch is the background fetch layer: it queues downloads and
// leaderboard submissions and performs them on worker goroutines.
package fetch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/okian/badgeboard/internal/adapters/mq/queue"
	"github.com/okian/badgeboard/internal/domain/ledger"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
)

const paramScore = "score"

// Fetcher turns requests into queued jobs. It never blocks.
type Fetcher struct {
	queue  queue.Queue
	ledger ledger.Ledger
	log    logger.Logger
}

// NewFetcher creates a fetcher feeding q.
func NewFetcher(q queue.Queue, l ledger.Ledger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{queue: q, ledger: l}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.GetOrNop().Named("fetch")
	}
	return f
}

// EnqueueFetch schedules a job for key. Deduplication is the caller's job.
func (f *Fetcher) EnqueueFetch(ctx context.Context, key model.RequestKey, params map[string]string) error {
	job := model.NewJob(key, params)
	if !f.queue.Enqueue(ctx, job) {
		return fmt.Errorf("%w: %s", ErrQueueRejected, key)
	}
	f.log.Debug(ctx, "job queued", logger.String("job", job.ID), logger.String("key", key.String()))
	return nil
}

// SubmitScore queues a leaderboard submission. At most one submission per
// leaderboard is outstanding.
func (f *Fetcher) SubmitScore(ctx context.Context, id model.LeaderboardID, score int) error {
	key := model.RequestKey{Kind: model.RequestSubmitLeaderboard, ID: id.String()}
	if !f.ledger.TryEnqueue(ctx, key) {
		return fmt.Errorf("%w: leaderboard %d", ErrSubmissionPending, id)
	}
	if err := f.EnqueueFetch(ctx, key, map[string]string{paramScore: strconv.Itoa(score)}); err != nil {
		f.ledger.Clear(ctx, key)
		return err
	}
	return nil
}
