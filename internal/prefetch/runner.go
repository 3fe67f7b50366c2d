// Package prefetch warms the asset cache for a list of badges and users.
package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/badgeboard/internal/adapters/assetcache"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultTimeout      = 30 * time.Second
)

// ErrIncomplete is returned when at least one asset did not become ready.
var ErrIncomplete = errors.New("prefetch incomplete")

// Loader is the cache lookup the runner polls.
type Loader interface {
	FetchOrLoad(ctx context.Context, kind model.AssetKind, identifier string, size model.Size) (assetcache.Result, error)
}

// Run polls every target until it is ready, fails or times out.
func Run(ctx context.Context, loader Loader, config *Config) (*Stats, error) {
	targets := config.Targets()
	stats := &Stats{Requested: len(targets), StartTime: time.Now()}

	poll := config.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	log := logger.GetOrNop().Named("prefetch")
	log.Info(ctx, "starting prefetch",
		logger.Int("targets", len(targets)),
		logger.Int("workers", workers),
		logger.String("size", config.Size.String()),
		logger.Duration("timeout", timeout))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range targets {
		g.Go(func() error {
			err := warm(gctx, loader, t, config.Size, poll, timeout)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stats.Ready++
				if config.Verbose {
					log.Info(gctx, "asset ready", logger.String("asset", t.String()))
				}
			case errors.Is(err, context.DeadlineExceeded):
				stats.TimedOut++
				log.Warn(gctx, "asset timed out", logger.String("asset", t.String()))
			default:
				stats.Failed++
				log.Warn(gctx, "asset failed", logger.String("asset", t.String()), logger.Error(err))
			}
			// One bad asset must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Ready != stats.Requested {
		return stats, fmt.Errorf("%w: %d of %d ready", ErrIncomplete, stats.Ready, stats.Requested)
	}
	return stats, nil
}

func warm(ctx context.Context, loader Loader, t Target, size model.Size, poll, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		res, err := loader.FetchOrLoad(ctx, t.Kind, t.Identifier, size)
		if err != nil {
			return err
		}
		if res.Status == assetcache.StatusReady {
			res.Bitmap.Release()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "prefetch finished",
		logger.Int("requested", stats.Requested),
		logger.Int("ready", stats.Ready),
		logger.Int("timedOut", stats.TimedOut),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
}
