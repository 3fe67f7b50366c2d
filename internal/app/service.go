// Package service wires the ledger, fetch layer, asset cache and leaderboard
// store into one client-side service.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/okian/badgeboard/internal/adapters/assetcache"
	"github.com/okian/badgeboard/internal/adapters/fetch"
	"github.com/okian/badgeboard/internal/adapters/imaging"
	"github.com/okian/badgeboard/internal/adapters/mq/queue"
	"github.com/okian/badgeboard/internal/adapters/mq/worker"
	"github.com/okian/badgeboard/internal/adapters/remote"
	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/internal/domain/ledger"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

// ErrNotStarted is returned by operations that need the fetch layer before
// Start was called.
var ErrNotStarted = errors.New("service not started")

const defaultRetryBackoff = 30 * time.Second

// Service owns every long-lived component of the client.
type Service struct {
	mu sync.RWMutex

	// Created by New, usable before Start.
	ledger       ledger.Ledger
	store        *leaderboard.Store
	allocator    *imaging.HeapAllocator
	materializer *imaging.Materializer
	triggers     map[model.LeaderboardID]*leaderboard.ManualTrigger

	// Created by Start.
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	fetcher *fetch.Fetcher
	assets  *assetcache.Cache
	remote  fetch.Remote

	// Configuration
	workerCount         int
	queueSize           int
	cacheDir            string
	mediaBaseURL        string
	apiBaseURL          string
	username            string
	token               string
	fetchTimeout        time.Duration
	retryBackoff        time.Duration
	leaderboardsEnabled bool
	presenter           leaderboard.Presenter
	display             leaderboard.Display

	started bool
	logger  logger.Logger
}

// New constructs a Service. Leaderboards may be loaded before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         runtime.NumCPU(),
		queueSize:           1024,
		cacheDir:            filepath.Join(os.TempDir(), "badgeboard"),
		mediaBaseURL:        "https://media.retroachievements.org",
		apiBaseURL:          "https://retroachievements.org",
		fetchTimeout:        15 * time.Second,
		retryBackoff:        defaultRetryBackoff,
		leaderboardsEnabled: true,
		display:             leaderboard.DisplayAll(),
		triggers:            make(map[model.LeaderboardID]*leaderboard.ManualTrigger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetOrNop()
	}

	s.ledger = ledger.NewInMemoryLedger(ledger.WithLogger(s.logger.Named("ledger")))
	s.store = leaderboard.NewStore(
		leaderboard.WithEnabled(s.leaderboardsEnabled),
		leaderboard.WithPresenter(s.presenter),
		leaderboard.WithDisplay(s.display),
		leaderboard.WithSubmitter(s),
		leaderboard.WithLogger(s.logger.Named("leaderboard")),
	)
	s.allocator = imaging.NewHeapAllocator(0)
	s.materializer = imaging.NewMaterializer(
		imaging.WithAllocator(s.allocator),
		imaging.WithLogger(s.logger.Named("imaging")),
	)
	return s
}

// Start builds the fetch layer and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting badgeboard service...")

	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if s.remote == nil {
		client, err := remote.NewClient(s.mediaBaseURL, s.apiBaseURL,
			remote.WithTimeout(s.fetchTimeout),
			remote.WithCredentials(s.username, s.token),
			remote.WithLogger(s.logger.Named("remote")),
		)
		if err != nil {
			return fmt.Errorf("remote client: %w", err)
		}
		s.remote = client
	}

	handler := fetch.NewHandler(s.cacheDir, s.remote, s.ledger, s.store,
		fetch.WithRetryBackoff(s.retryBackoff),
		fetch.WithHandlerLogger(s.logger.Named("fetch")),
	)
	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithDropHandler(handler.Abandon),
	)
	s.fetcher = fetch.NewFetcher(s.queue, s.ledger, fetch.WithFetcherLogger(s.logger.Named("fetch")))
	s.pool = worker.NewPool(s.workerCount, s.queue, handler,
		worker.WithPoolLogger(s.logger),
		worker.WithPoolJobTimeout(s.fetchTimeout),
	)
	s.assets = assetcache.New(s.cacheDir, s.ledger, s.fetcher, s.materializer,
		assetcache.WithLogger(s.logger.Named("assetcache")))

	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "badgeboard service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("cacheDir", s.cacheDir),
		logger.Bool("leaderboards", s.store.Enabled()),
	)
	return nil
}

// Stop closes the queue and lets the workers finish what is already
// queued. Jobs still queued when the drain times out, or cut off when the
// Start context ended, are abandoned: their keys are released so a later
// Start fetches them again, and abandoned submissions end their runs.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping badgeboard service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if n := s.queue.Flush(ctx); n > 0 {
		s.logger.Warn(ctx, "abandoned queued jobs", logger.Int("jobs", n))
	}

	s.started = false
	s.logger.Info(ctx, "badgeboard service stopped")
}

func (s *Service) running() (*assetcache.Cache, *fetch.Fetcher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assets, s.fetcher, s.started
}

// FetchOrLoad serves an asset from the cache or schedules its download.
func (s *Service) FetchOrLoad(ctx context.Context, kind model.AssetKind, identifier string, size model.Size) (assetcache.Result, error) {
	assets, _, ok := s.running()
	if !ok {
		return assetcache.Result{}, ErrNotStarted
	}
	return assets.FetchOrLoad(ctx, kind, identifier, size)
}

// SubmitScore hands a finished run to the fetch layer. It lets the store be
// created before the fetch layer exists.
func (s *Service) SubmitScore(ctx context.Context, id model.LeaderboardID, score int) error {
	_, fetcher, ok := s.running()
	if !ok {
		return ErrNotStarted
	}
	return fetcher.SubmitScore(ctx, id, score)
}

// LoadGame replaces the leaderboards with defs, each driven by a manual
// trigger reachable through Trigger.
func (s *Service) LoadGame(ctx context.Context, defs []model.Definition) int {
	regs := make([]leaderboard.Registration, 0, len(defs))
	triggers := make(map[model.LeaderboardID]*leaderboard.ManualTrigger, len(defs))
	for _, d := range defs {
		t := leaderboard.NewManualTrigger()
		triggers[d.ID] = t
		regs = append(regs, leaderboard.Registration{Definition: d, Trigger: t})
	}

	s.mu.Lock()
	s.triggers = triggers
	s.mu.Unlock()

	return s.store.LoadGame(ctx, regs)
}

// Trigger returns the manual trigger of a loaded leaderboard.
func (s *Service) Trigger(id model.LeaderboardID) (*leaderboard.ManualTrigger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.triggers[id]
	if !ok {
		return nil, false
	}
	if _, loaded := s.store.FindByID(id); !loaded {
		return nil, false
	}
	return t, true
}

// Test runs one frame of leaderboard evaluation.
func (s *Service) Test(ctx context.Context) { s.store.Test(ctx) }

// Reset forces every leaderboard run back to inactive.
func (s *Service) Reset() { s.store.Reset() }

// Leaderboards returns the loaded leaderboards in order.
func (s *Service) Leaderboards() []*leaderboard.Leaderboard { return s.store.List() }

// Leaderboard looks up one leaderboard.
func (s *Service) Leaderboard(id model.LeaderboardID) (*leaderboard.Leaderboard, bool) {
	return s.store.FindByID(id)
}

// Store exposes the ranking store.
func (s *Service) Store() *leaderboard.Store { return s.store }

// SetLeaderboardsEnabled flips the leaderboard feature flag at runtime.
func (s *Service) SetLeaderboardsEnabled(enabled bool) { s.store.SetEnabled(enabled) }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls := s.ledger.Stats()
	stats := map[string]interface{}{
		"started":             s.started,
		"workerCount":         s.workerCount,
		"queueSize":           s.queueSize,
		"cacheDir":            s.cacheDir,
		"leaderboardsEnabled": s.store.Enabled(),
		"leaderboards":        s.store.Count(),
		"inFlight":            ls.InFlight,
		"responseReady":       ls.ResponseReady,
		"bitmapBytes":         s.allocator.LiveBytes(),
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["activeWorkers"] = s.pool.Active()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateLedgerSizes(ls.InFlight, ls.ResponseReady)
	}
	return stats
}
