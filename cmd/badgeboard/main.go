package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/badgeboard/internal/adapters/http/api"
	"github.com/okian/badgeboard/internal/adapters/http/swagger"
	app "github.com/okian/badgeboard/internal/app"
	"github.com/okian/badgeboard/internal/config"
	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "badgeboard exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.SetEnabled(cfg.MetricsEnabled)
	if err := metrics.SetRefreshInterval(cfg.MetricsRefreshInterval()); err != nil {
		return err
	}

	presenter := newLogPresenter(log)
	svc := newService(cfg, log, presenter)
	presenter.bind(svc)

	if n := svc.LoadGame(ctx, cfg.Definitions()); n > 0 {
		log.Info(ctx, "leaderboards loaded", logger.Int("count", n))
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithControl(cfg.ControlEnabled)).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runFrames(gctx, svc, cfg.FrameRate)
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx, metrics.RefreshInterval())
		return nil
	})
	g.Go(func() error {
		log.Info(gctx, "starting diagnostics server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info(ctx, "badgeboard stopped")
	return err
}

func newService(cfg *config.Config, log logger.Logger, presenter *logPresenter) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithCacheDir(cfg.CacheDir),
		app.WithServer(cfg.MediaBaseURL, cfg.APIBaseURL),
		app.WithCredentials(cfg.Username, cfg.Token),
		app.WithWorkerCount(cfg.FetchWorkers),
		app.WithQueueSize(cfg.FetchQueueSize),
		app.WithFetchTimeout(cfg.FetchTimeout()),
		app.WithRetryBackoff(cfg.FetchRetryBackoff()),
		app.WithLeaderboardsEnabled(cfg.LeaderboardsEnabled),
		app.WithPresenter(presenter),
		app.WithDisplay(leaderboard.Display{
			Started:    cfg.DisplayLeaderboardStarted,
			Canceled:   cfg.DisplayLeaderboardCanceled,
			Scoreboard: cfg.DisplayLeaderboardScoreboard,
		}),
	)
}

// runFrames evaluates leaderboard triggers once per frame until ctx ends.
func runFrames(ctx context.Context, svc *app.Service, frameRate int) {
	if frameRate < 1 {
		frameRate = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Test(ctx)
		}
	}
}

// startSystemMetricsUpdater updates system metrics every interval until ctx
// ends.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	updateSystemMetrics()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
