package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/okian/badgeboard/internal/app"
	"github.com/okian/badgeboard/internal/config"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/internal/prefetch"
	"github.com/okian/badgeboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultSize    = 64
	defaultWorkers = 4
	defaultTimeout = 30 * time.Second
)

func main() {
	var (
		badges  = flag.String("badges", "", "Comma separated badge ids")
		users   = flag.String("users", "", "Comma separated user names")
		width   = flag.Int("w", defaultSize, "Width to materialize at")
		height  = flag.Int("h", defaultSize, "Height to materialize at")
		workers = flag.Int("workers", defaultWorkers, "Number of concurrent pollers")
		timeout = flag.Duration("timeout", defaultTimeout, "Per-asset deadline")
		verbose = flag.Bool("verbose", false, "Log every asset as it becomes ready")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		prefetch.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	svc := app.New(
		app.WithLogger(log),
		app.WithCacheDir(cfg.CacheDir),
		app.WithServer(cfg.MediaBaseURL, cfg.APIBaseURL),
		app.WithWorkerCount(cfg.FetchWorkers),
		app.WithQueueSize(cfg.FetchQueueSize),
		app.WithFetchTimeout(cfg.FetchTimeout()),
		// A failed download is retried on the next poll.
		app.WithRetryBackoff(0),
		app.WithLeaderboardsEnabled(false),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}

	_, err = prefetch.Run(ctx, svc, &prefetch.Config{
		Badges:  prefetch.SplitList(*badges),
		Users:   prefetch.SplitList(*users),
		Size:    model.Size{Width: *width, Height: *height},
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	})
	svc.Stop()
	if err != nil {
		log.Error(ctx, "prefetch failed", logger.Error(err))
		os.Exit(1)
	}
}
