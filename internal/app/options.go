package service

import (
	"time"

	"github.com/okian/badgeboard/internal/adapters/fetch"
	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of fetch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the fetch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheDir sets the asset cache directory.
func WithCacheDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.cacheDir = dir
		}
	}
}

// WithServer sets the media and API base URLs.
func WithServer(mediaBaseURL, apiBaseURL string) Option {
	return func(s *Service) {
		s.mediaBaseURL = mediaBaseURL
		s.apiBaseURL = apiBaseURL
	}
}

// WithCredentials sets the user and token used for submissions.
func WithCredentials(username, token string) Option {
	return func(s *Service) {
		s.username = username
		s.token = token
	}
}

// WithFetchTimeout bounds every remote request.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRetryBackoff sets how long a failed download blocks a new attempt.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

// WithLeaderboardsEnabled sets the leaderboard feature flag.
func WithLeaderboardsEnabled(enabled bool) Option {
	return func(s *Service) {
		s.leaderboardsEnabled = enabled
	}
}

// WithPresenter sets the scoreboard presenter.
func WithPresenter(p leaderboard.Presenter) Option {
	return func(s *Service) {
		s.presenter = p
	}
}

// WithDisplay selects which leaderboard notifications reach the presenter.
func WithDisplay(d leaderboard.Display) Option {
	return func(s *Service) {
		s.display = d
	}
}

// WithRemote replaces the HTTP server client, mainly for tests.
func WithRemote(r fetch.Remote) Option {
	return func(s *Service) {
		s.remote = r
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
