// Package config defines client configuration and its layered loader.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/badgeboard/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr is the local diagnostics listener, e.g. "127.0.0.1:9380".
	Addr string `koanf:"addr"`

	// CacheDir is the root under which Badge/ and UserPic/ live.
	CacheDir string `koanf:"cache_dir"`
	// MediaBaseURL serves badge and user pictures.
	MediaBaseURL string `koanf:"media_base_url"`
	// APIBaseURL serves dorequest.php.
	APIBaseURL string `koanf:"api_base_url"`
	// Username and Token authenticate leaderboard submissions.
	Username string `koanf:"username"`
	Token    string `koanf:"token"`

	// LeaderboardsEnabled is the global leaderboard feature flag.
	LeaderboardsEnabled bool `koanf:"leaderboards_enabled"`

	// FetchQueueSize bounds the background fetch queue.
	FetchQueueSize int `koanf:"fetch_queue_size"`
	// FetchWorkers sets the number of background fetch workers.
	FetchWorkers int `koanf:"fetch_workers"`
	// FetchTimeoutMS bounds a single remote request.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`
	// FetchRetryBackoffMS keeps a failed download from being retried for a
	// while. Zero retries on the next lookup.
	FetchRetryBackoffMS int `koanf:"fetch_retry_backoff_ms"`

	// ControlEnabled exposes the POST endpoints that drive leaderboard runs.
	ControlEnabled bool `koanf:"control_enabled"`

	// FrameRate drives how often leaderboards are tested per second.
	FrameRate int `koanf:"frame_rate"`

	// Display toggles for the on-screen leaderboard notifications.
	DisplayLeaderboardStarted    bool `koanf:"display_leaderboard_started"`
	DisplayLeaderboardCanceled   bool `koanf:"display_leaderboard_canceled"`
	DisplayLeaderboardScoreboard bool `koanf:"display_leaderboard_scoreboard"`

	// MetricsEnabled turns Prometheus collection on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefreshIntervalMS sets how often polled gauges are refreshed.
	MetricsRefreshIntervalMS int `koanf:"metrics_refresh_interval_ms"`

	// Leaderboards lists the definitions loaded at startup. Only the YAML
	// file can set it.
	Leaderboards []LeaderboardConfig `koanf:"leaderboards"`
}

// LeaderboardConfig is a leaderboard definition as written in the config file.
type LeaderboardConfig struct {
	ID            uint32 `koanf:"id"`
	GameID        uint32 `koanf:"game_id"`
	Title         string `koanf:"title"`
	Description   string `koanf:"description"`
	Format        string `koanf:"format"`
	LowerIsBetter bool   `koanf:"lower_is_better"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                "127.0.0.1:9380",
		CacheDir:            defaultCacheDir(),
		MediaBaseURL:        "https://media.retroachievements.org",
		APIBaseURL:          "https://retroachievements.org",
		LeaderboardsEnabled: true,
		FetchQueueSize:      1024,
		FetchWorkers:        runtime.NumCPU(),
		FetchTimeoutMS:      15_000,
		FetchRetryBackoffMS: 30_000,
		FrameRate:           60,

		DisplayLeaderboardStarted:    true,
		DisplayLeaderboardCanceled:   true,
		DisplayLeaderboardScoreboard: true,

		MetricsEnabled:           true,
		MetricsRefreshIntervalMS: 10_000,
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "badgeboard")
	}
	return filepath.Join(os.TempDir(), "badgeboard")
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// FetchRetryBackoff returns FetchRetryBackoffMS as a duration.
func (c *Config) FetchRetryBackoff() time.Duration {
	return time.Duration(c.FetchRetryBackoffMS) * time.Millisecond
}

// MetricsRefreshInterval returns MetricsRefreshIntervalMS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalMS) * time.Millisecond
}

// Definitions converts the configured leaderboards to domain definitions.
func (c *Config) Definitions() []model.Definition {
	defs := make([]model.Definition, 0, len(c.Leaderboards))
	for _, lb := range c.Leaderboards {
		defs = append(defs, model.Definition{
			ID:            model.LeaderboardID(lb.ID),
			GameID:        model.GameID(lb.GameID),
			Title:         lb.Title,
			Description:   lb.Description,
			Format:        model.ParseFormat(lb.Format),
			LowerIsBetter: lb.LowerIsBetter,
		})
	}
	return defs
}
