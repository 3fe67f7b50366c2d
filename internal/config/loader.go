package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "BADGEBOARD_"
	envFileVar = "BADGEBOARD_CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New)
//  2. YAML file named by BADGEBOARD_CONFIG
//  3. BADGEBOARD_* environment variables
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// BADGEBOARD_FETCH_WORKERS -> fetch_workers (flat keys).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the client cannot run without.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.CacheDir) == "":
		return fmt.Errorf("%w: cache_dir must not be empty", ErrInvalidConfig)
	case c.FrameRate < 1:
		return fmt.Errorf("%w: frame_rate must be positive", ErrInvalidConfig)
	case c.FetchRetryBackoffMS < 0:
		return fmt.Errorf("%w: fetch_retry_backoff_ms must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshIntervalMS < 1:
		return fmt.Errorf("%w: metrics_refresh_interval_ms must be positive", ErrInvalidConfig)
	}
	for name, raw := range map[string]string{"media_base_url": c.MediaBaseURL, "api_base_url": c.APIBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL", ErrInvalidConfig, name)
		}
	}
	seen := make(map[uint32]struct{}, len(c.Leaderboards))
	for _, lb := range c.Leaderboards {
		if lb.ID == 0 {
			return fmt.Errorf("%w: leaderboard id must be positive", ErrInvalidConfig)
		}
		if _, dup := seen[lb.ID]; dup {
			return fmt.Errorf("%w: duplicate leaderboard id %d", ErrInvalidConfig, lb.ID)
		}
		seen[lb.ID] = struct{}{}
	}
	return nil
}
