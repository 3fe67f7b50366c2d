package prefetch

import (
	"time"

	"github.com/okian/badgeboard/internal/domain/model"
)

// Config holds configuration for a prefetch run.
type Config struct {
	Badges       []string      // Badge ids to warm
	Users        []string      // User names whose pictures to warm
	Size         model.Size    // Box every image is materialized at
	Workers      int           // Concurrent pollers
	Timeout      time.Duration // Per-asset deadline
	PollInterval time.Duration // Delay between FetchOrLoad calls for one asset
	Verbose      bool
}

// Target is one asset to warm.
type Target struct {
	Kind       model.AssetKind
	Identifier string
}

func (t Target) String() string {
	return t.Kind.String() + "/" + t.Identifier
}

// Targets lists badges first, then user pictures, skipping duplicates.
func (c *Config) Targets() []Target {
	seen := make(map[Target]struct{}, len(c.Badges)+len(c.Users))
	out := make([]Target, 0, len(c.Badges)+len(c.Users))
	add := func(kind model.AssetKind, ids []string) {
		for _, id := range ids {
			t := Target{Kind: kind, Identifier: id}
			if _, dup := seen[t]; dup || id == "" {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	add(model.AssetBadge, c.Badges)
	add(model.AssetUserPicture, c.Users)
	return out
}

// Stats holds the outcome of a run.
type Stats struct {
	Requested int
	Ready     int
	TimedOut  int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
