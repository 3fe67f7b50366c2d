package main

import (
	"context"
	"sync/atomic"

	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
)

// scoreboardLookup resolves a leaderboard by id.
type scoreboardLookup interface {
	Leaderboard(id model.LeaderboardID) (*leaderboard.Leaderboard, bool)
}

// logPresenter prints scoreboards and run notifications to the log.
type logPresenter struct {
	log    logger.Logger
	lookup atomic.Pointer[scoreboardLookup]
}

func newLogPresenter(log logger.Logger) *logPresenter {
	return &logPresenter{log: log.Named("scoreboard")}
}

func (p *logPresenter) bind(l scoreboardLookup) { p.lookup.Store(&l) }

func (p *logPresenter) ShowScoreboard(ctx context.Context, id model.LeaderboardID) {
	l := p.lookup.Load()
	if l == nil {
		return
	}
	lb, ok := (*l).Leaderboard(id)
	if !ok {
		return
	}
	def := lb.Definition()
	p.log.Info(ctx, "scoreboard", logger.Uint("id", uint(id)), logger.String("title", def.Title))
	for _, e := range lb.Entries() {
		p.log.Info(ctx, "entry",
			logger.Uint("rank", e.Rank),
			logger.String("user", e.Username),
			logger.String("score", def.Format.FormatScore(e.Score)))
	}
}

func (p *logPresenter) LeaderboardStarted(ctx context.Context, def model.Definition) {
	p.log.Info(ctx, "leaderboard attempt started", logger.Uint("id", uint(def.ID)), logger.String("title", def.Title))
}

func (p *logPresenter) LeaderboardCanceled(ctx context.Context, def model.Definition) {
	p.log.Info(ctx, "leaderboard attempt failed", logger.Uint("id", uint(def.ID)), logger.String("title", def.Title))
}
