package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/okian/badgeboard/internal/config"
	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

type storeLookup struct{ *leaderboard.Store }

func (s storeLookup) Leaderboard(id model.LeaderboardID) (*leaderboard.Leaderboard, bool) {
	return s.FindByID(id)
}

func TestNewService(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()
		cfg.CacheDir = t.TempDir()
		cfg.Leaderboards = []config.LeaderboardConfig{{ID: 7, Title: "Fastest lap", Format: "TIME"}}

		convey.Convey("Then a service is built and loads the configured boards", func() {
			svc := newService(cfg, logger.Nop(), newLogPresenter(logger.Nop()))
			convey.So(svc, convey.ShouldNotBeNil)
			convey.So(svc.LoadGame(context.Background(), cfg.Definitions()), convey.ShouldEqual, 1)

			lb, ok := svc.Leaderboard(7)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(lb.Definition().Format, convey.ShouldEqual, model.FormatTimeFrames)
		})
	})
}

func TestNewServiceDisplay(t *testing.T) {
	convey.Convey("Given a configuration that hides run notifications", t, func() {
		cfg := config.New()
		cfg.CacheDir = t.TempDir()
		cfg.DisplayLeaderboardStarted = false
		cfg.DisplayLeaderboardCanceled = false

		convey.Convey("Then the store only shows scoreboards", func() {
			svc := newService(cfg, logger.Nop(), newLogPresenter(logger.Nop()))
			convey.So(svc.Store().Display(), convey.ShouldResemble, leaderboard.Display{Scoreboard: true})
		})
	})
}

func TestRunFrames(t *testing.T) {
	convey.Convey("Given a service with a started run queued", t, func() {
		cfg := config.New()
		cfg.CacheDir = t.TempDir()
		svc := newService(cfg, logger.Nop(), newLogPresenter(logger.Nop()))
		svc.LoadGame(context.Background(), []model.Definition{{ID: 7}})
		trig, _ := svc.Trigger(7)
		trig.Start()

		convey.Convey("When frames run briefly", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			runFrames(ctx, svc, 120)

			convey.Convey("Then the trigger was evaluated", func() {
				lb, _ := svc.Leaderboard(7)
				convey.So(lb.State(), convey.ShouldEqual, leaderboard.StateActive)
			})
		})
	})
}

func TestLogPresenter(t *testing.T) {
	convey.Convey("Given a presenter bound to a store", t, func() {
		var buf bytes.Buffer
		convey.So(logger.InitWithWriter(&buf), convey.ShouldBeNil)
		ctx := context.Background()

		store := leaderboard.NewStore()
		store.AddLeaderboard(ctx, model.Definition{ID: 7, Title: "High score", Format: model.FormatScore}, nil)
		_ = store.ApplySubmissionResponse(ctx, model.SubmissionResponse{
			LeaderboardID: 7,
			Title:         "High score",
			Format:        model.FormatScore,
			TopEntries:    []model.RankEntry{{Rank: 1, Username: "alice", Score: 4200}},
		})

		p := newLogPresenter(logger.Get())

		convey.Convey("When nothing is bound yet", func() {
			p.ShowScoreboard(ctx, 7)

			convey.Convey("Then nothing is printed", func() {
				convey.So(buf.String(), convey.ShouldNotContainSubstring, "alice")
			})
		})

		convey.Convey("When a scoreboard is shown", func() {
			p.bind(storeLookup{store})
			p.ShowScoreboard(ctx, 7)

			convey.Convey("Then every entry is printed with its formatted score", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, "user=alice")
				convey.So(buf.String(), convey.ShouldContainSubstring, "004200 Points")
			})
		})

		convey.Convey("When a run starts and is canceled", func() {
			def := model.Definition{ID: 9, Title: "Sprint"}
			p.LeaderboardStarted(ctx, def)
			p.LeaderboardCanceled(ctx, def)

			convey.Convey("Then both notifications are logged", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, "leaderboard attempt started")
				convey.So(buf.String(), convey.ShouldContainSubstring, "leaderboard attempt failed")
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("System metrics update without panicking", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})

	convey.Convey("Given the updater running at a short interval", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		startSystemMetricsUpdater(ctx, 5*time.Millisecond)

		convey.Convey("Then the goroutine gauge was set", func() {
			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			var goroutines float64
			for _, f := range families {
				if f.GetName() == "badgeboard_client_system_goroutines" {
					goroutines = f.GetMetric()[0].GetGauge().GetValue()
				}
			}
			convey.So(goroutines, convey.ShouldBeGreaterThan, 0)
		})
	})
}
