package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/badgeboard/internal/adapters/assetcache"
	service "github.com/okian/badgeboard/internal/app"
	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// gatedRemote serves every badge, but only once open is called. Until then
// calls block until their context ends.
type gatedRemote struct {
	delay time.Duration
	gate  chan struct{}
	once  sync.Once

	mu    sync.Mutex
	calls int
}

func newGatedRemote(delay time.Duration, open bool) *gatedRemote {
	r := &gatedRemote{delay: delay, gate: make(chan struct{})}
	if open {
		r.open()
	}
	return r
}

func (r *gatedRemote) open() { r.once.Do(func() { close(r.gate) }) }

func (r *gatedRemote) wait(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	select {
	case <-r.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-time.After(r.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *gatedRemote) DownloadAsset(ctx context.Context, _ model.ResourceKey) ([]byte, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return solidPNG(4, 4), nil
}

func (r *gatedRemote) SubmitEntry(ctx context.Context, _ model.LeaderboardID, _ int) ([]byte, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return []byte(submitReply), nil
}

func (r *gatedRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func inFlight(svc *service.Service) int {
	return svc.GetStats()["inFlight"].(int)
}

func TestService_StopFinishesQueuedJobs(t *testing.T) {
	Convey("Given a single slow worker with four badges queued", t, func() {
		remote := newGatedRemote(20*time.Millisecond, true)
		svc := service.New(
			service.WithCacheDir(t.TempDir()),
			service.WithRemote(remote),
			service.WithWorkerCount(1),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		size := model.Size{Width: 8, Height: 8}
		for _, id := range []string{"a", "b", "c", "d"} {
			res, err := svc.FetchOrLoad(ctx, model.AssetBadge, id, size)
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, assetcache.StatusPending)
		}

		Convey("When the service is stopped and started again", func() {
			svc.Stop()
			stats := svc.GetStats()

			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then Stop waited for every queued download", func() {
				So(stats["inFlight"], ShouldEqual, 0)
				So(stats["responseReady"], ShouldEqual, 4)
				So(remote.callCount(), ShouldEqual, 4)
			})

			Convey("Then the last badge is served without another download", func() {
				var ready assetcache.Result
				ok := eventually(2*time.Second, func() bool {
					r, err := svc.FetchOrLoad(ctx, model.AssetBadge, "d", size)
					if err != nil || r.Status != assetcache.StatusReady {
						return false
					}
					ready = r
					return true
				})
				So(ok, ShouldBeTrue)
				ready.Bitmap.Release()
				So(remote.callCount(), ShouldEqual, 4)
			})
		})
	})
}

func TestService_StopAbandonsUndeliveredJobs(t *testing.T) {
	Convey("Given a worker stuck on a download when its context ends", t, func() {
		remote := newGatedRemote(0, false)
		svc := service.New(
			service.WithCacheDir(t.TempDir()),
			service.WithRemote(remote),
			service.WithWorkerCount(1),
			service.WithRetryBackoff(0),
		)
		runCtx, cancelRun := context.WithCancel(context.Background())
		defer cancelRun()
		So(svc.Start(runCtx), ShouldBeNil)

		svc.LoadGame(runCtx, []model.Definition{{ID: 7, Title: "High score"}})
		trig, ok := svc.Trigger(7)
		So(ok, ShouldBeTrue)
		lb, ok := svc.Leaderboard(7)
		So(ok, ShouldBeTrue)

		size := model.Size{Width: 8, Height: 8}
		_, err := svc.FetchOrLoad(runCtx, model.AssetBadge, "a", size)
		So(err, ShouldBeNil)
		So(eventually(2*time.Second, func() bool { return remote.callCount() == 1 }), ShouldBeTrue)

		for _, id := range []string{"b", "c", "d"} {
			_, err := svc.FetchOrLoad(runCtx, model.AssetBadge, id, size)
			So(err, ShouldBeNil)
		}
		trig.Start()
		svc.Test(runCtx)
		trig.Submit(4200)
		svc.Test(runCtx)
		So(lb.State(), ShouldEqual, leaderboard.StateSubmitting)

		Convey("When the context is cancelled and the service stopped", func() {
			cancelRun()
			svc.Stop()

			Convey("Then no key is left in flight and the run is abandoned", func() {
				So(eventually(2*time.Second, func() bool { return inFlight(svc) == 0 }), ShouldBeTrue)
				So(lb.State(), ShouldEqual, leaderboard.StateInactive)
			})

			Convey("Then a restarted service fetches and submits again", func() {
				So(eventually(2*time.Second, func() bool { return inFlight(svc) == 0 }), ShouldBeTrue)
				remote.open()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				So(svc.Start(ctx), ShouldBeNil)
				defer svc.Stop()

				err := svc.SubmitScore(ctx, 7, 4200)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeFalse)
				So(err, ShouldBeNil)

				ok := eventually(5*time.Second, func() bool {
					r, err := svc.FetchOrLoad(ctx, model.AssetBadge, "d", size)
					if err != nil || r.Status != assetcache.StatusReady {
						return false
					}
					r.Bitmap.Release()
					return true
				})
				So(ok, ShouldBeTrue)
			})
		})
	})
}
