package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/badgeboard/internal/adapters/fetch"
	"github.com/okian/badgeboard/internal/adapters/mq/queue"
	"github.com/okian/badgeboard/internal/domain/ledger"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeRemote struct {
	mu        sync.Mutex
	assets    map[model.ResourceKey][]byte
	reply     []byte
	err       error
	submitted []int
}

func (f *fakeRemote) DownloadAsset(_ context.Context, key model.ResourceKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.assets[key]
	if !ok {
		return nil, errors.New("404")
	}
	return data, nil
}

func (f *fakeRemote) SubmitEntry(_ context.Context, _ model.LeaderboardID, score int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, score)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type fakeSink struct {
	mu      sync.Mutex
	applied []model.SubmissionResponse
	failed  []model.LeaderboardID
	err     error
}

func (s *fakeSink) ApplySubmissionResponse(_ context.Context, resp model.SubmissionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, resp)
	return nil
}

func (s *fakeSink) SubmissionFailed(_ context.Context, id model.LeaderboardID, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetcher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fetcher over a small queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		l := ledger.NewInMemoryLedger(ledger.WithLogger(logger.Nop()))
		f := fetch.NewFetcher(q, l, fetch.WithFetcherLogger(logger.Nop()))

		Convey("When a fetch is enqueued", func() {
			key := model.RequestKey{Kind: model.RequestBadge, ID: "1"}
			err := f.EnqueueFetch(ctx, key, map[string]string{"id": "1"})

			Convey("Then a job carrying the key is queued", func() {
				So(err, ShouldBeNil)
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("And the queue is full", func() {
				err := f.EnqueueFetch(ctx, model.RequestKey{Kind: model.RequestBadge, ID: "2"}, nil)

				Convey("Then the job is rejected", func() {
					So(errors.Is(err, fetch.ErrQueueRejected), ShouldBeTrue)
				})
			})
		})

		Convey("When a score is submitted twice", func() {
			first := f.SubmitScore(ctx, 7, 100)
			second := f.SubmitScore(ctx, 7, 200)

			Convey("Then only one submission is outstanding", func() {
				So(first, ShouldBeNil)
				So(errors.Is(second, fetch.ErrSubmissionPending), ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When a submission cannot be queued", func() {
			So(f.EnqueueFetch(ctx, model.RequestKey{Kind: model.RequestBadge, ID: "x"}, nil), ShouldBeNil)
			err := f.SubmitScore(ctx, 7, 100)

			Convey("Then the ledger is released for a later attempt", func() {
				So(errors.Is(err, fetch.ErrQueueRejected), ShouldBeTrue)
				So(l.State(model.RequestKey{Kind: model.RequestSubmitLeaderboard, ID: "7"}), ShouldEqual, ledger.StateNone)
			})
		})
	})
}

func TestHandlerDownloads(t *testing.T) {
	ctx := context.Background()

	Convey("Given a handler writing into a temp cache", t, func() {
		root := t.TempDir()
		l := ledger.NewInMemoryLedger(ledger.WithLogger(logger.Nop()))
		badge := model.ResourceKey{Kind: model.AssetBadge, Identifier: "12345"}
		r := &fakeRemote{assets: map[model.ResourceKey][]byte{badge: tinyPNG(t)}}
		h := fetch.NewHandler(root, r, l, &fakeSink{}, fetch.WithHandlerLogger(logger.Nop()))

		Convey("When a badge download succeeds", func() {
			l.MarkEnqueued(ctx, badge.RequestKey())
			err := h.Handle(ctx, model.NewJob(badge.RequestKey(), nil))

			Convey("Then the file is in place and the response is ready", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(filepath.Join(root, "Badge", "12345.png"))
				So(readErr, ShouldBeNil)
				So(data, ShouldResemble, tinyPNG(t))
				So(l.IsResponseReady(badge.RequestKey()), ShouldBeTrue)
			})

			Convey("Then no temp files are left behind", func() {
				entries, _ := os.ReadDir(filepath.Join(root, "Badge"))
				So(entries, ShouldHaveLength, 1)
			})
		})

		Convey("When the download fails", func() {
			missing := model.RequestKey{Kind: model.RequestUserPicture, ID: "ghost"}
			l.MarkEnqueued(ctx, missing)
			err := h.Handle(ctx, model.NewJob(missing, nil))

			Convey("Then the key is released and nothing is written", func() {
				So(err, ShouldNotBeNil)
				So(l.State(missing), ShouldEqual, ledger.StateNone)
				_, statErr := os.Stat(filepath.Join(root, "UserPic", "ghost.png"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When the server returns something that is not an image", func() {
			bogus := model.ResourceKey{Kind: model.AssetBadge, Identifier: "html"}
			r.assets[bogus] = []byte("<html>maintenance</html>")
			l.MarkEnqueued(ctx, bogus.RequestKey())
			err := h.Handle(ctx, model.NewJob(bogus.RequestKey(), nil))

			Convey("Then it is not cached", func() {
				So(err, ShouldNotBeNil)
				_, statErr := os.Stat(filepath.Join(root, "Badge", "html.png"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
				So(l.State(bogus.RequestKey()), ShouldEqual, ledger.StateNone)
			})
		})

		Convey("When a retry backoff is configured", func() {
			hb := fetch.NewHandler(root, r, l, &fakeSink{}, fetch.WithRetryBackoff(30*time.Millisecond), fetch.WithHandlerLogger(logger.Nop()))
			missing := model.RequestKey{Kind: model.RequestBadge, ID: "gone"}
			l.MarkEnqueued(ctx, missing)
			_ = hb.Handle(ctx, model.NewJob(missing, nil))

			Convey("Then the key stays in flight until the backoff elapses", func() {
				So(l.IsInFlight(missing), ShouldBeTrue)
				time.Sleep(100 * time.Millisecond)
				So(l.State(missing), ShouldEqual, ledger.StateNone)
			})
		})

		Convey("When the job kind is unknown", func() {
			err := h.Handle(ctx, model.NewJob(model.RequestKey{Kind: model.RequestUnknown, ID: "?"}, nil))

			Convey("Then it is refused", func() {
				So(errors.Is(err, fetch.ErrUnknownJob), ShouldBeTrue)
			})
		})
	})
}

const reply = `{"Success":true,"Response":{"LBData":{"Format":"VALUE","LeaderboardID":7,"GameID":1,"Title":"t","LowerIsBetter":0},
"Score":100,"BestScore":100,"ScoreFormatted":"100",
"TopEntries":[{"Rank":2,"User":"b","Score":90,"DateSubmitted":0},{"Rank":1,"User":"a","Score":100,"DateSubmitted":0}]}}`

func TestHandlerSubmissions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a handler for submissions", t, func() {
		l := ledger.NewInMemoryLedger(ledger.WithLogger(logger.Nop()))
		r := &fakeRemote{reply: []byte(reply)}
		sink := &fakeSink{}
		h := fetch.NewHandler(t.TempDir(), r, l, sink, fetch.WithHandlerLogger(logger.Nop()))
		key := model.RequestKey{Kind: model.RequestSubmitLeaderboard, ID: "7"}
		l.MarkEnqueued(ctx, key)

		Convey("When the server accepts the entry", func() {
			err := h.Handle(ctx, model.NewJob(key, map[string]string{"score": "100"}))

			Convey("Then the parsed reply reaches the sink and the key is cleared", func() {
				So(err, ShouldBeNil)
				So(r.submitted, ShouldResemble, []int{100})
				So(sink.applied, ShouldHaveLength, 1)
				So(sink.applied[0].LeaderboardID, ShouldEqual, 7)
				So(sink.applied[0].TopEntries, ShouldHaveLength, 2)
				So(sink.failed, ShouldBeEmpty)
				So(l.State(key), ShouldEqual, ledger.StateNone)
			})
		})

		Convey("When the server rejects the entry", func() {
			r.reply = []byte(`{"Success":false,"Error":"bad token"}`)
			err := h.Handle(ctx, model.NewJob(key, map[string]string{"score": "100"}))

			Convey("Then the run is reported failed", func() {
				So(err, ShouldNotBeNil)
				So(sink.failed, ShouldResemble, []model.LeaderboardID{7})
				So(l.State(key), ShouldEqual, ledger.StateNone)
			})
		})

		Convey("When the store refuses the reply", func() {
			sink.err = errors.New("unknown leaderboard")
			err := h.Handle(ctx, model.NewJob(key, map[string]string{"score": "100"}))

			Convey("Then the run is reported failed", func() {
				So(err, ShouldNotBeNil)
				So(sink.failed, ShouldResemble, []model.LeaderboardID{7})
			})
		})

		Convey("When the job has no score", func() {
			err := h.Handle(ctx, model.NewJob(key, nil))

			Convey("Then it is malformed and nothing is sent", func() {
				So(errors.Is(err, fetch.ErrBadJob), ShouldBeTrue)
				So(r.submitted, ShouldBeEmpty)
			})
		})
	})
}

func TestHandlerAbandon(t *testing.T) {
	ctx := context.Background()

	Convey("Given a handler with a long retry backoff", t, func() {
		l := ledger.NewInMemoryLedger(ledger.WithLogger(logger.Nop()))
		sink := &fakeSink{}
		h := fetch.NewHandler(t.TempDir(), &fakeRemote{}, l, sink,
			fetch.WithRetryBackoff(time.Hour), fetch.WithHandlerLogger(logger.Nop()))

		Convey("When a queued download is abandoned", func() {
			key := model.RequestKey{Kind: model.RequestBadge, ID: "d"}
			l.MarkEnqueued(ctx, key)
			h.Abandon(ctx, model.NewJob(key, nil))

			Convey("Then its key is released immediately", func() {
				So(l.State(key), ShouldEqual, ledger.StateNone)
				So(sink.failed, ShouldBeEmpty)
			})
		})

		Convey("When a queued submission is abandoned", func() {
			key := model.RequestKey{Kind: model.RequestSubmitLeaderboard, ID: "7"}
			l.MarkEnqueued(ctx, key)
			h.Abandon(ctx, model.NewJob(key, map[string]string{"score": "100"}))

			Convey("Then the key is released and the run is reported failed", func() {
				So(l.State(key), ShouldEqual, ledger.StateNone)
				So(sink.failed, ShouldResemble, []model.LeaderboardID{7})
			})
		})
	})
}
