package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/badgeboard/internal/adapters/assetcache"
	"github.com/okian/badgeboard/internal/adapters/imaging"
	"github.com/okian/badgeboard/internal/adapters/remote"
	"github.com/okian/badgeboard/internal/domain/ledger"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
)

// Remote is the subset of the server client used by workers.
type Remote interface {
	DownloadAsset(ctx context.Context, key model.ResourceKey) ([]byte, error)
	SubmitEntry(ctx context.Context, id model.LeaderboardID, score int) ([]byte, error)
}

// Sink receives parsed submission replies.
type Sink interface {
	ApplySubmissionResponse(ctx context.Context, resp model.SubmissionResponse) error
	SubmissionFailed(ctx context.Context, id model.LeaderboardID, cause error)
}

// Handler performs queued jobs. It implements worker.Handler.
type Handler struct {
	root         string
	remote       Remote
	ledger       ledger.Ledger
	sink         Sink
	retryBackoff time.Duration
	log          logger.Logger
}

// NewHandler creates a handler writing downloads under root.
func NewHandler(root string, r Remote, l ledger.Ledger, sink Sink, opts ...HandlerOption) *Handler {
	h := &Handler{root: root, remote: r, ledger: l, sink: sink}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.GetOrNop().Named("fetch")
	}
	return h
}

// Handle dispatches j by kind.
func (h *Handler) Handle(ctx context.Context, j model.Job) error {
	if kind, ok := j.Key.Kind.Asset(); ok {
		return h.download(ctx, j, model.ResourceKey{Kind: kind, Identifier: j.Key.ID})
	}
	if j.Key.Kind == model.RequestSubmitLeaderboard {
		return h.submit(ctx, j)
	}
	h.ledger.Clear(ctx, j.Key)
	return fmt.Errorf("%w: %s", ErrUnknownJob, j.Key)
}

// Abandon releases a job that will never reach Handle. The key is cleared
// at once so the next lookup after a restart enqueues again, and an
// abandoned submission ends its run.
func (h *Handler) Abandon(ctx context.Context, j model.Job) {
	h.ledger.Clear(ctx, j.Key)
	h.log.Debug(ctx, "job abandoned", logger.String("key", j.Key.String()), logger.String("job", j.ID))
	if j.Key.Kind != model.RequestSubmitLeaderboard {
		return
	}
	if raw, err := strconv.ParseUint(j.Key.ID, 10, 32); err == nil {
		h.sink.SubmissionFailed(ctx, model.LeaderboardID(raw), ErrAbandoned)
	}
}

func (h *Handler) download(ctx context.Context, j model.Job, key model.ResourceKey) error {
	err := h.fetchToDisk(ctx, key)
	if err != nil {
		h.release(ctx, j.Key)
		return err
	}
	h.ledger.MarkResolved(ctx, j.Key)
	h.log.Debug(ctx, "asset cached", logger.String("key", key.String()), logger.String("job", j.ID))
	return nil
}

func (h *Handler) fetchToDisk(ctx context.Context, key model.ResourceKey) error {
	path, err := assetcache.Path(h.root, key)
	if err != nil {
		return err
	}
	data, err := h.remote.DownloadAsset(ctx, key)
	if err != nil {
		return err
	}
	if _, _, err := imaging.Probe(data); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return writeAtomic(path, data)
}

// release clears a failed download's key, after the retry backoff if one
// is set, so the next lookup enqueues again.
func (h *Handler) release(ctx context.Context, key model.RequestKey) {
	if h.retryBackoff <= 0 {
		h.ledger.Clear(ctx, key)
		return
	}
	time.AfterFunc(h.retryBackoff, func() {
		h.ledger.Clear(context.Background(), key)
	})
}

func (h *Handler) submit(ctx context.Context, j model.Job) error {
	defer h.ledger.Clear(ctx, j.Key)

	raw, err := strconv.ParseUint(j.Key.ID, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: leaderboard id %q", ErrBadJob, j.Key.ID)
	}
	id := model.LeaderboardID(raw)
	score, err := strconv.Atoi(j.Param(paramScore))
	if err != nil {
		h.sink.SubmissionFailed(ctx, id, err)
		return fmt.Errorf("%w: score %q", ErrBadJob, j.Param(paramScore))
	}

	payload, err := h.remote.SubmitEntry(ctx, id, score)
	if err != nil {
		h.sink.SubmissionFailed(ctx, id, err)
		return err
	}
	resp, err := remote.ParseSubmissionResponse(payload)
	if err != nil {
		h.sink.SubmissionFailed(ctx, id, err)
		return err
	}
	if err := h.sink.ApplySubmissionResponse(ctx, resp); err != nil {
		h.sink.SubmissionFailed(ctx, id, err)
		return err
	}
	if resp.LeaderboardID != id {
		h.log.Warn(ctx, "submission answered for a different leaderboard",
			logger.Uint("submitted", uint(id)), logger.Uint("answered", uint(resp.LeaderboardID)))
		h.sink.SubmissionFailed(ctx, id, fmt.Errorf("answered for leaderboard %d", resp.LeaderboardID))
	}
	return nil
}

// writeAtomic writes data next to path and renames it into place so
// readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into cache: %w", err)
	}
	return nil
}
