// Package assetcache serves badges and user pictures from the local cache
// directory and schedules a single background download for each miss.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/okian/badgeboard/internal/adapters/imaging"
	"github.com/okian/badgeboard/internal/domain/ledger"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

// Status tells whether a lookup produced an image.
type Status int

const (
	// StatusReady means Result.Bitmap holds the materialized image.
	StatusReady Status = iota
	// StatusPending means the image is not cached yet and a download is
	// underway. Callers retry on a later frame.
	StatusPending
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "pending"
}

// Result of a FetchOrLoad call.
type Result struct {
	Status Status
	Bitmap *imaging.Bitmap
}

// Enqueuer schedules a background download. It must not block on the
// network.
type Enqueuer interface {
	EnqueueFetch(ctx context.Context, key model.RequestKey, params map[string]string) error
}

// Materializer turns cached bytes into a bitmap.
type Materializer interface {
	Materialize(src []byte, size model.Size) (*imaging.Bitmap, error)
}

// Cache is the remote asset cache. It reads the cache directory but never
// writes it; the fetch layer owns writes.
type Cache struct {
	root   string
	ledger ledger.Ledger
	enq    Enqueuer
	mat    Materializer
	log    logger.Logger
}

// New creates a cache rooted at root.
func New(root string, l ledger.Ledger, enq Enqueuer, mat Materializer, opts ...Option) *Cache {
	c := &Cache{root: root, ledger: l, enq: enq, mat: mat}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetOrNop().Named("assetcache")
	}
	return c
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// FetchOrLoad returns the image for (kind, identifier) scaled to size, or
// StatusPending while it is being downloaded. Pending is not an error.
func (c *Cache) FetchOrLoad(ctx context.Context, kind model.AssetKind, identifier string, size model.Size) (Result, error) {
	key := model.ResourceKey{Kind: kind, Identifier: identifier}
	path, err := Path(c.root, key)
	if err != nil {
		metrics.RecordAssetLookup(kind.String(), "invalid")
		return Result{}, err
	}
	reqKey := key.RequestKey()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if c.ledger.IsResponseReady(reqKey) {
			c.ledger.Clear(ctx, reqKey)
		}
		bmp, err := c.mat.Materialize(data, size)
		if err != nil {
			metrics.RecordAssetLookup(kind.String(), "error")
			metrics.RecordErrorByComponent("assetcache", "materialize")
			return Result{}, fmt.Errorf("%s: %w", key, err)
		}
		metrics.RecordAssetLookup(kind.String(), "hit")
		return Result{Status: StatusReady, Bitmap: bmp}, nil
	case !errors.Is(err, fs.ErrNotExist):
		metrics.RecordAssetLookup(kind.String(), "error")
		metrics.RecordErrorByComponent("assetcache", "read")
		return Result{}, fmt.Errorf("%w: %s: %w", ErrReadCache, key, err)
	}

	if !c.ledger.TryEnqueue(ctx, reqKey) {
		metrics.RecordAssetLookup(kind.String(), "pending")
		return Result{Status: StatusPending}, nil
	}

	if err := c.enq.EnqueueFetch(ctx, reqKey, map[string]string{"kind": kind.String(), "id": identifier}); err != nil {
		// Let a later lookup retry.
		c.ledger.Clear(ctx, reqKey)
		c.log.Warn(ctx, "asset fetch not enqueued", logger.String("key", key.String()), logger.Error(err))
		metrics.RecordAssetLookup(kind.String(), "rejected")
		return Result{Status: StatusPending}, nil
	}

	c.log.Debug(ctx, "asset fetch enqueued", logger.String("key", key.String()))
	metrics.RecordAssetLookup(kind.String(), "enqueued")
	return Result{Status: StatusPending}, nil
}

// Cached reports whether the file for key is present.
func (c *Cache) Cached(key model.ResourceKey) bool {
	path, err := Path(c.root, key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
