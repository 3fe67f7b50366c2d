// Package remote talks to the achievement server: it downloads badge and
// user pictures and submits leaderboard entries.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBody  = 4 << 20
	requestEndpoint = "dorequest.php"
	userAgent       = "badgeboard/1.0"
)

// Client is safe for concurrent use.
type Client struct {
	http     *http.Client
	media    *url.URL
	api      *url.URL
	username string
	token    string
	maxBody  int64
	log      logger.Logger
}

// NewClient builds a client for the given media and API base URLs.
func NewClient(mediaBaseURL, apiBaseURL string, opts ...Option) (*Client, error) {
	media, err := parseBase(mediaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("media base url: %w", err)
	}
	api, err := parseBase(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		media:   media,
		api:     api,
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetOrNop().Named("remote")
	}
	return c, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute url", raw)
	}
	return u, nil
}

// AssetURL returns the download location of key.
func (c *Client) AssetURL(key model.ResourceKey) string {
	return c.media.JoinPath(key.Kind.Dir(), key.Identifier+model.AssetExtension).String()
}

// DownloadAsset fetches the encoded image for key.
func (c *Client) DownloadAsset(ctx context.Context, key model.ResourceKey) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AssetURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req, "download_"+key.Kind.String())
}

// SubmitEntry posts a leaderboard score and returns the raw JSON reply.
func (c *Client) SubmitEntry(ctx context.Context, id model.LeaderboardID, score int) ([]byte, error) {
	if c.username == "" || c.token == "" {
		return nil, ErrMissingCredential
	}
	form := url.Values{
		"r": {"submitlbentry"},
		"u": {c.username},
		"t": {c.token},
		"i": {id.String()},
		"s": {strconv.Itoa(score)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api.JoinPath(requestEndpoint).String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, "submit")
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordRemoteRequest(op, "error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.RecordRemoteRequest(op, strconv.Itoa(resp.StatusCode))
	c.log.Debug(req.Context(), "remote request",
		logger.String("op", op),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBody))
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %s body exceeds %d bytes", ErrMalformedResponse, op, c.maxBody)
	}
	return body, nil
}
