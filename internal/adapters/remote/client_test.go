package remote_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/okian/badgeboard/internal/adapters/remote"
	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recorded struct {
	mu     sync.Mutex
	method string
	path   string
	form   url.Values
}

func newServer(t *testing.T, rec *recorded, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		rec.mu.Lock()
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.form = r.PostForm
		rec.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadAsset(t *testing.T) {
	ctx := context.Background()

	Convey("Given a media server", t, func() {
		rec := &recorded{}
		srv := newServer(t, rec, http.StatusOK, "PNGDATA")
		c, err := remote.NewClient(srv.URL+"/", srv.URL, remote.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		Convey("When a badge is downloaded", func() {
			data, err := c.DownloadAsset(ctx, model.ResourceKey{Kind: model.AssetBadge, Identifier: "12345"})

			Convey("Then it is fetched from /Badge/<id>.png", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "PNGDATA")
				So(rec.method, ShouldEqual, http.MethodGet)
				So(rec.path, ShouldEqual, "/Badge/12345.png")
			})
		})

		Convey("When a user picture is downloaded", func() {
			_, err := c.DownloadAsset(ctx, model.ResourceKey{Kind: model.AssetUserPicture, Identifier: "Scott"})

			Convey("Then it is fetched from /UserPic/<user>.png", func() {
				So(err, ShouldBeNil)
				So(rec.path, ShouldEqual, "/UserPic/Scott.png")
			})
		})
	})

	Convey("Given a media server that answers 404", t, func() {
		srv := newServer(t, &recorded{}, http.StatusNotFound, "nope")
		c, _ := remote.NewClient(srv.URL, srv.URL, remote.WithLogger(logger.Nop()))

		_, err := c.DownloadAsset(ctx, model.ResourceKey{Kind: model.AssetBadge, Identifier: "1"})

		Convey("Then an unexpected status error is returned", func() {
			So(errors.Is(err, remote.ErrUnexpectedStatus), ShouldBeTrue)
		})
	})

	Convey("Given a response larger than the cap", t, func() {
		srv := newServer(t, &recorded{}, http.StatusOK, "0123456789")
		c, _ := remote.NewClient(srv.URL, srv.URL, remote.WithMaxBodyBytes(4), remote.WithLogger(logger.Nop()))

		_, err := c.DownloadAsset(ctx, model.ResourceKey{Kind: model.AssetBadge, Identifier: "1"})

		Convey("Then it is refused", func() {
			So(errors.Is(err, remote.ErrMalformedResponse), ShouldBeTrue)
		})
	})

	Convey("Given a slow server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		c, _ := remote.NewClient(srv.URL, srv.URL, remote.WithLogger(logger.Nop()))
		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := c.DownloadAsset(cctx, model.ResourceKey{Kind: model.AssetBadge, Identifier: "1"})

		Convey("Then the context bounds the request", func() {
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})

	Convey("Relative base urls are rejected", t, func() {
		_, err := remote.NewClient("media", "https://example.com")
		So(err, ShouldNotBeNil)
	})
}

func TestSubmitEntry(t *testing.T) {
	ctx := context.Background()

	Convey("Given an api server", t, func() {
		rec := &recorded{}
		srv := newServer(t, rec, http.StatusOK, `{"Success":true}`)

		Convey("When credentials are configured", func() {
			c, _ := remote.NewClient(srv.URL, srv.URL, remote.WithCredentials("scott", "tok"), remote.WithLogger(logger.Nop()))
			body, err := c.SubmitEntry(ctx, 7, 4200)

			Convey("Then the form reaches dorequest.php", func() {
				So(err, ShouldBeNil)
				So(string(body), ShouldEqual, `{"Success":true}`)
				So(rec.method, ShouldEqual, http.MethodPost)
				So(rec.path, ShouldEqual, "/dorequest.php")
				So(rec.form.Get("r"), ShouldEqual, "submitlbentry")
				So(rec.form.Get("u"), ShouldEqual, "scott")
				So(rec.form.Get("t"), ShouldEqual, "tok")
				So(rec.form.Get("i"), ShouldEqual, "7")
				So(rec.form.Get("s"), ShouldEqual, "4200")
			})
		})

		Convey("When credentials are missing", func() {
			c, _ := remote.NewClient(srv.URL, srv.URL, remote.WithLogger(logger.Nop()))
			_, err := c.SubmitEntry(ctx, 7, 1)

			Convey("Then nothing is sent", func() {
				So(errors.Is(err, remote.ErrMissingCredential), ShouldBeTrue)
				So(rec.method, ShouldEqual, "")
			})
		})
	})
}
