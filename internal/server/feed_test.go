package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/watchx/internal/shared"
	tu "github.com/desertthunder/watchx/internal/testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Reviews</title><item><title>Dune</title></item></channel></rss>`

func newFeedHandler(t *testing.T, opts FeedOptions) *FeedHandler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(&bytes.Buffer{})
	}
	return NewFeedHandler(opts)
}

func getFeed(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rss?url="+url.QueryEscape(target), nil)
	h.ServeHTTP(rec, req)
	return rec
}

func TestFeedHandler(t *testing.T) {
	var hits atomic.Int32
	var gotUA atomic.Value
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotUA.Store(r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
			w.Write([]byte(sampleRSS))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			w.Write([]byte(sampleRSS))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer upstream.Close()

	t.Run("Miss Then Hit", func(t *testing.T) {
		hits.Store(0)
		h := newFeedHandler(t, FeedOptions{Client: upstream.Client(), UserAgent: "watchx-test", AllowPrivate: true})

		rec := getFeed(h, upstream.URL+"/feed.xml")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("X-Cache") != "MISS" {
			t.Errorf("expected MISS, got %q", rec.Header().Get("X-Cache"))
		}
		if rec.Body.String() != sampleRSS {
			t.Error("body should pass through unchanged")
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/rss+xml; charset=utf-8" {
			t.Errorf("expected upstream content type, got %q", ct)
		}
		if ua, _ := gotUA.Load().(string); ua != "watchx-test" {
			t.Errorf("expected configured user agent, got %q", ua)
		}

		rec = getFeed(h, upstream.URL+"/feed.xml")
		if rec.Header().Get("X-Cache") != "HIT" {
			t.Errorf("expected HIT, got %q", rec.Header().Get("X-Cache"))
		}
		if hits.Load() != 1 {
			t.Errorf("expected one upstream request, got %d", hits.Load())
		}
	})

	t.Run("Sniffs Missing Content Type", func(t *testing.T) {
		h := newFeedHandler(t, FeedOptions{Client: upstream.Client(), AllowPrivate: true})

		rec := getFeed(h, upstream.URL+"/untyped")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
			t.Errorf("expected sniffed xml content type, got %q", ct)
		}
	})

	t.Run("Upstream Error Not Cached", func(t *testing.T) {
		hits.Store(0)
		cache := NewMemoryCache(8, time.Minute)
		h := newFeedHandler(t, FeedOptions{Client: upstream.Client(), Cache: cache, AllowPrivate: true})

		for range 2 {
			rec := getFeed(h, upstream.URL+"/missing")
			if rec.Code != http.StatusBadGateway {
				t.Errorf("expected 502, got %d", rec.Code)
			}
		}
		if cache.Len() != 0 {
			t.Error("failed responses must not be cached")
		}
		if hits.Load() != 2 {
			t.Errorf("expected each failure to hit upstream, got %d", hits.Load())
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, http.ErrHandlerTimeout)}
		h := newFeedHandler(t, FeedOptions{Client: client})

		rec := getFeed(h, "https://feeds.example.com/rss")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		h := newFeedHandler(t, FeedOptions{Client: upstream.Client(), AllowedHosts: []string{"example.com", " Feeds.Test "}})

		tc := []struct {
			name   string
			target string
			want   int
		}{
			{name: "missing", target: "", want: http.StatusBadRequest},
			{name: "ftp scheme", target: "ftp://example.com/feed", want: http.StatusBadRequest},
			{name: "file scheme", target: "file:///etc/passwd", want: http.StatusBadRequest},
			{name: "relative", target: "/feed.xml", want: http.StatusBadRequest},
			{name: "disallowed host", target: "https://evil.test/feed", want: http.StatusForbidden},
			{name: "suffix trick", target: "https://notexample.com/feed", want: http.StatusForbidden},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				rec := getFeed(h, tt.target)
				if rec.Code != tt.want {
					t.Errorf("expected %d, got %d", tt.want, rec.Code)
				}
			})
		}
	})

	t.Run("Private Targets Refused Without Allowlist", func(t *testing.T) {
		hits.Store(0)
		h := newFeedHandler(t, FeedOptions{Client: upstream.Client()})

		targets := []string{
			upstream.URL + "/feed.xml",
			"http://localhost/feed",
			"http://feeds.localhost./feed",
			"http://10.0.0.8/feed",
			"http://169.254.169.254/latest/meta-data",
			"http://[::1]/feed",
			"http://[::ffff:192.168.1.1]/feed",
			"http://0.0.0.0/feed",
		}
		for _, target := range targets {
			if rec := getFeed(h, target); rec.Code != http.StatusForbidden {
				t.Errorf("%s: expected 403, got %d", target, rec.Code)
			}
		}
		if hits.Load() != 0 {
			t.Errorf("refused targets must not reach upstream, got %d requests", hits.Load())
		}
	})

	t.Run("Default Client Refuses Private Dials", func(t *testing.T) {
		hits.Store(0)
		h := newFeedHandler(t, FeedOptions{})

		_, err := h.fetch(t.Context(), upstream.URL+"/feed.xml")
		if !errors.Is(err, shared.ErrHostNotAllowed) {
			t.Errorf("expected ErrHostNotAllowed from the dialer, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("expected no upstream request, got %d", hits.Load())
		}
	})

	t.Run("Allowlist Permits Listed Private Host", func(t *testing.T) {
		h := newFeedHandler(t, FeedOptions{Client: upstream.Client(), AllowedHosts: []string{"127.0.0.1"}})

		if rec := getFeed(h, upstream.URL+"/feed.xml"); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Host Allowlist", func(t *testing.T) {
		h := newFeedHandler(t, FeedOptions{AllowedHosts: []string{"example.com", " Feeds.Test "}})

		tc := []struct {
			host string
			want bool
		}{
			{"example.com", true},
			{"www.example.com", true},
			{"EXAMPLE.COM", true},
			{"feeds.test", true},
			{"notexample.com", false},
			{"example.com.evil", false},
		}
		for _, tt := range tc {
			if got := h.hostAllowed(tt.host); got != tt.want {
				t.Errorf("hostAllowed(%q) = %v, want %v", tt.host, got, tt.want)
			}
		}
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := t.Context()

	t.Run("Set And Get", func(t *testing.T) {
		c := NewMemoryCache(4, time.Minute)
		c.Set(ctx, "a", FeedEntry{ContentType: "text/xml", Body: []byte("x")})

		got, ok, err := c.Get(ctx, "a")
		if err != nil || !ok || string(got.Body) != "x" {
			t.Errorf("unexpected entry %+v ok=%v err=%v", got, ok, err)
		}
	})

	t.Run("Expires", func(t *testing.T) {
		c := NewMemoryCache(4, 20*time.Millisecond)
		c.Set(ctx, "a", FeedEntry{Body: []byte("x")})
		time.Sleep(60 * time.Millisecond)

		if _, ok, _ := c.Get(ctx, "a"); ok {
			t.Error("expected entry to expire")
		}
	})

	t.Run("Evicts Oldest", func(t *testing.T) {
		c := NewMemoryCache(2, time.Minute)
		c.Set(ctx, "a", FeedEntry{})
		c.Set(ctx, "b", FeedEntry{})
		c.Set(ctx, "c", FeedEntry{})

		if _, ok, _ := c.Get(ctx, "a"); ok {
			t.Error("expected oldest entry to be evicted")
		}
		if c.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", c.Len())
		}
	})
}

func TestPublicHost(t *testing.T) {
	tc := []struct {
		host string
		want bool
	}{
		{"feeds.example.com", true},
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
		{"localhost", false},
		{"LOCALHOST", false},
		{"api.localhost", false},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.0.10", false},
		{"169.254.169.254", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"fd00::1", false},
		{"::ffff:127.0.0.1", false},
		{"224.0.0.1", false},
	}

	for _, tt := range tc {
		t.Run(tt.host, func(t *testing.T) {
			if got := publicHost(tt.host); got != tt.want {
				t.Errorf("publicHost(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("application/atom+xml", nil); got != "application/atom+xml" {
		t.Errorf("expected header to be kept, got %q", got)
	}
	if got := contentType("", []byte(sampleRSS)); !strings.Contains(got, "xml") {
		t.Errorf("expected sniffed xml, got %q", got)
	}
	if got := contentType(";;;", []byte("plain words")); !strings.HasPrefix(got, "text/plain") {
		t.Errorf("expected sniffed text/plain for an unparseable header, got %q", got)
	}
}
