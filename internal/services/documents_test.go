package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
	tu "github.com/desertthunder/watchx/internal/testing"
)

func TestDocumentClient(t *testing.T) {
	ctx := context.Background()

	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			c := NewDocumentClient("", "", nil)
			if c.baseURL != defaultDocumentBaseURL {
				t.Errorf("expected default baseURL, got %s", c.baseURL)
			}
			if c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})

		t.Run("Custom Client", func(t *testing.T) {
			custom := &http.Client{}
			c := NewDocumentClient("http://example.com", "tok", custom)
			if c.httpClient != custom {
				t.Error("expected custom client to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				if r.URL.Path != "/api/users/u 1/watchlist" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("expected bearer token, got %q", got)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"watchlist":[{"id":550,"mediaType":"movie","title":"Fight Club"}]}`))
			}))
			defer server.Close()

			doc, err := NewDocumentClient(server.URL, "secret", nil).Get(ctx, "u 1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(doc.Watchlist) != 1 || doc.Watchlist[0].Key() != "movie:550" {
				t.Errorf("unexpected watchlist %+v", doc.Watchlist)
			}
		})

		t.Run("Missing watchlist field", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			doc, err := NewDocumentClient(server.URL, "", nil).Get(ctx, "u1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if doc.Watchlist == nil {
				t.Error("expected non-nil empty watchlist")
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"document not found"}`))
			}))
			defer server.Close()

			_, err := NewDocumentClient(server.URL, "", nil).Get(ctx, "u1")
			if !errors.Is(err, shared.ErrDocumentNotFound) {
				t.Errorf("expected ErrDocumentNotFound, got %v", err)
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			_, err := NewDocumentClient("http://example.com", "", client).Get(ctx, "u1")
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Body Read Failure", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
			_, err := NewDocumentClient("http://example.com", "", client).Get(ctx, "u1")
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	})

	t.Run("Set", func(t *testing.T) {
		var (
			gotMethod string
			gotQuery  string
			gotBody   models.WatchlistDocument
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotQuery = r.URL.RawQuery
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type")
			}
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		doc := models.WatchlistDocument{Watchlist: []models.MediaReference{{ID: 1, MediaType: models.TV}}}
		if err := NewDocumentClient(server.URL, "", nil).Set(ctx, "u1", doc, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotMethod != http.MethodPut || gotQuery != "merge=true" {
			t.Errorf("expected PUT ?merge=true, got %s ?%s", gotMethod, gotQuery)
		}
		if len(gotBody.Watchlist) != 1 || gotBody.Watchlist[0].MediaType != models.TV {
			t.Errorf("unexpected body %+v", gotBody)
		}
	})

	t.Run("Update", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			want   error
		}{
			{name: "ok", status: http.StatusNoContent},
			{name: "not found", status: http.StatusNotFound, want: shared.ErrDocumentNotFound},
			{name: "unauthorized", status: http.StatusUnauthorized, want: shared.ErrUnauthorized},
			{name: "server error", status: http.StatusBadGateway, want: shared.ErrServiceUnavailable},
			{name: "bad request", status: http.StatusBadRequest, want: shared.ErrAPIRequest},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if r.Method != http.MethodPatch {
						t.Errorf("expected PATCH, got %s", r.Method)
					}
					io.Copy(io.Discard, r.Body)
					w.WriteHeader(tt.status)
				}))
				defer server.Close()

				err := NewDocumentClient(server.URL, "", nil).Update(ctx, "u1", models.WatchlistDocument{})
				if tt.want == nil && err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tt.want != nil && !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Health", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		if err := NewDocumentClient(server.URL, "", nil).Health(ctx); err != nil {
			t.Errorf("expected healthy, got %v", err)
		}
	})
}
