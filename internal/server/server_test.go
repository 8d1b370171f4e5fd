package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/watchx/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Method Patterns", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/items/{id}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte(req.PathValue("id")))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "42" {
			t.Errorf("expected 200 with path value, got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/42", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handler(HealthHandler{})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("Routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(HealthHandler{})
		r.Handle(http.MethodPost, "/items", http.NotFoundHandler())

		got := strings.Join(r.Routes(), ",")
		if got != "GET /health,POST /items" {
			t.Errorf("unexpected routes %q", got)
		}
	})
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("RequestLogger", func(t *testing.T) {
		var buf bytes.Buffer
		h := RequestLogger(shared.NewLogger(&buf))(ok)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected a generated request id")
		}
		if !strings.Contains(buf.String(), "status=418") || !strings.Contains(buf.String(), "path=/x") {
			t.Errorf("unexpected log line: %s", buf.String())
		}
	})

	t.Run("RequestLogger keeps incoming id", func(t *testing.T) {
		h := RequestLogger(shared.NewLogger(&bytes.Buffer{}))(ok)
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "abc")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Header().Get(RequestIDHeader) != "abc" {
			t.Errorf("expected incoming id, got %q", rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		var buf bytes.Buffer
		h := Recoverer(shared.NewLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("BearerAuth", func(t *testing.T) {
		tc := []struct {
			name   string
			token  string
			header string
			want   int
		}{
			{name: "disabled", token: "", header: "", want: http.StatusTeapot},
			{name: "missing header", token: "s3cret", header: "", want: http.StatusUnauthorized},
			{name: "wrong token", token: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
			{name: "wrong scheme", token: "s3cret", header: "Basic s3cret", want: http.StatusUnauthorized},
			{name: "valid", token: "s3cret", header: "Bearer s3cret", want: http.StatusTeapot},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				if tt.header != "" {
					req.Header.Set("Authorization", tt.header)
				}
				rec := httptest.NewRecorder()
				BearerAuth(tt.token)(ok).ServeHTTP(rec, req)
				if rec.Code != tt.want {
					t.Errorf("expected %d, got %d", tt.want, rec.Code)
				}
			})
		}
	})
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
