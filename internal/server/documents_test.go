package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/repositories"
	"github.com/desertthunder/watchx/internal/services"
	"github.com/desertthunder/watchx/internal/shared"
	tu "github.com/desertthunder/watchx/internal/testing"
	"github.com/desertthunder/watchx/internal/watchlist"
)

var (
	fightClub = models.MediaReference{ID: 550, MediaType: models.Movie, Title: "Fight Club"}
	severance = models.MediaReference{ID: 95396, MediaType: models.TV, Name: "Severance"}
)

func newDocumentServer(t *testing.T, token string) (*httptest.Server, *repositories.DocumentRepository) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repo := repositories.NewDocumentRepository(db)
	api := NewAPI(APIOptions{
		Documents: repo,
		APIToken:  token,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
	})

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDocumentHandler(t *testing.T) {
	srv, _ := newDocumentServer(t, "")
	path := srv.URL + "/api/users/ada/watchlist"

	t.Run("Get Missing", func(t *testing.T) {
		resp := do(t, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Patch Missing", func(t *testing.T) {
		resp := do(t, http.MethodPatch, path, `{"watchlist":[]}`)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Put Then Get", func(t *testing.T) {
		resp := do(t, http.MethodPut, path+"?merge=true", `{"watchlist":[{"id":550,"mediaType":"movie","title":"Fight Club"}]}`)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}

		resp = do(t, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var doc models.WatchlistDocument
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(doc.Watchlist) != 1 || doc.Watchlist[0].Key() != "movie:550" {
			t.Errorf("unexpected document %+v", doc)
		}
		if doc.Revision == "" {
			t.Error("expected a revision")
		}
	})

	t.Run("History", func(t *testing.T) {
		resp := do(t, http.MethodGet, path+"/history?limit=5", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var body struct {
			Events []repositories.DocumentEvent `json:"events"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Events) == 0 || body.Events[0].Operation != repositories.OpMerge {
			t.Errorf("expected a merge event, got %+v", body.Events)
		}
	})

	t.Run("Bad Requests", func(t *testing.T) {
		tc := []struct {
			name   string
			method string
			url    string
			body   string
		}{
			{name: "bad merge flag", method: http.MethodPut, url: path + "?merge=maybe", body: `{"watchlist":[]}`},
			{name: "malformed json", method: http.MethodPut, url: path, body: `{"watchlist":`},
			{name: "invalid item", method: http.MethodPatch, url: path, body: `{"watchlist":[{"id":0,"mediaType":"movie"}]}`},
			{name: "unknown media type", method: http.MethodPut, url: path, body: `{"watchlist":[{"id":1,"mediaType":"book"}]}`},
			{name: "bad limit", method: http.MethodGet, url: path + "/history?limit=-1"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				resp := do(t, tt.method, tt.url, tt.body)
				if resp.StatusCode != http.StatusBadRequest {
					t.Errorf("expected 400, got %d", resp.StatusCode)
				}
			})
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		resp := do(t, http.MethodPost, path, "{}")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		resp := do(t, http.MethodDelete, path, "")
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
		resp = do(t, http.MethodDelete, path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", resp.StatusCode)
		}
	})
}

func TestDocumentHandlerAuth(t *testing.T) {
	srv, _ := newDocumentServer(t, "s3cret")
	ctx := context.Background()

	t.Run("Rejects missing token", func(t *testing.T) {
		client := services.NewDocumentClient(srv.URL, "", srv.Client())
		if _, err := client.Get(ctx, "ada"); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Health stays public", func(t *testing.T) {
		client := services.NewDocumentClient(srv.URL, "", srv.Client())
		if err := client.Health(ctx); err != nil {
			t.Errorf("expected public health check, got %v", err)
		}
	})

	t.Run("Accepts token", func(t *testing.T) {
		client := services.NewDocumentClient(srv.URL, "s3cret", srv.Client())
		if _, err := client.Get(ctx, "ada"); !errors.Is(err, shared.ErrDocumentNotFound) {
			t.Errorf("expected ErrDocumentNotFound past auth, got %v", err)
		}
	})
}

// TestDocumentContract drives the document client against the handler and SQLite repository.
func TestDocumentContract(t *testing.T) {
	srv, _ := newDocumentServer(t, "")
	client := services.NewDocumentClient(srv.URL, "", srv.Client())
	ctx := context.Background()

	if err := client.Update(ctx, "ada", models.WatchlistDocument{}); !errors.Is(err, shared.ErrDocumentNotFound) {
		t.Fatalf("expected update of absent record to fail with ErrDocumentNotFound, got %v", err)
	}

	if err := client.Set(ctx, "ada", models.WatchlistDocument{Watchlist: []models.MediaReference{fightClub}}, true); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Update(ctx, "ada", models.WatchlistDocument{Watchlist: []models.MediaReference{fightClub, severance}}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	doc, err := client.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(doc.Watchlist) != 2 || doc.Watchlist[1].DisplayTitle() != "Severance" {
		t.Errorf("unexpected document %+v", doc.Watchlist)
	}
}

// TestStoreAgainstServer runs a watchlist sync through the HTTP document service.
func TestStoreAgainstServer(t *testing.T) {
	srv, repo := newDocumentServer(t, "")
	ctx := context.Background()

	if err := repo.Set(ctx, "ada", models.WatchlistDocument{Watchlist: []models.MediaReference{severance}}, true); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	auth := tu.NewStaticAuth(nil)
	store := watchlist.New(watchlist.Options{
		Persister: tu.NewMemoryPersister(),
		Remote:    services.NewDocumentClient(srv.URL, "", srv.Client()),
		Auth:      auth,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		store.Close(ctx)
	}()

	store.AddItem(fightClub)
	auth.Emit(&models.User{ID: "ada"})

	if store.Len() != 2 {
		t.Fatalf("expected merged local watchlist of 2, got %d", store.Len())
	}

	doc, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(doc.Watchlist) != 2 {
		t.Errorf("expected remote to be updated with the merged list, got %+v", doc.Watchlist)
	}

	events, _ := repo.History(ctx, "ada", 1)
	if len(events) != 1 || events[0].Operation != repositories.OpUpdate {
		t.Errorf("expected latest event to be an update, got %+v", events)
	}
}
