package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/storage"
)

func newTestSession(kv KV) *Session {
	return NewSession(kv, shared.NewLogger(&bytes.Buffer{}))
}

func TestSession(t *testing.T) {
	ada := &models.User{ID: "u-1", Name: "Ada", Token: "tok"}

	t.Run("Login notifies and persists", func(t *testing.T) {
		kv := storage.NewMemory()
		s := newTestSession(kv)

		var seen []*models.User
		s.Subscribe(func(u *models.User) { seen = append(seen, u) })

		if err := s.Login(ada); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if len(seen) != 1 || seen[0].ID != "u-1" {
			t.Fatalf("expected one notification with u-1, got %+v", seen)
		}
		if s.CurrentUser().ID != "u-1" {
			t.Errorf("expected current user u-1")
		}
		if _, ok, _ := kv.Get(SessionStorageKey); !ok {
			t.Error("expected session to be persisted")
		}
	})

	t.Run("Login rejects empty user", func(t *testing.T) {
		s := newTestSession(storage.NewMemory())
		if err := s.Login(&models.User{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := s.Login(nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Logout notifies nil", func(t *testing.T) {
		kv := storage.NewMemory()
		s := newTestSession(kv)
		_ = s.Login(ada)

		var last *models.User = ada
		calls := 0
		s.Subscribe(func(u *models.User) { last = u; calls++ })

		if err := s.Logout(); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if calls != 1 || last != nil {
			t.Errorf("expected a nil notification, got calls=%d last=%v", calls, last)
		}
		if s.CurrentUser() != nil {
			t.Error("expected no current user")
		}
		if _, ok, _ := kv.Get(SessionStorageKey); ok {
			t.Error("expected persisted session to be removed")
		}
	})

	t.Run("Restore announces persisted user", func(t *testing.T) {
		kv := storage.NewMemory()
		_ = newTestSession(kv).Login(ada)

		s := newTestSession(kv)
		var seen *models.User
		s.Subscribe(func(u *models.User) { seen = u })

		user, err := s.Restore()
		if err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if user == nil || user.ID != "u-1" || seen == nil || seen.Token != "tok" {
			t.Errorf("expected restored u-1, got user=%v seen=%v", user, seen)
		}
	})

	t.Run("Restore without session", func(t *testing.T) {
		s := newTestSession(storage.NewMemory())
		called := false
		s.Subscribe(func(*models.User) { called = true })

		user, err := s.Restore()
		if err != nil || user != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", user, err)
		}
		if called {
			t.Error("subscribers should not be notified without a session")
		}
	})

	t.Run("Restore discards corrupt session", func(t *testing.T) {
		kv := storage.NewMemory()
		_ = kv.Set(SessionStorageKey, []byte("{broken"))

		user, err := newTestSession(kv).Restore()
		if err != nil || user != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", user, err)
		}
		if _, ok, _ := kv.Get(SessionStorageKey); ok {
			t.Error("corrupt session should be deleted")
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		s := newTestSession(storage.NewMemory())
		calls := 0
		unsubscribe := s.Subscribe(func(*models.User) { calls++ })
		unsubscribe()
		unsubscribe()

		_ = s.Login(ada)
		if calls != 0 {
			t.Errorf("expected no calls after unsubscribe, got %d", calls)
		}
	})

	t.Run("Subscribers run in order", func(t *testing.T) {
		s := newTestSession(storage.NewMemory())
		var order []int
		for i := range 3 {
			s.Subscribe(func(*models.User) { order = append(order, i) })
		}
		_ = s.Login(ada)
		if len(order) != 3 || order[0] != 0 || order[2] != 2 {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("CurrentUser returns a copy", func(t *testing.T) {
		s := newTestSession(storage.NewMemory())
		_ = s.Login(ada)
		u := s.CurrentUser()
		u.Name = "changed"
		if s.CurrentUser().Name != "Ada" {
			t.Error("mutating the returned user must not affect the session")
		}
	})
}
