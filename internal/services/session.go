package services

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// SessionStorageKey is the local storage key holding the signed-in user.
const SessionStorageKey = "auth-session"

// Session tracks the authenticated user and broadcasts every change.
//
// Subscribe does not replay the current user; [Session.Restore] announces a
// persisted session once all subscribers are attached.
type Session struct {
	kv     KV
	logger *log.Logger

	mu     sync.Mutex
	user   *models.User
	subs   map[int]func(*models.User)
	nextID int
}

func NewSession(kv KV, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{kv: kv, logger: logger, subs: make(map[int]func(*models.User))}
}

// Subscribe registers fn for auth transitions and returns a func that removes it.
func (s *Session) Subscribe(fn func(*models.User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Session) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Login persists user and notifies subscribers.
//
// Subscribers run synchronously, so Login returns after any sync they start.
func (s *Session) Login(user *models.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.kv.Set(SessionStorageKey, data); err != nil {
		s.logger.Warn("failed to persist session", "user", user.ID, "error", err)
	}

	s.set(user)
	s.logger.Info("signed in", "user", user.ID)
	return nil
}

// Logout clears the persisted session and notifies subscribers with nil.
func (s *Session) Logout() error {
	if err := s.kv.Delete(SessionStorageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.set(nil)
	s.logger.Info("signed out")
	return nil
}

// Restore loads a persisted session and, when one exists, announces it.
//
// A corrupt snapshot is discarded.
func (s *Session) Restore() (*models.User, error) {
	data, ok, err := s.kv.Get(SessionStorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		s.logger.Warn("discarding unreadable session", "error", err)
		_ = s.kv.Delete(SessionStorageKey)
		return nil, nil
	}

	s.set(&user)
	s.logger.Debug("restored session", "user", user.ID)
	return s.CurrentUser(), nil
}

func (s *Session) set(user *models.User) {
	s.mu.Lock()
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	subs := make([]func(*models.User), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(s.CurrentUser())
	}
}
