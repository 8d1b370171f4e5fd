package watchlist

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// StorageKey is the local storage key holding the watchlist snapshot.
const StorageKey = "watchlist-storage"

// Persister is the key-value store local state is written through.
type Persister interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// DocumentStore is the remote per-user record store.
//
// Get returns an error wrapping [shared.ErrDocumentNotFound] when no record exists.
type DocumentStore interface {
	Get(ctx context.Context, userID string) (*models.WatchlistDocument, error)
	Set(ctx context.Context, userID string, doc models.WatchlistDocument, merge bool) error
	Update(ctx context.Context, userID string, doc models.WatchlistDocument) error
}

// AuthSource announces sign-in (non-nil user) and sign-out (nil).
type AuthSource interface {
	Subscribe(fn func(*models.User)) (unsubscribe func())
	CurrentUser() *models.User
}

// State is a point-in-time copy of the store.
type State struct {
	Items     []models.MediaReference
	IsLoading bool
}

// snapshot is the persisted form. IsLoading is deliberately absent.
type snapshot struct {
	Items []models.MediaReference `json:"items"`
}

// Options configures [New]. Every collaborator is optional.
type Options struct {
	Persister    Persister         // nil keeps state in memory only
	Remote       DocumentStore     // nil disables cloud sync
	Auth         AuthSource        // nil means never signed in
	Logger       *log.Logger       // defaults to stderr
	Updates      chan<- SyncUpdate // receives sync transitions; sends never block
	WriteTimeout time.Duration     // per remote write; zero means no limit
}

// Store holds the watchlist and reconciles it with the cloud.
type Store struct {
	persister Persister
	remote    DocumentStore
	auth      AuthSource
	logger    *log.Logger
	updates   chan<- SyncUpdate

	mu      sync.Mutex
	items   []models.MediaReference
	loading bool

	queue       *WriteQueue
	unsubscribe func()

	syncMu   sync.Mutex
	syncing  bool
	rerun    bool
	syncs    uint64
	lastSync SyncResult
}

// New builds a store, rehydrates it from the persister and subscribes to auth changes.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Store{
		persister: opts.Persister,
		remote:    opts.Remote,
		auth:      opts.Auth,
		logger:    shared.WithLogger(logger, "component", "watchlist"),
		updates:   opts.Updates,
		items:     []models.MediaReference{},
	}

	s.hydrate()

	if s.remote != nil {
		s.queue = NewWriteQueue(s.remote, s.logger, opts.WriteTimeout)
	}

	if s.auth != nil {
		s.unsubscribe = s.auth.Subscribe(s.onAuthChange)
	}

	return s
}

func (s *Store) onAuthChange(user *models.User) {
	if user == nil {
		s.logger.Debug("signed out; keeping local watchlist")
		return
	}
	s.SyncWithCloud(context.Background())
}

// AddItem appends item unless its key is already present.
//
// Reports whether the item was added. Invalid references are logged and ignored.
func (s *Store) AddItem(item models.MediaReference) bool {
	if err := item.Validate(); err != nil {
		s.logger.Warn("ignoring invalid media reference", "error", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(item.MediaType, item.ID) >= 0 {
		return false
	}

	s.items = append(s.items, item)
	s.persistLocked()
	s.enqueueLocked(WriteJob{Op: OpSet, Items: s.items, Merge: true})
	return true
}

// RemoveItem drops the entry with the given key. Reports whether anything was removed.
func (s *Store) RemoveItem(id int, mediaType models.MediaType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(m models.MediaReference) bool {
		return m.ID == id && m.MediaType == mediaType
	})
	if len(s.items) == before {
		return false
	}

	s.persistLocked()
	s.enqueueLocked(WriteJob{Op: OpUpdate, Items: s.items})
	return true
}

// IsInWatchlist reports whether an entry with the key is present.
func (s *Store) IsInWatchlist(id int, mediaType models.MediaType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(mediaType, id) >= 0
}

// ClearWatchlist empties local state. The remote record is left alone.
func (s *Store) ClearWatchlist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []models.MediaReference{}
	s.persistLocked()
}

// Items returns a copy of the current items in order.
func (s *Store) Items() []models.MediaReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IsLoading reports whether a cloud sync is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// State returns a copy of items and the loading flag.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Items: slices.Clone(s.items), IsLoading: s.loading}
}

// PendingWrites counts remote writes not yet completed.
func (s *Store) PendingWrites() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Pending()
}

// Close unsubscribes from auth changes and waits for queued remote writes.
func (s *Store) Close(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.queue != nil {
		return s.queue.Close(ctx)
	}
	return nil
}

func (s *Store) indexLocked(mediaType models.MediaType, id int) int {
	return slices.IndexFunc(s.items, func(m models.MediaReference) bool {
		return m.ID == id && m.MediaType == mediaType
	})
}

// currentUserID returns "" when signed out or when cloud sync is disabled.
func (s *Store) currentUserID() string {
	if s.auth == nil || s.remote == nil {
		return ""
	}
	if u := s.auth.CurrentUser(); u != nil {
		return u.ID
	}
	return ""
}

// enqueueLocked hands a snapshot to the write queue when a user is signed in.
func (s *Store) enqueueLocked(job WriteJob) {
	userID := s.currentUserID()
	if userID == "" {
		return
	}
	job.UserID = userID
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("dropping remote write", "op", job.Op, "user", userID, "error", err)
	}
}

func (s *Store) hydrate() {
	if s.persister == nil {
		return
	}

	data, ok, err := s.persister.Get(StorageKey)
	if err != nil {
		s.logger.Warn("failed to read local watchlist", "error", err)
		return
	}
	if !ok {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("discarding unreadable local watchlist", "error", err)
		return
	}

	seen := make(map[string]struct{}, len(snap.Items))
	for _, item := range snap.Items {
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		s.items = append(s.items, item)
	}
	s.logger.Debug("restored local watchlist", "items", len(s.items))
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}

	data, err := json.Marshal(snapshot{Items: s.items})
	if err != nil {
		s.logger.Warn("failed to encode local watchlist", "error", err)
		return
	}
	if err := s.persister.Set(StorageKey, data); err != nil {
		s.logger.Warn("failed to persist local watchlist", "error", err)
	}
}

// sendUpdate publishes u without blocking.
func (s *Store) sendUpdate(u SyncUpdate) {
	if s.updates == nil {
		return
	}
	select {
	case s.updates <- u:
	default:
	}
}
