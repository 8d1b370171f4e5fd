// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// DocCall records one call made against [MemoryDocumentStore].
type DocCall struct {
	Op     string // get, set, update
	UserID string
	Items  []models.MediaReference
	Merge  bool
}

// MemoryDocumentStore is an in-memory remote document store with injectable failures.
type MemoryDocumentStore struct {
	mu    sync.Mutex
	docs  map[string][]models.MediaReference
	calls []DocCall

	GetErr    error
	SetErr    error
	UpdateErr error

	// BeforeGet runs (outside the lock) before Get reads the document.
	BeforeGet func()
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string][]models.MediaReference)}
}

// Seed stores items for userID without recording a call.
func (m *MemoryDocumentStore) Seed(userID string, items ...models.MediaReference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = append([]models.MediaReference{}, items...)
}

// Items returns the stored watchlist for userID and whether a record exists.
func (m *MemoryDocumentStore) Items(userID string) ([]models.MediaReference, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.docs[userID]
	return append([]models.MediaReference{}, items...), ok
}

// Calls returns a copy of every recorded call.
func (m *MemoryDocumentStore) Calls() []DocCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DocCall{}, m.calls...)
}

// WriteCalls returns recorded set and update calls only.
func (m *MemoryDocumentStore) WriteCalls() []DocCall {
	var out []DocCall
	for _, c := range m.Calls() {
		if c.Op != "get" {
			out = append(out, c)
		}
	}
	return out
}

func (m *MemoryDocumentStore) Get(ctx context.Context, userID string) (*models.WatchlistDocument, error) {
	if m.BeforeGet != nil {
		m.BeforeGet()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, DocCall{Op: "get", UserID: userID})

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	items, ok := m.docs[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
	}
	return &models.WatchlistDocument{Watchlist: append([]models.MediaReference{}, items...)}, nil
}

func (m *MemoryDocumentStore) Set(ctx context.Context, userID string, doc models.WatchlistDocument, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]models.MediaReference{}, doc.Watchlist...)
	m.calls = append(m.calls, DocCall{Op: "set", UserID: userID, Items: items, Merge: merge})

	if m.SetErr != nil {
		return m.SetErr
	}
	m.docs[userID] = items
	return nil
}

func (m *MemoryDocumentStore) Update(ctx context.Context, userID string, doc models.WatchlistDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]models.MediaReference{}, doc.Watchlist...)
	m.calls = append(m.calls, DocCall{Op: "update", UserID: userID, Items: items})

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.docs[userID]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
	}
	m.docs[userID] = items
	return nil
}

// StaticAuth is an auth signal source driven by the test.
type StaticAuth struct {
	mu   sync.Mutex
	user *models.User
	subs []func(*models.User)
}

func NewStaticAuth(user *models.User) *StaticAuth {
	return &StaticAuth{user: user}
}

func (a *StaticAuth) Subscribe(fn func(*models.User)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
	idx := len(a.subs) - 1
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.subs[idx] = nil
	}
}

func (a *StaticAuth) CurrentUser() *models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// Emit sets the current user and synchronously notifies subscribers.
func (a *StaticAuth) Emit(user *models.User) {
	a.mu.Lock()
	a.user = user
	subs := append([]func(*models.User){}, a.subs...)
	a.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(user)
		}
	}
}

// Subscribers counts active subscriptions.
func (a *StaticAuth) Subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, fn := range a.subs {
		if fn != nil {
			n++
		}
	}
	return n
}

// MemoryPersister is an in-memory key-value store whose writes can be made to fail.
type MemoryPersister struct {
	mu     sync.Mutex
	data   map[string][]byte
	SetErr error
	writes int
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (p *MemoryPersister) Get(key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (p *MemoryPersister) Set(key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	if p.SetErr != nil {
		return p.SetErr
	}
	p.data[key] = append([]byte(nil), value...)
	return nil
}

func (p *MemoryPersister) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}

// Writes counts Set calls, including failed ones.
func (p *MemoryPersister) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
