package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketLocal = []byte("local")

// ErrClosed is returned by operations on a store after [LocalStore.Close].
var ErrClosed = errors.New("storage: store is closed")

// LocalStore is a string-keyed persistent store backed by bbolt.
//
// Reads are served from an in-memory copy that is promoted on first access;
// writes go to memory and then to disk.
type LocalStore struct {
	db     *bolt.DB
	mu     sync.RWMutex
	cache  map[string][]byte
	closed bool
}

// Open opens (creating if needed) the bbolt file at path.
//
// An empty path yields a memory-only store.
func Open(path string) (*LocalStore, error) {
	s := &LocalStore{cache: make(map[string][]byte)}
	if path == "" {
		return s, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLocal)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

// NewMemory returns a store that never touches disk.
func NewMemory() *LocalStore {
	s, _ := Open("")
	return s
}

// Persistent reports whether the store is file-backed.
func (s *LocalStore) Persistent() bool {
	return s.db != nil
}

// Get returns the value stored under key. The boolean is false when the key is absent.
func (s *LocalStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, false, ErrClosed
	}
	if v, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return clone(v), true, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketLocal).Get([]byte(key)); v != nil {
			data = clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if data == nil {
		return nil, false, nil
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return clone(data), true, nil
}

// Set stores value under key, replacing any previous value.
func (s *LocalStore) Set(key string, value []byte) error {
	data := clone(value)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLocal).Put([]byte(key), data)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *LocalStore) Delete(key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLocal).Delete([]byte(key))
	})
}

// Keys lists every stored key in lexical order.
func (s *LocalStore) Keys() ([]string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	seen := make(map[string]struct{}, len(s.cache))
	for k := range s.cache {
		seen[k] = struct{}{}
	}
	s.mu.RUnlock()

	if s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketLocal).ForEach(func(k, _ []byte) error {
				seen[string(k)] = struct{}{}
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear deletes every key.
func (s *LocalStore) Clear() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketLocal); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketLocal)
		return err
	})
}

// Close releases the underlying file. Further calls return [ErrClosed].
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetJSON decodes the value under key into dest.
func (s *LocalStore) GetJSON(key string, dest any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return true, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func (s *LocalStore) SetJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return s.Set(key, data)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
