// Package settings persists user-supplied configuration that lives alongside
// the watchlist in local storage rather than in config.toml.
package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/watchx/internal/shared"
)

// APIKeyStorageKey is the local storage key holding the API-key snapshot.
const APIKeyStorageKey = "api-key-config"

// KV is the subset of [storage.LocalStore] used here.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type apiKeySnapshot struct {
	APIKey string `json:"apiKey"`
}

// APIKeyStore holds the user's media catalogue API key.
type APIKeyStore struct {
	kv KV
}

func NewAPIKeyStore(kv KV) *APIKeyStore {
	return &APIKeyStore{kv: kv}
}

// Get returns the stored key, or "" when none has been set.
func (s *APIKeyStore) Get() (string, error) {
	data, ok, err := s.kv.Get(APIKeyStorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	if !ok {
		return "", nil
	}

	var snap apiKeySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return "", fmt.Errorf("failed to decode api key: %w", err)
	}
	return snap.APIKey, nil
}

// Set stores key after trimming surrounding whitespace.
func (s *APIKeyStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: api key is empty", shared.ErrInvalidInput)
	}

	data, err := json.Marshal(apiKeySnapshot{APIKey: key})
	if err != nil {
		return err
	}
	return s.kv.Set(APIKeyStorageKey, data)
}

// Clear removes the stored key.
func (s *APIKeyStore) Clear() error {
	return s.kv.Delete(APIKeyStorageKey)
}

// Masked returns the stored key with all but the last four characters hidden.
func (s *APIKeyStore) Masked() (string, error) {
	key, err := s.Get()
	if err != nil {
		return "", err
	}
	return shared.MaskSecret(key), nil
}
