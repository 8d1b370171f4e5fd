// package services defines HTTP-backed collaborators of the watchlist store
//
// Document service client, OAuth2 identity provider, auth session
package services

import (
	"context"

	"github.com/desertthunder/watchx/internal/models"
)

// IdentityProvider exchanges an OAuth2 authorization code for an authenticated user.
type IdentityProvider interface {
	// AuthURL returns the consent page URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a user with a bearer token.
	Exchange(ctx context.Context, code string) (*models.User, error)

	// Name returns the provider name shown in CLI output.
	Name() string
}

// KV is the subset of [storage.LocalStore] the session persists through.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
