package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

const defaultRedirectURI = "http://127.0.0.1:3000/callback"

// userInfo is the subset of an OpenID Connect userinfo response we read.
//
// Providers that are not OIDC compliant usually return "id" instead of "sub".
type userInfo struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IdentityService implements [IdentityProvider] with the OAuth2 authorization code flow.
type IdentityService struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewIdentityService creates a new identity service from the [auth] config section.
func NewIdentityService(cfg shared.AuthConfig) (*IdentityService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: auth.client_id", shared.ErrMissingConfig)
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("%w: auth.auth_url and auth.token_url are required", shared.ErrMissingConfig)
	}
	if cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("%w: auth.userinfo_url", shared.ErrMissingConfig)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	return &IdentityService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  http.DefaultClient,
	}, nil
}

// WithHTTPClient overrides the client used for token exchange and userinfo requests.
func (s *IdentityService) WithHTTPClient(c *http.Client) *IdentityService {
	s.httpClient = c
	return s
}

func (s *IdentityService) Name() string {
	return "OAuth2"
}

// RedirectURL returns the callback URL registered with the provider.
func (s *IdentityService) RedirectURL() string {
	return s.config.RedirectURL
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *IdentityService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades code for a token and resolves the user's profile.
func (s *IdentityService) Exchange(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	id := info.Sub
	if id == "" {
		id = info.ID
	}
	if id == "" {
		return nil, fmt.Errorf("%w: userinfo response has no subject", shared.ErrAuthFailed)
	}

	return &models.User{ID: id, Name: info.Name, Email: info.Email, Token: token.AccessToken}, nil
}

func (s *IdentityService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo request failed: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: userinfo status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &info, nil
}
