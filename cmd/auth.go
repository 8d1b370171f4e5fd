package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/server"
	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/watchlist"
)

const (
	loginTimeout    = 2 * time.Minute
	shutdownTimeout = 5 * time.Second
)

type healthChecker interface {
	Health(ctx context.Context) error
}

// AuthLogin signs in through the configured identity provider and starts a cloud sync.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.identity == nil {
		return fmt.Errorf("%w: set auth.client_id and auth.client_secret (or WATCHX_CLIENT_ID / WATCHX_CLIENT_SECRET)", shared.ErrMissingConfig)
	}

	user, err := r.doOAuth(ctx, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if err := r.session.Login(user); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	// The store's session subscriber has already synced by the time Login returns.
	r.writePlain("✓ Signed in as %s via %s\n", user, r.identity.Name())
	if r.remote == nil {
		r.writePlain("• remote.base_url is not set; your watchlist stays on this device\n")
		return nil
	}

	for _, u := range r.drainUpdates() {
		switch u.State {
		case watchlist.Merged, watchlist.PushedInitial, watchlist.NoOp:
			r.writePlain("✓ %s\n", u.Message)
		case watchlist.Failed:
			r.writePlain("✗ %s\n", u.Message)
		}
	}
	return r.writePlain("Watchlist: %d items\n", r.store.Len())
}

// doOAuth runs a local callback server, opens the browser, and waits for the exchange.
func (r *Runner) doOAuth(ctx context.Context, timeout time.Duration) (*models.User, error) {
	addr, err := callbackAddr(r.config)
	if err != nil {
		return nil, err
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(r.identity, state)

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger))
	router.Handler(handler)

	srv := &http.Server{Addr: addr, Handler: router}
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("callback server shutdown failed", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	authURL := r.identity.AuthURL(state)
	r.logger.Debug("waiting for OAuth callback", "addr", addr)
	r.writePlain("Opening browser to sign in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to continue:\n\n  %s\n\n", authURL)
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return result.User, nil
	case err := <-serverErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callbackAddr is the listen address implied by auth.redirect_uri.
func callbackAddr(cfg *shared.Config) (string, error) {
	if cfg.Auth.RedirectURI == "" {
		return cfg.Server.Addr(), nil
	}

	u, err := url.Parse(cfg.Auth.RedirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: auth.redirect_uri %q", shared.ErrInvalidConfig, cfg.Auth.RedirectURI)
	}

	host, port := u.Hostname(), u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(host, port), nil
}

// AuthLogout forgets the signed-in user. The local watchlist is kept.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	user := r.restoreSession()
	if user == nil {
		return r.writePlain("• Not signed in\n")
	}

	if err := r.session.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out %s (%d items kept on this device)\n", user, r.store.Len())
}

// AuthStatus shows the signed-in user and checks the document service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	user := r.restoreSession()
	if user == nil {
		r.writePlain("Authentication: ✗ Not signed in\n")
	} else {
		r.writePlain("Authentication: ✓ %s\n", user)
	}
	r.writePlain("Local items: %d\n", r.store.Len())

	if r.remote == nil {
		return r.writePlain("Document service: not configured\n")
	}

	hc, ok := r.remote.(healthChecker)
	if !ok {
		return r.writePlain("Document service: configured\n")
	}
	if err := hc.Health(ctx); err != nil {
		r.writePlain("Document service: ✗ %v\n", err)
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return r.writePlain("Document service: ✓ healthy\n")
}
