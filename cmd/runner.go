package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/services"
	"github.com/desertthunder/watchx/internal/settings"
	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/storage"
	"github.com/desertthunder/watchx/internal/watchlist"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	kv       *storage.LocalStore
	session  *services.Session
	store    *watchlist.Store
	remote   watchlist.DocumentStore
	identity services.IdentityProvider
	apiKeys  *settings.APIKeyStore
	updates  chan watchlist.SyncUpdate
	logger   *log.Logger
	output   io.Writer

	restoreOnce sync.Once
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	KV         *storage.LocalStore       // defaults to a memory-only store
	Remote     watchlist.DocumentStore   // defaults to a client for remote.base_url
	Identity   services.IdentityProvider // nil disables `auth login`
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Remote.Timeout.Duration}
	}
	if opts.KV == nil {
		opts.KV = storage.NewMemory()
	}
	if opts.Remote == nil && opts.Config.Remote.BaseURL != "" {
		opts.Remote = services.NewDocumentClient(opts.Config.Remote.BaseURL, opts.Config.Remote.APIToken, opts.HTTPClient)
	}

	r := &Runner{
		config:   opts.Config,
		kv:       opts.KV,
		remote:   opts.Remote,
		identity: opts.Identity,
		apiKeys:  settings.NewAPIKeyStore(opts.KV),
		updates:  make(chan watchlist.SyncUpdate, 16),
		logger:   opts.Logger,
		output:   opts.Output,
	}

	r.wire(opts.Config.Remote.Timeout.Duration)
	return r
}

// wire builds the session and the watchlist store around it. The store
// subscribes here, before any session is restored.
func (r *Runner) wire(writeTimeout time.Duration) {
	r.session = services.NewSession(r.kv, r.logger)
	r.store = watchlist.New(watchlist.Options{
		Persister:    r.kv,
		Remote:       r.remote,
		Auth:         r.session,
		Logger:       r.logger,
		Updates:      r.updates,
		WriteTimeout: writeTimeout,
	})
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, watchlistCommand, configCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger and rebuilds the session and store so
// their output follows it. Call it before the session is restored.
func (r *Runner) SetLogger(l *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.store.Close(ctx); err != nil {
		r.logger.Warn("pending remote writes not flushed", "error", err)
	}

	r.logger = l
	r.wire(r.config.Remote.Timeout.Duration)
}

// restoreSession announces a persisted login once per process, which triggers a cloud sync.
func (r *Runner) restoreSession() *models.User {
	r.restoreOnce.Do(func() {
		if _, err := r.session.Restore(); err != nil {
			r.logger.Warn("failed to restore session", "error", err)
		}
	})
	return r.session.CurrentUser()
}

// drainUpdates returns the sync transitions published so far without blocking.
func (r *Runner) drainUpdates() []watchlist.SyncUpdate {
	var out []watchlist.SyncUpdate
	for {
		select {
		case u := <-r.updates:
			out = append(out, u)
		default:
			return out
		}
	}
}

// Close drains pending remote writes and releases local storage.
func (r *Runner) Close(ctx context.Context) error {
	if err := r.store.Close(ctx); err != nil {
		r.logger.Warn("pending remote writes not flushed", "pending", r.store.PendingWrites(), "error", err)
	}
	return r.kv.Close()
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
