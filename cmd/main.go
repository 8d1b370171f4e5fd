package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/watchx/internal/services"
	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/storage"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p := os.Getenv(shared.EnvPrefix + "CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.ApplyEnv(config)

	logger, closer := configureLogger(logger, config.Logging)
	if closer != nil {
		defer closer.Close()
	}

	kv, err := storage.Open(config.Storage.Path)
	if err != nil {
		logger.Warn("local storage unavailable, keeping state in memory", "path", config.Storage.Path, "error", err)
		kv = storage.NewMemory()
	}

	httpClient := &http.Client{Timeout: config.Remote.Timeout.Duration}

	var identity services.IdentityProvider
	if config.Auth.ClientID != "" && config.Auth.ClientSecret != "" {
		if svc, err := services.NewIdentityService(config.Auth); err == nil {
			identity = svc.WithHTTPClient(httpClient)
		} else {
			logger.Debug("identity provider disabled", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		KV:         kv,
		Identity:   identity,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "watchx",
		Usage:    "Keep a movie & TV watchlist in sync across devices",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	runErr := app.Run(context.Background(), os.Args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := runner.Close(ctx); err != nil {
		logger.Warn("failed to close local storage", "error", err)
	}
	cancel()

	if runErr != nil {
		err_ := errors.Unwrap(runErr)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", runErr)
		}
	}
}

// configureLogger applies [logging] settings, switching to a rotating file when one is set.
func configureLogger(logger *log.Logger, cfg shared.LoggingConfig) (*log.Logger, io.Closer) {
	var closer io.Closer
	if cfg.File != "" {
		logger, closer = shared.NewFileLogger(cfg.File)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(cfg.Level))
	return logger, closer
}
