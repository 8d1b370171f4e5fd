package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/watchx/internal/repositories"
	"github.com/desertthunder/watchx/internal/server"
	"github.com/desertthunder/watchx/internal/shared"
)

// Serve runs the document service and RSS proxy until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	cache, closeCache, err := r.feedCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	opts := server.APIOptions{
		APIToken: r.config.Server.APIToken,
		Logger:   r.logger,
		Feeds: server.FeedOptions{
			Cache:        cache,
			UserAgent:    r.config.Feeds.UserAgent,
			AllowedHosts: r.config.Feeds.AllowedHosts,
			AllowPrivate: r.config.Feeds.AllowPrivate,
			RateLimit:    r.config.Feeds.RateLimit,
			RateBurst:    r.config.Feeds.RateBurst,
		},
	}

	if !cmd.Bool("feeds-only") {
		driver := cmd.String("driver")
		if driver == "" {
			driver = r.config.Database.Driver
		}

		docs, closeDocs, err := r.openDocuments(ctx, driver)
		if err != nil {
			return err
		}
		defer closeDocs()
		opts.Documents = docs

		if r.config.Server.APIToken == "" {
			r.logger.Warn("server.api_token is empty; document routes are unauthenticated")
		}
	}

	api := server.NewAPI(opts)
	r.logger.Info("routes registered", "routes", api.Routes())
	return server.Serve(ctx, addr, api, r.logger)
}

// openDocuments opens the configured document store, migrating it as needed.
func (r *Runner) openDocuments(ctx context.Context, driver string) (repositories.Documents, func(), error) {
	switch driver {
	case "", "sqlite":
		db, err := r.openDatabase()
		if err != nil {
			return nil, nil, err
		}
		if err := shared.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Info("using sqlite document store", "path", r.config.Database.Path)
		return repositories.NewDocumentRepository(db), func() { db.Close() }, nil

	case "postgres":
		if r.config.Database.DSN == "" {
			return nil, nil, fmt.Errorf("%w: database.dsn is required for postgres", shared.ErrMissingConfig)
		}
		pool, err := repositories.NewPool(ctx, r.config.Database.DSN, r.config.Database.MaxOpenConns)
		if err != nil {
			return nil, nil, err
		}
		repo := repositories.NewPGDocumentRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		r.logger.Info("using postgres document store")
		return repo, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown database driver %q", shared.ErrInvalidFlag, driver)
	}
}

// feedCache picks Redis when feeds.redis_addr is set and an in-process LRU otherwise.
func (r *Runner) feedCache(ctx context.Context) (server.Cache, func(), error) {
	ttl := r.config.Feeds.CacheTTL.Duration
	if r.config.Feeds.RedisAddr == "" {
		return server.NewMemoryCache(r.config.Feeds.CacheSize, ttl), func() {}, nil
	}

	cache, err := server.NewRedisCache(ctx, r.config.Feeds.RedisAddr, ttl)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("using redis feed cache", "addr", r.config.Feeds.RedisAddr)
	return cache, func() {
		if err := cache.Close(); err != nil {
			r.logger.Warn("failed to close redis cache", "error", err)
		}
	}, nil
}
