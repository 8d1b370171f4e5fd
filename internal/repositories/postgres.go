package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS user_documents (
	user_id TEXT PRIMARY KEY,
	watchlist JSONB NOT NULL DEFAULT '[]'::jsonb,
	revision TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS document_events (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	item_count INTEGER NOT NULL,
	revision TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_document_events_user ON document_events(user_id);
`

// NewPool opens a pgx connection pool for dsn and verifies it with a ping.
func NewPool(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres dsn: %v", shared.ErrInvalidConfig, err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// PGDocumentRepository stores watchlist documents in PostgreSQL.
type PGDocumentRepository struct {
	pool *pgxpool.Pool
}

func NewPGDocumentRepository(pool *pgxpool.Pool) *PGDocumentRepository {
	return &PGDocumentRepository{pool: pool}
}

// EnsureSchema creates the tables when they do not exist.
func (r *PGDocumentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create postgres schema: %w", err)
	}
	return nil
}

func (r *PGDocumentRepository) Get(ctx context.Context, userID string) (*models.WatchlistDocument, error) {
	var (
		raw       []byte
		revision  string
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT watchlist, revision, updated_at FROM user_documents WHERE user_id = $1`,
		userID,
	).Scan(&raw, &revision, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	items, err := decodeWatchlist(raw)
	if err != nil {
		return nil, err
	}
	return &models.WatchlistDocument{Watchlist: items, Revision: revision, UpdatedAt: updatedAt}, nil
}

func (r *PGDocumentRepository) Set(ctx context.Context, userID string, doc models.WatchlistDocument, merge bool) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	raw, err := encodeWatchlist(doc.Watchlist)
	if err != nil {
		return err
	}

	conflict := `ON CONFLICT (user_id) DO UPDATE SET watchlist = EXCLUDED.watchlist, revision = EXCLUDED.revision, updated_at = EXCLUDED.updated_at`
	if !merge {
		conflict = `ON CONFLICT (user_id) DO UPDATE SET watchlist = EXCLUDED.watchlist, revision = EXCLUDED.revision, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`
	}
	query := `INSERT INTO user_documents (user_id, watchlist, revision, created_at, updated_at) VALUES ($1, $2::jsonb, $3, $4, $4) ` + conflict

	return r.write(ctx, setOperation(merge), userID, len(doc.Watchlist), func(tx pgx.Tx, revision string, now time.Time) error {
		if _, err := tx.Exec(ctx, query, userID, raw, revision, now); err != nil {
			return fmt.Errorf("failed to set document: %w", err)
		}
		return nil
	})
}

func (r *PGDocumentRepository) Update(ctx context.Context, userID string, doc models.WatchlistDocument) error {
	raw, err := encodeWatchlist(doc.Watchlist)
	if err != nil {
		return err
	}

	return r.write(ctx, OpUpdate, userID, len(doc.Watchlist), func(tx pgx.Tx, revision string, now time.Time) error {
		tag, err := tx.Exec(ctx,
			`UPDATE user_documents SET watchlist = $1::jsonb, revision = $2, updated_at = $3 WHERE user_id = $4`,
			raw, revision, now, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
		}
		return nil
	})
}

func (r *PGDocumentRepository) Delete(ctx context.Context, userID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM user_documents WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
		}
		_, err = tx.Exec(ctx, `DELETE FROM document_events WHERE user_id = $1`, userID)
		return err
	})
}

func (r *PGDocumentRepository) History(ctx context.Context, userID string, limit int) ([]DocumentEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, operation, item_count, revision, created_at
		 FROM document_events
		 WHERE user_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query document events: %w", err)
	}
	defer rows.Close()

	var events []DocumentEvent
	for rows.Next() {
		var (
			e  DocumentEvent
			op string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &op, &e.ItemCount, &e.Revision, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Operation = Operation(op)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PGDocumentRepository) write(ctx context.Context, op Operation, userID string, count int, fn func(pgx.Tx, string, time.Time) error) error {
	revision := shared.GenerateID()
	now := time.Now().UTC()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := fn(tx, revision, now); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO document_events (user_id, operation, item_count, revision, created_at) VALUES ($1, $2, $3, $4, $5)`,
			userID, string(op), count, revision, now,
		)
		if err != nil {
			return fmt.Errorf("failed to record document event: %w", err)
		}
		return nil
	})
}
