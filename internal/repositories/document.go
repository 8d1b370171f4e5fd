package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// DocumentRepository stores watchlist documents in SQLite.
type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentRepository creates a new DocumentRepository with the given database connection
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: time.Now}
}

// Get retrieves the document for userID.
func (r *DocumentRepository) Get(ctx context.Context, userID string) (*models.WatchlistDocument, error) {
	query := `SELECT watchlist, revision, updated_at FROM user_documents WHERE user_id = ?`

	var (
		raw       string
		revision  string
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw, &revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	items, err := decodeWatchlist([]byte(raw))
	if err != nil {
		return nil, err
	}

	return &models.WatchlistDocument{Watchlist: items, Revision: revision, UpdatedAt: updatedAt}, nil
}

// Set creates the document or writes its watchlist field.
//
// With merge the existing record keeps its created_at; without merge the record is replaced.
func (r *DocumentRepository) Set(ctx context.Context, userID string, doc models.WatchlistDocument, merge bool) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	raw, err := encodeWatchlist(doc.Watchlist)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_documents (user_id, watchlist, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			watchlist = excluded.watchlist,
			revision = excluded.revision,
			updated_at = excluded.updated_at
	`
	if !merge {
		query = `
			INSERT OR REPLACE INTO user_documents (user_id, watchlist, revision, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`
	}

	return r.write(ctx, setOperation(merge), userID, len(doc.Watchlist), func(tx *sql.Tx, revision string, now time.Time) error {
		if _, err := tx.ExecContext(ctx, query, userID, raw, revision, now, now); err != nil {
			return fmt.Errorf("failed to set document: %w", err)
		}
		return nil
	})
}

// Update overwrites the watchlist field of an existing document.
func (r *DocumentRepository) Update(ctx context.Context, userID string, doc models.WatchlistDocument) error {
	raw, err := encodeWatchlist(doc.Watchlist)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_documents
		SET watchlist = ?, revision = ?, updated_at = ?
		WHERE user_id = ?
	`

	return r.write(ctx, OpUpdate, userID, len(doc.Watchlist), func(tx *sql.Tx, revision string, now time.Time) error {
		result, err := tx.ExecContext(ctx, query, raw, revision, now, userID)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
		}
		return nil
	})
}

// Delete removes the document and its history.
func (r *DocumentRepository) Delete(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM user_documents WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, userID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_events WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete document events: %w", err)
	}

	return tx.Commit()
}

// History returns the most recent writes for userID, newest first.
func (r *DocumentRepository) History(ctx context.Context, userID string, limit int) ([]DocumentEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, operation, item_count, revision, created_at
		FROM document_events
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query document events: %w", err)
	}
	defer rows.Close()

	var events []DocumentEvent
	for rows.Next() {
		var e DocumentEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Operation, &e.ItemCount, &e.Revision, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

// write runs fn and the matching event insert in one transaction.
func (r *DocumentRepository) write(ctx context.Context, op Operation, userID string, count int, fn func(*sql.Tx, string, time.Time) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	revision := shared.GenerateID()
	now := r.now().UTC()

	if err := fn(tx, revision, now); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO document_events (user_id, operation, item_count, revision, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, string(op), count, revision, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record document event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document write: %w", err)
	}
	return nil
}
