package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// Documents is the document-store contract served over HTTP by `watchx serve`.
type Documents interface {
	Get(ctx context.Context, userID string) (*models.WatchlistDocument, error)
	Set(ctx context.Context, userID string, doc models.WatchlistDocument, merge bool) error
	Update(ctx context.Context, userID string, doc models.WatchlistDocument) error
	Delete(ctx context.Context, userID string) error
	History(ctx context.Context, userID string, limit int) ([]DocumentEvent, error)
}

// Operation names a kind of document write.
type Operation string

const (
	OpSet    Operation = "set"
	OpMerge  Operation = "merge"
	OpUpdate Operation = "update"
)

// DocumentEvent is one entry in a user's write history.
type DocumentEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Operation Operation `json:"operation"`
	ItemCount int       `json:"itemCount"`
	Revision  string    `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
}

func setOperation(merge bool) Operation {
	if merge {
		return OpMerge
	}
	return OpSet
}

// encodeWatchlist serializes the watchlist column. A nil list is stored as [].
func encodeWatchlist(items []models.MediaReference) (string, error) {
	if items == nil {
		items = []models.MediaReference{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode watchlist: %w", err)
	}
	return string(data), nil
}

func decodeWatchlist(data []byte) ([]models.MediaReference, error) {
	var items []models.MediaReference
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode watchlist: %w", err)
	}
	if items == nil {
		items = []models.MediaReference{}
	}
	return items, nil
}

func validateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}
	return nil
}
