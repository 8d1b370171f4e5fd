package watchlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

// SyncWithCloud reconciles local state with the signed-in user's remote record.
//
// If a sync is already running the call returns immediately with Coalesced set,
// and one more sync runs after the current one finishes.
func (s *Store) SyncWithCloud(ctx context.Context) SyncResult {
	s.syncMu.Lock()
	if s.syncing {
		s.rerun = true
		s.syncMu.Unlock()
		return SyncResult{Outcome: Loading, Coalesced: true, Items: s.Len()}
	}
	s.syncing = true
	s.syncMu.Unlock()

	for {
		result := s.syncOnce(ctx)

		s.syncMu.Lock()
		if !s.rerun || ctx.Err() != nil {
			s.rerun = false
			s.syncing = false
			s.syncs++
			s.lastSync = result
			s.syncMu.Unlock()
			return result
		}
		s.rerun = false
		s.syncMu.Unlock()
	}
}

// LastSync returns the result of the most recent completed sync and how many
// syncs have completed. Coalesced triggers are not counted.
func (s *Store) LastSync() (SyncResult, uint64) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.lastSync, s.syncs
}

func (s *Store) syncOnce(ctx context.Context) SyncResult {
	if s.remote == nil {
		return SyncResult{Outcome: NoOp, Items: s.Len(), Err: fmt.Errorf("%w: no document store configured", shared.ErrServiceUnavailable)}
	}
	userID := s.currentUserID()
	if userID == "" {
		return SyncResult{Outcome: NoOp, Items: s.Len(), Err: shared.ErrNotAuthenticated}
	}

	logger := s.logger.With("user", userID)

	s.setLoading(true)
	s.sendUpdate(loadingUpdate(userID, s.Len()))
	defer func() {
		s.setLoading(false)
		s.sendUpdate(idleUpdate(userID, s.Len()))
	}()

	doc, err := s.remote.Get(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrDocumentNotFound):
		return s.pushInitial(ctx, userID)
	case err != nil:
		logger.Error("failed to read cloud watchlist", "error", err)
		s.sendUpdate(failedUpdate(userID, s.Len(), err))
		return SyncResult{Outcome: Failed, Items: s.Len(), Err: err}
	}

	s.mu.Lock()
	merged := Merge(s.items, doc.Watchlist)
	s.items = merged
	s.persistLocked()

	var done <-chan error
	if len(merged) > len(doc.Watchlist) {
		done, err = s.queue.enqueue(WriteJob{Op: OpUpdate, UserID: userID, Items: merged}, true)
	}
	count := len(s.items)
	s.mu.Unlock()

	if err == nil && done != nil {
		err = wait(ctx, done)
	}
	if err != nil {
		logger.Error("failed to write merged watchlist", "error", err)
	} else {
		logger.Info("merged cloud watchlist", "remote", len(doc.Watchlist), "items", count)
	}

	update := mergedUpdate(userID, count, len(doc.Watchlist))
	update.Err = err
	s.sendUpdate(update)
	return SyncResult{Outcome: Merged, Items: count, Pushed: done != nil, Err: err}
}

// pushInitial uploads local items as the user's first remote record.
func (s *Store) pushInitial(ctx context.Context, userID string) SyncResult {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		s.sendUpdate(noOpUpdate(userID))
		return SyncResult{Outcome: NoOp}
	}
	done, err := s.queue.enqueue(WriteJob{Op: OpSet, UserID: userID, Items: s.items, Merge: true}, true)
	count := len(s.items)
	s.mu.Unlock()

	if err == nil {
		err = wait(ctx, done)
	}
	if err == nil {
		s.logger.Info("created cloud watchlist", "user", userID, "items", count)
	}

	update := pushedUpdate(userID, count)
	update.Err = err
	s.sendUpdate(update)
	return SyncResult{Outcome: PushedInitial, Items: count, Pushed: true, Err: err}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Merge combines local and remote items by composite key.
//
// Local items come first in their original order. A remote item whose key is
// already present replaces the local value in place; remote-only keys are
// appended in remote order. Duplicate keys within either input collapse to one
// entry, the later value winning.
func Merge(local, remote []models.MediaReference) []models.MediaReference {
	out := make([]models.MediaReference, 0, len(local)+len(remote))
	pos := make(map[string]int, len(local)+len(remote))

	apply := func(item models.MediaReference) {
		key := item.Key()
		if i, ok := pos[key]; ok {
			out[i] = item
			return
		}
		pos[key] = len(out)
		out = append(out, item)
	}

	for _, item := range local {
		apply(item)
	}
	for _, item := range remote {
		apply(item)
	}
	return out
}
