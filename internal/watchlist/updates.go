package watchlist

import "fmt"

// SyncState is a step of the cloud sync state machine.
type SyncState int

const (
	Idle SyncState = iota
	Loading
	Merged
	PushedInitial
	NoOp
	Failed
)

func (s SyncState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Merged:
		return "merged"
	case PushedInitial:
		return "pushed_initial"
	case NoOp:
		return "no_op"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// SyncUpdate is published on every sync transition.
type SyncUpdate struct {
	State   SyncState
	UserID  string
	Items   int    // local item count after the transition
	Message string // human-readable message for display
	Err     error
}

// SyncResult reports how a call to [Store.SyncWithCloud] ended.
//
// Err is informational: the store has already logged it.
type SyncResult struct {
	Outcome   SyncState
	Items     int  // local item count after the sync
	Pushed    bool // a remote write was issued
	Coalesced bool // another sync was running; this trigger was folded into its follow-up run
	Err       error
}

func loadingUpdate(userID string, items int) SyncUpdate {
	return SyncUpdate{
		State:   Loading,
		UserID:  userID,
		Items:   items,
		Message: fmt.Sprintf("Syncing watchlist for %s...", userID),
	}
}

func mergedUpdate(userID string, items, remote int) SyncUpdate {
	return SyncUpdate{
		State:   Merged,
		UserID:  userID,
		Items:   items,
		Message: fmt.Sprintf("Merged %d remote items (%d total)", remote, items),
	}
}

func pushedUpdate(userID string, items int) SyncUpdate {
	return SyncUpdate{
		State:   PushedInitial,
		UserID:  userID,
		Items:   items,
		Message: fmt.Sprintf("Uploaded %d items to a new cloud watchlist", items),
	}
}

func noOpUpdate(userID string) SyncUpdate {
	return SyncUpdate{
		State:   NoOp,
		UserID:  userID,
		Message: "Nothing to sync",
	}
}

func failedUpdate(userID string, items int, err error) SyncUpdate {
	return SyncUpdate{
		State:   Failed,
		UserID:  userID,
		Items:   items,
		Message: fmt.Sprintf("Sync failed: %v", err),
		Err:     err,
	}
}

func idleUpdate(userID string, items int) SyncUpdate {
	return SyncUpdate{State: Idle, UserID: userID, Items: items}
}
