// Package watchlist implements the local-first watchlist store and its cloud reconciliation.
//
// A [Store] owns the user's saved media references. Reads are always served
// from local state; every mutation is applied in memory, written to the
// [Persister] under [StorageKey], and then (when a user is signed in) handed
// to the [WriteQueue] as a best-effort remote write.
//
// # Invariants
//
//   - No two items share a composite key ("movie:550" and "tv:550" are distinct).
//   - Items keep insertion order; merges keep local positions and append remote-only keys.
//   - Local mutations are never rolled back because a remote write failed.
//
// # Cloud Sync
//
// [Store.SyncWithCloud] runs whenever the [AuthSource] announces a user, and on demand:
//
//	Idle -> Loading -> Merged | PushedInitial | NoOp | Failed -> Idle
//
// Remote exists: local and remote items are merged by key with remote values
// winning, and the remote record is updated when the merge grew it.
// Remote absent: local items are pushed as the initial record; nothing happens
// when local is empty too. A remote read failure leaves local state untouched.
//
// At most one sync runs at a time; triggers that arrive meanwhile collapse into
// a single follow-up run. Transitions are published on [Options.Updates] without
// blocking.
//
// # Write Ordering
//
// Remote writes run one at a time, in enqueue order, on the [WriteQueue]
// worker. Jobs are enqueued while the store lock is held, so the remote always
// receives snapshots in the order local state produced them.
package watchlist
