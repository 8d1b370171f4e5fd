// Package storage provides the client-side key-value store that backs the
// local watchlist snapshot, the API-key settings and the auth session.
//
// Values are opaque byte strings (JSON in practice) stored under flat string
// keys in a single bbolt bucket. A store opened with an empty path keeps
// everything in memory, which tests and one-shot CLI invocations rely on.
package storage
