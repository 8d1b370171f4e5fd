// Package repositories implements server-side persistence for per-user watchlist documents.
//
// Two implementations satisfy [Documents]:
//   - [DocumentRepository] : SQLite, schema managed by shared.RunMigrations
//   - [PGDocumentRepository] : PostgreSQL through a pgx connection pool
//
// Both follow the same write semantics:
//   - Set with merge replaces the watchlist field and keeps the record's creation time
//   - Set without merge replaces the whole record
//   - Update fails with shared.ErrDocumentNotFound when no record exists
//
// Every write assigns a fresh revision id and appends a row to the document event log.
package repositories
