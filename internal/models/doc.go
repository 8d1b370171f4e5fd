// Package models defines the data types shared by the watchlist store, its persistence layers and the HTTP service.
//
// The package contains three groups of types:
//
// 1. Media references: lightweight structs identifying a saved movie or TV show
//   - [MediaType] : enumeration of supported media kinds (movie, tv)
//   - [MediaReference] : a watchlist entry keyed by (media type, id) with opaque display metadata
//
// 2. Remote documents: the per-user record held by the document service
//   - [WatchlistDocument] : the `watchlist` field of a user record
//
// 3. Identity: the authenticated principal announced by the session
//   - [User] : user id, display name and bearer token
//
// Entries are compared by [MediaReference.Key], never by their display fields.
package models
