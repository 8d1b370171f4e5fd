// Package services implements the network-facing collaborators of the watchlist store.
//
// # Document Client
//
// [DocumentClient] implements the remote document-store contract over the
// HTTP API served by `watchx serve`:
//
//	GET   /api/users/{id}/watchlist            read; 404 maps to [shared.ErrDocumentNotFound]
//	PUT   /api/users/{id}/watchlist?merge=bool create-or-merge write
//	PATCH /api/users/{id}/watchlist            update of an existing record
//
// The client never retries; callers log failures and move on.
//
// # Identity
//
// [IdentityService] runs the OAuth2 authorization code flow with [oauth2.Config]
// and resolves the user profile from the provider's userinfo endpoint.
//
// # Session
//
// [Session] is the authentication signal source. It keeps the current
// [models.User], persists it under the "auth-session" key and notifies
// subscribers on every login, logout and restore.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrDocumentNotFound] : no record for the user
//   - [shared.ErrUnauthorized] : the document service rejected the api token
//   - [shared.ErrServiceUnavailable] : 5xx from the document service
//   - [shared.ErrAPIRequest] : any other non-2xx response
//   - [shared.ErrAuthFailed] : code exchange or userinfo lookup failed
package services
