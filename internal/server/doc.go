// Package server provides HTTP routing, middleware, and handlers for the watchx document service,
// the RSS pass-through proxy, and the CLI OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers [http.ServeMux] method patterns such as "GET /health",
// so path values are read with [http.Request.PathValue].
//
// # Document Service
//
// [DocumentHandler] exposes a [repositories.Documents] store:
//
//	GET    /api/users/{id}/watchlist          200 {"watchlist":[...]} or 404
//	PUT    /api/users/{id}/watchlist?merge=   204, create or merge
//	PATCH  /api/users/{id}/watchlist          204, or 404 when absent
//	DELETE /api/users/{id}/watchlist          204
//	GET    /api/users/{id}/watchlist/history  200 {"events":[...]}
//
// These routes sit behind [BearerAuth] when server.api_token is set.
//
// # Feed Proxy
//
// [FeedHandler] serves GET /api/rss?url=<feed>. Bodies are passed through unparsed and successful
// responses are cached in a [Cache], either [MemoryCache] or [RedisCache]. The X-Cache header
// reports HIT or MISS. Upstream requests share a token-bucket limiter.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback for `watchx auth login`.
// It validates the state parameter, exchanges the code through a [services.IdentityProvider],
// and sends the signed-in user through a channel. It only processes one callback.
package server
