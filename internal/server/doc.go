// Package server provides HTTP routing, middleware, and the playlist export
// API surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method filtering, so routes may carry path wildcards.
//
// # API
//
// [API] mounts the export service's endpoints: OAuth login and callback,
// identity and playlist listing, playlist analysis (contents, stats, dedupe
// and merge simulation), synchronous CSV export, and the background
// all-playlists job trio (start, poll, download).
//
// Sessions are cookie-based: the callback handler stores the Spotify user id
// in a session cookie, and [SessionMiddleware] resolves it onto the request
// context for handlers.
//
// # CLI Callback Handler
//
// [CallbackHandler] implements the OAuth2 authorization-code callback flow
// for terminal logins. The auth command starts a temporary HTTP server on
// localhost, opens the browser, handles the callback, and shuts down after
// receiving the token. It validates the state parameter (CSRF protection)
// and only processes one callback to prevent replay.
package server
