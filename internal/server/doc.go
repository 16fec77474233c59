// Package server provides HTTP routing, middleware, the JSON API and OAuth callback handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging], [CORS] and [Recovery] are the stock middleware used by `ytsort serve`.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # JSON API
//
// [APIHandler] exposes playlist listing, item listing and sorting:
//
//	GET  /api/playlists?channel_id=    channel playlists
//	GET  /api/playlist-items?playlist_id=   enriched items in playlist order
//	POST /api/sort                     sort, optionally into a new private playlist
//	GET  /api/auth/status              whether a user credential is stored
//	GET  /healthz
//
// Faults map to statuses with [shared.HTTPStatus]. A sort whose new playlist was created but not
// completely filled answers 502 with the playlist id and the last successful index.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// `ytsort auth login` starts a temporary listener with [ListenFallback] (configured port and the next few),
// opens the consent page and shuts down after receiving the token.
package server
