// Package server provides HTTP routing, middleware, sessions and OAuth handling for the CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses gorilla/mux internally, giving path variables (see [Var]) and
// method matching.
//
// # Sessions
//
// A [Session] is an explicit value: [RequireSession] resolves the session cookie to an account and stores
// the Session in the request context, and handlers read it back with [SessionFrom]. Nothing about the
// caller is kept in package state.
//
// # OAuth Callback Handler
//
// OAuthHandler serves the redirect for `groupchat spotify login`. A temporary server on the redirect URI's
// host handles the callback, connects the Spotify user through a [Connector], and shuts down.
//
// The handler validates the state parameter (CSRF protection) and only processes one callback to prevent
// replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
