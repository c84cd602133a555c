// Package web serves the groupchat JSON API.
//
// # Routes
//
//	GET  /                          status and whether the caller is logged in
//	POST /signup                    create an account and start a session
//	POST /login                     start a session
//	POST /logout                    end the session
//	GET  /auth/spotify              redirect to the Spotify consent screen
//	GET  /login/callback            finish the OAuth flow and link the account
//	GET  /playlists                 the connected user's playlists
//	POST /playlists                 create a collaborative playlist
//	GET  /playlists/{id}            one playlist
//	GET  /playlists/{id}/messages   chat history of a playlist
//	POST /playlists/{id}/messages   post a message; linked tracks are added
//	POST /messages                  post a message to the active playlist
//
// Sessions are HS256 cookies issued by [auth.Sessions]. Routes other than /, /signup, /login and /logout
// go through [server.RequireSession], which puts a [server.Session] in the request context. Routes that
// act on a Spotify account additionally require the session's account to be linked to a user.
//
// # Errors
//
// Every error response is a [server.ErrorResponse]. Provider failures map to 502, missing records to
// 404, invalid input to 400, bad credentials to 401 and an unlinked account to 409.
package web
