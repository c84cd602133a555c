// Package models defines domain entities and persistence interfaces for the groupchat playlist service.
//
// Persistent entities:
//   - [User] : a Spotify user with the OAuth tokens used on their behalf
//   - [Playlist] : a collaborative playlist created through the service, owned by one [User]
//   - [Account] : a local login, optionally linked to a [User]
//   - [Message] : a chat message posted to a [Playlist]
//
// [TokenPair] is ephemeral: it is produced by the authorization code exchange and always stored inside a [User].
//
// All persistent entities implement the Model interface providing IDs, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
