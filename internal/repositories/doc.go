// Package repositories implements SQLite and PostgreSQL persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
// Queries are written with "?" placeholders and rebound for the connected driver.
//
// Key Implementations:
//   - [UserRepository] : Spotify users and their tokens, with email-based lookups
//   - [PlaylistRepository] : Playlists created through the service, listed by owner
//   - [AccountRepository] : Local logins with username lookups
//   - [MessageRepository] : Chat history per playlist
//
// [Store] composes the repositories into the persistence interface used by the services.
package repositories
