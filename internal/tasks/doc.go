// Package tasks orchestrates chat messages into Spotify playlist additions with real-time progress reporting.
//
// # Core Operations
//
//  1. [ChatEngine.Post] : post one message to a playlist
//     - Extracts track ids from the message's share links
//     - Adds them to the playlist in order, in batches of at most 100 ids
//     - Records the message with the number of tracks added
//
//  2. [ChatEngine.Import] : replay a chat transcript
//     - Reads one message per line, with an optional "sender: " prefix
//     - Posts each message, paced by a [rate.Limiter]
//     - Stops at the first failure and returns the partial result
//
// # Progress Reporting
//
// Long operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [ChatEngine] depends on:
//   - [TrackAdder] : the Spotify service
//   - [ChatStore] : the persistence layer (repositories.Store)
package tasks
