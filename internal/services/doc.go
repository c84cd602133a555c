// Package services implements the Spotify side of the group chat playlist service.
//
// # Token Manager
//
// [TokenManager] builds the authorization URL, exchanges authorization codes for a [models.TokenPair]
// and refreshes a user's access token, persisting the result exactly once. It is built on [oauth2.Config]
// with client credentials sent in the Authorization header.
//
// # Executor
//
// [Executor] issues bearer-authorized Web API requests for a user. A 401 response triggers a single
// refresh followed by a single reissue of the identical request; there are no other retries.
// Each call walks an explicit state machine (issued, refreshing, reissued, succeeded, failed) that is
// logged at debug level.
//
// # Spotify Service
//
// [SpotifyService] creates collaborative playlists, adds tracks with the playlist owner's credentials,
// and connects a Spotify account after the OAuth redirect by upserting the user by email.
//
// # Error Handling
//
// Every failed exchange with Spotify is a [shared.ProviderError]. Input problems wrap
// [shared.ErrInvalidInput] and missing rows wrap [shared.ErrNotFound]; neither performs a network call.
package services
