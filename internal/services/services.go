// package services talks to the Spotify Accounts service and Web API on behalf of stored users.
package services

import (
	"net/http"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
)

// DefaultTimeout bounds every outbound Spotify request.
const DefaultTimeout = 10 * time.Second

// UserStore persists Spotify users and their tokens.
type UserStore interface {
	FindUserByEmail(email string) (*models.User, error)
	GetUser(id string) (*models.User, error)
	SaveUser(user *models.User) error
}

// PlaylistStore persists playlists created through the service.
type PlaylistStore interface {
	SavePlaylist(playlist *models.Playlist) error
	GetPlaylist(id string) (*models.Playlist, error)
	// RemovePlaylist erases a playlist row entirely. Used to undo a creation that could not complete.
	RemovePlaylist(id string) error
}

// Store is the persistence needed by [SpotifyService]. Implemented by repositories.Store.
type Store interface {
	UserStore
	PlaylistStore
}

// NewHTTPClient returns an [http.Client] with the given timeout, or [DefaultTimeout] when zero.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
