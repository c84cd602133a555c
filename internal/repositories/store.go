package repositories

import (
	"errors"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

// Store composes the repositories behind the persistence interface used by the services package.
type Store struct {
	Users     *UserRepository
	Playlists *PlaylistRepository
	Accounts  *AccountRepository
	Messages  *MessageRepository
}

// NewStore creates a [Store] with every repository bound to db.
func NewStore(db *shared.DB) *Store {
	return &Store{
		Users:     NewUserRepository(db),
		Playlists: NewPlaylistRepository(db),
		Accounts:  NewAccountRepository(db),
		Messages:  NewMessageRepository(db),
	}
}

// FindUserByEmail returns the user with email or an error wrapping [shared.ErrUserNotFound].
func (s *Store) FindUserByEmail(email string) (*models.User, error) {
	return s.Users.GetByEmail(email)
}

func (s *Store) GetUser(id string) (*models.User, error) {
	return s.Users.Get(id)
}

// SaveUser updates the user, inserting it when it does not exist yet.
func (s *Store) SaveUser(user *models.User) error {
	err := s.Users.Update(user)
	if errors.Is(err, shared.ErrUserNotFound) {
		return s.Users.Create(user)
	}
	return err
}

// SavePlaylist updates the playlist, inserting it when it does not exist yet.
func (s *Store) SavePlaylist(playlist *models.Playlist) error {
	err := s.Playlists.Update(playlist)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return s.Playlists.Create(playlist)
	}
	return err
}

// RemovePlaylist erases the playlist row.
func (s *Store) RemovePlaylist(id string) error {
	return s.Playlists.Purge(id)
}

func (s *Store) GetPlaylist(id string) (*models.Playlist, error) {
	return s.Playlists.Get(id)
}

// ListPlaylists returns the playlists owned by the user.
func (s *Store) ListPlaylists(ownerID string) ([]*models.Playlist, error) {
	return s.Playlists.List(map[string]any{"owner_id": ownerID})
}

// SaveMessage records a chat message.
func (s *Store) SaveMessage(message *models.Message) error {
	return s.Messages.Create(message)
}

// History returns the most recent limit messages of a playlist, oldest first. A limit of 0 returns all.
func (s *Store) History(playlistID string, limit int) ([]*models.Message, error) {
	return s.Messages.List(map[string]any{"playlist_id": playlistID, "limit": limit})
}
