package services

import (
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

var errStorage = errors.New("disk full")

// memStore is an in-memory [Store] that counts writes.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	playlists     map[string]*models.Playlist
	userSaves     int
	playlistSaves int
	failSaveUser  bool
	failRemove    bool
}

func newMemStore(users ...*models.User) *memStore {
	s := &memStore{users: map[string]*models.User{}, playlists: map[string]*models.Playlist{}}
	for _, u := range users {
		s.users[u.ID()] = u
	}
	return s
}

func (s *memStore) FindUserByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (s *memStore) GetUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrUserNotFound
}

func (s *memStore) SaveUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveUser {
		return errStorage
	}
	s.userSaves++
	s.users[user.ID()] = user
	return nil
}

func (s *memStore) SavePlaylist(playlist *models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlistSaves++
	s.playlists[playlist.ID()] = playlist
	return nil
}

func (s *memStore) RemovePlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove {
		return errStorage
	}
	if _, ok := s.playlists[id]; !ok {
		return shared.ErrPlaylistNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *memStore) GetPlaylist(id string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.playlists[id]; ok {
		return p, nil
	}
	return nil, shared.ErrPlaylistNotFound
}

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func newStoredUser(accessToken, refreshToken string) *models.User {
	user := models.NewUser("spotify-user", "user@example.com", models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken})
	user.SetDisplayName("Spotify User")
	return user
}
