package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/groupchat/internal/shared"
)

// User is a Spotify user the service acts on behalf of.
//
// The ID is the Spotify user id. Tokens change on every refresh; the active playlist is a non-owning reference.
type User struct {
	entity
	displayName      string
	email            string
	url              string
	accessToken      string
	refreshToken     string
	activePlaylistID string
}

// NewUser creates a [User] for the Spotify account id with the given email and tokens.
func NewUser(id, email string, tokens TokenPair) *User {
	return &User{
		entity:       newEntity(id, 0),
		email:        email,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
	}
}

func (u *User) DisplayName() string      { return u.displayName }
func (u *User) Email() string            { return u.email }
func (u *User) URL() string              { return u.url }
func (u *User) AccessToken() string      { return u.accessToken }
func (u *User) RefreshToken() string     { return u.refreshToken }
func (u *User) ActivePlaylistID() string { return u.activePlaylistID }

// Tokens returns the user's current credentials.
func (u *User) Tokens() TokenPair {
	return TokenPair{AccessToken: u.accessToken, RefreshToken: u.refreshToken}
}

// Name returns the display name, falling back to the Spotify id.
func (u *User) Name() string {
	if u.displayName != "" {
		return u.displayName
	}
	return u.id
}

func (u *User) SetDisplayName(name string)    { u.displayName = name }
func (u *User) SetEmail(email string)         { u.email = email }
func (u *User) SetURL(url string)             { u.url = url }
func (u *User) SetActivePlaylistID(id string) { u.activePlaylistID = id }

// SetTokens replaces both tokens.
func (u *User) SetTokens(tokens TokenPair) {
	u.accessToken = tokens.AccessToken
	u.refreshToken = tokens.RefreshToken
}

// Validate ensures the user has an id, a plausible email and an access token.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if u.email == "" || !strings.Contains(u.email, "@") {
		return fmt.Errorf("%w: user email %q is invalid", shared.ErrInvalidInput, u.email)
	}
	if u.accessToken == "" {
		return fmt.Errorf("%w: user access token is required", shared.ErrInvalidInput)
	}
	return nil
}

// MarshalJSON renders the public profile of the user. Tokens are never serialized.
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID               string    `json:"id"`
		DisplayName      string    `json:"display_name"`
		Email            string    `json:"email"`
		URL              string    `json:"url"`
		ActivePlaylistID string    `json:"active_playlist_id,omitempty"`
		CreatedAt        time.Time `json:"created_at"`
	}{u.id, u.displayName, u.email, u.url, u.activePlaylistID, u.createdAt})
}
