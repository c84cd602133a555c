package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/shared"
)

// Account is a local username/password login. UserID links it to a Spotify [User] once authorized.
type Account struct {
	entity
	username     string
	passwordHash string
	userID       string
}

// NewAccount creates an unlinked [Account]. The ID is assigned by the repository.
func NewAccount(username, passwordHash string) *Account {
	return &Account{entity: newEntity("", 0), username: username, passwordHash: passwordHash}
}

func (a *Account) Username() string     { return a.username }
func (a *Account) PasswordHash() string { return a.passwordHash }
func (a *Account) UserID() string       { return a.userID }
func (a *Account) Linked() bool         { return a.userID != "" }

func (a *Account) SetUserID(id string) { a.userID = id }

func (a *Account) Validate() error {
	if a.username == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if a.passwordHash == "" {
		return fmt.Errorf("%w: password hash is required", shared.ErrInvalidInput)
	}
	return nil
}

// MarshalJSON omits the password hash.
func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		UserID    string    `json:"user_id,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}{a.id, a.username, a.userID, a.createdAt})
}
