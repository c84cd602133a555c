package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/shared"
)

// Message is a chat message posted to a [Playlist], with the number of track ids found in it.
type Message struct {
	entity
	playlistID string
	sender     string
	body       string
	trackCount int
}

// NewMessage creates a [Message]. The ID is assigned by the repository.
func NewMessage(playlistID, sender, body string, trackCount int) *Message {
	return &Message{
		entity:     newEntity("", 0),
		playlistID: playlistID,
		sender:     sender,
		body:       body,
		trackCount: trackCount,
	}
}

func (m *Message) PlaylistID() string { return m.playlistID }
func (m *Message) Sender() string     { return m.sender }
func (m *Message) Body() string       { return m.body }
func (m *Message) TrackCount() int    { return m.trackCount }

func (m *Message) Validate() error {
	if m.playlistID == "" {
		return fmt.Errorf("%w: message playlist is required", shared.ErrInvalidInput)
	}
	if m.body == "" {
		return fmt.Errorf("%w: message body is required", shared.ErrInvalidInput)
	}
	if m.trackCount < 0 {
		return fmt.Errorf("%w: track count cannot be negative", shared.ErrInvalidInput)
	}
	return nil
}

func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string    `json:"id"`
		PlaylistID string    `json:"playlist_id"`
		Sender     string    `json:"sender"`
		Body       string    `json:"body"`
		TrackCount int       `json:"track_count"`
		CreatedAt  time.Time `json:"created_at"`
	}{m.id, m.playlistID, m.sender, m.body, m.trackCount, m.createdAt})
}
