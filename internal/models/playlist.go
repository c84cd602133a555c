package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/groupchat/internal/shared"
)

// Playlist is a collaborative Spotify playlist created through the service.
//
// Endpoint is the API href used for track operations; OwnerID is the [User] whose credentials mutate it.
type Playlist struct {
	entity
	title    string
	url      string
	endpoint string
	ownerID  string
}

// NewPlaylist creates a [Playlist] from the Spotify playlist id and the fields returned on creation.
func NewPlaylist(id, title, url, endpoint, ownerID string) *Playlist {
	return &Playlist{
		entity:   newEntity(id, 0),
		title:    title,
		url:      url,
		endpoint: endpoint,
		ownerID:  ownerID,
	}
}

func (p *Playlist) Title() string    { return p.title }
func (p *Playlist) URL() string      { return p.url }
func (p *Playlist) Endpoint() string { return p.endpoint }
func (p *Playlist) OwnerID() string  { return p.ownerID }

func (p *Playlist) SetTitle(title string) { p.title = title }

func (p *Playlist) Validate() error {
	switch {
	case p.id == "":
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	case p.title == "":
		return fmt.Errorf("%w: playlist title is required", shared.ErrInvalidInput)
	case p.endpoint == "":
		return fmt.Errorf("%w: playlist endpoint is required", shared.ErrInvalidInput)
	case p.ownerID == "":
		return fmt.Errorf("%w: playlist owner is required", shared.ErrInvalidInput)
	}
	return nil
}

func (p *Playlist) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		URL       string    `json:"url"`
		Endpoint  string    `json:"endpoint"`
		OwnerID   string    `json:"owner_id"`
		CreatedAt time.Time `json:"created_at"`
	}{p.id, p.title, p.url, p.endpoint, p.ownerID, p.createdAt})
}
