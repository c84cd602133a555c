// package tasks turns chat messages into playlist additions.
//
// The core abstraction is ChatEngine, which posts single messages and replays whole transcripts.
// Long operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/groupchat/internal/chat"
	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/services"
	"github.com/desertthunder/groupchat/internal/shared"
)

// TrackAdder appends tracks to a playlist on Spotify. Implemented by [services.SpotifyService].
type TrackAdder interface {
	AddTracksToPlaylist(ctx context.Context, playlist *models.Playlist, trackIDs []string) error
}

// ChatStore persists playlists and the messages posted to them. Implemented by repositories.Store.
type ChatStore interface {
	GetPlaylist(id string) (*models.Playlist, error)
	SaveMessage(message *models.Message) error
	History(playlistID string, limit int) ([]*models.Message, error)
}

// PostResult describes one posted message.
type PostResult struct {
	Message  *models.Message // Recorded message
	TrackIDs []string        // Track ids found in the message, in order
	Added    int             // Tracks added to the playlist
	Batches  int             // Add requests sent to Spotify
}

// ChatEngine posts chat messages to playlists.
type ChatEngine struct {
	tracks    TrackAdder
	store     ChatStore
	batchSize int
	logger    *log.Logger
}

// NewChatEngine creates a [ChatEngine]. batchSize is the most track ids sent per add request; values
// outside 1..[services.MaxTracksPerRequest] use the maximum.
func NewChatEngine(tracks TrackAdder, store ChatStore, batchSize int, logger *log.Logger) *ChatEngine {
	if batchSize <= 0 || batchSize > services.MaxTracksPerRequest {
		batchSize = services.MaxTracksPerRequest
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ChatEngine{tracks: tracks, store: store, batchSize: batchSize, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ChatEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Post adds every track linked in body to the playlist, in order, and records the message.
//
// A message without track links is recorded without contacting Spotify. When an add request fails the
// message is not recorded; the returned result counts the tracks added by earlier batches.
func (e *ChatEngine) Post(ctx context.Context, playlistID, sender, body string) (*PostResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", shared.ErrInvalidInput)
	}

	playlist, err := e.store.GetPlaylist(playlistID)
	if err != nil {
		return nil, err
	}

	result := &PostResult{TrackIDs: chat.ExtractTrackIDs(body)}

	for start := 0; start < len(result.TrackIDs); start += e.batchSize {
		end := min(start+e.batchSize, len(result.TrackIDs))
		batch := result.TrackIDs[start:end]

		result.Batches++
		if err := e.tracks.AddTracksToPlaylist(ctx, playlist, batch); err != nil {
			e.logger.Error("failed to add tracks", "playlist", playlist.ID(), "batch", result.Batches, "error", err)
			return result, err
		}
		result.Added += len(batch)
	}

	message := models.NewMessage(playlist.ID(), sender, body, result.Added)
	if err := e.store.SaveMessage(message); err != nil {
		return result, fmt.Errorf("failed to record message: %w", err)
	}
	result.Message = message

	e.logger.Info("message posted", "playlist", playlist.ID(), "sender", message.Sender(), "tracks", result.Added)
	return result, nil
}

// History returns the last limit messages posted to the playlist, oldest first. A limit of 0 returns all.
func (e *ChatEngine) History(playlistID string, limit int) ([]*models.Message, error) {
	if _, err := e.store.GetPlaylist(playlistID); err != nil {
		return nil, err
	}
	return e.store.History(playlistID, limit)
}
