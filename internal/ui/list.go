package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/groupchat/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist *models.Playlist
	active   bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Title() }
func (i playlistItem) Title() string {
	if i.active {
		return i.playlist.Title() + " ★"
	}
	return i.playlist.Title()
}
func (i playlistItem) Description() string { return i.playlist.URL() }

func playlistItems(playlists []*models.Playlist, activeID string) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p, active: p.ID() == activeID}
	}
	return items
}

// renderMessage formats one chat line: the sender, the body, and how many tracks it added.
func renderMessage(m *models.Message) string {
	sender := m.Sender()
	if sender == "" {
		sender = "anonymous"
	}

	line := fmt.Sprintf("%s: %s", styles.Sender(sender), m.Body())
	if n := m.TrackCount(); n > 0 {
		line += " " + styles.ok.Render(fmt.Sprintf("(+%d %s)", n, plural(n, "track", "tracks")))
	}
	return line
}

func renderHistory(messages []*models.Message) string {
	if len(messages) == 0 {
		return styles.help.Render("No messages yet. Paste a Spotify track link to add it to the playlist.")
	}
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = renderMessage(m)
	}
	return strings.Join(lines, "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
