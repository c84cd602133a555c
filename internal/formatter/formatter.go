// package formatter renders playlists and chat history in various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

// Format is an output format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// timeLayout is used for timestamps in every human-readable format.
const timeLayout = "2006-01-02 15:04"

// ParseFormat returns the [Format] named s. An empty string is [Text]; "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, markdown, csv or json)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case CSV:
		return "csv"
	case JSON:
		return "json"
	default:
		return "txt"
	}
}

// PlaylistsToCSV converts playlists to CSV format with columns: ID, Title, URL, Owner, Created
func PlaylistsToCSV(playlists []*models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "URL", "Owner", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range playlists {
		record := []string{p.ID(), p.Title(), p.URL(), p.OwnerID(), p.CreatedAt().Format(time.RFC3339)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PlaylistsToMarkdown renders playlists as a Markdown table.
func PlaylistsToMarkdown(playlists []*models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Playlists\n\n")
	if len(playlists) == 0 {
		buf.WriteString("_No playlists yet._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Title | ID | Created |\n")
	buf.WriteString("| --- | --- | --- |\n")
	for _, p := range playlists {
		title := escapeCell(p.Title())
		if p.URL() != "" {
			title = fmt.Sprintf("[%s](%s)", title, p.URL())
		}
		fmt.Fprintf(&buf, "| %s | %s | %s |\n", title, p.ID(), p.CreatedAt().Format(timeLayout))
	}

	return buf.Bytes(), nil
}

// PlaylistsToText renders playlists as a numbered list.
func PlaylistsToText(playlists []*models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	if len(playlists) == 0 {
		buf.WriteString("No playlists yet.\n")
		return buf.Bytes(), nil
	}

	for i, p := range playlists {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, p.Title(), p.ID())
		if p.URL() != "" {
			fmt.Fprintf(&buf, "   %s\n", p.URL())
		}
	}

	return buf.Bytes(), nil
}

// HistoryToCSV converts messages to CSV format with columns: ID, Sender, Message, Tracks, Sent
func HistoryToCSV(messages []*models.Message) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Sender", "Message", "Tracks", "Sent"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range messages {
		record := []string{m.ID(), m.Sender(), m.Body(), strconv.Itoa(m.TrackCount()), m.CreatedAt().Format(time.RFC3339)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown renders a playlist's chat history in Markdown
func HistoryToMarkdown(playlist *models.Playlist, messages []*models.Message) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Title())
	if playlist.URL() != "" {
		fmt.Fprintf(&buf, "**Playlist**: %s\n", playlist.URL())
	}
	fmt.Fprintf(&buf, "**Messages**: %d\n", len(messages))
	fmt.Fprintf(&buf, "**Tracks added**: %d\n\n", tracksAdded(messages))

	buf.WriteString("## Chat\n\n")
	for _, m := range messages {
		fmt.Fprintf(&buf, "- **%s** (%s): %s", senderName(m), m.CreatedAt().Format(timeLayout), m.Body())
		if m.TrackCount() > 0 {
			fmt.Fprintf(&buf, " _(+%d)_", m.TrackCount())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// HistoryToText renders a playlist's chat history as plain text
func HistoryToText(playlist *models.Playlist, messages []*models.Message) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Title())
	fmt.Fprintf(&buf, "Messages: %d, tracks added: %d\n\n", len(messages), tracksAdded(messages))

	for _, m := range messages {
		fmt.Fprintf(&buf, "[%s] %s: %s", m.CreatedAt().Format(timeLayout), senderName(m), m.Body())
		if m.TrackCount() > 0 {
			fmt.Fprintf(&buf, " (+%d)", m.TrackCount())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// historyJSON is the JSON shape of a history export.
type historyJSON struct {
	Playlist *models.Playlist  `json:"playlist"`
	Messages []*models.Message `json:"messages"`
}

// RenderPlaylists writes playlists to w in format f.
func RenderPlaylists(w io.Writer, f Format, playlists []*models.Playlist) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case CSV:
		data, err = PlaylistsToCSV(playlists)
	case Markdown:
		data, err = PlaylistsToMarkdown(playlists)
	case JSON:
		if playlists == nil {
			playlists = []*models.Playlist{}
		}
		data, err = shared.MarshalJSON(playlists, true)
	default:
		data, err = PlaylistsToText(playlists)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// RenderHistory writes the chat history of playlist to w in format f.
func RenderHistory(w io.Writer, f Format, playlist *models.Playlist, messages []*models.Message) error {
	data, err := history(f, playlist, messages)
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func history(f Format, playlist *models.Playlist, messages []*models.Message) ([]byte, error) {
	switch f {
	case CSV:
		return HistoryToCSV(messages)
	case Markdown:
		return HistoryToMarkdown(playlist, messages)
	case JSON:
		if messages == nil {
			messages = []*models.Message{}
		}
		return shared.MarshalJSON(historyJSON{Playlist: playlist, Messages: messages}, true)
	default:
		return HistoryToText(playlist, messages)
	}
}

// WriteHistoryExport writes the chat history of playlist to {dir}/{playlist.ID}.{ext}.
//
// Returns the path of the written file.
func WriteHistoryExport(f Format, playlist *models.Playlist, messages []*models.Message, dir string) (string, error) {
	data, err := history(f, playlist, messages)
	if err != nil {
		return "", fmt.Errorf("failed to render history: %w", err)
	}

	path := filepath.Join(dir, playlist.ID()+"."+f.Extension())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history file: %w", err)
	}

	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

func senderName(m *models.Message) string {
	if m.Sender() == "" {
		return "anonymous"
	}
	return m.Sender()
}

func tracksAdded(messages []*models.Message) int {
	n := 0
	for _, m := range messages {
		n += m.TrackCount()
	}
	return n
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
