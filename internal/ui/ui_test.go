package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/tasks"
)

type fakeBackend struct {
	playlists []*models.Playlist
	listErr   error
	history   map[string][]*models.Message
	posts     []string
	postErr   error
	created   []string
}

func (f *fakeBackend) ListPlaylists(ownerID string) ([]*models.Playlist, error) {
	return f.playlists, f.listErr
}

func (f *fakeBackend) CreatePlaylist(ctx context.Context, user *models.User, title string) (*models.Playlist, error) {
	f.created = append(f.created, title)
	p := models.NewPlaylist("new", title, "https://open.spotify.com/playlist/new", "https://api.spotify.com/v1/playlists/new", user.ID())
	f.playlists = append(f.playlists, p)
	return p, nil
}

func (f *fakeBackend) Post(ctx context.Context, playlistID, sender, body string) (*tasks.PostResult, error) {
	f.posts = append(f.posts, sender+": "+body)
	if f.postErr != nil {
		return &tasks.PostResult{}, f.postErr
	}
	added := strings.Count(body, "open.spotify.com/track/")
	return &tasks.PostResult{
		Message:  models.NewMessage(playlistID, sender, body, added),
		TrackIDs: make([]string, added),
		Added:    added,
	}, nil
}

func (f *fakeBackend) History(playlistID string, limit int) ([]*models.Message, error) {
	return f.history[playlistID], nil
}

func newTestModel(t *testing.T, backend *fakeBackend) *Model {
	t.Helper()
	user := models.NewUser("spotify-user", "user@example.com", models.TokenPair{AccessToken: "a", RefreshToken: "r"})
	user.SetDisplayName("Alice")
	user.SetActivePlaylistID("p1")

	m := NewModel(context.Background(), user, Deps{Playlists: backend, Creator: backend, Chat: backend})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(Msg)
	if !ok {
		t.Fatal("expected the command to produce a Msg")
	}
	m.Update(msg)
}

func press(m *Model, k tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(k)
	return cmd
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func seededBackend() *fakeBackend {
	return &fakeBackend{
		playlists: []*models.Playlist{
			models.NewPlaylist("p1", "Road Trip", "https://open.spotify.com/playlist/p1", "https://api.spotify.com/v1/playlists/p1", "spotify-user"),
			models.NewPlaylist("p2", "Gym", "https://open.spotify.com/playlist/p2", "https://api.spotify.com/v1/playlists/p2", "spotify-user"),
		},
		history: map[string][]*models.Message{
			"p1": {models.NewMessage("p1", "bob", "https://open.spotify.com/track/aaa", 1)},
		},
	}
}

func TestModel(t *testing.T) {
	t.Run("Loads Playlists", func(t *testing.T) {
		m := newTestModel(t, seededBackend())
		run(t, m, m.Init())

		items := m.playlistList.Items()
		if len(items) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(items))
		}
		if !items[0].(playlistItem).active || items[1].(playlistItem).active {
			t.Error("expected only the active playlist to be marked")
		}
		if !strings.Contains(m.View(), "Road Trip") {
			t.Error("expected the playlist list to render")
		}
	})

	t.Run("Load Error", func(t *testing.T) {
		m := newTestModel(t, &fakeBackend{listErr: errors.New("database is locked")})
		run(t, m, m.Init())

		if !strings.Contains(m.View(), "database is locked") {
			t.Errorf("expected the error to render, got %q", m.View())
		}
		cmd := press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected q to quit")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected a quit message")
		}
	})

	t.Run("Chat", func(t *testing.T) {
		backend := seededBackend()
		m := newTestModel(t, backend)
		run(t, m, m.Init())

		run(t, m, press(m, enter))
		if m.view != ChatView || m.playlist.ID() != "p1" {
			t.Fatalf("expected the chat for p1, got view %d", m.view)
		}
		if !strings.Contains(m.View(), "bob") {
			t.Error("expected history to render")
		}

		typeText(m, "listen https://open.spotify.com/track/bbb")
		run(t, m, press(m, enter))

		if len(backend.posts) != 1 || backend.posts[0] != "Alice: listen https://open.spotify.com/track/bbb" {
			t.Fatalf("unexpected posts %v", backend.posts)
		}
		if len(m.messages) != 2 || m.chatInput.Value() != "" {
			t.Errorf("expected the message appended and the input cleared, got %d messages", len(m.messages))
		}
		if !strings.Contains(m.status, "added 1 track") {
			t.Errorf("unexpected status %q", m.status)
		}

		if cmd := press(m, enter); cmd != nil {
			t.Error("an empty input should not post")
		}

		typeText(m, "q")
		if m.chatInput.Value() != "q" {
			t.Error("q should be typed in the chat, not quit")
		}

		press(m, esc)
		if m.view != PlaylistListView {
			t.Error("esc should return to the playlist list")
		}
	})

	t.Run("Post Error Keeps Input", func(t *testing.T) {
		backend := seededBackend()
		backend.postErr = errors.New("spotify unavailable")
		m := newTestModel(t, backend)
		run(t, m, m.Init())
		run(t, m, press(m, enter))

		typeText(m, "https://open.spotify.com/track/ccc")
		run(t, m, press(m, enter))

		if !strings.Contains(m.status, "spotify unavailable") {
			t.Errorf("expected the error in the status, got %q", m.status)
		}
		if m.chatInput.Value() == "" || len(m.messages) != 1 || m.sending {
			t.Error("a failed post should keep the input and not append a message")
		}
	})

	t.Run("New Playlist", func(t *testing.T) {
		backend := seededBackend()
		m := newTestModel(t, backend)
		run(t, m, m.Init())

		press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
		if m.view != NewPlaylistView {
			t.Fatal("n should open the new playlist view")
		}

		if cmd := press(m, enter); cmd != nil {
			t.Error("an empty title should not create a playlist")
		}

		typeText(m, "Beach Day")
		run(t, m, press(m, enter))

		if len(backend.created) != 1 || backend.created[0] != "Beach Day" {
			t.Fatalf("unexpected created playlists %v", backend.created)
		}
		if !strings.Contains(m.status, "Created Beach Day") {
			t.Errorf("unexpected status %q", m.status)
		}

		press(m, esc)
		if m.view != PlaylistListView {
			t.Error("esc should return to the playlist list")
		}
	})
}

func TestRenderHistory(t *testing.T) {
	if !strings.Contains(renderHistory(nil), "No messages yet") {
		t.Error("expected a placeholder for an empty history")
	}

	out := renderHistory([]*models.Message{
		models.NewMessage("p1", "", "hello", 0),
		models.NewMessage("p1", "bob", "two songs", 2),
	})
	for _, want := range []string{"anonymous", "hello", "bob", "(+2 tracks)"} {
		if !strings.Contains(out, want) {
			t.Errorf("history %q is missing %q", out, want)
		}
	}
}
