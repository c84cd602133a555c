package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/tasks"
)

// historyLimit is how many recent messages the chat view loads.
const historyLimit = 200

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	NewPlaylistView
	ChatView
)

// PlaylistLister lists the playlists owned by a user. Implemented by repositories.Store.
type PlaylistLister interface {
	ListPlaylists(ownerID string) ([]*models.Playlist, error)
}

// PlaylistCreator creates playlists on Spotify. Implemented by services.SpotifyService.
type PlaylistCreator interface {
	CreatePlaylist(ctx context.Context, user *models.User, title string) (*models.Playlist, error)
}

// Chat posts messages and reads history. Implemented by [tasks.ChatEngine].
type Chat interface {
	Post(ctx context.Context, playlistID, sender, body string) (*tasks.PostResult, error)
	History(playlistID string, limit int) ([]*models.Message, error)
}

// Deps are the collaborators of the TUI.
type Deps struct {
	Playlists PlaylistLister
	Creator   PlaylistCreator
	Chat      Chat
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	user         *models.User
	sender       string
	deps         Deps
	width        int
	height       int
	playlistList list.Model
	titleInput   textinput.Model
	chatInput    textinput.Model
	chatLog      viewport.Model
	playlist     *models.Playlist
	messages     []*models.Message
	sending      bool
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model for user. Messages are sent under the user's display name.
func NewModel(ctx context.Context, user *models.User, deps Deps) *Model {
	titleInput := textinput.New()
	titleInput.Placeholder = "Road trip"
	titleInput.CharLimit = 100

	chatInput := textinput.New()
	chatInput.Placeholder = "Say something or paste a Spotify track link"
	chatInput.CharLimit = 4000

	playlistList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlistList.Title = "Playlists"

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		user:         user,
		sender:       user.Name(),
		deps:         deps,
		playlistList: playlistList,
		titleInput:   titleInput,
		chatInput:    chatInput,
		chatLog:      viewport.New(0, 0),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// View returns the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case NewPlaylistView:
		return m.renderNewPlaylist()
	case ChatView:
		return m.renderChat()
	default:
		return ""
	}
}

// Init initializes the TUI by loading the user's playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.err != nil {
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case NewPlaylistView:
			return m.handleNewPlaylistKeys(msg)
		case ChatView:
			return m.handleChatKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		cmd := m.playlistList.SetItems(playlistItems(data.playlists, m.user.ActivePlaylistID()))
		return m, cmd

	case MsgHistoryFetched:
		data := msg.data.(historyFetched)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("✗ %v", data.err))
			return m, nil
		}
		m.playlist = data.playlist
		m.messages = data.messages
		m.status = ""
		m.view = ChatView
		m.refreshLog()
		return m, m.chatInput.Focus()

	case MsgPlaylistCreated:
		data := msg.data.(playlistCreated)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("✗ %v", data.err))
			return m, nil
		}
		m.titleInput.Reset()
		m.titleInput.Blur()
		m.status = styles.ok.Render(fmt.Sprintf("✓ Created %s", data.playlist.Title()))
		return m, tea.Batch(m.fetchPlaylists(), m.fetchHistory(data.playlist))

	case MsgMessagePosted:
		data := msg.data.(messagePosted)
		m.sending = false
		if data.err != nil {
			status := fmt.Sprintf("✗ %v", data.err)
			if data.result != nil && data.result.Added > 0 {
				status = fmt.Sprintf("✗ added %d of %d tracks: %v", data.result.Added, len(data.result.TrackIDs), data.err)
			}
			m.status = styles.err.Render(status)
			return m, nil
		}
		m.messages = append(m.messages, data.result.Message)
		m.chatInput.Reset()
		m.status = m.postStatus(data.result)
		m.refreshLog()
		return m, nil
	}

	return m, nil
}

func (m *Model) postStatus(result *tasks.PostResult) string {
	if result.Added == 0 {
		return styles.help.Render("sent")
	}
	return styles.ok.Render(fmt.Sprintf("✓ added %d %s to %s", result.Added, plural(result.Added, "track", "tracks"), m.playlist.Title()))
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list own every key while its filter is being edited.
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.create):
		m.view = NewPlaylistView
		m.status = ""
		return m, m.titleInput.Focus()
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.fetchHistory(item.playlist)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleNewPlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.exit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.titleInput.Blur()
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.send):
		title := strings.TrimSpace(m.titleInput.Value())
		if title == "" {
			return m, nil
		}
		m.status = styles.help.Render("Creating playlist...")
		return m, m.createPlaylist(title)
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.exit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.chatInput.Blur()
		m.view = PlaylistListView
		m.status = ""
		return m, m.fetchPlaylists()
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchHistory(m.playlist)
	case key.Matches(msg, m.keys.send):
		body := strings.TrimSpace(m.chatInput.Value())
		if body == "" || m.sending {
			return m, nil
		}
		m.sending = true
		m.status = styles.help.Render("Sending...")
		return m, m.postMessage(m.playlist.ID(), body)
	case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatLog, cmd = m.chatLog.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case NewPlaylistView:
		m.titleInput, cmd = m.titleInput.Update(msg)
	case ChatView:
		m.chatInput, cmd = m.chatInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.playlistList.SetSize(width-4, height-6)
	m.chatLog.Width = width - 4
	m.chatLog.Height = max(height-8, 1)
	m.chatInput.Width = width - 6
	m.titleInput.Width = width - 6
	m.refreshLog()
}

func (m *Model) refreshLog() {
	m.chatLog.SetContent(renderHistory(m.messages))
	m.chatLog.GotoBottom()
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.deps.Playlists.ListPlaylists(m.user.ID())
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchHistory(playlist *models.Playlist) tea.Cmd {
	return func() tea.Msg {
		messages, err := m.deps.Chat.History(playlist.ID(), historyLimit)
		return historyFetchedMsg(playlist, messages, err)
	}
}

func (m *Model) createPlaylist(title string) tea.Cmd {
	return func() tea.Msg {
		playlist, err := m.deps.Creator.CreatePlaylist(m.ctx, m.user, title)
		return playlistCreatedMsg(playlist, err)
	}
}

func (m *Model) postMessage(playlistID, body string) tea.Cmd {
	sender := m.sender
	return func() tea.Msg {
		result, err := m.deps.Chat.Post(m.ctx, playlistID, sender, body)
		return messagePostedMsg(result, err)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.open, m.keys.create, m.keys.reload, m.keys.quit}
	view := fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
	if m.status != "" {
		view += "\n" + m.status
	}
	return view
}

func (m *Model) renderNewPlaylist() string {
	title := styles.title.Render("New collaborative playlist")
	helpKeys := []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create")), m.keys.back, m.keys.exit}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, m.titleInput.View(), m.status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderChat() string {
	title := styles.title.Render(fmt.Sprintf("# %s", m.playlist.Title()))
	helpKeys := []key.Binding{m.keys.send, m.keys.back, m.keys.reload, m.keys.exit}
	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n%s",
		title,
		m.chatLog.View(),
		m.chatInput.View(),
		m.status,
		m.help.ShortHelpView(helpKeys),
	)
}
