package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgHistoryFetched
	MsgPlaylistCreated
	MsgMessagePosted
)

type playlistsFetched struct {
	playlists []*models.Playlist
	err       error
}

type historyFetched struct {
	playlist *models.Playlist
	messages []*models.Message
	err      error
}

type playlistCreated struct {
	playlist *models.Playlist
	err      error
}

type messagePosted struct {
	result *tasks.PostResult
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []*models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// historyFetchedMsg is the constructor for [MsgHistoryFetched]
func historyFetchedMsg(playlist *models.Playlist, messages []*models.Message, err error) Msg {
	return Msg{kind: MsgHistoryFetched, data: historyFetched{playlist, messages, err}}
}

// playlistCreatedMsg is the constructor for [MsgPlaylistCreated]
func playlistCreatedMsg(playlist *models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistCreated, data: playlistCreated{playlist, err}}
}

// messagePostedMsg is the constructor for [MsgMessagePosted]
func messagePostedMsg(result *tasks.PostResult, err error) Msg {
	return Msg{kind: MsgMessagePosted, data: messagePosted{result, err}}
}
