// Package ui implements an interactive chat client using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [PlaylistListView] : Browse the user's playlists
//  2. [NewPlaylistView] : Name and create a collaborative playlist
//  3. [ChatView] : Read the playlist's chat history and post messages
//
// Messages posted in the chat view go through the chat engine, so every Spotify track link they contain
// is added to the playlist. The (view) [Model] implements the standard Init/Update/View pattern,
// receiving results of background commands via the [Msg] union type.
//
// Keyboard navigation uses vim-style bindings in the list (j/k, enter, n, q) with contextual help
// displayed via charmbracelet/bubbles/help. While typing, ctrl+c quits and esc goes back.
package ui
