package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	open   key.Binding
	create key.Binding
	send   key.Binding
	back   key.Binding
	reload key.Binding
	quit   key.Binding
	exit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open chat")),
		create: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new playlist")),
		send:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		reload: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		// exit works while typing, where q is just a letter
		exit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.open, k.create},
		{k.send, k.back, k.reload},
		{k.quit, k.exit},
	}
}
