package ui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// senderColors are assigned to chat participants by name.
var senderColors = []lipgloss.Color{"#7D56F4", "#1DB954", "#F25D94", "#00A3FF", "#FFA500", "#E4D00A"}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Sender renders name in the color assigned to it. The same name always gets the same color.
func (p *Palette) Sender(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	color := senderColors[h.Sum32()%uint32(len(senderColors))]
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(name)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
