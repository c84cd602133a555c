package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/shared"
	"github.com/desertthunder/groupchat/internal/ui"
)

// TUI launches the interactive chat for a connected user.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they don't interfere with TUI rendering. The logger is replaced before the
	// services are created so they pick it up.
	fileLogger, err := shared.NewFileLogger("./tmp/groupchat-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	spotify, err := r.openSpotify()
	if err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("email"))
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, user, ui.Deps{
		Playlists: r.store,
		Creator:   spotify,
		Chat:      r.engine,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
