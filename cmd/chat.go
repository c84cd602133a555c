package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/chat"
	"github.com/desertthunder/groupchat/internal/formatter"
	"github.com/desertthunder/groupchat/internal/shared"
	"github.com/desertthunder/groupchat/internal/tasks"
)

// ChatSend posts one message to a playlist's chat.
func (r *Runner) ChatSend(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.openSpotify(); err != nil {
		return err
	}

	result, err := r.engine.Post(ctx, cmd.String("playlist"), cmd.String("sender"), cmd.String("message"))
	if err != nil {
		if result != nil && result.Added > 0 {
			r.writePlain("⚠ Added %d of %d tracks before the failure\n", result.Added, len(result.TrackIDs))
		}
		return err
	}

	if result.Added == 0 {
		r.writePlain("✓ Message posted (no track links)\n")
		return nil
	}

	r.writePlain("✓ Message posted, added %d tracks\n", result.Added)
	for _, id := range result.TrackIDs {
		r.writePlain("  + spotify:track:%s\n", id)
	}
	return nil
}

// ChatImport replays a transcript file against a playlist, printing progress as it goes.
func (r *Runner) ChatImport(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.openSpotify(); err != nil {
		return err
	}

	var transcript io.Reader = r.input
	if path := cmd.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer f.Close()
		transcript = f
	}

	rateLimit := cmd.Float("rate")
	if rateLimit < 0 {
		rateLimit = r.config.Chat.ImportRateLimit
	}

	progress := make(chan tasks.ProgressUpdate, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.Import(ctx, progress, cmd.String("playlist"), transcript, tasks.ImportOpts{
		RateLimit:     rateLimit,
		DefaultSender: cmd.String("sender"),
	})
	close(progress)
	<-done

	if err != nil {
		if result != nil {
			r.writePlain("⚠ Stopped after %d of %d messages (%d tracks added)\n", result.Posted, result.Total, result.TracksAdded)
		}
		return err
	}

	r.writePlainHeader("Import complete")
	r.writePlain("Messages: %d\n", result.Posted)
	r.writePlain("Tracks added: %d\n", result.TracksAdded)
	return nil
}

// ChatExtract prints the id of every Spotify track linked in a message, one per line.
func (r *Runner) ChatExtract(ctx context.Context, cmd *cli.Command) error {
	message := cmd.StringArg("message")
	if message == "" {
		return fmt.Errorf("%w: message is required", shared.ErrMissingArgument)
	}

	for _, id := range chat.ExtractTrackIDs(message) {
		if err := r.writePlain("%s\n", id); err != nil {
			return err
		}
	}
	return nil
}

// ChatHistory prints a playlist's chat history.
func (r *Runner) ChatHistory(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	playlist, err := store.GetPlaylist(cmd.String("playlist"))
	if err != nil {
		return err
	}

	messages, err := store.History(playlist.ID(), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	return formatter.RenderHistory(r.output, format, playlist, messages)
}

// ChatExport writes the chat histories of the given playlists, or of every playlist of the user, to
// files using a worker pool.
func (r *Runner) ChatExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("playlist")
	if len(ids) == 0 {
		user, err := r.resolveUser(cmd.String("email"))
		if err != nil {
			return err
		}
		playlists, err := store.ListPlaylists(user.ID())
		if err != nil {
			return err
		}
		for _, p := range playlists {
			ids = append(ids, p.ID())
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}

	// Exports only read the store, so the engine needs no Spotify service.
	engine := tasks.NewChatEngine(nil, store, 0, shared.WithLogger(r.logger, "component", "export"))

	progress := make(chan tasks.ProgressUpdate, len(ids))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.ExportHistories(ctx, progress, ids, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader("Export complete")
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d exports failed", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}
