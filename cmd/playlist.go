package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/groupchat/internal/formatter"
)

// PlaylistCreate creates a private collaborative playlist and makes it the user's active playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.openSpotify()
	if err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("email"))
	if err != nil {
		return err
	}

	playlist, err := spotify.CreatePlaylist(ctx, user, cmd.String("title"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Created playlist %s\n", playlist.Title())
	r.writePlain("  ID: %s\n", playlist.ID())
	r.writePlain("  URL: %s\n", playlist.URL())
	r.writePlainln("Share the URL with the group, then post links with:")
	r.writePlain("  groupchat chat send --playlist %s --message \"https://open.spotify.com/track/...\"\n", playlist.ID())
	return nil
}

// PlaylistList lists the playlists owned by a connected user.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	user, err := r.resolveUser(cmd.String("email"))
	if err != nil {
		return err
	}

	playlists, err := r.store.ListPlaylists(user.ID())
	if err != nil {
		return err
	}

	r.logger.Debug("listing playlists", "user", user.ID(), "count", len(playlists))
	return formatter.RenderPlaylists(r.output, format, playlists)
}

// PlaylistShow prints one stored playlist as JSON.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	playlist, err := store.GetPlaylist(cmd.String("id"))
	if err != nil {
		return err
	}

	return r.writeJSON(playlist, cmd.Bool("pretty"))
}
