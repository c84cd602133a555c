// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv or json",
		Value:   value,
	}
}

func emailFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "email",
		Aliases:  []string{"e"},
		Usage:    "Email of the connected Spotify user (optional when only one user is connected)",
		Required: required,
	}
}

func playlistFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "playlist",
		Aliases:  []string{"p"},
		Usage:    "Playlist ID",
		Required: true,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create config.toml from the bundled example",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// serveCommand runs the web server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Connect a Spotify account using OAuth2",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.SpotifyLogin,
			},
			{
				Name:   "url",
				Usage:  "Print the authorization URL",
				Action: r.SpotifyURL,
			},
			{
				Name:  "whoami",
				Usage: "Show the Spotify profile of a connected user",
				Flags: []cli.Flag{
					emailFlag(false),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyWhoami,
			},
		},
	}
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Collaborative playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a private collaborative playlist and make it active",
				Flags: []cli.Flag{
					emailFlag(false),
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Playlist title",
						Required: true,
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:   "list",
				Usage:  "List the playlists of a connected user",
				Flags:  []cli.Flag{emailFlag(false), formatFlag("text")},
				Action: r.PlaylistList,
			},
			{
				Name:  "show",
				Usage: "Show one playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// chatCommand handles posting and reading chat messages
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Post messages to a playlist's chat; linked tracks are added",
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "Post one message",
				Flags: []cli.Flag{
					playlistFlag(),
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Message text",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "sender",
						Aliases: []string{"s"},
						Usage:   "Sender name",
						Value:   "cli",
					},
				},
				Action: r.ChatSend,
			},
			{
				Name:  "import",
				Usage: "Replay a chat transcript, one message per line (\"name: text\")",
				Flags: []cli.Flag{
					playlistFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Transcript file, or - for stdin",
						Required: true,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Messages per second (overrides chat.import_rate_limit, 0 for unlimited)",
						Value: -1,
					},
					&cli.StringFlag{
						Name:  "sender",
						Usage: "Sender for lines without a name",
						Value: "anonymous",
					},
				},
				Action: r.ChatImport,
			},
			{
				Name:  "extract",
				Usage: "Print the track ids linked in a message",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "message",
					},
				},
				Action: r.ChatExtract,
			},
			{
				Name:  "history",
				Usage: "Show a playlist's chat history",
				Flags: []cli.Flag{
					playlistFlag(),
					formatFlag("text"),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Most recent messages to show (0 for all)",
					},
				},
				Action: r.ChatHistory,
			},
			{
				Name:  "export",
				Usage: "Export chat histories to files",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Playlist IDs to export (default: every playlist of the user)",
					},
					emailFlag(false),
					formatFlag("json"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: groupchat_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 4,
					},
				},
				Action: r.ChatExport,
			},
			{
				Name:   "tui",
				Usage:  "Interactive chat: pick a playlist, type messages, see the tracks added",
				Flags:  []cli.Flag{emailFlag(false)},
				Action: r.TUI,
			},
		},
	}
}
