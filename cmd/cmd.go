// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "Spotify user ID to act as (defaults to the last login)",
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential for a user",
				Flags:  []cli.Flag{userFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete the stored credential for a user",
				Flags:  []cli.Flag{userFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistsCommand handles playlist listing and analysis operations
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist listing and analysis",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your Spotify playlists",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.Playlists,
			},
			{
				Name:  "contents",
				Usage: "Show the track listing of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistContents,
			},
			{
				Name:  "stats",
				Usage: "Show aggregate statistics for a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistStats,
			},
			{
				Name:  "dedupe",
				Usage: "Preview duplicate removal for a playlist (read-only)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistDedupe,
			},
			{
				Name:  "merge",
				Usage: "Preview merging one playlist into another (read-only)",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target",
						Usage:    "Target playlist ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistMerge,
			},
		},
	}
}

// exportCommand handles CSV export operations
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export playlists to CSV",
		Commands: []*cli.Command{
			{
				Name:  "playlist",
				Usage: "Export a single playlist to CSV",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to the artifact filename)",
					},
				},
				Action: r.ExportPlaylist,
			},
			{
				Name:  "all",
				Usage: "Export every playlist to a single CSV",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to the artifact filename)",
					},
					&cli.BoolFlag{
						Name:  "job",
						Usage: "Run as a background job and poll for completion",
					},
				},
				Action: r.ExportAll,
			},
		},
	}
}

// serveCommand starts the HTTP API server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP export API",
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist export.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist export",
		Flags:   []cli.Flag{userFlag()},
		Action:  r.TUI,
	}
}
