// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: pretty,
		},
	}
}

func sortFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sort-by",
			Aliases: []string{"s"},
			Usage:   "Sort key: title, date or channel",
			Value:   "title",
		},
		&cli.StringFlag{
			Name:    "order",
			Aliases: []string{"o"},
			Usage:   "Sort direction: asc or desc",
			Value:   "asc",
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the YouTube user credential",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Google using OAuth2 and store the token",
				Action: r.AuthLogin,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show whether an API key and a user token are configured",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Revoke and forget the stored token",
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistsCommand lists a channel's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List playlists of a channel, or your own when --channel is omitted",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Channel ID",
			},
		}, jsonFlags(false)...),
		Action: r.Playlists,
	}
}

// itemsCommand lists a playlist's enriched items in playlist order.
func itemsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "items",
		Usage:     "List the videos of a playlist in playlist order",
		Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
		Flags:     jsonFlags(false),
		Action:    r.Items,
	}
}

// sortCommand sorts a playlist and optionally materializes it.
func sortCommand(r *Runner) *cli.Command {
	flags := append(sortFlags(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json, csv, markdown or txt",
			Value:   "txt",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Write the export into this directory instead of stdout",
		},
		&cli.StringFlag{
			Name:  "create",
			Usage: "Create a new private playlist with this title holding the sorted videos",
		},
	)

	return &cli.Command{
		Name:      "sort",
		Usage:     "Sort a playlist by title, date or channel",
		Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}},
		Flags:     flags,
		Action:    r.Sort,
	}
}

// exportCommand exports many playlists concurrently.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Sort and export playlists to files",
		Arguments: []cli.Argument{
			&cli.StringArgs{Name: "playlists", Min: 0, Max: -1},
		},
		Flags: append(sortFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown or txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output directory (default: youtube_export_<epoch>)",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Export every playlist of this channel",
			},
			&cli.BoolFlag{
				Name:  "mine",
				Usage: "Export every playlist of the authenticated user",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers (max 10)",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playlists started per second",
				Value: 2,
			},
		),
		Action: r.Export,
	}
}

// jobsCommand inspects and resumes materialization jobs.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and resume playlist materialization jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded jobs, newest first",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "state",
						Usage: "Only jobs in this state",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Only jobs sorting this playlist",
					},
					&cli.BoolFlag{
						Name:  "resumable",
						Usage: "Only jobs that can be resumed",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs",
						Value: 20,
					},
				}, jsonFlags(false)...),
				Action: r.JobsList,
			},
			{
				Name:      "show",
				Usage:     "Show one job",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     jsonFlags(true),
				Action:    r.JobsShow,
			},
			{
				Name:      "resume",
				Usage:     "Insert the remaining videos of a partially materialized playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.JobsResume,
			},
			{
				Name:      "delete",
				Usage:     "Forget a job",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.JobsDelete,
			},
		},
	}
}

// serveCommand runs the JSON API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist sorting.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist sorting",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Browse this channel instead of your own playlists",
			},
		},
		Action: r.TUI,
	}
}
