// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration and prepare the document database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write config.toml from the bundled template",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Where to write the file", Value: defaultConfigPath},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Run pending SQLite migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.MigrationStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.RollbackDatabase,
			},
		},
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to sync your watchlist across devices",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with OAuth2 in the browser",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: loginTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out; the local watchlist is kept",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and document service health",
				Action: r.AuthStatus,
			},
		},
	}
}

func watchlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watchlist",
		Aliases: []string{"wl"},
		Usage:   "Manage saved movies and TV shows",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Save a movie or show",
				ArgsUsage: "<movie|tv> <id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Display title"},
					&cli.StringFlag{Name: "poster", Usage: "Poster path, e.g. /abc.jpg"},
					&cli.FloatFlag{Name: "rating", Usage: "Vote average"},
					&cli.StringFlag{Name: "date", Usage: "Release or first air date (YYYY-MM-DD)"},
				},
				Action: r.WatchlistAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a saved item",
				ArgsUsage: "<movie|tv> <id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
					&cli.StringArg{Name: "id"},
				},
				Action: r.WatchlistRemove,
			},
			{
				Name:      "check",
				Usage:     "Report whether an item is saved",
				ArgsUsage: "<movie|tv> <id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "type"},
					&cli.StringArg{Name: "id"},
				},
				Action: r.WatchlistCheck,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List saved items",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Fuzzy match on title"},
					&cli.StringFlag{Name: "type", Usage: "Only movie or tv"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.WatchlistList,
			},
			{
				Name:   "clear",
				Usage:  "Empty the local watchlist (the cloud copy is not changed)",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip confirmation"}},
				Action: r.WatchlistClear,
			},
			{
				Name:   "sync",
				Usage:  "Merge the local watchlist with the cloud copy",
				Action: r.WatchlistSync,
			},
			{
				Name:  "export",
				Usage: "Export the watchlist to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"F"}, Usage: "json, csv, markdown or txt", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "File or directory; - writes to stdout"},
				},
				Action: r.WatchlistExport,
			},
		},
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Locally stored settings",
		Commands: []*cli.Command{
			{
				Name:  "api-key",
				Usage: "Manage the movie database API key",
				Commands: []*cli.Command{
					{
						Name:      "set",
						Usage:     "Store an API key (prompts when omitted)",
						ArgsUsage: "[key]",
						Arguments: []cli.Argument{&cli.StringArg{Name: "key"}},
						Action:    r.APIKeySet,
					},
					{
						Name:   "show",
						Usage:  "Print the stored key, masked",
						Flags:  []cli.Flag{&cli.BoolFlag{Name: "reveal", Usage: "Print the key in full"}},
						Action: r.APIKeyShow,
					},
					{
						Name:   "clear",
						Usage:  "Remove the stored key",
						Action: r.APIKeyClear,
					},
				},
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the watchlist document service and RSS proxy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to server.host:server.port)"},
			&cli.StringFlag{Name: "driver", Usage: "Document store: sqlite or postgres"},
			&cli.BoolFlag{Name: "feeds-only", Usage: "Serve only the RSS proxy"},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse the watchlist interactively",
		Flags:  []cli.Flag{&cli.StringFlag{Name: "log-file", Usage: "Where to write logs while the TUI runs", Value: "watchx-tui.log"}},
		Action: r.TUI,
	}
}
