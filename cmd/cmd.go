// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
		Sources: cli.EnvVars("LIBPLAYS_CONFIG"),
	}
}

func verboseFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug logging",
	}
}

// setupCommand handles setup operations for configuration, database and tokens.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a configuration file from the template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage: "Initialize the cache database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recently applied migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "token",
				Usage: "Configure Apple Music tokens from a music.apple.com request copied as cURL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupToken,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Apple Music authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through MusicKit in the browser and save the music user token",
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show which tokens are configured",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Make a request to confirm the tokens are accepted",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand handles library loading, search and export.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Library operations",
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Load the library, playlists and recently played into the cache",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Refetch even when the cache is fresh",
					},
				},
				Action: r.LibrarySync,
			},
			{
				Name:  "search",
				Usage: "Search library songs by name or artist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (defaults to library.search_limit)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LibrarySearch,
			},
			{
				Name:  "artists",
				Usage: "List artists with song counts, plays and listening time",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of artists",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LibraryArtists,
			},
			{
				Name:  "export",
				Usage: "Export library songs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, md or txt",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: library.<format>)",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

// statsCommand shows stats for one song.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show replay ranks, mix badges and play details for a song",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "id",
				Usage: "Treat the query as a library song ID",
			},
			&cli.BoolFlag{
				Name:  "palette",
				Usage: "Derive the artwork gradient",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Write a report instead: md",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report directory (default: the song ID)",
			},
		},
		Action: r.Stats,
	}
}

// recommendationsCommand lists personal recommendations.
func recommendationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "recommendations",
		Aliases: []string{"recs"},
		Usage:   "List personal recommendations",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "ids",
				Usage: "Recommendation IDs to fetch",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Recommendations,
	}
}

// apiCommand handles direct (proxy) API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the library proxy (see serve)",
		Commands: []*cli.Command{
			{
				Name:  "songs",
				Usage: "GET /api/songs, prints raw JSON",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Page size",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Page offset",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APISongs,
			},
			{
				Name:  "recommendations",
				Usage: "GET /api/recommendations, prints raw JSON",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "ids",
						Usage: "Recommendation IDs",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIRecommendations,
			},
		},
	}
}

// cacheCommand inspects and clears the local cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local library cache",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show each cached dataset and its age",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheStatus,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached datasets",
				Action: r.CacheClear,
			},
		},
	}
}

// serveCommand runs the proxy backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the library proxy that holds the developer token",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive library stats.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive library stats TUI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/libplays-tui.log",
			},
		},
		Action: r.TUI,
	}
}
