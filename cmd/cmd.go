// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/spotx/internal/services"
	"github.com/urfave/cli/v3"
)

// outputFlags are shared by every command that prints a lookup result.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json, text, markdown or csv",
			Value:   "json",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the result to a file instead of stdout",
		},
		&cli.StringFlag{
			Name:  "export-dir",
			Usage: "Write README.md and cover.jpg for the result to this directory",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the lookup in history",
		},
	}
}

// resolveCommand classifies input without touching the network
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Classify a Spotify link, URI or search query",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "input"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Fail unless the input is a Spotify link or URI",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show the auth mode and token state",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Resolve,
	}
}

// searchCommand dispatches any input to the matching lookup
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Look up a Spotify link, URI or free-text query",
		ArgsUsage: "<input...>",
		Flags:     outputFlags(),
		Action:    r.Search,
	}
}

func fetchCommand(r *Runner, kind services.ResourceKind, usage string) *cli.Command {
	return &cli.Command{
		Name:  kind.String(),
		Usage: usage,
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  outputFlags(),
		Action: r.Fetch(kind),
	}
}

func trackCommand(r *Runner) *cli.Command {
	return fetchCommand(r, services.KindTrack, "Fetch a track by id")
}

func albumCommand(r *Runner) *cli.Command {
	return fetchCommand(r, services.KindAlbum, "Fetch an album by id")
}

// playlistCommand fetches every page of a playlist
func playlistCommand(r *Runner) *cli.Command {
	return fetchCommand(r, services.KindPlaylist, "Fetch a playlist by id, following every page")
}

func artistCommand(r *Runner) *cli.Command {
	return fetchCommand(r, services.KindArtist, "Fetch an artist's top tracks by id")
}

// wordsCommand runs a free-text track search
func wordsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "words",
		Usage:     "Search tracks by free text",
		ArgsUsage: "<query...>",
		Flags:     outputFlags(),
		Action:    r.Words,
	}
}

// openCommand opens the resolved resource in the default browser
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open a Spotify link, URI or search in the browser",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "input"},
		},
		Action: r.Open,
	}
}

// batchCommand looks up every line of a file concurrently
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Look up every input in a file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "File with one input per line (- for stdin)",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent lookups (max 16)",
				Value:   4,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Lookups started per second (0 for no limit)",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Write each result and a manifest.json to this directory",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Format of exported files: json, text, markdown or csv",
				Value:   "json",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print exported JSON",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record lookups in history",
			},
		},
		Action: r.Batch,
	}
}

// historyCommand manages the lookup history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Lookup history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent lookups",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of lookups to show",
						Value:   20,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only show lookups of this kind",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "delete",
				Usage: "Delete a lookup by its number, or every lookup with --all",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "sequence"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Delete every lookup",
					},
				},
				Action: r.HistoryDelete,
			},
			{
				Name:   "stats",
				Usage:  "Count lookups by kind",
				Action: r.HistoryStats,
			},
		},
	}
}

// setupCommand creates the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP lookup API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the lookup API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record lookups in history",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive lookups.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive lookup TUI",
		Action:  r.TUI,
	}
}
