// Package main is the entrypoint for the reelgen CLI and local API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/reelgen/cmd/reelgen/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "reelgen:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "reelgen",
		Usage: "Submit text-to-video jobs and follow them to completion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to an env file (default: ./.env if present)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Submit a generation and wait for the result",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prompt",
						Usage:    "text description of the clip",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "length",
						Usage: "clip length in seconds (5-60, default 20)",
					},
					&cli.IntFlag{
						Name:  "fps",
						Usage: "frames per second (4, 8, 12, 16 or 24; default 8)",
					},
					&cli.IntFlag{
						Name:  "width",
						Usage: "frame width (default 512)",
					},
					&cli.IntFlag{
						Name:  "height",
						Usage: "frame height (default 512)",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "random seed for reproducible output",
					},
					&cli.IntFlag{
						Name:  "steps",
						Usage: "inference steps (10, 20, 30 or 50; default 20)",
					},
					&cli.StringFlag{
						Name:  "download",
						Usage: "save the finished clip to this path",
					},
				},
				Action: commands.GenerateAction,
			},
			{
				Name:  "watch",
				Usage: "Resume tracking a submitted job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job-id",
						Usage:    "job id returned at submission",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "download",
						Usage: "save the finished clip to this path",
					},
				},
				Action: commands.WatchAction,
			},
			{
				Name:  "download",
				Usage: "Download the clip of a finished job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job-id",
						Usage:    "job id",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "output file",
						Value: "output.mp4",
					},
				},
				Action: commands.DownloadAction,
			},
			{
				Name:  "history",
				Usage: "Recent generations",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "Show recent generations",
						Action: commands.HistoryListAction,
					},
					{
						Name:  "remove",
						Usage: "Remove one entry",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "id",
								Usage:    "history entry id",
								Required: true,
							},
						},
						Action: commands.HistoryRemoveAction,
					},
					{
						Name:   "clear",
						Usage:  "Remove all entries",
						Action: commands.HistoryClearAction,
					},
				},
			},
			{
				Name:  "serve",
				Usage: "Run the local HTTP API",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "listen port (default REELGEN_PORT or 8090)",
					},
				},
				Action: commands.ServeAction,
			},
			{
				Name:  "token",
				Usage: "Manage the service token in the OS keychain",
				Commands: []*cli.Command{
					{
						Name:  "set",
						Usage: "Store the token",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "value",
								Usage:    "bearer token",
								Required: true,
							},
						},
						Action: commands.TokenSetAction,
					},
					{
						Name:   "clear",
						Usage:  "Remove the stored token",
						Action: commands.TokenClearAction,
					},
				},
			},
		},
	}
}
