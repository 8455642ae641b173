// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/trainx/internal/formatter"
	"github.com/desertthunder/trainx/internal/models"
	"github.com/urfave/cli/v3"
)

func modelTypeNames() string {
	names := make([]string, 0, len(models.ModelTypes()))
	for _, m := range models.ModelTypes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func formatNames() string {
	names := make([]string, 0, len(formatter.Formats()))
	for _, f := range formatter.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.SetupDatabase,
	}
}

// trainCommand uploads a dataset, starts a run and follows it to the end
func trainCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Upload a dataset and train a model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dataset",
				Aliases:  []string{"d"},
				Usage:    "Path to a .csv or .parquet dataset",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model type (" + modelTypeNames() + ")",
			},
			&cli.BoolFlag{
				Name:  "no-input",
				Usage: "Use the default model type instead of prompting",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Progress polling interval (defaults to polling.interval)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the final result as JSON",
			},
		},
		Action: r.Train,
	}
}

// progressCommand fetches the current state of a run once
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Show the progress of a training run",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "run_id",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Progress,
	}
}

// historyCommand lists and exports recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List or export recorded training runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (" + formatNames() + ")",
				Value:   string(formatter.Text),
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show runs with this status",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// openCommand opens the tracking UI for a run
func openCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "open",
		Usage: "Open the MLflow page of a training run",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "run_id",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the link instead of opening a browser",
			},
		},
		Action: r.Open,
	}
}

// mockCommand serves a local stand-in for the training backend
func mockCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "Serve a mock training backend for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to listen on (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to server.port)",
			},
			&cli.IntFlag{
				Name:  "step",
				Usage: "Progress added per poll (defaults to server.step)",
			},
			&cli.StringSliceFlag{
				Name:  "fail",
				Usage: "Model types whose runs fail halfway",
			},
		},
		Action: r.Mock,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive training UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory the dataset picker starts in",
			},
		},
		Action: r.TUI,
	}
}
