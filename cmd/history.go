package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trainx/internal/formatter"
	"github.com/desertthunder/trainx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// History lists recorded runs, newest first, in the chosen export format.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	history, db, err := r.history()
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer db.Close()

	runs, err := history.Recent(int(cmd.Int("limit")), cmd.String("status"))
	if err != nil {
		return err
	}

	link := func(runID string) string { return tasks.TrackingURL(r.config.Tracking, runID) }

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(runs, format, output, link)
		if err != nil {
			return err
		}
		r.logger.Info("exported run history", "runs", len(runs), "path", path)
		return r.writePlain("Exported %d runs to %s\n", len(runs), path)
	}

	if len(runs) == 0 && format == formatter.Text {
		return r.writePlain("No runs recorded yet.\n")
	}

	data, err := formatter.Export(runs, format, link)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
