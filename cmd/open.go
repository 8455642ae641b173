package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Open opens a run's tracking page in the default browser.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) error {
	runID := cmd.StringArg("run_id")
	if runID == "" {
		return fmt.Errorf("%w: run_id", shared.ErrMissingArgument)
	}

	link := tasks.TrackingURL(r.config.Tracking, runID)
	if cmd.Bool("print") {
		return r.writePlain("%s\n", link)
	}

	r.logger.Info("opening run", "run_id", runID, "url", link)
	if err := r.open(link); err != nil {
		r.writePlainln("Open this link in your browser: %s", link)
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
