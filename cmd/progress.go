package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Progress fetches a run's progress once.
func (r *Runner) Progress(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAPI(); err != nil {
		return err
	}

	runID := cmd.StringArg("run_id")
	if runID == "" {
		return fmt.Errorf("%w: run_id", shared.ErrMissingArgument)
	}

	r.logger.Debug("fetching progress", "run_id", runID)
	p, err := r.api.GetProgress(ctx, runID)
	if err != nil {
		return err
	}
	if p.RunID == "" {
		p.RunID = runID
	}

	if history, db, err := r.history(); err == nil {
		if err := history.RecordProgress(runID, *p); err != nil {
			r.logger.Debug("run not in history", "run_id", runID, "error", err)
		}
		db.Close()
	}

	if cmd.Bool("json") {
		if cmd.Bool("pretty") {
			return r.writePrettyJSON(p)
		}
		return r.writeJSON(p, false)
	}

	r.writePlain("Run: %s\n", runID)
	r.writePlain("Status: %s\n", p.Status)
	r.writePlain("Progress: %d%%\n", p.Percent())
	if p.Accuracy != nil {
		r.writePlain("Accuracy: %s\n", p.AccuracyString())
	}
	if p.Message != "" {
		r.writePlain("Message: %s\n", p.Message)
	}
	if p.Status.Terminal() {
		r.writePlain("MLflow: %s\n", tasks.TrackingURL(r.config.Tracking, runID))
	}
	return nil
}
