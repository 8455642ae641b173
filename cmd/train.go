package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/tasks"
	"github.com/urfave/cli/v3"
)

type trainOutput struct {
	RunID     string           `json:"run_id"`
	Dataset   string           `json:"dataset"`
	ModelType models.ModelType `json:"model_type"`
	Status    models.RunStatus `json:"status"`
	Progress  int              `json:"progress"`
	Accuracy  *float64         `json:"accuracy"`
	Message   string           `json:"message,omitempty"`
	Polls     int              `json:"polls"`
	Link      string           `json:"link,omitempty"`
}

// Train uploads a dataset, starts a run and polls until it completes or fails.
func (r *Runner) Train(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAPI(); err != nil {
		return err
	}

	path := cmd.String("dataset")
	if path == "" {
		return fmt.Errorf("%w: --dataset is required", shared.ErrMissingArgument)
	}
	if !models.SupportedDataset(path) {
		return fmt.Errorf("%w: %s (expected one of %v)", shared.ErrInvalidDataset, path, models.DatasetExtensions)
	}
	dataset, err := models.NewDatasetFromPath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidDataset, err)
	}

	modelType, err := r.resolveModelType(ctx, cmd)
	if err != nil {
		return err
	}

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = r.config.Polling.Interval
	}

	recorder, closeHistory := r.recorder()
	defer closeHistory()

	trainer := tasks.NewTrainer(tasks.TrainerOpts{
		API:      r.api,
		Interval: interval,
		Recorder: recorder,
		BaseURL:  r.baseURL,
		Tracking: r.config.Tracking,
		Logger:   r.logger,
	})

	asJSON := cmd.Bool("json")
	r.logger.Info("starting training", "dataset", dataset.Name, "model", modelType, "interval", interval)

	var progressCh chan tasks.ProgressUpdate
	done := make(chan struct{})
	if asJSON {
		close(done)
	} else {
		r.writePlain("Dataset: %s (%d bytes)\n", dataset.Name, dataset.Size)
		r.writePlain("Model: %s\n\n", modelType.Label())

		progressCh = make(chan tasks.ProgressUpdate, 50)
		go func() {
			defer close(done)
			for update := range progressCh {
				switch update.Phase {
				case tasks.UploadDataset:
					r.writePlain("📤 %s\n", update.Message)
				case tasks.StartRun:
					r.writePlain("🚀 %s\n", update.Message)
				case tasks.PollProgress:
					r.writePlain("   %s\n", update.Message)
				case tasks.Notify:
					r.writePlain("%s\n", update.Message)
				}
			}
		}()
	}

	result, runErr := trainer.Run(ctx, dataset, modelType, progressCh)
	if progressCh != nil {
		close(progressCh)
	}
	<-done

	if result == nil {
		return runErr
	}

	if asJSON {
		out := trainOutput{
			RunID:     result.RunID,
			Dataset:   dataset.Name,
			ModelType: modelType,
			Status:    result.Final.Status,
			Progress:  result.Final.Percent(),
			Accuracy:  result.Final.Accuracy,
			Message:   result.Final.Message,
			Polls:     result.Polls,
			Link:      result.Link,
		}
		if err := r.writeJSON(out, false); err != nil {
			return err
		}
		return runErr
	}

	r.writePlain("\n")
	if result.Succeeded() {
		r.writePlainHeader("Training Complete!")
	} else {
		r.writePlainHeader("Training Stopped")
	}
	r.writePlain("Run: %s\n", result.RunID)
	if result.Final.Status != "" {
		r.writePlain("Status: %s (%d%%)\n", result.Final.Status, result.Final.Percent())
	}
	if result.Final.Accuracy != nil {
		r.writePlain("Accuracy: %s\n", result.Final.AccuracyString())
	}
	r.writePlain("Polls: %d\n", result.Polls)
	if result.Link != "" {
		r.writePlain("MLflow: %s\n", result.Link)
	}

	return runErr
}

// resolveModelType reads --model, prompts when it is absent, or falls back to the default with --no-input.
func (r *Runner) resolveModelType(ctx context.Context, cmd *cli.Command) (models.ModelType, error) {
	if name := cmd.String("model"); name != "" {
		m, err := models.ParseModelType(name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidModelType, err)
		}
		return m, nil
	}
	if cmd.Bool("no-input") || cmd.Bool("json") {
		return models.DefaultModelType, nil
	}

	m, err := r.prompt(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return "", fmt.Errorf("%w: model selection aborted", shared.ErrMissingArgument)
	}
	if err != nil {
		return "", err
	}
	return m, nil
}
