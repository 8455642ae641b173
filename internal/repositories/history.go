package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/shared"
)

// RunHistory implements tasks.RunRecorder using RunRepository.
//
// Starting a run that is already recorded is a no-op, so replays never duplicate history.
type RunHistory struct {
	repo *RunRepository
}

// NewRunHistory creates a new RunHistory with the given repository
func NewRunHistory(repo *RunRepository) *RunHistory {
	return &RunHistory{repo: repo}
}

// RecordStart records a freshly started run.
func (h *RunHistory) RecordStart(runID string, dataset *models.Dataset, modelType models.ModelType, baseURL string) error {
	existing, err := h.repo.GetByRunID(runID)
	if err == nil && existing != nil {
		return nil
	}

	name := ""
	if dataset != nil {
		name = dataset.Name
	}

	run := models.NewRun(0, runID, name, modelType, baseURL)
	if err := h.repo.Create(run); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordProgress applies a poll response to a recorded run.
func (h *RunHistory) RecordProgress(runID string, p models.Progress) error {
	run, err := h.repo.GetByRunID(runID)
	if err != nil {
		if errors.Is(err, shared.ErrRunNotFound) {
			return err
		}
		return fmt.Errorf("failed to load run: %w", err)
	}

	run.Apply(p)
	return h.repo.Update(run)
}

// Recent returns up to limit runs, newest first.
func (h *RunHistory) Recent(limit int, status string) ([]*models.Run, error) {
	return h.repo.List(map[string]any{"limit": limit, "status": status})
}
