// package services defines interface TrainingAPI for interacting with the training backend over HTTP
package services

import (
	"context"

	"github.com/desertthunder/trainx/internal/models"
)

// TrainingAPI defines the operations the client needs from a training backend.
type TrainingAPI interface {
	// StartTraining uploads the dataset and requests a run of the given model type.
	StartTraining(ctx context.Context, req TrainingRequest) (*models.TrainingSession, error)

	// GetProgress fetches the current progress of a run.
	GetProgress(ctx context.Context, runID string) (*models.Progress, error)
}

// TrainingRequest is the payload of a start-training call.
type TrainingRequest struct {
	Dataset   *models.Dataset
	ModelType models.ModelType
}
