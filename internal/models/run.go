package models

import (
	"errors"
	"time"
)

// Run is a training run recorded in the local history.
type Run struct {
	id         string
	sequence   int
	runID      string
	dataset    string
	modelType  ModelType
	status     RunStatus
	progress   int
	accuracy   *float64
	message    string
	baseURL    string
	createdAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
	deletedAt  *time.Time
}

// NewRun creates a [Run] for a freshly started session.
func NewRun(sequence int, runID, dataset string, modelType ModelType, baseURL string) *Run {
	now := time.Now()
	return &Run{
		sequence:  sequence,
		runID:     runID,
		dataset:   dataset,
		modelType: modelType,
		status:    StatusInProgress,
		baseURL:   baseURL,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreRun rebuilds a [Run] from stored columns.
func RestoreRun(
	id string, sequence int, runID, dataset string, modelType ModelType, status RunStatus,
	progress int, accuracy *float64, message, baseURL string,
	createdAt, updatedAt time.Time, finishedAt, deletedAt *time.Time,
) *Run {
	return &Run{
		id:         id,
		sequence:   sequence,
		runID:      runID,
		dataset:    dataset,
		modelType:  modelType,
		status:     status,
		progress:   progress,
		accuracy:   accuracy,
		message:    message,
		baseURL:    baseURL,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		finishedAt: finishedAt,
		deletedAt:  deletedAt,
	}
}

func (r *Run) ID() string             { return r.id }
func (r *Run) Sequence() int          { return r.sequence }
func (r *Run) RunID() string          { return r.runID }
func (r *Run) Dataset() string        { return r.dataset }
func (r *Run) ModelType() ModelType   { return r.modelType }
func (r *Run) Status() RunStatus      { return r.status }
func (r *Run) Progress() int          { return r.progress }
func (r *Run) Accuracy() *float64     { return r.accuracy }
func (r *Run) Message() string        { return r.message }
func (r *Run) BaseURL() string        { return r.baseURL }
func (r *Run) CreatedAt() time.Time   { return r.createdAt }
func (r *Run) UpdatedAt() time.Time   { return r.updatedAt }
func (r *Run) FinishedAt() *time.Time { return r.finishedAt }
func (r *Run) DeletedAt() *time.Time  { return r.deletedAt }

func (r *Run) SetID(id string)            { r.id = id }
func (r *Run) SetSequence(seq int)        { r.sequence = seq }
func (r *Run) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time)  { r.deletedAt = t }
func (r *Run) IsDeleted() bool            { return r.deletedAt != nil }
func (r *Run) SetFinishedAt(t *time.Time) { r.finishedAt = t }

// Apply copies a poll response onto the run, stamping FinishedAt on terminal status.
func (r *Run) Apply(p Progress) {
	r.progress = p.Percent()
	if p.Status != "" {
		r.status = p.Status
	}
	if p.Accuracy != nil {
		a := *p.Accuracy
		r.accuracy = &a
	}
	if p.Message != "" {
		r.message = p.Message
	}
	if r.status.Terminal() && r.finishedAt == nil {
		now := time.Now()
		r.finishedAt = &now
	}
}

// Fail marks the run failed locally, e.g. after a poll error.
func (r *Run) Fail(message string) {
	r.Apply(Progress{Progress: r.progress, Status: StatusFailed, Message: message})
}

// Validate checks required fields.
func (r *Run) Validate() error {
	if r.runID == "" {
		return errors.New("run_id is required")
	}
	if r.dataset == "" {
		return errors.New("dataset is required")
	}
	if !r.modelType.Valid() {
		return errors.New("model_type is invalid")
	}
	if r.progress < 0 || r.progress > 100 {
		return errors.New("progress must be between 0 and 100")
	}
	return nil
}
