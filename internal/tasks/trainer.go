package tasks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/services"
	"github.com/desertthunder/trainx/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is the delay between progress polls.
const DefaultPollInterval = 2 * time.Second

// RunRecorder persists run history as a run moves through its lifecycle.
//
// Recording is best effort: errors are logged and never interrupt a run.
type RunRecorder interface {
	RecordStart(runID string, dataset *models.Dataset, modelType models.ModelType, baseURL string) error
	RecordProgress(runID string, p models.Progress) error
}

// TrainerOpts configures a [Trainer].
type TrainerOpts struct {
	API      services.TrainingAPI
	Interval time.Duration
	Recorder RunRecorder
	BaseURL  string
	Tracking shared.TrackingConfig
	Logger   *log.Logger
}

// Trainer runs a single training session to completion without a UI.
type Trainer struct {
	api      services.TrainingAPI
	interval time.Duration
	recorder RunRecorder
	baseURL  string
	tracking shared.TrackingConfig
	logger   *log.Logger
}

// TrainResult summarizes a finished run.
type TrainResult struct {
	RunID   string
	Final   models.Progress
	Polls   int
	Link    string
	Notices []Notice
}

// Succeeded reports whether the run completed.
func (r *TrainResult) Succeeded() bool {
	return r.Final.Status == models.StatusCompleted
}

// NewTrainer creates a headless trainer.
func NewTrainer(opts TrainerOpts) *Trainer {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Trainer{
		api:      opts.API,
		interval: interval,
		recorder: opts.Recorder,
		baseURL:  opts.BaseURL,
		tracking: opts.Tracking,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (t *Trainer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (t *Trainer) flush(s *Session, result *TrainResult, progress chan<- ProgressUpdate) {
	for _, n := range s.DrainNotices() {
		result.Notices = append(result.Notices, n)
		t.sendProgress(progress, noticeUpdate(n))
	}
}

// Run uploads dataset, starts training with modelType and polls until the run is terminal.
//
// Polls are sequential and paced at the configured interval, the first one after a full interval.
// A failed run returns the result together with an error wrapping [shared.ErrTrainingFailed].
func (t *Trainer) Run(ctx context.Context, dataset *models.Dataset, modelType models.ModelType, progress chan<- ProgressUpdate) (*TrainResult, error) {
	if t.api == nil {
		return nil, fmt.Errorf("%w: training API not configured", shared.ErrServiceUnavailable)
	}

	result := &TrainResult{}
	s := NewSession()
	defer s.Close()

	if dataset != nil {
		s.HandleUpload(UploadEvent{Status: UploadDone, File: dataset})
	}
	if err := s.SelectModelType(modelType); err != nil {
		return nil, err
	}

	req, err := s.Begin()
	t.flush(s, result, progress)
	if err != nil {
		return nil, err
	}

	t.sendProgress(progress, uploadUpdate(req.Dataset, req.ModelType))
	session, startErr := t.api.StartTraining(ctx, req)
	gen, ok := s.Started(session, startErr)
	t.flush(s, result, progress)
	if !ok {
		if startErr == nil {
			startErr = fmt.Errorf("%w: response missing run_id", shared.ErrAPIRequest)
		}
		return nil, startErr
	}

	result.RunID = s.RunID()
	t.sendProgress(progress, startedUpdate(session))
	if t.recorder != nil {
		if err := t.recorder.RecordStart(result.RunID, req.Dataset, req.ModelType, t.baseURL); err != nil {
			t.logger.Warn("history record failed", "run_id", result.RunID, "error", err)
		}
	}

	limiter := rate.NewLimiter(rate.Every(t.interval), 1)
	limiter.Allow()

	for s.Polling(gen) {
		if err := limiter.Wait(ctx); err != nil {
			t.record(result.RunID, models.Progress{
				RunID:    result.RunID,
				Progress: s.Progress(),
				Status:   models.StatusFailed,
				Message:  "cancelled",
			})
			return result, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}
		if !s.Tick(gen) {
			continue
		}

		p, pollErr := t.api.GetProgress(ctx, result.RunID)
		s.ApplyProgress(gen, p, pollErr)
		result.Polls++
		t.sendProgress(progress, pollUpdate(result.Polls, p))
		t.flush(s, result, progress)

		if pollErr != nil {
			t.record(result.RunID, models.Progress{
				RunID:    result.RunID,
				Progress: s.Progress(),
				Status:   models.StatusFailed,
				Message:  services.ErrorMessage(pollErr),
			})
			return result, pollErr
		}
		t.record(result.RunID, *p)
	}

	if last := s.LastProgress(); last != nil {
		result.Final = *last
	}
	result.Link, _ = s.TrackingLink(t.tracking)
	t.sendProgress(progress, finishedUpdate(result))

	if result.Final.Status == models.StatusFailed {
		msg := result.Final.Message
		if msg == "" {
			msg = "run " + result.RunID
		}
		return result, fmt.Errorf("%w: %s", shared.ErrTrainingFailed, msg)
	}
	return result, nil
}

func (t *Trainer) record(runID string, p models.Progress) {
	if t.recorder == nil {
		return
	}
	if err := t.recorder.RecordProgress(runID, p); err != nil {
		t.logger.Warn("history record failed", "run_id", runID, "error", err)
	}
}
