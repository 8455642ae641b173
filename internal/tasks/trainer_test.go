package tasks

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/services"
	"github.com/desertthunder/trainx/internal/shared"
)

type mockAPI struct {
	mu        sync.Mutex
	session   *models.TrainingSession
	startErr  error
	responses []*models.Progress
	pollErr   error
	errAfter  int
	requests  []services.TrainingRequest
	polls     []string
}

func (m *mockAPI) StartTraining(ctx context.Context, req services.TrainingRequest) (*models.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.session, nil
}

func (m *mockAPI) GetProgress(ctx context.Context, runID string) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls = append(m.polls, runID)
	n := len(m.polls)
	if m.pollErr != nil && n > m.errAfter {
		return nil, m.pollErr
	}
	if n > len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	return m.responses[n-1], nil
}

type mockRecorder struct {
	started []string
	updates []models.Progress
}

func (r *mockRecorder) RecordStart(runID string, dataset *models.Dataset, modelType models.ModelType, baseURL string) error {
	r.started = append(r.started, runID+":"+dataset.Name+":"+string(modelType)+":"+baseURL)
	return nil
}

func (r *mockRecorder) RecordProgress(runID string, p models.Progress) error {
	r.updates = append(r.updates, p)
	return errors.New("disk full")
}

func newTestTrainer(api services.TrainingAPI, rec RunRecorder) *Trainer {
	opts := TrainerOpts{
		API:      api,
		Interval: time.Millisecond,
		BaseURL:  "http://backend:8000",
		Tracking: shared.TrackingConfig{Host: "localhost", Port: 5000, Experiment: "0"},
	}
	if rec != nil {
		opts.Recorder = rec
	}
	return NewTrainer(opts)
}

func TestTrainerRun(t *testing.T) {
	t.Run("End To End", func(t *testing.T) {
		api := &mockAPI{
			session: &models.TrainingSession{RunID: "42"},
			responses: []*models.Progress{
				{Progress: 30, Status: models.StatusInProgress},
				{Progress: 100, Status: models.StatusCompleted, Accuracy: accuracy(0.91)},
			},
		}
		rec := &mockRecorder{}
		progress := make(chan ProgressUpdate, 32)

		result, err := newTestTrainer(api, rec).Run(context.Background(), dataset("data.csv"), models.XGBoost, progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(api.requests) != 1 {
			t.Fatalf("expected one start request, got %d", len(api.requests))
		}
		if api.requests[0].Dataset.Name != "data.csv" || api.requests[0].ModelType != models.XGBoost {
			t.Errorf("unexpected request: %+v", api.requests[0])
		}
		if len(api.polls) != 2 || api.polls[0] != "42" {
			t.Errorf("expected two polls for run 42, got %v", api.polls)
		}
		if result.Polls != 2 || !result.Succeeded() || result.Final.Percent() != 100 {
			t.Errorf("unexpected result: %+v", result)
		}
		if !strings.Contains(result.Link, "42") {
			t.Errorf("expected link to contain run id, got %q", result.Link)
		}

		var success []Notice
		for _, n := range result.Notices {
			if n.Level == NoticeSuccess && strings.Contains(n.Detail, "0.91") {
				success = append(success, n)
			}
		}
		if len(success) != 1 {
			t.Errorf("expected one success notice with accuracy, got %v", result.Notices)
		}

		if len(rec.started) != 1 || rec.started[0] != "42:data.csv:xgboost:http://backend:8000" {
			t.Errorf("unexpected recorded start: %v", rec.started)
		}
		if len(rec.updates) != 2 {
			t.Errorf("expected two recorded updates, got %d", len(rec.updates))
		}

		close(progress)
		phases := map[Phase]int{}
		for u := range progress {
			phases[u.Phase]++
		}
		if phases[UploadDataset] != 1 || phases[StartRun] != 1 || phases[PollProgress] != 2 || phases[Finished] != 1 {
			t.Errorf("unexpected phases: %v", phases)
		}
	})

	t.Run("No Dataset", func(t *testing.T) {
		api := &mockAPI{}
		_, err := newTestTrainer(api, nil).Run(context.Background(), nil, models.RandomForest, nil)

		if !errors.Is(err, shared.ErrNoDataset) {
			t.Errorf("expected ErrNoDataset, got %v", err)
		}
		if len(api.requests) != 0 {
			t.Error("request sent without a dataset")
		}
	})

	t.Run("Invalid Model Type", func(t *testing.T) {
		_, err := newTestTrainer(&mockAPI{}, nil).Run(context.Background(), dataset("d.csv"), "linear", nil)
		if !errors.Is(err, shared.ErrInvalidModelType) {
			t.Errorf("expected ErrInvalidModelType, got %v", err)
		}
	})

	t.Run("Start Failure", func(t *testing.T) {
		api := &mockAPI{startErr: &services.APIError{StatusCode: 500, Message: "backend down"}}
		result, err := newTestTrainer(api, nil).Run(context.Background(), dataset("d.csv"), models.SVM, nil)

		if err == nil || result != nil {
			t.Fatalf("expected start error, got %v %v", result, err)
		}
		if len(api.polls) != 0 {
			t.Error("polled without a run")
		}
	})

	t.Run("Failed Run", func(t *testing.T) {
		api := &mockAPI{
			session:   &models.TrainingSession{RunID: "7"},
			responses: []*models.Progress{{Progress: 20, Status: models.StatusFailed, Message: "bad labels"}},
		}
		result, err := newTestTrainer(api, nil).Run(context.Background(), dataset("d.csv"), models.CNN, nil)

		if !errors.Is(err, shared.ErrTrainingFailed) {
			t.Fatalf("expected ErrTrainingFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "bad labels") {
			t.Errorf("expected backend message, got %v", err)
		}
		if result.Succeeded() || result.Polls != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("Poll Error", func(t *testing.T) {
		api := &mockAPI{
			session:   &models.TrainingSession{RunID: "9"},
			responses: []*models.Progress{{Progress: 10, Status: models.StatusInProgress}},
			pollErr:   shared.ErrRunNotFound,
			errAfter:  1,
		}
		rec := &mockRecorder{}
		result, err := newTestTrainer(api, rec).Run(context.Background(), dataset("d.csv"), models.SVM, nil)

		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Fatalf("expected ErrRunNotFound, got %v", err)
		}
		if result.Polls != 2 {
			t.Errorf("expected polling to stop after the error, got %d polls", result.Polls)
		}
		last := rec.updates[len(rec.updates)-1]
		if last.Status != models.StatusFailed {
			t.Errorf("expected failed status recorded, got %s", last.Status)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		api := &mockAPI{
			session:   &models.TrainingSession{RunID: "slow"},
			responses: []*models.Progress{{Progress: 5, Status: models.StatusInProgress}},
		}
		trainer := NewTrainer(TrainerOpts{API: api, Interval: time.Hour})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := trainer.Run(ctx, dataset("d.csv"), models.SVM, nil)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if len(api.polls) != 0 {
			t.Errorf("expected no polls, got %d", len(api.polls))
		}
	})

	t.Run("Nil API", func(t *testing.T) {
		_, err := NewTrainer(TrainerOpts{}).Run(context.Background(), dataset("d.csv"), models.SVM, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestTrainerHistoryErrors(t *testing.T) {
	api := &mockAPI{
		session: &models.TrainingSession{RunID: "42"},
		responses: []*models.Progress{
			{Progress: 30, Status: models.StatusInProgress},
			{Progress: 100, Status: models.StatusCompleted, Accuracy: accuracy(0.91)},
		},
	}
	var logs bytes.Buffer
	trainer := NewTrainer(TrainerOpts{
		API:      api,
		Interval: time.Millisecond,
		Recorder: &mockRecorder{},
		Logger:   log.New(&logs),
	})

	result, err := trainer.Run(context.Background(), &models.Dataset{Name: "data.csv", Content: []byte("a\n1\n")}, models.XGBoost, nil)
	if err != nil {
		t.Fatalf("expected history errors not to fail the run, got %v", err)
	}
	if !result.Succeeded() {
		t.Errorf("expected completed run, got %+v", result.Final)
	}
	if got := strings.Count(logs.String(), "history record failed"); got != 2 {
		t.Errorf("expected a warning per failed progress record, got %d in:\n%s", got, logs.String())
	}
	if !strings.Contains(logs.String(), "disk full") {
		t.Errorf("expected recorder error in logs:\n%s", logs.String())
	}
}

func TestTrainerOverHTTP(t *testing.T) {
	t.Run("numeric run ids echoed in every poll", func(t *testing.T) {
		var mu sync.Mutex
		polls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/api/train" {
				w.Write([]byte(`{"status":"training_started","run_id":42,"task_id":7}`))
				return
			}
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			if n == 1 {
				w.Write([]byte(`{"run_id":42,"progress":30,"status":"in_progress"}`))
				return
			}
			w.Write([]byte(`{"run_id":42,"progress":100.0,"status":"completed","accuracy":0.91}`))
		}))
		defer srv.Close()

		trainer := NewTrainer(TrainerOpts{
			API:      services.NewTrainingClient(srv.URL, srv.Client()),
			Interval: time.Millisecond,
			Tracking: shared.TrackingConfig{Host: "localhost", Port: 5000, Experiment: "0"},
		})
		dataset := &models.Dataset{Name: "data.csv", Content: []byte("a,b\n1,2\n")}

		result, err := trainer.Run(context.Background(), dataset, models.XGBoost, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.RunID != "42" || !result.Succeeded() || result.Polls != 2 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.Final.AccuracyString() != "0.91" {
			t.Errorf("expected accuracy 0.91, got %s", result.Final.AccuracyString())
		}
		if !strings.Contains(result.Link, "/runs/42") {
			t.Errorf("expected link for run 42, got %q", result.Link)
		}
	})
}

func TestSendProgressNonBlocking(t *testing.T) {
	trainer := NewTrainer(TrainerOpts{})
	progress := make(chan ProgressUpdate)

	done := make(chan struct{})
	go func() {
		trainer.sendProgress(progress, noticeUpdate(Notice{Title: "x"}))
		trainer.sendProgress(nil, noticeUpdate(Notice{Title: "y"}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendProgress blocked")
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		UploadDataset: "upload_dataset",
		StartRun:      "start_run",
		PollProgress:  "poll_progress",
		Notify:        "notify",
		Finished:      "finished",
		Phase(99):     "",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
