package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/desertthunder/trainx/internal/models"
)

const (
	TrainPath    = "/api/train"
	ProgressPath = "/api/progress/"
	HealthPath   = "/health"

	// DefaultStep is how far a run advances per progress request.
	DefaultStep = 10

	maxUploadSize = 32 << 20
	runningStatus = models.RunStatus("running")
)

// baseAccuracy is the accuracy a completed run of each model type reports.
var baseAccuracy = map[models.ModelType]float64{
	models.RandomForest: 0.87,
	models.XGBoost:      0.91,
	models.SVM:          0.83,
	models.CNN:          0.89,
}

// BackendOpts configures a [Backend].
type BackendOpts struct {
	Step       int
	FailModels []string
	Logger     *log.Logger
	NewID      func() string
}

// Backend is an in-memory training backend serving the same endpoints as the real service.
//
// Runs do no work: each progress request advances a run by a fixed step until it completes, or
// fails halfway when its model type is configured to fail.
type Backend struct {
	mu     sync.Mutex
	runs   map[string]*backendRun
	step   int
	fail   map[models.ModelType]bool
	logger *log.Logger
	newID  func() string
}

type backendRun struct {
	id        string
	taskID    string
	dataset   string
	size      int64
	model     models.ModelType
	progress  int
	status    models.RunStatus
	accuracy  *float64
	message   string
	createdAt time.Time
}

// RunSnapshot is a copy of a run's state for inspection.
type RunSnapshot struct {
	RunID     string
	Dataset   string
	Size      int64
	ModelType models.ModelType
	Progress  int
	Status    models.RunStatus
	CreatedAt time.Time
}

type trainResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	TaskID string `json:"task_id"`
}

type progressResponse struct {
	RunID    string           `json:"run_id"`
	Progress int              `json:"progress"`
	Status   models.RunStatus `json:"status"`
	Accuracy *float64         `json:"accuracy"`
	Message  string           `json:"message,omitempty"`
}

// NewBackend creates an empty backend.
func NewBackend(opts BackendOpts) *Backend {
	step := opts.Step
	if step <= 0 {
		step = DefaultStep
	}
	fail := make(map[models.ModelType]bool, len(opts.FailModels))
	for _, m := range opts.FailModels {
		if mt, err := models.ParseModelType(m); err == nil {
			fail[mt] = true
		}
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Backend{
		runs:   make(map[string]*backendRun),
		step:   step,
		fail:   fail,
		logger: logger,
		newID:  newID,
	}
}

// Routes returns the HTTP routes this handler serves.
func (b *Backend) Routes() []string {
	return []string{TrainPath, ProgressPath, HealthPath}
}

// ServeHTTP dispatches to the train, progress and health endpoints.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == HealthPath:
		b.handleHealth(w, r)
	case r.URL.Path == TrainPath:
		b.handleTrain(w, r)
	case strings.HasPrefix(r.URL.Path, ProgressPath):
		b.handleProgress(w, r)
	default:
		WriteError(w, http.StatusNotFound, "not found")
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	b.mu.Lock()
	n := len(b.runs)
	b.mu.Unlock()
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "runs": n})
}

func (b *Backend) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("dataset")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "dataset file is required")
		return
	}
	defer file.Close()

	if !models.SupportedDataset(header.Filename) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("unsupported dataset type: %s", header.Filename))
		return
	}

	modelType, err := models.ParseModelType(r.FormValue("model_type"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read dataset")
		return
	}

	run := &backendRun{
		id:        b.newID(),
		taskID:    b.newID(),
		dataset:   header.Filename,
		size:      size,
		model:     modelType,
		status:    models.StatusInProgress,
		message:   "queued",
		createdAt: time.Now().UTC(),
	}

	b.mu.Lock()
	b.runs[run.id] = run
	b.mu.Unlock()

	b.logger.Info("training started", "run_id", run.id, "dataset", run.dataset, "model", run.model, "bytes", size)
	WriteJSON(w, http.StatusOK, trainResponse{Status: "training_started", RunID: run.id, TaskID: run.taskID})
}

func (b *Backend) handleProgress(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, ProgressPath), "/")
	if id == "" {
		WriteError(w, http.StatusNotFound, "run id is required")
		return
	}

	b.mu.Lock()
	run, ok := b.runs[id]
	if ok {
		b.advance(run)
	}
	var resp progressResponse
	if ok {
		resp = progressResponse{
			RunID:    run.id,
			Progress: run.progress,
			Status:   run.status,
			Accuracy: run.accuracy,
			Message:  run.message,
		}
	}
	b.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "run not found"})
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// advance moves a run one step forward. Callers hold b.mu.
func (b *Backend) advance(run *backendRun) {
	if run.status.Terminal() {
		return
	}

	run.progress = min(run.progress+b.step, 100)
	run.status = runningStatus

	switch {
	case b.fail[run.model] && run.progress >= 50:
		run.status = models.StatusFailed
		run.message = fmt.Sprintf("training %s on %s diverged", run.model, run.dataset)
		b.logger.Warn("training failed", "run_id", run.id, "model", run.model)
	case run.progress >= 100:
		acc := accuracyFor(run.model)
		run.status = models.StatusCompleted
		run.accuracy = &acc
		run.message = "training completed"
		b.logger.Info("training completed", "run_id", run.id, "accuracy", acc)
	case run.progress >= 85:
		run.message = "validating model"
	case run.progress >= 30:
		run.message = "training"
	default:
		run.message = "loading model"
	}
}

func accuracyFor(m models.ModelType) float64 {
	if acc, ok := baseAccuracy[m]; ok {
		return acc
	}
	return 0.5
}

// Run returns a snapshot of a run.
func (b *Backend) Run(id string) (RunSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	run, ok := b.runs[id]
	if !ok {
		return RunSnapshot{}, false
	}
	return RunSnapshot{
		RunID:     run.id,
		Dataset:   run.dataset,
		Size:      run.size,
		ModelType: run.model,
		Progress:  run.progress,
		Status:    run.status,
		CreatedAt: run.createdAt,
	}, true
}
