package tasks

import (
	"fmt"
	"net/url"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/services"
	"github.com/desertthunder/trainx/internal/shared"
)

// State is the coarse state of a [Session].
type State int

const (
	Idle State = iota
	FileSelected
	Training
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FileSelected:
		return "file_selected"
	case Training:
		return "training"
	case Terminal:
		return "terminal"
	default:
		return ""
	}
}

// NoticeLevel is the severity of a [Notice].
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a one-shot user-facing notification raised by a state transition.
type Notice struct {
	Level  NoticeLevel
	Title  string
	Detail string
}

func (n Notice) String() string {
	if n.Detail == "" {
		return n.Title
	}
	return fmt.Sprintf("%s: %s", n.Title, n.Detail)
}

// UploadStatus mirrors the lifecycle of a file picker selection.
type UploadStatus int

const (
	UploadUploading UploadStatus = iota
	UploadDone
	UploadError
	UploadRemoved
)

// UploadEvent reports a change in the selected dataset.
//
// File is only meaningful for [UploadDone]; Message carries the failure reason for [UploadError].
type UploadEvent struct {
	Status  UploadStatus
	File    *models.Dataset
	Message string
}

// Session owns the client-side state of one training page: the selected dataset and model type,
// the training gate, and the current run's ID and progress.
//
// Every started run opens a new polling generation. Ticks and poll results carry the generation they
// belong to, so anything left over from an earlier run is ignored and only one polling loop is ever live.
//
// A Session is not safe for concurrent use; callers serialize access (the bubbletea update loop, or the
// single goroutine in [Trainer.Run]).
type Session struct {
	dataset    *models.Dataset
	modelType  models.ModelType
	training   bool
	progress   int
	runID      string
	status     models.RunStatus
	last       *models.Progress
	generation uint64
	polling    bool
	inFlight   bool
	closed     bool
	notices    []Notice
}

// NewSession returns an idle session with the default model type selected.
func NewSession() *Session {
	return &Session{modelType: models.DefaultModelType}
}

// State derives the coarse state from the session fields.
func (s *Session) State() State {
	switch {
	case s.training:
		return Training
	case s.status.Terminal():
		return Terminal
	case s.dataset != nil:
		return FileSelected
	default:
		return Idle
	}
}

func (s *Session) Dataset() *models.Dataset       { return s.dataset }
func (s *Session) ModelType() models.ModelType    { return s.modelType }
func (s *Session) Training() bool                 { return s.training }
func (s *Session) Progress() int                  { return s.progress }
func (s *Session) RunID() string                  { return s.runID }
func (s *Session) Status() models.RunStatus       { return s.status }
func (s *Session) LastProgress() *models.Progress { return s.last }
func (s *Session) Generation() uint64             { return s.generation }
func (s *Session) Closed() bool                   { return s.closed }

// CanStart reports whether [Session.Begin] would send a request.
func (s *Session) CanStart() bool {
	return !s.closed && s.dataset != nil && !s.training
}

// DrainNotices returns and clears the pending notices.
func (s *Session) DrainNotices() []Notice {
	n := s.notices
	s.notices = nil
	return n
}

func (s *Session) notify(level NoticeLevel, title, detail string) {
	s.notices = append(s.notices, Notice{Level: level, Title: title, Detail: detail})
}

// HandleUpload applies a file picker event.
func (s *Session) HandleUpload(ev UploadEvent) {
	switch ev.Status {
	case UploadUploading:
		s.dataset = nil
	case UploadDone:
		if ev.File == nil {
			s.notify(NoticeError, "Invalid file", "")
			return
		}
		s.dataset = ev.File
		s.notify(NoticeSuccess, "Dataset uploaded", ev.File.Name)
	case UploadError:
		msg := ev.Message
		if msg == "" {
			msg = "unknown error"
		}
		s.notify(NoticeError, "Upload failed", msg)
		s.dataset = nil
	case UploadRemoved:
		s.dataset = nil
	}
}

// SelectModelType changes the model type. It is rejected while training.
func (s *Session) SelectModelType(m models.ModelType) error {
	if s.training {
		return shared.ErrTrainingActive
	}
	if !m.Valid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidModelType, m)
	}
	s.modelType = m
	return nil
}

// Begin raises the training gate and returns the request to send.
//
// Without a dataset it raises a warning notice and returns [shared.ErrNoDataset].
// While a run is active it returns [shared.ErrTrainingActive] and nothing changes.
func (s *Session) Begin() (services.TrainingRequest, error) {
	if s.closed {
		return services.TrainingRequest{}, fmt.Errorf("%w: session closed", shared.ErrServiceUnavailable)
	}
	if s.dataset == nil {
		s.notify(NoticeWarning, "Please upload a dataset first", "")
		return services.TrainingRequest{}, shared.ErrNoDataset
	}
	if s.training {
		return services.TrainingRequest{}, shared.ErrTrainingActive
	}

	s.training = true
	return services.TrainingRequest{Dataset: s.dataset, ModelType: s.modelType}, nil
}

// Started records the outcome of the start-training call made after [Session.Begin].
//
// On success it resets the progress display, opens a new polling generation and returns it.
// On failure it raises an error notice and lowers the training gate.
func (s *Session) Started(session *models.TrainingSession, err error) (uint64, bool) {
	if s.closed || !s.training {
		return 0, false
	}

	if err == nil && (session == nil || session.RunID == "") {
		err = fmt.Errorf("%w: response missing run_id", shared.ErrAPIRequest)
	}
	if err != nil {
		s.training = false
		s.notify(NoticeError, "Failed to start training", services.ErrorMessage(err))
		return 0, false
	}

	s.runID = session.RunID
	s.progress = 0
	s.status = models.StatusInProgress
	s.last = nil
	s.generation++
	s.polling = true
	s.inFlight = false
	return s.generation, true
}

// Polling reports whether the timer for gen should keep running.
func (s *Session) Polling(gen uint64) bool {
	return !s.closed && s.polling && gen == s.generation
}

// Tick decides whether a timer tick for gen should issue a poll.
//
// It refuses stale generations and skips the tick while the previous poll has not resolved.
func (s *Session) Tick(gen uint64) bool {
	if !s.Polling(gen) || s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// ApplyProgress records a poll result for gen and reports whether the run reached a terminal state.
//
// Results for stale generations are dropped. A poll error stops the loop and is reported once.
func (s *Session) ApplyProgress(gen uint64, p *models.Progress, err error) bool {
	if !s.Polling(gen) {
		return false
	}
	s.inFlight = false

	if err == nil && p == nil {
		err = fmt.Errorf("%w: empty progress response", shared.ErrAPIRequest)
	}
	if err != nil {
		s.stop()
		s.status = models.StatusFailed
		s.notify(NoticeError, "Progress check failed", services.ErrorMessage(err))
		return true
	}

	cp := *p
	s.last = &cp
	s.progress = p.Percent()
	s.status = p.Status
	if !p.Status.Terminal() {
		return false
	}

	s.stop()
	if p.Status == models.StatusCompleted {
		s.notify(NoticeSuccess, "Training completed", "Accuracy: "+p.AccuracyString())
	} else {
		s.notify(NoticeError, "Training failed", p.Message)
	}
	return true
}

func (s *Session) stop() {
	s.polling = false
	s.inFlight = false
	s.training = false
}

// Close ends the session's polling lifetime. Later ticks and results are ignored.
func (s *Session) Close() {
	s.closed = true
	s.polling = false
	s.inFlight = false
}

// TrackingLink returns the experiment tracking URL for the current run.
//
// It is only available once a run ID exists and training has stopped.
func (s *Session) TrackingLink(t shared.TrackingConfig) (string, bool) {
	if s.runID == "" || s.training {
		return "", false
	}
	return TrackingURL(t, s.runID), true
}

// TrackingURL builds http://{host}:{port}/#/experiments/{experiment}/runs/{runID}.
func TrackingURL(t shared.TrackingConfig, runID string) string {
	host := t.Host
	if host == "" {
		host = "localhost"
	}
	exp := t.Experiment
	if exp == "" {
		exp = "0"
	}
	return fmt.Sprintf("http://%s:%d/#/experiments/%s/runs/%s", host, t.Port, url.PathEscape(exp), url.PathEscape(runID))
}
