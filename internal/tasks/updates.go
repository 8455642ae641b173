package tasks

import (
	"fmt"

	"github.com/desertthunder/trainx/internal/models"
)

// ProgressUpdate represents a progress event during a training run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	UploadDataset Phase = iota
	StartRun
	PollProgress
	Notify
	Finished
)

func (p Phase) String() string {
	switch p {
	case UploadDataset:
		return "upload_dataset"
	case StartRun:
		return "start_run"
	case PollProgress:
		return "poll_progress"
	case Notify:
		return "notify"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func uploadUpdate(dataset *models.Dataset, modelType models.ModelType) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadDataset,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Uploading %s (%s)...", dataset.Name, modelType.Label()),
		Data:    dataset,
	}
}

func startedUpdate(session *models.TrainingSession) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartRun,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Training started (run %s)", session.RunID),
		Data:    session,
	}
}

func pollUpdate(poll int, p *models.Progress) ProgressUpdate {
	if p == nil {
		return ProgressUpdate{
			Phase:   PollProgress,
			Step:    0,
			Total:   100,
			Message: fmt.Sprintf("[poll %d] no response", poll),
		}
	}
	return ProgressUpdate{
		Phase:   PollProgress,
		Step:    p.Percent(),
		Total:   100,
		Message: fmt.Sprintf("[poll %d] %d%% %s", poll, p.Percent(), p.Status),
		Data:    p,
	}
}

func noticeUpdate(n Notice) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Notify,
		Step:    1,
		Total:   1,
		Message: n.String(),
		Data:    n,
	}
}

func finishedUpdate(result *TrainResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    result.Final.Percent(),
		Total:   100,
		Message: fmt.Sprintf("Run %s %s", result.RunID, result.Final.Status),
		Data:    result,
	}
}
