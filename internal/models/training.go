package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ModelType is the learning algorithm requested from the backend. Values are sent verbatim as model_type.
type ModelType string

const (
	RandomForest ModelType = "random_forest"
	XGBoost      ModelType = "xgboost"
	SVM          ModelType = "svm"
	CNN          ModelType = "cnn"
)

// DefaultModelType is preselected when a page is first mounted.
const DefaultModelType = RandomForest

// ModelTypes lists every supported [ModelType] in display order.
func ModelTypes() []ModelType {
	return []ModelType{RandomForest, XGBoost, SVM, CNN}
}

// Label returns a human-readable name.
func (m ModelType) Label() string {
	switch m {
	case RandomForest:
		return "Random Forest"
	case XGBoost:
		return "XGBoost"
	case SVM:
		return "Support Vector Machine"
	case CNN:
		return "Convolutional Neural Network"
	default:
		return string(m)
	}
}

// Valid reports whether m is one of [ModelTypes].
func (m ModelType) Valid() bool {
	for _, t := range ModelTypes() {
		if m == t {
			return true
		}
	}
	return false
}

// ParseModelType accepts the wire value case-insensitively.
func ParseModelType(s string) (ModelType, error) {
	m := ModelType(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown model type %q", s)
	}
	return m, nil
}

// RunStatus is the backend-reported state of a training run.
type RunStatus string

const (
	StatusInProgress RunStatus = "in_progress"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Terminal reports whether polling should stop.
//
// Anything other than completed or failed (including "running" and empty) is treated as in progress.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Dataset is a single file chosen for upload.
//
// Content, when set, is used instead of reading Path.
type Dataset struct {
	Name    string
	Path    string
	Size    int64
	Content []byte
}

// DatasetExtensions lists the file types accepted for upload.
var DatasetExtensions = []string{".csv", ".parquet"}

// SupportedDataset reports whether path has an accepted extension.
func SupportedDataset(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range DatasetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// NewDatasetFromPath stats path and returns a [Dataset] referencing it.
func NewDatasetFromPath(path string) (*Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &Dataset{Name: info.Name(), Path: path, Size: info.Size()}, nil
}

// Open returns a reader over the dataset's bytes.
func (d *Dataset) Open() (io.ReadCloser, error) {
	if d.Content != nil {
		return io.NopCloser(bytes.NewReader(d.Content)), nil
	}
	if d.Path == "" {
		return nil, fmt.Errorf("dataset %q has no content", d.Name)
	}
	return os.Open(d.Path)
}

// TrainingSession is the backend's response to a start-training request.
type TrainingSession struct {
	RunID  string `json:"run_id"`
	Status string `json:"status,omitempty"`
	TaskID string `json:"task_id,omitempty"`
}

// UnmarshalJSON accepts run_id as either a JSON string or a number.
func (s *TrainingSession) UnmarshalJSON(b []byte) error {
	var raw struct {
		RunID  json.RawMessage `json:"run_id"`
		Status string          `json:"status"`
		TaskID json.RawMessage `json:"task_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	runID, err := opaqueID(raw.RunID)
	if err != nil {
		return fmt.Errorf("run_id: %w", err)
	}
	taskID, err := opaqueID(raw.TaskID)
	if err != nil {
		return fmt.Errorf("task_id: %w", err)
	}

	*s = TrainingSession{RunID: runID, Status: raw.Status, TaskID: taskID}
	return nil
}

func opaqueID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Progress is a single progress poll response.
type Progress struct {
	RunID    string    `json:"run_id,omitempty"`
	Progress int       `json:"progress"`
	Status   RunStatus `json:"status"`
	Accuracy *float64  `json:"accuracy,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// UnmarshalJSON accepts run_id as a string or a number and rounds a fractional progress value.
func (p *Progress) UnmarshalJSON(b []byte) error {
	type plain Progress
	var raw struct {
		plain
		RunID    json.RawMessage `json:"run_id"`
		Progress json.Number     `json:"progress"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	runID, err := opaqueID(raw.RunID)
	if err != nil {
		return fmt.Errorf("run_id: %w", err)
	}

	pct := 0
	if raw.Progress != "" {
		f, err := raw.Progress.Float64()
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		pct = int(math.Round(f))
	}

	*p = Progress(raw.plain)
	p.RunID = runID
	p.Progress = pct
	return nil
}

// Percent clamps Progress to 0–100.
func (p Progress) Percent() int {
	switch {
	case p.Progress < 0:
		return 0
	case p.Progress > 100:
		return 100
	default:
		return p.Progress
	}
}

// AccuracyString formats Accuracy, or "n/a" when the backend sent none.
func (p Progress) AccuracyString() string {
	if p.Accuracy == nil {
		return "n/a"
	}
	return FormatAccuracy(*p.Accuracy)
}

// FormatAccuracy renders an accuracy value without trailing zeros (0.91, not 0.910000).
func FormatAccuracy(a float64) string {
	return fmt.Sprintf("%g", a)
}
