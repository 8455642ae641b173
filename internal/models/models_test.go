package models

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestModelType(t *testing.T) {
	t.Run("ParseModelType", func(t *testing.T) {
		tc := []struct {
			input   string
			want    ModelType
			wantErr bool
		}{
			{input: "random_forest", want: RandomForest},
			{input: "XGBoost", want: XGBoost},
			{input: " svm ", want: SVM},
			{input: "cnn", want: CNN},
			{input: "linear", wantErr: true},
			{input: "", wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.input, func(t *testing.T) {
				got, err := ParseModelType(tt.input)
				if (err != nil) != tt.wantErr {
					t.Fatalf("ParseModelType() error = %v, wantErr %v", err, tt.wantErr)
				}
				if got != tt.want {
					t.Errorf("ParseModelType() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Labels", func(t *testing.T) {
		for _, m := range ModelTypes() {
			if m.Label() == string(m) {
				t.Errorf("expected a display label for %s", m)
			}
		}
	})

	t.Run("Default is valid", func(t *testing.T) {
		if !DefaultModelType.Valid() {
			t.Error("default model type should be valid")
		}
	})
}

func TestRunStatus(t *testing.T) {
	tc := map[RunStatus]bool{
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusInProgress: false,
		"running":        false,
		"":               false,
	}
	for status, want := range tc {
		if got := status.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestProgress(t *testing.T) {
	t.Run("Percent clamps", func(t *testing.T) {
		if got := (Progress{Progress: -5}).Percent(); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
		if got := (Progress{Progress: 130}).Percent(); got != 100 {
			t.Errorf("expected 100, got %d", got)
		}
		if got := (Progress{Progress: 30}).Percent(); got != 30 {
			t.Errorf("expected 30, got %d", got)
		}
	})

	t.Run("AccuracyString", func(t *testing.T) {
		acc := 0.91
		if got := (Progress{Accuracy: &acc}).AccuracyString(); got != "0.91" {
			t.Errorf("expected 0.91, got %s", got)
		}
		if got := (Progress{}).AccuracyString(); got != "n/a" {
			t.Errorf("expected n/a, got %s", got)
		}
	})
}

func TestDataset(t *testing.T) {
	t.Run("In-memory content", func(t *testing.T) {
		d := &Dataset{Name: "data.csv", Content: []byte("a,b\n1,2\n")}
		rc, err := d.Open()
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer rc.Close()

		b, _ := io.ReadAll(rc)
		if string(b) != "a,b\n1,2\n" {
			t.Errorf("unexpected content %q", b)
		}
	})

	t.Run("From path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.csv")
		if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
			t.Fatalf("failed to write dataset: %v", err)
		}

		d, err := NewDatasetFromPath(path)
		if err != nil {
			t.Fatalf("NewDatasetFromPath() error = %v", err)
		}
		if d.Name != "data.csv" || d.Size != 2 {
			t.Errorf("unexpected dataset %+v", d)
		}

		rc, err := d.Open()
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		rc.Close()
	})

	t.Run("Directory rejected", func(t *testing.T) {
		if _, err := NewDatasetFromPath(t.TempDir()); err == nil {
			t.Error("expected error for directory")
		}
	})

	t.Run("Supported extensions", func(t *testing.T) {
		tests := map[string]bool{
			"data.csv":        true,
			"DATA.CSV":        true,
			"train.parquet":   true,
			"notes.txt":       false,
			"archive.csv.zip": false,
			"noext":           false,
		}
		for path, want := range tests {
			if got := SupportedDataset(path); got != want {
				t.Errorf("SupportedDataset(%q) = %v, want %v", path, got, want)
			}
		}
	})

	t.Run("Empty reference", func(t *testing.T) {
		if _, err := (&Dataset{Name: "ghost"}).Open(); err == nil {
			t.Error("expected error for dataset without content or path")
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("Apply terminal stamps finish time", func(t *testing.T) {
		run := NewRun(1, "42", "data.csv", XGBoost, "http://localhost:8000")
		acc := 0.91

		run.Apply(Progress{Progress: 30, Status: StatusInProgress})
		if run.FinishedAt() != nil {
			t.Error("in-progress update should not finish the run")
		}

		run.Apply(Progress{Progress: 100, Status: StatusCompleted, Accuracy: &acc})
		if run.FinishedAt() == nil {
			t.Error("completed update should stamp finished_at")
		}
		if run.Accuracy() == nil || *run.Accuracy() != 0.91 {
			t.Errorf("expected accuracy 0.91, got %v", run.Accuracy())
		}
	})

	t.Run("Fail keeps progress", func(t *testing.T) {
		run := NewRun(1, "7", "data.csv", SVM, "")
		run.Apply(Progress{Progress: 40, Status: StatusInProgress})
		run.Fail("connection refused")

		if run.Status() != StatusFailed || run.Progress() != 40 || run.Message() != "connection refused" {
			t.Errorf("unexpected run state: status=%s progress=%d message=%s", run.Status(), run.Progress(), run.Message())
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name string
			run  *Run
			ok   bool
		}{
			{name: "valid", run: NewRun(1, "1", "d.csv", CNN, ""), ok: true},
			{name: "missing run id", run: NewRun(1, "", "d.csv", CNN, "")},
			{name: "missing dataset", run: NewRun(1, "1", "", CNN, "")},
			{name: "bad model", run: NewRun(1, "1", "d.csv", ModelType("linear"), "")},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.run.Validate(); (err == nil) != tt.ok {
					t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
				}
			})
		}
	})
}

func TestTrainingSessionJSON(t *testing.T) {
	tc := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "string id", input: `{"run_id":"3f2a","task_id":"t1"}`, want: "3f2a"},
		{name: "numeric id", input: `{"run_id":42}`, want: "42"},
		{name: "null id", input: `{"run_id":null}`, want: ""},
		{name: "object id", input: `{"run_id":{}}`, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var s TrainingSession
			err := json.Unmarshal([]byte(tt.input), &s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s.RunID != tt.want {
				t.Errorf("RunID = %q, want %q", s.RunID, tt.want)
			}
		})
	}
}

func TestProgressJSON(t *testing.T) {
	tc := []struct {
		name     string
		input    string
		runID    string
		progress int
		status   RunStatus
		wantErr  bool
	}{
		{name: "numeric run id", input: `{"run_id":42,"progress":30,"status":"in_progress"}`, runID: "42", progress: 30, status: StatusInProgress},
		{name: "string run id", input: `{"run_id":"3f2a","progress":100,"status":"completed","accuracy":0.91}`, runID: "3f2a", progress: 100, status: StatusCompleted},
		{name: "float progress", input: `{"progress":30.0,"status":"running"}`, progress: 30, status: "running"},
		{name: "fractional progress rounds", input: `{"progress":66.6}`, progress: 67},
		{name: "missing progress", input: `{"status":"failed","message":"boom"}`, status: StatusFailed},
		{name: "object run id", input: `{"run_id":{}}`, wantErr: true},
		{name: "string progress", input: `{"progress":"lots"}`, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var p Progress
			err := json.Unmarshal([]byte(tt.input), &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.RunID != tt.runID || p.Progress != tt.progress || p.Status != tt.status {
				t.Errorf("got %+v, want run_id=%q progress=%d status=%q", p, tt.runID, tt.progress, tt.status)
			}
		})
	}

	t.Run("keeps accuracy and message", func(t *testing.T) {
		var p Progress
		if err := json.Unmarshal([]byte(`{"run_id":7,"progress":100,"status":"completed","accuracy":0.91,"message":"done"}`), &p); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if p.Accuracy == nil || *p.Accuracy != 0.91 || p.Message != "done" {
			t.Errorf("unexpected progress %+v", p)
		}
	})
}
