package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/tasks"
)

var _ tasks.RunRecorder = (*RunHistory)(nil)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func accuracy(v float64) *float64 { return &v }

func createRun(t *testing.T, repo *RunRepository, runID string, mt models.ModelType) *models.Run {
	t.Helper()
	run := models.NewRun(0, runID, "data.csv", mt, "http://localhost:8000")
	if err := repo.Create(run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	return run
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := createRun(t, repo, "42", models.XGBoost)

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := createRun(t, repo, "42", models.XGBoost)

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.RunID() != "42" || got.ModelType() != models.XGBoost || got.Status() != models.StatusInProgress {
			t.Errorf("unexpected run %+v", got)
		}
		if got.Accuracy() != nil || got.FinishedAt() != nil {
			t.Error("expected no accuracy or finish time")
		}

		byRunID, err := repo.GetByRunID("42")
		if err != nil {
			t.Fatalf("failed to get run by run id: %v", err)
		}
		if byRunID.ID() != run.ID() {
			t.Errorf("expected %s, got %s", run.ID(), byRunID.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := createRun(t, repo, "42", models.XGBoost)

		run.Apply(models.Progress{Progress: 100, Status: models.StatusCompleted, Accuracy: accuracy(0.91)})
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.StatusCompleted || got.Progress() != 100 {
			t.Errorf("unexpected state %s %d", got.Status(), got.Progress())
		}
		if got.Accuracy() == nil || *got.Accuracy() != 0.91 {
			t.Errorf("unexpected accuracy %v", got.Accuracy())
		}
		if got.FinishedAt() == nil {
			t.Error("expected finish time")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := createRun(t, repo, "42", models.SVM)

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
		if err := repo.Delete(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		createRun(t, repo, "1", models.RandomForest)
		second := createRun(t, repo, "2", models.XGBoost)
		createRun(t, repo, "3", models.XGBoost)

		second.Apply(models.Progress{Progress: 40, Status: models.StatusFailed, Message: "oom"})
		if err := repo.Update(second); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 || all[0].RunID() != "3" {
			t.Errorf("expected newest first, got %d runs", len(all))
		}

		limited, _ := repo.List(map[string]any{"limit": 2})
		if len(limited) != 2 {
			t.Errorf("expected 2 runs, got %d", len(limited))
		}

		failed, _ := repo.List(map[string]any{"status": "failed"})
		if len(failed) != 1 || failed[0].Message() != "oom" {
			t.Errorf("unexpected failed runs %v", failed)
		}

		xgb, _ := repo.List(map[string]any{"model_type": "xgboost"})
		if len(xgb) != 2 {
			t.Errorf("expected 2 xgboost runs, got %d", len(xgb))
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewRunRepository(setupTestDB(t))
			run := models.NewRun(0, "", "data.csv", models.SVM, "")

			if err := repo.Create(run); err == nil {
				t.Fatal("expected validation error for empty run id")
			}
		})

		t.Run("DuplicateRunID", func(t *testing.T) {
			repo := NewRunRepository(setupTestDB(t))
			createRun(t, repo, "42", models.SVM)

			if err := repo.Create(models.NewRun(0, "42", "other.csv", models.CNN, "")); err == nil {
				t.Fatal("expected error for duplicate run id")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewRunRepository(setupTestDB(t))

			if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("expected ErrRunNotFound, got %v", err)
			}
			if _, err := repo.GetByRunID("nonexistent"); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("expected ErrRunNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewRunRepository(setupTestDB(t))
			run := models.NewRun(0, "42", "data.csv", models.SVM, "")
			run.SetID("missing")

			if err := repo.Update(run); !errors.Is(err, shared.ErrRunNotFound) {
				t.Fatalf("expected ErrRunNotFound, got %v", err)
			}
		})
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)
		db.Close()

		if _, err := repo.List(nil); err == nil {
			t.Error("expected error from closed database")
		}
		if err := repo.Create(models.NewRun(0, "1", "d.csv", models.SVM, "")); err == nil {
			t.Error("expected error from closed database")
		}
	})
}

func TestRunHistory(t *testing.T) {
	t.Run("Lifecycle", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		history := NewRunHistory(repo)
		dataset := &models.Dataset{Name: "data.csv"}

		if err := history.RecordStart("42", dataset, models.XGBoost, "http://localhost:8000"); err != nil {
			t.Fatalf("RecordStart() error = %v", err)
		}
		if err := history.RecordStart("42", dataset, models.XGBoost, "http://localhost:8000"); err != nil {
			t.Fatalf("repeated RecordStart() error = %v", err)
		}

		if err := history.RecordProgress("42", models.Progress{Progress: 30, Status: "running"}); err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}
		if err := history.RecordProgress("42", models.Progress{Progress: 100, Status: models.StatusCompleted, Accuracy: accuracy(0.91)}); err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}

		runs, err := history.Recent(10, "")
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected one run, got %d", len(runs))
		}
		run := runs[0]
		if run.Dataset() != "data.csv" || run.Status() != models.StatusCompleted || run.Progress() != 100 {
			t.Errorf("unexpected run %s %s %d", run.Dataset(), run.Status(), run.Progress())
		}
		if run.BaseURL() != "http://localhost:8000" {
			t.Errorf("unexpected base url %q", run.BaseURL())
		}
	})

	t.Run("Unknown Run", func(t *testing.T) {
		history := NewRunHistory(NewRunRepository(setupTestDB(t)))
		err := history.RecordProgress("missing", models.Progress{Progress: 10})
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}
