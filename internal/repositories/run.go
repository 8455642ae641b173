package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/shared"
)

const runColumns = `id, sequence, run_id, dataset, model_type, status, progress, accuracy, message, base_url,
	created_at, updated_at, finished_at, deleted_at`

// rowScanner is satisfied by [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// RunRepository implements models.Repository[*models.Run] for the local run history.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new [models.Run] into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.RunID(),
		run.Dataset(),
		string(run.ModelType()),
		string(run.Status()),
		run.Progress(),
		nullFloat(run.Accuracy()),
		run.Message(),
		run.BaseURL(),
		run.CreatedAt(),
		run.UpdatedAt(),
		nullTime(run.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByRunID retrieves a run by the backend's run identifier
func (r *RunRepository) GetByRunID(runID string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, runID), runID)
}

// Update persists the mutable fields of a run
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, progress = ?, accuracy = ?, message = ?, updated_at = ?, finished_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status()),
		run.Progress(),
		nullFloat(run.Accuracy()),
		run.Message(),
		now,
		nullTime(run.FinishedAt()),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return requireRow(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return requireRow(result, id)
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "status" and "model_type" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if modelType, ok := criteria["model_type"].(string); ok && modelType != "" {
		query += " AND model_type = ?"
		args = append(args, modelType)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanOne scans a single [sql.Row], mapping no rows to [shared.ErrRunNotFound]
func (r *RunRepository) scanOne(row *sql.Row, key string) (*models.Run, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, key)
	}
	return run, err
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		id         string
		sequence   int
		runID      string
		dataset    string
		modelType  string
		status     string
		progress   int
		accuracy   sql.NullFloat64
		message    string
		baseURL    string
		createdAt  time.Time
		updatedAt  time.Time
		finishedAt sql.NullTime
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &runID, &dataset, &modelType, &status, &progress, &accuracy, &message, &baseURL,
		&createdAt, &updatedAt, &finishedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	var acc *float64
	if accuracy.Valid {
		acc = &accuracy.Float64
	}

	return models.RestoreRun(
		id, sequence, runID, dataset, models.ModelType(modelType), models.RunStatus(status),
		progress, acc, message, baseURL,
		createdAt, updatedAt, timePtr(finishedAt), timePtr(deletedAt),
	), nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: not found or already deleted: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
