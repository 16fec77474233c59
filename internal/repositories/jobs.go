package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
)

const jobColumns = `
	id, sequence, source_playlist_id, target_playlist_id, title,
	sort_key, sort_direction, state, items_total, last_successful,
	error_message, completed_at, created_at, updated_at, deleted_at`

var _ models.Repository[*models.MaterializeJob] = (*JobRepository)(nil)

// JobRepository implements models.Repository[*models.MaterializeJob] for materialize checkpoints.
//
// Handles job CRUD operations with soft delete support and state-based queries.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job into the database with generated ID and sequence
func (r *JobRepository) Create(job *models.MaterializeJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "materialize_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO materialize_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		job.SourcePlaylistID(),
		nullable(job.TargetPlaylistID()),
		job.Title(),
		string(job.Spec().Key),
		string(job.Spec().Direction),
		string(job.State()),
		job.ItemsTotal(),
		job.LastSuccessful(),
		nullable(job.ErrorMessage()),
		job.CompletedAt(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	job.SetID(id)
	job.SetSequence(sequence)
	return nil
}

// Get retrieves a job by ID, excluding soft-deleted jobs
func (r *JobRepository) Get(id string) (*models.MaterializeJob, error) {
	query := `SELECT ` + jobColumns + ` FROM materialize_jobs WHERE id = ? AND deleted_at IS NULL`

	job, err := scanJob(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, err
}

// Update persists the job's progress: target playlist, state, counters, error and completion time
func (r *JobRepository) Update(job *models.MaterializeJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE materialize_jobs
		SET target_playlist_id = ?, state = ?, items_total = ?, last_successful = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullable(job.TargetPlaylistID()),
		string(job.State()),
		job.ItemsTotal(),
		job.LastSuccessful(),
		nullable(job.ErrorMessage()),
		job.CompletedAt(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return expectAffected(result, job.ID())
}

// Delete soft-deletes a job by ID
func (r *JobRepository) Delete(id string) error {
	query := `
		UPDATE materialize_jobs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return expectAffected(result, id)
}

// List retrieves jobs matching the given criteria, newest first, excluding soft-deleted jobs.
//
// Supported criteria: "state" and "source_playlist_id" (strings), "resumable" (bool) and "limit" (int).
func (r *JobRepository) List(criteria map[string]any) ([]*models.MaterializeJob, error) {
	query := `SELECT ` + jobColumns + ` FROM materialize_jobs WHERE deleted_at IS NULL`
	args := []any{}

	if state, ok := criteria["state"].(string); ok && state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}

	if source, ok := criteria["source_playlist_id"].(string); ok && source != "" {
		query += " AND source_playlist_id = ?"
		args = append(args, source)
	}

	if resumable, ok := criteria["resumable"].(bool); ok && resumable {
		query += " AND target_playlist_id IS NOT NULL AND state != ?"
		args = append(args, string(models.StateCompleted))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.MaterializeJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// rowScanner is satisfied by [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.MaterializeJob, error) {
	var (
		id               string
		sequence         int
		sourcePlaylistID string
		targetPlaylistID sql.NullString
		title            string
		sortKey          string
		sortDirection    string
		state            string
		itemsTotal       int
		lastSuccessful   int
		errorMessage     sql.NullString
		completedAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &sourcePlaylistID, &targetPlaylistID, &title,
		&sortKey, &sortDirection, &state, &itemsTotal, &lastSuccessful,
		&errorMessage, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	spec := models.SortSpec{Key: models.SortKey(sortKey), Direction: models.Direction(sortDirection)}
	job := models.NewMaterializeJob(sequence, sourcePlaylistID, title, spec)
	job.SetID(id)
	job.SetState(models.MaterializeState(state))
	job.SetItemsTotal(itemsTotal)
	job.SetLastSuccessful(lastSuccessful)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)

	if targetPlaylistID.Valid {
		job.SetTargetPlaylistID(targetPlaylistID.String)
	}
	if errorMessage.Valid {
		job.SetErrorMessage(errorMessage.String)
	}
	if completedAt.Valid {
		job.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		job.SetDeletedAt(&deletedAt.Time)
	}

	return job, nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrJobNotFound, id)
	}
	return nil
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
