package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

const jobColumns = `id, owner_id, filename, mime_type, content, webhook_url, webhook_secret,
	status, attempts, result, error, created_at, completed_at`

// SaveJob creates or updates a job. The result is stored as JSON.
func (j *jobStore) SaveJob(ctx context.Context, job *domain.AnalysisJob) error {
	var result any
	if job.Result != nil {
		data, err := json.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("marshalling result: %w", err)
		}
		result = string(data)
	}

	_, err := j.store.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			status = excluded.status,
			attempts = excluded.attempts,
			result = excluded.result,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, job.ID, job.OwnerID, job.Filename, job.MIMEType, job.Content, job.WebhookURL, job.WebhookSecret,
		string(job.Status), job.Attempts, result, job.Error,
		formatTime(job.CreatedAt), formatTimePtr(job.CompletedAt))
	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (j *jobStore) GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	row := j.store.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM analysis_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// ListJobs returns jobs in a status, oldest first. An empty status lists all.
func (j *jobStore) ListJobs(ctx context.Context, status domain.JobStatus) ([]domain.AnalysisJob, error) {
	query := "SELECT " + jobColumns + " FROM analysis_jobs"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at"

	rows, err := j.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.AnalysisJob //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row scanner) (*domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	var status, createdAt string
	var result, completedAt sql.NullString

	if err := row.Scan(&job.ID, &job.OwnerID, &job.Filename, &job.MIMEType, &job.Content,
		&job.WebhookURL, &job.WebhookSecret, &status, &job.Attempts, &result, &job.Error,
		&createdAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.CreatedAt = parseTime(createdAt)
	job.CompletedAt = parseTimePtr(completedAt)
	if result.Valid && result.String != "" {
		job.Result = &domain.AnalysisResult{}
		if err := json.Unmarshal([]byte(result.String), job.Result); err != nil {
			return nil, fmt.Errorf("unmarshaling result: %w", err)
		}
	}
	return &job, nil
}
