package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const taskColumns = `id, name, interval_seconds, enabled, last_run, next_run, last_success, last_error, runs`

const runColumns = `task_id, started_at, ended_at, success, error, items, summary`

// Task returns the task with id, or nil if absent.
func (s *schedulerStore) Task(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM scheduled_tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// Tasks returns every task ordered by ID.
func (s *schedulerStore) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+taskColumns+" FROM scheduled_tasks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// PutTask inserts or replaces a task.
func (s *schedulerStore) PutTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Name, int64(task.Interval/time.Second), boolToInt(task.Enabled),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		formatNullableTime(task.LastSuccess), task.LastError, task.Runs)
	if err != nil {
		return fmt.Errorf("saving scheduled task %s: %w", task.ID, err)
	}
	return nil
}

// AppendRun records a run.
func (s *schedulerStore) AppendRun(ctx context.Context, run *domain.TaskRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.TaskID, formatTime(run.StartedAt), formatTime(run.EndedAt),
		boolToInt(run.Success), run.Error, run.Items, run.Summary)
	if err != nil {
		return fmt.Errorf("recording run of %s: %w", run.TaskID, err)
	}
	return nil
}

// Runs returns up to limit runs of taskID in insertion order, newest
// first. A non-positive limit returns every run.
func (s *schedulerStore) Runs(ctx context.Context, taskID string, limit int) ([]domain.TaskRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM task_runs
		WHERE task_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs of %s: %w", taskID, err)
	}
	defer rows.Close()

	var runs []domain.TaskRun
	for rows.Next() {
		var (
			run            domain.TaskRun
			started, ended string
			success        int
		)
		if err := rows.Scan(&run.TaskID, &started, &ended, &success, &run.Error, &run.Items, &run.Summary); err != nil {
			return nil, fmt.Errorf("scanning task run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.EndedAt = parseTime(ended)
		run.Success = success == 1
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TrimRuns keeps the newest keep runs per task.
func (s *schedulerStore) TrimRuns(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_runs WHERE seq IN (
			SELECT seq FROM (
				SELECT seq, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY seq DESC) AS rank
				FROM task_runs
			) WHERE rank > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("trimming task runs: %w", err)
	}
	return nil
}

func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var (
		task                          domain.ScheduledTask
		intervalSeconds               int64
		enabled                       int
		lastRun, nextRun, lastSuccess sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Name, &intervalSeconds, &enabled,
		&lastRun, &nextRun, &lastSuccess, &task.LastError, &task.Runs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.Enabled = enabled == 1
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastSuccess = parseNullableTime(lastSuccess)
	return &task, nil
}
