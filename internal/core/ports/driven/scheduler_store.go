package driven

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// SchedulerStore persists task state and run history across restarts.
type SchedulerStore interface {
	// Task returns the task with id, or nil and no error if absent.
	Task(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// Tasks returns every task ordered by ID.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// PutTask inserts or replaces a task.
	PutTask(ctx context.Context, task *domain.ScheduledTask) error

	// AppendRun adds a run to the history.
	AppendRun(ctx context.Context, run *domain.TaskRun) error

	// Runs returns up to limit runs of a task, newest first.
	Runs(ctx context.Context, taskID string, limit int) ([]domain.TaskRun, error)

	// TrimRuns keeps the newest keep runs per task.
	TrimRuns(ctx context.Context, keep int) error
}
