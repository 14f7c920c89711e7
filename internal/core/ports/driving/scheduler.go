package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Scheduler runs the governance tasks: the retention sweep and the
// overdue rights check.
type Scheduler interface {
	// Start runs due tasks until Stop is called or ctx is cancelled.
	Start(ctx context.Context) error

	// Stop waits for in-flight runs and returns.
	Stop() error

	// Tasks returns the known tasks with their last outcome.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns recent runs of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskRun, error)

	// RunNow executes a task synchronously. It returns domain.ErrNotFound
	// for an unknown task and domain.ErrTaskRunning if it is in flight.
	RunNow(ctx context.Context, taskID string) (*domain.TaskRun, error)
}
