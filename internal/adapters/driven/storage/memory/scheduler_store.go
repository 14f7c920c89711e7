package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure SchedulerStore implements the interface.
var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore keeps task state and run history in memory.
type SchedulerStore struct {
	mu    sync.Mutex
	tasks map[string]domain.ScheduledTask
	runs  map[string][]domain.TaskRun // oldest first
}

// NewSchedulerStore creates an empty scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks: make(map[string]domain.ScheduledTask),
		runs:  make(map[string][]domain.TaskRun),
	}
}

// Task returns a copy of the task, or nil if absent.
func (s *SchedulerStore) Task(_ context.Context, id string) (*domain.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// Tasks returns every task ordered by ID.
func (s *SchedulerStore) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutTask inserts or replaces a task.
func (s *SchedulerStore) PutTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// AppendRun records a run.
func (s *SchedulerStore) AppendRun(_ context.Context, run *domain.TaskRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.TaskID] = append(s.runs[run.TaskID], *run)
	return nil
}

// Runs returns up to limit runs of taskID, newest first. A non-positive
// limit returns all of them.
func (s *SchedulerStore) Runs(_ context.Context, taskID string, limit int) ([]domain.TaskRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.runs[taskID]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make([]domain.TaskRun, 0, limit)
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

// TrimRuns drops all but the newest keep runs of each task.
func (s *SchedulerStore) TrimRuns(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, runs := range s.runs {
		if len(runs) > keep {
			s.runs[id] = append([]domain.TaskRun(nil), runs[len(runs)-keep:]...)
		}
	}
	return nil
}
