package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// runsKept is the history retained per task.
const runsKept = 100

// taskFunc performs one run and reports items touched plus a summary.
type taskFunc func(ctx context.Context) (int, string, error)

// Scheduler runs the governor's housekeeping on fixed intervals.
// Task state lives in the store so intervals survive restarts.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	governor driving.Governor
	tick     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	inFlight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil governor makes every task a no-op.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	governor driving.Governor,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		governor: governor,
		tick:     time.Minute,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Start runs due tasks every tick. It blocks until Stop is called or
// ctx is cancelled. A second Start while running returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	if !s.config.Enabled {
		log.Printf("scheduler: disabled")
	} else if err := s.syncTasks(ctx); err != nil {
		log.Printf("scheduler: failed to sync tasks: %v", err)
	}

	if s.config.Enabled {
		s.dispatchDue(ctx)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			if s.config.Enabled {
				s.dispatchDue(ctx)
			}
		}
	}
}

// Stop ends the loop and waits for in-flight runs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns the stored tasks, creating them from config first.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	if err := s.syncTasks(ctx); err != nil {
		return nil, err
	}
	return s.store.Tasks(ctx)
}

// History returns recent runs of taskID.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskRun, error) {
	if s.handler(taskID) == nil {
		return nil, fmt.Errorf("%w: task %q", domain.ErrNotFound, taskID)
	}
	return s.store.Runs(ctx, taskID, limit)
}

// RunNow executes taskID in the caller's goroutine and records the run
// like a scheduled one. The task's next run moves to now plus interval.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) (*domain.TaskRun, error) {
	if s.handler(taskID) == nil {
		return nil, fmt.Errorf("%w: task %q", domain.ErrNotFound, taskID)
	}
	if err := s.syncTasks(ctx); err != nil {
		return nil, err
	}
	task, err := s.store.Task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %q has no interval configured", domain.ErrNotFound, taskID)
	}
	if !s.claim(taskID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskRunning, taskID)
	}
	defer s.release(taskID)

	return s.execute(ctx, task), nil
}

// syncTasks makes the store match config. Tasks without an interval
// are left out; changing an interval reschedules from now.
func (s *Scheduler) syncTasks(ctx context.Context) error {
	for _, spec := range domain.GovernanceTasks() {
		cfg := s.config.Task(spec.ID)
		if cfg.Interval <= 0 {
			continue
		}

		task, err := s.store.Task(ctx, spec.ID)
		if err != nil {
			return err
		}
		switch {
		case task == nil:
			task = &domain.ScheduledTask{ID: spec.ID, NextRun: s.now().Add(cfg.Interval)}
		case task.Interval != cfg.Interval:
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Name = spec.Name
		task.Interval = cfg.Interval
		task.Enabled = cfg.Enabled

		if err := s.store.PutTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// dispatchDue starts every due task that is not already running.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if !tasks[i].IsDue(now) {
			continue
		}
		if s.handler(tasks[i].ID) == nil {
			log.Printf("scheduler: unknown task ID: %s", tasks[i].ID)
			continue
		}
		if !s.claim(tasks[i].ID) {
			continue
		}

		task := tasks[i]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(task.ID)
			s.execute(ctx, &task)
		}()
	}
}

func (s *Scheduler) claim(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[taskID] {
		return false
	}
	s.inFlight[taskID] = true
	return true
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	delete(s.inFlight, taskID)
	s.mu.Unlock()
}

// execute runs task, persists the outcome and returns the run.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskRun {
	run := &domain.TaskRun{TaskID: task.ID, StartedAt: s.now()}

	items, summary, err := s.handler(task.ID)(ctx)
	run.EndedAt = s.now()
	run.Items = items
	run.Summary = summary
	run.Success = err == nil
	if err != nil {
		run.Error = err.Error()
		log.Printf("scheduler: task %s failed: %v", task.ID, err)
	}

	task.Complete(run)
	if err := s.store.PutTask(ctx, task); err != nil {
		log.Printf("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.AppendRun(ctx, run); err != nil {
		log.Printf("scheduler: failed to record run of %s: %v", task.ID, err)
	}
	if err := s.store.TrimRuns(ctx, runsKept); err != nil {
		log.Printf("scheduler: failed to trim history: %v", err)
	}
	return run
}

func (s *Scheduler) handler(taskID string) taskFunc {
	switch taskID {
	case domain.TaskIDRetentionSweep:
		return s.retentionSweep
	case domain.TaskIDRightsOverdue:
		return s.rightsOverdue
	default:
		return nil
	}
}

// retentionSweep deletes governed data past its retention window.
// A partial failure still reports what was deleted.
func (s *Scheduler) retentionSweep(ctx context.Context) (int, string, error) {
	if s.governor == nil {
		return 0, "governor not configured", nil
	}
	report, err := s.governor.Sweep(ctx)
	if report == nil {
		return 0, "", err
	}
	summary := fmt.Sprintf("deleted %d cached records and %d loan applications",
		report.CachedDeleted, report.ApplicationsDeleted)
	log.Printf("scheduler: retention sweep %s", summary)
	return report.Total(), summary, err
}

// rightsOverdue logs every open rights request past its due date.
func (s *Scheduler) rightsOverdue(ctx context.Context) (int, string, error) {
	if s.governor == nil {
		return 0, "governor not configured", nil
	}
	overdue, err := s.governor.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, "", err
	}
	if len(overdue) == 0 {
		return 0, "no overdue requests", nil
	}

	ids := make([]string, 0, len(overdue))
	for _, req := range overdue {
		log.Printf("scheduler: rights request %s (%s for %s) overdue since %s",
			req.ID, req.Right, req.SubjectID, req.DueBy.Format(time.RFC3339))
		ids = append(ids, req.ID)
	}
	return len(overdue), fmt.Sprintf("%d overdue: %s", len(overdue), strings.Join(ids, ", ")), nil
}
