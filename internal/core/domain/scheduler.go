package domain

import "time"

// Built-in governance tasks.
const (
	TaskIDRetentionSweep = "retention-sweep"
	TaskIDRightsOverdue  = "rights-overdue"
)

// TaskSpec names a task the scheduler knows how to run.
type TaskSpec struct {
	ID   string
	Name string

	// ConfigKey is the TOML table under [scheduler] holding its settings.
	ConfigKey string
}

// GovernanceTasks returns the tasks the scheduler runs against the governor.
func GovernanceTasks() []TaskSpec {
	return []TaskSpec{
		{ID: TaskIDRetentionSweep, Name: "Retention Sweep", ConfigKey: "retention_sweep"},
		{ID: TaskIDRightsOverdue, Name: "Overdue Rights Requests", ConfigKey: "rights_overdue"},
	}
}

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty when the last run succeeded.
	LastError string

	// Runs counts completed executions, failed ones included.
	Runs int
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// Complete folds a finished run into the task and schedules the next one.
func (t *ScheduledTask) Complete(run *TaskRun) {
	t.Runs++
	t.LastRun = run.StartedAt
	t.NextRun = run.EndedAt.Add(t.Interval)
	if run.Success {
		t.LastError = ""
		t.LastSuccess = run.EndedAt
	} else {
		t.LastError = run.Error
	}
}

// TaskRun records one execution of a task.
type TaskRun struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// Items is the number of records the run touched.
	Items int

	// Summary describes the outcome for operators.
	Summary string
}

// Duration returns how long the run took.
func (r TaskRun) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	Tasks map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Task returns the configuration for taskID, or a zero TaskConfig.
func (c SchedulerConfig) Task(taskID string) TaskConfig {
	return c.Tasks[taskID]
}

// DefaultSchedulerConfig sweeps hourly and checks rights deadlines daily.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		Tasks: map[string]TaskConfig{
			TaskIDRetentionSweep: {Enabled: true, Interval: time.Hour},
			TaskIDRightsOverdue:  {Enabled: true, Interval: 24 * time.Hour},
		},
	}
}
