package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func TestSchedulerStatusCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "scheduler", "status")
	require.NoError(t, err)

	assert.Contains(t, out, "Scheduler: disabled")
	assert.Contains(t, out, "retention-sweep  Retention Sweep")
	assert.Contains(t, out, "Every:     1h0m0s\n")
	assert.Contains(t, out, "Every:     24h0m0s (disabled)")
	assert.Contains(t, out, "Runs:      3")
	assert.Contains(t, out, "Last run:  never")
	assert.Contains(t, out, "Last error: store locked")
}

func TestSchedulerCmd_DefaultsToStatus(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "scheduler")
	require.NoError(t, err)
	assert.Contains(t, out, "rights-overdue  Overdue Rights Requests")
}

func TestSchedulerStatusCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "scheduler", "status", "--json")
	require.NoError(t, err)

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDRetentionSweep, tasks[0]["id"])
	assert.InDelta(t, 3600, tasks[0]["interval_seconds"], 0)
	assert.Equal(t, "2024-06-01T13:00:00Z", tasks[0]["next_run"])
	assert.Nil(t, tasks[1]["last_run"])
	assert.Equal(t, "store locked", tasks[1]["last_error"])
}

func TestSchedulerHistoryCmd(t *testing.T) {
	cleanup, m := setupTestMocks()
	defer cleanup()

	out, err := execute(t, "scheduler", "history", domain.TaskIDRetentionSweep, "-n", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, m.scheduler.limit)
	assert.Contains(t, out, "5 items  deleted 3 cached records and 2 loan applications")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "store locked")

	out, err = execute(t, "scheduler", "history", domain.TaskIDRightsOverdue)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded for rights-overdue.")
	assert.Equal(t, 10, m.scheduler.limit)

	_, err = execute(t, "scheduler", "history", "compact-db")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchedulerRunCmd(t *testing.T) {
	cleanup, m := setupTestMocks()
	defer cleanup()

	out, err := execute(t, "scheduler", "run", domain.TaskIDRightsOverdue)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TaskIDRightsOverdue}, m.scheduler.ran)
	assert.Contains(t, out, "Ran rights-overdue in 2s.")
	assert.Contains(t, out, "2 overdue: r1, r2")

	m.scheduler.failRun = true
	_, err = execute(t, "scheduler", "run", domain.TaskIDRetentionSweep)
	assert.EqualError(t, err, "retention-sweep failed: store locked")

	_, err = execute(t, "scheduler", "run", "compact-db")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSchedulerCmd_NotConfigured(t *testing.T) {
	SetServices(Services{})
	_, err := execute(t, "scheduler", "status")
	assert.EqualError(t, err, "scheduler not configured")
}
