package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Inspect and run governance tasks",
	Long: `The scheduler runs the retention sweep and the overdue rights check on
the intervals set under [scheduler] in the config. It runs inside
'aegis job work' and 'aegis mcp serve'; these commands inspect its state
or trigger a task by hand.`,
	RunE: runSchedulerStatus,
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each task's interval and last outcome",
	RunE:  runSchedulerStatus,
}

var schedulerHistoryCmd = &cobra.Command{
	Use:   "history [task]",
	Short: "Show recent runs of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerHistory,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a task now",
	Long: `Runs a task immediately and records it like a scheduled run. The next
scheduled run moves to one interval from now.

Tasks:
  retention-sweep  delete fetched data past its retention window
  rights-overdue   report rights requests past their due date`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedulerRun,
}

var (
	schedulerJSON  bool
	schedulerLimit int
)

func init() {
	schedulerStatusCmd.Flags().BoolVar(&schedulerJSON, "json", false, "output as JSON")
	schedulerHistoryCmd.Flags().IntVarP(&schedulerLimit, "limit", "n", 10, "number of runs to show")

	schedulerCmd.AddCommand(schedulerStatusCmd)
	schedulerCmd.AddCommand(schedulerHistoryCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	rootCmd.AddCommand(schedulerCmd)
}

func runSchedulerStatus(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	tasks, err := scheduler.Tasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if schedulerJSON {
		return printTasksJSON(cmd, tasks)
	}

	state := "disabled"
	if schedulerConfig.Enabled {
		state = "enabled"
	}
	cmd.Printf("Scheduler: %s\n", state)
	if len(tasks) == 0 {
		cmd.Println("No tasks scheduled.")
		return nil
	}

	for _, task := range tasks {
		cmd.Println()
		cmd.Printf("%s  %s\n", titleStyle.Render(task.ID), task.Name)
		every := task.Interval.String()
		if !task.Enabled {
			every += " (disabled)"
		}
		cmd.Printf("  Every:     %s\n", every)
		cmd.Printf("  Next run:  %s\n", formatOptionalTime(task.NextRun))
		cmd.Printf("  Last run:  %s\n", formatOptionalTime(task.LastRun))
		cmd.Printf("  Runs:      %d\n", task.Runs)
		if task.LastError != "" {
			cmd.Printf("  Last error: %s\n", errorStyle.Render(task.LastError))
		}
	}
	return nil
}

func printTasksJSON(cmd *cobra.Command, tasks []domain.ScheduledTask) error {
	out := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, map[string]any{
			"id":               task.ID,
			"name":             task.Name,
			"interval_seconds": int64(task.Interval.Seconds()),
			"enabled":          task.Enabled,
			"next_run":         jsonTime(task.NextRun),
			"last_run":         jsonTime(task.LastRun),
			"runs":             task.Runs,
			"last_error":       task.LastError,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func runSchedulerHistory(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	runs, err := scheduler.History(cmd.Context(), args[0], schedulerLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Printf("No runs recorded for %s.\n", args[0])
		return nil
	}

	for _, run := range runs {
		outcome := successStyle.Render("ok")
		detail := run.Summary
		if !run.Success {
			outcome = errorStyle.Render("FAILED")
			detail = run.Error
		}
		cmd.Printf("%s  %-6s  %4d items  %s\n", run.StartedAt.Local().Format(timeFormat), outcome, run.Items, detail)
	}
	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	run, err := scheduler.RunNow(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to run %s: %w", args[0], err)
	}

	cmd.Printf("Ran %s in %s.\n", run.TaskID, run.Duration().Round(time.Millisecond))
	if run.Summary != "" {
		cmd.Printf("  %s\n", run.Summary)
	}
	if !run.Success {
		return fmt.Errorf("%s failed: %s", run.TaskID, run.Error)
	}
	return nil
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(timeFormat)
}

func jsonTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
