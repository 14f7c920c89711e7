package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/logger"
)

// jobPollInterval is how often submit --wait checks job status.
var jobPollInterval = 500 * time.Millisecond

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Queue documents for background analysis",
	Long: `Jobs ingest and analyse a document in the background and post the result
to an optional webhook. Jobs survive restarts: anything left pending or
processing is picked up again by the next worker.`,
}

var jobSubmitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Submit a document for analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobSubmit,
}

var jobStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the status of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobStatus,
}

var jobWorkCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the job workers and scheduler until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runJobWork,
}

var (
	jobOwner   string
	jobMIME    string
	jobWebhook string
	jobSecret  string
	jobWait    bool
	jobJSON    bool
)

func init() {
	jobSubmitCmd.Flags().StringVar(&jobOwner, "owner", "", "owner ID for the document")
	jobSubmitCmd.Flags().StringVar(&jobMIME, "mime", "", "content type (detected from the file name when empty)")
	jobSubmitCmd.Flags().StringVar(&jobWebhook, "webhook", "", "URL notified when the job finishes")
	jobSubmitCmd.Flags().StringVar(&jobSecret, "secret", "", "HMAC secret for webhook signatures")
	jobSubmitCmd.Flags().BoolVar(&jobWait, "wait", false, "process the job in this process and wait for it")
	jobStatusCmd.Flags().BoolVar(&jobJSON, "json", false, "output as JSON")

	jobCmd.AddCommand(jobSubmitCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobWorkCmd)
	rootCmd.AddCommand(jobCmd)
}

func runJobSubmit(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	req, err := buildIngestRequest(args[0], jobOwner, jobMIME)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	id, err := jobService.Submit(ctx, &domain.AnalysisJob{
		OwnerID:       req.OwnerID,
		Filename:      req.Filename,
		MIMEType:      req.MIMEType,
		Content:       req.Data,
		WebhookURL:    jobWebhook,
		WebhookSecret: jobSecret,
	})
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	cmd.Printf("Submitted job %s\n", id)

	if !jobWait {
		cmd.Println("Run 'aegis job work' to process queued jobs.")
		return nil
	}

	if err := jobService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer func() {
		if err := jobService.Stop(); err != nil {
			logger.Warn("stop workers: %v", err)
		}
	}()

	job, err := waitForJob(ctx, id)
	if err != nil {
		return err
	}
	printJob(cmd, job)
	if job.Status == domain.JobFailed {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}
	return nil
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	for {
		job, err := jobService.Status(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get job status: %w", err)
		}
		if job.Status == domain.JobCompleted || job.Status == domain.JobFailed {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	job, err := jobService.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	if jobJSON {
		return printJSON(cmd, map[string]any{
			"id":           job.ID,
			"filename":     job.Filename,
			"status":       job.Status,
			"attempts":     job.Attempts,
			"error":        job.Error,
			"result":       job.Result,
			"created_at":   job.CreatedAt,
			"completed_at": job.CompletedAt,
		})
	}
	printJob(cmd, job)
	return nil
}

func printJob(cmd *cobra.Command, job *domain.AnalysisJob) {
	status := string(job.Status)
	switch job.Status {
	case domain.JobCompleted:
		status = successStyle.Render(status)
	case domain.JobFailed:
		status = errorStyle.Render(status)
	default:
		status = warningStyle.Render(status)
	}

	cmd.Printf("Job %s: %s\n", job.ID, status)
	cmd.Printf("  File:     %s\n", job.Filename)
	cmd.Printf("  Attempts: %d\n", job.Attempts)
	cmd.Printf("  Created:  %s\n", job.CreatedAt.Format(timeFormat))
	if job.CompletedAt != nil {
		cmd.Printf("  Finished: %s\n", job.CompletedAt.Format(timeFormat))
	}
	if job.Error != "" {
		cmd.Printf("  Error:    %s\n", job.Error)
	}
	if r := job.Result; r != nil {
		cmd.Printf("  Document: %s\n", r.DocumentID)
		cmd.Printf("  Risk:     %s (%s, %d%%)\n", riskBadge(r.RiskLevel), r.RiskCategory, r.RiskConfidence)
		cmd.Printf("  Chunks:   %d\n", r.NumChunks)
		if r.Pipeline != nil {
			cmd.Printf("  Pipeline: %s\n", r.Pipeline.Status)
		}
	}
}

func runJobWork(cmd *cobra.Command, _ []string) error {
	if jobService == nil {
		return errors.New("job service not configured")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := jobService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	stopScheduler := startScheduler(ctx)

	cmd.Println("Workers running. Press Ctrl+C to stop.")
	<-ctx.Done()

	stopScheduler()
	if err := jobService.Stop(); err != nil {
		return fmt.Errorf("failed to stop workers: %w", err)
	}
	cmd.Println("Stopped.")
	return nil
}

// startScheduler runs the scheduler in the background when it is enabled.
// The returned func stops it and is safe to call when nothing was started.
func startScheduler(ctx context.Context) func() {
	if scheduler == nil || !schedulerConfig.Enabled {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler: %v", err)
		}
	}()

	return func() {
		cancel()
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler: stop: %v", err)
		}
		<-done
	}
}
