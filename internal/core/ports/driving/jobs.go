package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// JobService queues ingestion and analysis for background processing.
type JobService interface {
	// Submit stores the job and schedules it. Returns the job ID.
	Submit(ctx context.Context, job *domain.AnalysisJob) (string, error)

	// Status returns the stored state of a job.
	Status(ctx context.Context, id string) (*domain.AnalysisJob, error)

	// Start launches the worker pool. Returns once workers are running.
	Start(ctx context.Context) error

	// Stop waits for in-flight jobs and stops the workers.
	Stop() error
}
