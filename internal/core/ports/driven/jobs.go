package driven

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// JobStore persists analysis jobs so their status survives the worker.
type JobStore interface {
	// SaveJob creates or updates a job.
	SaveJob(ctx context.Context, job *domain.AnalysisJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error)

	// ListJobs returns jobs with the given status, or all when status is empty.
	ListJobs(ctx context.Context, status domain.JobStatus) ([]domain.AnalysisJob, error)
}

// WebhookStore persists webhook subscriptions.
type WebhookStore interface {
	// SaveWebhook creates or updates a subscription.
	SaveWebhook(ctx context.Context, sub *domain.WebhookSubscription) error

	// GetWebhook retrieves a subscription by ID.
	GetWebhook(ctx context.Context, id string) (*domain.WebhookSubscription, error)

	// DeleteWebhook removes a subscription. Unknown IDs return domain.ErrNotFound.
	DeleteWebhook(ctx context.Context, id string) error

	// ListWebhooks returns every subscription, oldest first.
	ListWebhooks(ctx context.Context) ([]domain.WebhookSubscription, error)
}

// Notifier delivers job events to external endpoints.
type Notifier interface {
	// Notify delivers one event, retrying as the implementation sees fit.
	Notify(ctx context.Context, delivery domain.WebhookDelivery) error
}
