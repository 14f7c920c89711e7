package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// WebhookService manages standing webhook subscriptions.
type WebhookService interface {
	// Register validates and stores a subscription. Empty events selects
	// every event.
	Register(ctx context.Context, url string, events []string, secret string) (*domain.WebhookSubscription, error)

	// Get returns a subscription by ID.
	Get(ctx context.Context, id string) (*domain.WebhookSubscription, error)

	// List returns every subscription.
	List(ctx context.Context) ([]domain.WebhookSubscription, error)

	// Remove deletes a subscription.
	Remove(ctx context.Context, id string) error
}
