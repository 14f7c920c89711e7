package services

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

// Verify interface compliance.
var _ driving.WebhookService = (*WebhookRegistry)(nil)

// WebhookRegistry manages subscriptions the job runner notifies.
type WebhookRegistry struct {
	store driven.WebhookStore
	now   func() time.Time
}

// NewWebhookRegistry creates a registry over store.
func NewWebhookRegistry(store driven.WebhookStore) *WebhookRegistry {
	return &WebhookRegistry{store: store, now: time.Now}
}

// newWebhookID returns "wh_" followed by 16 hex characters.
func newWebhookID() string {
	return "wh_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// Register validates and stores an active subscription.
func (w *WebhookRegistry) Register(
	ctx context.Context, rawURL string, events []string, secret string,
) (*domain.WebhookSubscription, error) {
	if err := validateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	selected, err := normaliseEvents(events)
	if err != nil {
		return nil, err
	}

	sub := &domain.WebhookSubscription{
		ID:        newWebhookID(),
		URL:       rawURL,
		Events:    selected,
		Secret:    secret,
		Active:    true,
		CreatedAt: w.now(),
	}
	if err := w.store.SaveWebhook(ctx, sub); err != nil {
		return nil, fmt.Errorf("save webhook: %w", err)
	}
	return sub, nil
}

// Get returns a subscription by ID.
func (w *WebhookRegistry) Get(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	return w.store.GetWebhook(ctx, id)
}

// List returns every subscription.
func (w *WebhookRegistry) List(ctx context.Context) ([]domain.WebhookSubscription, error) {
	return w.store.ListWebhooks(ctx)
}

// Remove deletes a subscription.
func (w *WebhookRegistry) Remove(ctx context.Context, id string) error {
	return w.store.DeleteWebhook(ctx, id)
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: webhook URL: %w", domain.ErrInvalidInput, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: webhook URL must be an absolute http or https URL", domain.ErrInvalidInput)
	}
	return nil
}

// normaliseEvents drops duplicates and rejects unknown names. No events
// selects every event.
func normaliseEvents(events []string) ([]string, error) {
	known := domain.WebhookEvents()
	if len(events) == 0 {
		return known, nil
	}
	var out []string
	for _, e := range events {
		e = strings.TrimSpace(e)
		if !slices.Contains(known, e) {
			return nil, fmt.Errorf("%w: unknown event %q (known: %s)",
				domain.ErrInvalidInput, e, strings.Join(known, ", "))
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out, nil
}
