package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure WebhookStore implements the interface.
var _ driven.WebhookStore = (*WebhookStore)(nil)

// WebhookStore keeps webhook subscriptions in memory.
type WebhookStore struct {
	mu   sync.RWMutex
	subs map[string]domain.WebhookSubscription
}

// NewWebhookStore creates an empty subscription store.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{subs: make(map[string]domain.WebhookSubscription)}
}

// SaveWebhook inserts or replaces a subscription.
func (s *WebhookStore) SaveWebhook(_ context.Context, sub *domain.WebhookSubscription) error {
	stored := *sub
	stored.Events = slices.Clone(sub.Events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = stored
	return nil
}

// GetWebhook returns a subscription by ID.
func (s *WebhookStore) GetWebhook(_ context.Context, id string) (*domain.WebhookSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sub.Events = slices.Clone(sub.Events)
	return &sub, nil
}

// DeleteWebhook removes a subscription.
func (s *WebhookStore) DeleteWebhook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

// ListWebhooks returns every subscription, oldest first.
func (s *WebhookStore) ListWebhooks(_ context.Context) ([]domain.WebhookSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WebhookSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		sub.Events = slices.Clone(sub.Events)
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
