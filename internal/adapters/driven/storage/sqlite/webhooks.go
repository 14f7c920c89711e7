package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// webhookStore implements driven.WebhookStore.
type webhookStore struct {
	store *Store
}

var _ driven.WebhookStore = (*webhookStore)(nil)

const webhookColumns = `id, url, events, secret, active, created_at`

// SaveWebhook creates or updates a subscription. Events are stored as JSON.
func (w *webhookStore) SaveWebhook(ctx context.Context, sub *domain.WebhookSubscription) error {
	events, err := marshalJSON(sub.Events, "[]")
	if err != nil {
		return fmt.Errorf("marshalling events: %w", err)
	}

	_, err = w.store.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions (`+webhookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			events = excluded.events,
			secret = excluded.secret,
			active = excluded.active
	`, sub.ID, sub.URL, events, sub.Secret, boolToInt(sub.Active), formatTime(sub.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving webhook: %w", err)
	}
	return nil
}

// GetWebhook retrieves a subscription by ID.
func (w *webhookStore) GetWebhook(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	row := w.store.db.QueryRowContext(ctx, "SELECT "+webhookColumns+" FROM webhook_subscriptions WHERE id = ?", id)
	sub, err := scanWebhook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return sub, err
}

// DeleteWebhook removes a subscription.
func (w *webhookStore) DeleteWebhook(ctx context.Context, id string) error {
	res, err := w.store.db.ExecContext(ctx, "DELETE FROM webhook_subscriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListWebhooks returns every subscription, oldest first.
func (w *webhookStore) ListWebhooks(ctx context.Context) ([]domain.WebhookSubscription, error) {
	rows, err := w.store.db.QueryContext(ctx,
		"SELECT "+webhookColumns+" FROM webhook_subscriptions ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying webhooks: %w", err)
	}
	defer rows.Close()

	var subs []domain.WebhookSubscription //nolint:prealloc // size unknown from query
	for rows.Next() {
		sub, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhooks: %w", err)
	}
	return subs, nil
}

func scanWebhook(row scanner) (*domain.WebhookSubscription, error) {
	var sub domain.WebhookSubscription
	var events, createdAt string
	var active int

	if err := row.Scan(&sub.ID, &sub.URL, &events, &sub.Secret, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning webhook: %w", err)
	}

	if err := json.Unmarshal([]byte(events), &sub.Events); err != nil {
		return nil, fmt.Errorf("unmarshaling events: %w", err)
	}
	sub.Active = active == 1
	sub.CreatedAt = parseTime(createdAt)
	return &sub, nil
}
