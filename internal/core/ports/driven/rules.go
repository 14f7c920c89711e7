package driven

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// RuleRepository persists custom consistency rules.
type RuleRepository interface {
	// Save creates or updates a rule.
	Save(ctx context.Context, rule *domain.CustomRule) error

	// Get retrieves a rule by ID.
	Get(ctx context.Context, id string) (*domain.CustomRule, error)

	// List returns all rules ordered by code.
	List(ctx context.Context) ([]domain.CustomRule, error)

	// ListEnabled returns only enabled rules ordered by code.
	ListEnabled(ctx context.Context) ([]domain.CustomRule, error)

	// Delete removes a rule.
	Delete(ctx context.Context, id string) error
}
