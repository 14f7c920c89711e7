package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// ConsistencyService scores lending documents against the built-in and custom rules.
type ConsistencyService interface {
	// Evaluate runs every built-in rule and every enabled custom rule.
	Evaluate(ctx context.Context, input domain.ConsistencyInput) (*domain.ConsistencyReport, error)
}

// RuleService manages custom consistency rules.
type RuleService interface {
	// Add validates and stores a new rule.
	Add(ctx context.Context, rule domain.CustomRule) (*domain.CustomRule, error)

	// List returns all rules.
	List(ctx context.Context) ([]domain.CustomRule, error)

	// SetEnabled toggles a rule.
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// Remove deletes a rule.
	Remove(ctx context.Context, id string) error

	// Import parses a YAML rule document and stores every rule in it.
	Import(ctx context.Context, data []byte) ([]domain.CustomRule, error)
}
