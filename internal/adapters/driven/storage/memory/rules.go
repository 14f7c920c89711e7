package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure RuleRepository implements the interface.
var _ driven.RuleRepository = (*RuleRepository)(nil)

// RuleRepository is the in-process custom rule registry.
// All access is serialised by a mutex.
type RuleRepository struct {
	mu    sync.RWMutex
	rules map[string]domain.CustomRule
}

// NewRuleRepository creates an empty repository.
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[string]domain.CustomRule)}
}

// Save inserts or replaces a rule.
func (r *RuleRepository) Save(_ context.Context, rule *domain.CustomRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = *rule
	return nil
}

// Get returns a rule by ID.
func (r *RuleRepository) Get(_ context.Context, id string) (*domain.CustomRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rule, nil
}

// List returns every rule ordered by ID.
func (r *RuleRepository) List(_ context.Context) ([]domain.CustomRule, error) {
	return r.collect(false), nil
}

// ListEnabled returns enabled rules ordered by ID.
func (r *RuleRepository) ListEnabled(_ context.Context) ([]domain.CustomRule, error) {
	return r.collect(true), nil
}

func (r *RuleRepository) collect(enabledOnly bool) []domain.CustomRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.CustomRule, 0, len(r.rules))
	for _, rule := range r.rules {
		if enabledOnly && !rule.Enabled {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a rule.
func (r *RuleRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}
