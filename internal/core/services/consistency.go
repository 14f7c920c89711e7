package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aegis/internal/consistency"
	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
	"github.com/custodia-labs/aegis/internal/logger"
)

// Verify interface compliance.
var (
	_ driving.ConsistencyService = (*ConsistencyService)(nil)
	_ driving.RuleService        = (*RuleService)(nil)
)

// ConsistencyService evaluates lending documents with the built-in rules
// and every enabled custom rule.
type ConsistencyService struct {
	rules driven.RuleRepository
}

// NewConsistencyService creates a consistency service. rules may be nil,
// in which case only the built-in rules run.
func NewConsistencyService(rules driven.RuleRepository) *ConsistencyService {
	return &ConsistencyService{rules: rules}
}

// Evaluate scores input.
func (s *ConsistencyService) Evaluate(ctx context.Context, input domain.ConsistencyInput) (*domain.ConsistencyReport, error) {
	var custom []domain.CustomRule
	if s.rules != nil {
		enabled, err := s.rules.ListEnabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("load custom rules: %w", err)
		}
		custom = enabled
	}

	report := consistency.Evaluate(input, custom...)
	logger.Info("consistency: %d flags, score %d (%d custom rules)", len(report.Flags), report.Score, len(custom))
	return &report, nil
}

// RuleService manages custom consistency rules.
type RuleService struct {
	repo driven.RuleRepository
}

// NewRuleService creates a rule service.
func NewRuleService(repo driven.RuleRepository) *RuleService {
	return &RuleService{repo: repo}
}

// Add validates and stores a rule. An empty ID is generated.
func (s *RuleService) Add(ctx context.Context, rule domain.CustomRule) (*domain.CustomRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if err := validateRule(&rule); err != nil {
		return nil, err
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if err := s.repo.Save(ctx, &rule); err != nil {
		return nil, fmt.Errorf("save rule: %w", err)
	}
	return &rule, nil
}

// List returns all rules.
func (s *RuleService) List(ctx context.Context) ([]domain.CustomRule, error) {
	return s.repo.List(ctx)
}

// SetEnabled toggles a rule.
func (s *RuleService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	rule, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	rule.Enabled = enabled
	return s.repo.Save(ctx, rule)
}

// Remove deletes a rule.
func (s *RuleService) Remove(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Import stores every rule of a YAML document. Nothing is stored if any rule is invalid.
func (s *RuleService) Import(ctx context.Context, data []byte) ([]domain.CustomRule, error) {
	rules, err := consistency.ParseRules(data)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if err := validateRule(&rules[i]); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	for i := range rules {
		if rules[i].CreatedAt.IsZero() {
			rules[i].CreatedAt = now
		}
		if err := s.repo.Save(ctx, &rules[i]); err != nil {
			return nil, fmt.Errorf("save rule %q: %w", rules[i].ID, err)
		}
	}
	logger.Info("imported %d consistency rules", len(rules))
	return rules, nil
}

func validateRule(rule *domain.CustomRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("rule %q: %w", rule.ID, err)
	}
	if !consistency.IsKnownMetric(rule.Metric) {
		return fmt.Errorf("rule %q: %w: unknown metric %q", rule.ID, domain.ErrInvalidInput, rule.Metric)
	}
	return nil
}
