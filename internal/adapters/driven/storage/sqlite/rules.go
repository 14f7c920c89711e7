package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// ruleRepository implements driven.RuleRepository.
type ruleRepository struct {
	store *Store
}

var _ driven.RuleRepository = (*ruleRepository)(nil)

const ruleColumns = `id, name, code, metric, operator, threshold, severity, message, enabled, created_at`

// Save creates or updates a rule.
func (r *ruleRepository) Save(ctx context.Context, rule *domain.CustomRule) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO consistency_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			code = excluded.code,
			metric = excluded.metric,
			operator = excluded.operator,
			threshold = excluded.threshold,
			severity = excluded.severity,
			message = excluded.message,
			enabled = excluded.enabled
	`, rule.ID, rule.Name, rule.Code, rule.Metric, string(rule.Operator), rule.Threshold,
		string(rule.Severity), rule.Message, boolToInt(rule.Enabled), formatTime(rule.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}
	return nil
}

// Get retrieves a rule by ID.
func (r *ruleRepository) Get(ctx context.Context, id string) (*domain.CustomRule, error) {
	row := r.store.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM consistency_rules WHERE id = ?", id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rule, err
}

// List returns all rules ordered by code.
func (r *ruleRepository) List(ctx context.Context) ([]domain.CustomRule, error) {
	return r.query(ctx, "SELECT "+ruleColumns+" FROM consistency_rules ORDER BY code, id")
}

// ListEnabled returns only enabled rules ordered by code.
func (r *ruleRepository) ListEnabled(ctx context.Context) ([]domain.CustomRule, error) {
	return r.query(ctx, "SELECT "+ruleColumns+" FROM consistency_rules WHERE enabled = 1 ORDER BY code, id")
}

// Delete removes a rule.
func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, "DELETE FROM consistency_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ruleRepository) query(ctx context.Context, query string) ([]domain.CustomRule, error) {
	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.CustomRule //nolint:prealloc // size unknown from query
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

func scanRule(row scanner) (*domain.CustomRule, error) {
	var rule domain.CustomRule
	var operator, severity, createdAt string
	var enabled int

	if err := row.Scan(&rule.ID, &rule.Name, &rule.Code, &rule.Metric, &operator, &rule.Threshold,
		&severity, &rule.Message, &enabled, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rule: %w", err)
	}

	rule.Operator = domain.RuleOperator(operator)
	rule.Severity = domain.Severity(severity)
	rule.Enabled = enabled == 1
	rule.CreatedAt = parseTime(createdAt)
	return &rule, nil
}
