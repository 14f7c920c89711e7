package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/aegis/internal/core/domain"
)

func mismatchedRevenue() domain.ConsistencyInput {
	return domain.ConsistencyInput{
		GSTReturns:    []domain.GSTReturn{{Type: "GSTR-3B", Period: "2023-24", TaxableValue: 1_000_000}},
		IncomeRecords: []domain.IncomeRecord{{Type: domain.IncomeRecordITR, AssessmentYear: "2024-25", GrossReceipts: 850_000}},
		Identities:    []domain.IdentityRecord{{MaskedID: "XXXX1234", Address: domain.Address{State: "KA"}}},
	}
}

func TestConsistencyService_BuiltinOnly(t *testing.T) {
	report, err := NewConsistencyService(nil).Evaluate(context.Background(), mismatchedRevenue())
	require.NoError(t, err)

	require.Len(t, report.Flags, 1)
	assert.Equal(t, "REVENUE_MISMATCH", report.Flags[0].Code)
	assert.Equal(t, domain.SeverityMedium, report.Flags[0].Severity)
	assert.Equal(t, 92, report.Score)
}

func TestConsistencyService_AppliesEnabledCustomRules(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRuleRepository()
	rules := NewRuleService(repo)

	_, err := rules.Add(ctx, domain.CustomRule{
		ID: "gst-floor", Name: "GST below floor", Code: "GST_FLOOR",
		Metric: "gst_total", Operator: domain.OperatorLessThan, Threshold: 2_000_000,
		Severity: domain.SeverityHigh, Enabled: true,
	})
	require.NoError(t, err)
	_, err = rules.Add(ctx, domain.CustomRule{
		ID: "disabled", Code: "NEVER", Metric: "gst_total", Operator: domain.OperatorGreaterThan,
		Severity: domain.SeverityCritical, Enabled: false,
	})
	require.NoError(t, err)

	report, err := NewConsistencyService(repo).Evaluate(ctx, mismatchedRevenue())
	require.NoError(t, err)

	codes := make([]string, 0, len(report.Flags))
	for _, f := range report.Flags {
		codes = append(codes, f.Code)
	}
	assert.Equal(t, []string{"REVENUE_MISMATCH", "GST_FLOOR"}, codes)
	assert.Equal(t, 100-8-15, report.Score)
	assert.Equal(t, "GST below floor", report.Flags[1].Message)
}

func TestRuleService_AddValidates(t *testing.T) {
	tests := []struct {
		name string
		rule domain.CustomRule
	}{
		{"unknown metric", domain.CustomRule{Code: "X", Metric: "shoe_size", Operator: domain.OperatorGreaterThan, Severity: domain.SeverityLow}},
		{"bad operator", domain.CustomRule{Code: "X", Metric: "gst_total", Operator: "eq", Severity: domain.SeverityLow}},
		{"bad severity", domain.CustomRule{Code: "X", Metric: "gst_total", Operator: domain.OperatorGreaterThan, Severity: "urgent"}},
		{"missing code", domain.CustomRule{Metric: "gst_total", Operator: domain.OperatorGreaterThan, Severity: domain.SeverityLow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewRuleRepository()
			_, err := NewRuleService(repo).Add(context.Background(), tt.rule)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			all, _ := repo.List(context.Background())
			assert.Empty(t, all)
		})
	}
}

func TestRuleService_AddGeneratesID(t *testing.T) {
	rule, err := NewRuleService(memory.NewRuleRepository()).Add(context.Background(), domain.CustomRule{
		Code: "CC", Metric: "credit_count", Operator: domain.OperatorLessThan, Threshold: 3, Severity: domain.SeverityLow,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())
}

func TestRuleService_SetEnabledAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRuleRepository()
	svc := NewRuleService(repo)
	_, err := svc.Add(ctx, domain.CustomRule{
		ID: "r1", Code: "R1", Metric: "credit_count", Operator: domain.OperatorGreaterThan, Severity: domain.SeverityLow, Enabled: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetEnabled(ctx, "r1", false))
	enabled, _ := repo.ListEnabled(ctx)
	assert.Empty(t, enabled)

	require.NoError(t, svc.Remove(ctx, "r1"))
	assert.ErrorIs(t, svc.SetEnabled(ctx, "r1", true), domain.ErrNotFound)
}

func TestRuleService_Import(t *testing.T) {
	doc := []byte(`
rules:
  - id: velocity-spike
    name: Credit velocity spike
    code: VELOCITY_SPIKE
    metric: credit_velocity_ratio
    operator: gt
    threshold: 3
    severity: high
  - id: thin-file
    code: THIN_FILE
    metric: credit_count
    operator: lt
    threshold: 6
    severity: low
    enabled: false
`)
	ctx := context.Background()
	repo := memory.NewRuleRepository()

	rules, err := NewRuleService(repo).Import(ctx, doc)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.True(t, rules[0].Enabled)
	assert.False(t, rules[1].Enabled)

	all, _ := repo.List(ctx)
	assert.Len(t, all, 2)
}

func TestRuleService_ImportIsAllOrNothing(t *testing.T) {
	doc := []byte(`
rules:
  - id: ok
    code: OK
    metric: gst_total
    operator: gt
    severity: low
  - id: bad
    code: BAD
    metric: not_a_metric
    operator: gt
    severity: low
`)
	repo := memory.NewRuleRepository()

	_, err := NewRuleService(repo).Import(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	all, _ := repo.List(context.Background())
	assert.Empty(t, all)
}
