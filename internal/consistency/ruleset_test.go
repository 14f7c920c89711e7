package consistency

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

const rulesYAML = `
rules:
  - id: high-velocity
    name: Credit spike
    code: HIGH_VELOCITY
    metric: credit_velocity_ratio
    operator: gt
    threshold: 4
    severity: high
    message: Credits quadrupled
  - id: thin-file
    code: THIN_FILE
    metric: credit_count
    operator: lt
    threshold: 6
    severity: low
    enabled: false
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(rulesYAML))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "high-velocity", rules[0].ID)
	assert.Equal(t, domain.OperatorGreaterThan, rules[0].Operator)
	assert.InDelta(t, 4.0, rules[0].Threshold, 1e-9)
	assert.Equal(t, domain.SeverityHigh, rules[0].Severity)
	assert.True(t, rules[0].Enabled, "enabled by default")

	assert.False(t, rules[1].Enabled)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad operator", "rules:\n  - {id: a, code: A, metric: gst_total, operator: eq, threshold: 1, severity: low}\n"},
		{"unknown metric", "rules:\n  - {id: a, code: A, metric: nope, operator: gt, threshold: 1, severity: low}\n"},
		{"missing id", "rules:\n  - {code: A, metric: gst_total, operator: gt, threshold: 1, severity: low}\n"},
		{"malformed", "rules: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Nil(t, rules)

	rules, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, rules)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o600))
	rules, err = LoadRules(path)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"gst_returns": [{"type": "GSTR-3B", "period": "2023-24", "taxable_value": 1250000}],
		"income_records": [{"type": "ITR", "assessment_year": "2024-25", "gross_receipts": 900000}],
		"bank_statements": [{"account_id": "acc-1", "transactions": [
			{"date": "2024-03-01T00:00:00Z", "description": "SALARY", "amount": 50000, "kind": "credit"}
		]}]
	}`), 0o600))

	in, err := LoadInput(jsonPath)
	require.NoError(t, err)
	require.Len(t, in.GSTReturns, 1)
	assert.InDelta(t, 1_250_000, in.GSTReturns[0].TaxableValue, 1e-9)
	require.Len(t, in.BankStatements, 1)
	assert.Equal(t, domain.TransactionCredit, in.BankStatements[0].Transactions[0].Kind)

	yamlPath := filepath.Join(dir, "input.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
gst_returns:
  - type: GSTR-3B
    taxable_value: 100000
identities:
  - masked_id: XXXX1234
    address:
      state: KA
`), 0o600))

	in, err = LoadInput(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "KA", in.Identities[0].Address.State)

	_, err = LoadInput(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
