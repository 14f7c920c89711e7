package consistency

import (
	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Rule inspects an input and its derived metrics and returns zero or more flags.
type Rule struct {
	// Name identifies the rule in emitted flags.
	Name string

	// Check evaluates the rule.
	Check func(in *domain.ConsistencyInput, m Metrics) []domain.RiskFlag
}

// BuiltinRules returns the four standard rules in evaluation order.
func BuiltinRules() []Rule {
	return []Rule{
		{Name: RuleRevenueMismatch, Check: checkRevenue},
		{Name: RuleEmploymentContinuity, Check: checkEmployment},
		{Name: RuleAddressVerification, Check: checkAddress},
		{Name: RuleBankVelocity, Check: checkVelocity},
	}
}

// Evaluate runs every built-in rule, then each enabled custom rule, and scores the result.
func Evaluate(in domain.ConsistencyInput, custom ...domain.CustomRule) domain.ConsistencyReport {
	m := ComputeMetrics(&in)

	flags := make([]domain.RiskFlag, 0)
	for _, rule := range BuiltinRules() {
		flags = append(flags, rule.Check(&in, m)...)
	}
	for i := range custom {
		if flag, ok := applyCustom(&custom[i], m); ok {
			flags = append(flags, flag)
		}
	}

	return domain.ConsistencyReport{
		Flags:   flags,
		Score:   Score(flags),
		Metrics: m,
	}
}

// Score returns 100 minus the severity deductions of flags, clamped to [0,100].
func Score(flags []domain.RiskFlag) int {
	score := 100
	for _, f := range flags {
		score -= f.Severity.Deduction()
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// applyCustom compares the rule's metric to its threshold.
// Unknown metrics and disabled rules never fire.
func applyCustom(rule *domain.CustomRule, m Metrics) (domain.RiskFlag, bool) {
	if !rule.Enabled {
		return domain.RiskFlag{}, false
	}
	value, ok := m[rule.Metric]
	if !ok || !rule.Operator.Compare(value, rule.Threshold) {
		return domain.RiskFlag{}, false
	}
	msg := rule.Message
	if msg == "" {
		msg = rule.Name
	}
	return domain.RiskFlag{
		Code:     rule.Code,
		Severity: rule.Severity,
		Message:  msg,
		Rule:     "custom:" + rule.ID,
	}, true
}
