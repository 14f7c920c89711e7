package consistency

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Built-in rule names.
const (
	RuleRevenueMismatch      = "revenue_mismatch"
	RuleEmploymentContinuity = "employment_continuity"
	RuleAddressVerification  = "address_verification"
	RuleBankVelocity         = "bank_velocity"
)

// Flag codes emitted by the built-in rules.
const (
	CodeRevenueMismatch   = "REVENUE_MISMATCH"
	CodeEmploymentGap     = "EMPLOYMENT_GAP"
	CodeAddressUnverified = "ADDRESS_UNVERIFIED"
	CodeCreditVelocity    = "CREDIT_VELOCITY"
)

const (
	revenueFlagPct   = 10.0
	revenueHighPct   = 30.0
	velocityMultiple = 2.0
)

func checkRevenue(_ *domain.ConsistencyInput, m Metrics) []domain.RiskFlag {
	gst, itr := m[MetricGSTTotal], m[MetricITRTotal]
	if gst == 0 && itr == 0 {
		return nil
	}
	diff := m[MetricRevenuePctDiff]
	if diff <= revenueFlagPct {
		return nil
	}
	severity := domain.SeverityMedium
	if diff > revenueHighPct {
		severity = domain.SeverityHigh
	}
	return []domain.RiskFlag{{
		Code:     CodeRevenueMismatch,
		Severity: severity,
		Message:  fmt.Sprintf("GST turnover %.0f and ITR gross receipts %.0f differ by %.1f%%", gst, itr, diff),
		Rule:     RuleRevenueMismatch,
	}}
}

func checkEmployment(in *domain.ConsistencyInput, _ Metrics) []domain.RiskFlag {
	hasForm16 := false
	for _, r := range in.IncomeRecords {
		if r.Type == domain.IncomeRecordForm16 {
			hasForm16 = true
			break
		}
	}
	if !hasForm16 || len(in.BankStatements) == 0 {
		return nil
	}
	for _, stmt := range in.BankStatements {
		for _, t := range stmt.Transactions {
			if t.Kind == domain.TransactionCredit && isSalaryCredit(t.Description) {
				return nil
			}
		}
	}
	return []domain.RiskFlag{{
		Code:     CodeEmploymentGap,
		Severity: domain.SeverityMedium,
		Message:  "Form-16 supplied but no salary credits found in bank statements",
		Rule:     RuleEmploymentContinuity,
	}}
}

// isSalaryCredit matches "SALARY" or "SAL" anywhere in the description, ignoring case.
func isSalaryCredit(desc string) bool {
	upper := strings.ToUpper(desc)
	return strings.Contains(upper, "SALARY") || strings.Contains(upper, "SAL")
}

func checkAddress(in *domain.ConsistencyInput, _ Metrics) []domain.RiskFlag {
	if len(in.GSTReturns) == 0 {
		return nil
	}
	for _, id := range in.Identities {
		if strings.TrimSpace(id.Address.State) != "" {
			return nil
		}
	}
	return []domain.RiskFlag{{
		Code:     CodeAddressUnverified,
		Severity: domain.SeverityLow,
		Message:  "GST registration present but no identity record carries a state",
		Rule:     RuleAddressVerification,
	}}
}

func checkVelocity(in *domain.ConsistencyInput, _ Metrics) []domain.RiskFlag {
	var flags []domain.RiskFlag
	for i := range in.BankStatements {
		stmt := &in.BankStatements[i]
		ratio, ok := velocityRatio(creditsNewestFirst(stmt))
		if !ok || ratio <= velocityMultiple {
			continue
		}
		flags = append(flags, domain.RiskFlag{
			Code:     CodeCreditVelocity,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("account %s: recent credits average %.1fx the prior period", stmt.AccountID, ratio),
			Rule:     RuleBankVelocity,
		})
	}
	return flags
}
