package consistency

import (
	"sort"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Metric names exposed to custom rules.
const (
	MetricRevenuePctDiff      = "revenue_pct_diff"
	MetricGSTTotal            = "gst_total"
	MetricITRTotal            = "itr_total"
	MetricCreditVelocityRatio = "credit_velocity_ratio"
	MetricCreditCount         = "credit_count"
)

// Metrics are derived values keyed by metric name.
type Metrics map[string]float64

// KnownMetrics lists every metric a custom rule may reference.
func KnownMetrics() []string {
	return []string{
		MetricRevenuePctDiff,
		MetricGSTTotal,
		MetricITRTotal,
		MetricCreditVelocityRatio,
		MetricCreditCount,
	}
}

// IsKnownMetric reports whether name is computed by the engine.
func IsKnownMetric(name string) bool {
	for _, m := range KnownMetrics() {
		if m == name {
			return true
		}
	}
	return false
}

// ComputeMetrics derives every metric from in.
func ComputeMetrics(in *domain.ConsistencyInput) Metrics {
	gst, itr := revenueTotals(in)

	m := Metrics{
		MetricGSTTotal:            gst,
		MetricITRTotal:            itr,
		MetricRevenuePctDiff:      pctDiff(gst, itr),
		MetricCreditVelocityRatio: 0,
		MetricCreditCount:         0,
	}

	for i := range in.BankStatements {
		credits := creditsNewestFirst(&in.BankStatements[i])
		m[MetricCreditCount] += float64(len(credits))
		if ratio, ok := velocityRatio(credits); ok && ratio > m[MetricCreditVelocityRatio] {
			m[MetricCreditVelocityRatio] = ratio
		}
	}
	return m
}

func revenueTotals(in *domain.ConsistencyInput) (gst, itr float64) {
	for _, r := range in.GSTReturns {
		gst += r.TaxableValue
	}
	for _, r := range in.IncomeRecords {
		if r.Type == domain.IncomeRecordITR {
			itr += r.GrossReceipts
		}
	}
	return gst, itr
}

// pctDiff returns (max-min)/max as a percentage, or 0 when both are zero.
func pctDiff(a, b float64) float64 {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 0 {
		return 0
	}
	return (hi - lo) * 100 / hi
}

// creditsNewestFirst returns the credit amounts of a statement sorted by date descending.
func creditsNewestFirst(stmt *domain.BankStatement) []float64 {
	txns := make([]domain.Transaction, 0, len(stmt.Transactions))
	for _, t := range stmt.Transactions {
		if t.Kind == domain.TransactionCredit {
			txns = append(txns, t)
		}
	}
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Date.After(txns[j].Date)
	})
	amounts := make([]float64, len(txns))
	for i, t := range txns {
		amounts[i] = t.Amount
	}
	return amounts
}

// velocityRatio compares the mean of the three newest credits with the
// mean of the next three. It is undefined for fewer than two credits or
// when the older mean is not positive, which includes having no older credits.
func velocityRatio(credits []float64) (float64, bool) {
	if len(credits) < 2 {
		return 0, false
	}
	recentEnd := min(3, len(credits))
	olderEnd := min(6, len(credits))

	recent := mean(credits[:recentEnd])
	older := mean(credits[recentEnd:olderEnd])
	if older <= 0 {
		return 0, false
	}
	return recent / older, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
