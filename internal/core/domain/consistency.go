package domain

import "time"

// Severity grades a RiskFlag.
type Severity string

// Flag severities, least severe first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid returns true if the severity is recognised.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// Deduction returns the score penalty for one flag of this severity.
func (s Severity) Deduction() int {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 8
	case SeverityLow:
		return 3
	default:
		return 0
	}
}

// GSTReturn is a goods-and-services tax filing.
type GSTReturn struct {
	Type         string  `json:"type" yaml:"type"`
	Period       string  `json:"period" yaml:"period"`
	TaxableValue float64 `json:"taxable_value" yaml:"taxable_value"`
	TaxAmount    float64 `json:"tax_amount" yaml:"tax_amount"`
}

// IncomeRecordType distinguishes income tax returns from salary certificates.
type IncomeRecordType string

// Income record types.
const (
	IncomeRecordITR    IncomeRecordType = "ITR"
	IncomeRecordForm16 IncomeRecordType = "FORM16"
)

// IncomeRecord is an income tax return or Form-16 salary certificate.
type IncomeRecord struct {
	Type           IncomeRecordType `json:"type" yaml:"type"`
	AssessmentYear string           `json:"assessment_year" yaml:"assessment_year"`
	GrossReceipts  float64          `json:"gross_receipts" yaml:"gross_receipts"`
}

// TransactionKind is credit or debit.
type TransactionKind string

// Transaction kinds.
const (
	TransactionCredit TransactionKind = "credit"
	TransactionDebit  TransactionKind = "debit"
)

// Transaction is one bank statement line.
type Transaction struct {
	Date        time.Time       `json:"date" yaml:"date"`
	Description string          `json:"description" yaml:"description"`
	Amount      float64         `json:"amount" yaml:"amount"`
	Kind        TransactionKind `json:"kind" yaml:"kind"`
}

// BankStatement is an ordered list of transactions for one account.
type BankStatement struct {
	AccountID    string        `json:"account_id" yaml:"account_id"`
	From         time.Time     `json:"from" yaml:"from"`
	To           time.Time     `json:"to" yaml:"to"`
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
}

// Address is a postal address on an identity record.
type Address struct {
	Line1      string `json:"line1" yaml:"line1"`
	City       string `json:"city" yaml:"city"`
	State      string `json:"state" yaml:"state"`
	PostalCode string `json:"postal_code" yaml:"postal_code"`
}

// IdentityRecord is a KYC identity document with a masked number.
type IdentityRecord struct {
	MaskedID string  `json:"masked_id" yaml:"masked_id"`
	Address  Address `json:"address" yaml:"address"`
}

// ConsistencyInput bundles the structured documents for one applicant.
type ConsistencyInput struct {
	GSTReturns     []GSTReturn      `json:"gst_returns" yaml:"gst_returns"`
	IncomeRecords  []IncomeRecord   `json:"income_records" yaml:"income_records"`
	BankStatements []BankStatement  `json:"bank_statements" yaml:"bank_statements"`
	Identities     []IdentityRecord `json:"identities" yaml:"identities"`
}

// RiskFlag is a single consistency finding.
// Flags are produced fresh on every evaluation and never mutated.
type RiskFlag struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Rule     string   `json:"rule"`
}

// ConsistencyReport is the outcome of evaluating a ConsistencyInput.
type ConsistencyReport struct {
	Flags []RiskFlag `json:"flags"`

	// Score is in [0,100]; 100 means no flags.
	Score int `json:"score"`

	// Metrics are the derived values custom rules compare against.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// RuleOperator compares a metric against a threshold.
type RuleOperator string

// Supported operators.
const (
	OperatorGreaterThan      RuleOperator = "gt"
	OperatorGreaterThanEqual RuleOperator = "gte"
	OperatorLessThan         RuleOperator = "lt"
	OperatorLessThanEqual    RuleOperator = "lte"
)

// Compare applies the operator to value and threshold.
func (o RuleOperator) Compare(value, threshold float64) bool {
	switch o {
	case OperatorGreaterThan:
		return value > threshold
	case OperatorGreaterThanEqual:
		return value >= threshold
	case OperatorLessThan:
		return value < threshold
	case OperatorLessThanEqual:
		return value <= threshold
	default:
		return false
	}
}

// IsValid returns true if the operator is recognised.
func (o RuleOperator) IsValid() bool {
	switch o {
	case OperatorGreaterThan, OperatorGreaterThanEqual, OperatorLessThan, OperatorLessThanEqual:
		return true
	default:
		return false
	}
}

// CustomRule is a user-defined threshold rule over an engine metric.
type CustomRule struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Code      string       `json:"code" yaml:"code"`
	Metric    string       `json:"metric" yaml:"metric"`
	Operator  RuleOperator `json:"operator" yaml:"operator"`
	Threshold float64      `json:"threshold" yaml:"threshold"`
	Severity  Severity     `json:"severity" yaml:"severity"`
	Message   string       `json:"message" yaml:"message"`
	Enabled   bool         `json:"enabled" yaml:"enabled"`
	CreatedAt time.Time    `json:"created_at" yaml:"-"`
}

// Validate checks that the rule is well-formed.
func (r *CustomRule) Validate() error {
	if r.ID == "" || r.Metric == "" || r.Code == "" {
		return ErrInvalidInput
	}
	if !r.Operator.IsValid() || !r.Severity.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
