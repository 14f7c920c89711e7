package domain

import "time"

// RightsRequestSLA is the fixed deadline for resolving a rights request.
const RightsRequestSLA = 30 * 24 * time.Hour

// ConsentRecord is an append-only audit entry written before every external fetch.
// Records are never updated, and deleted only by an erasure request.
type ConsentRecord struct {
	// ConsentID is the identifier presented to the fetch integration.
	ConsentID string `json:"consent_id"`

	// SubjectID is the data subject the fetch concerns.
	SubjectID string `json:"subject_id"`

	// Purpose states why the data is requested.
	Purpose string `json:"purpose"`

	// Timestamp is when consent was logged.
	Timestamp time.Time `json:"timestamp"`

	// DataTypes are the categories of data requested.
	DataTypes []string `json:"data_types"`

	// ExpiresAt bounds the consent, if set.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RightType is the data-subject right being exercised.
type RightType string

// Subject rights.
const (
	RightAccess     RightType = "access"
	RightCorrection RightType = "correction"
	RightErasure    RightType = "erasure"
)

// IsValid returns true if the right is recognised.
func (r RightType) IsValid() bool {
	switch r {
	case RightAccess, RightCorrection, RightErasure:
		return true
	default:
		return false
	}
}

// RightsStatus is the lifecycle state of a rights request.
type RightsStatus string

// Rights request states.
const (
	RightsPending    RightsStatus = "pending"
	RightsInProgress RightsStatus = "in_progress"
	RightsCompleted  RightsStatus = "completed"
	RightsRejected   RightsStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s RightsStatus) IsTerminal() bool {
	return s == RightsCompleted || s == RightsRejected
}

// CanTransitionTo reports whether s -> next is allowed.
// Requests move pending -> in_progress -> completed|rejected and are never reopened.
func (s RightsStatus) CanTransitionTo(next RightsStatus) bool {
	switch s {
	case RightsPending:
		return next == RightsInProgress
	case RightsInProgress:
		return next == RightsCompleted || next == RightsRejected
	default:
		return false
	}
}

// RightsRequest is a data-subject access, correction or erasure request.
type RightsRequest struct {
	ID          string       `json:"id"`
	SubjectID   string       `json:"subject_id"`
	Right       RightType    `json:"right"`
	Status      RightsStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	DueBy       time.Time    `json:"due_by"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// NewRightsRequest creates a pending request due exactly RightsRequestSLA after createdAt.
func NewRightsRequest(id, subjectID string, right RightType, createdAt time.Time) *RightsRequest {
	return &RightsRequest{
		ID:        id,
		SubjectID: subjectID,
		Right:     right,
		Status:    RightsPending,
		CreatedAt: createdAt,
		DueBy:     createdAt.Add(RightsRequestSLA),
	}
}

// Transition moves the request to next, recording completion time for terminal states.
func (r *RightsRequest) Transition(next RightsStatus, message string, at time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	if message != "" {
		r.Message = message
	}
	if next.IsTerminal() {
		r.CompletedAt = &at
	}
	return nil
}

// IsOverdue reports whether an open request has passed its deadline.
func (r *RightsRequest) IsOverdue(now time.Time) bool {
	return !r.Status.IsTerminal() && now.After(r.DueBy)
}

// CachedRecord is externally fetched personal data held until its retention window ends.
type CachedRecord struct {
	ID        string    `json:"id"`
	ConsentID string    `json:"consent_id"`
	SubjectID string    `json:"subject_id"`
	DataType  string    `json:"data_type"`
	Payload   []byte    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoanApplication is a dependent record scheduled for deletion.
type LoanApplication struct {
	ID              string    `json:"id"`
	SubjectID       string    `json:"subject_id"`
	ConsentID       string    `json:"consent_id"`
	DeletionDueDate time.Time `json:"deletion_due_date"`
}

// FetchRequest is a call to the external data-fetch integration.
type FetchRequest struct {
	ConsentID   string   `json:"consent_id"`
	SubjectID   string   `json:"subject_id"`
	Purpose     string   `json:"purpose"`
	DataTypes   []string `json:"data_types"`
	CountryCode string   `json:"country_code,omitempty"`
}

// FetchTypeResult is the outcome for one requested data type.
type FetchTypeResult struct {
	Success bool   `json:"success"`
	Data    []byte `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FetchResult is the aggregate outcome of a fetch.
// Partial success across types is expected.
type FetchResult struct {
	ConsentID string                     `json:"consent_id"`
	Success   bool                       `json:"success"`
	PerType   map[string]FetchTypeResult `json:"per_type"`
	Errors    []string                   `json:"errors,omitempty"`
}

// SweepReport counts what a retention sweep deleted.
type SweepReport struct {
	CachedDeleted       int       `json:"cached_deleted"`
	ApplicationsDeleted int       `json:"applications_deleted"`
	Errors              []string  `json:"errors,omitempty"`
	RanAt               time.Time `json:"ran_at"`
}

// Total returns the number of rows deleted across tables.
func (r *SweepReport) Total() int {
	return r.CachedDeleted + r.ApplicationsDeleted
}

// AccessReport is the response to an access request.
// It lists consent history only; cached content is never included.
type AccessReport struct {
	RequestID string          `json:"request_id"`
	SubjectID string          `json:"subject_id"`
	Consents  []ConsentRecord `json:"consents"`
	Generated time.Time       `json:"generated"`
}
