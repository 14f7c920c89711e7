package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// ConsentLog is the append-only record of consents granted before external fetches.
// There is no update operation; erasure is the only delete.
type ConsentLog interface {
	// Append stores a new consent record.
	Append(ctx context.Context, record *domain.ConsentRecord) error

	// Get retrieves a consent by ID.
	Get(ctx context.Context, consentID string) (*domain.ConsentRecord, error)

	// ListBySubject returns the consents of a subject, oldest first.
	ListBySubject(ctx context.Context, subjectID string) ([]domain.ConsentRecord, error)

	// EraseSubject deletes every consent of a subject and returns the count.
	EraseSubject(ctx context.Context, subjectID string) (int, error)
}

// RightsRequestStore persists data-subject rights requests.
type RightsRequestStore interface {
	// Save creates or updates a request.
	Save(ctx context.Context, req *domain.RightsRequest) error

	// Get retrieves a request by ID.
	Get(ctx context.Context, id string) (*domain.RightsRequest, error)

	// List returns all requests, oldest first.
	List(ctx context.Context) ([]domain.RightsRequest, error)

	// ListOpen returns requests that are not in a terminal state.
	ListOpen(ctx context.Context) ([]domain.RightsRequest, error)
}

// RetentionStore holds data with a bounded lifetime: cached fetch results
// and loan applications awaiting deletion.
type RetentionStore interface {
	// SaveCachedRecord stores a fetched record.
	SaveCachedRecord(ctx context.Context, rec *domain.CachedRecord) error

	// ListCachedRecords returns the cached records of a subject.
	ListCachedRecords(ctx context.Context, subjectID string) ([]domain.CachedRecord, error)

	// DeleteCachedByConsent removes cached records fetched under the given consents.
	DeleteCachedByConsent(ctx context.Context, consentIDs []string) (int, error)

	// SaveLoanApplication stores a loan application.
	SaveLoanApplication(ctx context.Context, app *domain.LoanApplication) error

	// DeleteExpiredCached removes cached records with ExpiresAt <= now in one statement.
	DeleteExpiredCached(ctx context.Context, now time.Time) (int, error)

	// DeleteDueApplications removes applications with DeletionDueDate <= now in one statement.
	DeleteDueApplications(ctx context.Context, now time.Time) (int, error)
}

// FetchIntegration calls the external data provider.
type FetchIntegration interface {
	// Fetch requests the data types of a consent. A partial result is
	// returned with a nil error; the error is reserved for transport failure.
	Fetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error)
}
