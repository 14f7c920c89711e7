package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Governor mediates every call to the external data-fetch integration and
// enforces retention and data-subject rights.
type Governor interface {
	// Fetch validates, rate-limits and logs consent before calling the integration.
	Fetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error)

	// Sweep deletes expired cached records and due loan applications.
	Sweep(ctx context.Context) (*domain.SweepReport, error)

	// Consents returns the consent log of a subject.
	Consents(ctx context.Context, subjectID string) ([]domain.ConsentRecord, error)

	// TransferAllowed reports whether data may be sent to countryCode.
	TransferAllowed(countryCode string) bool

	// RemainingQuota returns the fetches still allowed in the current window.
	RemainingQuota() int

	// OpenRightsRequest records a new request due 30 days from now.
	OpenRightsRequest(ctx context.Context, subjectID string, right domain.RightType) (*domain.RightsRequest, error)

	// Advance moves a request along the transition graph.
	Advance(ctx context.Context, id string, status domain.RightsStatus, message string) (*domain.RightsRequest, error)

	// FulfilErasure deletes the subject's cached data and consents and completes the request.
	FulfilErasure(ctx context.Context, id string) (*domain.RightsRequest, error)

	// AccessReport returns the subject's consent log and completes the request.
	AccessReport(ctx context.Context, id string) (*domain.AccessReport, error)

	// ListRightsRequests returns all rights requests.
	ListRightsRequests(ctx context.Context) ([]domain.RightsRequest, error)

	// ListOverdue returns open requests past their due date at now.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.RightsRequest, error)
}
