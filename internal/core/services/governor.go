package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
	"github.com/custodia-labs/aegis/internal/logger"
	"github.com/custodia-labs/aegis/internal/ratelimit"
)

// Verify interface compliance.
var _ driving.Governor = (*Governor)(nil)

// Governor gates every external data fetch behind validation, the transfer
// allow-list, the sliding-window limiter and the consent log. It also runs
// retention sweeps and data-subject rights requests.
type Governor struct {
	consents  driven.ConsentLog
	rights    driven.RightsRequestStore
	retention driven.RetentionStore
	fetcher   driven.FetchIntegration

	window    *ratelimit.SlidingWindow
	pacer     *ratelimit.Pacer
	allowed   map[string]bool
	retainFor time.Duration
	now       func() time.Time
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithGovernorClock overrides the time source of the governor and its limiter.
func WithGovernorClock(now func() time.Time) GovernorOption {
	return func(g *Governor) {
		g.now = now
	}
}

// NewGovernor creates a governor. fetcher may be nil when no integration
// is configured; Fetch then fails with ErrNotImplemented.
func NewGovernor(
	consents driven.ConsentLog,
	rights driven.RightsRequestStore,
	retention driven.RetentionStore,
	fetcher driven.FetchIntegration,
	settings domain.GovernorSettings,
	opts ...GovernorOption,
) *Governor {
	defaults := domain.DefaultAppSettings().Governor
	if settings.RateLimit <= 0 {
		settings.RateLimit = defaults.RateLimit
	}
	if settings.Window <= 0 {
		settings.Window = defaults.Window
	}
	if settings.RetentionDays <= 0 {
		settings.RetentionDays = defaults.RetentionDays
	}
	if len(settings.AllowedCountries) == 0 {
		settings.AllowedCountries = defaults.AllowedCountries
	}

	g := &Governor{
		consents:  consents,
		rights:    rights,
		retention: retention,
		fetcher:   fetcher,
		allowed:   make(map[string]bool, len(settings.AllowedCountries)),
		retainFor: settings.RetentionWindow(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, c := range settings.AllowedCountries {
		g.allowed[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	g.window = ratelimit.NewSlidingWindow(settings.RateLimit, settings.Window, ratelimit.WithClock(g.now))
	if settings.Burst > 0 {
		g.pacer = ratelimit.NewWindowPacer(settings.RateLimit, settings.Window, settings.Burst)
	}
	return g
}

// ==================== Fetch ====================

// Fetch logs consent and calls the external integration. Per-type
// successes are cached until the retention window ends. A consent that
// is logged before a failed fetch stays logged.
func (g *Governor) Fetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error) {
	if err := validateFetch(req); err != nil {
		return nil, err
	}
	if req.CountryCode != "" && !g.TransferAllowed(req.CountryCode) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransferBlocked, req.CountryCode)
	}
	if g.fetcher == nil {
		return nil, fmt.Errorf("fetch integration: %w", domain.ErrNotImplemented)
	}
	slot := g.window.Acquire()
	if slot == nil {
		return nil, domain.ErrRateLimitExceeded
	}
	if g.pacer != nil {
		if err := g.pacer.Wait(ctx); err != nil {
			slot.Cancel()
			return nil, err
		}
	}

	now := g.now()
	expires := now.Add(g.retainFor)
	consent := &domain.ConsentRecord{
		ConsentID: uuid.New().String(),
		SubjectID: req.SubjectID,
		Purpose:   req.Purpose,
		Timestamp: now,
		DataTypes: req.DataTypes,
		ExpiresAt: &expires,
	}
	if err := g.consents.Append(ctx, consent); err != nil {
		slot.Cancel()
		return nil, fmt.Errorf("log consent: %w", err)
	}
	req.ConsentID = consent.ConsentID
	logger.Info("governor: consent %s logged for subject %s (%s)", consent.ConsentID, req.SubjectID, strings.Join(req.DataTypes, ","))

	result, err := g.fetcher.Fetch(ctx, req)
	if err != nil {
		var remote *domain.RemoteRateLimitError
		if errors.As(err, &remote) && g.pacer != nil {
			g.pacer.Backoff(remote.RetryAfter)
		}
		return nil, fmt.Errorf("fetch under consent %s: %w", consent.ConsentID, err)
	}
	result.ConsentID = consent.ConsentID

	for _, dataType := range req.DataTypes {
		tr, ok := result.PerType[dataType]
		if !ok || !tr.Success {
			continue
		}
		rec := &domain.CachedRecord{
			ID:        uuid.New().String(),
			ConsentID: consent.ConsentID,
			SubjectID: req.SubjectID,
			DataType:  dataType,
			Payload:   tr.Data,
			FetchedAt: now,
			ExpiresAt: expires,
		}
		if err := g.retention.SaveCachedRecord(ctx, rec); err != nil {
			logger.Warn("governor: cache %s: %v", dataType, err)
			result.Errors = append(result.Errors, fmt.Sprintf("cache %s: %v", dataType, err))
		}
	}
	return result, nil
}

func validateFetch(req domain.FetchRequest) error {
	switch {
	case strings.TrimSpace(req.SubjectID) == "":
		return fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	case strings.TrimSpace(req.Purpose) == "":
		return fmt.Errorf("%w: purpose is required", domain.ErrInvalidInput)
	case len(req.DataTypes) == 0:
		return fmt.Errorf("%w: at least one data type is required", domain.ErrInvalidInput)
	}
	for _, dt := range req.DataTypes {
		if strings.TrimSpace(dt) == "" {
			return fmt.Errorf("%w: empty data type", domain.ErrInvalidInput)
		}
	}
	return nil
}

// TransferAllowed reports whether countryCode is on the allow-list.
func (g *Governor) TransferAllowed(countryCode string) bool {
	return g.allowed[strings.ToUpper(strings.TrimSpace(countryCode))]
}

// RemainingQuota returns the fetches left in the current window.
func (g *Governor) RemainingQuota() int {
	return g.window.Remaining()
}

// Consents returns the consent log of a subject.
func (g *Governor) Consents(ctx context.Context, subjectID string) ([]domain.ConsentRecord, error) {
	return g.consents.ListBySubject(ctx, subjectID)
}

// ==================== Retention ====================

// Sweep deletes expired cached records and due loan applications. Each
// table is swept independently; a failing table is reported and does
// not stop the other. Running it twice in a row deletes nothing the
// second time.
func (g *Governor) Sweep(ctx context.Context) (*domain.SweepReport, error) {
	now := g.now()
	report := &domain.SweepReport{RanAt: now}
	var errs []error

	n, err := g.retention.DeleteExpiredCached(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: cached_records: %w", domain.ErrRetentionSweep, err))
	}
	report.CachedDeleted = n

	n, err = g.retention.DeleteDueApplications(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: loan_applications: %w", domain.ErrRetentionSweep, err))
	}
	report.ApplicationsDeleted = n

	for _, e := range errs {
		report.Errors = append(report.Errors, e.Error())
		logger.Error("governor: %v", e)
	}
	logger.Info("governor: sweep deleted %d cached records, %d applications", report.CachedDeleted, report.ApplicationsDeleted)
	return report, errors.Join(errs...)
}

// ==================== Rights requests ====================

// OpenRightsRequest records a pending request due in 30 days.
func (g *Governor) OpenRightsRequest(ctx context.Context, subjectID string, right domain.RightType) (*domain.RightsRequest, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	if !right.IsValid() {
		return nil, fmt.Errorf("%w: unknown right %q", domain.ErrInvalidInput, right)
	}
	req := domain.NewRightsRequest(uuid.New().String(), subjectID, right, g.now())
	if err := g.rights.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save rights request: %w", err)
	}
	logger.Info("governor: %s request %s opened, due %s", right, req.ID, req.DueBy.Format(time.DateOnly))
	return req, nil
}

// Advance moves a request to status.
func (g *Governor) Advance(ctx context.Context, id string, status domain.RightsStatus, message string) (*domain.RightsRequest, error) {
	req, err := g.rights.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.Transition(status, message, g.now()); err != nil {
		return nil, fmt.Errorf("%s -> %s: %w", req.Status, status, err)
	}
	if err := g.rights.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("save rights request: %w", err)
	}
	return req, nil
}

// FulfilErasure deletes every cached record fetched under the subject's
// consents, then the consents themselves, and completes the request.
func (g *Governor) FulfilErasure(ctx context.Context, id string) (*domain.RightsRequest, error) {
	req, err := g.openRequest(ctx, id, domain.RightErasure)
	if err != nil {
		return nil, err
	}

	consents, err := g.consents.ListBySubject(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	ids := make([]string, len(consents))
	for i, c := range consents {
		ids[i] = c.ConsentID
	}

	cached, err := g.retention.DeleteCachedByConsent(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("erase cached records: %w", err)
	}
	erased, err := g.consents.EraseSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("erase consents: %w", err)
	}

	msg := fmt.Sprintf("erased %d consents and %d cached records", erased, cached)
	if err := g.complete(ctx, req, msg); err != nil {
		return nil, err
	}
	logger.Info("governor: erasure %s for %s: %s", req.ID, req.SubjectID, msg)
	return req, nil
}

// AccessReport lists the subject's consents and completes the request.
// Cached payloads are never included.
func (g *Governor) AccessReport(ctx context.Context, id string) (*domain.AccessReport, error) {
	req, err := g.openRequest(ctx, id, domain.RightAccess)
	if err != nil {
		return nil, err
	}

	consents, err := g.consents.ListBySubject(ctx, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	if consents == nil {
		consents = []domain.ConsentRecord{}
	}

	if err := g.complete(ctx, req, fmt.Sprintf("reported %d consents", len(consents))); err != nil {
		return nil, err
	}
	return &domain.AccessReport{
		RequestID: req.ID,
		SubjectID: req.SubjectID,
		Consents:  consents,
		Generated: g.now(),
	}, nil
}

// openRequest loads a request of the given right and moves it to in_progress.
func (g *Governor) openRequest(ctx context.Context, id string, right domain.RightType) (*domain.RightsRequest, error) {
	req, err := g.rights.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Right != right {
		return nil, fmt.Errorf("%w: request %s is a %s request", domain.ErrInvalidInput, id, req.Right)
	}
	if req.Status == domain.RightsPending {
		if err := req.Transition(domain.RightsInProgress, "", g.now()); err != nil {
			return nil, err
		}
	}
	if req.Status != domain.RightsInProgress {
		return nil, fmt.Errorf("request %s is %s: %w", id, req.Status, domain.ErrInvalidTransition)
	}
	return req, nil
}

func (g *Governor) complete(ctx context.Context, req *domain.RightsRequest, msg string) error {
	if err := req.Transition(domain.RightsCompleted, msg, g.now()); err != nil {
		return err
	}
	if err := g.rights.Save(ctx, req); err != nil {
		return fmt.Errorf("save rights request: %w", err)
	}
	return nil
}

// ListRightsRequests returns every rights request.
func (g *Governor) ListRightsRequests(ctx context.Context) ([]domain.RightsRequest, error) {
	return g.rights.List(ctx)
}

// ListOverdue returns open requests past their due date at now.
func (g *Governor) ListOverdue(ctx context.Context, now time.Time) ([]domain.RightsRequest, error) {
	open, err := g.rights.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	overdue := make([]domain.RightsRequest, 0)
	for i := range open {
		if open[i].IsOverdue(now) {
			overdue = append(overdue, open[i])
		}
	}
	return overdue, nil
}
