package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure the governance stores implement their interfaces.
var (
	_ driven.ConsentLog         = (*ConsentLog)(nil)
	_ driven.RightsRequestStore = (*RightsRequestStore)(nil)
	_ driven.RetentionStore     = (*RetentionStore)(nil)
)

// ==================== Consent Log ====================

// ConsentLog is an append-only in-memory consent log.
type ConsentLog struct {
	mu      sync.RWMutex
	records []domain.ConsentRecord
}

// NewConsentLog creates an empty consent log.
func NewConsentLog() *ConsentLog {
	return &ConsentLog{}
}

// Append adds a record. Duplicate consent IDs are rejected.
func (l *ConsentLog) Append(_ context.Context, record *domain.ConsentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].ConsentID == record.ConsentID {
			return domain.ErrAlreadyExists
		}
	}
	l.records = append(l.records, *record)
	return nil
}

// Get returns a record by consent ID.
func (l *ConsentLog) Get(_ context.Context, consentID string) (*domain.ConsentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.records {
		if l.records[i].ConsentID == consentID {
			rec := l.records[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListBySubject returns a subject's records in append order.
func (l *ConsentLog) ListBySubject(_ context.Context, subjectID string) ([]domain.ConsentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.ConsentRecord
	for _, rec := range l.records {
		if rec.SubjectID == subjectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// EraseSubject deletes every record for a subject.
func (l *ConsentLog) EraseSubject(_ context.Context, subjectID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.records[:0]
	removed := 0
	for _, rec := range l.records {
		if rec.SubjectID == subjectID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	l.records = kept
	return removed, nil
}

// ==================== Rights Requests ====================

// RightsRequestStore keeps rights requests in a map.
type RightsRequestStore struct {
	mu       sync.RWMutex
	requests map[string]domain.RightsRequest
}

// NewRightsRequestStore creates an empty store.
func NewRightsRequestStore() *RightsRequestStore {
	return &RightsRequestStore{requests: make(map[string]domain.RightsRequest)}
}

// Save inserts or replaces a request.
func (s *RightsRequestStore) Save(_ context.Context, req *domain.RightsRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = *req
	return nil
}

// Get returns a request by ID.
func (s *RightsRequestStore) Get(_ context.Context, id string) (*domain.RightsRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

// List returns every request, oldest first.
func (s *RightsRequestStore) List(_ context.Context) ([]domain.RightsRequest, error) {
	return s.filter(func(domain.RightsRequest) bool { return true }), nil
}

// ListOpen returns requests that are not yet terminal, oldest first.
func (s *RightsRequestStore) ListOpen(_ context.Context) ([]domain.RightsRequest, error) {
	return s.filter(func(r domain.RightsRequest) bool { return !r.Status.IsTerminal() }), nil
}

func (s *RightsRequestStore) filter(keep func(domain.RightsRequest) bool) []domain.RightsRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RightsRequest
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ==================== Retention ====================

// RetentionStore keeps cached records and loan applications in memory.
type RetentionStore struct {
	mu           sync.Mutex
	cached       map[string]domain.CachedRecord
	applications map[string]domain.LoanApplication

	// FailApplications makes DeleteDueApplications fail, for sweep tests.
	FailApplications error
}

// NewRetentionStore creates an empty store.
func NewRetentionStore() *RetentionStore {
	return &RetentionStore{
		cached:       make(map[string]domain.CachedRecord),
		applications: make(map[string]domain.LoanApplication),
	}
}

// SaveCachedRecord stores fetched data.
func (s *RetentionStore) SaveCachedRecord(_ context.Context, rec *domain.CachedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached[rec.ID] = *rec
	return nil
}

// ListCachedRecords returns a subject's cached records.
func (s *RetentionStore) ListCachedRecords(_ context.Context, subjectID string) ([]domain.CachedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CachedRecord
	for _, rec := range s.cached {
		if rec.SubjectID == subjectID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.Before(out[j].FetchedAt) })
	return out, nil
}

// DeleteCachedByConsent removes cached data fetched under the given consents.
func (s *RetentionStore) DeleteCachedByConsent(_ context.Context, consentIDs []string) (int, error) {
	ids := make(map[string]bool, len(consentIDs))
	for _, id := range consentIDs {
		ids[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.cached {
		if ids[rec.ConsentID] {
			delete(s.cached, key)
			n++
		}
	}
	return n, nil
}

// SaveLoanApplication stores an application.
func (s *RetentionStore) SaveLoanApplication(_ context.Context, app *domain.LoanApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[app.ID] = *app
	return nil
}

// DeleteExpiredCached removes cached records expiring at or before now.
func (s *RetentionStore) DeleteExpiredCached(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.cached {
		if !rec.ExpiresAt.After(now) {
			delete(s.cached, key)
			n++
		}
	}
	return n, nil
}

// DeleteDueApplications removes applications due at or before now.
func (s *RetentionStore) DeleteDueApplications(_ context.Context, now time.Time) (int, error) {
	if s.FailApplications != nil {
		return 0, s.FailApplications
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, app := range s.applications {
		if !app.DeletionDueDate.After(now) {
			delete(s.applications, key)
			n++
		}
	}
	return n, nil
}

// CachedCount returns the number of cached records held.
func (s *RetentionStore) CachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cached)
}
