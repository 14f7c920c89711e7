package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore keeps analysis jobs in memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.AnalysisJob
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]domain.AnalysisJob)}
}

// SaveJob inserts or replaces a job.
func (s *JobStore) SaveJob(_ context.Context, job *domain.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// GetJob returns a job by ID.
func (s *JobStore) GetJob(_ context.Context, id string) (*domain.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// ListJobs returns jobs in a status, oldest first. An empty status lists all.
func (s *JobStore) ListJobs(_ context.Context, status domain.JobStatus) ([]domain.AnalysisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AnalysisJob
	for _, job := range s.jobs {
		if status == "" || job.Status == status {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
