package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/billscan/internal/jobs"
)

// Store keeps job state in memory. State is lost on restart; a persistent
// deployment should back this with a database.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*jobs.AnalyzeStatementJob
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*jobs.AnalyzeStatementJob)}
}

// clone shields stored state from caller mutation on both reads and writes.
func clone(job *jobs.AnalyzeStatementJob) *jobs.AnalyzeStatementJob {
	c := *job
	return &c
}

// SaveJob inserts or replaces a job's state.
func (s *Store) SaveJob(_ context.Context, job *jobs.AnalyzeStatementJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	s.mu.Lock()
	s.entries[job.JobID] = clone(job)
	s.mu.Unlock()
	return nil
}

// GetJob returns a copy of the job with the given id.
func (s *Store) GetJob(_ context.Context, jobID string) (*jobs.AnalyzeStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.entries[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return clone(job), nil
}

// ListJobs returns matching jobs, newest first.
func (s *Store) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.AnalyzeStatementJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.AnalyzeStatementJob, 0, len(s.entries))
	for _, job := range s.entries {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		matched = append(matched, clone(job))
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*jobs.AnalyzeStatementJob{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

var _ jobs.JobStore = (*Store)(nil)
