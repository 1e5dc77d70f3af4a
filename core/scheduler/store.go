package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/kilianp07/homecoming/core/model"
)

// ErrJobNotFound is returned when a state update targets an unknown job.
var ErrJobNotFound = errors.New("job not found")

// Filter restricts the jobs returned by Store.List. Zero fields match all.
type Filter struct {
	UserID string
	State  model.JobState
}

func (f Filter) match(j model.TriggerJob) bool {
	if f.UserID != "" && j.UserID != f.UserID {
		return false
	}
	if f.State != "" && j.State != f.State {
		return false
	}
	return true
}

// Store persists trigger jobs.
type Store interface {
	Save(ctx context.Context, job model.TriggerJob) error
	SetState(ctx context.Context, id string, state model.JobState) error
	// List returns matching jobs ordered by FireAt.
	List(ctx context.Context, f Filter) ([]model.TriggerJob, error)
	Close() error
}

// MemoryStore keeps jobs in memory. Jobs do not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.TriggerJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]model.TriggerJob{}}
}

func (s *MemoryStore) Save(_ context.Context, job model.TriggerJob) error {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetState(_ context.Context, id string, state model.JobState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	j.State = state
	s.jobs[id] = j
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]model.TriggerJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.TriggerJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		if f.match(j) {
			res = append(res, j)
		}
	}
	sort.Slice(res, func(i, k int) bool {
		if res[i].FireAt.Equal(res[k].FireAt) {
			return res[i].ID < res[k].ID
		}
		return res[i].FireAt.Before(res[k].FireAt)
	})
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }
