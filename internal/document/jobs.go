package document

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
)

// Jobs is the job store, keyed by the remote-assigned job ID
type Jobs struct {
	mu   sync.RWMutex
	jobs map[string]*domain.GenerationJob
}

// NewJobs creates an empty store
func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*domain.GenerationJob)}
}

// Add stores job, replacing any job with the same ID
func (s *Jobs) Add(job *domain.GenerationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns the job with the given ID
func (s *Jobs) Get(id string) (*domain.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return job, nil
}

// Remove deletes the job with the given ID
func (s *Jobs) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	delete(s.jobs, id)
	return nil
}

// List returns every job, oldest first
func (s *Jobs) List() []*domain.GenerationJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*domain.GenerationJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Len returns the number of stored jobs
func (s *Jobs) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
