package tasks

import (
	"sync"

	"github.com/desertthunder/spx/internal/models"
)

// JobStore abstracts export job persistence.
//
// Implementations must be safe for concurrent use: the engine's background
// writer mutates jobs through Update while HTTP and TUI readers poll through
// Get.
type JobStore interface {
	// Put registers a job under its id, replacing any prior record.
	Put(job *models.ExportJob)

	// Get returns a snapshot of the job, or false when the id is unknown.
	Get(jobID string) (models.ExportJob, bool)

	// Update applies fn to the stored job under the store's lock.
	// No-op when the id is unknown.
	Update(jobID string, fn func(*models.ExportJob))

	// Delete removes the job. No-op when the id is unknown.
	Delete(jobID string)
}

// MemoryJobStore is an in-process JobStore backed by a mutex-guarded map.
//
// Jobs are not durable: a process restart forgets all in-flight and completed
// exports, which matches the retention model (artifacts expire minutes after
// completion anyway).
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.ExportJob
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*models.ExportJob)}
}

func (s *MemoryJobStore) Put(job *models.ExportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *MemoryJobStore) Get(jobID string) (models.ExportJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return models.ExportJob{}, false
	}
	return job.Snapshot(), true
}

func (s *MemoryJobStore) Update(jobID string, fn func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		fn(job)
	}
}

func (s *MemoryJobStore) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// Len returns the number of stored jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
