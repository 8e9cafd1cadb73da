// Package jobs holds the in-memory registry of asynchronous batch jobs.
// The store owns every Job; callers only ever observe snapshots. State is
// volatile by design and resets on restart.
package jobs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toyscout/product-scraper/internal/models"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// terminal statuses are absorbing: no transition leaves them.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one asynchronous batch. results is pre-sized to the batch length;
// workers fill slots by original input index in whatever order they finish.
type Job struct {
	mu             sync.Mutex
	id             string
	status         Status
	results        []*models.ScrapeResult
	err            string
	createdAt      time.Time
	updatedAt      time.Time
	totalProducts  int
	originalInputs []models.ScrapeRequest
}

// Snapshot is a consistent, caller-owned copy of a Job's state. Absent
// result slots serialize as null.
type Snapshot struct {
	JobID            string                  `json:"job_id"`
	Status           Status                  `json:"status"`
	Results          []*models.ScrapeResult `json:"results"`
	Progress         int                     `json:"progress"`
	Error            string                  `json:"error,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	TotalProducts    int                     `json:"total_products"`
	OriginalProducts []models.ScrapeRequest  `json:"original_products"`
}

// snapshot copies the job under its lock.
func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	results := make([]*models.ScrapeResult, len(j.results))
	for i, r := range j.results {
		if r != nil {
			copied := *r
			results[i] = &copied
		}
	}

	inputs := make([]models.ScrapeRequest, len(j.originalInputs))
	copy(inputs, j.originalInputs)

	return Snapshot{
		JobID:            j.id,
		Status:           j.status,
		Results:          results,
		Progress:         j.progressLocked(),
		Error:            j.err,
		CreatedAt:        j.createdAt,
		UpdatedAt:        j.updatedAt,
		TotalProducts:    j.totalProducts,
		OriginalProducts: inputs,
	}
}

// progressLocked is the percentage of filled result slots, rounded down;
// an empty batch is complete by definition. Callers hold j.mu.
func (j *Job) progressLocked() int {
	if j.totalProducts == 0 {
		return 100
	}
	filled := 0
	for _, r := range j.results {
		if r != nil {
			filled++
		}
	}
	return filled * 100 / j.totalProducts
}

// Store is the process-wide job registry. The map is guarded by a coarse
// RWMutex; each Job guards its own fields so result writes from concurrent
// workers never contend on the map lock.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		jobs:   make(map[string]*Job),
		logger: logger.With("component", "job_store"),
		now:    time.Now,
	}
}

// Create allocates a pending job with a fresh id and one absent result slot
// per input.
func (s *Store) Create(inputs []models.ScrapeRequest) Snapshot {
	snapshot := make([]models.ScrapeRequest, len(inputs))
	copy(snapshot, inputs)

	now := s.now()
	job := &Job{
		id:             uuid.New().String(),
		status:         StatusPending,
		results:        make([]*models.ScrapeResult, len(inputs)),
		createdAt:      now,
		updatedAt:      now,
		totalProducts:  len(inputs),
		originalInputs: snapshot,
	}

	s.mu.Lock()
	s.jobs[job.id] = job
	s.mu.Unlock()

	s.logger.Info("job created", "id", job.id, "total", job.totalProducts)
	return job.snapshot()
}

// Get returns a snapshot of the job, or false when the id is unknown.
func (s *Store) Get(jobID string) (Snapshot, bool) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return job.snapshot(), true
}

// Delete removes the job outright. Returns false when the id is unknown.
func (s *Store) Delete(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return false
	}
	delete(s.jobs, jobID)
	s.logger.Info("job deleted", "id", jobID)
	return true
}

// Len reports the number of stored jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// SetResult writes one result slot and bumps updatedAt. Safe under
// concurrent calls for the same job on different indices.
func (s *Store) SetResult(jobID string, index int, result models.ScrapeResult) error {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	if index < 0 || index >= len(job.results) {
		return fmt.Errorf("result index %d out of range for job %s (total %d)", index, jobID, len(job.results))
	}
	job.results[index] = &result
	job.updatedAt = s.now()
	return nil
}

// SetStatus advances the job's lifecycle. Terminal states absorb: a
// completed or failed job never transitions again.
func (s *Store) SetStatus(jobID string, status Status, errMsg string) error {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.status.terminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.status)
	}
	job.status = status
	job.updatedAt = s.now()
	if errMsg != "" {
		job.err = errMsg
	}
	s.logger.Info("job status", "id", jobID, "status", status)
	return nil
}

// Reap deletes every job whose updatedAt predates now minus maxAge and
// returns how many were removed.
func (s *Store) Reap(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		stale := job.updatedAt.Before(cutoff)
		job.mu.Unlock()
		if stale {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("reaped stale jobs", "count", removed)
	}
	return removed
}
