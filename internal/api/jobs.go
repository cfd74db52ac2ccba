package api

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/domain"
)

// JobStatus is the lifecycle state of an asynchronous analysis job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one asynchronous analysis from upload to result.
type Job struct {
	ID        string                 `json:"job_id"`
	Status    JobStatus              `json:"status"`
	PatientID string                 `json:"patient_id"`
	Filename  string                 `json:"filename"`
	Mode      domain.Mode            `json:"mode"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Error     string                 `json:"error,omitempty"`
	Result    *domain.AnalysisResult `json:"-"`

	// tempDir holds the uploaded file until the job is reaped.
	tempDir string
	vcfPath string
}

// JobStore is an in-memory registry of analysis jobs with TTL-based
// cleanup of finished jobs and their upload directories.
type JobStore struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	ttl    time.Duration
	logger *logrus.Logger
}

// NewJobStore creates a job store. Jobs older than ttl are removed by
// the reaper.
func NewJobStore(ttl time.Duration, logger *logrus.Logger) *JobStore {
	return &JobStore{
		jobs:   make(map[string]*Job),
		ttl:    ttl,
		logger: logger,
	}
}

// Create registers a new processing job for an uploaded file.
func (s *JobStore) Create(patientID, filename string, mode domain.Mode, tempDir, vcfPath string) *Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobProcessing,
		PatientID: patientID,
		Filename:  filename,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
		tempDir:   tempDir,
		vcfPath:   vcfPath,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job
}

// Get returns a snapshot of a job.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Complete marks a job as finished with its result.
func (s *JobStore) Complete(id string, result *domain.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobCompleted
		job.Result = result
		job.UpdatedAt = time.Now()
	}
}

// Fail marks a job as failed with an error message.
func (s *JobStore) Fail(id string, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobFailed
		job.Error = message
		job.UpdatedAt = time.Now()
	}
}

// Delete removes a job and its upload directory.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	if ok && job.tempDir != "" {
		os.RemoveAll(job.tempDir)
	}
	return ok
}

// StartReaper periodically removes jobs older than the store TTL,
// until the context is cancelled.
func (s *JobStore) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reap(time.Now())
			}
		}
	}()
}

func (s *JobStore) reap(now time.Time) {
	s.mu.Lock()
	var expired []*Job
	for id, job := range s.jobs {
		if now.Sub(job.CreatedAt) > s.ttl {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		if job.tempDir != "" {
			os.RemoveAll(job.tempDir)
		}
		s.logger.WithField("job_id", job.ID).Info("Cleaned up expired analysis job")
	}
}

// Close removes every job's upload directory. Called on shutdown.
func (s *JobStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.tempDir != "" {
			os.RemoveAll(job.tempDir)
		}
	}
	s.jobs = make(map[string]*Job)
}
