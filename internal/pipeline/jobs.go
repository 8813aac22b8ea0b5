package pipeline

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docsplit/internal/docerr"
)

// JobStatus represents the state of a split job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusValidating JobStatus = "validating"
	StatusSplitting  JobStatus = "splitting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single split request.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	PageCount   int         `json:"page_count"`
	ErrorKind   docerr.Kind `json:"error_kind,omitempty"`
	ContentHash string      `json:"content_hash,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Internal: not serialized.
	pdfData    []byte
	configData []byte
	outputDir  string
	errors     []string
}

// Progress tracks how many partitions have been written.
type Progress struct {
	TotalPartitions   int      `json:"total_partitions"`
	PartitionsWritten int      `json:"partitions_written"`
	Files             []string `json:"files"`
	Errors            []string `json:"errors"`
}

// NewJob returns a queued job with a fresh ID.
func NewJob(filename string, pdfData, configData []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(pdfData),
		CreatedAt:   now,
		UpdatedAt:   now,
		pdfData:     pdfData,
		configData:  configData,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs and returns them so their outputs can be
// removed.
func (s *JobStore) Cleanup() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired []*Job
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	return expired
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed and records err with its kind.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Phase = phase
	j.ErrorKind = docerr.KindOf(err)
	j.errors = append(j.errors, err.Error())
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPageCount records the input document's page count.
func (j *Job) SetPageCount(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PageCount = n
	j.UpdatedAt = time.Now()
}

// SetTotalPartitions records how many files the job will produce.
func (j *Job) SetTotalPartitions(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalPartitions = n
	j.UpdatedAt = time.Now()
}

// AddFile records a written partition by its base name.
func (j *Job) AddFile(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Files = append(j.Progress.Files, filepath.Base(path))
	j.Progress.PartitionsWritten++
	j.UpdatedAt = time.Now()
}

// HasFile reports whether name is one of the job's written partitions.
func (j *Job) HasFile(name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, f := range j.Progress.Files {
		if f == name {
			return true
		}
	}
	return false
}

// Inputs returns the uploaded PDF and configuration bytes.
func (j *Job) Inputs() (pdf, cfg []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pdfData, j.configData
}

// releaseInputs drops the uploaded bytes once the job no longer needs them.
func (j *Job) releaseInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pdfData = nil
	j.configData = nil
}

// SetOutputDir records where the job's partitions are written.
func (j *Job) SetOutputDir(dir string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outputDir = dir
}

// OutputDir returns the job's output directory, or "" before it is set.
func (j *Job) OutputDir() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outputDir
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string      `json:"job_id"`
	Status      JobStatus   `json:"status"`
	Phase       string      `json:"phase"`
	Filename    string      `json:"filename"`
	PageCount   int         `json:"page_count"`
	ErrorKind   docerr.Kind `json:"error_kind,omitempty"`
	ContentHash string      `json:"content_hash,omitempty"`
	Progress    Progress    `json:"progress"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	files := append([]string{}, j.Progress.Files...)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		PageCount:   j.PageCount,
		ErrorKind:   j.ErrorKind,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TotalPartitions:   j.Progress.TotalPartitions,
			PartitionsWritten: j.Progress.PartitionsWritten,
			Files:             files,
			Errors:            errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
