package pipeline

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docbind/internal/assemble"
	"github.com/dgallion1/docbind/internal/index"
)

// JobStatus represents the state of a generate job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusNormalizing JobStatus = assemble.PhaseNormalizing
	StatusIndexing    JobStatus = assemble.PhaseIndexing
	StatusMerging     JobStatus = assemble.PhaseMerging
	StatusAssembling  JobStatus = assemble.PhaseAssembling
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions follow.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks the state of a single bundle generation.
type Job struct {
	mu sync.Mutex

	ID          string `json:"job_id"`
	WorkspaceID string `json:"workspace_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	Format string    `json:"format"`
	Title  string    `json:"title"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	result *assemble.Result
	errors []string
}

// Progress tracks processing progress. Failures are keyed by listing id.
type Progress struct {
	TotalListings int               `json:"total_listings"`
	Normalized    int               `json:"normalized"`
	Failures      map[string]string `json:"failures"`
	Errors        []string          `json:"errors"`
}

// NewJob returns a queued job for a workspace.
func NewJob(workspaceID, format, title string) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Status:      StatusQueued,
		Phase:       "queued",
		Format:      format,
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
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

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
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

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalListings records how many listings the job normalizes.
func (j *Job) SetTotalListings(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalListings = n
	j.UpdatedAt = time.Now()
}

// ListingDone counts one finished listing; a non-nil err is recorded as
// that listing's failure.
func (j *Job) ListingDone(listingID int64, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Normalized++
	if err != nil {
		if j.Progress.Failures == nil {
			j.Progress.Failures = make(map[string]string)
		}
		j.Progress.Failures[strconv.FormatInt(listingID, 10)] = err.Error()
	}
	j.UpdatedAt = time.Now()
}

// Complete stores the generated bundle and marks the job completed.
func (j *Job) Complete(res *assemble.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Result returns the generated bundle, or nil until the job completes.
func (j *Job) Result() *assemble.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	WorkspaceID string    `json:"workspace_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Format      string    `json:"format"`
	Title       string    `json:"title"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Set once completed.
	Document *DocumentInfo `json:"document,omitempty"`
}

// DocumentInfo describes a completed bundle without its bytes.
type DocumentInfo struct {
	FileName    string      `json:"file_name"`
	ContentType string      `json:"content_type"`
	Size        int         `json:"size"`
	IndexPages  int         `json:"index_pages"`
	PageNumbers []int       `json:"page_numbers"`
	Index       index.Table `json:"index"`
	Skipped     []int64     `json:"skipped"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	failures := make(map[string]string, len(j.Progress.Failures))
	for k, v := range j.Progress.Failures {
		failures[k] = v
	}
	snap := JobSnapshot{
		ID:          j.ID,
		WorkspaceID: j.WorkspaceID,
		Status:      j.Status,
		Phase:       j.Phase,
		Format:      j.Format,
		Title:       j.Title,
		Progress: Progress{
			TotalListings: j.Progress.TotalListings,
			Normalized:    j.Progress.Normalized,
			Failures:      failures,
			Errors:        errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if r := j.result; r != nil {
		skipped := r.Skipped
		if skipped == nil {
			skipped = []int64{}
		}
		snap.Document = &DocumentInfo{
			FileName:    r.FileName,
			ContentType: r.ContentType,
			Size:        len(r.Document),
			IndexPages:  r.IndexPages,
			PageNumbers: r.PageNumbers,
			Index:       r.Index,
			Skipped:     skipped,
		}
	}
	return snap
}
