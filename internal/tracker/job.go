package tracker

import (
	"sort"
	"sync"
	"time"

	"mangatrack/internal/notify"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one tracking run. It lives only in memory, is owned by the service
// goroutine that executes it, and is read through Table snapshots.
type Job struct {
	ID                string
	Status            Status
	StartedAt         *time.Time
	CompletedAt       *time.Time
	TotalMappings     int
	ProcessedMappings int
	NewChaptersFound  int
	Errors            []string

	// buffered payloads for the completion notification
	pending []notify.NewChapter
}

// transition moves the job to s unless it is already terminal. completed and
// failed are final.
func (j *Job) transition(s Status) bool {
	if j.Status == StatusCompleted || j.Status == StatusFailed {
		return false
	}
	j.Status = s
	return true
}

// JobStatus is the externally visible snapshot of a job.
type JobStatus struct {
	JobID             string     `json:"job_id"`
	Status            Status     `json:"status"`
	StartedAt         *time.Time `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at"`
	TotalMappings     int        `json:"total_mappings"`
	ProcessedMappings int        `json:"processed_mappings"`
	NewChaptersFound  int        `json:"new_chapters_found"`
	Errors            []string   `json:"errors"`
}

// JobSummary is the listing row.
type JobSummary struct {
	JobID            string     `json:"job_id"`
	Status           Status     `json:"status"`
	StartedAt        *time.Time `json:"started_at"`
	NewChaptersFound int        `json:"new_chapters_found"`
}

// Table is the in-memory job store. Jobs are created and mutated from
// different goroutines, so every access goes through the mutex; mutation is
// only ever performed by the goroutine running the job, reads come from HTTP
// handlers.
type Table struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewTable() *Table {
	return &Table{jobs: make(map[string]*Job)}
}

func (t *Table) Create(id string) {
	t.mu.Lock()
	t.jobs[id] = &Job{ID: id, Status: StatusPending}
	t.mu.Unlock()
}

// Update applies fn to the job under the table lock. fn must not block.
func (t *Table) Update(id string, fn func(*Job)) {
	t.mu.Lock()
	if j, ok := t.jobs[id]; ok {
		fn(j)
	}
	t.mu.Unlock()
}

// takePending drains the buffered notification payloads for a job.
func (t *Table) takePending(id string) []notify.NewChapter {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok {
		return nil
	}
	pending := j.pending
	j.pending = nil
	return pending
}

func (t *Table) Status(id string) (JobStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return snapshot(j), true
}

// List returns up to limit job summaries, newest start time first. Jobs that
// have not started yet sort last.
func (t *Table) List(limit int) []JobSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool {
		ti, tk := startedOrZero(all[i]), startedOrZero(all[k])
		if ti.Equal(tk) {
			return all[i].ID < all[k].ID
		}
		return ti.After(tk)
	})

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]JobSummary, 0, limit)
	for _, j := range all[:limit] {
		out = append(out, JobSummary{
			JobID:            j.ID,
			Status:           j.Status,
			StartedAt:        copyTime(j.StartedAt),
			NewChaptersFound: j.NewChaptersFound,
		})
	}
	return out
}

func snapshot(j *Job) JobStatus {
	errs := make([]string, len(j.Errors))
	copy(errs, j.Errors)
	return JobStatus{
		JobID:             j.ID,
		Status:            j.Status,
		StartedAt:         copyTime(j.StartedAt),
		CompletedAt:       copyTime(j.CompletedAt),
		TotalMappings:     j.TotalMappings,
		ProcessedMappings: j.ProcessedMappings,
		NewChaptersFound:  j.NewChaptersFound,
		Errors:            errs,
	}
}

func startedOrZero(j *Job) time.Time {
	if j.StartedAt == nil {
		return time.Time{}
	}
	return *j.StartedAt
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
