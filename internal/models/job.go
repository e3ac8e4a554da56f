package models

import (
	"time"
)

// JobKind identifies what kind of source a job ingests
type JobKind string

const (
	JobKindFile JobKind = "file"
	JobKindURL  JobKind = "url"
)

// JobState represents the current state of an ingestion job
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// IsValid checks if the job state is valid
func (s JobState) IsValid() bool {
	switch s {
	case JobStatePending, JobStateProcessing, JobStateCompleted, JobStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the state is a terminal state
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// String returns the string representation of the job state
func (s JobState) String() string {
	return string(s)
}

// JobStatus tracks the lifecycle and progress of a single ingestion job.
// Timestamps are RFC 3339 in UTC. TotalChunks stays nil until the chunk
// count for the source is known.
type JobStatus struct {
	JobID           string   `json:"job_id"`
	Kind            JobKind  `json:"kind"`
	Source          string   `json:"source"`
	State           JobState `json:"state"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	ProcessedChunks int      `json:"processed_chunks"`
	TotalChunks     *int     `json:"total_chunks"`
	LastMessage     *string  `json:"last_message"`
	Errors          []string `json:"errors"`
}

// NewJobStatus creates a pending job status with creation timestamps set
func NewJobStatus(jobID string, kind JobKind, source string) *JobStatus {
	now := NowRFC3339()
	return &JobStatus{
		JobID:     jobID,
		Kind:      kind,
		Source:    source,
		State:     JobStatePending,
		CreatedAt: now,
		UpdatedAt: now,
		Errors:    []string{},
	}
}

// Snapshot returns a deep copy safe to hand to subscribers
func (j *JobStatus) Snapshot() JobStatus {
	copied := *j
	copied.Errors = make([]string, len(j.Errors))
	copy(copied.Errors, j.Errors)
	if j.TotalChunks != nil {
		total := *j.TotalChunks
		copied.TotalChunks = &total
	}
	if j.LastMessage != nil {
		msg := *j.LastMessage
		copied.LastMessage = &msg
	}
	return copied
}

// rfc3339Fixed is RFC 3339 with a fixed-width fractional second, so
// stored timestamps order lexicographically.
const rfc3339Fixed = "2006-01-02T15:04:05.000000000Z07:00"

// NowRFC3339 formats the current UTC time the way job timestamps are stored
func NowRFC3339() string {
	return time.Now().UTC().Format(rfc3339Fixed)
}
