package jobs

import (
	"fmt"
	"sort"
	"sync"

	"universal-vectorizer/internal/models"
)

// Manager tracks every ingestion job and fans progress updates out to
// subscribers. All state lives in memory; job history does not survive a
// restart, but checkpoints do, so interrupted work can still resume under
// a fresh job.
type Manager struct {
	mu     sync.Mutex
	jobs   map[string]*models.JobStatus
	subs   map[string][]*Subscription
	nextID uint64
}

// Subscription is one subscriber's view of a job. Updates are delivered
// as snapshots on a buffered channel; when the subscriber falls behind,
// the oldest buffered snapshot is dropped in favor of the newest rather
// than blocking ingestion.
type Subscription struct {
	jobID string
	id    uint64
	ch    chan models.JobStatus
}

// Updates returns the snapshot channel
func (s *Subscription) Updates() <-chan models.JobStatus {
	return s.ch
}

// JobNotFoundError reports an operation against an unknown job ID
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// NewManager creates an empty job manager
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*models.JobStatus),
		subs: make(map[string][]*Subscription),
	}
}

// Create registers a new pending job and returns its initial snapshot
func (m *Manager) Create(jobID string, kind models.JobKind, source string) models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := models.NewJobStatus(jobID, kind, source)
	m.jobs[jobID] = status
	return status.Snapshot()
}

// Get returns a snapshot of the job, if it exists
func (m *Manager) Get(jobID string) (models.JobStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.jobs[jobID]
	if !ok {
		return models.JobStatus{}, false
	}
	return status.Snapshot(), true
}

// List returns snapshots of all jobs, newest first
func (m *Manager) List() []models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.JobStatus, 0, len(m.jobs))
	for _, status := range m.jobs {
		out = append(out, status.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].JobID > out[j].JobID
	})
	return out
}

// Update moves a job to a new state with a progress message
func (m *Manager) Update(jobID string, state models.JobState, message string) error {
	if !state.IsValid() {
		return fmt.Errorf("invalid job state: %q", state)
	}
	return m.mutate(jobID, func(status *models.JobStatus) {
		status.State = state
		status.LastMessage = &message
	})
}

// SetTotalChunks records the total chunk count once it is known
func (m *Manager) SetTotalChunks(jobID string, total int) error {
	return m.mutate(jobID, func(status *models.JobStatus) {
		status.TotalChunks = &total
	})
}

// IncrementChunks advances the processed-chunk counter
func (m *Manager) IncrementChunks(jobID string, n int) error {
	return m.mutate(jobID, func(status *models.JobStatus) {
		status.ProcessedChunks += n
	})
}

// Succeed marks a job completed
func (m *Manager) Succeed(jobID, message string) error {
	return m.mutate(jobID, func(status *models.JobStatus) {
		status.State = models.JobStateCompleted
		status.LastMessage = &message
	})
}

// Fail marks a job failed and records the error
func (m *Manager) Fail(jobID, errMsg string) error {
	return m.mutate(jobID, func(status *models.JobStatus) {
		status.State = models.JobStateFailed
		status.Errors = append(status.Errors, errMsg)
		status.LastMessage = &errMsg
	})
}

// Subscribe registers for updates on a job. The current snapshot is
// seeded into the channel immediately so late subscribers see the
// present state without waiting for the next mutation.
func (m *Manager) Subscribe(jobID string, capacity int) (*Subscription, error) {
	if capacity < 1 {
		capacity = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.jobs[jobID]
	if !ok {
		return nil, &JobNotFoundError{JobID: jobID}
	}

	m.nextID++
	sub := &Subscription{
		jobID: jobID,
		id:    m.nextID,
		ch:    make(chan models.JobStatus, capacity),
	}
	m.subs[jobID] = append(m.subs[jobID], sub)

	sub.ch <- status.Snapshot()
	return sub, nil
}

// Unsubscribe removes a subscription and closes its channel
func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.subs[sub.jobID]
	for i, entry := range entries {
		if entry.id == sub.id {
			entries = append(entries[:i], entries[i+1:]...)
			close(entry.ch)
			break
		}
	}
	if len(entries) == 0 {
		delete(m.subs, sub.jobID)
	} else {
		m.subs[sub.jobID] = entries
	}
}

// mutate applies fn under the lock, stamps updated_at and broadcasts
func (m *Manager) mutate(jobID string, fn func(*models.JobStatus)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.jobs[jobID]
	if !ok {
		return &JobNotFoundError{JobID: jobID}
	}

	fn(status)
	status.UpdatedAt = models.NowRFC3339()

	snapshot := status.Snapshot()
	for _, sub := range m.subs[jobID] {
		// Slow subscribers miss intermediate updates instead of
		// stalling the pipeline. On a full queue the oldest buffered
		// snapshot is evicted so the newest state is always the one
		// waiting when the subscriber catches up.
		select {
		case sub.ch <- snapshot:
			continue
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snapshot:
		default:
		}
	}
	return nil
}
