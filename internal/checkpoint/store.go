package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is the persisted progress of an ingestion job. ChunksProcessed
// is the number of chunks confirmed written to the vector store. Unknown
// keys found in a stored snapshot are surfaced in Extra on load so callers
// can inspect them, but only the known keys are ever written back.
type Snapshot struct {
	ChunksProcessed int
	Extra           map[string]json.RawMessage
}

// MarshalJSON emits the known keys only
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{"chunks_processed": s.ChunksProcessed})
}

// UnmarshalJSON reads chunks_processed and stashes every other key in Extra
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["chunks_processed"]; ok {
		if err := json.Unmarshal(v, &s.ChunksProcessed); err != nil {
			return err
		}
		delete(raw, "chunks_processed")
	}
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// Store persists per-job ingestion progress so interrupted jobs can resume
// without re-embedding chunks that already reached the vector store.
//
// Load returns a zero snapshot (not an error) when no checkpoint exists.
// Delete is idempotent.
type Store interface {
	Load(ctx context.Context, jobID string) (Snapshot, error)
	Write(ctx context.Context, jobID string, snap Snapshot) error
	Delete(ctx context.Context, jobID string) error
}

// CheckpointError represents an error during checkpoint persistence
type CheckpointError struct {
	Operation string
	JobID     string
	Err       error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for job %s: %v", e.Operation, e.JobID, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// NewCheckpointError creates a new checkpoint error
func NewCheckpointError(operation, jobID string, err error) *CheckpointError {
	return &CheckpointError{Operation: operation, JobID: jobID, Err: err}
}
