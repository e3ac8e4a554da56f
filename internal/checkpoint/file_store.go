package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per job under a checkpoint directory.
// Writes go through a temp file in the same directory followed by a
// rename, so a crash mid-write never leaves a truncated checkpoint.
type FileStore struct {
	dir string
}

// NewFileStore creates the checkpoint directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Job IDs are UUIDs, but sanitize anyway so a crafted ID cannot escape
// the checkpoint directory.
func sanitizeJobID(jobID string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(jobID)
}

func (s *FileStore) path(jobID string) string {
	return filepath.Join(s.dir, sanitizeJobID(jobID)+".json")
}

// Load reads the snapshot for jobID. A missing file yields a zero
// snapshot; an unreadable or corrupt file is an error.
func (s *FileStore) Load(ctx context.Context, jobID string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	data, err := os.ReadFile(s.path(jobID))
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, NewCheckpointError("load", jobID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, NewCheckpointError("load", jobID, err)
	}
	return snap, nil
}

// Write atomically replaces the snapshot for jobID
func (s *FileStore) Write(ctx context.Context, jobID string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return NewCheckpointError("write", jobID, err)
	}

	tmp, err := os.CreateTemp(s.dir, sanitizeJobID(jobID)+".*.tmp")
	if err != nil {
		return NewCheckpointError("write", jobID, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return NewCheckpointError("write", jobID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return NewCheckpointError("write", jobID, err)
	}
	if err := os.Rename(tmpName, s.path(jobID)); err != nil {
		os.Remove(tmpName)
		return NewCheckpointError("write", jobID, err)
	}
	return nil
}

// Delete removes the snapshot for jobID; deleting a missing one is a no-op
func (s *FileStore) Delete(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return NewCheckpointError("delete", jobID, err)
	}
	return nil
}
