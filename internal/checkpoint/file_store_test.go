package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFileStore_LoadMissingReturnsZero(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.ChunksProcessed)
	assert.Nil(t, snap.Extra)
}

func TestFileStore_WriteThenLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "job-1", Snapshot{ChunksProcessed: 42}))

	snap, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 42, snap.ChunksProcessed)
}

func TestFileStore_WriteOverwritesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "job-1", Snapshot{ChunksProcessed: 10}))
	require.NoError(t, store.Write(ctx, "job-1", Snapshot{ChunksProcessed: 20}))

	snap, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 20, snap.ChunksProcessed)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "job-1", Snapshot{ChunksProcessed: 5}))
	require.NoError(t, store.Delete(ctx, "job-1"))
	require.NoError(t, store.Delete(ctx, "job-1"))

	snap, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.ChunksProcessed)
}

func TestFileStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-1.json"), []byte("{not json"), 0o644))

	_, err = store.Load(context.Background(), "job-1")
	require.Error(t, err)
	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "load", cpErr.Operation)
	assert.Equal(t, "job-1", cpErr.JobID)
}

func TestFileStore_UnknownKeysReadableButNotRewritten(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	raw := []byte(`{"chunks_processed": 7, "embedding_model": "text-embedding-3-large", "attempt": 3}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "job-1.json"), raw, 0o644))

	snap, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 7, snap.ChunksProcessed)
	assert.Contains(t, snap.Extra, "embedding_model")
	assert.Contains(t, snap.Extra, "attempt")

	snap.ChunksProcessed = 8
	require.NoError(t, store.Write(ctx, "job-1", snap))

	data, err := os.ReadFile(filepath.Join(dir, "job-1.json"))
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.JSONEq(t, `8`, string(decoded["chunks_processed"]))
	assert.NotContains(t, decoded, "embedding_model", "only known keys are written back")
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Write(ctx, "job-1", Snapshot{ChunksProcessed: i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "job-1.json", entries[0].Name())
}

func TestFileStore_JobIDCannotEscapeDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "../evil", Snapshot{ChunksProcessed: 1}))

	_, err = os.Stat(filepath.Join(dir, "..", "evil.json"))
	assert.True(t, os.IsNotExist(err))
}
