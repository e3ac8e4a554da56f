package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universal-vectorizer/internal/checkpoint"
	"universal-vectorizer/internal/chunking"
	"universal-vectorizer/internal/extractors"
	"universal-vectorizer/internal/jobs"
	"universal-vectorizer/internal/logging"
	"universal-vectorizer/internal/models"
	"universal-vectorizer/internal/pipeline"
	"universal-vectorizer/internal/preprocess"
)

type stubBackend struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (b *stubBackend) Embed(ctx context.Context, texts []string) ([]models.EmbeddingResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	results := make([]models.EmbeddingResult, len(texts))
	for i := range texts {
		results[i] = models.EmbeddingResult{Vector: []float32{1, 2, 3}, Model: "stub-model"}
	}
	return results, nil
}

func (b *stubBackend) Model() string { return "stub-model" }

type stubStore struct {
	mu      sync.Mutex
	records map[string]models.VectorRecord
	matches []models.Match
	lastK   int
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[string]models.VectorRecord)}
}

func (s *stubStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.records[record.ID] = record
	}
	return nil
}

func (s *stubStore) Query(ctx context.Context, vector []float32, topK int, filters map[string]interface{}) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastK = topK
	if topK > len(s.matches) {
		topK = len(s.matches)
	}
	return s.matches[:topK], nil
}

func (s *stubStore) Delete(ctx context.Context, ids []string) error { return nil }
func (s *stubStore) Close() error                                   { return nil }

func newIngestionHarness(t *testing.T) (*IngestionService, *jobs.Manager, checkpoint.Store, *stubStore) {
	t.Helper()

	chunker, err := chunking.NewHybridChunker(10, 0)
	require.NoError(t, err)
	checkpoints, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	manager := jobs.NewManager()
	store := newStubStore()

	p := pipeline.New(pipeline.Params{
		Cleaner:      preprocess.NewCleaner(),
		Chunker:      chunker,
		Registry:     extractors.DefaultRegistry(0),
		URLExtractor: extractors.NewURLExtractor(time.Second),
		Primary:      &stubBackend{},
		Store:        store,
		Checkpoints:  checkpoints,
		Manager:      manager,
		BatchSize:    2,
		MaxRetries:   1,
		RetryDelay:   time.Millisecond,
		Logger:       logging.Nop(),
	})

	return NewIngestionService(p, manager, 2, logging.Nop()), manager, checkpoints, store
}

func TestIngestFile_ReturnsImmediatelyAndCompletes(t *testing.T) {
	svc, manager, _, store := newIngestionHarness(t)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("aaaaaaaaaabbbbbbbbbb"), 0o644))

	jobID := svc.IngestFile(path, map[string]string{"owner": "tests"})
	require.NotEmpty(t, jobID)

	status, ok := manager.Get(jobID)
	require.True(t, ok, "job must exist before the work finishes")
	assert.Contains(t, []models.JobState{models.JobStatePending, models.JobStateProcessing, models.JobStateCompleted}, status.State)

	svc.Wait()

	status, _ = manager.Get(jobID)
	assert.Equal(t, models.JobStateCompleted, status.State)
	require.NotNil(t, status.LastMessage)
	assert.Equal(t, "Ingestion complete", *status.LastMessage)
	assert.Equal(t, 2, status.ProcessedChunks)
	assert.Len(t, store.records, 2)
}

func TestIngestFile_UnsupportedSuffixFailsTheJob(t *testing.T) {
	svc, manager, checkpoints, store := newIngestionHarness(t)

	path := filepath.Join(t.TempDir(), "audio.xyz")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	jobID := svc.IngestFile(path, nil)
	svc.Wait()

	status, ok := manager.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, models.JobStateFailed, status.State)
	require.NotEmpty(t, status.Errors)
	assert.Contains(t, status.Errors[0], ".xyz")
	assert.Empty(t, store.records)

	snap, err := checkpoints.Load(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.ChunksProcessed, "no checkpoint may be left behind")
}

func TestIngestFile_SubscriberSeesTerminalState(t *testing.T) {
	svc, manager, _, _ := newIngestionHarness(t)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	jobID := svc.IngestFile(path, nil)
	sub, err := manager.Subscribe(jobID, 16)
	require.NoError(t, err)
	defer manager.Unsubscribe(sub)

	svc.Wait()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case status := <-sub.Updates():
			if status.State.IsTerminal() {
				assert.Equal(t, models.JobStateCompleted, status.State)
				return
			}
		case <-deadline:
			t.Fatal("no terminal snapshot delivered before the deadline")
			return
		}
	}
}

func TestSearch_OverfetchesAndSlices(t *testing.T) {
	store := newStubStore()
	store.matches = []models.Match{
		{ID: "a", Score: 0.1}, {ID: "b", Score: 0.2}, {ID: "c", Score: 0.3},
		{ID: "d", Score: 0.4}, {ID: "e", Score: 0.5},
	}
	svc := NewSearchService(preprocess.NewCleaner(), &stubBackend{}, store, logging.Nop())

	matches, err := svc.Search(context.Background(), "  what is\tthe risk  ", 2, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, store.lastK, "must fetch topK+offset")
	require.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)
}

func TestSearch_EmptyQueryIsRejected(t *testing.T) {
	backend := &stubBackend{}
	svc := NewSearchService(preprocess.NewCleaner(), backend, newStubStore(), logging.Nop())

	_, err := svc.Search(context.Background(), "   \t  ", 5, 0, nil)
	require.Error(t, err)
	assert.Equal(t, 0, backend.calls, "no embedding call for an empty query")
}

func TestSearch_OffsetPastEndReturnsEmpty(t *testing.T) {
	store := newStubStore()
	store.matches = []models.Match{{ID: "a"}}
	svc := NewSearchService(preprocess.NewCleaner(), &stubBackend{}, store, logging.Nop())

	matches, err := svc.Search(context.Background(), "query", 5, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_BackendErrorPropagates(t *testing.T) {
	backend := &stubBackend{err: errors.New("backend down")}
	svc := NewSearchService(preprocess.NewCleaner(), backend, newStubStore(), logging.Nop())

	_, err := svc.Search(context.Background(), "query", 5, 0, nil)
	assert.ErrorContains(t, err, "backend down")
}
