package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universal-vectorizer/internal/checkpoint"
	"universal-vectorizer/internal/chunking"
	"universal-vectorizer/internal/extractors"
	"universal-vectorizer/internal/handlers"
	"universal-vectorizer/internal/jobs"
	"universal-vectorizer/internal/logging"
	"universal-vectorizer/internal/models"
	"universal-vectorizer/internal/pipeline"
	"universal-vectorizer/internal/preprocess"
	"universal-vectorizer/internal/routes"
	"universal-vectorizer/internal/services"
	"universal-vectorizer/internal/storage"
)

type stubBackend struct{}

func (stubBackend) Embed(ctx context.Context, texts []string) ([]models.EmbeddingResult, error) {
	results := make([]models.EmbeddingResult, len(texts))
	for i := range texts {
		results[i] = models.EmbeddingResult{Vector: []float32{1}, Model: "stub-model"}
	}
	return results, nil
}

func (stubBackend) Model() string { return "stub-model" }

type stubStore struct {
	matches []models.Match
}

func (s *stubStore) Upsert(ctx context.Context, records []models.VectorRecord) error { return nil }
func (s *stubStore) Query(ctx context.Context, vector []float32, topK int, filters map[string]interface{}) ([]models.Match, error) {
	if topK > len(s.matches) {
		topK = len(s.matches)
	}
	return s.matches[:topK], nil
}
func (s *stubStore) Delete(ctx context.Context, ids []string) error { return nil }
func (s *stubStore) Close() error                                   { return nil }

type fixture struct {
	router    http.Handler
	manager   *jobs.Manager
	ingestion *services.IngestionService
	store     *stubStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chunker, err := chunking.NewHybridChunker(10, 0)
	require.NoError(t, err)
	checkpoints, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)
	uploads, err := storage.NewUploadStore(t.TempDir())
	require.NoError(t, err)

	manager := jobs.NewManager()
	store := &stubStore{}
	registry := extractors.DefaultRegistry(0)

	pipe := pipeline.New(pipeline.Params{
		Cleaner:      preprocess.NewCleaner(),
		Chunker:      chunker,
		Registry:     registry,
		URLExtractor: extractors.NewURLExtractor(time.Second),
		Primary:      stubBackend{},
		Store:        store,
		Checkpoints:  checkpoints,
		Manager:      manager,
		BatchSize:    2,
		MaxRetries:   1,
		RetryDelay:   time.Millisecond,
		Logger:       logging.Nop(),
	})

	ingestion := services.NewIngestionService(pipe, manager, 2, logging.Nop())
	search := services.NewSearchService(preprocess.NewCleaner(), stubBackend{}, store, logging.Nop())

	router := routes.NewRouter(routes.Handlers{
		Health: handlers.NewHealthHandler("universal-vectorizer"),
		Upload: handlers.NewUploadHandler(uploads, registry, logging.Nop()),
		Ingest: handlers.NewIngestHandler(ingestion, manager, logging.Nop()),
		Search: handlers.NewSearchHandler(search, logging.Nop()),
	})

	return &fixture{router: router, manager: manager, ingestion: ingestion, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestIngest_ValidatesBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/ingest", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/ingest", map[string]string{
		"file_path": "a.txt",
		"url":       "https://example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_FileJobLifecycle(t *testing.T) {
	f := newFixture(t)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world from a file"), 0o644))

	rec := f.do(t, http.MethodPost, "/ingest", handlers.IngestRequest{FilePath: path})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp handlers.IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)

	f.ingestion.Wait()

	rec = f.do(t, http.MethodGet, "/ingest/"+resp.JobID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.JobStateCompleted, status.State)

	rec = f.do(t, http.MethodGet, "/ingest/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestJobStatus_UnknownJob(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/ingest/nope/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_RequiresQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/search", handlers.SearchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ReturnsMatches(t *testing.T) {
	f := newFixture(t)
	f.store.matches = []models.Match{
		{ID: "doc-chunk-0", Score: 0.12, Text: "hello"},
	}

	rec := f.do(t, http.MethodPost, "/search", handlers.SearchRequest{Query: "hello", TopK: 3})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "doc-chunk-0", resp.Matches[0].ID)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUpload_StoresFile(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, "notes.md", "# heading")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp handlers.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "notes.md", resp.Filename)
	assert.True(t, strings.HasSuffix(resp.FilePath, "_notes.md"))

	data, err := os.ReadFile(resp.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "# heading", string(data))
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)

	body, contentType := multipartBody(t, "song.mp3", "data")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
