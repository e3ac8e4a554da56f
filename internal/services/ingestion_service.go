package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"universal-vectorizer/internal/jobs"
	"universal-vectorizer/internal/models"
	"universal-vectorizer/internal/pipeline"
)

// IngestionService accepts ingestion requests and runs them in the
// background, bounded by a concurrency semaphore. Submission always
// returns immediately with a job ID; progress is observed through the
// job manager.
type IngestionService struct {
	pipeline *pipeline.Pipeline
	manager  *jobs.Manager
	sem      *semaphore.Weighted
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// NewIngestionService creates the service with the given concurrency cap
func NewIngestionService(p *pipeline.Pipeline, manager *jobs.Manager, concurrency int, logger zerolog.Logger) *IngestionService {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &IngestionService{
		pipeline: p,
		manager:  manager,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		logger:   logger,
	}
}

// IngestFile schedules ingestion of a local file and returns the job ID
func (s *IngestionService) IngestFile(path string, metadata map[string]string) string {
	return s.submit(models.JobKindFile, path, metadata)
}

// IngestURL schedules ingestion of a web page and returns the job ID
func (s *IngestionService) IngestURL(url string, metadata map[string]string) string {
	return s.submit(models.JobKindURL, url, metadata)
}

func (s *IngestionService) submit(kind models.JobKind, source string, metadata map[string]string) string {
	jobID := uuid.NewString()
	s.manager.Create(jobID, kind, source)

	s.logger.Info().Str("job_id", jobID).Str("kind", string(kind)).
		Str("source", source).Msg("ingestion job queued")

	s.wg.Add(1)
	go s.run(jobID, kind, source, metadata)
	return jobID
}

// run is the only place ingestion errors are recorded: the pipeline
// propagates them, the job manager keeps them.
func (s *IngestionService) run(jobID string, kind models.JobKind, source string, metadata map[string]string) {
	defer s.wg.Done()
	ctx := context.Background()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		_ = s.manager.Fail(jobID, err.Error())
		return
	}
	defer s.sem.Release(1)

	_ = s.manager.Update(jobID, models.JobStateProcessing, "Starting ingestion")

	if err := s.pipeline.Run(ctx, jobID, kind, source, metadata); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("ingestion failed")
		_ = s.manager.Fail(jobID, err.Error())
		return
	}

	s.logger.Info().Str("job_id", jobID).Msg("ingestion complete")
	_ = s.manager.Succeed(jobID, "Ingestion complete")
}

// Wait blocks until all in-flight jobs finish. Used on shutdown and in
// tests.
func (s *IngestionService) Wait() {
	s.wg.Wait()
}
