package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"universal-vectorizer/internal/checkpoint"
	"universal-vectorizer/internal/chunking"
	"universal-vectorizer/internal/embeddings"
	"universal-vectorizer/internal/extractors"
	"universal-vectorizer/internal/jobs"
	"universal-vectorizer/internal/models"
	"universal-vectorizer/internal/preprocess"
	"universal-vectorizer/internal/vectordb"
)

// Params wires the pipeline's collaborators and tuning knobs
type Params struct {
	Cleaner      *preprocess.Cleaner
	Chunker      *chunking.HybridChunker
	Registry     *extractors.Registry
	URLExtractor *extractors.URLExtractor
	Primary      embeddings.Backend
	Fallback     embeddings.Backend // optional
	Store        vectordb.Store
	Checkpoints  checkpoint.Store
	Manager      *jobs.Manager

	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
	Backoff    float64

	Logger zerolog.Logger
}

// Pipeline runs one ingestion job end to end: extract, clean, chunk,
// embed in batches, upsert, checkpoint. The batch is the unit of both
// retry and checkpointing; a batch either fully reaches the vector store
// or the job fails with the checkpoint still pointing at the last batch
// that did.
type Pipeline struct {
	cleaner      *preprocess.Cleaner
	chunker      *chunking.HybridChunker
	registry     *extractors.Registry
	urlExtractor *extractors.URLExtractor
	primary      embeddings.Backend
	fallback     embeddings.Backend
	store        vectordb.Store
	checkpoints  checkpoint.Store
	manager      *jobs.Manager

	batchSize  int
	maxRetries int
	retryDelay time.Duration
	backoff    float64

	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a pipeline, applying defaults for unset tuning knobs
func New(p Params) *Pipeline {
	if p.BatchSize <= 0 {
		p.BatchSize = 32
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 5
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = time.Second
	}
	if p.Backoff <= 1 {
		p.Backoff = 1.8
	}
	return &Pipeline{
		cleaner:      p.Cleaner,
		chunker:      p.Chunker,
		registry:     p.Registry,
		urlExtractor: p.URLExtractor,
		primary:      p.Primary,
		fallback:     p.Fallback,
		store:        p.Store,
		checkpoints:  p.Checkpoints,
		manager:      p.Manager,
		batchSize:    p.BatchSize,
		maxRetries:   p.MaxRetries,
		retryDelay:   p.RetryDelay,
		backoff:      p.Backoff,
		logger:       p.Logger,
		sleep:        sleepCtx,
	}
}

// Run ingests one source under the given job ID. Metadata overrides win
// over extractor-provided metadata. On success the job's checkpoint is
// removed; on failure it is kept so a later job for the same source can
// resume from the last flushed batch.
func (p *Pipeline) Run(ctx context.Context, jobID string, kind models.JobKind, source string, overrides map[string]string) error {
	snap, err := p.checkpoints.Load(ctx, jobID)
	if err != nil {
		return err
	}
	already := snap.ChunksProcessed

	doc, err := p.extract(kind, source)
	if err != nil {
		return err
	}

	metadata := make(map[string]string, len(doc.Metadata)+len(overrides))
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	for k, v := range overrides {
		metadata[k] = v
	}

	stream := p.chunker.Stream(p.cleaner.CleanStream(doc.Fragments), metadata)
	defer stream.Close()

	if already > 0 {
		p.logger.Info().Str("job_id", jobID).Int("chunks_processed", already).
			Msg("resuming from checkpoint")
	}

	idx := 0
	batch := make([]models.Chunk, 0, p.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.flushBatch(ctx, jobID, batch); err != nil {
			return err
		}
		snap.ChunksProcessed = idx
		if err := p.checkpoints.Write(ctx, jobID, snap); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// Chunks the previous attempt already flushed are regenerated
		// deterministically and skipped without re-embedding.
		if idx < already {
			idx++
			continue
		}

		batch = append(batch, chunk)
		idx++
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	if err := p.manager.SetTotalChunks(jobID, idx); err != nil {
		return err
	}
	return p.checkpoints.Delete(ctx, jobID)
}

func (p *Pipeline) extract(kind models.JobKind, source string) (*extractors.StreamedDocument, error) {
	if kind == models.JobKindURL {
		return p.urlExtractor.Stream(source)
	}
	extractor, err := p.registry.Resolve(source)
	if err != nil {
		return nil, err
	}
	return extractor.Stream(source)
}

// flushBatch embeds one batch and upserts the resulting records
func (p *Pipeline) flushBatch(ctx context.Context, jobID string, batch []models.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	results, err := p.embedWithRetry(ctx, jobID, texts)
	if err != nil {
		return err
	}
	if len(results) != len(batch) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(batch), len(results))
	}

	records := make([]models.VectorRecord, len(batch))
	for i, chunk := range batch {
		meta := make(map[string]interface{}, len(chunk.Metadata)+2)
		for k, v := range chunk.Metadata {
			meta[k] = v
		}
		meta["text"] = chunk.Text
		meta["embedding_model"] = results[i].Model

		records[i] = models.VectorRecord{
			ID:        chunk.ID,
			Embedding: results[i].Vector,
			Metadata:  meta,
		}
	}

	if err := p.store.Upsert(ctx, records); err != nil {
		return err
	}
	return p.manager.IncrementChunks(jobID, len(batch))
}

// embedWithRetry tries the primary backend with exponential backoff, then
// the fallback backend once.
func (p *Pipeline) embedWithRetry(ctx context.Context, jobID string, texts []string) ([]models.EmbeddingResult, error) {
	delay := p.retryDelay
	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		results, err := p.primary.Embed(ctx, texts)
		if err == nil {
			return results, nil
		}
		lastErr = err
		p.logger.Warn().Err(err).Str("job_id", jobID).
			Int("attempt", attempt).Int("max_retries", p.maxRetries).
			Msg("embedding attempt failed")

		// Back off after every failed attempt, including the last one
		// before the fallback takes over.
		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = time.Duration(float64(delay) * p.backoff)
	}

	if p.fallback != nil {
		p.logger.Warn().Str("job_id", jobID).Str("backend", p.fallback.Model()).
			Msg("primary backend exhausted, trying fallback")
		results, err := p.fallback.Embed(ctx, texts)
		if err == nil {
			return results, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", p.maxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
