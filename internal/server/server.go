package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"universal-vectorizer/internal/checkpoint"
	"universal-vectorizer/internal/chunking"
	"universal-vectorizer/internal/config"
	"universal-vectorizer/internal/embeddings"
	"universal-vectorizer/internal/extractors"
	"universal-vectorizer/internal/handlers"
	"universal-vectorizer/internal/jobs"
	"universal-vectorizer/internal/pipeline"
	"universal-vectorizer/internal/preprocess"
	"universal-vectorizer/internal/routes"
	"universal-vectorizer/internal/services"
	"universal-vectorizer/internal/storage"
	"universal-vectorizer/internal/vectordb"
)

// Server owns the HTTP server and every long-lived dependency behind it.
// All wiring happens in New; nothing is global.
type Server struct {
	httpServer *http.Server
	ingestion  *services.IngestionService
	store      vectordb.Store
	logger     zerolog.Logger
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// New builds the full dependency graph from configuration
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	cleaner := preprocess.NewCleaner()
	chunker, err := chunking.NewHybridChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	logger.Info().Int("chunk_size", chunker.ChunkSize()).Int("chunk_overlap", chunker.ChunkOverlap()).
		Msg("chunker configured")

	registry := extractors.DefaultRegistry(cfg.StreamReadSize)
	urlExtractor := extractors.NewURLExtractor(30 * time.Second)

	primary, err := embeddings.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	fallback := embeddings.NewFallbackBackend(cfg)
	if fallback != nil {
		logger.Info().Str("backend", cfg.EmbeddingBackend).
			Msg("embedding fallback backend configured")
	}

	store, err := vectordb.NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var checkpoints checkpoint.Store
	switch cfg.CheckpointBackend {
	case "redis":
		checkpoints, err = checkpoint.NewRedisStore(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	default:
		checkpoints, err = checkpoint.NewFileStore(cfg.CheckpointDir)
	}
	if err != nil {
		store.Close()
		return nil, err
	}

	uploads, err := storage.NewUploadStore(cfg.UploadDir)
	if err != nil {
		store.Close()
		return nil, err
	}

	manager := jobs.NewManager()

	pipe := pipeline.New(pipeline.Params{
		Cleaner:      cleaner,
		Chunker:      chunker,
		Registry:     registry,
		URLExtractor: urlExtractor,
		Primary:      primary,
		Fallback:     fallback,
		Store:        store,
		Checkpoints:  checkpoints,
		Manager:      manager,
		BatchSize:    cfg.ChunkBatchSize,
		MaxRetries:   cfg.EmbeddingMaxRetries,
		RetryDelay:   cfg.EmbeddingRetryDelay,
		Backoff:      cfg.EmbeddingBackoff,
		Logger:       logger.With().Str("component", "pipeline").Logger(),
	})

	ingestion := services.NewIngestionService(pipe, manager, cfg.IngestionConcurrency,
		logger.With().Str("component", "ingestion").Logger())
	search := services.NewSearchService(cleaner, primary, store,
		logger.With().Str("component", "search").Logger())

	router := routes.NewRouter(routes.Handlers{
		Health: handlers.NewHealthHandler(cfg.AppName),
		Upload: handlers.NewUploadHandler(uploads, registry, logger),
		Ingest: handlers.NewIngestHandler(ingestion, manager, logger),
		Search: handlers.NewSearchHandler(search, logger),
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      corsMiddleware(router),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, // websocket subscriptions stay open
			IdleTimeout:  120 * time.Second,
		},
		ingestion: ingestion,
		store:     store,
		logger:    logger,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully: stop
// accepting requests, wait for in-flight ingestion jobs, close the store.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http shutdown did not finish cleanly")
	}

	s.ingestion.Wait()
	if err := s.store.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("vector store close failed")
	}
	return nil
}
