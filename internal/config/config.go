package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, populated from environment
// variables with sensible defaults. A .env file in the working directory
// is loaded first when present.
type Config struct {
	AppName    string
	ListenAddr string
	LogLevel   string

	StorageDir    string
	UploadDir     string
	CheckpointDir string

	ChunkSize      int
	ChunkOverlap   int
	ChunkBatchSize int
	StreamReadSize int

	EmbeddingBackend    string // openai | ollama
	EmbeddingMaxRetries int
	EmbeddingRetryDelay time.Duration
	EmbeddingBackoff    float64

	OpenAIAPIKey string
	OpenAIModel  string

	OllamaURL   string
	OllamaModel string

	VectorDBProvider string // chroma | qdrant | pgvector
	Collection       string

	ChromaHost     string
	ChromaPort     int
	ChromaTenant   string
	ChromaDatabase string

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantUseTLS bool

	PostgresDSN string

	CheckpointBackend string // file | redis
	RedisHost         string
	RedisPort         int
	RedisPassword     string
	RedisDB           int

	IngestionConcurrency int
}

// ConfigError reports invalid or missing configuration. It is fatal at
// construction time.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}

// NewConfigError creates a new configuration error
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// Default returns a configuration with all defaults applied
func Default() Config {
	return Config{
		AppName:    "universal-vectorizer",
		ListenAddr: ":8080",
		LogLevel:   "info",

		StorageDir:    "storage",
		UploadDir:     filepath.Join("storage", "uploads"),
		CheckpointDir: filepath.Join("storage", "checkpoints"),

		ChunkSize:      800,
		ChunkOverlap:   200,
		ChunkBatchSize: 32,
		StreamReadSize: 64 * 1024,

		EmbeddingBackend:    "openai",
		EmbeddingMaxRetries: 5,
		EmbeddingRetryDelay: time.Second,
		EmbeddingBackoff:    1.8,

		OpenAIModel: "text-embedding-3-large",

		OllamaURL:   "http://localhost:11434",
		OllamaModel: "nomic-embed-text",

		VectorDBProvider: "chroma",
		Collection:       "universal_vectorizer",

		ChromaHost:     "localhost",
		ChromaPort:     8000,
		ChromaTenant:   "default_tenant",
		ChromaDatabase: "default_database",

		QdrantHost: "localhost",
		QdrantPort: 6334,

		CheckpointBackend: "file",
		RedisHost:         "localhost",
		RedisPort:         6379,

		IngestionConcurrency: 2,
	}
}

// Load reads configuration from the environment, applying defaults and
// validating chunk geometry and provider names.
func Load() (Config, error) {
	// Missing .env is fine; env vars may come from the process environment.
	_ = godotenv.Load()

	cfg := Default()

	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	cfg.StorageDir = envString("STORAGE_DIR", cfg.StorageDir)
	cfg.UploadDir = envString("UPLOAD_DIR", filepath.Join(cfg.StorageDir, "uploads"))
	cfg.CheckpointDir = envString("CHECKPOINT_DIR", filepath.Join(cfg.StorageDir, "checkpoints"))

	cfg.ChunkSize = envInt("CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = envInt("CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.ChunkBatchSize = envInt("CHUNK_BATCH_SIZE", cfg.ChunkBatchSize)
	cfg.StreamReadSize = envInt("STREAM_READ_SIZE", cfg.StreamReadSize)

	cfg.EmbeddingBackend = envString("EMBEDDING_BACKEND", cfg.EmbeddingBackend)
	cfg.EmbeddingMaxRetries = envInt("EMBEDDING_MAX_RETRIES", cfg.EmbeddingMaxRetries)
	cfg.EmbeddingRetryDelay = envDuration("EMBEDDING_RETRY_DELAY", cfg.EmbeddingRetryDelay)
	cfg.EmbeddingBackoff = envFloat("EMBEDDING_RETRY_BACKOFF", cfg.EmbeddingBackoff)

	cfg.OpenAIAPIKey = envString("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = envString("OPENAI_MODEL", cfg.OpenAIModel)

	cfg.OllamaURL = envString("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = envString("OLLAMA_MODEL", cfg.OllamaModel)

	cfg.VectorDBProvider = envString("VECTORDB_PROVIDER", cfg.VectorDBProvider)
	cfg.Collection = envString("VECTORDB_COLLECTION", cfg.Collection)

	cfg.ChromaHost = envString("CHROMA_HOST", cfg.ChromaHost)
	cfg.ChromaPort = envInt("CHROMA_PORT", cfg.ChromaPort)
	cfg.ChromaTenant = envString("CHROMA_TENANT", cfg.ChromaTenant)
	cfg.ChromaDatabase = envString("CHROMA_DATABASE", cfg.ChromaDatabase)

	cfg.QdrantHost = envString("QDRANT_HOST", cfg.QdrantHost)
	cfg.QdrantPort = envInt("QDRANT_PORT", cfg.QdrantPort)
	cfg.QdrantAPIKey = envString("QDRANT_API_KEY", cfg.QdrantAPIKey)
	cfg.QdrantUseTLS = envBool("QDRANT_USE_TLS", cfg.QdrantUseTLS)

	cfg.PostgresDSN = envString("POSTGRES_DSN", cfg.PostgresDSN)

	cfg.CheckpointBackend = envString("CHECKPOINT_BACKEND", cfg.CheckpointBackend)
	cfg.RedisHost = envString("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = envInt("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = envString("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)

	cfg.IngestionConcurrency = envInt("INGESTION_CONCURRENCY", cfg.IngestionConcurrency)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks chunk geometry, provider names and concurrency limits
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return NewConfigError("CHUNK_SIZE", "must be positive")
	}
	if c.ChunkOverlap < 0 {
		return NewConfigError("CHUNK_OVERLAP", "cannot be negative")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return NewConfigError("CHUNK_OVERLAP", fmt.Sprintf("must be smaller than chunk size (%d >= %d)", c.ChunkOverlap, c.ChunkSize))
	}
	if c.ChunkBatchSize <= 0 {
		return NewConfigError("CHUNK_BATCH_SIZE", "must be positive")
	}
	switch c.EmbeddingBackend {
	case "openai", "ollama":
	default:
		return NewConfigError("EMBEDDING_BACKEND", "unknown backend: "+c.EmbeddingBackend)
	}
	switch c.VectorDBProvider {
	case "chroma", "qdrant", "pgvector":
	default:
		return NewConfigError("VECTORDB_PROVIDER", "unknown provider: "+c.VectorDBProvider)
	}
	switch c.CheckpointBackend {
	case "file", "redis":
	default:
		return NewConfigError("CHECKPOINT_BACKEND", "unknown backend: "+c.CheckpointBackend)
	}
	if c.IngestionConcurrency <= 0 {
		return NewConfigError("INGESTION_CONCURRENCY", "must be positive")
	}
	return nil
}

// EnsureDirs creates the storage directories if they do not exist
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.StorageDir, c.UploadDir, c.CheckpointDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
