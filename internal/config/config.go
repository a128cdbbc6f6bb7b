package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const (
	RetrieverMemory = "memory"
	RetrieverQdrant = "qdrant"

	OutputLocalFS = "localfs"
	OutputMinIO   = "minio"
)

type Config struct {
	APIPort  string
	LogLevel string

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	QdrantURL        string
	QdrantCollection string

	RetrieverBackend  string
	ReferenceDir      string
	ReferenceCatalog  string
	CitationsPerIssue int
	ChunkSize         int
	ChunkOverlap      int

	LLMProvider    string
	LLMModel       string
	LLMTemperature float64
	LLMTimeout     time.Duration
	GroqAPIKey     string
	GeminiAPIKey   string

	OutputBackend  string
	OutputPath     string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	ReviewWorkers     int
	MaxUploadMB       int
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIAuthToken      string

	FetchRequestsPerSec float64

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration

	OTLPEndpoint      string
	TraceSampleRatio  float64
	WorkerMetricsPort string
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "references.ingest"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "adgm_references"),

		RetrieverBackend:  strings.ToLower(mustEnv("RETRIEVER_BACKEND", RetrieverMemory)),
		ReferenceDir:      mustEnv("REFERENCE_DIR", "./data/reference"),
		ReferenceCatalog:  mustEnv("REFERENCE_CATALOG", ""),
		CitationsPerIssue: mustEnvInt("CITATIONS_PER_ISSUE", 2),
		ChunkSize:         mustEnvInt("CHUNK_SIZE", 1200),
		ChunkOverlap:      mustEnvInt("CHUNK_OVERLAP", 150),

		LLMProvider:    strings.ToLower(mustEnv("LLM_PROVIDER", "none")),
		LLMModel:       mustEnv("LLM_MODEL", ""),
		LLMTemperature: mustEnvFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeout:     time.Duration(mustEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		GroqAPIKey:     mustEnv("GROQ_API_KEY", ""),
		GeminiAPIKey:   mustEnv("GEMINI_API_KEY", ""),

		OutputBackend:  strings.ToLower(mustEnv("OUTPUT_BACKEND", OutputLocalFS)),
		OutputPath:     mustEnv("OUTPUT_PATH", "./data/outputs"),
		MinIOEndpoint:  mustEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: mustEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: mustEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    mustEnv("MINIO_BUCKET", "reviews"),
		MinIOUseSSL:    mustEnvBool("MINIO_USE_SSL", false),

		ReviewWorkers:     mustEnvInt("REVIEW_WORKERS", 4),
		MaxUploadMB:       mustEnvInt("MAX_UPLOAD_MB", 32),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 16),
		APIAuthToken:      mustEnv("API_AUTH_TOKEN", ""),

		FetchRequestsPerSec: mustEnvFloat("FETCH_REQUESTS_PER_SEC", 1),

		RetryMaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: time.Duration(mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100)) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400)) * time.Millisecond,
		BreakerEnabled:      mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		BreakerMinRequests:  mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio: mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeout:  time.Duration(mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_SECONDS", 30)) * time.Second,

		OTLPEndpoint:      mustEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRatio:  mustEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// Validate reports settings that would make a review run impossible. Errors
// are of kind domain.ErrConfiguration.
func (c Config) Validate() error {
	const op = "config.validate"

	switch c.LLMProvider {
	case "none", "ollama":
	case "groq":
		if strings.TrimSpace(c.GroqAPIKey) == "" {
			return domain.WrapError(domain.ErrConfiguration, op, errors.New("GROQ_API_KEY is required for LLM_PROVIDER=groq"))
		}
	case "gemini":
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return domain.WrapError(domain.ErrConfiguration, op, errors.New("GEMINI_API_KEY is required for LLM_PROVIDER=gemini"))
		}
	default:
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.RetrieverBackend {
	case RetrieverMemory, RetrieverQdrant:
	default:
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("unknown RETRIEVER_BACKEND %q", c.RetrieverBackend))
	}

	switch c.OutputBackend {
	case OutputLocalFS:
	case OutputMinIO:
		if c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return domain.WrapError(domain.ErrConfiguration, op, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for OUTPUT_BACKEND=minio"))
		}
	default:
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("unknown OUTPUT_BACKEND %q", c.OutputBackend))
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > 1 {
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("LLM_TEMPERATURE must be within [0,1], got %v", c.LLMTemperature))
	}
	if c.CitationsPerIssue < 0 || c.CitationsPerIssue > 5 {
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("CITATIONS_PER_ISSUE must be within [0,5], got %d", c.CitationsPerIssue))
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize))
	}
	if c.RetryMaxAttempts < 0 || c.BreakerMinRequests < 0 {
		return domain.WrapError(domain.ErrConfiguration, op, errors.New("RESILIENCE_RETRY_MAX_ATTEMPTS and RESILIENCE_BREAKER_MIN_REQUESTS must not be negative"))
	}
	if c.BreakerFailureRatio < 0 || c.BreakerFailureRatio > 1 {
		return domain.WrapError(domain.ErrConfiguration, op, fmt.Errorf("RESILIENCE_BREAKER_FAILURE_RATIO must be within [0,1], got %v", c.BreakerFailureRatio))
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
