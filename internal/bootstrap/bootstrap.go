package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
	"github.com/kirillkom/corporate-agent/internal/core/usecase"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/chunking"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm/groq"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/office"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/queue/nats"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/reference"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/storage/s3"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/vector/memory"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/vector/qdrant"
)

type Options struct {
	// Observer receives review outcomes; nil disables review metrics.
	Observer ports.ReviewObserver
	// BreakerListener is attached to the shared resilience executor.
	BreakerListener resilience.StateListener
	// SkipQueue keeps the process off NATS even when NATS_URL is set.
	SkipQueue bool
}

type App struct {
	Config config.Config

	ReviewUC    *usecase.ReviewUseCase
	ExportUC    *usecase.ExportUseCase
	ReferenceUC *usecase.ReferenceUseCase

	Retriever ports.ReferenceRetriever
	Queue     *nats.Queue

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resiliencePolicy(cfg))
	slog.Debug("resilience_policy", "policy", executor.Config())
	if opts.BreakerListener != nil {
		executor.WithStateListener(opts.BreakerListener)
	}

	ollamaGenModel := cfg.OllamaGenModel
	if cfg.LLMProvider == llm.ProviderOllama && cfg.LLMModel != "" {
		ollamaGenModel = cfg.LLMModel
	}
	ollamaClient := ollama.New(cfg.OllamaURL, ollamaGenModel, cfg.OllamaEmbedModel, executor)

	var retriever ports.ReferenceRetriever
	switch cfg.RetrieverBackend {
	case config.RetrieverQdrant:
		retriever = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, ollama.NewEmbedder(ollamaClient), executor)
	default:
		retriever = memory.NewStore()
	}
	app.Retriever = retriever

	proposer, err := newProposer(cfg, ollamaClient, executor)
	if err != nil {
		return nil, err
	}

	var repo ports.ReviewRepository
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.onClose(func() { _ = db.Close() })

		reviewRepo := postgres.NewReviewRepository(db)
		if err := reviewRepo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		repo = reviewRepo
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var queue ports.MessageQueue
	if cfg.NATSURL != "" && !opts.SkipQueue && cfg.RetrieverBackend == config.RetrieverQdrant {
		q, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "corporate-agent",
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.onClose(q.Close)
		app.Queue = q
		queue = q
	} else if cfg.NATSURL != "" && cfg.RetrieverBackend == config.RetrieverMemory {
		slog.Info("nats_disabled_for_memory_retriever", "reason", "in-memory index is per process")
	}

	catalog, err := reference.LoadCatalog(cfg.ReferenceCatalog)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load reference catalog", err)
	}
	fetcher := reference.NewFetcher(catalog, executor, reference.FetcherOptions{
		RequestsPerSec: cfg.FetchRequestsPerSec,
	})

	augmenter := usecase.NewIssueAugmenter(retriever, proposer, opts.Observer, usecase.AugmentSettings{
		CitationsPerIssue: cfg.CitationsPerIssue,
		Model:             llm.ResolveModel(cfg.LLMProvider, cfg.LLMModel),
		Temperature:       cfg.LLMTemperature,
	})

	app.ReviewUC = usecase.NewReviewUseCase(office.NewExtractor(), augmenter, repo, opts.Observer, cfg.ReviewWorkers)
	app.ExportUC = usecase.NewExportUseCase(office.NewAnnotator(), storage)
	app.ReferenceUC = usecase.NewReferenceUseCase(
		reference.NewReader(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		retriever,
		fetcher,
		queue,
	)

	slog.Info("app_initialized",
		"llm_provider", cfg.LLMProvider,
		"retriever_backend", cfg.RetrieverBackend,
		"output_backend", cfg.OutputBackend,
		"persistence", repo != nil,
		"queue", queue != nil,
	)
	return app, nil
}

// resiliencePolicy maps the RESILIENCE_* settings onto the executor policy.
// Zero values fall back to the executor defaults.
func resiliencePolicy(cfg config.Config) resilience.Config {
	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = cfg.RetryMaxAttempts
	policy.RetryInitialBackoff = cfg.RetryInitialBackoff
	policy.RetryMaxBackoff = cfg.RetryMaxBackoff
	policy.BreakerEnabled = cfg.BreakerEnabled
	policy.BreakerMinRequests = uint32(max(cfg.BreakerMinRequests, 0))
	policy.BreakerFailureRatio = cfg.BreakerFailureRatio
	policy.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	return policy
}

func newProposer(cfg config.Config, ollamaClient *ollama.Client, executor *resilience.Executor) (ports.IssueProposer, error) {
	switch cfg.LLMProvider {
	case llm.ProviderGroq:
		return groq.New(groq.Config{APIKey: cfg.GroqAPIKey, Model: cfg.LLMModel, Timeout: cfg.LLMTimeout}, executor)
	case llm.ProviderGemini:
		return gemini.New(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.LLMModel, Timeout: cfg.LLMTimeout}, executor)
	case llm.ProviderOllama:
		return ollama.NewProposer(ollamaClient), nil
	default:
		return nil, nil
	}
}

func newStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.OutputBackend {
	case config.OutputMinIO:
		storage, err := s3.New(ctx, s3.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		return storage, nil
	default:
		storage, err := localfs.New(cfg.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("init output storage: %w", err)
		}
		return storage, nil
	}
}

// WarmReferences ingests REFERENCE_DIR into an in-memory retriever. Other
// backends keep their index between restarts and are left alone.
func (a *App) WarmReferences(ctx context.Context) (int, error) {
	if a.Config.RetrieverBackend != config.RetrieverMemory {
		return 0, nil
	}
	if _, err := os.Stat(a.Config.ReferenceDir); errors.Is(err, os.ErrNotExist) {
		slog.Warn("reference_dir_missing", "dir", a.Config.ReferenceDir)
		return 0, nil
	}
	chunks, err := a.ReferenceUC.IngestDirectory(ctx, a.Config.ReferenceDir)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			slog.Warn("reference_dir_empty", "dir", a.Config.ReferenceDir, "error", err)
			return 0, nil
		}
		return 0, err
	}
	slog.Info("references_loaded", "dir", a.Config.ReferenceDir, "chunks", chunks)
	return chunks, nil
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
