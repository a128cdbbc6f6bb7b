package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/corporate-agent/internal/bootstrap"
	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/observability/logging"
	"github.com/kirillkom/corporate-agent/internal/observability/metrics"
	"github.com/kirillkom/corporate-agent/internal/observability/tracing"
)

const ingestTimeout = 10 * time.Minute

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "corporate-agent-worker", cfg.OTLPEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		slog.Error("tracing_init_failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		BreakerListener: workerMetrics.ObserveBreakerState,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		slog.Error("worker_requires_queue", "hint", "set NATS_URL and RETRIEVER_BACKEND=qdrant")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeReferenceIngest(ctx, func(handlerCtx context.Context, dir string) error {
		ingestCtx, cancel := context.WithTimeout(handlerCtx, ingestTimeout)
		defer cancel()

		workerMetrics.StartIngest()
		start := time.Now()
		chunks, err := app.ReferenceUC.IngestDirectory(ingestCtx, dir)
		workerMetrics.FinishIngest("worker", time.Since(start), chunks, err)
		if err != nil {
			return err
		}
		slog.Info("references_ingested", "dir", dir, "chunks", chunks, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
	}
}
