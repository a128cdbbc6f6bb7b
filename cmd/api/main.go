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

	httpadapter "github.com/kirillkom/corporate-agent/internal/adapters/http"
	"github.com/kirillkom/corporate-agent/internal/bootstrap"
	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/observability/logging"
	"github.com/kirillkom/corporate-agent/internal/observability/metrics"
	"github.com/kirillkom/corporate-agent/internal/observability/tracing"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "corporate-agent-api", cfg.OTLPEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		slog.Error("tracing_init_failed", "error", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Observer:        httpMetrics.Review(),
		BreakerListener: httpMetrics.ObserveBreakerState,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.APIAuthToken == "" {
		slog.Warn("api_auth_disabled", "hint", "set API_AUTH_TOKEN to require a bearer token on /v1")
	}
	if _, err := app.WarmReferences(ctx); err != nil {
		slog.Warn("reference_warmup_failed", "error", err)
	}

	router := httpadapter.NewRouter(cfg, app.ReviewUC, app.ExportUC, app.ReferenceUC, httpMetrics).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracing_shutdown_failed", "error", err)
	}
}
