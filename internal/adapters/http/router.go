package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/corporate-agent/internal/config"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
	"github.com/kirillkom/corporate-agent/internal/core/usecase"
	"github.com/kirillkom/corporate-agent/internal/observability/metrics"
)

const (
	serviceName      = "api"
	uploadField      = "files"
	multipartMemory  = 8 << 20
	backpressureWait = 2 * time.Second
)

type Router struct {
	cfg        config.Config
	reviews    ports.ReviewService
	exporter   ports.ReviewExporter
	references ports.ReferenceService
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	reviews ports.ReviewService,
	exporter ports.ReviewExporter,
	references ports.ReferenceService,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:        cfg,
		reviews:    reviews,
		exporter:   exporter,
		references: references,
		metrics:    httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return bearerAuthMiddleware(next, rt.cfg.APIAuthToken)
		})
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, backpressureWait)
		})

		r.Post("/reviews", rt.createReview)
		r.Post("/reviews/archive", rt.createReviewArchive)
		r.Get("/reviews/{reviewID}", rt.getReviewByID)
		r.Post("/references/ingest", rt.ingestReferences)
		r.Post("/references/fetch", rt.fetchReferences)
	})

	var handler http.Handler = r
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return otelhttp.NewHandler(handler, "http.server")
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type reviewResponse struct {
	*domain.ReviewRun
	OutputsPrefix string `json:"outputs_prefix,omitempty"`
}

func (rt *Router) createReview(w http.ResponseWriter, r *http.Request) {
	run, ok := rt.runReview(w, r)
	if !ok {
		return
	}

	resp := reviewResponse{ReviewRun: run}
	if r.URL.Query().Get("save") == "true" {
		prefix, err := rt.exporter.SaveOutputs(r.Context(), run)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.OutputsPrefix = prefix
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) createReviewArchive(w http.ResponseWriter, r *http.Request) {
	run, ok := rt.runReview(w, r)
	if !ok {
		return
	}

	archive, err := rt.exporter.Archive(r.Context(), run)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", usecase.ArchiveFilename))
	w.Header().Set(reviewIDHeader, run.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (rt *Router) runReview(w http.ResponseWriter, r *http.Request) (*domain.ReviewRun, bool) {
	uploads, err := rt.readUploads(w, r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	run, err := rt.reviews.Review(r.Context(), uploads)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return run, true
}

func (rt *Router) readUploads(w http.ResponseWriter, r *http.Request) ([]domain.UploadedDocument, error) {
	const op = "read uploads"

	if rt.cfg.MaxUploadMB > 0 {
		limit := int64(rt.cfg.MaxUploadMB) << 20
		if r.ContentLength > limit {
			return nil, &http.MaxBytesError{Limit: limit}
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, op, err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("multipart field '%s' is required", uploadField))
	}

	uploads := make([]domain.UploadedDocument, 0, len(headers))
	for _, header := range headers {
		content, err := readPart(header)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("%s: %w", header.Filename, err))
		}
		uploads = append(uploads, domain.UploadedDocument{
			Name:    header.Filename,
			Content: content,
		})
	}
	return uploads, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (rt *Router) getReviewByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "reviewID"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "review id is required"})
		return
	}

	run, err := rt.reviews.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type referenceRequest struct {
	Dir string `json:"dir"`
}

func (rt *Router) referenceDir(r *http.Request) (string, error) {
	var req referenceRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", domain.WrapError(domain.ErrInvalidInput, "decode reference request", err)
		}
	}
	return resolveReferenceDir(rt.cfg.ReferenceDir, req.Dir)
}

func (rt *Router) ingestReferences(w http.ResponseWriter, r *http.Request) {
	dir, err := rt.referenceDir(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = rt.references.RequestIngest(r.Context(), dir)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "dir": dir})
		return
	case !domain.IsKind(err, domain.ErrConfiguration):
		writeError(w, r, err)
		return
	}

	// No queue configured: ingest in the request.
	chunks, err := rt.references.IngestDirectory(r.Context(), dir)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ingested", "dir": dir, "chunks": chunks})
}

func (rt *Router) fetchReferences(w http.ResponseWriter, r *http.Request) {
	dir, err := rt.referenceDir(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	downloaded, err := rt.references.FetchCatalog(r.Context(), dir)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dir": dir, "downloaded": downloaded})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
