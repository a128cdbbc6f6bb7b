package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

const maxPageBytes = 20 << 20

type FetcherOptions struct {
	Timeout        time.Duration
	RequestsPerSec float64
	UserAgent      string
}

// Fetcher downloads catalog links into a directory. Failed links are logged
// and skipped.
type Fetcher struct {
	catalog    Catalog
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
	userAgent  string
}

func NewFetcher(catalog Catalog, executor *resilience.Executor, opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "corporate-agent/1.0"
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Fetcher{
		catalog:    catalog,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		executor:   executor,
		userAgent:  opts.UserAgent,
	}
}

// Fetch returns the number of links saved.
func (f *Fetcher) Fetch(ctx context.Context, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create reference dir: %w", err)
	}

	saved := 0
	for _, link := range f.catalog.Links {
		if err := f.limiter.Wait(ctx); err != nil {
			return saved, err
		}
		body, err := resilience.Call(ctx, f.executor, "reference.fetch", func(ctx context.Context) ([]byte, error) {
			return f.get(ctx, link.URL)
		}, resilience.HTTPClassifier)
		if err != nil {
			slog.Warn("reference_fetch_failed", "url", link.URL, "error", err)
			continue
		}
		target := filepath.Join(dir, link.Filename)
		if err := os.WriteFile(target, body, 0o644); err != nil {
			slog.Warn("reference_write_failed", "path", target, "error", err)
			continue
		}
		slog.Info("reference_fetched", "url", link.URL, "path", target, "bytes", len(body))
		saved++
	}
	return saved, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &resilience.StatusError{Service: "reference", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
