package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{APIKey: ""}, nil); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProposeIssues(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-pro:generateContent" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Fatalf("missing api key header")
		}
		if r.URL.RawQuery != "" {
			t.Fatalf("unexpected query string: %s", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"issues\":[{\"issue\":\"A\","},{"text":"\"suggestion\":\"B\"}]}"}]}}]}`))
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "secret", BaseURL: server.URL}, resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	issues, err := p.ProposeIssues(context.Background(), domain.ProposalRequest{DocumentText: "doc", Temperature: 0.4})
	if err != nil {
		t.Fatalf("ProposeIssues() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Issue != "A" || issues[0].Suggestion != "B" {
		t.Fatalf("unexpected issues: %+v", issues)
	}
	if captured.GenerationConfig.Temperature != 0.4 || captured.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("unexpected generation config: %+v", captured.GenerationConfig)
	}
	if !strings.Contains(captured.SystemInstruction.Parts[0].Text, "ADGM compliance assistant") {
		t.Fatalf("unexpected system instruction")
	}
}

func TestProposeIssuesKeepsKeyOutOfErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusBadRequest)
	}))
	defer server.Close()

	p, _ := New(Config{APIKey: "topsecret", Model: "gemini-1.5-flash", BaseURL: server.URL}, resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}))
	_, err := p.ProposeIssues(context.Background(), domain.ProposalRequest{DocumentText: "doc"})
	if !domain.IsKind(err, domain.ErrModelProvider) {
		t.Fatalf("expected model provider error, got %v", err)
	}
	if strings.Contains(err.Error(), "topsecret") {
		t.Fatalf("api key leaked in error: %v", err)
	}
}

func TestProposeIssuesKeepsKeyOutOfRetryLogs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("x-goog-api-key") != "gemini-key-123" {
			t.Errorf("missing api key header")
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	p, _ := New(Config{APIKey: "gemini-key-123", BaseURL: server.URL}, executor)
	_, err := p.ProposeIssues(context.Background(), domain.ProposalRequest{DocumentText: "doc"})
	if !domain.IsKind(err, domain.ErrModelProvider) {
		t.Fatalf("expected model provider error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a retried request, got %d calls", calls.Load())
	}
	if !strings.Contains(buf.String(), "retry_attempt") {
		t.Fatalf("expected retry log, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "gemini-key-123") {
		t.Fatalf("api key leaked in logs: %s", buf.String())
	}
	if strings.Contains(err.Error(), "gemini-key-123") {
		t.Fatalf("api key leaked in error: %v", err)
	}
}
