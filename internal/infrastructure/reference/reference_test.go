package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/corporate-agent/internal/infrastructure/resilience"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func TestReadDirSupportedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_guidance.html", `<html><head><title>x</title><style>p{}</style></head><body><h1>ADGM Courts</h1><p>Companies are subject to   ADGM jurisdiction.</p><script>var a=1</script></body></html>`)
	writeFile(t, dir, "a_rules.txt", "Registered office must be in ADGM.")
	writeFile(t, dir, "nested/c.htm", "<p>Nested page</p>")
	writeFile(t, dir, "notes.md", "ignored")
	writeFile(t, dir, "broken.pdf", "not really a pdf")
	writeFile(t, dir, "empty.txt", "   ")

	sources, err := NewReader().ReadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d: %+v", len(sources), sources)
	}
	if filepath.Base(sources[0].Path) != "a_rules.txt" || filepath.Base(sources[1].Path) != "b_guidance.html" {
		t.Fatalf("unexpected order: %s, %s", sources[0].Path, sources[1].Path)
	}
	if sources[1].Text != "ADGM Courts\nCompanies are subject to ADGM jurisdiction." {
		t.Fatalf("unexpected html text: %q", sources[1].Text)
	}
}

func TestReadDirMissingDirectory(t *testing.T) {
	if _, err := NewReader().ReadDir(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(c.Links) != 2 || c.Links[0].Filename != "adgm_registration_and_incorporation.html" {
		t.Fatalf("unexpected catalog: %+v", c)
	}
	if !strings.HasPrefix(c.Links[1].URL, "https://www.adgm.com/") {
		t.Fatalf("unexpected url: %s", c.Links[1].URL)
	}
}

func TestParseCatalogRejectsUnsafeFilenames(t *testing.T) {
	for _, doc := range []string{
		"links:\n  - filename: ../escape.html\n    url: https://example.com\n",
		"links:\n  - filename: ok.html\n    url: \"\"\n",
		"links: [",
	} {
		if _, err := ParseCatalog([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestFetchSkipsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			_, _ = w.Write([]byte("<p>guidance</p>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	catalog := Catalog{Links: []Link{
		{Filename: "ok.html", URL: server.URL + "/ok"},
		{Filename: "missing.html", URL: server.URL + "/missing"},
	}}
	exec := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
	fetcher := NewFetcher(catalog, exec, FetcherOptions{Timeout: time.Second, RequestsPerSec: 100})

	dir := t.TempDir()
	n, err := fetcher.Fetch(context.Background(), dir)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 saved page, got %d", n)
	}
	data, err := os.ReadFile(filepath.Join(dir, "ok.html"))
	if err != nil || string(data) != "<p>guidance</p>" {
		t.Fatalf("unexpected saved page: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "missing.html")); !os.IsNotExist(err) {
		t.Fatalf("failed link must not be written")
	}
}
