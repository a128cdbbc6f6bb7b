package localfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

func TestSaveCreatesNestedKeys(t *testing.T) {
	base := t.TempDir()
	s, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Save(context.Background(), "session-20250809-140307/report.json", strings.NewReader(`{"process":"Unknown"}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "session-20250809-140307", "report.json"))
	if err != nil || string(data) != `{"process":"Unknown"}` {
		t.Fatalf("unexpected file: %q, %v", data, err)
	}
}

func TestSaveRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"../x.json", "/etc/passwd", "", "a/../../b"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Save(%q) expected invalid input, got %v", key, err)
		}
	}
}
