package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/corporate-agent/internal/core/compliance"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

const (
	ArchiveFilename   = "reviewed_outputs.zip"
	reportFilename    = "report.json"
	sessionTimeLayout = "20060102-150405"
)

type ExportUseCase struct {
	annotator ports.Annotator
	storage   ports.ObjectStorage
	now       func() time.Time
}

// NewExportUseCase builds the exporter. storage may be nil when outputs are
// only downloaded as an archive.
func NewExportUseCase(annotator ports.Annotator, storage ports.ObjectStorage) *ExportUseCase {
	return &ExportUseCase{
		annotator: annotator,
		storage:   storage,
		now:       time.Now,
	}
}

// Archive bundles report.json and an annotated copy of every readable
// document into a ZIP file.
func (uc *ExportUseCase) Archive(ctx context.Context, run *domain.ReviewRun) ([]byte, error) {
	if run == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "archive", errors.New("review run is nil"))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := uc.walkOutputs(ctx, run, func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write zip entry %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveOutputs writes the report and annotated copies under a session prefix
// built from the timestamp and run id, and returns that prefix.
func (uc *ExportUseCase) SaveOutputs(ctx context.Context, run *domain.ReviewRun) (string, error) {
	if uc.storage == nil {
		return "", domain.WrapError(domain.ErrConfiguration, "save outputs", errors.New("output storage is not configured"))
	}
	if run == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "save outputs", errors.New("review run is nil"))
	}

	prefix := "session-" + uc.now().Format(sessionTimeLayout)
	if run.ID != "" {
		prefix += "-" + run.ID
	}
	err := uc.walkOutputs(ctx, run, func(name string, data []byte) error {
		key := path.Join(prefix, name)
		if err := uc.storage.Save(ctx, key, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("review_outputs_saved", "review_id", run.ID, "prefix", prefix)
	return prefix, nil
}

func (uc *ExportUseCase) walkOutputs(ctx context.Context, run *domain.ReviewRun, emit func(name string, data []byte) error) error {
	report, err := json.MarshalIndent(run.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := emit(reportFilename, report); err != nil {
		return err
	}

	used := map[string]bool{reportFilename: true}
	for _, doc := range run.Documents {
		if err := ctx.Err(); err != nil {
			return err
		}
		if doc.Error != "" || len(doc.Content) == 0 {
			continue
		}
		annotated, err := uc.annotator.Annotate(doc.Name, doc.Content, compliance.NoteLines(doc.Issues))
		if err != nil {
			slog.Warn("annotation_failed", "document", doc.Name, "error", err)
			continue
		}
		if err := emit(uniqueEntryName(used, compliance.ReviewedFilename(doc.Name)), annotated); err != nil {
			return err
		}
	}
	return nil
}

// uniqueEntryName suffixes repeated names (a_reviewed.docx, a_reviewed_2.docx)
// so uploads sharing a filename do not overwrite each other.
func uniqueEntryName(used map[string]bool, name string) string {
	candidate := name
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; used[candidate]; i++ {
		candidate = stem + "_" + strconv.Itoa(i) + ext
	}
	used[candidate] = true
	return candidate
}
