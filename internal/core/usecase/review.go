package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/corporate-agent/internal/core/compliance"
	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

const defaultReviewWorkers = 4

type ReviewUseCase struct {
	extractor ports.TextExtractor
	augmenter *IssueAugmenter
	repo      ports.ReviewRepository
	observer  ports.ReviewObserver
	workers   int
	now       func() time.Time
}

// NewReviewUseCase builds the review pipeline. repo may be nil, in which case
// runs are not persisted and GetByID always reports not found.
func NewReviewUseCase(
	extractor ports.TextExtractor,
	augmenter *IssueAugmenter,
	repo ports.ReviewRepository,
	observer ports.ReviewObserver,
	workers int,
) *ReviewUseCase {
	if workers <= 0 {
		workers = defaultReviewWorkers
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &ReviewUseCase{
		extractor: extractor,
		augmenter: augmenter,
		repo:      repo,
		observer:  observer,
		workers:   workers,
		now:       time.Now,
	}
}

func (uc *ReviewUseCase) Review(ctx context.Context, uploads []domain.UploadedDocument) (*domain.ReviewRun, error) {
	if len(uploads) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review", errors.New("no documents uploaded"))
	}

	ctx, span := tracer.Start(ctx, "review_run")
	defer span.End()
	span.SetAttributes(attribute.Int("documents.uploaded", len(uploads)))

	started := uc.now()
	entries := make([]domain.DocumentEntry, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i, upload := range uploads {
		g.Go(func() error {
			entries[i] = uc.reviewDocument(gctx, upload)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("review: %w", err)
	}

	process := compliance.InferProcess(domain.Types(entries))
	required := compliance.RequiredFor(process)
	run := &domain.ReviewRun{
		ID:             uuid.NewString(),
		Report:         compliance.BuildReport(process, entries, required),
		Documents:      entries,
		SeverityCounts: compliance.SeverityCounts(entries),
		Provider:       uc.augmenter.ProviderName(),
		CreatedAt:      started.UTC(),
	}

	if uc.repo != nil {
		if err := uc.repo.Save(ctx, run); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("save review run: %w", err)
		}
	}

	span.SetAttributes(
		attribute.String("review.id", run.ID),
		attribute.String("review.process", string(process)),
		attribute.Int("documents.missing", len(run.Report.MissingDocuments)),
	)
	slog.Info("review_completed",
		"review_id", run.ID,
		"process", string(process),
		"documents", len(entries),
		"missing", len(run.Report.MissingDocuments),
		"duration_ms", uc.now().Sub(started).Milliseconds(),
	)
	return run, nil
}

func (uc *ReviewUseCase) GetByID(ctx context.Context, id string) (*domain.ReviewRun, error) {
	if uc.repo == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get review", errors.New("review persistence is disabled"))
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *ReviewUseCase) reviewDocument(ctx context.Context, upload domain.UploadedDocument) domain.DocumentEntry {
	entry := domain.DocumentEntry{
		Name:    upload.Name,
		Content: upload.Content,
		Type:    domain.DocumentUnknown,
		Issues:  []domain.Issue{},
	}

	text, err := uc.extractor.Extract(ctx, upload.Name, upload.Content)
	if err != nil {
		if !domain.IsKind(err, domain.ErrUnreadableDocument) {
			err = domain.WrapError(domain.ErrUnreadableDocument, "extract "+upload.Name, err)
		}
		slog.Warn("document_unreadable", "document", upload.Name, "error", err)
		entry.Error = err.Error()
		uc.observer.ObserveDocument(entry.Type, entry.Issues, true)
		return entry
	}

	entry.Type = compliance.ClassifyDocument(text)
	issues := compliance.ScanIssues(text)
	entry.Issues, entry.Warnings = uc.augmenter.Augment(ctx, entry.Type, text, issues)

	uc.observer.ObserveDocument(entry.Type, entry.Issues, false)
	return entry
}
