package ports

import (
	"context"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// ReviewService is the inbound contract for running and reading document reviews.
type ReviewService interface {
	Review(ctx context.Context, uploads []domain.UploadedDocument) (*domain.ReviewRun, error)
	GetByID(ctx context.Context, id string) (*domain.ReviewRun, error)
}

// ReviewExporter turns a finished review into downloadable artifacts.
type ReviewExporter interface {
	Archive(ctx context.Context, run *domain.ReviewRun) ([]byte, error)
	SaveOutputs(ctx context.Context, run *domain.ReviewRun) (string, error)
}

// ReferenceService is the inbound contract for managing reference material.
type ReferenceService interface {
	IngestDirectory(ctx context.Context, dir string) (int, error)
	RequestIngest(ctx context.Context, dir string) error
	FetchCatalog(ctx context.Context, dir string) (int, error)
}
