package ports

import (
	"context"
	"io"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

// TextExtractor turns an uploaded office document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, content []byte) (string, error)
}

// Annotator renders review notes into a copy of the original document.
type Annotator interface {
	Annotate(filename string, original []byte, notes []string) ([]byte, error)
}

// ReferenceRetriever searches and extends the reference index.
type ReferenceRetriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.ReferenceHit, error)
	Add(ctx context.Context, texts []string, metadatas []map[string]string, ids []string) error
}

// IssueProposer asks a language model for candidate issues in a document.
type IssueProposer interface {
	Name() string
	ProposeIssues(ctx context.Context, req domain.ProposalRequest) ([]domain.CandidateIssue, error)
}

// ReferenceReader discovers readable reference files under a directory.
type ReferenceReader interface {
	ReadDir(ctx context.Context, dir string) ([]domain.ReferenceSource, error)
}

// ReferenceFetcher downloads reference pages into a directory.
type ReferenceFetcher interface {
	Fetch(ctx context.Context, dir string) (int, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for reference chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ReviewRepository persists finished review runs.
type ReviewRepository interface {
	Save(ctx context.Context, run *domain.ReviewRun) error
	GetByID(ctx context.Context, id string) (*domain.ReviewRun, error)
}

// ObjectStorage stores review outputs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
}

// MessageQueue publishes/consumes reference ingestion requests.
type MessageQueue interface {
	PublishReferenceIngest(ctx context.Context, dir string) error
	SubscribeReferenceIngest(ctx context.Context, handler func(context.Context, string) error) error
}

// ReviewObserver receives review outcomes for metrics.
type ReviewObserver interface {
	ObserveDocument(docType domain.DocumentType, issues []domain.Issue, failed bool)
	ObserveAugmentation(provider, status string)
}
