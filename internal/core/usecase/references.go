package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
	"github.com/kirillkom/corporate-agent/internal/core/ports"
)

type ReferenceUseCase struct {
	reader    ports.ReferenceReader
	chunker   ports.Chunker
	retriever ports.ReferenceRetriever
	fetcher   ports.ReferenceFetcher
	queue     ports.MessageQueue
}

// NewReferenceUseCase wires reference management. fetcher and queue are
// optional; the operations that need them fail with ErrConfiguration.
func NewReferenceUseCase(
	reader ports.ReferenceReader,
	chunker ports.Chunker,
	retriever ports.ReferenceRetriever,
	fetcher ports.ReferenceFetcher,
	queue ports.MessageQueue,
) *ReferenceUseCase {
	return &ReferenceUseCase{
		reader:    reader,
		chunker:   chunker,
		retriever: retriever,
		fetcher:   fetcher,
		queue:     queue,
	}
}

// IngestDirectory reads every supported file under dir, splits it into chunks
// and adds them to the retriever. It returns the number of chunks added.
func (uc *ReferenceUseCase) IngestDirectory(ctx context.Context, dir string) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "ingest references", errors.New("directory is required"))
	}

	sources, err := uc.reader.ReadDir(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("read references: %w", err)
	}

	var (
		texts     []string
		metadatas []map[string]string
		ids       []string
	)
	for _, src := range sources {
		for j, chunk := range uc.chunker.Split(src.Text) {
			texts = append(texts, chunk)
			metadatas = append(metadatas, map[string]string{
				"path":        src.Path,
				"chunk_index": strconv.Itoa(j),
			})
			ids = append(ids, referenceChunkID(src.Path, j))
		}
	}
	if len(texts) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "ingest references",
			fmt.Errorf("no readable files found in %s (supported: .pdf, .html, .htm, .txt)", dir))
	}

	if err := uc.retriever.Add(ctx, texts, metadatas, ids); err != nil {
		if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
			err = domain.WrapError(domain.ErrRetrievalUnavailable, "ingest references", err)
		}
		return 0, err
	}

	slog.Info("references_ingested", "dir", dir, "files", len(sources), "chunks", len(texts))
	return len(texts), nil
}

// RequestIngest schedules an ingestion of dir on the worker.
func (uc *ReferenceUseCase) RequestIngest(ctx context.Context, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "request ingest", errors.New("directory is required"))
	}
	if uc.queue == nil {
		return domain.WrapError(domain.ErrConfiguration, "request ingest", errors.New("message queue is not configured"))
	}
	if err := uc.queue.PublishReferenceIngest(ctx, dir); err != nil {
		return fmt.Errorf("publish ingest request: %w", err)
	}
	return nil
}

// FetchCatalog downloads the configured reference links into dir.
func (uc *ReferenceUseCase) FetchCatalog(ctx context.Context, dir string) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "fetch references", errors.New("directory is required"))
	}
	if uc.fetcher == nil {
		return 0, domain.WrapError(domain.ErrConfiguration, "fetch references", errors.New("reference fetcher is not configured"))
	}
	n, err := uc.fetcher.Fetch(ctx, dir)
	if err != nil {
		return n, fmt.Errorf("fetch references: %w", err)
	}
	return n, nil
}

// referenceChunkID is stable across runs and distinct across directories, so
// re-ingesting a file replaces its chunks and other files are left alone.
func referenceChunkID(path string, chunk int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ref:"+path+"#"+strconv.Itoa(chunk))).String()
}
