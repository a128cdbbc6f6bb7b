package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

type retrieverFake struct {
	mu      sync.Mutex
	hits    []domain.ReferenceHit
	byQuery map[string][]domain.ReferenceHit
	err     error
	queries []string
	ks      []int

	addedTexts []string
	addedMetas []map[string]string
	addedIDs   []string
	addErr     error
}

func (f *retrieverFake) Search(_ context.Context, query string, k int) ([]domain.ReferenceHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if h, ok := f.byQuery[query]; ok {
		hits = h
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *retrieverFake) Add(_ context.Context, texts []string, metadatas []map[string]string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.addedTexts = append(f.addedTexts, texts...)
	f.addedMetas = append(f.addedMetas, metadatas...)
	f.addedIDs = append(f.addedIDs, ids...)
	return nil
}

type proposerFake struct {
	mu         sync.Mutex
	candidates []domain.CandidateIssue
	err        error
	requests   []domain.ProposalRequest
}

func (f *proposerFake) Name() string { return "fake" }

func (f *proposerFake) ProposeIssues(_ context.Context, req domain.ProposalRequest) ([]domain.CandidateIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type observerFake struct {
	mu            sync.Mutex
	documents     int
	failed        int
	augmentations map[string]int
}

func (f *observerFake) ObserveDocument(_ domain.DocumentType, _ []domain.Issue, failed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents++
	if failed {
		f.failed++
	}
}

func (f *observerFake) ObserveAugmentation(_ string, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.augmentations == nil {
		f.augmentations = map[string]int{}
	}
	f.augmentations[status]++
}

// extractorFake treats the upload content as plain text unless the name is
// listed in failing.
type extractorFake struct {
	failing map[string]bool
}

func (f extractorFake) Extract(_ context.Context, filename string, content []byte) (string, error) {
	if f.failing[filename] {
		return "", domain.WrapError(domain.ErrUnreadableDocument, "extract", errors.New("corrupt archive"))
	}
	return string(content), nil
}

type reviewRepoFake struct {
	mu      sync.Mutex
	saved   map[string]*domain.ReviewRun
	saveErr error
}

func (f *reviewRepoFake) Save(_ context.Context, run *domain.ReviewRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string]*domain.ReviewRun{}
	}
	f.saved[run.ID] = run
	return nil
}

func (f *reviewRepoFake) GetByID(_ context.Context, id string) (*domain.ReviewRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.saved[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get review", errors.New(id))
	}
	return run, nil
}

// annotatorFake appends the notes as text lines.
type annotatorFake struct {
	failing map[string]bool
}

func (f annotatorFake) Annotate(filename string, original []byte, notes []string) ([]byte, error) {
	if f.failing[filename] {
		return nil, errors.New("cannot annotate")
	}
	if len(notes) == 0 {
		return original, nil
	}
	out := append([]byte{}, original...)
	out = append(out, []byte("\n"+strings.Join(notes, "\n"))...)
	return out, nil
}

type storageFake struct {
	objects map[string][]byte
	err     error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = buf.Bytes()
	return nil
}

type readerFake struct {
	sources []domain.ReferenceSource
	err     error
}

func (f readerFake) ReadDir(context.Context, string) ([]domain.ReferenceSource, error) {
	return f.sources, f.err
}

// chunkerFake splits on blank lines.
type chunkerFake struct{}

func (chunkerFake) Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type fetcherFake struct {
	count int
	err   error
	dirs  []string
}

func (f *fetcherFake) Fetch(_ context.Context, dir string) (int, error) {
	f.dirs = append(f.dirs, dir)
	return f.count, f.err
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishReferenceIngest(_ context.Context, dir string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, dir)
	return nil
}

func (f *queueFake) SubscribeReferenceIngest(context.Context, func(context.Context, string) error) error {
	return nil
}
