package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

func sampleUploads() []domain.UploadedDocument {
	return []domain.UploadedDocument{
		{Name: "Articles_of_Association.docx", Content: []byte(dubaiArticles)},
		{Name: "Memorandum_of_Association.docx", Content: []byte("Memorandum of Association\n\nPurpose: Sample text for demonstration.\n\n<signature>")},
		{Name: "Board_Resolution.docx", Content: []byte("Board Resolution\n\nResolved that the Company approve incorporation matters.\n\n[signature]")},
		{Name: "UBO_Declaration.docx", Content: []byte("Ultimate Beneficial Owner (UBO) Declaration\n\nWe hereby declare...")},
		{Name: "Register_of_Members_and_Directors.docx", Content: []byte("Register of Members and Directors\n\nMember: Jane Doe\nDirector: John Smith")},
	}
}

func newTestReview(repo *reviewRepoFake, observer *observerFake, proposer *proposerFake, workers int) *ReviewUseCase {
	if observer == nil {
		observer = &observerFake{}
	}
	var augmenter *IssueAugmenter
	if proposer != nil {
		augmenter = NewIssueAugmenter(&retrieverFake{}, proposer, observer, AugmentSettings{CitationsPerIssue: 2})
	} else {
		augmenter = NewIssueAugmenter(&retrieverFake{}, nil, observer, AugmentSettings{CitationsPerIssue: 2})
	}
	if repo == nil {
		return NewReviewUseCase(extractorFake{}, augmenter, nil, observer, workers)
	}
	return NewReviewUseCase(extractorFake{}, augmenter, repo, observer, workers)
}

func TestReviewAllFiveDocuments(t *testing.T) {
	repo := &reviewRepoFake{}
	observer := &observerFake{}
	uc := newTestReview(repo, observer, nil, 2)

	run, err := uc.Review(context.Background(), sampleUploads())
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}

	if run.Report.Process != domain.ProcessCompanyIncorporation {
		t.Fatalf("process = %q", run.Report.Process)
	}
	if run.Report.DocumentsUploaded != 5 || run.Report.RequiredDocuments != 5 {
		t.Fatalf("unexpected counts: %+v", run.Report)
	}
	if len(run.Report.MissingDocuments) != 0 {
		t.Fatalf("expected nothing missing, got %v", run.Report.MissingDocuments)
	}

	wantTypes := []domain.DocumentType{
		domain.DocumentArticlesOfAssociation,
		domain.DocumentMemorandumOfAssociation,
		domain.DocumentResolution,
		domain.DocumentUBODeclaration,
		domain.DocumentRegisterOfMembersAndDirectors,
	}
	for i, want := range wantTypes {
		if run.Documents[i].Type != want {
			t.Fatalf("document %d type = %q, want %q", i, run.Documents[i].Type, want)
		}
	}

	articles := run.Report.IssuesFound[0].Issues
	if len(articles) != 2 || articles[0].Severity != domain.SeverityHigh || articles[1].Severity != domain.SeverityMedium {
		t.Fatalf("unexpected articles issues: %+v", articles)
	}
	if run.SeverityCounts[domain.SeverityHigh] != 1 || run.SeverityCounts[domain.SeverityMedium] != 3 {
		t.Fatalf("unexpected severity counts: %v", run.SeverityCounts)
	}

	if _, ok := repo.saved[run.ID]; !ok {
		t.Fatalf("expected run %s to be persisted", run.ID)
	}
	got, err := uc.GetByID(context.Background(), run.ID)
	if err != nil || got.ID != run.ID {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if observer.documents != 5 || observer.failed != 0 {
		t.Fatalf("unexpected observations: %+v", observer)
	}
}

func TestReviewReportsMissingDocuments(t *testing.T) {
	uc := newTestReview(nil, nil, nil, 1)
	uploads := sampleUploads()[:2]

	run, err := uc.Review(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	want := []domain.DocumentType{
		domain.DocumentResolution,
		domain.DocumentUBODeclaration,
		domain.DocumentRegisterOfMembersAndDirectors,
	}
	if fmt.Sprint(run.Report.MissingDocuments) != fmt.Sprint(want) {
		t.Fatalf("missing = %v, want %v", run.Report.MissingDocuments, want)
	}
}

func TestReviewSingleDocumentIsUnknownProcess(t *testing.T) {
	uc := newTestReview(nil, nil, nil, 1)

	run, err := uc.Review(context.Background(), sampleUploads()[:1])
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if run.Report.Process != domain.ProcessUnknown || run.Report.RequiredDocuments != 0 {
		t.Fatalf("unexpected report: %+v", run.Report)
	}
	if len(run.Report.MissingDocuments) != 0 {
		t.Fatalf("expected no missing documents, got %v", run.Report.MissingDocuments)
	}
}

func TestReviewUnreadableDocumentDoesNotFailBatch(t *testing.T) {
	observer := &observerFake{}
	augmenter := NewIssueAugmenter(nil, nil, observer, AugmentSettings{})
	uc := NewReviewUseCase(extractorFake{failing: map[string]bool{"broken.docx": true}}, augmenter, nil, observer, 3)

	uploads := append(sampleUploads()[:2], domain.UploadedDocument{Name: "broken.docx", Content: []byte("PK")})
	run, err := uc.Review(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	broken := run.Documents[2]
	if broken.Name != "broken.docx" || broken.Type != domain.DocumentUnknown || broken.Error == "" {
		t.Fatalf("unexpected broken entry: %+v", broken)
	}
	if run.Report.Process != domain.ProcessCompanyIncorporation {
		t.Fatalf("process = %q", run.Report.Process)
	}
	if observer.failed != 1 {
		t.Fatalf("expected one failed observation, got %d", observer.failed)
	}
}

func TestReviewProviderFailureDegradesGracefully(t *testing.T) {
	proposer := &proposerFake{err: errors.New("connection refused")}
	uc := newTestReview(nil, &observerFake{}, proposer, 4)

	run, err := uc.Review(context.Background(), sampleUploads())
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if run.Provider != "fake" {
		t.Fatalf("provider = %q", run.Provider)
	}
	for _, doc := range run.Documents {
		if len(doc.Warnings) != 1 {
			t.Fatalf("expected one warning for %s, got %v", doc.Name, doc.Warnings)
		}
	}
	if len(run.Report.IssuesFound[0].Issues) != 2 {
		t.Fatalf("expected heuristic issues only, got %+v", run.Report.IssuesFound[0].Issues)
	}
}

func TestReviewPreservesUploadOrder(t *testing.T) {
	uc := newTestReview(nil, nil, nil, 8)
	uploads := make([]domain.UploadedDocument, 0, 40)
	for i := 0; i < 40; i++ {
		uploads = append(uploads, domain.UploadedDocument{Name: fmt.Sprintf("doc-%02d.txt", i), Content: []byte("text")})
	}

	run, err := uc.Review(context.Background(), uploads)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	for i, doc := range run.Documents {
		if doc.Name != uploads[i].Name || run.Report.IssuesFound[i].Document != uploads[i].Name {
			t.Fatalf("order mismatch at %d: %s", i, doc.Name)
		}
	}
}

func TestReviewRejectsEmptyBatch(t *testing.T) {
	uc := newTestReview(nil, nil, nil, 1)
	_, err := uc.Review(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestReviewPersistFailure(t *testing.T) {
	repo := &reviewRepoFake{saveErr: errors.New("db down")}
	uc := newTestReview(repo, nil, nil, 1)
	if _, err := uc.Review(context.Background(), sampleUploads()); err == nil {
		t.Fatalf("expected save error")
	}
}

func TestGetByIDWithoutPersistence(t *testing.T) {
	uc := newTestReview(nil, nil, nil, 1)
	_, err := uc.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
