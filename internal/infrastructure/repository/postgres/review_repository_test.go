package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ReviewRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewReviewRepository(db), mock, func() { _ = db.Close() }
}

func sampleRun() *domain.ReviewRun {
	return &domain.ReviewRun{
		ID: "run-1",
		Report: domain.Report{
			Process:           domain.ProcessCompanyIncorporation,
			DocumentsUploaded: 1,
			RequiredDocuments: 5,
			MissingDocuments:  []domain.DocumentType{domain.DocumentUBODeclaration},
			IssuesFound:       []domain.DocumentFindings{},
		},
		Documents:      []domain.DocumentEntry{{Name: "a.docx", Type: domain.DocumentArticlesOfAssociation, Issues: []domain.Issue{}}},
		SeverityCounts: map[domain.Severity]int{domain.SeverityHigh: 1},
		Provider:       "groq",
		CreatedAt:      time.Date(2025, 8, 9, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaveInsertsRun(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	run := sampleRun()
	mock.ExpectExec("INSERT INTO review_runs").
		WithArgs("run-1", "Company Incorporation", "groq", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), run.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), run); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRejectsMissingID(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	if err := repo.Save(context.Background(), &domain.ReviewRun{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGetByIDDecodesJSONColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2025, 8, 9, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "provider", "report", "documents", "severity_counts", "created_at"}).
		AddRow("run-1", "groq",
			[]byte(`{"process":"Company Incorporation","documents_uploaded":1,"required_documents":5,"missing_documents":["UBO Declaration"],"issues_found":[]}`),
			[]byte(`[{"name":"a.docx","type":"Articles of Association","issues":[]}]`),
			[]byte(`{"High":1}`),
			created)
	mock.ExpectQuery("SELECT id, provider, report").WithArgs("run-1").WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Report.Process != domain.ProcessCompanyIncorporation || run.Report.MissingDocuments[0] != domain.DocumentUBODeclaration {
		t.Fatalf("unexpected report: %+v", run.Report)
	}
	if run.Documents[0].Type != domain.DocumentArticlesOfAssociation || run.SeverityCounts[domain.SeverityHigh] != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, provider, report").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS review_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRollsBackOnFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
