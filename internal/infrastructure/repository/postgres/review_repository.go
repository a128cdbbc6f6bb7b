package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/corporate-agent/internal/core/domain"
)

const schemaLockID int64 = 2025080901

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS review_runs (
	id TEXT PRIMARY KEY,
	process TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	report JSONB NOT NULL,
	documents JSONB NOT NULL,
	severity_counts JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_runs_created_at ON review_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_review_runs_process ON review_runs(process);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReviewRepository) Save(ctx context.Context, run *domain.ReviewRun) error {
	if run == nil || run.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save review", errors.New("review run id is required"))
	}
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	documentsJSON, err := json.Marshal(run.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	countsJSON, err := json.Marshal(run.SeverityCounts)
	if err != nil {
		return fmt.Errorf("marshal severity counts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO review_runs (id, process, provider, report, documents, severity_counts, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	process = EXCLUDED.process,
	provider = EXCLUDED.provider,
	report = EXCLUDED.report,
	documents = EXCLUDED.documents,
	severity_counts = EXCLUDED.severity_counts
`,
		run.ID, string(run.Report.Process), run.Provider, reportJSON, documentsJSON, countsJSON, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review run: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.ReviewRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, provider, report, documents, severity_counts, created_at
FROM review_runs
WHERE id = $1
`, id)

	var run domain.ReviewRun
	var reportRaw, documentsRaw, countsRaw []byte
	err := row.Scan(&run.ID, &run.Provider, &reportRaw, &documentsRaw, &countsRaw, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get review", fmt.Errorf("review %s", id))
		}
		return nil, fmt.Errorf("scan review run: %w", err)
	}

	if err := json.Unmarshal(reportRaw, &run.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if err := json.Unmarshal(documentsRaw, &run.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	if err := json.Unmarshal(countsRaw, &run.SeverityCounts); err != nil {
		return nil, fmt.Errorf("unmarshal severity counts: %w", err)
	}
	return &run, nil
}
