package repository

import (
	"context"

	"loanwatch/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

const createSchema = `
CREATE TABLE IF NOT EXISTS loan_applications (
    id               BIGSERIAL   PRIMARY KEY,
    checking_status  TEXT        NOT NULL,
    duration_months  INT         NOT NULL,
    credit_history   TEXT        NOT NULL,
    purpose          TEXT        NOT NULL,
    amount_dm        NUMERIC     NOT NULL,
    savings_status   TEXT        NOT NULL,
    employment_years TEXT        NOT NULL,
    installment_rate INT         NOT NULL,
    age_years        INT         NOT NULL,
    housing          TEXT        NOT NULL,
    existing_credits INT         NOT NULL,
    job              TEXT        NOT NULL,
    dependents       INT         NOT NULL,
    foreign_worker   BOOLEAN     NOT NULL,
    outcome          TEXT,
    profit_dm        NUMERIC,
    prob_good        DOUBLE PRECISION,
    model_key        TEXT        NOT NULL DEFAULT '',
    model_version    INT         NOT NULL DEFAULT 0,
    scored_at        TIMESTAMPTZ,
    holdout          BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_loan_applications_resolved
    ON loan_applications (id) WHERE outcome IS NOT NULL;

CREATE TABLE IF NOT EXISTS model_versions (
    id                   BIGSERIAL   PRIMARY KEY,
    model_key            TEXT        NOT NULL,
    version              INT         NOT NULL,
    feature_spec_version TEXT        NOT NULL,
    trained_from         TIMESTAMPTZ,
    trained_to           TIMESTAMPTZ,
    trained_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    hyperparams_json     JSONB       NOT NULL DEFAULT '{}',
    metrics_json         JSONB       NOT NULL DEFAULT '{}',
    artifact_format      TEXT        NOT NULL,
    artifact_blob        BYTEA       NOT NULL,
    is_active            BOOLEAN     NOT NULL DEFAULT FALSE,
    activated_at         TIMESTAMPTZ,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (model_key, version)
);

CREATE TABLE IF NOT EXISTS evaluation_runs (
    id            BIGSERIAL   PRIMARY KEY,
    model_key     TEXT        NOT NULL,
    model_version INT         NOT NULL,
    generated_at  TIMESTAMPTZ NOT NULL,
    report        JSONB       NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const loanColumns = `
id, checking_status, duration_months, credit_history, purpose, amount_dm,
savings_status, employment_years, installment_rate, age_years, housing,
existing_credits, job, dependents, foreign_worker,
outcome, profit_dm, prob_good, model_key, model_version, scored_at,
holdout, created_at, updated_at`

type LoanRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewLoanRepository(pool PgxPool, tracer trace.Tracer) *LoanRepository {
	return &LoanRepository{pool: pool, tracer: tracer}
}

func (r *LoanRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "loan-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSchema)
	return err
}

func (r *LoanRepository) InsertApplication(ctx context.Context, app domain.LoanApplication) (*domain.LoanApplication, error) {
	_, span := r.tracer.Start(ctx, "loan-repo.insert")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
INSERT INTO loan_applications (
    checking_status, duration_months, credit_history, purpose, amount_dm,
    savings_status, employment_years, installment_rate, age_years, housing,
    existing_credits, job, dependents, foreign_worker,
    outcome, profit_dm
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10,
    $11, $12, $13, $14,
    $15, $16
)
RETURNING `+loanColumns,
		app.CheckingStatus,
		app.DurationMonths,
		app.CreditHistory,
		app.Purpose,
		app.AmountDM,
		app.SavingsStatus,
		app.EmploymentYears,
		app.InstallmentRate,
		app.AgeYears,
		app.Housing,
		app.ExistingCredits,
		app.Job,
		app.Dependents,
		app.ForeignWorker,
		nullLabel(app.Outcome),
		app.ProfitDM,
	)
	return scanLoan(row)
}

// ListResolved returns every application with a recorded outcome, oldest
// first, so chronological splits are stable.
func (r *LoanRepository) ListResolved(ctx context.Context) ([]domain.LoanApplication, error) {
	_, span := r.tracer.Start(ctx, "loan-repo.list-resolved")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+loanColumns+`
FROM loan_applications
WHERE outcome IS NOT NULL
ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

// ListHoldoutResolved returns the resolved holdout partition the last
// training run set aside.
func (r *LoanRepository) ListHoldoutResolved(ctx context.Context) ([]domain.LoanApplication, error) {
	_, span := r.tracer.Start(ctx, "loan-repo.list-holdout")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
SELECT `+loanColumns+`
FROM loan_applications
WHERE outcome IS NOT NULL AND holdout = TRUE
ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

func (r *LoanRepository) ListUnscored(ctx context.Context, modelKey string, modelVersion, limit int) ([]domain.LoanApplication, error) {
	_, span := r.tracer.Start(ctx, "loan-repo.list-unscored")
	defer span.End()

	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+loanColumns+`
FROM loan_applications
WHERE prob_good IS NULL OR model_key <> $1 OR model_version <> $2
ORDER BY id ASC
LIMIT $3`, modelKey, modelVersion, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

func (r *LoanRepository) UpsertScores(ctx context.Context, scores []domain.LoanScore) error {
	if len(scores) == 0 {
		return nil
	}
	_, span := r.tracer.Start(ctx, "loan-repo.upsert-scores")
	defer span.End()

	batch := &pgx.Batch{}
	for _, s := range scores {
		batch.Queue(`
UPDATE loan_applications
SET prob_good = $2, model_key = $3, model_version = $4, scored_at = $5, updated_at = NOW()
WHERE id = $1`,
			s.LoanID, s.ProbGood, s.ModelKey, s.ModelVersion, s.ScoredAt.UTC())
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range scores {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// SetHoldout replaces the holdout partition with exactly the given loan IDs.
func (r *LoanRepository) SetHoldout(ctx context.Context, loanIDs []int64) error {
	_, span := r.tracer.Start(ctx, "loan-repo.set-holdout")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE loan_applications SET holdout = FALSE WHERE holdout = TRUE`); err != nil {
		return err
	}
	if len(loanIDs) > 0 {
		if _, err := tx.Exec(ctx, `UPDATE loan_applications SET holdout = TRUE WHERE id = ANY($1)`, loanIDs); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanLoans(rows pgx.Rows) ([]domain.LoanApplication, error) {
	var out []domain.LoanApplication
	for rows.Next() {
		app, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	return out, rows.Err()
}

func scanLoan(row pgx.Row) (*domain.LoanApplication, error) {
	var app domain.LoanApplication
	var outcome *string
	var modelKey *string
	var modelVersion *int
	err := row.Scan(
		&app.ID,
		&app.CheckingStatus,
		&app.DurationMonths,
		&app.CreditHistory,
		&app.Purpose,
		&app.AmountDM,
		&app.SavingsStatus,
		&app.EmploymentYears,
		&app.InstallmentRate,
		&app.AgeYears,
		&app.Housing,
		&app.ExistingCredits,
		&app.Job,
		&app.Dependents,
		&app.ForeignWorker,
		&outcome,
		&app.ProfitDM,
		&app.ProbGood,
		&modelKey,
		&modelVersion,
		&app.ScoredAt,
		&app.Holdout,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		label := domain.Label(*outcome)
		app.Outcome = &label
	}
	if modelKey != nil {
		app.ModelKey = *modelKey
	}
	if modelVersion != nil {
		app.ModelVersion = *modelVersion
	}
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	if app.ScoredAt != nil {
		t := app.ScoredAt.UTC()
		app.ScoredAt = &t
	}
	return &app, nil
}

func nullLabel(l *domain.Label) any {
	if l == nil {
		return nil
	}
	return string(*l)
}
