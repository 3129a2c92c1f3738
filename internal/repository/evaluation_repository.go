package repository

import (
	"context"
	"encoding/json"
	"errors"

	"loanwatch/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// EvaluationRepository persists completed threshold sweeps. The full report
// is stored as JSONB; the indexed columns exist for listing and pruning.
type EvaluationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewEvaluationRepository(pool PgxPool, tracer trace.Tracer) *EvaluationRepository {
	return &EvaluationRepository{pool: pool, tracer: tracer}
}

func (r *EvaluationRepository) InsertRun(ctx context.Context, report domain.ThresholdReport) (*domain.EvaluationRun, error) {
	_, span := r.tracer.Start(ctx, "evaluation-repo.insert-run")
	defer span.End()

	blob, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}

	run := domain.EvaluationRun{Report: report}
	err = r.pool.QueryRow(ctx, `
INSERT INTO evaluation_runs (model_key, model_version, generated_at, report)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`,
		report.ModelKey,
		report.ModelVersion,
		report.GeneratedAt.UTC(),
		blob,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return &run, nil
}

func (r *EvaluationRepository) LatestRun(ctx context.Context) (*domain.EvaluationRun, error) {
	_, span := r.tracer.Start(ctx, "evaluation-repo.latest-run")
	defer span.End()

	var run domain.EvaluationRun
	var blob []byte
	err := r.pool.QueryRow(ctx, `
SELECT id, report, created_at
FROM evaluation_runs
ORDER BY id DESC
LIMIT 1`).Scan(&run.ID, &blob, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(blob, &run.Report); err != nil {
		return nil, err
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return &run, nil
}
