package job

import (
	"context"
	"log"
	"time"

	"loanwatch/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type EvaluationRunner interface {
	Evaluate(ctx context.Context, now time.Time) (*domain.ThresholdReport, error)
}

// EvaluationJob re-runs the threshold sweep on a fixed interval so the
// cached report tracks the loan book as outcomes resolve.
type EvaluationJob struct {
	tracer       trace.Tracer
	runner       EvaluationRunner
	pollInterval time.Duration
}

func NewEvaluationJob(tracer trace.Tracer, runner EvaluationRunner, pollInterval time.Duration) *EvaluationJob {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	return &EvaluationJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *EvaluationJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Println("Evaluation job disabled: no runner")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *EvaluationJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "evaluation-job.run-once")
	defer span.End()

	report, err := j.runner.Evaluate(ctx, time.Now())
	if err != nil {
		log.Printf("Evaluation cycle error: %v", err)
		return
	}
	log.Printf(
		"Evaluation cycle complete model=%s version=%d holdout=%d best_accuracy=%.2f best_profit=%.2f",
		report.ModelKey, report.ModelVersion, report.SampleCount,
		report.BestByAccuracy, report.BestByProfit,
	)
}
