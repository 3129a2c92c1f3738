package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type PendingScorer interface {
	ScorePending(ctx context.Context, now time.Time) (int, error)
}

// ScoringJob stamps newly arrived applications with the active model's
// probability on a fixed interval.
type ScoringJob struct {
	tracer       trace.Tracer
	scorer       PendingScorer
	pollInterval time.Duration
}

func NewScoringJob(tracer trace.Tracer, scorer PendingScorer, pollInterval time.Duration) *ScoringJob {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	return &ScoringJob{tracer: tracer, scorer: scorer, pollInterval: pollInterval}
}

func (j *ScoringJob) Start(ctx context.Context) {
	if j.scorer == nil {
		log.Println("Scoring job disabled: no scorer")
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

func (j *ScoringJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "scoring-job.run-once")
	defer span.End()

	scored, err := j.scorer.ScorePending(ctx, time.Now())
	if err != nil {
		log.Printf("Scoring cycle error: %v", err)
		return
	}
	if scored > 0 {
		log.Printf("Scoring cycle stamped %d applications", scored)
	}
}
