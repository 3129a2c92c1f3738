package job

import (
	"context"
	"log"
	"time"

	"loanwatch/internal/ml/training"

	"go.opentelemetry.io/otel/trace"
)

type TrainingRunner interface {
	Train(ctx context.Context, now time.Time) (training.ModelTrainResult, error)
}

// TrainingJob retrains the scorer once a day at a fixed UTC hour.
type TrainingJob struct {
	tracer    trace.Tracer
	runner    TrainingRunner
	trainHour int
}

func NewTrainingJob(tracer trace.Tracer, runner TrainingRunner, trainHourUTC int) *TrainingJob {
	if trainHourUTC < 0 || trainHourUTC > 23 {
		trainHourUTC = 0
	}
	return &TrainingJob{tracer: tracer, runner: runner, trainHour: trainHourUTC}
}

func (j *TrainingJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Println("Training job disabled: no runner")
		<-ctx.Done()
		return
	}
	for {
		next := nextRunUTC(time.Now().UTC(), j.trainHour)
		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.runOnce(ctx)
		}
	}
}

func (j *TrainingJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "training-job.run-once")
	defer span.End()

	result, err := j.runner.Train(ctx, time.Now())
	if err != nil {
		log.Printf("Training error: %v", err)
		return
	}
	log.Printf("Training result model=%s version=%d auc=%.4f promoted=%v",
		result.ModelKey, result.Version, result.AUC, result.Promoted)
}

func nextRunUTC(now time.Time, hour int) time.Time {
	run := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !run.After(now) {
		run = run.Add(24 * time.Hour)
	}
	return run
}
