package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"loanwatch/internal/domain"
	"loanwatch/internal/ml/eval"
	"loanwatch/internal/ml/features"
	"loanwatch/internal/ml/models/logreg"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	reportCacheKey = "loanwatch:report:latest"
	reportCacheTTL = 10 * time.Minute
)

// DefaultThresholds is the candidate grid swept on every evaluation run.
var DefaultThresholds = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}

type HoldoutReader interface {
	ListHoldoutResolved(ctx context.Context) ([]domain.LoanApplication, error)
}

type ActiveModelReader interface {
	GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
}

type RunStore interface {
	InsertRun(ctx context.Context, report domain.ThresholdReport) (*domain.EvaluationRun, error)
	LatestRun(ctx context.Context) (*domain.EvaluationRun, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ThresholdNotifier is told when the profit-recommended threshold moves
// between consecutive runs.
type ThresholdNotifier interface {
	NotifyThresholdChange(previous, current domain.ThresholdReport)
}

type EvaluationConfig struct {
	Thresholds []float64
	CacheTTL   time.Duration
}

// EvaluationService runs the threshold sweep over the scored holdout book
// and publishes the resulting report.
type EvaluationService struct {
	tracer   trace.Tracer
	loans    HoldoutReader
	registry ActiveModelReader
	runs     RunStore
	redis    RedisClient
	notifier ThresholdNotifier
	engine   *features.Engine
	cfg      EvaluationConfig
}

func NewEvaluationService(
	tracer trace.Tracer,
	loans HoldoutReader,
	registry ActiveModelReader,
	runs RunStore,
	redisClient RedisClient,
	notifier ThresholdNotifier,
	cfg EvaluationConfig,
) *EvaluationService {
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = DefaultThresholds
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = reportCacheTTL
	}
	return &EvaluationService{
		tracer:   tracer,
		loans:    loans,
		registry: registry,
		runs:     runs,
		redis:    redisClient,
		notifier: notifier,
		engine:   features.NewEngine(),
		cfg:      cfg,
	}
}

// SetNotifier installs the threshold-change notifier. The bot needs the
// service for its /report command, so the notifier is wired after both
// exist.
func (s *EvaluationService) SetNotifier(n ThresholdNotifier) {
	s.notifier = n
}

// Evaluate scores the resolved holdout with the active model, sweeps the
// configured thresholds and persists the report. The previous run, if any,
// is compared first so a moved recommendation can be announced.
func (s *EvaluationService) Evaluate(ctx context.Context, now time.Time) (*domain.ThresholdReport, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.evaluate")
	defer span.End()

	active, err := s.registry.GetActiveModel(ctx, domain.ModelKeyLogRegGood)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, errors.New("no active model to evaluate")
	}
	model, err := logreg.UnmarshalBinary(active.ArtifactBlob)
	if err != nil {
		return nil, fmt.Errorf("load model artifact v%d: %w", active.Version, err)
	}

	apps, err := s.loans.ListHoldoutResolved(ctx)
	if err != nil {
		return nil, err
	}
	ds := s.engine.BuildDataset(apps)
	if ds.Len() == 0 {
		return nil, errors.New("holdout is empty; train first")
	}

	probs := model.PredictBatch(ds.Samples)
	results, err := eval.Sweep(ctx, probs, ds.Outcome, ds.Profits, s.cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("threshold sweep: %w", err)
	}

	report := domain.ThresholdReport{
		GeneratedAt:  now.UTC(),
		ModelKey:     active.ModelKey,
		ModelVersion: active.Version,
		SampleCount:  ds.Len(),
		Results:      results,
	}
	if report.BestByAccuracy, err = eval.BestThreshold(results, domain.MetricAccuracy); err != nil {
		return nil, err
	}
	if report.BestByProfit, err = eval.BestThreshold(results, domain.MetricProfit); err != nil {
		return nil, err
	}

	previous, err := s.runs.LatestRun(ctx)
	if err != nil {
		log.Printf("read previous evaluation run: %v", err)
		previous = nil
	}
	if _, err := s.runs.InsertRun(ctx, report); err != nil {
		return nil, fmt.Errorf("persist evaluation run: %w", err)
	}
	s.cacheReport(ctx, report)

	if s.notifier != nil && previous != nil && thresholdMoved(previous.Report, report) {
		s.notifier.NotifyThresholdChange(previous.Report, report)
	}
	return &report, nil
}

// LatestReport serves the cached report when fresh, falling back to the
// store.
func (s *EvaluationService) LatestReport(ctx context.Context) (*domain.ThresholdReport, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.latest-report")
	defer span.End()

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, reportCacheKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("redis cache read error: %v", err)
		}
		if err == nil {
			var report domain.ThresholdReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
			log.Printf("discarding unreadable cached report")
		}
	}

	run, err := s.runs.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}
	s.cacheReport(ctx, run.Report)
	return &run.Report, nil
}

func (s *EvaluationService) cacheReport(ctx context.Context, report domain.ThresholdReport) {
	if s.redis == nil {
		return
	}
	blob, err := json.Marshal(report)
	if err != nil {
		log.Printf("marshal report for cache: %v", err)
		return
	}
	if err := s.redis.Set(ctx, reportCacheKey, blob, s.cfg.CacheTTL).Err(); err != nil {
		log.Printf("redis cache write error: %v", err)
	}
}

func thresholdMoved(previous, current domain.ThresholdReport) bool {
	return math.Abs(previous.BestByProfit-current.BestByProfit) > 1e-9 ||
		math.Abs(previous.BestByAccuracy-current.BestByAccuracy) > 1e-9
}
