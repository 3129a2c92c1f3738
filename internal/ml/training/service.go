package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"loanwatch/internal/domain"
	"loanwatch/internal/ml/features"
	"loanwatch/internal/ml/models/logreg"

	"go.opentelemetry.io/otel/trace"
)

type LoanStore interface {
	ListResolved(ctx context.Context) ([]domain.LoanApplication, error)
	SetHoldout(ctx context.Context, loanIDs []int64) error
}

type ModelRegistry interface {
	NextVersion(ctx context.Context, modelKey string) (int, error)
	InsertModelVersion(ctx context.Context, model domain.ModelVersion) (*domain.ModelVersion, error)
	GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error)
	ActivateModel(ctx context.Context, modelKey string, version int) error
}

type Config struct {
	MinTrainSamples int
	HoldoutFraction float64
}

type Service struct {
	tracer   trace.Tracer
	loans    LoanStore
	registry ModelRegistry
	engine   *features.Engine
	cfg      Config
}

type ModelTrainResult struct {
	ModelKey     string
	Version      int
	SampleCount  int
	HoldoutCount int
	AUC          float64
	Accuracy     float64
	Promoted     bool
	PromoteError error
}

func NewService(tracer trace.Tracer, loans LoanStore, registry ModelRegistry, cfg Config) *Service {
	if cfg.MinTrainSamples <= 0 {
		cfg.MinTrainSamples = 300
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 1 {
		cfg.HoldoutFraction = 0.3
	}
	return &Service{tracer: tracer, loans: loans, registry: registry, engine: features.NewEngine(), cfg: cfg}
}

// Train fits a fresh scorer on the older portion of the resolved book,
// measures it on the newer holdout, records the artifact in the registry and
// promotes it when holdout AUC clears the active model by a margin. The
// holdout membership is persisted so threshold evaluation stays out-of-sample.
func (s *Service) Train(ctx context.Context, now time.Time) (ModelTrainResult, error) {
	ctx, span := s.tracer.Start(ctx, "training.train")
	defer span.End()

	apps, err := s.loans.ListResolved(ctx)
	if err != nil {
		return ModelTrainResult{}, err
	}
	ds := s.engine.BuildDataset(apps)
	if ds.Len() < s.cfg.MinTrainSamples {
		return ModelTrainResult{}, fmt.Errorf("not enough resolved loans: got %d need >= %d", ds.Len(), s.cfg.MinTrainSamples)
	}

	trainEnd := splitIndex(ds.Len(), s.cfg.HoldoutFraction)
	trainX, trainY := ds.Samples[:trainEnd], ds.Labels[:trainEnd]
	holdX, holdY := ds.Samples[trainEnd:], ds.Labels[trainEnd:]
	if len(trainX) == 0 || len(holdX) == 0 {
		return ModelTrainResult{}, errors.New("dataset split produced empty partitions")
	}

	model, err := logreg.Train(trainX, trainY, features.FeatureNames, logreg.DefaultTrainOptions())
	if err != nil {
		return ModelTrainResult{}, fmt.Errorf("train logreg: %w", err)
	}
	blob, err := model.MarshalBinary()
	if err != nil {
		return ModelTrainResult{}, fmt.Errorf("marshal logreg model: %w", err)
	}

	metrics := computeMetrics(holdY, model.PredictBatch(holdX))
	opts := logreg.DefaultTrainOptions()
	result, err := s.persistAndMaybePromote(ctx, now.UTC(), blob, map[string]any{
		"learning_rate": opts.LearningRate,
		"epochs":        opts.Epochs,
		"l2":            opts.L2,
	}, metrics, ds.Len(), len(holdY))
	if err != nil {
		return ModelTrainResult{}, err
	}

	if err := s.loans.SetHoldout(ctx, ds.LoanIDs[trainEnd:]); err != nil {
		return result, fmt.Errorf("persist holdout membership: %w", err)
	}
	return result, nil
}

func (s *Service) persistAndMaybePromote(
	ctx context.Context,
	now time.Time,
	artifact []byte,
	hyperparams map[string]any,
	metrics map[string]float64,
	sampleCount int,
	holdoutCount int,
) (ModelTrainResult, error) {
	version, err := s.registry.NextVersion(ctx, domain.ModelKeyLogRegGood)
	if err != nil {
		return ModelTrainResult{}, err
	}
	hyperJSON, _ := json.Marshal(hyperparams)
	metricJSON, _ := json.Marshal(metrics)

	inserted, err := s.registry.InsertModelVersion(ctx, domain.ModelVersion{
		ModelKey:           domain.ModelKeyLogRegGood,
		Version:            version,
		FeatureSpecVersion: features.FeatureSpecVersion(),
		TrainedTo:          now,
		HyperparamsJSON:    string(hyperJSON),
		MetricsJSON:        string(metricJSON),
		ArtifactFormat:     "json/logreg-v1",
		ArtifactBlob:       artifact,
		IsActive:           false,
	})
	if err != nil {
		return ModelTrainResult{}, err
	}

	result := ModelTrainResult{
		ModelKey:     domain.ModelKeyLogRegGood,
		Version:      inserted.Version,
		SampleCount:  sampleCount,
		HoldoutCount: holdoutCount,
		AUC:          metrics["auc"],
		Accuracy:     metrics["accuracy"],
	}

	promote, promoteErr := s.shouldPromote(ctx, metrics["auc"], holdoutCount, inserted.Version)
	if promoteErr != nil {
		result.PromoteError = promoteErr
		return result, nil
	}
	if promote {
		if err := s.registry.ActivateModel(ctx, domain.ModelKeyLogRegGood, inserted.Version); err != nil {
			result.PromoteError = err
			return result, nil
		}
		result.Promoted = true
	}
	return result, nil
}

func (s *Service) shouldPromote(ctx context.Context, newAUC float64, holdoutCount, newVersion int) (bool, error) {
	active, err := s.registry.GetActiveModel(ctx, domain.ModelKeyLogRegGood)
	if err != nil {
		return false, err
	}
	if active == nil {
		return true, nil
	}
	if active.Version == newVersion {
		return active.IsActive, nil
	}
	if holdoutCount < 100 {
		return false, nil
	}
	activeAUC, ok := metricValue(active.MetricsJSON, "auc")
	if !ok {
		return true, nil
	}
	return newAUC >= activeAUC+0.01, nil
}

func splitIndex(n int, holdoutFraction float64) int {
	idx := int(float64(n) * (1 - holdoutFraction))
	if idx < 1 {
		idx = 1
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func metricValue(metricsJSON, key string) (float64, bool) {
	var m map[string]float64
	if err := json.Unmarshal([]byte(metricsJSON), &m); err != nil {
		return 0, false
	}
	v, ok := m[key]
	return v, ok
}

// computeMetrics reports holdout quality at the conventional 0.5 cut. The
// operating threshold is chosen later by the evaluation sweep; these numbers
// exist to compare model versions on a fixed footing.
func computeMetrics(labels []float64, probs []float64) map[string]float64 {
	n := len(labels)
	if n == 0 || len(probs) != n {
		return map[string]float64{"auc": 0.5, "accuracy": 0, "precision": 0, "recall": 0, "f1": 0, "brier": 0, "n_holdout": 0}
	}
	tp, fp, tn, fn := 0.0, 0.0, 0.0, 0.0
	brier := 0.0
	for i := 0; i < n; i++ {
		y := labels[i]
		p := features.Clamp01(probs[i])
		pred := 0.0
		if p >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && y == 1:
			tp++
		case pred == 1 && y == 0:
			fp++
		case pred == 0 && y == 0:
			tn++
		default:
			fn++
		}
		d := p - y
		brier += d * d
	}

	accuracy := (tp + tn) / float64(n)
	precision := 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	recall := 0.0
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return map[string]float64{
		"auc":       computeAUC(labels, probs),
		"accuracy":  accuracy,
		"precision": precision,
		"recall":    recall,
		"f1":        f1,
		"brier":     brier / float64(n),
		"n_holdout": float64(n),
	}
}

// computeAUC is the rank-statistic form of ROC AUC with average ranks for
// tied probabilities.
func computeAUC(labels []float64, probs []float64) float64 {
	type pair struct {
		p float64
		y float64
	}
	pairs := make([]pair, len(labels))
	pos, neg := 0.0, 0.0
	for i := range labels {
		pairs[i] = pair{p: features.Clamp01(probs[i]), y: labels[i]}
		if labels[i] >= 0.5 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	sumRankPos := 0.0
	rank := 1.0
	for i := 0; i < len(pairs); {
		j := i + 1
		for j < len(pairs) && math.Abs(pairs[j].p-pairs[i].p) < 1e-12 {
			j++
		}
		avgRank := (rank + float64(j)) / 2
		for k := i; k < j; k++ {
			if pairs[k].y >= 0.5 {
				sumRankPos += avgRank
			}
		}
		rank = float64(j + 1)
		i = j
	}
	auc := (sumRankPos - (pos*(pos+1))/2) / (pos * neg)
	if math.IsNaN(auc) || math.IsInf(auc, 0) {
		return 0.5
	}
	return auc
}
