package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loanwatch/internal/domain"
	"loanwatch/internal/ml/features"
	"loanwatch/internal/ml/models/logreg"

	"go.opentelemetry.io/otel/trace"
)

type UnscoredLister interface {
	ListUnscored(ctx context.Context, modelKey string, modelVersion, limit int) ([]domain.LoanApplication, error)
	UpsertScores(ctx context.Context, scores []domain.LoanScore) error
}

type ScoringConfig struct {
	BatchLimit int
}

// ScoringService stamps applications with the active model's probability of
// a good outcome, so the recommended threshold from the latest report can be
// applied to incoming loans.
type ScoringService struct {
	tracer   trace.Tracer
	loans    UnscoredLister
	registry ActiveModelReader
	cfg      ScoringConfig
}

func NewScoringService(tracer trace.Tracer, loans UnscoredLister, registry ActiveModelReader, cfg ScoringConfig) *ScoringService {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 500
	}
	return &ScoringService{tracer: tracer, loans: loans, registry: registry, cfg: cfg}
}

// ScorePending scores every application the active model has not seen yet
// and returns how many rows were stamped.
func (s *ScoringService) ScorePending(ctx context.Context, now time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "scoring-service.score-pending")
	defer span.End()

	active, err := s.registry.GetActiveModel(ctx, domain.ModelKeyLogRegGood)
	if err != nil {
		return 0, err
	}
	if active == nil {
		return 0, errors.New("no active model to score with")
	}
	model, err := logreg.UnmarshalBinary(active.ArtifactBlob)
	if err != nil {
		return 0, fmt.Errorf("load model artifact v%d: %w", active.Version, err)
	}

	total := 0
	for {
		apps, err := s.loans.ListUnscored(ctx, active.ModelKey, active.Version, s.cfg.BatchLimit)
		if err != nil {
			return total, err
		}
		if len(apps) == 0 {
			return total, nil
		}

		scores := make([]domain.LoanScore, 0, len(apps))
		for i := range apps {
			scores = append(scores, domain.LoanScore{
				LoanID:       apps[i].ID,
				ProbGood:     features.Clamp01(model.PredictProb(features.FeatureVector(apps[i]))),
				ModelKey:     active.ModelKey,
				ModelVersion: active.Version,
				ScoredAt:     now.UTC(),
			})
		}
		if err := s.loans.UpsertScores(ctx, scores); err != nil {
			return total, err
		}
		total += len(scores)
		if len(apps) < s.cfg.BatchLimit {
			return total, nil
		}
	}
}
