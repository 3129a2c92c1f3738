package training

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"loanwatch/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type fakeLoanStore struct {
	apps       []domain.LoanApplication
	holdoutIDs []int64
}

func (f *fakeLoanStore) ListResolved(ctx context.Context) ([]domain.LoanApplication, error) {
	return f.apps, nil
}

func (f *fakeLoanStore) SetHoldout(ctx context.Context, loanIDs []int64) error {
	f.holdoutIDs = loanIDs
	return nil
}

type fakeRegistry struct {
	inserted  []domain.ModelVersion
	active    *domain.ModelVersion
	activated []int
}

func (f *fakeRegistry) NextVersion(ctx context.Context, modelKey string) (int, error) {
	return len(f.inserted) + 1, nil
}

func (f *fakeRegistry) InsertModelVersion(ctx context.Context, model domain.ModelVersion) (*domain.ModelVersion, error) {
	model.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, model)
	return &model, nil
}

func (f *fakeRegistry) GetActiveModel(ctx context.Context, modelKey string) (*domain.ModelVersion, error) {
	return f.active, nil
}

func (f *fakeRegistry) ActivateModel(ctx context.Context, modelKey string, version int) error {
	f.activated = append(f.activated, version)
	return nil
}

func TestTrainPromotesFirstModelAndMarksHoldout(t *testing.T) {
	loans := &fakeLoanStore{apps: resolvedBook(400)}
	registry := &fakeRegistry{}
	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), loans, registry, Config{MinTrainSamples: 100})

	result, err := svc.Train(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if !result.Promoted {
		t.Fatal("first trained model should promote")
	}
	if result.Version != 1 || result.ModelKey != domain.ModelKeyLogRegGood {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.SampleCount != 400 || result.HoldoutCount != 120 {
		t.Fatalf("expected 400 samples / 120 holdout, got %d/%d", result.SampleCount, result.HoldoutCount)
	}
	if len(loans.holdoutIDs) != 120 {
		t.Fatalf("expected 120 holdout IDs persisted, got %d", len(loans.holdoutIDs))
	}
	if result.AUC < 0.9 {
		t.Fatalf("separable book should train a strong model, auc=%.4f", result.AUC)
	}
	if len(registry.inserted) != 1 {
		t.Fatalf("expected one registry insert, got %d", len(registry.inserted))
	}
	if !strings.Contains(registry.inserted[0].MetricsJSON, "auc") {
		t.Fatalf("metrics JSON missing auc: %s", registry.inserted[0].MetricsJSON)
	}
}

func TestTrainRefusesSmallBook(t *testing.T) {
	loans := &fakeLoanStore{apps: resolvedBook(50)}
	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), loans, &fakeRegistry{}, Config{MinTrainSamples: 300})
	if _, err := svc.Train(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error for undersized book")
	}
}

func TestTrainHoldsBackWhenActiveModelIsBetter(t *testing.T) {
	loans := &fakeLoanStore{apps: resolvedBook(400)}
	registry := &fakeRegistry{active: &domain.ModelVersion{
		ModelKey:    domain.ModelKeyLogRegGood,
		Version:     7,
		MetricsJSON: `{"auc":0.999999}`,
		IsActive:    true,
	}}
	svc := NewService(trace.NewNoopTracerProvider().Tracer("test"), loans, registry, Config{MinTrainSamples: 100})

	result, err := svc.Train(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if result.Promoted {
		t.Fatal("new model must not displace a stronger active model")
	}
	if len(registry.activated) != 0 {
		t.Fatalf("unexpected activations %v", registry.activated)
	}
}

func TestComputeMetricsKnownMatrix(t *testing.T) {
	labels := []float64{1, 1, 0, 0}
	probs := []float64{0.9, 0.4, 0.6, 0.1}
	m := computeMetrics(labels, probs)
	if m["accuracy"] != 0.5 {
		t.Fatalf("expected accuracy 0.5, got %v", m["accuracy"])
	}
	if m["precision"] != 0.5 || m["recall"] != 0.5 {
		t.Fatalf("expected precision/recall 0.5, got %v/%v", m["precision"], m["recall"])
	}
	if m["n_holdout"] != 4 {
		t.Fatalf("expected n_holdout 4, got %v", m["n_holdout"])
	}
}

func TestComputeAUCPerfectRanking(t *testing.T) {
	labels := []float64{0, 0, 1, 1}
	probs := []float64{0.1, 0.2, 0.8, 0.9}
	if auc := computeAUC(labels, probs); math.Abs(auc-1) > 1e-12 {
		t.Fatalf("expected auc 1, got %v", auc)
	}
	if auc := computeAUC([]float64{1, 1}, []float64{0.3, 0.8}); auc != 0.5 {
		t.Fatalf("single-class auc should be 0.5, got %v", auc)
	}
}

// resolvedBook fabricates a cleanly separable credit history: short cheap
// loans repay, long expensive ones default.
func resolvedBook(n int) []domain.LoanApplication {
	apps := make([]domain.LoanApplication, 0, n)
	for i := 0; i < n; i++ {
		good := i%2 == 0
		outcome := domain.LabelBad
		profit := -600.0
		amount := 8000 + float64(i%40)*50
		duration := 48
		if good {
			outcome = domain.LabelGood
			profit = 350
			amount = 1200 + float64(i%40)*30
			duration = 12
		}
		apps = append(apps, domain.LoanApplication{
			ID:              int64(i + 1),
			CheckingStatus:  "low",
			DurationMonths:  duration,
			CreditHistory:   "existing_paid",
			Purpose:         "furniture",
			AmountDM:        amount,
			SavingsStatus:   "lt_100",
			EmploymentYears: "lt_4",
			InstallmentRate: 2,
			AgeYears:        30 + i%25,
			Housing:         "own",
			ExistingCredits: 1,
			Job:             "skilled",
			Dependents:      1,
			Outcome:         &outcome,
			ProfitDM:        &profit,
		})
	}
	return apps
}
