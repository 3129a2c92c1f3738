package handler

import (
	"context"
	"time"

	"loanwatch/internal/domain"
	"loanwatch/internal/ml/training"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type ReportProvider interface {
	Evaluate(ctx context.Context, now time.Time) (*domain.ThresholdReport, error)
	LatestReport(ctx context.Context) (*domain.ThresholdReport, error)
}

type TrainingRunner interface {
	Train(ctx context.Context, now time.Time) (training.ModelTrainResult, error)
}

type LoanScorer interface {
	ScorePending(ctx context.Context, now time.Time) (int, error)
}

type ReportAdvisor interface {
	Summarize(ctx context.Context, report domain.ThresholdReport) (string, error)
}

type Handler struct {
	tracer     trace.Tracer
	evaluation ReportProvider
	trainer    TrainingRunner
	scorer     LoanScorer
	advisor    ReportAdvisor
	apiKey     string
}

func New(tracer trace.Tracer, evaluation ReportProvider, trainer TrainingRunner, scorer LoanScorer, advisor ReportAdvisor, apiKey string) *Handler {
	return &Handler{
		tracer:     tracer,
		evaluation: evaluation,
		trainer:    trainer,
		scorer:     scorer,
		advisor:    advisor,
		apiKey:     apiKey,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/report", h.GetReport)

	protected := r.Group("/api", APIKeyAuth(h.apiKey))
	protected.POST("/evaluate", h.TriggerEvaluation)
	protected.POST("/train", h.TriggerTraining)
	protected.POST("/score", h.TriggerScoring)
	protected.POST("/advisor/summary", h.AdvisorSummary)
}
