package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetReport godoc
// @Summary      Latest threshold report
// @Description  Returns the most recent accuracy/profit sweep over the holdout loan book
// @Tags         evaluation
// @Produce      json
// @Success      200  {object}  domain.ThresholdReport
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-report")
	defer span.End()

	report, err := h.evaluation.LatestReport(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no evaluation run recorded yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// TriggerEvaluation godoc
// @Summary      Run a threshold sweep now
// @Description  Scores the holdout with the active model, sweeps thresholds and persists the report
// @Tags         evaluation
// @Produce      json
// @Success      200  {object}  domain.ThresholdReport
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/evaluate [post]
func (h *Handler) TriggerEvaluation(c *gin.Context) {
	if h.evaluation == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-evaluation")
	defer span.End()

	report, err := h.evaluation.Evaluate(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
