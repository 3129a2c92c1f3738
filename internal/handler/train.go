package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TriggerTraining godoc
// @Summary      Train a new scorer version
// @Description  Fits a fresh model on the resolved book and promotes it when holdout AUC improves
// @Tags         ml
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/train [post]
func (h *Handler) TriggerTraining(c *gin.Context) {
	if h.trainer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "training service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-training")
	defer span.End()

	result, err := h.trainer.Train(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payload := gin.H{
		"status":    "ok",
		"model_key": result.ModelKey,
		"version":   result.Version,
		"samples":   result.SampleCount,
		"holdout":   result.HoldoutCount,
		"auc":       result.AUC,
		"accuracy":  result.Accuracy,
		"promoted":  result.Promoted,
	}
	if result.PromoteError != nil {
		payload["promote_error"] = result.PromoteError.Error()
	}
	c.JSON(http.StatusOK, payload)
}

// TriggerScoring godoc
// @Summary      Score pending applications
// @Description  Stamps unscored applications with the active model's probability of repayment
// @Tags         ml
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/score [post]
func (h *Handler) TriggerScoring(c *gin.Context) {
	if h.scorer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scoring service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-scoring")
	defer span.End()

	count, err := h.scorer.ScorePending(ctx, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scored": count})
}
