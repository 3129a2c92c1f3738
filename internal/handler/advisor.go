package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdvisorSummary godoc
// @Summary      Narrative summary of the latest report
// @Description  Asks the LLM advisor to explain the current threshold recommendation
// @Tags         advisor
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/advisor/summary [post]
func (h *Handler) AdvisorSummary(c *gin.Context) {
	if h.advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "advisor unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.advisor-summary")
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

	summary, err := h.advisor.Summarize(ctx, *report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
