package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
	"github.com/arnavshah/rotation-scheduler-api/pkg/scheduler"
)

// ValidateInput checks a planning request without running the engine
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": validationMessage(err)})
		return
	}

	policy := scheduler.ResolvePolicy(h.resolvePolicy(c.Request.Context(), input.Policy))
	if err := scheduler.ValidateInput(input.Students, input.Services, policy); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	if input.StartDate.IsZero() {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "start_date is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"student_count":       len(input.Students),
			"service_count":       len(input.Services),
			"rotation_count":      len(input.Students) * len(input.Services),
			"estimated_span_days": scheduler.EstimateSpan(len(input.Students), input.Services, policy),
			"iteration_budget":    scheduler.IterationBudget(policy, len(input.Students), len(input.Services)),
		},
	})
}
