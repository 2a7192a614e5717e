package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rotation-scheduler-api/pkg/database"
	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
	"github.com/arnavshah/rotation-scheduler-api/pkg/scheduler"
)

// CheckPlan re-validates a caller-supplied assignment list.
func (h *Handler) CheckPlan(c *gin.Context) {
	var input models.CheckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	policy := scheduler.ResolvePolicy(h.resolvePolicy(c.Request.Context(), input.Policy))
	if err := scheduler.ValidateInput(input.Students, input.Services, policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.recordUsage(c, len(input.Students), len(input.Services))
	c.JSON(http.StatusOK, models.CheckResponse{
		ValidationReport: scheduler.Validate(input.Assignments, input.Students, input.Services, policy),
		EfficiencyReport: scheduler.AnalyzeEfficiency(input.Assignments, input.Services, policy),
	})
}

// GetPlan returns a stored plan.
func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.Store.GetPlan(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	if err != nil {
		h.Log.Errorf("%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load plan"})
		return
	}
	resp, err := plan.Response()
	if err != nil {
		h.Log.Errorf("%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not decode plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"label":      plan.Label,
		"created_at": plan.CreatedAt,
		"plan":       resp,
	})
}

// DeletePlan removes a stored plan.
func (h *Handler) DeletePlan(c *gin.Context) {
	err := h.Store.DeletePlan(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	if err != nil {
		h.Log.Errorf("delete plan: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted"})
}

// GetStudentSchedule returns one student's rotations of a stored plan.
func (h *Handler) GetStudentSchedule(c *gin.Context) {
	rotations, err := h.Store.StudentRotations(c.Request.Context(), c.Param("id"), c.Param("student_id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No rotations for this student in this plan"})
		return
	}
	if err != nil {
		h.Log.Errorf("%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load rotations"})
		return
	}
	assignments, err := database.Assignments(rotations)
	if err != nil {
		h.Log.Errorf("%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not decode rotations"})
		return
	}
	schedule, _ := scheduler.ScheduleFor(assignments, c.Param("student_id"))
	c.JSON(http.StatusOK, schedule)
}
