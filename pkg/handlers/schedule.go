package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/rotation-scheduler-api/pkg/cache"
	"github.com/arnavshah/rotation-scheduler-api/pkg/export"
	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
	"github.com/arnavshah/rotation-scheduler-api/pkg/scheduler"
)

// ScheduleJSON handles the JSON-based planning request. ?format=csv returns
// the assignments as a CSV attachment instead.
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, ok := h.plan(c, input)
	if !ok {
		return
	}
	if c.Query("format") == "csv" {
		out, err := export.AssignmentsCSV(resp.Assignments)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="rotations.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ScheduleCSV handles CSV file uploads for planning
func (h *Handler) ScheduleCSV(c *gin.Context) {
	studentsFile, _ := c.FormFile("students_file")
	servicesFile, _ := c.FormFile("services_file")
	if studentsFile == nil || servicesFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "students_file and services_file are required"})
		return
	}

	input := models.ScheduleInput{
		Label: c.PostForm("label"),
		Save:  c.PostForm("save") == "true",
	}
	var err error
	if input.StartDate, err = models.ParseDate(c.PostForm("start_date")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date: " + err.Error()})
		return
	}
	if input.Students, err = readUpload(studentsFile, export.ReadStudents); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "students_file: " + err.Error()})
		return
	}
	if input.Services, err = readUpload(servicesFile, export.ReadServices); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "services_file: " + err.Error()})
		return
	}
	if v := c.PostForm("break_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "break_days must be an integer"})
			return
		}
		policy := h.resolvePolicy(c.Request.Context(), nil)
		policy.BreakDaysBetweenRotations = days
		input.Policy = &policy
	}

	resp, ok := h.plan(c, input)
	if !ok {
		return
	}
	out, err := export.AssignmentsCSV(resp.Assignments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":           resp.PlanID,
		"status":            resp.Status,
		"csv":               string(out),
		"unresolved":        resp.Unresolved,
		"validation_report": resp.ValidationReport,
	})
}

func readUpload[T any](fh *multipart.FileHeader, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return parse(f)
}

// resolvePolicy returns the request policy, or the stored settings layered on
// the configured defaults when the request has none.
func (h *Handler) resolvePolicy(ctx context.Context, p *models.Policy) models.Policy {
	if p != nil {
		return *p
	}
	settings, err := h.Store.Settings(ctx)
	if err != nil {
		h.Log.Warnf("planning settings unavailable, using configured defaults: %v", err)
		return h.Planner.Policy
	}
	return settings.Apply(h.Planner.Policy)
}

// cacheKey identifies a planning request by everything that shapes its result.
func cacheKey(input models.ScheduleInput, policy models.Policy) (string, error) {
	return cache.Key(struct {
		Students  []models.Student `json:"students"`
		Services  []models.Service `json:"services"`
		StartDate models.Date      `json:"start_date"`
		Policy    models.Policy    `json:"policy"`
	}{input.Students, input.Services, input.StartDate, scheduler.ResolvePolicy(policy)})
}

// plan runs the engine for one request, serving repeated inputs from the
// cache. It writes the error response itself and reports false on failure.
func (h *Handler) plan(c *gin.Context, input models.ScheduleInput) (models.ScheduleResponse, bool) {
	var resp models.ScheduleResponse
	if err := h.validate.Struct(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return resp, false
	}
	ctx := c.Request.Context()
	policy := h.resolvePolicy(ctx, input.Policy)

	key, keyErr := cacheKey(input, policy)
	hit := false
	if keyErr == nil {
		switch err := h.Cache.Get(ctx, key, &resp); {
		case err == nil:
			hit = true
		case !errors.Is(err, cache.ErrMiss):
			h.Log.Warnf("result cache read: %v", err)
		}
		if h.Metrics != nil {
			h.Metrics.ObserveCache(hit)
		}
	}

	if !hit {
		opts := []scheduler.Option{scheduler.WithLogger(h.Log)}
		if h.Metrics != nil {
			opts = append(opts, scheduler.WithRecorder(h.Metrics))
		}
		s, err := scheduler.New(input.Students, input.Services, input.StartDate, policy, opts...)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return resp, false
		}

		runCtx, cancel := context.WithTimeout(ctx, h.Planner.Timeout())
		defer cancel()
		res, err := s.Run(runCtx)
		switch {
		case errors.Is(err, scheduler.ErrRejected):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": res.Response()})
			return resp, false
		case err != nil:
			c.JSON(statusForContext(err), gin.H{"error": err.Error()})
			return resp, false
		}
		resp = res.Response()
		if keyErr == nil {
			if err := h.Cache.Set(ctx, key, resp); err != nil {
				h.Log.Warnf("result cache write: %v", err)
			}
		}
	}

	if input.Save {
		plan, err := h.Store.SavePlan(ctx, input.Label, policy, len(input.Students), len(input.Services), resp)
		if err != nil {
			h.Log.Errorf("%v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save plan"})
			return resp, false
		}
		resp.PlanID = plan.ID
	}

	h.recordUsage(c, len(input.Students), len(input.Services))
	return resp, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}
