package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the banner route.
const Version = "3.0.0"

// RouterOptions tunes NewRouter.
type RouterOptions struct {
	// MetricsPath mounts the Prometheus handler when non-empty and a recorder is set.
	MetricsPath string
}

// NewRouter builds the gin engine with every route.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.RequestLogger())
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware())
		if opts.MetricsPath != "" {
			r.GET(opts.MetricsPath, gin.WrapH(h.Metrics.Handler()))
		}
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Rotation Scheduler API",
			"version": Version,
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)
	}

	// Planning Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/schedule/csv", h.ScheduleCSV)
		api.POST("/validate", h.ValidateInput)
		api.POST("/plans/check", h.CheckPlan)
		api.GET("/plans/:id", h.GetPlan)
		api.DELETE("/plans/:id", h.DeletePlan)
		api.GET("/plans/:id/students/:student_id", h.GetStudentSchedule)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
