package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/rotation-scheduler-api/pkg/auth"
	"github.com/arnavshah/rotation-scheduler-api/pkg/cache"
	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
	"github.com/arnavshah/rotation-scheduler-api/pkg/database"
	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
	"github.com/arnavshah/rotation-scheduler-api/pkg/metrics"
)

const (
	ctxAPIKey   = "apiKey"
	ctxUserID   = "userID"
	ctxUsername = "username"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Store    *database.Store
	Auth     *auth.Authenticator
	Cache    cache.Cache
	Metrics  *metrics.Recorder
	Log      logger.Logger
	Planner  config.PlannerConfig
	validate *validator.Validate
}

// New wires a Handler. A nil cache or logger is replaced by a no-op; a nil
// recorder disables metrics.
func New(store *database.Store, authn *auth.Authenticator, c cache.Cache, rec *metrics.Recorder, log logger.Logger, planner config.PlannerConfig) *Handler {
	if c == nil {
		c = cache.NopCache{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	planner.SetDefaults()
	return &Handler{
		Store:    store,
		Auth:     authn,
		Cache:    c,
		Metrics:  rec,
		Log:      log,
		Planner:  planner,
		validate: validator.New(),
	}
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for planning routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		// Fetch or create API key record to track usage
		apiKey, err := h.Store.FindOrCreateKey(c.Request.Context(), key, userID)
		if err != nil {
			h.Log.Errorf("api key lookup: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load API key"})
			return
		}
		if err := h.Store.TouchKey(c.Request.Context(), apiKey.ID); err != nil {
			h.Log.Warnf("touch api key %d: %v", apiKey.ID, err)
		}

		c.Set(ctxAPIKey, apiKey)
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// RequestLogger logs one line per request through the handler's logger.
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Log.Debugw("request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

func apiKeyFrom(c *gin.Context) (*database.APIKey, bool) {
	raw, ok := c.Get(ctxAPIKey)
	if !ok {
		return nil, false
	}
	key, ok := raw.(*database.APIKey)
	return key, ok
}

// recordUsage adds the request to the caller's daily usage row.
func (h *Handler) recordUsage(c *gin.Context, students, services int) {
	apiKey, ok := apiKeyFrom(c)
	if !ok {
		return
	}
	if err := h.Store.RecordUsage(c.Request.Context(), apiKey.ID, students, services); err != nil {
		h.Log.Warnf("record usage for key %d: %v", apiKey.ID, err)
	}
}

func statusForContext(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusServiceUnavailable
}
