// Package server assembles the HTTP application from a loaded configuration.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rotation-scheduler-api/pkg/auth"
	"github.com/arnavshah/rotation-scheduler-api/pkg/cache"
	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
	"github.com/arnavshah/rotation-scheduler-api/pkg/database"
	"github.com/arnavshah/rotation-scheduler-api/pkg/handlers"
	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
	"github.com/arnavshah/rotation-scheduler-api/pkg/metrics"
)

// New opens the database, seeds the admin user and returns the router.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*gin.Engine, error) {
	gin.SetMode(cfg.Server.Mode)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := database.NewStore(db)
	log.Infof("database ready (%s)", cfg.Database.Driver())

	authn := auth.New(cfg.Auth)
	if err := authn.EnsureAdminExists(ctx, store, log); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	var rec *metrics.Recorder
	opts := handlers.RouterOptions{}
	if cfg.Metrics.IsEnabled() {
		rec, err = metrics.NewRecorder(cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		opts.MetricsPath = cfg.Metrics.Path
	}

	h := handlers.New(store, authn, cache.New(cfg.Cache, log), rec, log, cfg.Planner)
	return handlers.NewRouter(h, opts), nil
}
