package main

import (
	"context"
	"flag"
	"os"

	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
	"github.com/arnavshah/rotation-scheduler-api/pkg/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("ROTA_CONFIG"), "path to a YAML or JSON config file")
	flag.Parse()

	// Load .env if it exists
	config.LoadDotEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("server").Errorf("could not load config: %v", err)
		os.Exit(1)
	}
	log := logger.NewConfigured("server", cfg.Logging.Level, cfg.Logging.Format)

	r, err := server.New(context.Background(), cfg, log)
	if err != nil {
		log.Errorf("could not start: %v", err)
		os.Exit(1)
	}

	log.Infof("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Errorf("could not run server: %v", err)
		os.Exit(1)
	}
}
