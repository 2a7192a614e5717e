package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/rotation-scheduler-api/pkg/config"
	"github.com/arnavshah/rotation-scheduler-api/pkg/logger"
	"github.com/arnavshah/rotation-scheduler-api/pkg/server"
)

var (
	r       *gin.Engine
	initErr error
)

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadDotEnv()

	log := logger.New("vercel")
	cfg, err := config.Load(os.Getenv("ROTA_CONFIG"))
	if err != nil {
		initErr = err
		log.Errorf("could not load config: %v", err)
		return
	}
	r, initErr = server.New(context.Background(), cfg, log)
	if initErr != nil {
		log.Errorf("could not start: %v", initErr)
	}
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	if initErr != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	r.ServeHTTP(w, req)
}
