// Package http assembles the gin route tree and the HTTP server around it.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	"github.com/patentlens/patentlens/internal/interfaces/http/handlers"
	"github.com/patentlens/patentlens/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and infrastructure the route tree
// needs.  Nil handlers skip their routes so partial servers (worker health
// endpoint) reuse the same constructor.
type RouterConfig struct {
	Jobs    *handlers.JobHandler
	Health  *handlers.HealthHandler
	Metrics http.Handler

	Mode   string // gin mode: "debug" | "release" | "test"
	Logger logging.Logger
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	if cfg.Jobs != nil {
		api := r.Group("/api/v1", middleware.UserIdentity())
		api.POST("/jobs", cfg.Jobs.Submit)
		api.GET("/jobs", cfg.Jobs.List)
		api.GET("/jobs/:id", cfg.Jobs.Get)
		api.GET("/jobs/:id/report", cfg.Jobs.Report)
		api.POST("/jobs/:id/payment", cfg.Jobs.ConfirmPayment)
		api.DELETE("/jobs/:id", cfg.Jobs.Cancel)
	}

	return r
}
