package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmn-raj/seo-tool/api/handler"
	"github.com/rmn-raj/seo-tool/api/middleware"
	"github.com/rmn-raj/seo-tool/config"
	"github.com/rmn-raj/seo-tool/metrics"
)

// Deps are the services the routes are built on.
type Deps struct {
	Auditor   handler.Auditor
	Pool      handler.PoolReporter
	Metrics   *metrics.Metrics // nil disables /metrics
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// Background work started here (rate limiter eviction) stops when ctx is done.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → CORS → Metrics
//	Analyze: RateLimit
//
// Health and metrics are outside the rate limit so probes always work.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(deps.Pool, deps.StartTime))

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(ctx, cfg.RateLimit))
	limited.POST("/analyze", handler.Analyze(deps.Auditor))

	return r
}
