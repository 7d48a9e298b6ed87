// Package v1 provides HTTP API version 1.
package v1

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/resource"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/internal/infrastructure/metrics"
	"stockbook/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Store is pinged by the readiness probe
	Store handlers.Pinger

	// StorageDriver names the store in health output
	StorageDriver string

	Dispatcher *resource.Dispatcher
	Reports    *reports.Service

	// Metrics, when set, instruments requests and serves /metrics
	Metrics *metrics.Metrics

	// JWTValidator, when set, requires a bearer token on /api/v1
	JWTValidator middleware.JWTValidator

	// CORSOrigins lists the allowed browser origins; empty or "*" allows all
	CORSOrigins []string

	// Development switches gin to debug mode
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Order matters: ErrorHandler must wrap Recovery to render recovered panics.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.StorageDriver)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	}

	base := handlers.NewBaseHandler()
	if cfg.Reports != nil {
		RegisterReportRoutes(v1, handlers.NewReportsHandler(base, cfg.Reports))
	}
	RegisterResourceRoutes(v1, handlers.NewResourceHandler(base, cfg.Dispatcher))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AddAllowHeaders("Authorization", middleware.HeaderRequestID, middleware.HeaderTraceID)
	cfg.AddExposeHeaders("Content-Disposition", middleware.HeaderRequestID, middleware.HeaderTraceID)
	cfg.MaxAge = 12 * time.Hour
	return cfg
}
