// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pos-insights/internal/aiquery"
	"pos-insights/internal/analytics"
	"pos-insights/internal/common/config"
	"pos-insights/internal/common/logger"
	"pos-insights/internal/models"
)

// Server is the HTTP surface: the AI query endpoint, the pre-built
// dashboard endpoints and the operational routes.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	aiService  *aiquery.Service
	store      *analytics.Store
	limiter    *aiquery.RateLimiter
	logger     logger.Logger
}

func New(cfg config.ServerConfig, aiService *aiquery.Service, store *analytics.Store, limiter *aiquery.RateLimiter, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		aiService: aiService,
		store:     store,
		limiter:   limiter,
		logger:    log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(s.tenantMiddleware())
	{
		api.POST("/ai/query", s.rateLimitMiddleware(), s.handleAIQuery)
		api.GET("/dashboard/kpi", s.handleKPIData)
		api.GET("/dashboard/sales-chart", s.handleSalesChart)
		api.GET("/dashboard/top-products", s.handleTopProducts)
		api.GET("/locations", s.handleLocations)
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", map[string]interface{}{
		"address": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// tenantFromContext recovers the TenantContext installed by the
// middleware. The zero value is never reachable on registered routes.
func tenantFromContext(c *gin.Context) models.TenantContext {
	v, _ := c.Get("tenant")
	tenant, _ := v.(models.TenantContext)
	return tenant
}
