// Package api exposes the analysis engine over HTTP: asynchronous
// analysis jobs, a synchronous direct endpoint, run history, and
// rendered reports.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vcf-risk-engine/internal/cache"
	"github.com/vcf-risk-engine/internal/config"
	"github.com/vcf-risk-engine/internal/middleware"
	"github.com/vcf-risk-engine/internal/service"
	"github.com/vcf-risk-engine/internal/store"
)

const apiVersion = "2.0.0"

// Server is the HTTP front end over the analysis dispatcher.
type Server struct {
	configManager *config.Manager
	router        *gin.Engine
	server        *http.Server
	dispatcher    *service.Dispatcher
	jobs          *JobStore
	runs          *store.SQLiteStore
	results       *cache.ResultCache
	logger        *logrus.Logger
}

// NewServer creates the HTTP server. runs and results may be nil;
// history and the distributed cache are then disabled.
func NewServer(
	configManager *config.Manager,
	dispatcher *service.Dispatcher,
	runs *store.SQLiteStore,
	results *cache.ResultCache,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateLimitBurst))
	router.Use(corsMiddleware())
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	server := &Server{
		configManager: configManager,
		router:        router,
		dispatcher:    dispatcher,
		jobs:          NewJobStore(cfg.Server.JobTTL, logger),
		runs:          runs,
		results:       results,
		logger:        logger,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	s.jobs.StartReaper(ctx, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.jobs.Close()
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)

	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/genes", s.handleGenes)

		api.POST("/analyze", s.handleAnalyze)
		api.POST("/analyze-direct", s.handleAnalyzeDirect)
		api.POST("/analyze-test", s.handleAnalyzeTest)

		api.GET("/analysis/:id", s.handleGetAnalysis)
		api.GET("/analysis/:id/status", s.handleGetAnalysisStatus)
		api.GET("/analysis/:id/report", s.handleGetAnalysisReport)
		api.DELETE("/analysis/:id", s.handleDeleteAnalysis)

		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/export", s.handleExportRuns)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
