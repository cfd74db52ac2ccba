package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vcf-risk-engine/internal/analyzer"
	"github.com/vcf-risk-engine/internal/api"
	"github.com/vcf-risk-engine/internal/backend"
	"github.com/vcf-risk-engine/internal/cache"
	"github.com/vcf-risk-engine/internal/config"
	"github.com/vcf-risk-engine/internal/domain"
	"github.com/vcf-risk-engine/internal/service"
	"github.com/vcf-risk-engine/internal/store"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.Infof("Starting VCF risk engine on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Execution backends: remote HTTP service with local fallback. The
	// local path is the embedded engine unless an external analyzer
	// program is configured.
	remote := backend.NewRemoteBackend(cfg.Analysis, logger)
	var local backend.Backend
	if cfg.Analysis.ScriptPath == domain.BuiltinAnalyzer {
		local = backend.NewEngineBackend(analyzer.NewEngine(logger))
	} else {
		local = backend.NewLocalBackend(cfg.Analysis, logger)
	}

	dispatcher := service.NewDispatcher(
		remote,
		local,
		cfg.Analysis.DefaultPatientID,
		analyzer.PanelSize(),
		cfg.Analysis.ResultCacheSize,
		logger,
	)

	runs, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open run history store: %v", err)
	}
	defer runs.Close()

	results, err := cache.NewResultCache(cfg.Cache.RedisURL, cfg.Cache.DefaultTTL, logger)
	if err != nil {
		// The distributed cache is optional; run without it.
		logger.WithError(err).Warn("Distributed result cache unavailable")
	}
	defer results.Close()

	// Create server
	server := api.NewServer(configManager, dispatcher, runs, results, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	logger.Info("Server stopped")
}
