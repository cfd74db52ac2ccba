// Package config provides configuration management for the risk
// analysis engine, loading from config files and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vcf-risk-engine/internal/domain"
)

// Manager loads and validates application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/vcf-risk-engine/")

	viper.SetEnvPrefix("GENRISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8082)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.max_upload_bytes", 50*1024*1024)
	viper.SetDefault("server.rate_limit", 10.0)
	viper.SetDefault("server.rate_limit_burst", 20)
	viper.SetDefault("server.job_ttl", "24h")

	// Analysis defaults
	viper.SetDefault("analysis.default_patient_id", domain.DefaultPatientID)
	viper.SetDefault("analysis.endpoint", "http://localhost:8082")
	viper.SetDefault("analysis.remote_timeout", "120s")
	viper.SetDefault("analysis.remote_max_bytes", 50*1024*1024)
	viper.SetDefault("analysis.project_root", ".")
	viper.SetDefault("analysis.interpreter", "")
	viper.SetDefault("analysis.script_path", domain.BuiltinAnalyzer)
	viper.SetDefault("analysis.local_timeout", "10m")
	viper.SetDefault("analysis.result_cache_size", 128)

	// Store defaults
	viper.SetDefault("store.path", "data/run_history.db")

	// Cache defaults
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.default_ttl", "24h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetAnalysisConfig returns dispatcher and backend configuration.
func (m *Manager) GetAnalysisConfig() *domain.AnalysisConfig {
	return &m.config.Analysis
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Analysis.DefaultPatientID == "" {
		return fmt.Errorf("default patient ID is required")
	}
	if config.Analysis.RemoteTimeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}
	if config.Analysis.RemoteMaxBytes <= 0 {
		return fmt.Errorf("remote size ceiling must be positive")
	}
	if config.Analysis.ScriptPath == "" {
		return fmt.Errorf("analyzer script path is required")
	}

	if config.Store.Path == "" {
		return fmt.Errorf("run-history store path is required")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// NewLogger builds a logrus logger from the logging configuration.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.ToLower(cfg.Format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
