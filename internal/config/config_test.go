package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcf-risk-engine/internal/domain"
)

func TestNewManagerDefaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 8082, cfg.Server.Port)
	assert.Equal(t, int64(50*1024*1024), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 24*time.Hour, cfg.Server.JobTTL)

	assert.Equal(t, domain.DefaultPatientID, cfg.Analysis.DefaultPatientID)
	assert.Equal(t, 120*time.Second, cfg.Analysis.RemoteTimeout)
	assert.Equal(t, int64(50*1024*1024), cfg.Analysis.RemoteMaxBytes)
	assert.Equal(t, domain.BuiltinAnalyzer, cfg.Analysis.ScriptPath)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.LocalTimeout)

	assert.Equal(t, "data/run_history.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("GENRISK_SERVER_PORT", "9001")
	t.Setenv("GENRISK_ANALYSIS_ENDPOINT", "http://analysis.internal:8000")

	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "http://analysis.internal:8000", cfg.Analysis.Endpoint)
}

func TestValidate(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)
	require.NoError(t, manager.Validate())

	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{"invalid port", func(c *domain.Config) { c.Server.Port = 0 }},
		{"empty patient ID", func(c *domain.Config) { c.Analysis.DefaultPatientID = "" }},
		{"zero remote timeout", func(c *domain.Config) { c.Analysis.RemoteTimeout = 0 }},
		{"zero size ceiling", func(c *domain.Config) { c.Analysis.RemoteMaxBytes = 0 }},
		{"empty script path", func(c *domain.Config) { c.Analysis.ScriptPath = "" }},
		{"empty store path", func(c *domain.Config) { c.Store.Path = "" }},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)
			tt.mutate(m.GetConfig())
			assert.Error(t, m.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	logger = NewLogger(domain.LoggingConfig{Level: "nonsense", Format: "json"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel(), "bad levels fall back to info")
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
