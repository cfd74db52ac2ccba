package domain

import (
	"time"
)

// BuiltinAnalyzer is the script_path sentinel selecting the embedded
// analysis engine instead of an external analyzer program.
const BuiltinAnalyzer = "builtin"

// Config represents the main application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Store    StoreConfig    `mapstructure:"store"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	JobTTL         time.Duration `mapstructure:"job_ttl"`
}

// AnalysisConfig represents dispatcher and backend configuration.
type AnalysisConfig struct {
	DefaultPatientID string        `mapstructure:"default_patient_id"`
	Endpoint         string        `mapstructure:"endpoint"` // base URL of the remote analysis service
	RemoteTimeout    time.Duration `mapstructure:"remote_timeout"`
	RemoteMaxBytes   int64         `mapstructure:"remote_max_bytes"`
	ProjectRoot      string        `mapstructure:"project_root"`
	Interpreter      string        `mapstructure:"interpreter"`   // optional, program run directly when empty
	ScriptPath       string        `mapstructure:"script_path"`   // analyzer program, or BuiltinAnalyzer for the embedded engine
	LocalTimeout     time.Duration `mapstructure:"local_timeout"` // 0 disables the local deadline
	ResultCacheSize  int           `mapstructure:"result_cache_size"`
}

// StoreConfig represents the run-history store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"` // sqlite database file
}

// CacheConfig represents the optional distributed result cache.
type CacheConfig struct {
	RedisURL   string        `mapstructure:"redis_url"` // empty disables the cache
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}
