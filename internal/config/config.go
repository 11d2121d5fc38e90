// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so values like "10s" and "500ms" can be
// written in YAML.
type Duration time.Duration

// UnmarshalYAML parses a duration string; bare integers are taken as
// nanoseconds, matching time.Duration itself.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if parsed, err := time.ParseDuration(value.Value); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds HTTP server configuration for the sync API.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// StorageConfig holds the filesystem locations shared with the
// external packager.
type StorageConfig struct {
	HLSDir      string `yaml:"hls_dir"`
	IndexDBPath string `yaml:"index_db_path"`
}

// IngestConfig holds segment ingestion configuration.
type IngestConfig struct {
	SegmentDuration float64  `yaml:"segment_duration"`
	SettleWindow    Duration `yaml:"settle_window"`
}

// SyncConfig holds timestamp resolution configuration.
type SyncConfig struct {
	DriftTolerance       float64 `yaml:"drift_tolerance"`
	DefaultOCRConfidence float64 `yaml:"default_ocr_confidence"`
}

// RateLimiterConfig holds API rate limiting configuration.
type RateLimiterConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// CORSConfig holds cross-origin configuration for the browser player.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MetricsConfig holds Prometheus exposure configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete configuration shared by syncd and indexerd.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Sync        SyncConfig        `yaml:"sync"`
	RateLimiter RateLimiterConfig `yaml:"rate_limiter"`
	CORS        CORSConfig        `yaml:"cors"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoadConfig loads configuration from a file, applies defaults, and
// validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(15 * time.Second)
	}
	if cfg.Storage.HLSDir == "" {
		cfg.Storage.HLSDir = "/storage/hls"
	}
	if cfg.Storage.IndexDBPath == "" {
		cfg.Storage.IndexDBPath = "/storage/index/segments.db"
	}
	if cfg.Ingest.SegmentDuration == 0 {
		cfg.Ingest.SegmentDuration = 2
	}
	if cfg.Ingest.SettleWindow == 0 {
		cfg.Ingest.SettleWindow = Duration(500 * time.Millisecond)
	}
	if cfg.Sync.DriftTolerance == 0 {
		cfg.Sync.DriftTolerance = 5
	}
	if cfg.Sync.DefaultOCRConfidence == 0 {
		cfg.Sync.DefaultOCRConfidence = 0.8
	}
	if cfg.RateLimiter.RequestsPerSecond == 0 {
		cfg.RateLimiter.RequestsPerSecond = 50
	}
	if cfg.RateLimiter.BurstSize == 0 {
		cfg.RateLimiter.BurstSize = 100
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Ingest.SegmentDuration <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v", c.Ingest.SegmentDuration)
	}
	if c.Sync.DriftTolerance < 0 {
		return fmt.Errorf("drift tolerance cannot be negative, got %v", c.Sync.DriftTolerance)
	}
	if c.Sync.DefaultOCRConfidence < 0 || c.Sync.DefaultOCRConfidence > 1 {
		return fmt.Errorf("default ocr confidence must be in [0,1], got %v", c.Sync.DefaultOCRConfidence)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
