// Package config loads the ambient settings for the context runtime: the
// default lineage's strictness posture, structured-logging format, and the
// optional Prometheus/Redis mirrors. It uses a struct-of-structs JSON
// config plus environment-variable overrides.
package config

import (
	"encoding/json"
	"os"
	"strings"
)

// RuntimeConfig controls the default lineage created at process start.
type RuntimeConfig struct {
	DefaultStrictControllers bool `json:"default_strict_controllers"` // Default: false
	DefaultStrictSegments    bool `json:"default_strict_segments"`    // Default: false
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`   // Default: false
	Namespace string `json:"namespace"` // ctxguard
}

// LineageMirrorConfig holds the optional Redis lineage-mirror settings.
type LineageMirrorConfig struct {
	Enabled bool   `json:"enabled"` // Default: false
	Addr    string `json:"addr"`    // localhost:6379
	KeyName string `json:"key_name"`
}

// Config is the central configuration struct embedding every component's
// settings.
type Config struct {
	Runtime       RuntimeConfig       `json:"runtime"`
	Logging       LoggingConfig       `json:"logging"`
	Metrics       MetricsConfig       `json:"metrics"`
	LineageMirror LineageMirrorConfig `json:"lineage_mirror"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			DefaultStrictControllers: false,
			DefaultStrictSegments:    false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "ctxguard",
		},
		LineageMirror: LineageMirrorConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			KeyName: "ctxguard:lineages",
		},
	}
}

// LoadFromFile loads configuration from a JSON file, falling back to
// DefaultConfig for any field the file omits.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("CTXGUARD_STRICT_CONTROLLERS"); v != "" {
		cfg.Runtime.DefaultStrictControllers = parseBool(v)
	}
	if v := os.Getenv("CTXGUARD_STRICT_SEGMENTS"); v != "" {
		cfg.Runtime.DefaultStrictSegments = parseBool(v)
	}
	if v := os.Getenv("CTXGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CTXGUARD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CTXGUARD_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CTXGUARD_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
	if v := os.Getenv("CTXGUARD_LINEAGE_MIRROR_ENABLED"); v != "" {
		cfg.LineageMirror.Enabled = parseBool(v)
	}
	if v := os.Getenv("CTXGUARD_LINEAGE_MIRROR_ADDR"); v != "" {
		cfg.LineageMirror.Addr = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
