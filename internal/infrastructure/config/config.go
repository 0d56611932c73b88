// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	autoConfirm := cfg.Thresholds.AutoConfirm
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file LoadOrEnv looks for.
const DefaultPath = "config.yaml"

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Matching      MatchingConfig      `yaml:"matching"`
	Thresholds    ThresholdsConfig    `yaml:"thresholds"`
	Batch         BatchConfig         `yaml:"batch"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MatchingConfig holds the candidate window and scoring tolerances
type MatchingConfig struct {
	DateWindowDays  int     `yaml:"date_window_days"`
	AmountTolerance float64 `yaml:"amount_tolerance"`
	AmountFloor     float64 `yaml:"amount_floor"`
	SearchTolerance float64 `yaml:"search_tolerance"`
}

// ThresholdsConfig holds the confidence levels that gate confirmation
type ThresholdsConfig struct {
	AutoConfirm float64 `yaml:"auto_confirm"`
	Review      float64 `yaml:"review"`
}

// BatchConfig holds batch reconciliation settings
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" (default) or "json"
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{DatabasePath: "reconciler.db"},
		Matching: MatchingConfig{
			DateWindowDays:  45,
			AmountTolerance: 0.15,
			AmountFloor:     2,
			SearchTolerance: 0.50,
		},
		Thresholds: ThresholdsConfig{AutoConfirm: 0.85, Review: 0.70},
		Batch:      BatchConfig{Workers: 4},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file. Missing fields take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECONCILER_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	// Fields the file leaves out keep their defaults. search_tolerance is
	// derived from amount_tolerance when unset, so it starts empty.
	cfg := Default()
	cfg.Matching.SearchTolerance = 0
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Default()
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILER_DB_PATH", d.Storage.DatabasePath),
		},
		Matching: MatchingConfig{
			DateWindowDays:  getEnvInt("RECONCILER_DATE_WINDOW_DAYS", d.Matching.DateWindowDays),
			AmountTolerance: getEnvFloat("RECONCILER_AMOUNT_TOLERANCE", d.Matching.AmountTolerance),
			AmountFloor:     getEnvFloat("RECONCILER_AMOUNT_FLOOR", d.Matching.AmountFloor),
			SearchTolerance: getEnvFloat("RECONCILER_SEARCH_TOLERANCE", d.Matching.SearchTolerance),
		},
		Thresholds: ThresholdsConfig{
			AutoConfirm: getEnvFloat("RECONCILER_AUTO_CONFIRM", d.Thresholds.AutoConfirm),
			Review:      getEnvFloat("RECONCILER_REVIEW", d.Thresholds.Review),
		},
		Batch: BatchConfig{
			Workers: getEnvInt("RECONCILER_WORKERS", d.Batch.Workers),
		},
		API: APIConfig{
			Port:           getEnvInt("RECONCILER_PORT", d.API.Port),
			AllowedOrigins: getEnvList("RECONCILER_ALLOWED_ORIGINS", d.API.AllowedOrigins),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath(DefaultPath)
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks that tolerances and thresholds are usable.
func (c *Config) Validate() error {
	m := c.Matching
	if m.DateWindowDays <= 0 {
		return fmt.Errorf("matching.date_window_days must be positive, got %d", m.DateWindowDays)
	}
	if m.AmountTolerance <= 0 {
		return fmt.Errorf("matching.amount_tolerance must be positive, got %v", m.AmountTolerance)
	}
	if m.AmountFloor < 0 {
		return fmt.Errorf("matching.amount_floor must not be negative, got %v", m.AmountFloor)
	}
	if m.SearchTolerance < m.AmountTolerance {
		return fmt.Errorf("matching.search_tolerance (%v) must be at least amount_tolerance (%v)",
			m.SearchTolerance, m.AmountTolerance)
	}

	t := c.Thresholds
	if t.Review < 0 || t.AutoConfirm > 1 || t.Review > t.AutoConfirm {
		return fmt.Errorf("thresholds must satisfy 0 <= review <= auto_confirm <= 1, got review=%v auto_confirm=%v",
			t.Review, t.AutoConfirm)
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	return nil
}

// applyDefaults fills zero values. Thresholds are only defaulted as a pair
// so an explicit RECONCILER_REVIEW=0 is preserved.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = d.Storage.DatabasePath
	}
	if c.Matching.DateWindowDays == 0 {
		c.Matching.DateWindowDays = d.Matching.DateWindowDays
	}
	if c.Matching.AmountTolerance == 0 {
		c.Matching.AmountTolerance = d.Matching.AmountTolerance
	}
	if c.Matching.AmountFloor == 0 {
		c.Matching.AmountFloor = d.Matching.AmountFloor
	}
	if c.Matching.SearchTolerance == 0 {
		c.Matching.SearchTolerance = max(d.Matching.SearchTolerance, c.Matching.AmountTolerance)
	}
	if c.Thresholds.AutoConfirm == 0 && c.Thresholds.Review == 0 {
		c.Thresholds = d.Thresholds
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = d.Batch.Workers
	}
	if c.API.Port == 0 {
		c.API.Port = d.API.Port
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = d.API.AllowedOrigins
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = d.Observability.Logging.Level
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = d.Observability.Logging.Format
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(val, 64); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList retrieves a comma-separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
