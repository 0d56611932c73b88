package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "books.db"
matching:
  date_window_days: 30
  amount_tolerance: 0.10
thresholds:
  auto_confirm: 0.9
  review: 0.6
batch:
  workers: 8
api:
  port: 9090
  allowed_origins: ["https://books.example.com"]
observability:
  logging:
    level: debug
    format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "books.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 30, cfg.Matching.DateWindowDays)
	assert.Equal(t, 0.10, cfg.Matching.AmountTolerance)
	assert.Equal(t, 2.0, cfg.Matching.AmountFloor)     // defaulted
	assert.Equal(t, 0.50, cfg.Matching.SearchTolerance) // defaulted
	assert.Equal(t, 0.9, cfg.Thresholds.AutoConfirm)
	assert.Equal(t, 0.6, cfg.Thresholds.Review)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, []string{"https://books.example.com"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialThresholdsKeepDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "thresholds:\n  auto_confirm: 0.9\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Thresholds.AutoConfirm)
	assert.Equal(t, 0.70, cfg.Thresholds.Review)
}

func TestLoad_ExplicitZeroReviewIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "thresholds:\n  review: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.Thresholds.AutoConfirm)
	assert.Zero(t, cfg.Thresholds.Review)
}

func TestLoad_SearchToleranceFollowsAmountTolerance(t *testing.T) {
	cfg, err := Load(writeConfig(t, "matching:\n  amount_tolerance: 0.6\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Matching.SearchTolerance)
	assert.Equal(t, 45, cfg.Matching.DateWindowDays)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	path := writeConfig(t, `
thresholds:
  auto_confirm: 0.6
  review: 0.8
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review <= auto_confirm")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "matching: [unclosed"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECONCILER_DB_PATH", "test.db")
	t.Setenv("RECONCILER_DATE_WINDOW_DAYS", "60")
	t.Setenv("RECONCILER_AUTO_CONFIRM", "0.95")
	t.Setenv("RECONCILER_WORKERS", "2")
	t.Setenv("RECONCILER_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg := LoadFromEnv()
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 60, cfg.Matching.DateWindowDays)
	assert.Equal(t, 0.95, cfg.Thresholds.AutoConfirm)
	assert.Equal(t, 0.70, cfg.Thresholds.Review)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.API.AllowedOrigins)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("RECONCILER_DB_PATH", "")
	t.Setenv("RECONCILER_WORKERS", "not-a-number")

	cfg := LoadFromEnv()
	assert.Equal(t, "reconciler.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	// Test fallback when config file doesn't exist
	t.Setenv("RECONCILER_DB_PATH", "fallback.db")

	cfg := LoadOrEnvWithPath(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "expanded.db")
	t.Setenv("TEST_LOG_LEVEL", "warn")

	path := writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
observability:
  logging:
    level: "${TEST_LOG_LEVEL}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Matching.DateWindowDays = 0 }},
		{"negative floor", func(c *Config) { c.Matching.AmountFloor = -1 }},
		{"search narrower than scoring", func(c *Config) { c.Matching.SearchTolerance = 0.05 }},
		{"auto above one", func(c *Config) { c.Thresholds.AutoConfirm = 1.5 }},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
