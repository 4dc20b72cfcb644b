package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigYAML is a minimal valid configuration.
const validConfigYAML = `
api:
  base_url: "https://records.example.gov/api"
pipeline:
  download_dir: "./Downloads"
  metadata_dir: "./metadata_output"
  batch_dir: "./pdf_text_batches"
  limit: 25
  sleep_ms: 250
retry:
  max_attempts: 3
  initial_delay_ms: 100
  max_delay_ms: 5000
  backoff_multiplier: 2.0
  timeout_sec: 30
logging:
  level: "info"
  format: "text"
`

func TestLoadConfig_Valid(t *testing.T) {
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.BaseURL != "https://records.example.gov/api" {
		t.Errorf("Unexpected base URL: %s", cfg.API.BaseURL)
	}

	if cfg.Pipeline.Limit != 25 {
		t.Errorf("Expected limit 25, got %d", cfg.Pipeline.Limit)
	}

	// Defaults fill anything the file leaves out.
	if cfg.API.AgenciesPath != "/agencies" {
		t.Errorf("Expected default agencies path, got %s", cfg.API.AgenciesPath)
	}

	if cfg.Pipeline.DatabaseFile != DefaultDatabaseFile {
		t.Errorf("Expected default database file, got %s", cfg.Pipeline.DatabaseFile)
	}
}

func TestParseConfig_DefersValidation(t *testing.T) {
	// No base_url: LoadConfig rejects this, but ParseConfig accepts it so
	// a flag override can supply the value before Validate runs.
	configPath := createTempConfigFile(t, "pipeline:\n  limit: 5\n")

	cfg, err := ParseConfig(configPath)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.Pipeline.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", cfg.Pipeline.Limit)
	}

	if !errors.Is(cfg.Validate(), ErrMissingBaseURL) {
		t.Errorf("Expected validation to fail on missing base URL, got %v", cfg.Validate())
	}

	if _, err := LoadConfig(configPath); !errors.Is(err, ErrMissingBaseURL) {
		t.Errorf("LoadConfig should reject the same file, got %v", err)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "api: [this is: not yaml")

	if _, err := LoadConfig(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, ErrMissingBaseURL},
		{"missing download dir", func(c *Config) { c.Pipeline.DownloadDir = "" }, ErrMissingDownloadDir},
		{"missing metadata dir", func(c *Config) { c.Pipeline.MetadataDir = "" }, ErrMissingMetadataDir},
		{"missing batch dir", func(c *Config) { c.Pipeline.BatchDir = "" }, ErrMissingBatchDir},
		{"negative limit", func(c *Config) { c.Pipeline.Limit = -1 }, ErrNegativeLimit},
		{"negative sleep", func(c *Config) { c.Pipeline.SleepMs = -5 }, ErrNegativeSleep},
		{"bad max attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"bad initial delay", func(c *Config) { c.Retry.InitialDelayMs = -1 }, ErrInvalidInitialDelay},
		{"bad multiplier", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, ErrInvalidBackoffMultiplier},
		{"bad timeout", func(c *Config) { c.Retry.TimeoutSec = 0 }, ErrInvalidTimeout},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.API.BaseURL = "https://records.example.gov/api"
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRetryPolicy_GetRetryDelay(t *testing.T) {
	rp := RetryPolicy{
		InitialDelayMs:    100,
		MaxDelayMs:        1000,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 0},                        // First attempt, no delay
		{2, 200 * time.Millisecond},   // 100 * 2
		{3, 400 * time.Millisecond},   // 100 * 2 * 2
		{4, 800 * time.Millisecond},   // 100 * 2 * 2 * 2
		{5, 1000 * time.Millisecond},  // Capped at max
		{10, 1000 * time.Millisecond}, // Still capped
	}

	for _, tt := range tests {
		got := rp.GetRetryDelay(tt.attempt)
		if got != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DatabasePath() != filepath.Join(DefaultMetadataDir, DefaultDatabaseFile) {
		t.Errorf("Unexpected database path: %s", cfg.DatabasePath())
	}

	if cfg.LegacyPath() != filepath.Join(DefaultDownloadDir, DefaultLegacyFile) {
		t.Errorf("Unexpected legacy path: %s", cfg.LegacyPath())
	}

	cfg.Pipeline.SleepMs = 1500
	if cfg.SleepBetweenDownloads() != 1500*time.Millisecond {
		t.Errorf("Unexpected sleep duration: %v", cfg.SleepBetweenDownloads())
	}
}
