// Package config provides configuration management for the harvest pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default file and directory names for the persisted stores.
const (
	DefaultDownloadDir   = "Downloads"
	DefaultMetadataDir   = "metadata_output"
	DefaultBatchDir      = "pdf_text_batches"
	DefaultDatabaseFile  = "downloaded_files_database.csv"
	DefaultRunOutputFile = "latest_downloaded_metadata.csv"
	DefaultLegacyFile    = "facility_information_metadata.csv"
)

// Configuration validation errors.
var (
	ErrMissingBaseURL           = errors.New("api.base_url is required")
	ErrMissingDownloadDir       = errors.New("pipeline.download_dir is required")
	ErrMissingMetadataDir       = errors.New("pipeline.metadata_dir is required")
	ErrMissingBatchDir          = errors.New("pipeline.batch_dir is required")
	ErrNegativeLimit            = errors.New("pipeline.limit must be non-negative")
	ErrNegativeSleep            = errors.New("pipeline.sleep_ms must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Config represents the complete harvester configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Retry    RetryPolicy    `yaml:"retry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig describes the remote agency directory API.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	AgenciesPath string `yaml:"agencies_path"`
	ContentPath  string `yaml:"content_path"`
	DownloadPath string `yaml:"download_path"`
}

// PipelineConfig contains directory layout and run behavior.
type PipelineConfig struct {
	DownloadDir    string `yaml:"download_dir"`
	MetadataDir    string `yaml:"metadata_dir"`
	BatchDir       string `yaml:"batch_dir"`
	DatabaseFile   string `yaml:"database_file"`
	RunOutputFile  string `yaml:"run_output_file"`
	LegacyFile     string `yaml:"legacy_file"`
	Limit          int    `yaml:"limit"`
	SleepMs        int    `yaml:"sleep_ms"`
	SkipExtraction bool   `yaml:"skip_extraction"`
}

// RetryPolicy defines HTTP retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with the standard store layout
// and a conservative retry policy.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			AgenciesPath: "/agencies",
			ContentPath:  "/content",
			DownloadPath: "/download",
		},
		Pipeline: PipelineConfig{
			DownloadDir:   DefaultDownloadDir,
			MetadataDir:   DefaultMetadataDir,
			BatchDir:      DefaultBatchDir,
			DatabaseFile:  DefaultDatabaseFile,
			RunOutputFile: DefaultRunOutputFile,
			LegacyFile:    DefaultLegacyFile,
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ParseConfig reads a YAML file onto the defaults without validating.
// Callers that layer overrides on top (CLI flags) validate afterwards;
// everyone else should use LoadConfig.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads and validates configuration from a YAML file on top
// of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ParseConfig(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if c.Pipeline.DownloadDir == "" {
		return ErrMissingDownloadDir
	}

	if c.Pipeline.MetadataDir == "" {
		return ErrMissingMetadataDir
	}

	if c.Pipeline.BatchDir == "" {
		return ErrMissingBatchDir
	}

	if c.Pipeline.Limit < 0 {
		return ErrNegativeLimit
	}

	if c.Pipeline.SleepMs < 0 {
		return ErrNegativeSleep
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	return nil
}

// DatabasePath returns the cumulative record database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Pipeline.MetadataDir, c.Pipeline.DatabaseFile)
}

// RunOutputPath returns the run-specific output CSV location.
func (c *Config) RunOutputPath() string {
	return filepath.Join(c.Pipeline.MetadataDir, c.Pipeline.RunOutputFile)
}

// LegacyPath returns the legacy metadata file location. Historical runs
// kept this file alongside the downloads themselves.
func (c *Config) LegacyPath() string {
	return filepath.Join(c.Pipeline.DownloadDir, c.Pipeline.LegacyFile)
}

// SleepBetweenDownloads returns the courtesy delay applied after each
// successful download.
func (c *Config) SleepBetweenDownloads() time.Duration {
	return time.Duration(c.Pipeline.SleepMs) * time.Millisecond
}

// GetRetryDelay computes the backoff delay before the given attempt.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}
