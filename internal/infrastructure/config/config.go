package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for addrslips.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ProjectConfig names the project archive the CLI works on when none is
// given on the command line.
type ProjectConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig tunes the archive store behind every open project.
type StoreConfig struct {
	// PoolSize bounds the number of pooled SQLite connections.
	PoolSize int `yaml:"pool_size"`

	// BusyTimeout is the SQLite lock wait in seconds.
	BusyTimeout int `yaml:"busy_timeout"`

	// CompressionLevel is the zstd level used when packing archives.
	CompressionLevel int `yaml:"compression_level"`

	// TempDir is where working directories are unpacked. Empty means os.TempDir().
	TempDir string `yaml:"temp_dir"`

	// ImageCacheTTL is how long decoded area images stay cached (seconds).
	// Zero disables caching.
	ImageCacheTTL int `yaml:"image_cache_ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the file written in the Prometheus text exposition format
	// when a command finishes.
	Path string `yaml:"path"`
}

// Store tuning limits.
const (
	maxPoolSize         = 64
	minCompressionLevel = 1
	maxCompressionLevel = 22
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips step 2. Environment variables follow the pattern
// ADDRSLIPS_SECTION_KEY, for example ADDRSLIPS_PROJECT_PATH.
//
// Parameters:
//   - path: Path to the YAML configuration file, or ""
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional is Load, except a missing file falls back to defaults.
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return Load(path)
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			PoolSize:         5,
			BusyTimeout:      5,
			CompressionLevel: 3,
			ImageCacheTTL:    300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Path: "addrslips.prom",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ADDRSLIPS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADDRSLIPS_PROJECT_PATH"); v != "" {
		cfg.Project.Path = v
	}

	if v := os.Getenv("ADDRSLIPS_STORE_TEMP_DIR"); v != "" {
		cfg.Store.TempDir = v
	}
	if v := os.Getenv("ADDRSLIPS_STORE_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.PoolSize = n
		}
	}

	if v := os.Getenv("ADDRSLIPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ADDRSLIPS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("ADDRSLIPS_METRICS_PATH"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Path = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Store.PoolSize < 1 || c.Store.PoolSize > maxPoolSize {
		errs = append(errs, fmt.Sprintf("store.pool_size must be between 1 and %d", maxPoolSize))
	}
	if c.Store.BusyTimeout < 0 {
		errs = append(errs, "store.busy_timeout must not be negative")
	}
	if c.Store.CompressionLevel < minCompressionLevel || c.Store.CompressionLevel > maxCompressionLevel {
		errs = append(errs, fmt.Sprintf("store.compression_level must be between %d and %d",
			minCompressionLevel, maxCompressionLevel))
	}
	if c.Store.ImageCacheTTL < 0 {
		errs = append(errs, "store.image_cache_ttl must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		errs = append(errs, "metrics.path is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetImageCacheTTL returns the image cache lifetime as a Duration.
func (c *Config) GetImageCacheTTL() time.Duration {
	return time.Duration(c.Store.ImageCacheTTL) * time.Second
}
