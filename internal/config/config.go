// Package config provides unified configuration loading for geomood.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/geomood/internal/constants"
	"github.com/nvandessel/geomood/internal/datefmt"
	"github.com/nvandessel/geomood/internal/llm"
	"github.com/nvandessel/geomood/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. GEOMOOD_LLM_PROVIDER.
const EnvPrefix = "GEOMOOD_"

// FileName is the config file inside the global data directory.
const FileName = "config.yaml"

// GeomoodConfig contains all geomood configuration settings.
type GeomoodConfig struct {
	// World sizes the sediment simulation.
	World WorldConfig `json:"world" yaml:"world" envPrefix:"WORLD_"`

	// Dates controls how date markers are labelled.
	Dates DatesConfig `json:"dates" yaml:"dates" envPrefix:"DATES_"`

	// LLM contains settings for gem appraisal.
	LLM LLMConfig `json:"llm" yaml:"llm" envPrefix:"LLM_"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging" envPrefix:"LOG_"`

	// Backup controls backup format and retention.
	Backup BackupConfig `json:"backup" yaml:"backup" envPrefix:"BACKUP_"`
}

// BackupConfig configures journal backups.
type BackupConfig struct {
	// Compression selects the V2 gzip format. When false, backups are
	// plain V1 JSON arrays.
	Compression bool `json:"compression" yaml:"compression" env:"COMPRESSION"`

	Retention RetentionConfig `json:"retention" yaml:"retention" envPrefix:"RETENTION_"`
}

// RetentionConfig bounds the backups kept in the default backup directory.
// A backup is kept if any configured limit keeps it.
type RetentionConfig struct {
	// MaxCount keeps the N newest backups.
	MaxCount int `json:"max_count" yaml:"max_count" env:"MAX_COUNT"`

	// MaxAge keeps backups younger than this, e.g. "30d" or "2w".
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty" env:"MAX_AGE"`

	// MaxTotalSize keeps backups while their total stays under this, e.g. "100MB".
	MaxTotalSize string `json:"max_total_size,omitempty" yaml:"max_total_size,omitempty" env:"MAX_TOTAL_SIZE"`
}

// WorldConfig sizes the simulated world.
type WorldConfig struct {
	// Columns is the world width in grains.
	Columns int `json:"columns" yaml:"columns" env:"COLUMNS"`

	// GrainSize is the rendered edge length of one grain, in pixels.
	GrainSize int `json:"grain_size" yaml:"grain_size" env:"GRAIN_SIZE"`
}

// DatesConfig configures date marker labels.
type DatesConfig struct {
	// Locale is a BCP 47 tag such as "zh-CN" or "en-GB".
	Locale string `json:"locale" yaml:"locale" env:"LOCALE"`

	// Timezone is an IANA zone name, or "Local".
	Timezone string `json:"timezone" yaml:"timezone" env:"TIMEZONE"`

	// Layout overrides the locale's layout with a Go time layout.
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty" env:"LAYOUT"`
}

// LoggingConfig configures geomood's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "error", "warn", "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .geomood/decisions.jsonl.
	// "trace" additionally includes entry content and appraisal cards.
	Level string `json:"level" yaml:"level" env:"LEVEL"`
}

// LLMConfig configures the gem appraiser.
type LLMConfig struct {
	// Provider identifies the backend: "openai", "ollama", or "" for disabled.
	Provider string `json:"provider" yaml:"provider" env:"PROVIDER"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	// Not required for ollama.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"API_KEY"`

	// BaseURL is the API endpoint URL. Used for ollama or custom OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"BASE_URL"`

	// Model is the model used for appraisals.
	Model string `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`

	// Timeout bounds each appraisal request, not the waits between retries.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`

	// MaxRetries bounds attempts on rate-limit and server errors.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty" env:"MAX_RETRIES"`

	// Enabled indicates whether gems are appraised by a model at all.
	Enabled bool `json:"enabled" yaml:"enabled" env:"ENABLED"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Enabled:%t, APIKey:%s, Model:%s}",
		c.Provider, c.Enabled, c.RedactedAPIKey(), c.Model)
}

// ClientConfig converts the section to the appraiser's config. A disabled
// section yields an empty provider, which selects the fallback appraiser.
func (c LLMConfig) ClientConfig() llm.ClientConfig {
	cc := llm.DefaultConfig()
	if !c.Enabled {
		return cc
	}
	cc.Provider = c.Provider
	cc.APIKey = c.APIKey
	cc.BaseURL = c.BaseURL
	cc.Model = c.Model
	if c.Timeout > 0 {
		cc.Timeout = c.Timeout
	}
	if c.MaxRetries > 0 {
		cc.MaxRetries = c.MaxRetries
	}
	return cc
}

// Default returns a GeomoodConfig with sensible defaults.
func Default() *GeomoodConfig {
	return &GeomoodConfig{
		World: WorldConfig{
			Columns:   constants.LogicalColumns,
			GrainSize: constants.GrainSize,
		},
		Dates: DatesConfig{
			Locale:   datefmt.DefaultLocale,
			Timezone: "Local",
		},
		LLM: LLMConfig{
			Provider:   "",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			Enabled:    false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Compression: true,
			Retention: RetentionConfig{
				MaxCount: 10,
			},
		},
	}
}

// Path returns the default config file location, ~/.geomood/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, constants.DataDirName, FileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.geomood/config.yaml -> environment variables
func Load() (*GeomoodConfig, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*GeomoodConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *GeomoodConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *GeomoodConfig) Validate() error {
	if c.World.Columns <= 0 {
		return fmt.Errorf("columns must be positive, got %d", c.World.Columns)
	}
	if c.World.GrainSize <= 0 {
		return fmt.Errorf("grain_size must be positive, got %d", c.World.GrainSize)
	}

	if _, err := datefmt.LayoutFor(c.Dates.Locale); err != nil {
		return fmt.Errorf("invalid locale: %w", err)
	}
	if _, err := datefmt.LoadLocation(c.Dates.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", c.LLM.MaxRetries)
	}

	validProviders := map[string]bool{"": true, "openai": true, "ollama": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: openai, ollama, or empty)", c.LLM.Provider)
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Backup.Retention.MaxCount < 0 {
		return fmt.Errorf("retention max_count must be non-negative, got %d", c.Backup.Retention.MaxCount)
	}

	return nil
}

// DateFormatter builds the date labeler described by the dates section.
func (c *GeomoodConfig) DateFormatter() (*datefmt.Formatter, error) {
	return datefmt.New(c.Dates.Locale, c.Dates.Timezone, c.Dates.Layout)
}

// applyEnvOverrides applies GEOMOOD_* environment variables, then the
// provider-specific key and host variables.
func applyEnvOverrides(config *GeomoodConfig) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.LLM.Provider == "openai" && config.LLM.APIKey == "" {
		config.LLM.APIKey = v
	}

	// Ollama uses OLLAMA_HOST for base URL (no API key needed)
	if config.LLM.Provider == "ollama" && config.LLM.BaseURL == "" {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.LLM.BaseURL = v
		}
	}

	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
