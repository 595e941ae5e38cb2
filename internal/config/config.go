// Package config provides configuration loading and validation for the outreach engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full service configuration.
// Values come from the environment first; a JSON file may fill in anything left empty.
type Config struct {
	Port         int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	DatabaseURL  string `json:"database_url,omitempty"`
	RedisURL     string `json:"redis_url,omitempty" validate:"required"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	LogLevel     string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`

	Tracking  TrackingConfig  `json:"tracking"`
	SMTP      SMTPConfig      `json:"smtp"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Retry     RetryConfig     `json:"retry"`
	Dispatch  DispatchConfig  `json:"dispatch"`
}

// SMTPConfig configures the outbound mail transport
type SMTPConfig struct {
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	From     string `json:"from,omitempty" validate:"omitempty,email"`
	FromName string `json:"from_name,omitempty"`
}

// Enabled reports whether enough SMTP settings are present to send mail
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// PipelineConfig bounds the orchestrator's fan-out
type PipelineConfig struct {
	ResearchBatchSize   int `json:"research_batch_size,omitempty" validate:"gte=0"`
	ResearchConcurrency int `json:"research_concurrency,omitempty" validate:"gte=0"`
	HTMLConcurrency     int `json:"html_concurrency,omitempty" validate:"gte=0"`
}

// SchedulerConfig holds the velocity limits
type SchedulerConfig struct {
	MaxPerHour   int      `json:"max_per_hour,omitempty" validate:"gte=0"`
	MaxPerMinute int      `json:"max_per_minute,omitempty" validate:"gte=0"`
	MinInterval  Duration `json:"min_interval,omitempty"`
	Seed         int64    `json:"seed,omitempty"` // 0 means seed from the clock
}

// RetryConfig bounds task-level retries of transient failures
type RetryConfig struct {
	MaxAttempts int      `json:"max_attempts,omitempty" validate:"gte=0"`
	Delay       Duration `json:"delay,omitempty"`
}

// DispatchConfig configures the send dispatcher
type DispatchConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Spec      string `json:"spec,omitempty"`       // cron spec, e.g. "@every 1m"
	BatchSize int    `json:"batch_size,omitempty" validate:"gte=0"`
}

// Defaults returns the configuration used for anything not set elsewhere
func Defaults() Config {
	return Config{
		Port:     8080,
		LogLevel: "info",
		Tracking: TrackingConfig{BaseURL: "http://localhost:8080"},
		Pipeline: PipelineConfig{
			ResearchBatchSize:   10,
			ResearchConcurrency: 3,
			HTMLConcurrency:     3,
		},
		Scheduler: SchedulerConfig{
			MaxPerHour:   30,
			MaxPerMinute: 2,
			MinInterval:  Duration{30 * time.Second},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       Duration{5 * time.Second},
		},
		Dispatch: DispatchConfig{
			Spec:      "@every 1m",
			BatchSize: 50,
		},
	}
}

// FromEnv reads every setting from the environment without applying defaults
func FromEnv() Config {
	return Config{
		Port:         GetEnvInt("PORT", 0),
		DatabaseURL:  GetEnv("DATABASE_URL", ""),
		RedisURL:     GetEnv("REDIS_URL", ""),
		GeminiAPIKey: GetEnv("GEMINI_API_KEY", ""),
		LogLevel:     GetEnv("LOG_LEVEL", ""),
		Tracking: TrackingConfig{
			Secret:  GetEnv("TRACKING_SECRET", ""),
			BaseURL: GetEnv("TRACKING_BASE_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     GetEnv("SMTP_HOST", ""),
			Port:     GetEnv("SMTP_PORT", ""),
			User:     GetEnv("SMTP_USER", ""),
			Password: GetEnv("SMTP_PASSWORD", ""),
			From:     GetEnv("SMTP_FROM", ""),
			FromName: GetEnv("SMTP_FROM_NAME", ""),
		},
		Pipeline: PipelineConfig{
			ResearchBatchSize:   GetEnvInt("PIPELINE_RESEARCH_BATCH_SIZE", 0),
			ResearchConcurrency: GetEnvInt("PIPELINE_RESEARCH_CONCURRENCY", 0),
			HTMLConcurrency:     GetEnvInt("PIPELINE_HTML_CONCURRENCY", 0),
		},
		Scheduler: SchedulerConfig{
			MaxPerHour:   GetEnvInt("SCHEDULER_MAX_PER_HOUR", 0),
			MaxPerMinute: GetEnvInt("SCHEDULER_MAX_PER_MINUTE", 0),
			MinInterval:  Duration{GetEnvDuration("SCHEDULER_MIN_INTERVAL", 0)},
			Seed:         int64(GetEnvInt("SCHEDULER_SEED", 0)),
		},
		Retry: RetryConfig{
			MaxAttempts: GetEnvInt("RETRY_MAX_ATTEMPTS", 0),
			Delay:       Duration{GetEnvDuration("RETRY_DELAY", 0)},
		},
		Dispatch: DispatchConfig{
			Enabled:   GetEnvBool("DISPATCH_ENABLED", false),
			Spec:      GetEnv("DISPATCH_SPEC", ""),
			BatchSize: GetEnvInt("DISPATCH_BATCH_SIZE", 0),
		},
	}
}

// Load builds the effective configuration: environment, then the optional JSON file
// for anything still empty, then defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}
	cfg = cfg.MergeWithDefaults(Defaults())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if err := c.Tracking.normalize(); err != nil {
		return err
	}

	if c.Scheduler.MaxPerMinute > c.Scheduler.MaxPerHour && c.Scheduler.MaxPerHour > 0 {
		return fmt.Errorf("config error: 'max_per_minute' cannot exceed 'max_per_hour'")
	}
	if c.Scheduler.MinInterval.Duration < 0 {
		return fmt.Errorf("config error: 'min_interval' must be non-negative")
	}
	if c.Retry.Delay.Duration < 0 {
		return fmt.Errorf("config error: 'retry.delay' must be non-negative")
	}
	if c.Dispatch.Enabled && !c.SMTP.Enabled() {
		return fmt.Errorf("config error: dispatch is enabled but SMTP host/from are not set")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	result.DatabaseURL = firstNonEmpty(result.DatabaseURL, defaults.DatabaseURL)
	result.RedisURL = firstNonEmpty(result.RedisURL, defaults.RedisURL)
	result.GeminiAPIKey = firstNonEmpty(result.GeminiAPIKey, defaults.GeminiAPIKey)
	result.LogLevel = firstNonEmpty(result.LogLevel, defaults.LogLevel)

	result.Tracking.Secret = firstNonEmpty(result.Tracking.Secret, defaults.Tracking.Secret)
	result.Tracking.BaseURL = strings.TrimRight(firstNonEmpty(result.Tracking.BaseURL, defaults.Tracking.BaseURL), "/")

	result.SMTP.Host = firstNonEmpty(result.SMTP.Host, defaults.SMTP.Host)
	result.SMTP.Port = firstNonEmpty(result.SMTP.Port, defaults.SMTP.Port)
	result.SMTP.User = firstNonEmpty(result.SMTP.User, defaults.SMTP.User)
	result.SMTP.Password = firstNonEmpty(result.SMTP.Password, defaults.SMTP.Password)
	result.SMTP.From = firstNonEmpty(result.SMTP.From, defaults.SMTP.From)
	result.SMTP.FromName = firstNonEmpty(result.SMTP.FromName, defaults.SMTP.FromName)

	result.Pipeline.ResearchBatchSize = firstPositive(result.Pipeline.ResearchBatchSize, defaults.Pipeline.ResearchBatchSize)
	result.Pipeline.ResearchConcurrency = firstPositive(result.Pipeline.ResearchConcurrency, defaults.Pipeline.ResearchConcurrency)
	result.Pipeline.HTMLConcurrency = firstPositive(result.Pipeline.HTMLConcurrency, defaults.Pipeline.HTMLConcurrency)

	result.Scheduler.MaxPerHour = firstPositive(result.Scheduler.MaxPerHour, defaults.Scheduler.MaxPerHour)
	result.Scheduler.MaxPerMinute = firstPositive(result.Scheduler.MaxPerMinute, defaults.Scheduler.MaxPerMinute)
	if result.Scheduler.MinInterval.Duration == 0 {
		result.Scheduler.MinInterval = defaults.Scheduler.MinInterval
	}
	if result.Scheduler.Seed == 0 {
		result.Scheduler.Seed = defaults.Scheduler.Seed
	}

	result.Retry.MaxAttempts = firstPositive(result.Retry.MaxAttempts, defaults.Retry.MaxAttempts)
	if result.Retry.Delay.Duration == 0 {
		result.Retry.Delay = defaults.Retry.Delay
	}

	// Bool fields: cannot distinguish unset from false, so only true propagates
	result.Dispatch.Enabled = result.Dispatch.Enabled || defaults.Dispatch.Enabled
	result.Dispatch.Spec = firstNonEmpty(result.Dispatch.Spec, defaults.Dispatch.Spec)
	result.Dispatch.BatchSize = firstPositive(result.Dispatch.BatchSize, defaults.Dispatch.BatchSize)

	return result
}

func firstNonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func firstPositive(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
