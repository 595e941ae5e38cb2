package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() Config {
	cfg := Defaults()
	cfg.RedisURL = "redis://localhost:6379/0"
	cfg.Tracking.Secret = testSecret
	return cfg
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"port": 9090,
		"redis_url": "redis://cache:6379/1",
		"tracking": {"secret": "file-secret-0123456789", "base_url": "https://t.example.com"},
		"scheduler": {"max_per_hour": 20, "min_interval": "45s"},
		"retry": {"delay": 2}
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "https://t.example.com", cfg.Tracking.BaseURL)
	assert.Equal(t, 20, cfg.Scheduler.MaxPerHour)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.MinInterval.Duration)
	assert.Equal(t, 2*time.Second, cfg.Retry.Delay.Duration)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing redis", mutate: func(c *Config) { c.RedisURL = "" }, wantErr: "RedisURL"},
		{name: "missing secret", mutate: func(c *Config) { c.Tracking.Secret = "" }, wantErr: "TRACKING_SECRET is required"},
		{name: "short secret", mutate: func(c *Config) { c.Tracking.Secret = "short" }, wantErr: "at least 16"},
		{name: "relative base url", mutate: func(c *Config) { c.Tracking.BaseURL = "/track" }, wantErr: "absolute URL"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LogLevel"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "Port"},
		{name: "minute over hour", mutate: func(c *Config) { c.Scheduler.MaxPerMinute = 40 }, wantErr: "max_per_minute"},
		{name: "dispatch without smtp", mutate: func(c *Config) { c.Dispatch.Enabled = true }, wantErr: "SMTP"},
		{name: "bad from address", mutate: func(c *Config) { c.SMTP.From = "not-an-email" }, wantErr: "From"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{RedisURL: "redis://a", Scheduler: SchedulerConfig{MaxPerHour: 10}}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, "redis://a", merged.RedisURL)
	assert.Equal(t, 10, merged.Scheduler.MaxPerHour)
	assert.Equal(t, 2, merged.Scheduler.MaxPerMinute)
	assert.Equal(t, 30*time.Second, merged.Scheduler.MinInterval.Duration)
	assert.Equal(t, 10, merged.Pipeline.ResearchBatchSize)
	assert.Equal(t, 3, merged.Pipeline.ResearchConcurrency)
	assert.Equal(t, 3, merged.Pipeline.HTMLConcurrency)
	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, "@every 1m", merged.Dispatch.Spec)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	content := `{"redis_url": "redis://file:6379", "port": 7000, "tracking": {"secret": "file-secret-0123456789"}}`
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	t.Setenv("REDIS_URL", "redis://env:6379")
	t.Setenv("TRACKING_BASE_URL", "https://track.example.com/")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "redis://env:6379", cfg.RedisURL)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "file-secret-0123456789", cfg.Tracking.Secret)
	assert.Equal(t, "https://track.example.com", cfg.Tracking.BaseURL)
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1.5`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	out, err := json.Marshal(Duration{30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(out))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "2m")

	assert.Equal(t, 42, GetEnvInt("TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("TEST_BAD_INT", 1))
	assert.True(t, GetEnvBool("TEST_BOOL", false))
	assert.Equal(t, 2*time.Minute, GetEnvDuration("TEST_DURATION", 0))
	assert.Equal(t, "fallback", GetEnv("TEST_UNSET_VALUE", "fallback"))
}
