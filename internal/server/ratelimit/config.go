package ratelimit

import (
	"strings"
	"time"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	enabled := config.GetEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{
			Enabled: false,
		}
	}

	defaultLimit := config.GetEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000)
	defaultWindow := config.GetEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute)
	cleanupInterval := config.GetEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute)

	whitelist := parseIPList(config.GetEnv("RATE_LIMIT_WHITELIST", ""))
	blacklist := parseIPList(config.GetEnv("RATE_LIMIT_BLACKLIST", ""))

	return &Config{
		Enabled:         enabled,
		DefaultLimit:    defaultLimit,
		DefaultWindow:   defaultWindow,
		CleanupInterval: cleanupInterval,
		IdleTimeout:     config.GetEnvDuration("RATE_LIMIT_IDLE_TIMEOUT", time.Hour),
		Whitelist:       whitelist,
		Blacklist:       blacklist,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Pipeline runs call the AI collaborators many times each
		{Path: "/campaigns/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		// Pixel and click redirects are loaded by mail clients, often in bursts
		{Path: "/track/open/", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},
		{Path: "/track/click/", Method: "GET", Limit: 600, Window: time.Minute, Burst: 60},

		{Path: "/track/unsubscribe/", Method: "GET", Limit: 30, Window: time.Minute, Burst: 10},
		{Path: "/track/unsubscribe/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 10},
		{Path: "/track/bounce", Method: "POST", Limit: 300, Window: time.Minute, Burst: 50},

		// Polling endpoints fall back to the default limit; health and metrics are unlimited
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	ips := strings.Split(list, ",")
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}

