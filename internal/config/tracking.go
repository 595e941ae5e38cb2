package config

import (
	"fmt"
	"net/url"
)

// minTrackingSecretLength is the shortest HMAC secret accepted for signing tracking IDs
const minTrackingSecretLength = 16

// TrackingConfig holds the signing secret and public base URL for tracking links.
type TrackingConfig struct {
	Secret  string `json:"secret,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// normalize validates the configuration.
func (c *TrackingConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("TRACKING_SECRET is required but not set")
	}
	if len(c.Secret) < minTrackingSecretLength {
		return fmt.Errorf("TRACKING_SECRET must be at least %d characters, got: %d", minTrackingSecretLength, len(c.Secret))
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TRACKING_BASE_URL must be an absolute URL, got: %q", c.BaseURL)
	}
	return nil
}
