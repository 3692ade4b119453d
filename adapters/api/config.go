package api

import (
	"time"

	"datalens/internal/config"
)

// ClientConfig holds the settings for the dataset API client
type ClientConfig struct {
	BaseURL string
	Token   string
	// Timeout of 0 imposes no deadline on backend calls.
	Timeout time.Duration
	// UserAgent is sent on every request when set
	UserAgent string
}

// FromConfig builds a ClientConfig from application configuration
func FromConfig(cfg config.BackendConfig) ClientConfig {
	return ClientConfig{
		BaseURL:   cfg.BaseURL,
		Token:     cfg.Token,
		Timeout:   cfg.Timeout,
		UserAgent: "datalens",
	}
}
