// Package client builds Feldera API clients from datasource settings.
package client

import (
	"fmt"
	"time"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/models"
	"feldera-grafana-plugin/pkg/utils"
)

// ClientConfig holds configuration options for the Feldera client
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RetryCount        int // total attempts for idempotent requests
	RetryDelay        time.Duration
	UserAgent         string
	RequestsPerSecond float64 // zero disables rate limiting
}

// DefaultConfig returns a ClientConfig with sensible defaults
func DefaultConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    utils.DefaultBaseURL,
		Timeout:    models.DefaultTimeout,
		RetryCount: 3,
		RetryDelay: 500 * time.Millisecond,
		UserAgent:  utils.UserAgent,
	}
}

// ClientError represents an error specifically related to Feldera client operations.
type ClientError struct {
	Msg string
	Err error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feldera client error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("feldera client error: %s", e.Msg)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// ClientFactory defines an interface for creating Feldera clients.
type ClientFactory interface {
	CreateClient(config ClientConfig) (feldera.Client, error)
}

// DefaultClientFactory creates HTTP clients talking to a live Feldera instance.
type DefaultClientFactory struct{}

// CreateClient implements the ClientFactory interface.
func (f *DefaultClientFactory) CreateClient(config ClientConfig) (feldera.Client, error) {
	return New(config)
}

// NewClient initializes a Feldera client from the datasource settings
// using the given factory.
func NewClient(settings *models.PluginSettings, factory ClientFactory) (feldera.Client, error) {
	if settings == nil {
		return nil, &ClientError{Msg: "plugin settings are required"}
	}

	config := DefaultConfig()
	config.BaseURL = settings.BaseURL
	if settings.Timeout > 0 {
		config.Timeout = settings.Timeout
	}
	config.RequestsPerSecond = settings.RequestsPerSecond
	if settings.Secrets != nil {
		config.APIKey = settings.Secrets.ApiKey
	}

	return factory.CreateClient(config)
}
