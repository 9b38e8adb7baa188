package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"feldera-grafana-plugin/pkg/utils"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/samber/lo"
)

const (
	// DefaultTimeout bounds a single request to Feldera when no timeout is configured
	DefaultTimeout = 30 * time.Second

	apiKeyField = "apiKey"
)

// PluginSettingsError represents an error specifically related to plugin settings.
type PluginSettingsError struct {
	Msg string
	Err error // Wrapped error
}

func (e *PluginSettingsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plugin settings error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("plugin settings error: %s", e.Msg)
}

func (e *PluginSettingsError) Unwrap() error {
	return e.Err
}

// Options are the non-secret settings stored in the datasource jsonData.
type Options struct {
	BaseURL              *string  `json:"baseUrl,omitempty"`
	Pipeline             *string  `json:"pipeline,omitempty"`
	TimeoutSeconds       *int     `json:"timeoutSeconds,omitempty"`
	MaxRequestsPerSecond *float64 `json:"maxRequestsPerSecond,omitempty"`
}

// SecureJSONData holds the values Grafana stores encrypted and never sends
// back to the browser.
type SecureJSONData struct {
	APIKey *string `json:"apiKey,omitempty"`
}

// PluginSettings holds the resolved configuration of one Feldera datasource.
type PluginSettings struct {
	BaseURL           string
	Pipeline          string
	Timeout           time.Duration
	RequestsPerSecond float64 // zero disables rate limiting
	Secrets           *SecretPluginSettings
}

// SecretPluginSettings holds sensitive data like API keys.
type SecretPluginSettings struct {
	ApiKey string
}

// LoadPluginSettings unmarshals the JSON data and decrypted secure JSON data
// from Grafana's DataSourceInstanceSettings into a PluginSettings struct.
// Missing values resolve to their defaults.
func LoadPluginSettings(source backend.DataSourceInstanceSettings) (*PluginSettings, error) {
	options := Options{}
	if len(source.JSONData) > 0 {
		if err := json.Unmarshal(source.JSONData, &options); err != nil {
			return nil, &PluginSettingsError{Msg: "could not unmarshal PluginSettings JSON", Err: err}
		}
	}

	settings, err := options.Resolve()
	if err != nil {
		return nil, err
	}

	settings.Secrets = loadSecretPluginSettings(source.DecryptedSecureJSONData)

	return settings, nil
}

// Resolve applies defaults to the options and checks their ranges.
func (o Options) Resolve() (*PluginSettings, error) {
	baseURL := strings.TrimSpace(lo.FromPtr(o.BaseURL))
	if baseURL == "" {
		baseURL = utils.DefaultBaseURL
	}

	timeout := DefaultTimeout
	if o.TimeoutSeconds != nil {
		if *o.TimeoutSeconds < 0 {
			return nil, &PluginSettingsError{Msg: fmt.Sprintf("timeout must not be negative, got %d", *o.TimeoutSeconds)}
		}
		if *o.TimeoutSeconds > 0 {
			timeout = time.Duration(*o.TimeoutSeconds) * time.Second
		}
	}

	rps := lo.FromPtr(o.MaxRequestsPerSecond)
	if rps < 0 {
		return nil, &PluginSettingsError{Msg: fmt.Sprintf("max requests per second must not be negative, got %g", rps)}
	}

	return &PluginSettings{
		BaseURL:           strings.TrimRight(baseURL, "/"),
		Pipeline:          strings.TrimSpace(lo.FromPtr(o.Pipeline)),
		Timeout:           timeout,
		RequestsPerSecond: rps,
		Secrets:           &SecretPluginSettings{},
	}, nil
}

// loadSecretPluginSettings extracts secure data from the decrypted map.
// Feldera instances may run without authentication, so the API key is optional.
func loadSecretPluginSettings(source map[string]string) *SecretPluginSettings {
	return &SecretPluginSettings{
		ApiKey: strings.TrimSpace(source[apiKeyField]),
	}
}
