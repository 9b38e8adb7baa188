package models

import (
	"maps"

	"feldera-grafana-plugin/pkg/utils"

	"github.com/samber/lo"
)

// DataSourceOptions is the editable state of a datasource configuration:
// the plain options, the configured flags of the secure fields, and any
// secure value entered but not yet saved.
type DataSourceOptions struct {
	JSONData         Options         `json:"jsonData"`
	SecureJSONFields map[string]bool `json:"secureJsonFields,omitempty"`
	SecureJSONData   *SecureJSONData `json:"secureJsonData,omitempty"`
}

// WithBaseURL returns a copy of the options with the base URL replaced.
func (o DataSourceOptions) WithBaseURL(baseURL string) DataSourceOptions {
	c := o.clone()
	c.JSONData.BaseURL = lo.ToPtr(baseURL)
	return c
}

// WithPipeline returns a copy of the options with the pipeline replaced.
func (o DataSourceOptions) WithPipeline(pipeline string) DataSourceOptions {
	c := o.clone()
	c.JSONData.Pipeline = lo.ToPtr(pipeline)
	return c
}

// WithAPIKey returns a copy of the options holding a pending API key.
func (o DataSourceOptions) WithAPIKey(apiKey string) DataSourceOptions {
	c := o.clone()
	c.SecureJSONData = &SecureJSONData{APIKey: lo.ToPtr(apiKey)}
	return c
}

// ResetAPIKey clears the configured flag of the API key together with any
// pending plaintext value.
func (o DataSourceOptions) ResetAPIKey() DataSourceOptions {
	c := o.clone()
	if c.SecureJSONFields == nil {
		c.SecureJSONFields = map[string]bool{}
	}
	c.SecureJSONFields[apiKeyField] = false

	if c.SecureJSONData == nil {
		c.SecureJSONData = &SecureJSONData{}
	}
	c.SecureJSONData.APIKey = lo.ToPtr("")
	return c
}

// IsAPIKeyConfigured reports whether a saved API key exists.
func (o DataSourceOptions) IsAPIKeyConfigured() bool {
	return o.SecureJSONFields[apiKeyField]
}

// PendingAPIKey returns the API key entered but not yet saved.
func (o DataSourceOptions) PendingAPIKey() string {
	if o.SecureJSONData == nil {
		return ""
	}
	return lo.FromPtr(o.SecureJSONData.APIKey)
}

func (o DataSourceOptions) clone() DataSourceOptions {
	c := DataSourceOptions{
		JSONData: Options{
			BaseURL:              clonePtr(o.JSONData.BaseURL),
			Pipeline:             clonePtr(o.JSONData.Pipeline),
			TimeoutSeconds:       clonePtr(o.JSONData.TimeoutSeconds),
			MaxRequestsPerSecond: clonePtr(o.JSONData.MaxRequestsPerSecond),
		},
		SecureJSONFields: maps.Clone(o.SecureJSONFields),
	}
	if o.SecureJSONData != nil {
		c.SecureJSONData = &SecureJSONData{APIKey: clonePtr(o.SecureJSONData.APIKey)}
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return lo.ToPtr(*p)
}

// ConfigField describes one field of the configuration editor.
type ConfigField struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Tooltip     string `json:"tooltip"`
	Secret      bool   `json:"secret,omitempty"`
}

// ConfigFields returns the fields of the configuration editor in display order.
func ConfigFields() []ConfigField {
	return []ConfigField{
		{
			Key:         "baseUrl",
			ID:          "config-editor-base-url",
			Label:       "Base Url",
			Placeholder: utils.DefaultBaseURL,
			Tooltip:     "Base Url of Your Feldera Instance",
		},
		{
			Key:         "pipeline",
			ID:          "config-editor-pipeline",
			Label:       "Pipeline",
			Placeholder: "Enter the feldera pipeline name, e.g. otel",
			Tooltip:     "Name of the Feldera Pipeline",
		},
		{
			Key:         apiKeyField,
			ID:          "config-editor-api-key",
			Label:       "API Key",
			Placeholder: "Enter your API key",
			Tooltip:     "Feldera API Key",
			Secret:      true,
		},
	}
}
