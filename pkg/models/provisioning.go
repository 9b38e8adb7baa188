package models

import (
	"feldera-grafana-plugin/pkg/utils"

	"github.com/samber/lo"
)

// Provisioning is a Grafana datasource provisioning file.
type Provisioning struct {
	APIVersion  int                     `yaml:"apiVersion"`
	Datasources []ProvisionedDataSource `yaml:"datasources"`
}

// ProvisionedDataSource is one datasource entry of a provisioning file.
type ProvisionedDataSource struct {
	Name           string            `yaml:"name"`
	Type           string            `yaml:"type"`
	Access         string            `yaml:"access"`
	IsDefault      bool              `yaml:"isDefault,omitempty"`
	Editable       bool              `yaml:"editable"`
	JSONData       map[string]any    `yaml:"jsonData,omitempty"`
	SecureJSONData map[string]string `yaml:"secureJsonData,omitempty"`
}

// Provision renders the options as a provisioning entry. Only the pending
// API key can be provisioned since saved secrets are never readable.
func (o DataSourceOptions) Provision(name string) ProvisionedDataSource {
	ds := ProvisionedDataSource{
		Name:     name,
		Type:     utils.PluginID,
		Access:   "proxy",
		Editable: true,
		JSONData: map[string]any{},
	}

	if o.JSONData.BaseURL != nil {
		ds.JSONData["baseUrl"] = *o.JSONData.BaseURL
	}
	if o.JSONData.Pipeline != nil {
		ds.JSONData["pipeline"] = *o.JSONData.Pipeline
	}
	if o.JSONData.TimeoutSeconds != nil {
		ds.JSONData["timeoutSeconds"] = *o.JSONData.TimeoutSeconds
	}
	if o.JSONData.MaxRequestsPerSecond != nil {
		ds.JSONData["maxRequestsPerSecond"] = *o.JSONData.MaxRequestsPerSecond
	}

	if key := o.PendingAPIKey(); key != "" {
		ds.SecureJSONData = map[string]string{apiKeyField: key}
	}

	return ds
}

// NewProvisioning wraps datasource entries in a provisioning file.
func NewProvisioning(datasources ...ProvisionedDataSource) Provisioning {
	return Provisioning{
		APIVersion:  1,
		Datasources: lo.Filter(datasources, func(ds ProvisionedDataSource, _ int) bool { return ds.Name != "" }),
	}
}
