package models

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataSourceOptions_Edits(t *testing.T) {
	original := DataSourceOptions{}

	edited := original.
		WithBaseURL("http://feldera:8080").
		WithPipeline("otel").
		WithAPIKey("apikey:abc")

	assert.Equal(t, "http://feldera:8080", lo.FromPtr(edited.JSONData.BaseURL))
	assert.Equal(t, "otel", lo.FromPtr(edited.JSONData.Pipeline))
	assert.Equal(t, "apikey:abc", edited.PendingAPIKey())

	assert.Nil(t, original.JSONData.BaseURL)
	assert.Nil(t, original.JSONData.Pipeline)
	assert.Nil(t, original.SecureJSONData)
}

func TestDataSourceOptions_ResetAPIKey(t *testing.T) {
	configured := DataSourceOptions{
		JSONData:         Options{Pipeline: lo.ToPtr("otel")},
		SecureJSONFields: map[string]bool{"apiKey": true},
		SecureJSONData:   &SecureJSONData{APIKey: lo.ToPtr("pending")},
	}
	require.True(t, configured.IsAPIKeyConfigured())

	reset := configured.ResetAPIKey()

	assert.False(t, reset.IsAPIKeyConfigured())
	assert.Equal(t, "", reset.PendingAPIKey())
	assert.Equal(t, "otel", lo.FromPtr(reset.JSONData.Pipeline))

	// the state the reset started from is untouched
	assert.True(t, configured.IsAPIKeyConfigured())
	assert.Equal(t, "pending", configured.PendingAPIKey())
}

func TestDataSourceOptions_ResetAPIKeyFromEmpty(t *testing.T) {
	reset := DataSourceOptions{}.ResetAPIKey()

	assert.False(t, reset.IsAPIKeyConfigured())
	require.NotNil(t, reset.SecureJSONData)
	assert.Equal(t, "", reset.PendingAPIKey())
}

func TestDataSourceOptions_SecretsStayOutOfJSONData(t *testing.T) {
	opts := DataSourceOptions{}.WithBaseURL("http://feldera:8080").WithAPIKey("apikey:abc")

	b, err := json.Marshal(opts.JSONData)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "apikey:abc")
	assert.JSONEq(t, `{"baseUrl": "http://feldera:8080"}`, string(b))
}

func TestConfigFields(t *testing.T) {
	fields := ConfigFields()

	labels := lo.Map(fields, func(f ConfigField, _ int) string { return f.Label })
	assert.Equal(t, []string{"Base Url", "Pipeline", "API Key"}, labels)

	secret := lo.Filter(fields, func(f ConfigField, _ int) bool { return f.Secret })
	require.Len(t, secret, 1)
	assert.Equal(t, "apiKey", secret[0].Key)
	assert.Equal(t, "http://localhost:8080", fields[0].Placeholder)
}

func TestDataSourceOptions_Provision(t *testing.T) {
	opts := DataSourceOptions{}.
		WithBaseURL("http://feldera:8080").
		WithPipeline("otel").
		WithAPIKey("apikey:abc")

	ds := opts.Provision("Feldera")

	assert.Equal(t, "Feldera", ds.Name)
	assert.Equal(t, "feldera-datasource", ds.Type)
	assert.Equal(t, "proxy", ds.Access)
	assert.Equal(t, map[string]any{"baseUrl": "http://feldera:8080", "pipeline": "otel"}, ds.JSONData)
	assert.Equal(t, map[string]string{"apiKey": "apikey:abc"}, ds.SecureJSONData)

	withoutKey := opts.ResetAPIKey().Provision("Feldera")
	assert.Nil(t, withoutKey.SecureJSONData)

	p := NewProvisioning(ds, ProvisionedDataSource{})
	assert.Equal(t, 1, p.APIVersion)
	assert.Len(t, p.Datasources, 1)
}
