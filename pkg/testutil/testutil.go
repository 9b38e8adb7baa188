// Package testutil holds builders and fakes shared by the plugin's tests.
package testutil

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"feldera-grafana-plugin/pkg/feldera"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/data"
	"github.com/stretchr/testify/require"
)

// MockTimeNow returns a fixed time for testing
func MockTimeNow() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

// TestTimeRange is the hour ending at MockTimeNow.
func TestTimeRange() backend.TimeRange {
	return backend.TimeRange{
		From: MockTimeNow().Add(-1 * time.Hour),
		To:   MockTimeNow(),
	}
}

// CreateTestQuery creates a test query with the given refID and query text
func CreateTestQuery(t *testing.T, refID string, queryText string) backend.DataQuery {
	t.Helper()
	return CreateTestQueryModel(t, refID, map[string]any{"queryText": queryText})
}

// CreateTestQueryModel creates a test query from an arbitrary query model
func CreateTestQueryModel(t *testing.T, refID string, model map[string]any) backend.DataQuery {
	t.Helper()

	jsonBytes, err := json.Marshal(model)
	require.NoError(t, err)

	return backend.DataQuery{
		RefID:         refID,
		JSON:          jsonBytes,
		Interval:      time.Minute,
		MaxDataPoints: 1000,
		TimeRange:     TestTimeRange(),
	}
}

// CreateTestSettings creates test datasource settings
func CreateTestSettings(t *testing.T, baseURL string, pipeline string, apiKey string) *backend.DataSourceInstanceSettings {
	t.Helper()

	jsonData, err := json.Marshal(map[string]any{
		"baseUrl":  baseURL,
		"pipeline": pipeline,
	})
	require.NoError(t, err)

	settings := &backend.DataSourceInstanceSettings{
		UID:      "feldera-test",
		Name:     "Feldera",
		JSONData: jsonData,
	}
	if apiKey != "" {
		settings.DecryptedSecureJSONData = map[string]string{"apiKey": apiKey}
	}
	return settings
}

// AssertFrameFields checks if a data frame has the expected fields
func AssertFrameFields(t *testing.T, frame *data.Frame, expectedFields []string) {
	t.Helper()

	require.Equal(t, len(expectedFields), len(frame.Fields), "number of fields")
	for i, field := range frame.Fields {
		require.Equal(t, expectedFields[i], field.Name, "field name")
	}
}

// CreateTestPluginContext creates a test plugin context
func CreateTestPluginContext(t *testing.T, settings *backend.DataSourceInstanceSettings) backend.PluginContext {
	t.Helper()
	return backend.PluginContext{
		DataSourceInstanceSettings: settings,
	}
}

// CreateTestResult builds a query result from one JSON object per row.
func CreateTestResult(t *testing.T, rows ...string) *feldera.QueryResult {
	t.Helper()
	result, err := feldera.ParseRows(strings.Join(rows, "\n"))
	require.NoError(t, err)
	return result
}
