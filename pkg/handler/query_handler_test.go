package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/models"
	"feldera-grafana-plugin/pkg/testutil"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQueryExecutor implements the feldera.QueryExecutor interface for testing
type mockQueryExecutor struct {
	result   *feldera.QueryResult
	queryErr error

	pipeline string
	sql      []string
}

func (m *mockQueryExecutor) Query(ctx context.Context, pipeline string, sql string) (*feldera.QueryResult, error) {
	m.pipeline = pipeline
	m.sql = append(m.sql, sql)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.result == nil {
		return feldera.ParseRows(`{"count":42}`)
	}
	return m.result, nil
}

var testSettings = &models.PluginSettings{
	BaseURL:  "http://localhost:8080",
	Pipeline: "otel",
	Secrets:  &models.SecretPluginSettings{},
}

func TestHandleQuery(t *testing.T) {
	tests := []struct {
		name           string
		query          backend.DataQuery
		executor       *mockQueryExecutor
		settings       *models.PluginSettings
		expectedStatus backend.Status
		expectedFrames int
		expectedCalls  int
	}{
		{
			name:           "valid query",
			query:          testutil.CreateTestQuery(t, "A", "SELECT count(*) FROM spans"),
			executor:       &mockQueryExecutor{},
			settings:       testSettings,
			expectedStatus: backend.StatusOK,
			expectedFrames: 1,
			expectedCalls:  1,
		},
		{
			name:           "empty query text is skipped",
			query:          testutil.CreateTestQuery(t, "A", ""),
			executor:       &mockQueryExecutor{},
			settings:       testSettings,
			expectedStatus: backend.StatusOK,
		},
		{
			name:           "absent query text is skipped",
			query:          testutil.CreateTestQueryModel(t, "A", map[string]any{"format": "table"}),
			executor:       &mockQueryExecutor{},
			settings:       testSettings,
			expectedStatus: backend.StatusOK,
		},
		{
			name:           "hidden query is skipped",
			query:          testutil.CreateTestQueryModel(t, "A", map[string]any{"queryText": "SELECT 1", "hide": true}),
			executor:       &mockQueryExecutor{},
			settings:       testSettings,
			expectedStatus: backend.StatusOK,
		},
		{
			name:           "invalid query JSON",
			query:          backend.DataQuery{RefID: "A", JSON: []byte(`{`)},
			executor:       &mockQueryExecutor{},
			settings:       testSettings,
			expectedStatus: backend.StatusBadRequest,
		},
		{
			name:           "macro without argument",
			query:          testutil.CreateTestQuery(t, "A", "SELECT * FROM spans WHERE $__timeFilter()"),
			executor:       &mockQueryExecutor{},
			settings:       testSettings,
			expectedStatus: backend.StatusBadRequest,
		},
		{
			name:           "no pipeline configured",
			query:          testutil.CreateTestQuery(t, "A", "SELECT 1"),
			executor:       &mockQueryExecutor{},
			settings:       &models.PluginSettings{},
			expectedStatus: backend.StatusBadRequest,
		},
		{
			name:           "feldera unavailable",
			query:          testutil.CreateTestQuery(t, "A", "SELECT 1"),
			executor:       &mockQueryExecutor{queryErr: &feldera.APIError{StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}},
			settings:       testSettings,
			expectedStatus: backend.StatusBadGateway,
			expectedCalls:  1,
		},
		{
			name:           "invalid credentials",
			query:          testutil.CreateTestQuery(t, "A", "SELECT 1"),
			executor:       &mockQueryExecutor{queryErr: &feldera.APIError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}},
			settings:       testSettings,
			expectedStatus: backend.StatusUnauthorized,
			expectedCalls:  1,
		},
		{
			name:           "sql rejected by feldera",
			query:          testutil.CreateTestQuery(t, "A", "SELEC 1"),
			executor:       &mockQueryExecutor{queryErr: &feldera.APIError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: "parse error"}},
			settings:       testSettings,
			expectedStatus: backend.StatusBadRequest,
			expectedCalls:  1,
		},
		{
			name:           "transport failure",
			query:          testutil.CreateTestQuery(t, "A", "SELECT 1"),
			executor:       &mockQueryExecutor{queryErr: errors.New("connection refused")},
			settings:       testSettings,
			expectedStatus: backend.StatusBadGateway,
			expectedCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleQuery(context.Background(), tt.executor, tt.settings, tt.query)
			require.NotNil(t, resp)

			if tt.expectedStatus == backend.StatusOK {
				assert.NoError(t, resp.Error)
				assert.Len(t, resp.Frames, tt.expectedFrames)
			} else {
				assert.Error(t, resp.Error)
				assert.Equal(t, tt.expectedStatus, resp.Status)
				assert.Nil(t, resp.Frames)
			}
			assert.Len(t, tt.executor.sql, tt.expectedCalls)
		})
	}
}

func TestHandleQuery_ErrorSource(t *testing.T) {
	downstream := HandleQuery(context.Background(), &mockQueryExecutor{queryErr: errors.New("connection refused")}, testSettings,
		testutil.CreateTestQuery(t, "A", "SELECT 1"))
	assert.Equal(t, backend.ErrorSourceDownstream, downstream.ErrorSource)

	plugin := HandleQuery(context.Background(), &mockQueryExecutor{}, testSettings, backend.DataQuery{RefID: "A", JSON: []byte(`{`)})
	assert.Equal(t, backend.ErrorSourcePlugin, plugin.ErrorSource)
}

func TestHandleQuery_TemplateVariablesAndMacros(t *testing.T) {
	executor := &mockQueryExecutor{}
	dq := testutil.CreateTestQueryModel(t, "A", map[string]any{
		"queryText": "SELECT * FROM $table WHERE $__timeFilter(ts) AND service IN (${services:sqlstring}) LIMIT $__interval_ms",
		"scopedVars": map[string]any{
			"table":    map[string]any{"value": "spans"},
			"services": map[string]any{"value": []string{"api", "web"}},
		},
	})

	resp := HandleQuery(context.Background(), executor, testSettings, dq)
	require.NoError(t, resp.Error)

	require.Len(t, executor.sql, 1)
	assert.Equal(t,
		"SELECT * FROM spans WHERE ts BETWEEN '2023-12-31T23:00:00Z' AND '2024-01-01T00:00:00Z' AND service IN ('api','web') LIMIT 60000",
		executor.sql[0])
	assert.Equal(t, "otel", executor.pipeline)

	require.Len(t, resp.Frames, 1)
	require.NotNil(t, resp.Frames[0].Meta)
	assert.Equal(t, executor.sql[0], resp.Frames[0].Meta.ExecutedQueryString)
}

func TestHandleQuery_FrameNamedByRefID(t *testing.T) {
	executor := &mockQueryExecutor{
		result: testutil.CreateTestResult(t, `{"service":"api","spans":3}`, `{"service":"web","spans":4}`),
	}

	resp := HandleQuery(context.Background(), executor, testSettings, testutil.CreateTestQuery(t, "B", "SELECT service, count(*) AS spans FROM spans GROUP BY service"))
	require.NoError(t, resp.Error)
	require.Len(t, resp.Frames, 1)
	assert.Equal(t, "B", resp.Frames[0].Name)
	testutil.AssertFrameFields(t, resp.Frames[0], []string{"service", "spans"})
}

func TestHandleQuery_NilExecutor(t *testing.T) {
	resp := HandleQuery(context.Background(), nil, testSettings, testutil.CreateTestQuery(t, "A", "SELECT 1"))
	require.Error(t, resp.Error)
	assert.Contains(t, resp.Error.Error(), "executor is nil")
}

func TestQueryExecutionError(t *testing.T) {
	inner := errors.New("boom")
	err := &QueryExecutionError{Query: "SELECT 1", Msg: "failed", Err: inner}

	assert.Equal(t, "query execution error for 'SELECT 1': failed: boom", err.Error())
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), inner)
	assert.Equal(t, "query execution error for 'SELECT 1': failed", (&QueryExecutionError{Query: "SELECT 1", Msg: "failed"}).Error())
}
