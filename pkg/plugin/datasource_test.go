package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"feldera-grafana-plugin/pkg/client"
	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/health"
	"feldera-grafana-plugin/pkg/testutil"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFactory struct {
	client feldera.Client
}

func (f *fakeFactory) CreateClient(client.ClientConfig) (feldera.Client, error) {
	return f.client, nil
}

// newTestDatasource builds a datasource whose Feldera client is fake.
func newTestDatasource(t *testing.T, fake *testutil.FakeClient, pipeline string) *Datasource {
	t.Helper()

	original := clientFactory
	clientFactory = &fakeFactory{client: fake}
	t.Cleanup(func() { clientFactory = original })

	inst, err := NewDatasource(context.Background(), *testutil.CreateTestSettings(t, "http://feldera:8080", pipeline, ""))
	require.NoError(t, err)
	return inst.(*Datasource)
}

func TestNewDatasource(t *testing.T) {
	ds, err := NewDatasource(context.Background(), backend.DataSourceInstanceSettings{})
	require.NoError(t, err)
	assert.NotNil(t, ds)
}

func TestNewDatasource_InvalidSettings(t *testing.T) {
	_, err := NewDatasource(context.Background(), backend.DataSourceInstanceSettings{JSONData: []byte(`invalid json`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load plugin settings")

	_, err = NewDatasource(context.Background(), backend.DataSourceInstanceSettings{JSONData: []byte(`{"baseUrl": "feldera:8080"}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create Feldera client")
}

func TestDispose(t *testing.T) {
	ds, err := NewDatasource(context.Background(), backend.DataSourceInstanceSettings{})
	require.NoError(t, err)
	// Should not panic
	ds.(*Datasource).Dispose()
}

func TestQueryData(t *testing.T) {
	fake := testutil.NewFakeClient()
	fake.Result = testutil.CreateTestResult(t, `{"n":1}`)
	ds := newTestDatasource(t, fake, "otel")

	tests := []struct {
		name    string
		queries []backend.DataQuery
		calls   int
	}{
		{
			name:    "empty queries",
			queries: []backend.DataQuery{},
		},
		{
			name: "single query",
			queries: []backend.DataQuery{
				testutil.CreateTestQuery(t, "A", "SELECT 1 AS n"),
			},
			calls: 1,
		},
		{
			name: "query without text is not sent",
			queries: []backend.DataQuery{
				{RefID: "A"},
				testutil.CreateTestQuery(t, "B", "SELECT 1 AS n"),
			},
			calls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(fake.Queries())

			resp, err := ds.QueryData(context.Background(), &backend.QueryDataRequest{Queries: tt.queries})
			require.NoError(t, err)
			assert.Len(t, resp.Responses, len(tt.queries))
			for _, q := range tt.queries {
				assert.NoError(t, resp.Responses[q.RefID].Error, q.RefID)
			}
			assert.Equal(t, tt.calls, len(fake.Queries())-before)
		})
	}
}

func TestQueryData_ManyQueries(t *testing.T) {
	fake := testutil.NewFakeClient()
	ds := newTestDatasource(t, fake, "otel")

	queries := make([]backend.DataQuery, 3*maxConcurrentQueries)
	for i := range queries {
		queries[i] = testutil.CreateTestQuery(t, fmt.Sprintf("Q%d", i), fmt.Sprintf("SELECT %d", i))
	}

	resp, err := ds.QueryData(context.Background(), &backend.QueryDataRequest{Queries: queries})
	require.NoError(t, err)
	assert.Len(t, resp.Responses, len(queries))
	assert.Len(t, fake.Queries(), len(queries))
}

func TestQueryData_PerQueryErrors(t *testing.T) {
	fake := testutil.NewFakeClient()
	fake.Err = errors.New("connection refused")
	ds := newTestDatasource(t, fake, "otel")

	resp, err := ds.QueryData(context.Background(), &backend.QueryDataRequest{
		Queries: []backend.DataQuery{testutil.CreateTestQuery(t, "A", "SELECT 1")},
	})
	require.NoError(t, err)
	require.Error(t, resp.Responses["A"].Error)
	assert.Equal(t, backend.StatusBadGateway, resp.Responses["A"].Status)
}

func TestCheckHealth(t *testing.T) {
	original := health.ExecuteHealthCheck
	t.Cleanup(func() { health.ExecuteHealthCheck = original })

	tests := []struct {
		name     string
		settings *backend.DataSourceInstanceSettings
		check    func(context.Context, backend.DataSourceInstanceSettings) (*backend.CheckHealthResult, error)
		status   backend.HealthStatus
		message  string
	}{
		{
			name:     "healthy",
			settings: testutil.CreateTestSettings(t, "http://feldera:8080", "otel", ""),
			check: func(context.Context, backend.DataSourceInstanceSettings) (*backend.CheckHealthResult, error) {
				return &backend.CheckHealthResult{Status: backend.HealthStatusOk, Message: "ok"}, nil
			},
			status:  backend.HealthStatusOk,
			message: "ok",
		},
		{
			name:     "internal error",
			settings: testutil.CreateTestSettings(t, "http://feldera:8080", "otel", ""),
			check: func(context.Context, backend.DataSourceInstanceSettings) (*backend.CheckHealthResult, error) {
				return nil, errors.New("boom")
			},
			status:  backend.HealthStatusError,
			message: "internal error: boom",
		},
		{
			name:     "missing settings",
			settings: nil,
			status:   backend.HealthStatusError,
			message:  "no datasource settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health.ExecuteHealthCheck = tt.check

			ds := &Datasource{}
			resp, err := ds.CheckHealth(context.Background(), &backend.CheckHealthRequest{
				PluginContext: testutil.CreateTestPluginContext(t, tt.settings),
			})
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.Status)
			assert.Contains(t, resp.Message, tt.message)
		})
	}
}

// callResource invokes a resource path and returns the status and body.
func callResource(t *testing.T, ds *Datasource, path string) (int, []byte) {
	t.Helper()

	var got *backend.CallResourceResponse
	err := ds.CallResource(context.Background(), &backend.CallResourceRequest{
		Method: http.MethodGet,
		Path:   path,
		URL:    path,
	}, backend.CallResourceResponseSenderFunc(func(res *backend.CallResourceResponse) error {
		got = res
		return nil
	}))
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Status, got.Body
}

func TestCallResource_Pipelines(t *testing.T) {
	fake := testutil.NewFakeClient(
		feldera.Pipeline{Name: "otel", ProgramCode: "CREATE TABLE t (x INT);", ProgramStatus: "Success", DeploymentStatus: "Running"},
		feldera.Pipeline{Name: "fraud", ProgramStatus: "SqlError", DeploymentStatus: "Stopped"},
	)
	ds := newTestDatasource(t, fake, "otel")

	status, body := callResource(t, ds, "pipelines")
	require.Equal(t, http.StatusOK, status)

	var pipelines []pipelineSummary
	require.NoError(t, json.Unmarshal(body, &pipelines))
	assert.Equal(t, []pipelineSummary{
		{Name: "fraud", ProgramStatus: "SqlError", DeploymentStatus: "Stopped"},
		{Name: "otel", ProgramStatus: "Success", DeploymentStatus: "Running"},
	}, pipelines)
	assert.NotContains(t, string(body), "CREATE TABLE")
}

func TestCallResource_Pipeline(t *testing.T) {
	ds := newTestDatasource(t, testutil.NewFakeClient(feldera.Pipeline{Name: "otel", DeploymentStatus: "Running"}), "otel")

	status, body := callResource(t, ds, "pipelines/otel")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name": "otel", "deploymentStatus": "Running"}`, string(body))

	status, body = callResource(t, ds, "pipelines/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "unknown pipeline missing")
}

func TestCallResource_Unavailable(t *testing.T) {
	fake := testutil.NewFakeClient()
	fake.Err = errors.New("connection refused")
	ds := newTestDatasource(t, fake, "otel")

	status, _ := callResource(t, ds, "pipelines")
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestCallResource_Macros(t *testing.T) {
	ds := newTestDatasource(t, testutil.NewFakeClient(), "otel")

	status, body := callResource(t, ds, "macros")
	require.Equal(t, http.StatusOK, status)

	var macros []string
	require.NoError(t, json.Unmarshal(body, &macros))
	assert.Contains(t, macros, "$__timeFilter")
}

func TestCallResource_ConfigFields(t *testing.T) {
	ds := newTestDatasource(t, testutil.NewFakeClient(), "otel")

	status, body := callResource(t, ds, "config-fields")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"label":"API Key"`)
}

func TestCallResource_Stats(t *testing.T) {
	fake := testutil.NewFakeClient()
	fake.Result = testutil.CreateTestResult(t, `{"n":1}`)
	ds := newTestDatasource(t, fake, "otel")

	_, err := ds.QueryData(context.Background(), &backend.QueryDataRequest{
		Queries: []backend.DataQuery{testutil.CreateTestQuery(t, "A", "SELECT 1 AS n")},
	})
	require.NoError(t, err)

	status, body := callResource(t, ds, "stats")
	require.Equal(t, http.StatusOK, status)

	var stats queryStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.GreaterOrEqual(t, stats.Queries, uint64(1))
	assert.NotZero(t, stats.LastQueryAtUnix)
}

func TestCallResource_UnknownPath(t *testing.T) {
	ds := newTestDatasource(t, testutil.NewFakeClient(), "otel")

	status, _ := callResource(t, ds, "tables")
	assert.Equal(t, http.StatusNotFound, status)
}
