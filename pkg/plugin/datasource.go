// Package plugin implements the Feldera Grafana datasource plugin.
// It runs dashboard queries as ad-hoc SQL against a Feldera pipeline.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"feldera-grafana-plugin/pkg/client"
	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/handler"
	"feldera-grafana-plugin/pkg/health"
	"feldera-grafana-plugin/pkg/models"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/instancemgmt"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/backend/resource/httpadapter"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentQueries bounds how many queries of one request run at once.
const maxConcurrentQueries = 8

var (
	_ backend.QueryDataHandler      = (*Datasource)(nil)
	_ backend.CheckHealthHandler    = (*Datasource)(nil)
	_ backend.CallResourceHandler   = (*Datasource)(nil)
	_ instancemgmt.InstanceDisposer = (*Datasource)(nil)
)

// clientFactory builds the Feldera client of each datasource instance.
var clientFactory client.ClientFactory = &client.DefaultClientFactory{}

// Datasource implements the Feldera Grafana datasource plugin.
// It handles data queries, health checks, and resource calls.
type Datasource struct {
	settings        *models.PluginSettings
	client          feldera.Client
	resourceHandler backend.CallResourceHandler
}

// NewDatasource creates a new instance of the Feldera datasource.
// It is called by the Grafana plugin SDK when a datasource is created or its
// settings change.
func NewDatasource(ctx context.Context, settings backend.DataSourceInstanceSettings) (instancemgmt.Instance, error) {
	config, err := models.LoadPluginSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin settings: %w", err)
	}

	felderaClient, err := client.NewClient(config, clientFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to create Feldera client: %w", err)
	}

	ds := &Datasource{
		settings: config,
		client:   felderaClient,
	}
	ds.resourceHandler = httpadapter.New(ds.routes())

	log.DefaultLogger.FromContext(ctx).Debug("Feldera datasource instance created", "baseUrl", config.BaseURL, "pipeline", config.Pipeline)
	return ds, nil
}

// Dispose cleans up resources when a datasource instance is no longer needed.
func (d *Datasource) Dispose() {
	if c, ok := d.client.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	log.DefaultLogger.Debug("Feldera datasource instance disposed")
}

// QueryData handles incoming data queries from Grafana.
// Queries run concurrently; each one gets its own response keyed by refId.
func (d *Datasource) QueryData(ctx context.Context, req *backend.QueryDataRequest) (*backend.QueryDataResponse, error) {
	response := backend.NewQueryDataResponse()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(maxConcurrentQueries)

	for _, q := range req.Queries {
		g.Go(func() error {
			res := handler.HandleQuery(ctx, d.client, d.settings, q)

			mu.Lock()
			defer mu.Unlock()
			response.Responses[q.RefID] = *res
			return nil
		})
	}
	_ = g.Wait()

	return response, nil
}

// CheckHealth performs a health check of the datasource.
// It validates the configuration and checks the configured pipeline.
func (d *Datasource) CheckHealth(ctx context.Context, req *backend.CheckHealthRequest) (*backend.CheckHealthResult, error) {
	logger := log.DefaultLogger.FromContext(ctx)

	if req.PluginContext.DataSourceInstanceSettings == nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: "Health check request carries no datasource settings.",
		}, nil
	}

	healthResult, err := health.ExecuteHealthCheck(ctx, *req.PluginContext.DataSourceInstanceSettings)
	if err != nil {
		logger.Error("Health check failed internally", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Health check encountered an internal error: %s", err.Error()),
		}, nil
	}

	return healthResult, nil
}

// CallResource forwards requests to the datasource's resource router.
func (d *Datasource) CallResource(ctx context.Context, req *backend.CallResourceRequest, sender backend.CallResourceResponseSender) error {
	return d.resourceHandler.CallResource(ctx, req, sender)
}
