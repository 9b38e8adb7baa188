// Package health runs the datasource health check Grafana triggers from the
// "Save & test" button.
package health

import (
	"context"
	"fmt"

	"feldera-grafana-plugin/pkg/client"
	"feldera-grafana-plugin/pkg/models"
	"feldera-grafana-plugin/pkg/validator"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
)

// PerformHealthCheck loads the datasource settings, builds a Feldera client
// with factory and checks that the configured pipeline can serve queries.
// Expected failures are reported in the result, not as an error.
func PerformHealthCheck(ctx context.Context, dsSettings backend.DataSourceInstanceSettings, factory client.ClientFactory) (*backend.CheckHealthResult, error) {
	logger := log.DefaultLogger.FromContext(ctx)
	logger.Debug("Starting health check")

	config, err := models.LoadPluginSettings(dsSettings)
	if err != nil {
		logger.Error("Failed to load plugin settings", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Failed to load datasource configuration: %s", err.Error()),
		}, nil
	}

	if err := validator.ValidatePluginSettings(config); err != nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Plugin configuration validation failed: %s", err.Error()),
		}, nil
	}

	felderaClient, err := client.NewClient(config, factory)
	if err != nil {
		logger.Error("Failed to create Feldera client", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Feldera client failed to initialize: %s", err.Error()),
		}, nil
	}

	healthResult, err := validator.CheckHealth(ctx, config, felderaClient)
	if err != nil {
		logger.Error("Unexpected error from validator.CheckHealth", "error", err)
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Internal error during Feldera check: %s", err.Error()),
		}, nil
	}

	logger.Debug("Health check completed", "status", healthResult.Status.String(), "pipeline", config.Pipeline)
	return healthResult, nil
}

// ExecuteHealthCheck runs PerformHealthCheck against the live Feldera API.
// Tests replace it to avoid network calls.
var ExecuteHealthCheck = func(ctx context.Context, dsSettings backend.DataSourceInstanceSettings) (*backend.CheckHealthResult, error) {
	return PerformHealthCheck(ctx, dsSettings, &client.DefaultClientFactory{})
}
