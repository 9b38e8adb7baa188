// Package validator provides validation functions for plugin settings and health checks.
// It ensures that configuration parameters are valid and that the Feldera pipeline
// is reachable and running before queries are sent to it.
package validator

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/models"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
)

var pipelineNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidatePluginSettings validates the plugin settings
func ValidatePluginSettings(settings *models.PluginSettings) error {
	if settings == nil {
		return &models.PluginSettingsError{Msg: "plugin settings cannot be nil"}
	}

	if settings.Secrets == nil {
		return &models.PluginSettingsError{Msg: "plugin secrets cannot be nil"}
	}

	u, err := url.Parse(settings.BaseURL)
	if err != nil {
		return &models.PluginSettingsError{Msg: fmt.Sprintf("base URL %q is not a valid URL", settings.BaseURL), Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &models.PluginSettingsError{Msg: fmt.Sprintf("base URL %q must be an absolute http or https URL", settings.BaseURL)}
	}

	if settings.Pipeline == "" {
		return &models.PluginSettingsError{Msg: "pipeline name cannot be empty"}
	}

	if !pipelineNamePattern.MatchString(settings.Pipeline) {
		return &models.PluginSettingsError{Msg: fmt.Sprintf("pipeline name %q may only contain letters, digits, '_' and '-'", settings.Pipeline)}
	}

	return nil
}

// CheckHealth checks that the configured pipeline exists and is running
func CheckHealth(ctx context.Context, settings *models.PluginSettings, manager feldera.PipelineManager) (*backend.CheckHealthResult, error) {
	if manager == nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: "Feldera client is not initialized for health check.",
		}, nil
	}

	// First, perform basic settings validation
	if err := ValidatePluginSettings(settings); err != nil {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Plugin configuration validation failed: %s", err.Error()),
		}, nil
	}

	pipeline, err := manager.GetPipeline(ctx, settings.Pipeline)
	if err != nil {
		apiErr, ok := feldera.AsAPIError(err)
		switch {
		case ok && apiErr.IsUnauthorized():
			return &backend.CheckHealthResult{
				Status:  backend.HealthStatusError,
				Message: fmt.Sprintf("Authentication failed for %s. Please verify your API key is correct.", settings.BaseURL),
			}, nil
		case ok && apiErr.IsNotFound():
			return &backend.CheckHealthResult{
				Status:  backend.HealthStatusError,
				Message: fmt.Sprintf("Pipeline %q does not exist on %s.", settings.Pipeline, settings.BaseURL),
			}, nil
		default:
			return &backend.CheckHealthResult{
				Status:  backend.HealthStatusError,
				Message: fmt.Sprintf("Failed to connect to Feldera at %s. Error: %s", settings.BaseURL, err.Error()),
			}, nil
		}
	}

	if pipeline.HasProgramError() {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Pipeline %q failed to compile (%s).", pipeline.Name, pipeline.ProgramStatus),
		}, nil
	}

	if !pipeline.IsRunning() {
		return &backend.CheckHealthResult{
			Status:  backend.HealthStatusError,
			Message: fmt.Sprintf("Pipeline %q is %s. Start it to run queries.", pipeline.Name, deploymentStatus(pipeline)),
		}, nil
	}

	return &backend.CheckHealthResult{
		Status:  backend.HealthStatusOk,
		Message: fmt.Sprintf("Successfully connected to Feldera! Pipeline %q is running.", pipeline.Name),
	}, nil
}

func deploymentStatus(p *feldera.Pipeline) string {
	if p.DeploymentStatus == "" {
		return "not deployed"
	}
	return p.DeploymentStatus
}
