// Package utils defines shared constants used throughout the Feldera Grafana plugin.
package utils

const (
	// PluginID is the Grafana plugin identifier of the datasource
	PluginID = "feldera-datasource"

	// DefaultBaseURL is used when the datasource has no base URL configured
	DefaultBaseURL = "http://localhost:8080"

	// UserAgent is sent with every request to Feldera
	UserAgent = "feldera-grafana-plugin"

	// Header names used on requests to Feldera
	AuthorizationHeader = "Authorization"
	RequestIDHeader     = "X-Request-Id"

	// Notices attached to data frames
	EmptyResultNotice = "Query returned no rows"
)
