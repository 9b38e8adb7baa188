// Package query prepares Grafana queries for execution against Feldera:
// template variable substitution, the execution gate, and SQL macros.
package query

import (
	"feldera-grafana-plugin/pkg/models"
	"feldera-grafana-plugin/pkg/templating"
)

// ApplyTemplateVariables returns a copy of q whose query text has every known
// template variable substituted. All other fields are carried over unchanged
// and q itself is not modified. A query without text stays without text.
func ApplyTemplateVariables(q models.QueryModel, vars templating.ScopedVars) models.QueryModel {
	out := q.Clone()
	out.QueryText = templating.ReplacePtr(q.QueryText, vars)
	return out
}

// FilterQuery reports whether q is eligible for execution. Queries without
// text are skipped so they never reach Feldera.
func FilterQuery(q models.QueryModel) bool {
	return q.QueryText != nil && *q.QueryText != ""
}
