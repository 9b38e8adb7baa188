package models

import (
	"encoding/json"
	"fmt"

	"feldera-grafana-plugin/pkg/templating"

	"github.com/grafana/grafana-plugin-sdk-go/data/sqlutil"
	"github.com/samber/lo"
)

// Query result formats selectable in the query editor.
const (
	FormatTable      = "table"
	FormatTimeSeries = "time_series"
	FormatLogs       = "logs"
)

// DataSourceRef identifies the datasource a query targets.
type DataSourceRef struct {
	Type string `json:"type,omitempty"`
	UID  string `json:"uid,omitempty"`
}

// QueryModel represents the structure of a single query sent from Grafana.
// This struct will be unmarshaled from the JSON data in backend.DataQuery.
type QueryModel struct {
	RefID         string         `json:"refId"`
	Hide          bool           `json:"hide,omitempty"`
	QueryType     string         `json:"queryType,omitempty"`
	Datasource    *DataSourceRef `json:"datasource,omitempty"`
	IntervalMs    float64        `json:"intervalMs,omitempty"`
	MaxDataPoints int64          `json:"maxDataPoints,omitempty"`

	QueryText  *string               `json:"queryText,omitempty"`
	Format     string                `json:"format,omitempty"`
	ScopedVars templating.ScopedVars `json:"scopedVars,omitempty"` // variables forwarded with the query
}

// ParseQueryModel decodes the JSON of a backend.DataQuery.
func ParseQueryModel(raw json.RawMessage) (QueryModel, error) {
	var qm QueryModel
	if len(raw) == 0 {
		return qm, nil
	}
	if err := json.Unmarshal(raw, &qm); err != nil {
		return QueryModel{}, fmt.Errorf("error parsing query JSON: %w", err)
	}
	return qm, nil
}

// Text returns the query text, or "" when none is set.
func (q QueryModel) Text() string {
	return lo.FromPtr(q.QueryText)
}

// Clone returns a copy of q that shares no pointers, maps or multi-value
// variable slices with q.
func (q QueryModel) Clone() QueryModel {
	c := q
	if q.Datasource != nil {
		c.Datasource = lo.ToPtr(*q.Datasource)
	}
	if q.QueryText != nil {
		c.QueryText = lo.ToPtr(*q.QueryText)
	}
	if q.ScopedVars != nil {
		c.ScopedVars = q.ScopedVars.Clone()
	}
	return c
}

// FormatName returns the query format, with table standing in for unknown formats.
func (q QueryModel) FormatName() string {
	switch q.Format {
	case FormatTimeSeries, FormatLogs:
		return q.Format
	default:
		return FormatTable
	}
}

// FormatOption maps the query format to the SDK's SQL format option.
// Table is the default.
func (q QueryModel) FormatOption() sqlutil.FormatQueryOption {
	switch q.Format {
	case FormatTimeSeries:
		return sqlutil.FormatOptionTimeSeries
	case FormatLogs:
		return sqlutil.FormatOptionLogs
	default:
		return sqlutil.FormatOptionTable
	}
}
