// Package handler processes incoming query requests from Grafana and executes
// them as ad-hoc SQL against a Feldera pipeline. It handles template variables,
// macros, execution and response framing with proper error handling.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/formatter"
	"feldera-grafana-plugin/pkg/metrics"
	"feldera-grafana-plugin/pkg/models"
	"feldera-grafana-plugin/pkg/query"
	"feldera-grafana-plugin/pkg/templating"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/data"
)

// QueryExecutionError represents an error during ad-hoc query execution.
type QueryExecutionError struct {
	Query string
	Msg   string
	Err   error // Wrapped error
}

func (e *QueryExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query execution error for '%s': %s: %v", e.Query, e.Msg, e.Err)
	}
	return fmt.Sprintf("query execution error for '%s': %s", e.Query, e.Msg)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// ExecuteQuery runs sql against the pipeline with the given executor.
func ExecuteQuery(ctx context.Context, executor feldera.QueryExecutor, pipeline string, sql string) (*feldera.QueryResult, error) {
	if executor == nil {
		return nil, &QueryExecutionError{Query: sql, Msg: "Feldera query executor is nil, cannot execute query"}
	}
	if pipeline == "" {
		return nil, &QueryExecutionError{Query: sql, Msg: "no pipeline configured for the datasource"}
	}

	result, err := executor.Query(ctx, pipeline, sql)
	if err != nil {
		return nil, &QueryExecutionError{Query: sql, Msg: fmt.Sprintf("pipeline %q rejected the query", pipeline), Err: err}
	}
	return result, nil
}

// HandleQuery processes a single Grafana data query. Queries without text
// produce an empty response and never reach Feldera.
func HandleQuery(ctx context.Context, executor feldera.QueryExecutor, settings *models.PluginSettings, dq backend.DataQuery) *backend.DataResponse {
	logger := log.DefaultLogger.FromContext(ctx).With("refId", dq.RefID)

	qm, err := models.ParseQueryModel(dq.JSON)
	if err != nil {
		logger.Error("Error parsing query JSON", "error", err)
		return errorResponse(backend.StatusBadRequest, backend.ErrorSourcePlugin, err)
	}

	if qm.Hide || !query.FilterQuery(qm) {
		logger.Debug("Skipping query without text")
		return &backend.DataResponse{}
	}

	vars := templating.Merge(templating.BuiltinVars(dq.TimeRange, dq.Interval), qm.ScopedVars)
	prepared := query.ApplyTemplateVariables(qm, vars)
	format := prepared.FormatOption()

	sql, err := query.Interpolate(prepared.Text(), dq, format)
	if err != nil {
		logger.Error("Error expanding macros", "error", err)
		return errorResponse(backend.StatusBadRequest, backend.ErrorSourcePlugin, err)
	}

	pipeline := ""
	if settings != nil {
		pipeline = settings.Pipeline
	}
	logger = logger.With("pipeline", pipeline)
	logger.Debug("Processing query", "sql", sql, "format", prepared.FormatName())

	metrics.IncrementConcurrentQueries()
	defer metrics.DecrementConcurrentQueries()
	start := time.Now()

	result, err := ExecuteQuery(ctx, executor, pipeline, sql)
	if err != nil {
		metrics.RecordQuery(time.Since(start), err)
		logger.Error("Feldera query execution failed", "error", err)
		return executionErrorResponse(err)
	}

	resp := formatter.FormatQueryResult(result, dq, format)
	for _, frame := range resp.Frames {
		if frame.Meta == nil {
			frame.Meta = &data.FrameMeta{}
		}
		frame.Meta.ExecutedQueryString = sql
	}

	metrics.RecordQuery(time.Since(start), resp.Error)
	return resp
}

// executionErrorResponse maps an execution failure to the status Grafana shows.
func executionErrorResponse(err error) *backend.DataResponse {
	var execErr *QueryExecutionError
	if errors.As(err, &execErr) && execErr.Err == nil {
		return errorResponse(backend.StatusBadRequest, backend.ErrorSourcePlugin, err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(backend.StatusTimeout, backend.ErrorSourceDownstream, err)
	case errors.Is(err, context.Canceled):
		return errorResponse(backend.StatusBadRequest, backend.ErrorSourcePlugin, err)
	}

	if apiErr, ok := feldera.AsAPIError(err); ok {
		switch {
		case apiErr.IsUnauthorized():
			return errorResponse(backend.StatusUnauthorized, backend.ErrorSourceDownstream, err)
		case apiErr.IsNotFound():
			return errorResponse(backend.StatusNotFound, backend.ErrorSourceDownstream, err)
		case apiErr.StatusCode == http.StatusBadRequest:
			return errorResponse(backend.StatusBadRequest, backend.ErrorSourceDownstream, err)
		}
	}
	return errorResponse(backend.StatusBadGateway, backend.ErrorSourceDownstream, err)
}

func errorResponse(status backend.Status, source backend.ErrorSource, err error) *backend.DataResponse {
	resp := backend.ErrDataResponseWithSource(status, source, err.Error())
	return &resp
}
