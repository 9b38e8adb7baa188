// Package formatter converts Feldera ad-hoc query results into Grafana data
// frames. Results can be framed as tables, as time series or as logs.
package formatter

import (
	"errors"
	"fmt"
	"net/http"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/utils"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/grafana/grafana-plugin-sdk-go/data"
	"github.com/grafana/grafana-plugin-sdk-go/data/sqlutil"
	"github.com/grafana/infinity-libs/lib/go/jsonframer"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

var errNoTimeColumn = errors.New("time series format requires a time column")

var formatNames = map[sqlutil.FormatQueryOption]string{
	sqlutil.FormatOptionTable:      "table",
	sqlutil.FormatOptionTimeSeries: "time_series",
	sqlutil.FormatOptionLogs:       "logs",
}

// FormatQueryResult creates a Grafana data response from the rows of an
// ad-hoc query. The frame is named after the query's refId.
func FormatQueryResult(result *feldera.QueryResult, query backend.DataQuery, format sqlutil.FormatQueryOption) *backend.DataResponse {
	if result.Len() == 0 {
		return emptyResponse(result, query)
	}

	log.DefaultLogger.Debug("Formatting query result", "refId", query.RefID, "columns", len(result.Columns), "rows", result.Len(), "format", formatNames[format])

	frame, err := ToFrame(query.RefID, result)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err.Error())
	}

	switch format {
	case sqlutil.FormatOptionTimeSeries:
		frame, err = timeSeries(frame)
		if err != nil {
			return errorResponse(http.StatusBadRequest, err.Error())
		}
		frame.Meta = &data.FrameMeta{PreferredVisualization: data.VisTypeGraph}
	case sqlutil.FormatOptionLogs:
		frame.Meta = &data.FrameMeta{PreferredVisualization: data.VisTypeLogs}
	default:
		frame.Meta = &data.FrameMeta{PreferredVisualization: data.VisTypeTable}
	}
	return &backend.DataResponse{Frames: data.Frames{frame}}
}

// ToFrame frames the rows with one field per column, in column order.
// String columns holding only Feldera timestamps become time fields.
func ToFrame(name string, result *feldera.QueryResult) (*data.Frame, error) {
	columns := lo.Map(result.Columns, func(c string, _ int) jsonframer.ColumnSelector {
		return jsonframer.ColumnSelector{Selector: gjson.Escape(c), Alias: c}
	})

	frame, err := jsonframer.ToFrame(result.JSON(), jsonframer.FramerOptions{FrameName: name, Columns: columns})
	if err != nil {
		return nil, fmt.Errorf("framing query result: %w", err)
	}
	frame.Name = name
	parseTimeFields(frame)
	return frame, nil
}

// emptyResponse returns a frame holding the known columns, without rows.
func emptyResponse(result *feldera.QueryResult, query backend.DataQuery) *backend.DataResponse {
	frame := data.NewFrame(query.RefID)
	if result != nil {
		for _, name := range result.Columns {
			frame.Fields = append(frame.Fields, data.NewField(name, nil, []*string{}))
		}
	}
	frame.Meta = &data.FrameMeta{
		Notices: []data.Notice{{Severity: data.NoticeSeverityInfo, Text: utils.EmptyResultNotice}},
	}
	return &backend.DataResponse{Frames: data.Frames{frame}}
}

// timeSeries reframes around the first time field, sorted by time. Long
// frames, which carry string dimensions, are converted to wide frames.
func timeSeries(frame *data.Frame) (*data.Frame, error) {
	timeIndex, ok := firstTimeField(frame)
	if !ok {
		return nil, errNoTimeColumn
	}

	frame = sortByTime(frame, timeIndex)
	if frame.TimeSeriesSchema().Type == data.TimeSeriesTypeLong {
		wide, err := data.LongToWide(frame, nil)
		if err != nil {
			return nil, fmt.Errorf("could not convert long series to wide: %w", err)
		}
		frame = wide
	}
	return frame, nil
}

func errorResponse(status backend.Status, msg string) *backend.DataResponse {
	resp := backend.ErrDataResponse(status, msg)
	return &resp
}
