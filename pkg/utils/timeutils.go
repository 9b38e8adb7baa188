// Package utils provides utility functions for the Feldera Grafana plugin
package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
)

// TimeRangeMillis converts a Grafana time range to epoch milliseconds
func TimeRangeMillis(timeRange backend.TimeRange) (string, string) {
	fromMs := timeRange.From.UnixMilli()
	toMs := timeRange.To.UnixMilli()

	return strconv.FormatInt(fromMs, 10), strconv.FormatInt(toMs, 10)
}

// SQLTimestamp renders t as the quoted literal Feldera accepts for TIMESTAMP comparisons.
func SQLTimestamp(t time.Time) string {
	return fmt.Sprintf("'%s'", t.UTC().Format(time.RFC3339))
}
