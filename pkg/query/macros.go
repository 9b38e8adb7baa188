package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"feldera-grafana-plugin/pkg/utils"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/gtime"
	"github.com/grafana/grafana-plugin-sdk-go/data/sqlutil"
	"github.com/samber/lo"
)

// timeColumnAlias is the column name Grafana looks for in time series frames.
const timeColumnAlias = "time"

var macros = sqlutil.Macros{
	"timeFrom":       macroTimeFrom,
	"timeTo":         macroTimeTo,
	"timeFilter":     macroTimeFilter,
	"timeGroup":      macroTimeGroup,
	"timeGroupAlias": macroTimeGroupAlias,
}

// MacroNames lists the macros the datasource expands, with their $__ prefix.
func MacroNames() []string {
	names := lo.Map(lo.Keys(macros), func(name string, _ int) string { return "$__" + name })
	sort.Strings(names)
	return names
}

// Interpolate expands the SQL macros in sql using the time range, interval
// and format of the Grafana query.
func Interpolate(sql string, dq backend.DataQuery, format sqlutil.FormatQueryOption) (string, error) {
	q := &sqlutil.Query{
		RawSQL:        sql,
		RefID:         dq.RefID,
		Format:        format,
		Interval:      dq.Interval,
		TimeRange:     dq.TimeRange,
		MaxDataPoints: dq.MaxDataPoints,
	}

	out, err := sqlutil.Interpolate(q, macros)
	if err != nil {
		return "", fmt.Errorf("macro interpolation: %w", err)
	}
	return out, nil
}

func macroTimeFrom(q *sqlutil.Query, _ []string) (string, error) {
	return utils.SQLTimestamp(q.TimeRange.From), nil
}

func macroTimeTo(q *sqlutil.Query, _ []string) (string, error) {
	return utils.SQLTimestamp(q.TimeRange.To), nil
}

// macroTimeFilter expands $__timeFilter(column).
func macroTimeFilter(q *sqlutil.Query, args []string) (string, error) {
	column, err := requireArgs("timeFilter", args, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s BETWEEN %s AND %s", column[0], utils.SQLTimestamp(q.TimeRange.From), utils.SQLTimestamp(q.TimeRange.To)), nil
}

// macroTimeGroup expands $__timeGroup(column, interval). Feldera truncates to
// calendar units, so the bucket is the largest unit not exceeding the interval.
func macroTimeGroup(q *sqlutil.Query, args []string) (string, error) {
	args, err := requireArgs("timeGroup", args, 2)
	if err != nil {
		return "", err
	}

	interval := q.Interval
	if args[1] != "$__interval" {
		raw := strings.Trim(args[1], `'"`)
		interval, err = gtime.ParseDuration(raw)
		if err != nil {
			return "", fmt.Errorf("timeGroup: invalid interval %q: %w", raw, err)
		}
	}

	return fmt.Sprintf("TIMESTAMP_TRUNC(%s, %s)", args[0], truncUnit(interval)), nil
}

func macroTimeGroupAlias(q *sqlutil.Query, args []string) (string, error) {
	group, err := macroTimeGroup(q, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s AS %s", group, timeColumnAlias), nil
}

func truncUnit(interval time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case interval >= 365*day:
		return "YEAR"
	case interval >= 28*day:
		return "MONTH"
	case interval >= 7*day:
		return "WEEK"
	case interval >= day:
		return "DAY"
	case interval >= time.Hour:
		return "HOUR"
	case interval >= time.Minute:
		return "MINUTE"
	default:
		return "SECOND"
	}
}

func requireArgs(name string, args []string, n int) ([]string, error) {
	args = lo.Map(args, func(a string, _ int) string { return strings.TrimSpace(a) })
	args = lo.Filter(args, func(a string, _ int) bool { return a != "" })
	if len(args) < n {
		return nil, fmt.Errorf("macro $__%s needs %d argument(s), got %d", name, n, len(args))
	}
	return args, nil
}
