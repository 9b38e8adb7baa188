package templating

import (
	"strconv"
	"time"

	"feldera-grafana-plugin/pkg/utils"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/grafana/grafana-plugin-sdk-go/backend/gtime"
	"github.com/samber/lo"
)

// BuiltinVars returns the global variables Grafana defines for every query:
// the time range bounds, its length and the suggested interval.
func BuiltinVars(timeRange backend.TimeRange, interval time.Duration) ScopedVars {
	fromMs, toMs := utils.TimeRangeMillis(timeRange)
	rangeDuration := timeRange.To.Sub(timeRange.From)

	vars := ScopedVars{
		"__from":     {Text: fromMs, Value: fromMs},
		"__to":       {Text: toMs, Value: toMs},
		"__range":    {Text: gtime.FormatInterval(rangeDuration), Value: gtime.FormatInterval(rangeDuration)},
		"__range_s":  {Value: strconv.FormatInt(int64(rangeDuration/time.Second), 10)},
		"__range_ms": {Value: strconv.FormatInt(rangeDuration.Milliseconds(), 10)},
	}

	if interval > 0 {
		vars["__interval"] = ScopedVar{Text: gtime.FormatInterval(interval), Value: gtime.FormatInterval(interval)}
		vars["__interval_ms"] = ScopedVar{Value: strconv.FormatInt(interval.Milliseconds(), 10)}
	}

	return vars
}

// Merge returns a new mapping holding base overlaid with overrides.
func Merge(base, overrides ScopedVars) ScopedVars {
	return lo.Assign(base, overrides)
}
