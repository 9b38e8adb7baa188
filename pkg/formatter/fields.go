package formatter

import (
	"slices"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/data"
	"github.com/samber/lo"
)

// timeLayouts are the timestamp and date renderings Feldera uses in JSON output.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseTimeFields replaces string fields whose every non-null value is a
// timestamp with nullable time fields.
func parseTimeFields(frame *data.Frame) {
	for i, f := range frame.Fields {
		if f.Type().NonNullableType() != data.FieldTypeString {
			continue
		}
		if times, ok := parseTimes(f); ok {
			frame.Fields[i] = data.NewField(f.Name, f.Labels, times)
		}
	}
}

func parseTimes(f *data.Field) ([]*time.Time, bool) {
	times := make([]*time.Time, f.Len())
	seen := false
	for i := range times {
		v, ok := f.ConcreteAt(i)
		if !ok {
			continue
		}
		s, _ := v.(string)
		t, ok := parseTime(s)
		if !ok {
			return nil, false
		}
		times[i] = &t
		seen = true
	}
	return times, seen
}

func firstTimeField(frame *data.Frame) (int, bool) {
	i := slices.IndexFunc(frame.Fields, func(f *data.Field) bool {
		return f.Type().NonNullableType() == data.FieldTypeTime
	})
	return i, i >= 0
}

// sortByTime copies the frame ordered by the time field at timeIndex, which
// becomes non-nullable. Rows with a null time are dropped and null strings
// become empty so the frame fits the time series schemas.
func sortByTime(frame *data.Frame, timeIndex int) *data.Frame {
	tf := frame.Fields[timeIndex]

	rows := make([]int, 0, tf.Len())
	for i := 0; i < tf.Len(); i++ {
		if _, ok := tf.ConcreteAt(i); ok {
			rows = append(rows, i)
		}
	}
	slices.SortStableFunc(rows, func(a, b int) int { return timeAt(tf, a).Compare(timeAt(tf, b)) })

	out := data.NewFrame(frame.Name)
	for i, f := range frame.Fields {
		switch {
		case i == timeIndex:
			times := lo.Map(rows, func(r int, _ int) time.Time { return timeAt(f, r) })
			out.Fields = append(out.Fields, data.NewField(f.Name, f.Labels, times))
		case f.Type() == data.FieldTypeNullableString:
			values := lo.Map(rows, func(r int, _ int) string {
				v, _ := f.ConcreteAt(r)
				s, _ := v.(string)
				return s
			})
			out.Fields = append(out.Fields, data.NewField(f.Name, f.Labels, values))
		default:
			field := data.NewFieldFromFieldType(f.Type(), len(rows))
			field.Name, field.Labels = f.Name, f.Labels
			for j, r := range rows {
				field.Set(j, f.At(r))
			}
			out.Fields = append(out.Fields, field)
		}
	}
	return out
}

func timeAt(f *data.Field, i int) time.Time {
	v, _ := f.ConcreteAt(i)
	t, _ := v.(time.Time)
	return t
}
