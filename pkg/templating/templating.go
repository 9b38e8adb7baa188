// Package templating substitutes dashboard template variables in query text.
// It follows the placeholder syntax of Grafana's template service:
// $name, ${name}, ${name:format}, [[name]] and [[name:format]].
package templating

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Supported variable formats.
const (
	FormatRaw         = "raw"
	FormatCSV         = "csv"
	FormatPipe        = "pipe"
	FormatGlob        = "glob"
	FormatJSON        = "json"
	FormatSingleQuote = "singlequote"
	FormatDoubleQuote = "doublequote"
	FormatSQLString   = "sqlstring"
	FormatText        = "text"
)

// ScopedVar is the value descriptor of a single template variable.
// Value holds a string, a number, a bool or a slice of those for
// multi-value variables. Text is the display value.
type ScopedVar struct {
	Text  string `json:"text,omitempty"`
	Value any    `json:"value"`
}

// ScopedVars maps variable names to their values.
type ScopedVars map[string]ScopedVar

// Clone returns a copy of vars whose multi-value slices are copied too.
func (vars ScopedVars) Clone() ScopedVars {
	if vars == nil {
		return nil
	}
	return lo.MapValues(vars, func(v ScopedVar, _ string) ScopedVar {
		switch value := v.Value.(type) {
		case []string:
			v.Value = append([]string(nil), value...)
		case []any:
			v.Value = append([]any(nil), value...)
		}
		return v
	})
}

// variablePattern matches, in order: $name, [[name:format]], ${name:format}.
var variablePattern = regexp.MustCompile(`\$(\w+)|\[\[(\w+?)(?::(\w+))?\]\]|\$\{(\w+)(?::([^\}]+))?\}`)

// Replace substitutes every known variable placeholder in text.
// Placeholders naming unknown variables are kept as written.
func Replace(text string, vars ScopedVars) string {
	if len(vars) == 0 || text == "" {
		return text
	}

	return variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := variablePattern.FindStringSubmatch(match)
		name, format := groups[1], ""
		switch {
		case groups[2] != "":
			name, format = groups[2], groups[3]
		case groups[4] != "":
			name, format = groups[4], groups[5]
		}

		v, ok := vars[name]
		if !ok {
			return match
		}
		return formatValue(v, format)
	})
}

// ReplacePtr is Replace for optional text. A nil text stays nil.
func ReplacePtr(text *string, vars ScopedVars) *string {
	if text == nil {
		return nil
	}
	return lo.ToPtr(Replace(*text, vars))
}

func formatValue(v ScopedVar, format string) string {
	if format == FormatText {
		if v.Text != "" {
			return v.Text
		}
		format = FormatRaw
	}

	values, multi := toStrings(v.Value)
	if !multi {
		return formatSingle(values[0], format)
	}

	switch format {
	case FormatRaw:
		return strings.Join(values, ",")
	case FormatCSV:
		return strings.Join(values, ",")
	case FormatPipe:
		return strings.Join(values, "|")
	case FormatJSON:
		b, _ := json.Marshal(values)
		return string(b)
	case FormatSingleQuote:
		return strings.Join(lo.Map(values, func(s string, _ int) string { return singleQuote(s) }), ",")
	case FormatDoubleQuote:
		return strings.Join(lo.Map(values, func(s string, _ int) string { return doubleQuote(s) }), ",")
	case FormatSQLString:
		return strings.Join(lo.Map(values, func(s string, _ int) string { return sqlString(s) }), ",")
	default:
		if len(values) == 1 {
			return values[0]
		}
		return "{" + strings.Join(values, ",") + "}"
	}
}

func formatSingle(s, format string) string {
	switch format {
	case FormatJSON:
		b, _ := json.Marshal(s)
		return string(b)
	case FormatSingleQuote:
		return singleQuote(s)
	case FormatDoubleQuote:
		return doubleQuote(s)
	case FormatSQLString:
		return sqlString(s)
	default:
		return s
	}
}

func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// sqlString quotes s as a SQL string literal, doubling embedded quotes.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// toStrings renders a variable value. The bool reports whether the value
// is multi-valued.
func toStrings(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		return lo.Map(v, func(item any, _ int) string { return scalarString(item) }), true
	default:
		return []string{scalarString(v)}, false
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
