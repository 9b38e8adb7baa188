package feldera

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// QueryResult holds the rows of an ad-hoc query as raw JSON objects.
// Columns are ordered by first appearance.
type QueryResult struct {
	Columns []string
	Records []json.RawMessage
}

// Len returns the number of rows.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// JSON returns the rows as a single JSON array.
func (r *QueryResult) JSON() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, rec := range r.Records {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(rec)
	}
	b.WriteByte(']')
	return b.String()
}

// DecodeNDJSON reads the body of a format=json ad-hoc query: one JSON object
// per row, separated by newlines. A single JSON array of objects is accepted too.
func DecodeNDJSON(r io.Reader) (*QueryResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return ParseRows(string(body))
}

// ParseRows parses newline-delimited JSON objects or a JSON array of objects.
func ParseRows(body string) (*QueryResult, error) {
	body = strings.TrimSpace(body)
	result := &QueryResult{}
	seen := map[string]bool{}

	add := func(row gjson.Result) error {
		if !row.IsObject() {
			return fmt.Errorf("decode row %d: expected an object, got %s", len(result.Records), row.Type)
		}
		row.ForEach(func(key, _ gjson.Result) bool {
			if name := key.String(); !seen[name] {
				seen[name] = true
				result.Columns = append(result.Columns, name)
			}
			return true
		})
		result.Records = append(result.Records, json.RawMessage(row.Raw))
		return nil
	}

	if strings.HasPrefix(body, "[") {
		if !gjson.Valid(body) {
			return nil, fmt.Errorf("decode rows: invalid JSON array")
		}
		var err error
		gjson.Parse(body).ForEach(func(_, row gjson.Result) bool {
			err = add(row)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("decode row %d: invalid JSON", len(result.Records))
		}
		if err := add(gjson.Parse(line)); err != nil {
			return nil, err
		}
	}
	return result, nil
}
