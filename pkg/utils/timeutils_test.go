package utils

import (
	"testing"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/backend"
	"github.com/stretchr/testify/assert"
)

func TestSQLTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "'2024-03-01T11:30:00Z'", SQLTimestamp(ts))
}

func TestTimeRangeMillis(t *testing.T) {
	from, to := TimeRangeMillis(backend.TimeRange{From: time.UnixMilli(1000), To: time.UnixMilli(2500)})
	assert.Equal(t, "1000", from)
	assert.Equal(t, "2500", to)
}

func TestMaskSecrets(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "bearer token", in: "Authorization: Bearer apikey:abc123", expected: "Authorization: Bearer ***"},
		{name: "query parameter", in: "url?api_key=secret&x=1", expected: "url?api_key=***&x=1"},
		{name: "json field", in: `{"apiKey": "secret"}`, expected: `{"apiKey": "***"}`},
		{name: "nothing to mask", in: "pipeline not found", expected: "pipeline not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSecrets(tt.in))
		})
	}
}
