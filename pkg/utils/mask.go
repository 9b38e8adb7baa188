package utils

import "regexp"

var (
	reBearer = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._~+/=:-]+)`)
	reAPIKey = regexp.MustCompile(`(?i)(api[_-]?key["'=:\s]+)([^\s"';,&]+)`)
)

// MaskSecrets replaces API keys and bearer tokens found in s with "***".
// It is applied to response bodies before they are logged or shown in Grafana.
func MaskSecrets(s string) string {
	out := reBearer.ReplaceAllString(s, "${1}***")
	return reAPIKey.ReplaceAllString(out, "${1}***")
}
