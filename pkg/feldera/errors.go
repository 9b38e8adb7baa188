package feldera

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the Feldera API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string // already masked of secrets
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("feldera API error: status: '%s', error: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("feldera API error: status: '%s'", e.Status)
}

// IsUnauthorized reports whether Feldera rejected the credentials.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether the addressed resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRetryable reports whether repeating the same request may succeed.
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
