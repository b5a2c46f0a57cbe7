package stackexchange

import (
	"errors"
	"fmt"
)

// APIError represents a StackExchange API error response. The Body carries
// the server's structured error payload verbatim for diagnosability.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stackexchange: API error %d: %s (URL: %s)", e.StatusCode, e.Body, e.URL)
}

// AsAPIError extracts an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
