package instagram

import (
	"errors"
	"fmt"
)

// ErrMissingToken is returned when no access token has been configured.
var ErrMissingToken = errors.New("no access token configured")

// APIError is an error reported by the Graph API: a non-2xx response with an
// optional provider error envelope.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the provider's error code, 0 when the envelope was absent.
	Code int
	// Message is the provider's message, or a generic fallback.
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("instagram api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("instagram api error (status %d): %s", e.StatusCode, e.Message)
}

// IsSchemaRejection reports whether the error is the provider's
// client/validation rejection, the only class the insights normalizer is
// allowed to fall through on.
func IsSchemaRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 400
}
