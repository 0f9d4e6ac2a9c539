package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the backend, decoded from its
// structured error payload when one is present.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// RetryAfter is non-zero when the backend sent a cooldown hint with a
	// 429 response.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsNotFound reports whether the error is a 404 from the backend.
func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

// IsForbidden reports whether the error is a 403 from the backend.
func IsForbidden(err error) bool { return statusIs(err, http.StatusForbidden) }

// IsUnauthorized reports whether the error is a 401 from the backend.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsRateLimited reports whether the error is a 429 from the backend.
func IsRateLimited(err error) bool { return statusIs(err, http.StatusTooManyRequests) }

func statusIs(err error, status int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == status
}

// errorBody covers the error payload shapes the backend emits: gin-style
// {"error": ...}, FastAPI-style {"detail": ...}, plus an optional human
// message alongside either.
type errorBody struct {
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// newAPIError builds an APIError from a response body and headers. Bodies
// that are not the structured payload are kept verbatim as the message.
func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Error != "":
			apiErr.Code = eb.Error
		case eb.Detail != "":
			apiErr.Code = eb.Detail
		}
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = apiErr.Code
		}
	} else if len(body) > 0 {
		apiErr.Message = string(body)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	return apiErr
}
