package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OperationIDHeader is the response header carrying the cluster service
// operation id when the error body has none
const OperationIDHeader = "X-Operation-Id"

// APIError is a failed call to a regional cluster service.
type APIError struct {
	// Region is the region whose cluster service was called ("" for the default region)
	Region string
	Method string
	URL    string
	// StatusCode is 0 if the request failed before getting a response
	StatusCode int
	Status     string
	// ResponseBody is the raw error document, if any
	ResponseBody []byte
	// HeaderOperationID is the value of OperationIDHeader
	HeaderOperationID string
	// Attempts is how many attempts were made (including retries)
	Attempts int
	// Duration is the total duration including retries
	Duration time.Duration
	Err      error
}

func (e *APIError) Error() string {
	region := e.Region
	if region == "" {
		region = "default"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("cluster service (region %s): %s %s returned %s after %d attempt(s): %s",
			region, e.Method, e.URL, e.Status, e.Attempts, e.Reason())
	}
	return fmt.Sprintf("cluster service (region %s): %s %s failed after %d attempt(s): %v",
		region, e.Method, e.URL, e.Attempts, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTimeout reports a 408 or a request that ran out of time
func (e *APIError) IsTimeout() bool {
	return e.StatusCode == http.StatusRequestTimeout || errors.Is(e.Err, context.DeadlineExceeded)
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsForbidden is true for 401 and 403; the cluster service uses both for
// accounts that may not read a region
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusUnauthorized
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// errorBody is the error document returned by the cluster service
type errorBody struct {
	Kind        string `json:"kind"`
	Code        string `json:"code"`
	Reason      string `json:"reason"`
	OperationID string `json:"operation_id"`
}

func (e *APIError) body() errorBody {
	var b errorBody
	if len(e.ResponseBody) > 0 {
		_ = json.Unmarshal(e.ResponseBody, &b)
	}
	return b
}

// Reason returns the human readable reason reported by the cluster service.
// Falls back to the status text, then to the underlying error.
func (e *APIError) Reason() string {
	if r := e.body().Reason; r != "" {
		return r
	}
	if e.Status != "" {
		return e.Status
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Code returns the cluster service error code, e.g. "CLUSTERS-MGMT-404"
func (e *APIError) Code() string {
	return e.body().Code
}

// OperationID returns the operation id of the failed call, taken from the
// error body or else from the response header
func (e *APIError) OperationID() string {
	if id := e.body().OperationID; id != "" {
		return id
	}
	return e.HeaderOperationID
}

// Message is the user facing text for a failed call
func (e *APIError) Message() string {
	return e.Reason()
}

// NewAPIError creates a new APIError with all fields
func NewAPIError(region, method, url string, statusCode int, status string, body []byte, attempts int, duration time.Duration, err error) *APIError {
	return &APIError{
		Region:       region,
		Method:       method,
		URL:          url,
		StatusCode:   statusCode,
		Status:       status,
		ResponseBody: body,
		Attempts:     attempts,
		Duration:     duration,
		Err:          err,
	}
}

// IsAPIError checks if an error is an APIError and returns it.
// Wrapped errors are supported.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
