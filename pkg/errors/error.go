package errors

import (
	"fmt"
	"net/http"
)

const (
	// Prefix used for error code strings
	// Example:
	//   ErrorCodePrefix = "hub-clusters"
	//   results in: hub-clusters-1
	ErrorCodePrefix = "hub-clusters"

	// HREF for API errors
	ErrorHref = "/api/hub-clusters/v1/errors/"

	// NotFound occurs when a cluster, view or workflow is not found
	ErrorNotFound ServiceErrorCode = 1

	// Validation occurs when an object fails validation
	ErrorValidation ServiceErrorCode = 2

	// Conflict occurs when a write races with another write on the same object
	ErrorConflict ServiceErrorCode = 3

	// Forbidden occurs when the regional service refuses the operation
	ErrorForbidden ServiceErrorCode = 4

	// BadRequest occurs when the request is malformed or invalid
	ErrorBadRequest ServiceErrorCode = 7

	// MalformedRequest occurs when the request body cannot be read
	ErrorMalformedRequest ServiceErrorCode = 8

	// NotImplemented occurs when an API REST method is not implemented in a handler
	ErrorNotImplemented ServiceErrorCode = 9

	// General occurs when an error fails to match any other error code
	ErrorGeneral ServiceErrorCode = 10

	// ConfigNotFound occurs when the service configuration is not found
	ErrorConfigNotFound ServiceErrorCode = 11

	// RegionNotFound occurs when a cluster references a region with no configured backend
	ErrorRegionNotFound ServiceErrorCode = 12

	// ClusterServiceError occurs when a regional cluster service call fails
	ErrorClusterServiceError ServiceErrorCode = 14

	// UnknownSortField occurs when a sort field cannot be resolved to a cluster attribute
	ErrorUnknownSortField ServiceErrorCode = 15

	// WorkflowBusy occurs when a tagging workflow is asked to run while a run is in progress
	ErrorWorkflowBusy ServiceErrorCode = 16

	// InvalidFilter occurs when a filter expression does not compile
	ErrorInvalidFilter ServiceErrorCode = 17
)

type ServiceErrorCode int

type ServiceErrors []ServiceError

func Find(code ServiceErrorCode) (bool, *ServiceError) {
	for _, err := range Errors() {
		if err.Code == code {
			return true, &err
		}
	}
	return false, nil
}

func Errors() ServiceErrors {
	return ServiceErrors{
		ServiceError{ErrorNotFound, "Resource not found", http.StatusNotFound},
		ServiceError{ErrorValidation, "General validation failure", http.StatusBadRequest},
		ServiceError{ErrorConflict, "The resource was modified concurrently", http.StatusConflict},
		ServiceError{ErrorForbidden, "Forbidden to perform this action", http.StatusForbidden},
		ServiceError{ErrorBadRequest, "Bad request", http.StatusBadRequest},
		ServiceError{ErrorMalformedRequest, "Unable to read request body", http.StatusBadRequest},
		ServiceError{ErrorNotImplemented, "HTTP Method not implemented for this endpoint", http.StatusMethodNotAllowed},
		ServiceError{ErrorGeneral, "Unspecified error", http.StatusInternalServerError},
		ServiceError{ErrorConfigNotFound, "Service configuration not found", http.StatusNotFound},
		ServiceError{ErrorRegionNotFound, "Region not configured", http.StatusNotFound},
		ServiceError{ErrorClusterServiceError, "Cluster service error", http.StatusBadGateway},
		ServiceError{ErrorUnknownSortField, "Unknown sort field", http.StatusBadRequest},
		ServiceError{ErrorWorkflowBusy, "Tagging is already in progress", http.StatusConflict},
		ServiceError{ErrorInvalidFilter, "Invalid filter expression", http.StatusBadRequest},
	}
}

type ServiceError struct {
	// Code is the numeric and distinct ID for the error
	Code ServiceErrorCode
	// Reason is the context-specific reason the error was generated
	Reason string
	// HttpCode is the HttpCode associated with the error when the error is returned as an API response
	HttpCode int
}

// New Reason can be a string with format verbs, which will be replaced by the specified values
func New(code ServiceErrorCode, reason string, values ...interface{}) *ServiceError {
	// If the code isn't defined, use the general error code
	var err *ServiceError
	exists, err := Find(code)
	if !exists {
		// Log undefined error code - using fmt.Printf as fallback since we don't have logger here
		fmt.Printf("Undefined error code used: %d\n", code)
		err = &ServiceError{ErrorGeneral, "Unspecified error", http.StatusInternalServerError}
	}

	// If the reason is specified, use it (with formatting)
	if reason != "" {
		err.Reason = fmt.Sprintf(reason, values...)
	}

	return err
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", *CodeStr(e.Code), e.Reason)
}

func (e *ServiceError) AsError() error {
	return fmt.Errorf("%s", e.Error())
}

func (e *ServiceError) Is404() bool {
	return e.Code == NotFound("").Code
}

func (e *ServiceError) IsConflict() bool {
	return e.Code == Conflict("").Code
}

func (e *ServiceError) IsForbidden() bool {
	return e.Code == Forbidden("").Code
}

// Body is the JSON representation of a ServiceError returned by the REST API
type Body struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Href   string `json:"href"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// AsBody converts the error into its REST API representation
func (e *ServiceError) AsBody() Body {
	return Body{
		Kind:   "Error",
		ID:     fmt.Sprintf("%d", e.Code),
		Href:   *Href(e.Code),
		Code:   *CodeStr(e.Code),
		Reason: e.Reason,
	}
}

func CodeStr(code ServiceErrorCode) *string {
	str := fmt.Sprintf("%s-%d", ErrorCodePrefix, code)
	return &str
}

func Href(code ServiceErrorCode) *string {
	str := fmt.Sprintf("%s%d", ErrorHref, code)
	return &str
}

func NotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorNotFound, reason, values...)
}

func GeneralError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorGeneral, reason, values...)
}

func Forbidden(reason string, values ...interface{}) *ServiceError {
	return New(ErrorForbidden, reason, values...)
}

func NotImplemented(reason string, values ...interface{}) *ServiceError {
	return New(ErrorNotImplemented, reason, values...)
}

func Conflict(reason string, values ...interface{}) *ServiceError {
	return New(ErrorConflict, reason, values...)
}

func Validation(reason string, values ...interface{}) *ServiceError {
	return New(ErrorValidation, reason, values...)
}

func MalformedRequest(reason string, values ...interface{}) *ServiceError {
	return New(ErrorMalformedRequest, reason, values...)
}

func BadRequest(reason string, values ...interface{}) *ServiceError {
	return New(ErrorBadRequest, reason, values...)
}

func ConfigNotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorConfigNotFound, reason, values...)
}

func RegionNotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorRegionNotFound, reason, values...)
}

func ClusterServiceError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorClusterServiceError, reason, values...)
}

func UnknownSortField(reason string, values ...interface{}) *ServiceError {
	return New(ErrorUnknownSortField, reason, values...)
}

func WorkflowBusy(reason string, values ...interface{}) *ServiceError {
	return New(ErrorWorkflowBusy, reason, values...)
}

func InvalidFilter(reason string, values ...interface{}) *ServiceError {
	return New(ErrorInvalidFilter, reason, values...)
}
