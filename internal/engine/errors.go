package engine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/odataql/internal/expression"
	"github.com/roach88/odataql/internal/querysql"
)

// RequestError represents a failed request.
//
// Every error returned by Engine.Execute is a *RequestError. Its Code is
// either one of the engine codes below or the expression.ErrorCode of the
// underlying compilation failure.
type RequestError struct {
	// Code identifies the error category.
	Code string

	// Message is a human-readable description.
	Message string

	// RequestID identifies the failed request, empty when the request
	// failed before an ID was assigned.
	RequestID string

	// Status is the HTTP status a server would answer with.
	Status int

	// Cause is the underlying error.
	Cause error
}

const (
	// ErrCodeInvalidRequest indicates a malformed query string or an
	// invalid system query option.
	ErrCodeInvalidRequest = "INVALID_REQUEST"

	// ErrCodeUnknownEntitySet indicates a request for a set the model does
	// not declare.
	ErrCodeUnknownEntitySet = "UNKNOWN_ENTITY_SET"

	// ErrCodeRowsExceeded indicates a $top above the page size limit.
	ErrCodeRowsExceeded = "ROWS_EXCEEDED"

	// ErrCodeExecution indicates a database failure.
	ErrCodeExecution = "EXECUTION_FAILED"
)

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request=%s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Client reports whether the request, not the server, is at fault.
func (e *RequestError) Client() bool {
	return e.Status < http.StatusInternalServerError || e.Status == http.StatusNotImplemented
}

// classify wraps err in a RequestError with a code and status derived from
// the error chain. Already classified errors are returned unchanged.
func classify(requestID string, err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) {
		if re.RequestID == "" {
			re.RequestID = requestID
		}
		return re
	}

	out := &RequestError{RequestID: requestID, Message: err.Error(), Cause: err}

	var xe *expression.Error
	var rowsErr *RowsExceededError
	switch {
	case errors.As(err, &xe):
		out.Code = string(xe.Code)
		out.Status = xe.Status()
		out.Message = xe.Error()
	case errors.As(err, &rowsErr):
		out.Code = ErrCodeRowsExceeded
		out.Status = http.StatusBadRequest
	case errors.Is(err, querysql.ErrUnknownEntitySet):
		out.Code = ErrCodeUnknownEntitySet
		out.Status = http.StatusNotFound
	default:
		out.Code = ErrCodeExecution
		out.Status = http.StatusInternalServerError
	}
	return out
}

// invalidRequest builds a RequestError for a request rejected before
// compilation.
func invalidRequest(requestID string, err error) *RequestError {
	return &RequestError{
		Code:      ErrCodeInvalidRequest,
		Message:   err.Error(),
		RequestID: requestID,
		Status:    http.StatusBadRequest,
		Cause:     err,
	}
}

// IsClientError returns true if err is a RequestError attributable to the
// request. Uses errors.As to handle wrapped errors.
func IsClientError(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Client()
	}
	return false
}

// ErrorCode returns the code of a RequestError in err's chain, or "".
func ErrorCode(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
