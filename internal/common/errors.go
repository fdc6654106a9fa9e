package common

import (
	"errors"
	"net/http"
)

// ValidationError is a user-correctable rejection identified by a stable reason.
// Sentinel values are compared by identity with errors.Is.
type ValidationError struct {
	Reason  string
	Message string
}

// NewValidationError constructs a ValidationError.
func NewValidationError(reason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// StatusCoder is implemented by errors that carry their own HTTP status, such
// as failures relayed from an upstream service.
type StatusCoder interface {
	error
	StatusCode() int
	ErrorCode() string
}

// HTTPError is a fixed status and code, used for sentinel errors such as a
// duplicate submission.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

// NewHTTPError constructs an HTTPError.
func NewHTTPError(status int, code, message string) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message}
}

func (e *HTTPError) Error() string { return e.Message }

// StatusCode implements StatusCoder.
func (e *HTTPError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// ErrorCode implements StatusCoder.
func (e *HTTPError) ErrorCode() string { return e.Code }

// WriteError renders err using the canonical error shape. Validation errors
// map to 422, StatusCoders to their own status and anything else to 500.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if v, ok := AsValidation(err); ok {
		JSONError(w, http.StatusUnprocessableEntity, v.Reason, v.Message, nil)
		return
	}
	var coded StatusCoder
	if errors.As(err, &coded) {
		JSONError(w, coded.StatusCode(), coded.ErrorCode(), coded.Error(), nil)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

// BadRequest renders a 400 with the given message.
func BadRequest(w http.ResponseWriter, message string, details any) {
	JSONError(w, http.StatusBadRequest, "BAD_REQUEST", message, details)
}
