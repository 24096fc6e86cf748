package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrConflict
	ErrValidation
	ErrNoRecords
	ErrOrphanMeasurement
	ErrAttachPrompt
	ErrInternal
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error code to the status the handler layer should emit.
// NoRecords and missing roster links surface as 404 on purpose: a doctor must
// not be able to confirm the existence of a patient outside their roster.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrNotFound, ErrNoRecords:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrValidation:
		return http.StatusUnprocessableEntity
	case ErrAttachPrompt:
		return http.StatusIMUsed
	default:
		return http.StatusInternalServerError
	}
}

// As unwraps err into an *AppError if possible.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Error constructors
func NotFound(message string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: message, Err: err}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

func Unauthorized(message string, err error) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{Code: ErrUnauthorized, Message: message, Err: err}
}

func Forbidden(message string, err error) *AppError {
	if message == "" {
		message = "not enough permissions"
	}
	return &AppError{Code: ErrForbidden, Message: message, Err: err}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

func Validation(message string, err error) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// NoRecords signals an aggregation over an empty measurement series. It is a
// distinct kind so callers never conflate "no data" with a legitimate zero.
func NoRecords(patientID string) *AppError {
	return &AppError{
		Code:    ErrNoRecords,
		Message: fmt.Sprintf("the patient with id %s has no records", patientID),
	}
}

// OrphanMeasurement signals a measurement whose patient no longer resolves,
// a referential-integrity violation rather than a user error.
func OrphanMeasurement(patientID string) *AppError {
	return &AppError{
		Code:    ErrOrphanMeasurement,
		Message: fmt.Sprintf("measurement references unknown patient %s", patientID),
	}
}

// AttachPrompt is the informational "patient exists under another doctor"
// response: not a failure, but the caller must confirm the attach explicitly.
func AttachPrompt(patientID string, details interface{}) *AppError {
	return &AppError{
		Code: ErrAttachPrompt,
		Message: fmt.Sprintf(
			"there is already a patient with id %s belonging to another doctor; confirm to add them to your roster",
			patientID,
		),
		Details: details,
	}
}
