package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a Ghar error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"            // 404
	ErrFileNotFound       ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrInvalidTransition  ErrorCode = "INVALID_TRANSITION"   // 409
	ErrValidationFailed   ErrorCode = "VALIDATION_FAILED"    // 422
	ErrCancelled          ErrorCode = "CANCELLED"            // 499
	ErrInternal           ErrorCode = "INTERNAL"             // 500
	ErrStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED" // 507
)

// GharError represents a structured error with code, status, and details.
type GharError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GharError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a single form field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GharError {
	return &GharError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a record missing from a collection.
func NewNotFound(key string, id int64) *GharError {
	return &GharError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("record %d not found in %s", id, key),
		Details: map[string]any{"key": key, "id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *GharError {
	return &GharError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInvalidTransition creates a 409 error for a form state change that is not allowed.
func NewInvalidTransition(from, to string) *GharError {
	return &GharError{
		Code:    ErrInvalidTransition,
		Status:  409,
		Message: fmt.Sprintf("cannot move form from %s to %s", from, to),
		Details: map[string]any{"from": from, "to": to},
	}
}

// NewValidationFailed creates a 422 error listing every field that failed validation.
func NewValidationFailed(fields []FieldError) *GharError {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return &GharError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")),
		Details: map[string]any{"fields": fields},
	}
}

// NewCancelled creates a 499 error when an operation is cancelled by its context.
func NewCancelled(op string) *GharError {
	return &GharError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewStorageWriteFailed creates a 507 error when a collection cannot be written back.
// The cause is kept in the message; storage errors carry no user data.
func NewStorageWriteFailed(key string, err error) *GharError {
	msg := fmt.Sprintf("failed to save %s", key)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &GharError{
		Code:    ErrStorageWriteFailed,
		Status:  507,
		Message: msg,
		Details: map[string]any{"key": key},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause goes to Details for logging; the message stays generic.
func NewInternal(err error) *GharError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &GharError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a GharError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GharError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// Fields returns the field errors carried by a VALIDATION_FAILED error, or nil.
func Fields(err error) []FieldError {
	var gErr *GharError
	if !stderrors.As(err, &gErr) || gErr.Code != ErrValidationFailed {
		return nil
	}
	fields, _ := gErr.Details["fields"].([]FieldError)
	return fields
}

// MessageOf returns the Message of a GharError, or err.Error() for anything else.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var gErr *GharError
	if stderrors.As(err, &gErr) {
		return gErr.Message
	}
	return err.Error()
}
