package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// Store-level sentinels. Both stores wrap these so callers can use errors.Is.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("unique constraint failed")

	// ErrBadRequest marks malformed input that never reached validation.
	ErrBadRequest = errors.New("bad request")
	// ErrUnsupported marks an entity/action pair the dispatcher does not serve.
	ErrUnsupported = errors.New("unsupported operation")
)

// Public messages for the store sentinels.
const (
	MsgNotFound = "Record not found"
	MsgConflict = "Unique constraint failed"
)

// ValidationError is a failed business rule. Message is user-facing text.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StoreError replaces any unclassified persistence failure. The cause is
// logged where the error is created and deliberately not carried.
type StoreError struct {
	Op string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: store error", e.Op)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DescribeError maps an error onto an HTTP status and a public error body.
// Unknown errors are reported as internal without exposing their text.
func DescribeError(err error) (int, ErrorBody) {
	var ve *ValidationError
	var se *StoreError
	switch {
	case errors.As(err, &ve):
		var details any
		if ve.Field != "" {
			details = map[string]string{"field": ve.Field}
		}
		return http.StatusUnprocessableEntity, ErrorBody{Code: "VALIDATION_422", Message: ve.Message, Details: details}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrorBody{Code: "NOT_FOUND_404", Message: MsgNotFound}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, ErrorBody{Code: "CONFLICT_409", Message: MsgConflict}
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnsupported):
		return http.StatusBadRequest, ErrorBody{Code: "REQUEST_400", Message: err.Error()}
	case errors.As(err, &se):
		return http.StatusInternalServerError, ErrorBody{Code: "STORE_500", Message: se.Error()}
	default:
		return http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_500", Message: "internal error"}
	}
}
