// Package apperrors defines the closed vocabulary of error kinds the API
// surface may return and the envelope used to render them as JSON.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is a closed enumeration of client- and server-facing error kinds.
type Kind string

const (
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL_ERROR"
)

func (k Kind) httpStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the application-level error type carried through handler
// return paths. It deliberately does not embed a stack trace; panics are
// handled separately by the recovery middleware.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithField annotates the error with the offending request field/value.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// Wrap attaches a lower-level cause for logging without leaking it to the client.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// BadRequest, NotFound, Unauthorized, Internal are convenience constructors
// used throughout handlers.
func BadRequest(msg string) *Error   { return New(KindBadRequest, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Internal(msg string) *Error     { return New(KindInternal, msg) }

// As extracts an *Error from err, or synthesizes an INTERNAL_ERROR wrapper
// for anything it doesn't recognize.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Message: "internal error", cause: err}
}

// ErrorDetail is the body of the "error" object in an HTTP error response.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Field     string         `json:"field,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the top-level JSON body written for any non-2xx
// response produced by the boundary middleware or a handler.
type HTTPErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// RespondWithError renders err as a JSON HTTPErrorResponse and writes the
// status code implied by its Kind. requestID may be empty.
func RespondWithError(w http.ResponseWriter, err error, requestID string) {
	appErr := As(err)

	detail := ErrorDetail{
		Code:      string(appErr.Kind),
		Message:   appErr.Message,
		Field:     appErr.Field,
		RequestID: requestID,
	}
	if appErr.Field != "" {
		detail.Details = map[string]any{"field": appErr.Field}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.Kind.httpStatus())
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: detail})
}
