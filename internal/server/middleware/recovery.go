// Package middleware implements the boundary middleware chain (§7): panic
// recovery translated to INTERNAL_ERROR, request-id propagation, the
// optional auth gate, and per-route rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/testharbor/internal/apperrors"
)

// logger receives panic/stack detail that never reaches the client. It
// defaults to a no-op logger so tests that never call SetLogger still
// run cleanly; lifecycle.Start installs the real one at startup.
var logger = zap.NewNop()

// SetLogger installs the logger Recovery reports panics through. A nil
// logger resets to the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop()
		return
	}
	logger = l
}

type requestIDKey struct{}

// ErrorResponse mirrors apperrors.HTTPErrorResponse; kept as a local type
// so tests in this package can decode a response body without importing
// apperrors purely for that purpose.
type ErrorResponse struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		RequestID string         `json:"request_id,omitempty"`
		Details   map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// RequestID assigns an X-Request-ID (generating a uuid when the caller
// didn't supply one) and stashes it in the request context for downstream
// handlers and the Recovery middleware to read back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id stashed by RequestID, or ""
// if none is present.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// Recovery catches any panic raised by next, converting it into an
// INTERNAL_ERROR JSON response instead of letting the connection close
// with no body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := RequestIDFromContext(r.Context())
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("request_id", requestID),
					zap.Stack("stack"),
				)
				writeErrorResponse(w, apperrors.ErrorDetail{
					Code:      string(apperrors.KindInternal),
					Message:   "internal error",
					RequestID: requestID,
				}, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is Recovery under another name, kept distinct so call
// sites can express either "this recovers panics" or "this is the
// error-boundary middleware" depending on which reads better in context.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

func writeErrorResponse(w http.ResponseWriter, detail apperrors.ErrorDetail, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apperrors.HTTPErrorResponse{Error: detail})
}
