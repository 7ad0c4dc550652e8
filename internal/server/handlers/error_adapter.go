package handlers

import (
	"net/http"

	"github.com/3leaps/testharbor/internal/apperrors"
	"github.com/3leaps/testharbor/internal/server/middleware"
)

// httpErrorResponder is the swappable error-rendering hook every domain
// handler calls through respondWithError. Tests substitute it to observe
// what error reached the boundary without decoding a JSON body.
var httpErrorResponder = defaultHTTPErrorResponder

func defaultHTTPErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, err, middleware.RequestIDFromContext(r.Context()))
}

// SetHTTPErrorResponder overrides the responder used by respondWithError.
// Passing nil resets to the default apperrors-backed renderer.
func SetHTTPErrorResponder(fn func(w http.ResponseWriter, r *http.Request, err error)) {
	if fn == nil {
		httpErrorResponder = defaultHTTPErrorResponder
		return
	}
	httpErrorResponder = fn
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultHTTPErrorResponder
}

// respondWithError is the single call site every domain handler in this
// package uses to render a terminal error, so swapping the responder in
// tests observes every handler uniformly.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
