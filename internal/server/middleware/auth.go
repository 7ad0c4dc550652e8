package middleware

import (
	"net/http"
	"strings"

	"github.com/3leaps/testharbor/internal/apperrors"
	"github.com/3leaps/testharbor/internal/auth"
)

// exemptPrefixes never require a bearer token regardless of the auth
// gate's configuration: health probes, version, and metrics scraping
// must stay reachable for orchestration tooling that doesn't carry a
// token.
var exemptPrefixes = []string{"/health", "/version", "/metrics"}

// Auth gates every non-exempt route behind verifier.Verify. A nil
// verifier means auth is disabled in config, and Auth becomes a no-op
// pass-through — callers should only install this middleware when a
// Verifier exists, but the nil check keeps the function safe either way.
func Auth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			requestID := RequestIDFromContext(r.Context())
			claims, err := verifier.Verify(r.Header.Get("Authorization"))
			if err != nil {
				apperrors.RespondWithError(w, apperrors.Unauthorized("missing or invalid bearer token"), requestID)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}
