// Package server assembles the chi router and the boundary middleware
// chain (§5/§7): panic recovery, request-id propagation, the optional
// auth gate, and per-route rate limiting in front of the domain
// handlers.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/3leaps/testharbor/internal/apperrors"
	"github.com/3leaps/testharbor/internal/auth"
	"github.com/3leaps/testharbor/internal/server/handlers"
	"github.com/3leaps/testharbor/internal/server/middleware"
)

// authVerifier and limiter are installed by the lifecycle coordinator
// before any Server is constructed; both default to nil, under which
// Auth and rate limiting become no-ops, matching handlers.Deps'
// global-singleton wiring pattern.
var (
	authVerifier *auth.Verifier
	limiter      *middleware.RateLimiter
)

// SetVerifier installs the process-wide credential verifier. Passing nil
// disables the auth gate entirely (auth.enabled = false in config).
func SetVerifier(v *auth.Verifier) {
	authVerifier = v
}

// SetRateLimiter installs the process-wide rate limiter guarding the two
// write routes.
func SetRateLimiter(rl *middleware.RateLimiter) {
	limiter = rl
}

// SuggestEnabled controls whether GET /api/executions/suggest is
// registered; spec.md §6 requires the route be entirely absent (not
// merely disabled) when execution_suggest.enabled is false.
var SuggestEnabled = false

// Server wraps a configured chi.Router and the host/port it will bind.
type Server struct {
	host   string
	port   int
	router chi.Router
}

// New builds a Server bound to host:port, wiring every route and
// middleware. The process-wide handlers.Deps, and optionally a Verifier
// and RateLimiter, must already be installed via InitDomainHandlers /
// SetVerifier / SetRateLimiter before New is called.
func New(host string, port int) *Server {
	r := chi.NewRouter()
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Auth(authVerifier))

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	r.Post("/api/execution", handlers.CreateExecutionHandler)
	r.Get("/api/executions", handlers.ListExecutionsHandler)
	if SuggestEnabled {
		r.Get("/api/executions/suggest", handlers.SuggestExecutionsHandler)
	}
	r.Get("/api/execution/{id}/result", handlers.ListResultsHandler)
	r.Get("/api/result/{id}", handlers.GetResultHandler)
	r.Patch("/api/result/{id}/status", handlers.UpdateResultStatusHandler)

	r.With(rateLimited).Post("/api/result", handlers.CreateResultHandler)
	r.With(rateLimited).Post("/api/executions/{id}/result/stream", handlers.StreamResultsHandler)

	return &Server{host: host, port: port, router: r}
}

// rateLimited wraps next with the process-wide limiter when one has been
// installed, otherwise passes through untouched.
func rateLimited(next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return limiter.Limit(next)
}

// Handler returns the fully wired http.Handler, ready to pass to
// http.Server or a test server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured bind port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the host:port string for http.Server.Addr.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeStandardError(w, http.StatusNotFound, apperrors.KindNotFound, "resource not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeStandardError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

func writeStandardError(w http.ResponseWriter, status int, code apperrors.Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apperrors.HTTPErrorResponse{
		Error: apperrors.ErrorDetail{Code: string(code), Message: message},
	})
}
