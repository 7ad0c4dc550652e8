package middleware

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/3leaps/testharbor/internal/apperrors"
)

// RateLimiter throttles requests per remote address with a token-bucket
// limiter, protecting the bounded ingest queue from a single runaway
// producer. Buckets are created lazily and never evicted; the address
// space a given deployment sees is bounded by its own client population,
// not by attacker-controlled input, so unbounded growth is an accepted
// tradeoff for the simplicity of not needing a reaper goroutine.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter builds a limiter allowing rps requests per second with
// burst headroom, per distinct remote address.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (l *RateLimiter) bucketFor(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[addr]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[addr] = b
	}
	return b
}

// Limit wraps next, rejecting requests that exceed the per-address
// bucket with a RATE_LIMITED error.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := remoteAddr(r)
		if !l.bucketFor(addr).Allow() {
			requestID := RequestIDFromContext(r.Context())
			apperrors.RespondWithError(w, apperrors.New(apperrors.KindRateLimited, "too many requests"), requestID)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
