package middleware

import (
	"context"

	"github.com/3leaps/testharbor/internal/auth"
)

type claimsKey struct{}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the verified token claims attached by Auth,
// or nil when auth is disabled or the route is exempt.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}
