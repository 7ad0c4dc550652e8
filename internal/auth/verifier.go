// Package auth implements the credential verifier (C3): bearer-token
// validation at the request boundary, built from a configured algorithm
// and key material path. When auth is disabled in config, no Verifier is
// constructed and every request is admitted.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subject/role/expiry payload carried by a verified token.
type Claims struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles"`
	jwt.RegisteredClaims
}

// Algorithm is the closed set of signing algorithms the verifier
// accepts.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	RS256 Algorithm = "RS256"
	ES256 Algorithm = "ES256"
)

// Verifier validates bearer tokens against a single configured algorithm
// and key. It is immutable after construction and safe for concurrent
// use.
type Verifier struct {
	algorithm Algorithm
	key       any
}

// New constructs a Verifier from an algorithm and a filesystem path to
// key material. HS256 reads a raw shared-secret file; RS256/ES256 read a
// PEM-encoded public key used to verify signatures (the service only
// ever verifies, never mints, tokens).
func New(algorithm Algorithm, keyPath string) (*Verifier, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("auth: read key material: %w", err)
	}

	var key any
	switch algorithm {
	case HS256:
		key = raw
	case RS256:
		key, err = jwt.ParseRSAPublicKeyFromPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("auth: parse RS256 public key: %w", err)
		}
	case ES256:
		key, err = jwt.ParseECPublicKeyFromPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("auth: parse ES256 public key: %w", err)
		}
	default:
		return nil, fmt.Errorf("auth: unsupported algorithm %q", algorithm)
	}

	return &Verifier{algorithm: algorithm, key: key}, nil
}

// ErrInvalidToken is returned for any verification failure. The message
// is intentionally generic; callers map it straight to a 401 without
// including verification-error detail, per spec.md §4.6/§7.
var ErrInvalidToken = fmt.Errorf("auth: invalid or expired token")

// Verify extracts and validates the bearer token from an
// "Authorization: Bearer <token>" header value, returning its Claims on
// success.
func (v *Verifier) Verify(authHeader string) (*Claims, error) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if !v.algorithmMatches(t.Method) {
			return nil, fmt.Errorf("unexpected signing method %v", t.Method.Alg())
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{string(v.algorithm)}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (v *Verifier) algorithmMatches(method jwt.SigningMethod) bool {
	switch v.algorithm {
	case HS256:
		_, ok := method.(*jwt.SigningMethodHMAC)
		return ok
	case RS256:
		_, ok := method.(*jwt.SigningMethodRSA)
		return ok
	case ES256:
		_, ok := method.(*jwt.SigningMethodECDSA)
		return ok
	default:
		return false
	}
}
