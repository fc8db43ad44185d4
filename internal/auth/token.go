// SPDX-License-Identifier: MIT

// Package auth implements JWT issuance/verification and the gateway's
// two auth layers: authenticated (valid bearer token required) and
// guest-ok (valid bearer, the literal "guest-token", or no token at all).
//
// The guest-token literal is a deliberate, documented weakening: it turns
// the guest-ok gate into identification rather than authorization. This
// preserves the upstream source's behavior exactly, per the design note
// calling it out, rather than silently tightening it.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GuestTokenLiteral is the literal value accepted by guest-ok routes as an
// identification token. It grants no elevated privileges beyond guest.
const GuestTokenLiteral = "guest-token"

// ErrMissingToken and ErrInvalidToken are the sentinel causes surfaced as
// 401/403 by the HTTP layer.
var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

// Claims is the gateway's JWT claim set.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Issuer issues and verifies bearer tokens signed with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer. secret must be non-empty in any environment
// that mints or verifies real (non-guest) tokens. A zero ttl defaults to 24
// hours; a negative ttl mints tokens that are already expired.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a bearer token for subject.
func (iss *Issuer) Issue(subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(iss.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(iss.secret)
}

// Verify parses and validates a bearer token, returning its claims.
func (iss *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return iss.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractToken retrieves the bearer token from the request's
// "Authorization: Bearer" header; no other location is consulted.
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}

// Principal identifies the caller of a guest-ok or authenticated route.
type Principal struct {
	Subject string
	Guest   bool
}

// Authenticate requires a valid bearer token and returns the authenticated
// Principal, or ErrMissingToken/ErrInvalidToken.
func (iss *Issuer) Authenticate(r *http.Request) (Principal, error) {
	raw := ExtractToken(r)
	if raw == "" {
		return Principal{}, ErrMissingToken
	}
	claims, err := iss.Verify(raw)
	if err != nil {
		return Principal{}, err
	}
	return Principal{Subject: claims.Subject}, nil
}

// AuthenticateGuestOK implements the guest-ok gate: a valid bearer token, the
// literal guest-token, or no token at all (treated as guest). usedGuestLiteral
// reports whether the literal weakening fired, so callers can log
// auth.guest_token_used.
func (iss *Issuer) AuthenticateGuestOK(r *http.Request) (p Principal, usedGuestLiteral bool) {
	raw := ExtractToken(r)
	if raw == "" {
		return Principal{Guest: true}, false
	}
	if raw == GuestTokenLiteral {
		return Principal{Guest: true}, true
	}
	claims, err := iss.Verify(raw)
	if err != nil {
		return Principal{Guest: true}, false
	}
	return Principal{Subject: claims.Subject}, false
}
