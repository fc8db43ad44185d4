// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"

	"github.com/wavelink/gateway/internal/auth"
	xglog "github.com/wavelink/gateway/internal/log"
)

type principalKey struct{}

func principalFromContext(ctx context.Context) auth.Principal {
	if p, ok := ctx.Value(principalKey{}).(auth.Principal); ok {
		return p
	}
	return auth.Principal{Guest: true}
}

// guestOKMiddleware implements spec.md's guest-ok gate: a valid bearer, the
// literal guest-token, or no token at all. It never rejects a request; it
// only attaches whichever Principal it resolved.
func (s *Server) guestOKMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, usedGuestLiteral := s.issuer.AuthenticateGuestOK(r)
		if usedGuestLiteral {
			xglog.FromContext(r.Context()).Info().Str(xglog.FieldEvent, "auth.guest_token_used").Msg("guest-token literal accepted")
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticatedMiddleware requires a valid bearer token.
func (s *Server) authenticatedMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.issuer.Authenticate(r)
		switch err {
		case nil:
			ctx := context.WithValue(r.Context(), principalKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		case auth.ErrMissingToken:
			RespondError(w, http.StatusUnauthorized, "authentication required", "")
		default:
			RespondError(w, http.StatusForbidden, "invalid or expired token", "")
		}
	})
}
