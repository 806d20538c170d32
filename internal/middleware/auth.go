// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"blogapi/internal/auth"
	"blogapi/internal/models"
	"blogapi/internal/respond"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// ClaimsKey is the context key for the verified token claims.
const ClaimsKey contextKey = "claims"

const (
	msgLoginRequired = "You must be logged in to access this resource"
	msgTokenExpired  = "Your session has expired, please log in again"
	msgForbidden     = "You do not have permission to access this resource"
)

// TokenVerifier checks a raw access token.
type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token id has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AccountLookup loads a live user. A nil user means the account is gone.
type AccountLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate rejects requests without a valid, unrevoked access token
// with 401 and stores the token claims in the request context. revoked
// may be nil, in which case logout is not enforced.
func Authenticate(verifier TokenVerifier, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				respond.Error(w, http.StatusUnauthorized, msgLoginRequired)
				return
			}

			claims, err := verifier.Verify(raw)
			if errors.Is(err, auth.ErrExpiredToken) {
				respond.Error(w, http.StatusUnauthorized, msgTokenExpired)
				return
			}
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, msgLoginRequired)
				return
			}

			if revoked != nil {
				gone, err := revoked.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					respond.Internal(w, r, err)
					return
				}
				if gone {
					respond.Error(w, http.StatusUnauthorized, msgLoginRequired)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the access token from X-Access-Token or the
// Authorization header, with or without a "Bearer " prefix.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get("X-Access-Token")); t != "" {
		return t
	}
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

// RequireAdmin returns 403 if the authenticated user is not an admin.
// Must be applied after Authenticate. The role in the token is checked
// first; when accounts is set the stored account is loaded too, so an
// admin who was demoted gets 403 and one who was deleted gets 401 before
// their token expires.
func RequireAdmin(accounts AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromCtx(r.Context())
			if claims == nil {
				respond.Error(w, http.StatusUnauthorized, msgLoginRequired)
				return
			}
			if !claims.IsAdmin() {
				respond.Error(w, http.StatusForbidden, msgForbidden)
				return
			}

			if accounts != nil {
				user, err := accounts.FindByID(r.Context(), claims.UserID)
				if err != nil {
					respond.Internal(w, r, err)
					return
				}
				if user == nil {
					respond.Error(w, http.StatusUnauthorized, msgLoginRequired)
					return
				}
				if !user.IsAdmin() {
					respond.Error(w, http.StatusForbidden, msgForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromCtx extracts the token claims from the request context.
// Returns nil if the request is not authenticated.
func ClaimsFromCtx(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
