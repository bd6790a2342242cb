// Route guards. Protect walks a request through the authentication states
// (token present -> token verified -> principal resolved) and short-circuits
// with a 401 at the first failure; RestrictTo adds role-based authorization
// on top and must therefore run after Protect in the middleware chain.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/natours-go/apperror"
)

// CookieName is the name of the session token cookie set alongside the JSON
// token and accepted by Protect as an alternative to the header.
const CookieName = "jwt"

// Protect returns the authentication guard. It extracts the bearer token
// (Authorization header first, jwt cookie as fallback), verifies it,
// resolves the principal, rejects tokens minted before the principal's last
// password change, and finally stores the principal on the request context.
func (s *Service) Protect(responder *apperror.Responder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				responder.Write(w, r, apperror.NewAuthError(
					"You are not logged in! Please log in to get access.", nil))
				return
			}

			claims, err := s.VerifyToken(tokenString)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					responder.Write(w, r, apperror.NewAuthError(
						"Your token has expired! Please log in again.", err))
					return
				}
				responder.Write(w, r, apperror.NewAuthError(
					"Invalid token. Please log in again!", err))
				return
			}

			user, err := s.UserByID(r.Context(), claims.UserID)
			if err != nil {
				if apperror.IsNotFound(err) {
					responder.Write(w, r, apperror.NewAuthError(
						"The user belonging to this token does no longer exist.", nil))
					return
				}
				responder.Write(w, r, err)
				return
			}

			if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
				responder.Write(w, r, apperror.NewAuthError(
					"User recently changed password! Please log in again.", nil))
				return
			}

			ctx := NewContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RestrictTo permits only principals whose role is in the allowed set.
func RestrictTo(responder *apperror.Responder, roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				// RestrictTo placed before Protect is a wiring bug; fail closed.
				responder.Write(w, r, apperror.NewAuthError(
					"You are not logged in! Please log in to get access.", nil))
				return
			}
			if !user.HasRole(roles...) {
				responder.Write(w, r, apperror.NewForbiddenError(
					"You do not have permission to perform this action", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken pulls the session token from "Authorization: Bearer <token>"
// or, failing that, from the jwt cookie.
func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}
