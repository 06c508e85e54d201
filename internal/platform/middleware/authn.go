// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/booklore/booklore/internal/platform/apperr"
	"github.com/booklore/booklore/internal/platform/constants"
	"github.com/booklore/booklore/internal/platform/ctxutil"
	"github.com/booklore/booklore/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from [sec.TokenService],
// allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.AuthClaims, error)
}

// GateSubject is the credential snapshot the auth gate needs to finish
// verifying a token. It is intentionally smaller than the full account
// record: only identity fields plus the data the gate compares against.
type GateSubject struct {
	Identity          sec.Identity
	PasswordChangedAt *time.Time
	Active            bool
}

// SubjectLoader resolves the account a verified token refers to.
//
// Implementations must return [dberr.ErrNotFound]-style errors (any non-nil
// error) when the account no longer exists; the gate treats every load
// failure as a dead token.
type SubjectLoader interface {
	LoadSubject(ctx context.Context, userID string) (*GateSubject, error)
}

// Client-safe gate rejection messages. Each failure mode gets distinct
// wording so users can tell a stale session from a revoked one, but all of
// them map to 401 so clients retry the same way: by logging in again.
const (
	msgNotLoggedIn     = "You are not logged in. Please log in to get access."
	msgTokenInvalid    = "Invalid authentication token. Please log in again."
	msgTokenExpired    = "Your token has expired. Please log in again."
	msgUserGone        = "The user belonging to this token no longer exists."
	msgPasswordChanged = "Password was changed recently. Please log in again."
)

// RequireAuth is the authentication gate. Every request on a protected route
// passes through its full state machine; there is no anonymous fall-through.
//
// # Flow
//  1. Extract the bearer token from 'Authorization: Bearer <token>', falling
//     back to the httpOnly cookie issued at login.
//  2. Absent token: abort 401.
//  3. Verify signature and expiry via [TokenVerifier]. Expired and malformed
//     tokens are rejected with distinct messages.
//  4. Resolve the subject account via [SubjectLoader]. A missing or
//     deactivated account kills the token.
//  5. Compare the token's IssuedAt against the account's PasswordChangedAt.
//     Tokens minted before the last password change are revoked.
//  6. Attach the resolved [*sec.Identity] to the request context.
func RequireAuth(verifier TokenVerifier, loader SubjectLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Extraction ───────────────────────────────────────────
			tokenString := extractToken(request)
			if tokenString == "" {
				unauthorized(writer, msgNotLoggedIn)
				return
			}

			// ── 2. Signature & Expiry ─────────────────────────────────────────
			claims, err := verifier.Verify(tokenString)
			if err != nil {
				switch err {
				case sec.ErrTokenExpired:
					unauthorized(writer, msgTokenExpired)
				default:
					unauthorized(writer, msgTokenInvalid)
				}
				return
			}

			// ── 3. Subject Resolution ─────────────────────────────────────────
			subject, err := loader.LoadSubject(request.Context(), claims.UserID())
			if err != nil || subject == nil || !subject.Active {
				unauthorized(writer, msgUserGone)
				return
			}

			// ── 4. Password-Change Revocation ─────────────────────────────────
			// A token issued before the password last changed belongs to a
			// session that should have died with the old password.
			if subject.PasswordChangedAt != nil && claims.IssuedAt != nil {
				if claims.IssuedAt.Time.Before(*subject.PasswordChangedAt) {
					unauthorized(writer, msgPasswordChanged)
					return
				}
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			identity := subject.Identity
			ctx := ctxutil.WithIdentity(request.Context(), &identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireRole blocks requests whose identity is not in the role allow-list.
//
// # Usage
//
// Must be registered in the router AFTER [RequireAuth]; it assumes the
// identity is already resolved and attached to the context.
func RequireRole(allowed ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				unauthorized(writer, msgNotLoggedIn)
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.Role.OneOf(allowed...) {
				appError := apperr.Forbidden("You do not have permission to perform this action")
				writeError(writer, appError.HTTPStatus, appError.Code, appError.Message)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the login cookie. Header wins when both are present.
func extractToken(request *http.Request) string {
	authHeader := request.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		// A present but unparseable header is treated as no credentials at
		// all rather than a malformed token; the token was never extracted.
		return ""
	}

	cookie, err := request.Cookie(constants.TokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func unauthorized(writer http.ResponseWriter, message string) {
	appError := apperr.Unauthorized(message)
	writeError(writer, appError.HTTPStatus, appError.Code, appError.Message)
}
