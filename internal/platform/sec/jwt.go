// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing,
// reset-secret generation) from the domain logic. It acts as an
// Infrastructure service injected into the Application layer via small
// interfaces ([auth.TokenIssuer], [middleware.TokenVerifier]).
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures are split so the gate can report an expired
// session differently from a tampered one.
var (
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed indicates a token that is garbled, unsigned, or
	// carries an invalid signature.
	ErrTokenMalformed = errors.New("sec: token malformed or tampered")
)

// AuthClaims represents the payload embedded inside a JWT access token.
//
// # Why only registered claims?
//
// The auth gate re-resolves the subject user from the credential store on
// every request anyway (it must compare the token's issue time against the
// user's passwordChangedAt), so embedding profile data in the token would
// only risk serving stale values. Subject + IssuedAt + ExpiresAt is all
// the gate needs.
type AuthClaims struct {
	jwt.RegisteredClaims
}

// UserID returns the token subject (the account identifier).
func (c *AuthClaims) UserID() string {
	return c.Subject
}

// TokenService handles generation and verification of JWT tokens using HS256.
//
// # Key Rotation
//
// The signing secret is process-wide configuration loaded once at startup.
// Rotating it invalidates all outstanding tokens; there is deliberately no
// graceful rotation.
type TokenService struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret, issuer string, lifetime time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		issuer:   issuer,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests that need to move
// tokens across their expiry window deterministically.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	service.now = now
	return service
}

// Issue creates a new signed JWT for a user.
//
// The expiry is derived from the configured lifetime relative to issue time.
func (service *TokenService) Issue(userID string) (string, error) {
	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a JWT string.
//
// # Returns
//   - [*AuthClaims] when the token is authentic and unexpired.
//   - [ErrTokenExpired] for authentic but stale tokens.
//   - [ErrTokenMalformed] for everything else (tampering, wrong algorithm,
//     garbage input).
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	}, jwt.WithTimeFunc(service.now), jwt.WithIssuer(service.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
