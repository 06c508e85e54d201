// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklore/booklore/internal/platform/sec"
)

/*
TestHashPassword verifies round-trip hashing and the fail-closed comparison.
*/
func TestHashPassword(t *testing.T) {
	hash, err := sec.HashPassword("secret123", sec.DefaultBcryptCost)
	require.NoError(t, err)
	require.NotEqual(t, "secret123", hash)

	assert.True(t, sec.CheckPasswordHash("secret123", hash))
	assert.False(t, sec.CheckPasswordHash("wrong-password", hash))

	// Corrupted stored hash must never verify.
	assert.False(t, sec.CheckPasswordHash("secret123", "not-a-bcrypt-hash"))
}

/*
TestTokenService_IssueVerify covers the happy path: a freshly issued token
verifies and carries the subject.
*/
func TestTokenService_IssueVerify(t *testing.T) {
	service := sec.NewTokenService("test-secret", "booklore.app", 15*time.Minute)

	token, err := service.Issue("user-123")
	require.NoError(t, err)

	claims, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
}

/*
TestTokenService_Expired verifies that a token past its lifetime fails with
the dedicated expiry error, distinguishable from tampering.
*/
func TestTokenService_Expired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	current := issuedAt

	service := sec.NewTokenService("test-secret", "booklore.app", 15*time.Minute).
		WithClock(func() time.Time { return current })

	token, err := service.Issue("user-123")
	require.NoError(t, err)

	// Still valid just before expiry.
	current = issuedAt.Add(14 * time.Minute)
	_, err = service.Verify(token)
	require.NoError(t, err)

	// Expired afterwards.
	current = issuedAt.Add(16 * time.Minute)
	_, err = service.Verify(token)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenService_Tampered verifies malformed and forged tokens are rejected
with the malformed error.
*/
func TestTokenService_Tampered(t *testing.T) {
	service := sec.NewTokenService("test-secret", "booklore.app", 15*time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Verify(tt.token)
			assert.ErrorIs(t, err, sec.ErrTokenMalformed)
		})
	}

	// A token signed with a different secret must be malformed, not expired.
	forger := sec.NewTokenService("other-secret", "booklore.app", 15*time.Minute)
	forged, err := forger.Issue("user-123")
	require.NoError(t, err)

	_, err = service.Verify(forged)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)
}

/*
TestGenerateResetSecret checks entropy length, hash determinism, and that
two generations never collide.
*/
func TestGenerateResetSecret(t *testing.T) {
	secret, secretHash, err := sec.GenerateResetSecret()
	require.NoError(t, err)

	// 32 random bytes hex-encoded.
	assert.Len(t, secret, 64)
	assert.Len(t, secretHash, 64)
	assert.NotEqual(t, secret, secretHash)

	// Redemption recomputes the identical stored hash.
	assert.Equal(t, secretHash, sec.HashResetSecret(secret))

	other, otherHash, err := sec.GenerateResetSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
	assert.NotEqual(t, secretHash, otherHash)
}

/*
TestRole_OneOf checks allow-list membership semantics.
*/
func TestRole_OneOf(t *testing.T) {
	assert.True(t, sec.RoleAdmin.OneOf(sec.RoleAdmin))
	assert.True(t, sec.RoleContributor.OneOf(sec.RoleContributor, sec.RoleAdmin))
	assert.False(t, sec.RoleUser.OneOf(sec.RoleContributor, sec.RoleAdmin))
	assert.False(t, sec.Role("ghost").OneOf(sec.RoleUser))
}
