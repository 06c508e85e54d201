// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ResetSecretLength is the byte length of the random password-reset secret
// (32 bytes = 256 bits of entropy).
const ResetSecretLength = 32

// GenerateResetSecret produces a one-time password-reset secret and the
// hash under which it is stored.
//
// # Storage Model
//
// The plaintext secret is returned exactly once so it can be embedded in a
// reset link; only the sha256 hash is ever persisted. sha256 (rather than
// bcrypt) is deliberate: the secret is high-entropy and single-use, so the
// hash serves equality lookup, not secrecy-of-storage, and must be
// deterministic to be queryable.
func GenerateResetSecret() (secret, secretHash string, err error) {
	buffer := make([]byte, ResetSecretLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", "", fmt.Errorf("sec: failed to generate reset secret: %w", err)
	}

	secret = hex.EncodeToString(buffer)
	return secret, HashResetSecret(secret), nil
}

// HashResetSecret recomputes the stored hash for a presented secret so it
// can be matched against the persisted value during redemption.
func HashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
