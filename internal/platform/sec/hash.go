// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the adaptive work factor used for password hashing
// when configuration does not override it.
const DefaultBcryptCost = 12

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// Cost values outside bcrypt's supported range fall back to [DefaultBcryptCost].
func HashPassword(plainTextPassword string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// # Fails Closed
//
// Any comparison error (including a corrupted stored hash) is treated as a
// non-match, never as success. bcrypt's comparison is constant-time with
// respect to the password bytes.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
