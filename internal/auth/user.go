// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

// Package auth implements the user account and credential lifecycle of the
// Booklore platform.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the system.
// They have no dependencies on outer layers (like databases, APIs, or libraries),
// except the role/identity value types shared with the auth gate via platform/sec.
package auth

import (
	"time"

	"github.com/booklore/booklore/internal/platform/sec"
)

// User represents a registered member of the Booklore platform.
//
// # Rules
//   - Username is unique and URL-safe.
//   - Email is unique, validated, and stored lower-cased.
//   - PasswordHash is generated via Bcrypt exclusively by the Service and is
//     never serialized.
//   - The reset fields (PasswordResetToken, PasswordResetExpires) exist
//     together or not at all; only the sha256 of the reset secret is stored.
//   - Active=false accounts are invisible to every default lookup.
type User struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Address   string   `json:"address,omitempty"`
	Role      sec.Role `json:"role"`

	// Credential material. All of it is server-side only.
	PasswordHash         string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`

	Active    bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity projects the entity into the lightweight value the auth gate
// attaches to request contexts.
func (u *User) Identity() sec.Identity {
	return sec.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// RoleStat is one row of the per-role account aggregation.
type RoleStat struct {
	Role  sec.Role `json:"role"`
	Count int      `json:"count"`
}
