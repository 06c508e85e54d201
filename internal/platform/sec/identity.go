// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package sec

// Role represents the authorization level granted to an account.
type Role string

const (
	// Default role for standard registered users
	RoleUser Role = "user"

	// Can create and manage catalogue entries
	RoleContributor Role = "contributor"

	// Unrestricted system access
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContributor, RoleAdmin:
		return true
	}
	return false
}

// OneOf reports whether the role appears in the allow-list.
//
// # Why allow-list, not hierarchy?
//
// The role set has no meaningful total order: contributors manage catalogue
// entries while admins manage users, and neither strictly contains the
// other. Each protected operation therefore names the exact roles it
// accepts.
func (r Role) OneOf(allowed ...Role) bool {
	for _, candidate := range allowed {
		if r == candidate {
			return true
		}
	}
	return false
}

// Identity is the resolved user identity the auth gate attaches to the
// request context after full verification (signature, expiry, user lookup,
// password-change comparison).
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     Role
}
