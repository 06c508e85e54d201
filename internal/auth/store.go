// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package auth

import (
	"context"
	"time"
)

// UserRepository defines the data access contract for user accounts.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation for Booklore is PostgreSQL
// ([PostgresUserRepository]); tests use an in-memory fake.
//
// # Visibility
//
// Every lookup excludes deactivated accounts. Uniqueness of email and
// username is enforced by the store's constraints, not by the service;
// constraint violations surface as [apperr.Conflict] via dberr.
type UserRepository interface {
	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the account with the given email, including the
	// password hash (this is the login path).
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsername returns the account with the given username.
	//
	// Returns [apperr.NotFound] if the username is available.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create persists a brand-new user account to the storage.
	//
	// Returns a wrapped error if a unique constraint (email/username) fails.
	Create(ctx context.Context, user *User) error

	// UpdateProfile persists changes to mutable profile fields
	// (FirstName, LastName, Username, Email, Address).
	// Passwords must be updated via [UpdatePassword].
	UpdateProfile(ctx context.Context, user *User) error

	// UpdatePassword replaces the user's password hash, stamps
	// passwordchangedat slightly in the past, and clears any outstanding
	// reset fields. The backdated stamp guarantees tokens issued in the
	// same instant as the change still compare as issued-after.
	UpdatePassword(ctx context.Context, userID, newHash string) error

	// SetResetToken stores the sha256 of a reset secret together with its
	// expiry window on the account row.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// FindByResetToken returns the account holding the given reset-token
	// hash whose window has not yet expired. Expiry is evaluated in SQL so
	// there is a single clock of record.
	//
	// Returns [apperr.NotFound] for unknown, redeemed, or expired tokens.
	FindByResetToken(ctx context.Context, tokenHash string) (*User, error)

	// ClearResetToken removes both reset fields from the account row.
	ClearResetToken(ctx context.Context, userID string) error

	// Deactivate marks the account inactive without removing the row.
	// This preserves relational integrity for content the user created.
	Deactivate(ctx context.Context, userID string) error

	// List returns a page of active accounts, newest first, plus the total
	// active count for pagination metadata.
	List(ctx context.Context, limit, offset int) ([]*User, int, error)

	// RoleStats returns the number of active accounts per role.
	RoleStats(ctx context.Context) ([]RoleStat, error)
}
