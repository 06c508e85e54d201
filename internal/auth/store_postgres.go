// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

// PostgreSQL implementation of the account storage contract.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows and SQLSTATE 23505) are mapped
// to domain-friendly [apperr.AppError] types via [dberr.Wrap] to avoid
// leaking storage implementation details.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booklore/booklore/internal/platform/dberr"
)

// accountColumns is the canonical column list scanned into [*User].
const accountColumns = `
	id, firstname, lastname, username, email, address, role,
	passwordhash, passwordchangedat, passwordresettoken, passwordresetexpires,
	active, createdat, updatedat`

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record into the users.account table.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, firstname, lastname, username, email, address, role,
			passwordhash, active, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		strings.ToLower(user.Email),
		user.Address,
		user.Role,
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "user_repo_create")
	}

	return nil
}

// FindByID retrieves an active user record by their unique ID.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users.account
		WHERE id = $1 AND active = TRUE`, accountColumns)

	return repository.scanOne(ctx, query, id)
}

// FindByEmail retrieves an active user record by their unique email address.
//
// The result includes the password hash; this is the login path.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users.account
		WHERE email = lower($1) AND active = TRUE`, accountColumns)

	return repository.scanOne(ctx, query, email)
}

// FindByUsername retrieves an active user record by their unique username.
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users.account
		WHERE username = $1 AND active = TRUE`, accountColumns)

	return repository.scanOne(ctx, query, username)
}

// UpdateProfile persists changes to a user's mutable profile fields.
func (repository *PostgresUserRepository) UpdateProfile(ctx context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET firstname = $2, lastname = $3, username = $4, email = lower($5),
		    address = $6, updatedat = $7
		WHERE id = $1 AND active = TRUE`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.Address,
		user.UpdatedAt,
	)

	if err != nil {
		return dberr.Wrap(err, "user_repo_update_profile")
	}

	return nil
}

// UpdatePassword replaces only the password hash for a specific user.
//
// passwordchangedat is stamped one second in the past so a token issued in
// the same instant as the change still verifies as issued-after. The reset
// fields are cleared unconditionally: a completed password change retires
// any outstanding reset secret.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2,
		    passwordchangedat = NOW() - INTERVAL '1 second',
		    passwordresettoken = NULL,
		    passwordresetexpires = NULL,
		    updatedat = NOW()
		WHERE id = $1 AND active = TRUE`

	tag, err := repository.pool.Exec(ctx, query, userID, newHash)
	if err != nil {
		return dberr.Wrap(err, "user_repo_update_password")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// SetResetToken stores the hashed reset secret and its expiry window.
func (repository *PostgresUserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users.account
		SET passwordresettoken = $2, passwordresetexpires = $3, updatedat = NOW()
		WHERE id = $1 AND active = TRUE`

	tag, err := repository.pool.Exec(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return dberr.Wrap(err, "user_repo_set_reset_token")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// FindByResetToken retrieves the account holding an unexpired reset-token hash.
//
// The expiry comparison happens in SQL so the database clock is the single
// clock of record for the redemption window.
func (repository *PostgresUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users.account
		WHERE passwordresettoken = $1
		  AND passwordresetexpires > NOW()
		  AND active = TRUE`, accountColumns)

	return repository.scanOne(ctx, query, tokenHash)
}

// ClearResetToken removes both reset fields from the account row.
func (repository *PostgresUserRepository) ClearResetToken(ctx context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET passwordresettoken = NULL, passwordresetexpires = NULL, updatedat = NOW()
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, userID)
	if err != nil {
		return dberr.Wrap(err, "user_repo_clear_reset_token")
	}

	return nil
}

// Deactivate marks a user account as inactive using their ID.
func (repository *PostgresUserRepository) Deactivate(ctx context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET active = FALSE, updatedat = NOW()
		WHERE id = $1 AND active = TRUE`

	tag, err := repository.pool.Exec(ctx, query, userID)
	if err != nil {
		return dberr.Wrap(err, "user_repo_deactivate")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// List returns a page of active accounts, newest first, with the total count.
func (repository *PostgresUserRepository) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM users.account
		WHERE active = TRUE
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`, accountColumns)

	rows, err := repository.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "user_repo_list")
	}
	defer rows.Close()

	users := make([]*User, 0, limit)
	total := 0

	for rows.Next() {
		user := &User{}
		err := rows.Scan(
			&user.ID,
			&user.FirstName,
			&user.LastName,
			&user.Username,
			&user.Email,
			&user.Address,
			&user.Role,
			&user.PasswordHash,
			&user.PasswordChangedAt,
			&user.PasswordResetToken,
			&user.PasswordResetExpires,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "user_repo_list_scan")
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "user_repo_list_rows")
	}

	return users, total, nil
}

// RoleStats returns the number of active accounts grouped by role.
func (repository *PostgresUserRepository) RoleStats(ctx context.Context) ([]RoleStat, error) {
	const query = `
		SELECT role, COUNT(*) AS count
		FROM users.account
		WHERE active = TRUE
		GROUP BY role
		ORDER BY count DESC`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "user_repo_role_stats")
	}
	defer rows.Close()

	stats := make([]RoleStat, 0, 3)
	for rows.Next() {
		var stat RoleStat
		if err := rows.Scan(&stat.Role, &stat.Count); err != nil {
			return nil, dberr.Wrap(err, "user_repo_role_stats_scan")
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "user_repo_role_stats_rows")
	}

	return stats, nil
}

// scanOne executes a single-row account query.
func (repository *PostgresUserRepository) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.Email,
		&user.Address,
		&user.Role,
		&user.PasswordHash,
		&user.PasswordChangedAt,
		&user.PasswordResetToken,
		&user.PasswordResetExpires,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "user_repo_find")
	}

	return user, nil
}
