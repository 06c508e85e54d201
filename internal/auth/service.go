// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

// Service layer implementing the credential lifecycle use cases.
//
// # Architecture
//
// The service orchestrates the [UserRepository], the token issuer, and the
// mail sender through interfaces. It is technology-agnostic and does not
// know about HTTP or SQL.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/booklore/booklore/internal/platform/apperr"
	"github.com/booklore/booklore/internal/platform/mail"
	"github.com/booklore/booklore/internal/platform/middleware"
	"github.com/booklore/booklore/internal/platform/sec"
	"github.com/booklore/booklore/internal/platform/validate"
	"github.com/booklore/booklore/pkg/uuidv7"
)

// TokenIssuer defines the contract for minting access tokens.
//
// Satisfied by [sec.TokenService]; narrowed to an interface so tests can
// observe issuance without real signing.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Service implements the credential lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, login, or
// the reset flow must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	tokens         TokenIssuer
	mailer         mail.Sender

	bcryptCost    int
	resetTokenTTL time.Duration
	publicBaseURL string

	// now is injectable so tests can freeze the reset-expiry clock.
	now func() time.Time
}

// NewService constructs a new auth [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	tokens TokenIssuer,
	mailer mail.Sender,
	bcryptCost int,
	resetTokenTTL time.Duration,
	publicBaseURL string,
) *Service {
	return &Service{
		userRepository: userRepo,
		tokens:         tokens,
		mailer:         mailer,
		bcryptCost:     bcryptCost,
		resetTokenTTL:  resetTokenTTL,
		publicBaseURL:  publicBaseURL,
		now:            time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (service *Service) WithClock(now func() time.Time) *Service {
	service.now = now
	return service
}

// AuthResult pairs a freshly issued access token with the account it
// belongs to. Every operation that (re)establishes a session returns one.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// SignupInput holds the data required to enroll a new member.
type SignupInput struct {
	FirstName       string
	LastName        string
	Username        string
	Email           string
	Address         string
	Password        string
	PasswordConfirm string
}

// Signup validates, hashes, and persists a brand-new user account, then
// issues its first access token.
//
// # Business Rules
//   - Emails and usernames must be unique (pre-checked, then enforced by
//     the store's constraints as the source of truth).
//   - Default role is always 'user'. Privileged roles are assigned
//     out-of-band, never through signup.
func (service *Service) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	// ── 1. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("first_name", input.FirstName).
		Required("last_name", input.LastName).
		Required("username", input.Username).
		MinLen("username", input.Username, 3).
		Required("email", input.Email).
		MinLen("password", input.Password, 8).
		Equal("password_confirm", input.Password, input.PasswordConfirm, "Passwords must be the same")

	if strings.TrimSpace(input.Email) != "" {
		validator.Email("email", input.Email)
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Uniqueness Checks ──────────────────────────────────────────────

	// Pre-check for friendly messages; the unique indexes remain the
	// authority and turn races into 409s via dberr.
	if _, err := service.userRepository.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}
	if _, err := service.userRepository.FindByUsername(ctx, input.Username); err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// ── 3. Security ───────────────────────────────────────────────────────

	hashedPassword, err := sec.HashPassword(input.Password, service.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 4. Entity Construction ────────────────────────────────────────────

	user := &User{
		ID:           uuidv7.New(), // Time-sortable ID to prevent PG index fragmentation.
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Email:        strings.ToLower(input.Email),
		Address:      input.Address,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser, // Rule: Default role is always User
		Active:       true,
	}

	// ── 5. Persistence ────────────────────────────────────────────────────

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, err
	}

	// ── 6. Token Issuance ─────────────────────────────────────────────────

	return service.establishSession(user)
}

// Login validates user credentials and issues an access token.
//
// # Security
//
// Unknown email and wrong password are indistinguishable to the caller.
// Both produce the same 401 so the endpoint cannot be used to enumerate
// registered addresses.
func (service *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	// ── 1. Boundary Validation ────────────────────────────────────────────

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.ValidationError("Please enter email and password")
	}

	// ── 2. Credential Verification ────────────────────────────────────────

	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	// Bcrypt comparison is constant-time; a verify failure of any kind is
	// reported identically to an unknown account.
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	// ── 3. Token Issuance ─────────────────────────────────────────────────

	return service.establishSession(user)
}

// ForgotPassword begins the reset flow for the given email.
//
// # Flow
//  1. Resolve the account (404 for unknown email).
//  2. Generate a one-time secret; persist only its sha256 plus expiry.
//  3. Mail the plaintext secret as a redemption URL.
//  4. If the mail cannot be sent, undo step 2 before reporting failure so
//     no orphaned secret survives a half-completed flow.
//
// On success the caller gets a confirmation message only. No token, no
// secret, nothing redeemable ever appears in the HTTP response.
func (service *Service) ForgotPassword(ctx context.Context, email string) error {
	// ── 1. Account Resolution ─────────────────────────────────────────────

	if strings.TrimSpace(email) == "" {
		return validate.RequiredError("email", "is required")
	}

	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		return apperr.NotFound("User with this email address")
	}

	// ── 2. Secret Generation & Persistence ────────────────────────────────

	secret, secretHash, err := sec.GenerateResetSecret()
	if err != nil {
		return fmt.Errorf("auth_service_reset_secret_failed: %w", err)
	}

	expiresAt := service.now().Add(service.resetTokenTTL)
	if err := service.userRepository.SetResetToken(ctx, user.ID, secretHash, expiresAt); err != nil {
		return err
	}

	// ── 3. Delivery ───────────────────────────────────────────────────────

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", service.publicBaseURL, secret)
	message := mail.Message{
		To:      user.Email,
		Subject: "Your password reset token (valid for 10 minutes)",
		Body:    mail.ResetPasswordBody(resetURL, int(service.resetTokenTTL.Minutes())),
	}

	if err := service.mailer.Send(ctx, message); err != nil {
		// ── 4. Rollback ───────────────────────────────────────────────────
		// The secret only ever existed in the unsent mail, so the stored
		// hash is now unredeemable garbage. Clear it, then surface the
		// original failure.
		if clearErr := service.userRepository.ClearResetToken(ctx, user.ID); clearErr != nil {
			return fmt.Errorf("auth_service_reset_rollback_failed: %w", clearErr)
		}
		return apperr.DependencyFailure(
			"There was an error sending the email. Try again later.", err)
	}

	return nil
}

// ResetPassword redeems a reset secret and sets a new password.
//
// # Redeem-Once
//
// [UserRepository.UpdatePassword] clears the reset fields in the same
// statement that writes the new hash, so a secret cannot be redeemed twice.
func (service *Service) ResetPassword(ctx context.Context, secret, password, passwordConfirm string) (*AuthResult, error) {
	// ── 1. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		MinLen("password", password, 8).
		Equal("password_confirm", password, passwordConfirm, "Passwords must be the same")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Secret Redemption ──────────────────────────────────────────────

	// Only hashes are stored; recompute to look the account up. Unknown,
	// redeemed, and expired secrets are indistinguishable by design.
	secretHash := sec.HashResetSecret(secret)
	user, err := service.userRepository.FindByResetToken(ctx, secretHash)
	if err != nil {
		return nil, apperr.ValidationError("Token is invalid or has expired")
	}

	// ── 3. Password Replacement ───────────────────────────────────────────

	newHash, err := sec.HashPassword(password, service.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return nil, err
	}

	// ── 4. Fresh Session ──────────────────────────────────────────────────

	return service.establishSession(user)
}

// UpdatePassword changes the password of an authenticated user after
// re-verifying their current one.
func (service *Service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword, newPasswordConfirm string) (*AuthResult, error) {
	// ── 1. Boundary Validation ────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("password_current", currentPassword).
		MinLen("password", newPassword, 8).
		Equal("password_confirm", newPassword, newPasswordConfirm, "Passwords must be the same")

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Re-Verification ────────────────────────────────────────────────

	// A stolen bearer token alone must not be enough to change the
	// password; the caller has to prove they still know the current one.
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return nil, apperr.Unauthorized("Your current password is wrong")
	}

	// ── 3. Password Replacement ───────────────────────────────────────────

	newHash, err := sec.HashPassword(newPassword, service.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return nil, err
	}

	// ── 4. Fresh Session ──────────────────────────────────────────────────

	// The change-at bump just revoked every outstanding token, including
	// the one used for this request. Hand the caller a fresh one.
	return service.establishSession(user)
}

// UpdateProfileInput holds the patchable profile fields. Nil pointers leave
// the current value untouched.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Address   *string

	// Password fields are listed only so the handler can detect and reject
	// attempts to change credentials through the profile route.
	Password        *string
	PasswordConfirm *string
}

// UpdateProfile patches the mutable profile fields of an account.
//
// Password changes are explicitly rejected here; they require current
// password re-verification and the changed-at bump, which only the
// [UpdatePassword] path performs.
func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*User, error) {
	// ── 1. Credential Field Rejection ─────────────────────────────────────

	if input.Password != nil || input.PasswordConfirm != nil {
		return nil, apperr.ValidationError(
			"This route is not for password updates. Please use /updatePassword.")
	}

	// ── 2. Load & Patch ───────────────────────────────────────────────────

	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Email != nil {
		user.Email = strings.ToLower(*input.Email)
	}
	if input.Address != nil {
		user.Address = *input.Address
	}

	// ── 3. Patched-State Validation ───────────────────────────────────────

	validator := &validate.Validator{}
	validator.
		Required("username", user.Username).
		MinLen("username", user.Username, 3).
		Required("email", user.Email).
		Email("email", user.Email)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	if err := service.userRepository.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Deactivate soft-deletes the calling user's own account.
func (service *Service) Deactivate(ctx context.Context, userID string) error {
	return service.userRepository.Deactivate(ctx, userID)
}

// GetUser returns a single account by ID. Admin-facing read.
func (service *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(ctx, userID)
}

// ListUsers returns a page of active accounts plus the total count.
func (service *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return service.userRepository.List(ctx, limit, offset)
}

// RoleStats returns the per-role account aggregation.
func (service *Service) RoleStats(ctx context.Context) ([]RoleStat, error) {
	return service.userRepository.RoleStats(ctx)
}

// LoadSubject implements [middleware.SubjectLoader] so the auth gate can
// resolve verified token subjects against the credential store.
func (service *Service) LoadSubject(ctx context.Context, userID string) (*middleware.GateSubject, error) {
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &middleware.GateSubject{
		Identity:          user.Identity(),
		PasswordChangedAt: user.PasswordChangedAt,
		Active:            user.Active,
	}, nil
}

// establishSession issues a token for the user and packages the result.
func (service *Service) establishSession(user *User) (*AuthResult, error) {
	token, err := service.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &AuthResult{Token: token, User: user}, nil
}
