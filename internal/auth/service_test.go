// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklore/booklore/internal/platform/apperr"
	"github.com/booklore/booklore/internal/platform/mail"
	"github.com/booklore/booklore/internal/platform/sec"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

// memoryUserRepo is an in-memory UserRepository with the same observable
// semantics as the PostgreSQL implementation, including the changed-at
// backdating and the redeem-once clearing of reset fields.
type memoryUserRepo struct {
	users map[string]*User
	now   func() time.Time
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users: make(map[string]*User),
		now:   time.Now,
	}
}

func (repo *memoryUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	user, found := repo.users[id]
	if !found || !user.Active {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (repo *memoryUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range repo.users {
		if user.Active && user.Email == strings.ToLower(email) {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	for _, user := range repo.users {
		if user.Active && user.Username == username {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepo) Create(_ context.Context, user *User) error {
	for _, existing := range repo.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return apperr.Conflict("Duplicate value for a unique field")
		}
	}
	now := repo.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	repo.users[user.ID] = user
	return nil
}

func (repo *memoryUserRepo) UpdateProfile(_ context.Context, user *User) error {
	if _, found := repo.users[user.ID]; !found {
		return apperr.NotFound("User")
	}
	repo.users[user.ID] = user
	return nil
}

func (repo *memoryUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	user, found := repo.users[userID]
	if !found || !user.Active {
		return apperr.NotFound("User")
	}
	changedAt := repo.now().Add(-1 * time.Second)
	user.PasswordHash = newHash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil
	return nil
}

func (repo *memoryUserRepo) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	user, found := repo.users[userID]
	if !found || !user.Active {
		return apperr.NotFound("User")
	}
	user.PasswordResetToken = &tokenHash
	user.PasswordResetExpires = &expiresAt
	return nil
}

func (repo *memoryUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*User, error) {
	for _, user := range repo.users {
		if !user.Active || user.PasswordResetToken == nil || user.PasswordResetExpires == nil {
			continue
		}
		if *user.PasswordResetToken == tokenHash && user.PasswordResetExpires.After(repo.now()) {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepo) ClearResetToken(_ context.Context, userID string) error {
	user, found := repo.users[userID]
	if !found {
		return apperr.NotFound("User")
	}
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil
	return nil
}

func (repo *memoryUserRepo) Deactivate(_ context.Context, userID string) error {
	user, found := repo.users[userID]
	if !found || !user.Active {
		return apperr.NotFound("User")
	}
	user.Active = false
	return nil
}

func (repo *memoryUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	active := make([]*User, 0, len(repo.users))
	for _, user := range repo.users {
		if user.Active {
			active = append(active, user)
		}
	}
	total := len(active)
	if offset >= total {
		return []*User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return active[offset:end], total, nil
}

func (repo *memoryUserRepo) RoleStats(_ context.Context) ([]RoleStat, error) {
	counts := map[sec.Role]int{}
	for _, user := range repo.users {
		if user.Active {
			counts[user.Role]++
		}
	}
	stats := make([]RoleStat, 0, len(counts))
	for role, count := range counts {
		stats = append(stats, RoleStat{Role: role, Count: count})
	}
	return stats, nil
}

// recordingMailer captures outbound messages; failWith makes Send fail.
type recordingMailer struct {
	messages []mail.Message
	failWith error
}

func (mailer *recordingMailer) Send(_ context.Context, message mail.Message) error {
	if mailer.failWith != nil {
		return mailer.failWith
	}
	mailer.messages = append(mailer.messages, message)
	return nil
}

// staticIssuer mints predictable tokens for assertions.
type staticIssuer struct{}

func (staticIssuer) Issue(userID string) (string, error) {
	return "token-for-" + userID, nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

func newServiceFixture(t *testing.T) (*Service, *memoryUserRepo, *recordingMailer) {
	t.Helper()

	repo := newMemoryUserRepo()
	mailer := &recordingMailer{}
	service := NewService(repo, staticIssuer{}, mailer,
		4, // minimum bcrypt cost keeps the test suite fast
		10*time.Minute,
		"https://booklore.app",
	)
	return service, repo, mailer
}

func validSignup() SignupInput {
	return SignupInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Username:        "ada",
		Email:           "Ada@Example.com",
		Address:         "12 St James Square",
		Password:        "correct-horse",
		PasswordConfirm: "correct-horse",
	}
}

// ── Signup ───────────────────────────────────────────────────────────────────

func TestSignup_CreatesUserWithDefaults(t *testing.T) {
	service, repo, _ := newServiceFixture(t)

	result, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.Equal(t, "token-for-"+result.User.ID, result.Token)
	assert.Equal(t, sec.RoleUser, result.User.Role)
	assert.Equal(t, "ada@example.com", result.User.Email, "email must be stored lower-cased")
	assert.True(t, result.User.Active)
	assert.NotEmpty(t, result.User.ID)

	stored := repo.users[result.User.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "correct-horse", stored.PasswordHash, "password must never be stored in plain text")
	assert.True(t, sec.CheckPasswordHash("correct-horse", stored.PasswordHash))
}

func TestSignup_ValidationFailures(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	testCases := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"missing email", func(in *SignupInput) { in.Email = "" }},
		{"malformed email", func(in *SignupInput) { in.Email = "not-an-address" }},
		{"short password", func(in *SignupInput) { in.Password, in.PasswordConfirm = "short", "short" }},
		{"password mismatch", func(in *SignupInput) { in.PasswordConfirm = "different-horse" }},
		{"missing username", func(in *SignupInput) { in.Username = "" }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			input := validSignup()
			testCase.mutate(&input)

			_, err := service.Signup(context.Background(), input)
			require.Error(t, err)
			assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	_, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	input := validSignup()
	input.Username = "ada2"
	_, err = service.Signup(context.Background(), input)

	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

func TestUser_PasswordNeverSerialized(t *testing.T) {
	service, repo, _ := newServiceFixture(t)

	result, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	// Give the stored user every sensitive field a real account can carry.
	tokenHash := "deadbeef"
	expires := time.Now().Add(time.Hour)
	stored := repo.users[result.User.ID]
	stored.PasswordResetToken = &tokenHash
	stored.PasswordResetExpires = &expires

	encoded, err := json.Marshal(stored)
	require.NoError(t, err)

	payload := string(encoded)
	assert.NotContains(t, payload, stored.PasswordHash)
	assert.NotContains(t, payload, "password")
	assert.NotContains(t, payload, "deadbeef")
}

// ── Login ────────────────────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	result, err := service.Login(context.Background(), "ada@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, signedUp.User.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)
}

func TestLogin_MissingFields(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	_, err := service.Login(context.Background(), "", "correct-horse")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	_, err = service.Login(context.Background(), "ada@example.com", "")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

func TestLogin_UniformCredentialErrors(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	_, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	_, unknownEmailErr := service.Login(context.Background(), "nobody@example.com", "correct-horse")
	_, wrongPasswordErr := service.Login(context.Background(), "ada@example.com", "wrong-horse")

	require.Error(t, unknownEmailErr)
	require.Error(t, wrongPasswordErr)

	// Identical status and wording: the endpoint must not reveal whether
	// the email is registered.
	assert.Equal(t, apperr.As(unknownEmailErr).HTTPStatus, apperr.As(wrongPasswordErr).HTTPStatus)
	assert.Equal(t, unknownEmailErr.Error(), wrongPasswordErr.Error())
	assert.Equal(t, 401, apperr.As(unknownEmailErr).HTTPStatus)
}

// ── ForgotPassword ───────────────────────────────────────────────────────────

func TestForgotPassword_UnknownEmail(t *testing.T) {
	service, _, mailer := newServiceFixture(t)

	err := service.ForgotPassword(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
	assert.Empty(t, mailer.messages)
}

func TestForgotPassword_StoresHashAndMailsSecret(t *testing.T) {
	service, repo, mailer := newServiceFixture(t)

	result, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	err = service.ForgotPassword(context.Background(), "ada@example.com")
	require.NoError(t, err)

	stored := repo.users[result.User.ID]
	require.NotNil(t, stored.PasswordResetToken)
	require.NotNil(t, stored.PasswordResetExpires)

	require.Len(t, mailer.messages, 1)
	message := mailer.messages[0]
	assert.Equal(t, "ada@example.com", message.To)

	// The mail carries the plaintext secret; the store carries only its
	// hash. The two must never coincide.
	assert.NotContains(t, message.Body, *stored.PasswordResetToken)

	// Extract the secret from the redemption URL and confirm it hashes to
	// the stored value.
	marker := "/api/v1/users/resetPassword/"
	index := strings.Index(message.Body, marker)
	require.GreaterOrEqual(t, index, 0)
	rest := message.Body[index+len(marker):]
	secret := rest[:strings.IndexAny(rest, `"`)]
	assert.Equal(t, *stored.PasswordResetToken, sec.HashResetSecret(secret))
}

func TestForgotPassword_MailFailureRollsBack(t *testing.T) {
	service, repo, mailer := newServiceFixture(t)

	result, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	mailer.failWith = errors.New("smtp: connection refused")

	err = service.ForgotPassword(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, "DEPENDENCY_FAILURE", apperr.As(err).Code)
	assert.Equal(t, 500, apperr.As(err).HTTPStatus)

	// The half-created secret must not survive the failed flow.
	stored := repo.users[result.User.ID]
	assert.Nil(t, stored.PasswordResetToken)
	assert.Nil(t, stored.PasswordResetExpires)
}

// ── ResetPassword ────────────────────────────────────────────────────────────

// beginReset runs the forgot flow and returns the plaintext secret that was
// "mailed" to the user.
func beginReset(t *testing.T, service *Service, mailer *recordingMailer) string {
	t.Helper()

	require.NoError(t, service.ForgotPassword(context.Background(), "ada@example.com"))
	require.NotEmpty(t, mailer.messages)

	body := mailer.messages[len(mailer.messages)-1].Body
	marker := "/api/v1/users/resetPassword/"
	index := strings.Index(body, marker)
	require.GreaterOrEqual(t, index, 0)
	rest := body[index+len(marker):]
	return rest[:strings.IndexAny(rest, `"`)]
}

func TestResetPassword_Success(t *testing.T) {
	service, repo, mailer := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	secret := beginReset(t, service, mailer)

	result, err := service.ResetPassword(context.Background(), secret, "brand-new-pass", "brand-new-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	stored := repo.users[signedUp.User.ID]
	assert.True(t, sec.CheckPasswordHash("brand-new-pass", stored.PasswordHash))
	assert.Nil(t, stored.PasswordResetToken, "redeemed secret must be cleared")
	assert.Nil(t, stored.PasswordResetExpires)
	assert.NotNil(t, stored.PasswordChangedAt, "redemption must bump the change marker")

	// Old password no longer works.
	_, err = service.Login(context.Background(), "ada@example.com", "correct-horse")
	require.Error(t, err)

	// New one does.
	_, err = service.Login(context.Background(), "ada@example.com", "brand-new-pass")
	require.NoError(t, err)
}

func TestResetPassword_RedeemOnce(t *testing.T) {
	service, _, mailer := newServiceFixture(t)

	_, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	secret := beginReset(t, service, mailer)

	_, err = service.ResetPassword(context.Background(), secret, "brand-new-pass", "brand-new-pass")
	require.NoError(t, err)

	_, err = service.ResetPassword(context.Background(), secret, "another-pass1", "another-pass1")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	assert.Contains(t, err.Error(), "invalid or has expired")
}

func TestResetPassword_ExpiredSecret(t *testing.T) {
	service, repo, mailer := newServiceFixture(t)

	_, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	frozen := time.Now()
	service.WithClock(func() time.Time { return frozen })
	repo.now = func() time.Time { return frozen }

	secret := beginReset(t, service, mailer)

	// Move both clocks past the 10 minute window.
	late := frozen.Add(11 * time.Minute)
	service.WithClock(func() time.Time { return late })
	repo.now = func() time.Time { return late }

	_, err = service.ResetPassword(context.Background(), secret, "brand-new-pass", "brand-new-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or has expired")
}

func TestResetPassword_GarbageSecret(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	_, err := service.ResetPassword(context.Background(), "not-a-real-secret", "brand-new-pass", "brand-new-pass")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

// ── UpdatePassword ───────────────────────────────────────────────────────────

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	_, err = service.UpdatePassword(context.Background(),
		signedUp.User.ID, "wrong-horse", "brand-new-pass", "brand-new-pass")
	require.Error(t, err)
	assert.Equal(t, 401, apperr.As(err).HTTPStatus)
}

func TestUpdatePassword_Success(t *testing.T) {
	service, repo, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	result, err := service.UpdatePassword(context.Background(),
		signedUp.User.ID, "correct-horse", "brand-new-pass", "brand-new-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token, "caller must receive a fresh token after the revocation bump")

	stored := repo.users[signedUp.User.ID]
	require.NotNil(t, stored.PasswordChangedAt)
	assert.True(t, stored.PasswordChangedAt.Before(time.Now()),
		"change marker must be backdated so a token issued this instant stays valid")
	assert.True(t, sec.CheckPasswordHash("brand-new-pass", stored.PasswordHash))
}

// ── UpdateProfile ────────────────────────────────────────────────────────────

func TestUpdateProfile_RejectsPasswordFields(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	password := "sneaky-pass-change"
	_, err = service.UpdateProfile(context.Background(), signedUp.User.ID, UpdateProfileInput{
		Password: &password,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	assert.Contains(t, err.Error(), "updatePassword")
}

func TestUpdateProfile_PatchesOnlyProvidedFields(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	firstName := "Augusta"
	updated, err := service.UpdateProfile(context.Background(), signedUp.User.ID, UpdateProfileInput{
		FirstName: &firstName,
	})
	require.NoError(t, err)

	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName, "absent fields must stay untouched")
	assert.Equal(t, "ada@example.com", updated.Email)
}

// ── Deactivate / Gate integration ────────────────────────────────────────────

func TestDeactivate_HidesAccountFromLookups(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	require.NoError(t, service.Deactivate(context.Background(), signedUp.User.ID))

	_, err = service.GetUser(context.Background(), signedUp.User.ID)
	require.Error(t, err)

	_, err = service.Login(context.Background(), "ada@example.com", "correct-horse")
	require.Error(t, err)
	assert.Equal(t, 401, apperr.As(err).HTTPStatus)
}

func TestLoadSubject(t *testing.T) {
	service, _, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	subject, err := service.LoadSubject(context.Background(), signedUp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, signedUp.User.ID, subject.Identity.UserID)
	assert.Equal(t, sec.RoleUser, subject.Identity.Role)
	assert.True(t, subject.Active)

	_, err = service.LoadSubject(context.Background(), "missing-user")
	require.Error(t, err)
}

func TestRoleStats(t *testing.T) {
	service, repo, _ := newServiceFixture(t)

	signedUp, err := service.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	repo.users[signedUp.User.ID].Role = sec.RoleAdmin

	input := validSignup()
	input.Username, input.Email = "grace", "grace@example.com"
	_, err = service.Signup(context.Background(), input)
	require.NoError(t, err)

	stats, err := service.RoleStats(context.Background())
	require.NoError(t, err)

	counts := map[sec.Role]int{}
	for _, stat := range stats {
		counts[stat.Role] = stat.Count
	}
	assert.Equal(t, 1, counts[sec.RoleAdmin])
	assert.Equal(t, 1, counts[sec.RoleUser])
}
