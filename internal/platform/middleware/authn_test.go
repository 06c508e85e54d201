// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklore/booklore/internal/platform/constants"
	"github.com/booklore/booklore/internal/platform/ctxutil"
	"github.com/booklore/booklore/internal/platform/sec"
)

type fakeSubjectLoader struct {
	subjects map[string]*GateSubject
}

func (loader *fakeSubjectLoader) LoadSubject(_ context.Context, userID string) (*GateSubject, error) {
	subject, found := loader.subjects[userID]
	if !found {
		return nil, errors.New("account not found")
	}
	return subject, nil
}

func newGateFixture(t *testing.T) (*sec.TokenService, *fakeSubjectLoader) {
	t.Helper()

	tokens := sec.NewTokenService("test-secret-32-bytes-minimum-ok!", constants.AuthIssuer, 15*time.Minute)
	loader := &fakeSubjectLoader{
		subjects: map[string]*GateSubject{
			"user-1": {
				Identity: sec.Identity{
					UserID:   "user-1",
					Username: "reader",
					Email:    "reader@example.com",
					Role:     sec.RoleUser,
				},
				Active: true,
			},
		},
	}
	return tokens, loader
}

// echoIdentity responds 200 with the identity's user ID, proving the gate
// attached it to the context.
func echoIdentity() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity := ctxutil.GetIdentity(request.Context())
		if identity == nil {
			writer.WriteHeader(http.StatusInternalServerError)
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte(identity.UserID))
	})
}

func TestRequireAuth_MissingToken(t *testing.T) {
	tokens, loader := newGateFixture(t)
	handler := RequireAuth(tokens, loader)(echoIdentity())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "not logged in")
}

func TestRequireAuth_ValidBearerToken(t *testing.T) {
	tokens, loader := newGateFixture(t)
	handler := RequireAuth(tokens, loader)(echoIdentity())

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "user-1", recorder.Body.String())
}

func TestRequireAuth_CookieFallback(t *testing.T) {
	tokens, loader := newGateFixture(t)
	handler := RequireAuth(tokens, loader)(echoIdentity())

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.AddCookie(&http.Cookie{Name: constants.TokenCookieName, Value: token})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequireAuth_TamperedToken(t *testing.T) {
	tokens, loader := newGateFixture(t)
	handler := RequireAuth(tokens, loader)(echoIdentity())

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token+"x")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid authentication token")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	frozen := time.Now()
	tokens, loader := newGateFixture(t)
	tokens.WithClock(func() time.Time { return frozen })

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	// Move the verifier clock past the 15 minute lifetime.
	tokens.WithClock(func() time.Time { return frozen.Add(16 * time.Minute) })
	handler := RequireAuth(tokens, loader)(echoIdentity())

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "expired")
}

func TestRequireAuth_UserNoLongerExists(t *testing.T) {
	tokens, loader := newGateFixture(t)
	handler := RequireAuth(tokens, loader)(echoIdentity())

	token, err := tokens.Issue("ghost-user")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "no longer exists")
}

func TestRequireAuth_DeactivatedUser(t *testing.T) {
	tokens, loader := newGateFixture(t)
	loader.subjects["user-1"].Active = false
	handler := RequireAuth(tokens, loader)(echoIdentity())

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireAuth_TokenPredatesPasswordChange(t *testing.T) {
	frozen := time.Now()
	tokens, loader := newGateFixture(t)
	tokens.WithClock(func() time.Time { return frozen })

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	// The password changed one minute AFTER the token was issued.
	changedAt := frozen.Add(1 * time.Minute)
	loader.subjects["user-1"].PasswordChangedAt = &changedAt

	handler := RequireAuth(tokens, loader)(echoIdentity())

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "changed recently")
}

func TestRequireAuth_TokenIssuedAfterPasswordChange(t *testing.T) {
	frozen := time.Now()
	tokens, loader := newGateFixture(t)
	tokens.WithClock(func() time.Time { return frozen })

	// The password changed one minute BEFORE the token was issued.
	changedAt := frozen.Add(-1 * time.Minute)
	loader.subjects["user-1"].PasswordChangedAt = &changedAt

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	handler := RequireAuth(tokens, loader)(echoIdentity())

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequireRole(t *testing.T) {
	okHandler := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	testCases := []struct {
		name       string
		identity   *sec.Identity
		allowed    []sec.Role
		wantStatus int
	}{
		{
			name:       "no identity in context",
			identity:   nil,
			allowed:    []sec.Role{sec.RoleAdmin},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "role not in allow-list",
			identity:   &sec.Identity{UserID: "u", Role: sec.RoleUser},
			allowed:    []sec.Role{sec.RoleContributor, sec.RoleAdmin},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "role in allow-list",
			identity:   &sec.Identity{UserID: "u", Role: sec.RoleContributor},
			allowed:    []sec.Role{sec.RoleContributor, sec.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "admin is not implicitly allowed",
			identity:   &sec.Identity{UserID: "u", Role: sec.RoleAdmin},
			allowed:    []sec.Role{sec.RoleContributor},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := RequireRole(testCase.allowed...)(okHandler)

			request := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if testCase.identity != nil {
				ctx := ctxutil.WithIdentity(request.Context(), testCase.identity)
				request = request.WithContext(ctx)
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.wantStatus, recorder.Code)
		})
	}
}
