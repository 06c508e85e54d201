// Copyright (c) 2026 Booklore. All rights reserved.
// Author: engineering@booklore.app

// HTTP delivery layer for the credential lifecycle.
//
// # Architecture
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON Request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries.
package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/booklore/booklore/internal/platform/constants"
	"github.com/booklore/booklore/internal/platform/middleware"
	requestutil "github.com/booklore/booklore/internal/platform/request"
	"github.com/booklore/booklore/internal/platform/respond"
	"github.com/booklore/booklore/internal/platform/sec"
	"github.com/booklore/booklore/pkg/pagination"
)

// Middleware is the standard chi middleware shape.
type Middleware = func(http.Handler) http.Handler

// Handler implements the user-facing authentication endpoints.
//
// # Scope
//
// This handler manages everything related to the user lifecycle entry points
// (Signup, Login, the reset flow, self-service profile management, and the
// admin-facing account reads).
type Handler struct {
	authService     *Service
	authGate        Middleware
	credentialLimit Middleware

	secureCookies bool
	tokenTTL      time.Duration
}

// NewHandler constructs a new [Handler] with its service dependency and the
// middleware guarding its protected routes.
func NewHandler(
	service *Service,
	authGate Middleware,
	credentialLimit Middleware,
	secureCookies bool,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		authService:     service,
		authGate:        authGate,
		credentialLimit: credentialLimit,
		secureCookies:   secureCookies,
		tokenTTL:        tokenTTL,
	}
}

// Routes returns a [chi.Router] configured with the user lifecycle routes.
//
// # Endpoints
//   - POST  /signup                 : Creates a new account, issues a token.
//   - POST  /login                  : Authenticates and returns a JWT.
//   - POST  /forgotPassword         : Begins the password-reset flow.
//   - PATCH /resetPassword/{token}  : Redeems a reset secret.
//   - PATCH /updatePassword         : (auth) Changes the caller's password.
//   - PATCH /updateMe               : (auth) Patches the caller's profile.
//   - DELETE /deleteMe              : (auth) Deactivates the caller's account.
//   - GET   /stats                  : (admin) Per-role account counts.
//   - GET   /                       : (admin) Paginated account list.
//   - GET   /{id}                   : (admin) Single account by ID.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/signup", handler.signup)
	router.With(handler.credentialLimit).Post("/login", handler.login)
	router.With(handler.credentialLimit).Post("/forgotPassword", handler.forgotPassword)
	router.Patch("/resetPassword/{token}", handler.resetPassword)

	router.Group(func(protected chi.Router) {
		protected.Use(handler.authGate)

		protected.Patch("/updatePassword", handler.updatePassword)
		protected.Patch("/updateMe", handler.updateMe)
		protected.Delete("/deleteMe", handler.deleteMe)

		protected.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireRole(sec.RoleAdmin))

			admin.Get("/stats", handler.roleStats)
			admin.Get("/", handler.listUsers)
			admin.Get("/{id}", handler.getUser)
		})
	})

	return router
}

// signupRequest represents the JSON payload expected for account creation.
type signupRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Address         string `json:"address"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// signup handles POST /api/v1/users/signup requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with {token, user} and sets the
//     session cookie.
//   - Writes HTTP 400 Bad Request if validation rules fail.
//   - Writes HTTP 409 Conflict if email/username is taken.
func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input signupRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Application Execution ──────────────────────────────────────────

	// Validation, uniqueness, and Bcrypt hashing all live in the service.
	result, err := handler.authService.Signup(request.Context(), SignupInput{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Username:        input.Username,
		Email:           input.Email,
		Address:         input.Address,
		Password:        input.Password,
		PasswordConfirm: input.PasswordConfirm,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Presentation Output ────────────────────────────────────────────

	handler.setTokenCookie(writer, result.Token)
	respond.Created(writer, result)
}

// loginRequest represents the JSON payload expected for authentication.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles POST /api/v1/users/login requests.
//
// # Returns
//   - Writes HTTP 200 OK on success with {token, user} and sets the cookie.
//   - Writes HTTP 400 Bad Request when either field is missing.
//   - Writes HTTP 401 Unauthorized for bad credentials, with identical
//     wording for unknown email and wrong password.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setTokenCookie(writer, result.Token)
	respond.OK(writer, result)
}

// forgotPasswordRequest carries the email beginning a reset flow.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPassword handles POST /api/v1/users/forgotPassword requests.
//
// # Returns
//   - Writes HTTP 200 OK with a confirmation message. The response never
//     contains the reset secret or any session token.
//   - Writes HTTP 404 Not Found for an unknown email.
//   - Writes HTTP 500 when the mail transport fails (after rollback).
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		constants.FieldMessage: "Token sent to email",
	})
}

// resetPasswordRequest carries the replacement password for a redemption.
type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// resetPassword handles PATCH /api/v1/users/resetPassword/{token} requests.
//
// # Returns
//   - Writes HTTP 200 OK with {token, user} on successful redemption.
//   - Writes HTTP 400 Bad Request for an invalid/expired secret or weak
//     password.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	secret := requestutil.Param(request, "token")

	result, err := handler.authService.ResetPassword(
		request.Context(), secret, input.Password, input.PasswordConfirm)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setTokenCookie(writer, result.Token)
	respond.OK(writer, result)
}

// updatePasswordRequest carries an authenticated password change.
type updatePasswordRequest struct {
	PasswordCurrent string `json:"password_current"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// updatePassword handles PATCH /api/v1/users/updatePassword requests.
func (handler *Handler) updatePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updatePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.UpdatePassword(
		request.Context(), userID, input.PasswordCurrent, input.Password, input.PasswordConfirm)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setTokenCookie(writer, result.Token)
	respond.OK(writer, result)
}

// updateMeRequest carries the patchable profile fields. Pointer fields
// distinguish "absent" from "set to empty".
type updateMeRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Address         *string `json:"address"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
}

// updateMe handles PATCH /api/v1/users/updateMe requests.
//
// Password fields in the payload are rejected with 400; credential changes
// go through /updatePassword exclusively.
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Username:        input.Username,
		Email:           input.Email,
		Address:         input.Address,
		Password:        input.Password,
		PasswordConfirm: input.PasswordConfirm,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// deleteMe handles DELETE /api/v1/users/deleteMe requests.
func (handler *Handler) deleteMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Deactivate(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// roleStats handles GET /api/v1/users/stats requests (admin only).
func (handler *Handler) roleStats(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.authService.RoleStats(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stats)
}

// listUsers handles GET /api/v1/users requests (admin only).
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, total, err := handler.authService.ListUsers(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, total))
}

// getUser handles GET /api/v1/users/{id} requests (admin only).
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	user, err := handler.authService.GetUser(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// setTokenCookie mirrors the bearer token into an httpOnly cookie so browser
// clients get session handling without touching localStorage.
func (handler *Handler) setTokenCookie(writer http.ResponseWriter, token string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(handler.tokenTTL),
		MaxAge:   int(handler.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
