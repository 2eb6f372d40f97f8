// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/ctxutil"
	"github.com/taibuivan/tsundoku/internal/platform/middleware"
	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
	"github.com/taibuivan/tsundoku/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService   *Service
	secureCookies bool
}

// NewHandler constructs a new [Handler]. secureCookies marks the session cookie Secure (HTTPS only).
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{authService: service, secureCookies: secureCookies}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /login           : Checks the password and sets the session cookie.
//   - POST /logout          : Clears the session cookie.
//   - GET  /session         : Reports whether the request carries a valid session.
//   - POST /change-password : Rotates the password (session required).
//   - GET  /security        : Lock state and recent failures (session required).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Get("/session", handler.session)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Post("/change-password", handler.changePassword)
		r.Get("/security", handler.security)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

/*
Login authenticates the library owner and establishes a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Password)

Response:
  - 200: sessionResponse
  - 401: INCORRECT_PASSWORD
  - 423: ACCOUNT_LOCKED (Retry-After header)
  - 429: THROTTLED (Retry-After header)
*/
func (handler *Handler) login(writer http.ResponseWriter, httpRequest *http.Request) {
	var input loginRequest
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	session, err := handler.authService.Login(httpRequest.Context(), LoginInput{
		Password:  input.Password,
		IPAddress: request.ClientIP(httpRequest),
	})
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    session.Token,
		Path:     constants.SessionCookiePath,
		Expires:  session.ExpiresAt,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respond.OK(writer, sessionResponse{Authenticated: true, ExpiresAt: &session.ExpiresAt})
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Response:
  - 204: No Content
*/
func (handler *Handler) logout(writer http.ResponseWriter, httpRequest *http.Request) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respond.NoContent(writer)
}

/*
Session reports the authentication state of the caller.

GET /api/v1/auth/session

Response:
  - 200: sessionResponse
*/
func (handler *Handler) session(writer http.ResponseWriter, httpRequest *http.Request) {
	expiresAt, ok := ctxutil.SessionExpiry(httpRequest.Context())
	if !ok {
		respond.OK(writer, sessionResponse{Authenticated: false})
		return
	}

	respond.OK(writer, sessionResponse{Authenticated: true, ExpiresAt: &expiresAt})
}

/*
ChangePassword updates the library password.

POST /api/v1/auth/change-password

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 204: Password changed
  - 400: VALIDATION_ERROR (empty or too short)
  - 401: INCORRECT_PASSWORD
  - 423/429: ACCOUNT_LOCKED / THROTTLED
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, httpRequest *http.Request) {
	var input changePasswordRequest
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, validate.ErrInvalidJSON)
		return
	}

	err := handler.authService.ChangePassword(httpRequest.Context(), ChangePasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
		IPAddress:       request.ClientIP(httpRequest),
	})
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.NoContent(writer)
}

/*
Security returns the throttle overview.

GET /api/v1/auth/security

Response:
  - 200: SecurityInfo
*/
func (handler *Handler) security(writer http.ResponseWriter, httpRequest *http.Request) {
	info, err := handler.authService.SecurityInfo(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, info)
}
