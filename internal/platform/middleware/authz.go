// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"

	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/ctxutil"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
)

// SessionVerifier defines the interface needed to verify session cookies in middleware.
type SessionVerifier interface {
	Verify(token string) (*sec.SessionClaims, error)
}

// Authenticate reads the session cookie and, when valid, injects the claims into the context.
//
// # Flow
//  1. No cookie: the request proceeds as anonymous.
//  2. Cookie present: verify it via [SessionVerifier].
//  3. Invalid or expired cookies are treated as anonymous, never as errors.
func Authenticate(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			cookie, err := request.Cookie(constants.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(writer, request)
				return
			}

			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithSession(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireSession blocks requests that carry no valid session.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.Session(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentification requise"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
