// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/middleware"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
)

func newTestRouter(t *testing.T, env *testEnv) http.Handler {
	t.Helper()
	signer, err := sec.NewSessionSigner("a-long-enough-session-secret", constants.SessionIssuer, time.Hour)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(signer))
	router.Mount("/auth", NewHandler(env.service, false).Routes())
	return router
}

func postLogin(router http.Handler, password string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"`+password+`"}`))
	request.RemoteAddr = "1.2.3.4:5555"
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestHandler_LoginSetsCookie(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env)

	recorder := postLogin(router, "admin123")
	require.Equal(t, http.StatusOK, recorder.Code)

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// The cookie opens the protected routes.
	request := httptest.NewRequest(http.MethodGet, "/auth/security", nil)
	request.AddCookie(cookies[0])
	secured := httptest.NewRecorder()
	router.ServeHTTP(secured, request)
	assert.Equal(t, http.StatusOK, secured.Code)

	request = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	request.AddCookie(cookies[0])
	session := httptest.NewRecorder()
	router.ServeHTTP(session, request)
	assert.Contains(t, session.Body.String(), `"authenticated":true`)
}

func TestHandler_LoginErrorCategories(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env)

	recorder := postLogin(router, "wrong")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, CodeIncorrectPassword, body["code"])
	assert.Equal(t, "Mot de passe incorrect", body["error"])

	// Second failure right away is fine (0s), the third needs 1s.
	assert.Equal(t, http.StatusUnauthorized, postLogin(router, "wrong").Code)
	throttled := postLogin(router, "admin123")
	assert.Equal(t, http.StatusTooManyRequests, throttled.Code)
	assert.Equal(t, "1", throttled.Header().Get(constants.HeaderRetryAfter))

	env.clock.Advance(time.Hour)
	env.failTimes(t, 5)
	locked := postLogin(router, "admin123")
	assert.Equal(t, http.StatusLocked, locked.Code)
	assert.NotEmpty(t, locked.Header().Get(constants.HeaderRetryAfter))
}

func TestHandler_ProtectedRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t, newTestEnv(t))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/auth/security", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	assert.JSONEq(t, `{"data":{"authenticated":false}}`, recorder.Body.String())
}
