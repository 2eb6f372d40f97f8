// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tsundoku/internal/api"
	"github.com/taibuivan/tsundoku/internal/collection"
	"github.com/taibuivan/tsundoku/internal/covers"
	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/config"
	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
	"github.com/taibuivan/tsundoku/internal/search"
	"github.com/taibuivan/tsundoku/internal/users/account"
	"github.com/taibuivan/tsundoku/internal/users/auth"
)

func newTestServer(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	cfg := &config.Config{ServerPort: "0", Environment: "development"}
	repository := library.NewFileRepository(filepath.Join(dir, "library.json"), library.Defaults{Password: "admin123"}, logger)

	signer, err := sec.NewSessionSigner("a-long-enough-session-secret", constants.SessionIssuer, time.Hour)
	require.NoError(t, err)

	cache := covers.NewCache(filepath.Join(dir, "covers"), nil, time.Second, logger)
	coverService := covers.NewService(cache, repository, covers.DefaultProxyHosts, logger)
	accountService := account.NewService(repository)

	liveness, readiness := api.NewHealthHandlers(deps, logger)
	server := api.NewServer(context.Background(), cfg, logger, signer, api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Auth:       auth.NewHandler(auth.NewService(repository, auth.DefaultPolicy(), signer), false),
		Account:    account.NewHandler(accountService),
		Collection: collection.NewHandler(collection.NewService(repository, cache, logger)),
		Covers:     covers.NewHandler(coverService),
		Search:     search.NewHandler(search.NewService(nil, search.NewScraper(nil), nil, logger)),
	})
	return server.Handler()
}

func do(handler http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestServer_HealthProbes(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{
		CheckLibrary: func(context.Context) error { return nil },
		CheckCache:   func(context.Context) error { return errors.New("redis down") },
	})

	recorder := do(handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))

	recorder = do(handler, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "degraded")
	assert.Contains(t, recorder.Body.String(), "redis down")
}

func TestServer_SessionGatesTheAPI(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	recorder := do(handler, http.MethodGet, "/api/v1/books", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = do(handler, http.MethodPost, "/api/v1/auth/login", `{"password":"admin123"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var session *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.SessionCookieName {
			session = cookie
		}
	}
	require.NotNil(t, session)

	recorder = do(handler, http.MethodPost, "/api/v1/books", `{"title":"Akira","author":"Otomo"}`, session)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder = do(handler, http.MethodGet, "/api/v1/books", "", session)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Akira")

	recorder = do(handler, http.MethodGet, "/api/v1/scrape?url=https://example.com/a.html", "", session)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = do(handler, http.MethodGet, "/api/v1/account/api-keys", "", session)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestServer_CoversArePublic(t *testing.T) {
	handler := newTestServer(t, api.HealthDependencies{})

	recorder := do(handler, http.MethodGet, constants.CoversPublicPrefix+"missing.jpg", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
