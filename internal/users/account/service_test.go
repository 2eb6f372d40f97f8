// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/users/account"
)

func newService(t *testing.T) *account.Service {
	t.Helper()
	repository := library.NewFileRepository(
		filepath.Join(t.TempDir(), "library.json"),
		library.Defaults{Password: "admin123", ComicVineKey: "from-env"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return account.NewService(repository)
}

func TestService_APIKeys(t *testing.T) {
	service := newService(t)
	ctx := context.Background()

	keys, err := service.GetAPIKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-env", keys.ComicVine)

	updated, err := service.UpdateAPIKeys(ctx, account.APIKeys{ComicVine: "  new-key  "})
	require.NoError(t, err)
	assert.Equal(t, "new-key", updated.ComicVine)

	key, err := service.ComicVineKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-key", key)
}

func TestHandler_UpdateAPIKeys(t *testing.T) {
	handler := account.NewHandler(newService(t)).Routes()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/api-keys", strings.NewReader(`{"comicVine":"abc"}`)))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":{"comicVine":"abc"}}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/api-keys", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
