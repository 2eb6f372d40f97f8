// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
)

// Handler implements the HTTP layer for account settings.
//
// # Security
//
// All endpoints require an active session (mounted behind RequireSession).
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/api-keys", handler.getAPIKeys)
	router.Put("/api-keys", handler.updateAPIKeys)

	return router
}

/*
GET /api/v1/account/api-keys.

Response:
  - 200: APIKeys
*/
func (handler *Handler) getAPIKeys(writer http.ResponseWriter, httpRequest *http.Request) {
	keys, err := handler.accountService.GetAPIKeys(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, keys)
}

/*
PUT /api/v1/account/api-keys.

Request:
  - body: APIKeys

Response:
  - 200: APIKeys: The stored keys
  - 400: Invalid JSON
*/
func (handler *Handler) updateAPIKeys(writer http.ResponseWriter, httpRequest *http.Request) {
	var input APIKeys
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	keys, err := handler.accountService.UpdateAPIKeys(httpRequest.Context(), input)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, keys)
}
