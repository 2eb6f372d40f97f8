// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
)

// # Definitions & Constructors

// Handler exposes catalog searches over HTTP.
type Handler struct {
	searchService *Service
}

// NewHandler constructs a new search [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{searchService: service}
}

// Routes returns the search endpoints mounted under /api/v1/search.
//
// # Endpoints
//   - GET /         : One source (?source=&q=).
//   - GET /all      : Every source concurrently (?q=).
//   - GET /sources  : Registered source names.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.search)
	router.Get("/all", handler.searchAll)
	router.Get("/sources", handler.sources)

	return router
}

/*
Search queries one catalog.

GET /api/v1/search?source=google&q=akira

Response:
  - 200: Result (adapter failures are reported in Result.Error)
  - 400: VALIDATION_ERROR (missing query or unknown source)
*/
func (handler *Handler) search(writer http.ResponseWriter, httpRequest *http.Request) {
	result, err := handler.searchService.Search(httpRequest.Context(), request.Query(httpRequest, "source"), request.Query(httpRequest, "q"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, result)
}

/*
SearchAll queries every catalog.

GET /api/v1/search/all?q=akira

Response:
  - 200: []Result
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) searchAll(writer http.ResponseWriter, httpRequest *http.Request) {
	results, err := handler.searchService.SearchAll(httpRequest.Context(), request.Query(httpRequest, "q"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, results)
}

func (handler *Handler) sources(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, handler.searchService.Sources())
}

/*
Scrape extracts an album from a Bedetheque or BDGest page.

GET /api/v1/scrape?url=https://www.bedetheque.com/BD-Blacksad-Tome-1-Quelque-part-entre-les-ombres-21288.html

Response:
  - 200: Candidate
  - 400: VALIDATION_ERROR (missing or foreign URL)
  - 502: BAD_GATEWAY
*/
func (handler *Handler) Scrape(writer http.ResponseWriter, httpRequest *http.Request) {
	rawURL := request.Query(httpRequest, "url")
	if rawURL == "" {
		respond.Error(writer, httpRequest, apperr.ValidationError(msgInvalidScrapeURL))
		return
	}

	candidate, err := handler.searchService.Scrape(httpRequest.Context(), rawURL)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, candidate)
}
