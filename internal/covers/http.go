// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package covers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
)

// # Definitions & Constructors

// Handler exposes the cover cache over HTTP.
type Handler struct {
	coverService *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{coverService: service}
}

// Routes returns the maintenance endpoints mounted under /api/v1/covers.
//
// # Endpoints
//   - POST /download : Mirrors one remote image.
//   - POST /cleanup  : Removes unreferenced files.
//   - POST /migrate  : Mirrors every external thumbnail of the collection.
//   - GET  /proxy    : Relays an image from an allow-listed host.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/download", handler.download)
	router.Post("/cleanup", handler.cleanup)
	router.Post("/migrate", handler.migrate)
	router.Get("/proxy", handler.proxy)

	return router
}

// # Request Payloads

type downloadRequest struct {
	ImageURL     string `json:"imageUrl"`
	OldImagePath string `json:"oldImagePath"`
}

type downloadResponse struct {
	LocalPath string `json:"localPath"`
}

/*
Download mirrors a remote image into the cache.

POST /api/v1/covers/download

Response:
  - 200: downloadResponse
  - 400: VALIDATION_ERROR
  - 502: BAD_GATEWAY
*/
func (handler *Handler) download(writer http.ResponseWriter, httpRequest *http.Request) {
	var input downloadRequest
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	localPath, err := handler.coverService.Download(httpRequest.Context(), input.ImageURL, input.OldImagePath)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, downloadResponse{LocalPath: localPath})
}

// POST /api/v1/covers/cleanup
func (handler *Handler) cleanup(writer http.ResponseWriter, httpRequest *http.Request) {
	report, err := handler.coverService.Cleanup(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, report)
}

// POST /api/v1/covers/migrate
func (handler *Handler) migrate(writer http.ResponseWriter, httpRequest *http.Request) {
	report, err := handler.coverService.MigrateExternal(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, report)
}

/*
Proxy relays a catalog image to the browser.

GET /api/v1/covers/proxy?url=

Response:
  - 200: Raw image bytes, cached for a day
  - 400: VALIDATION_ERROR
  - 403: FORBIDDEN (host not allow-listed)
  - 502: BAD_GATEWAY
*/
func (handler *Handler) proxy(writer http.ResponseWriter, httpRequest *http.Request) {
	rawURL := request.Query(httpRequest, "url")
	if rawURL == "" {
		respond.Error(writer, httpRequest, apperr.ValidationError("Paramètre url requis"))
		return
	}

	image, err := handler.coverService.Proxy(httpRequest.Context(), rawURL)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	writer.Header().Set("Content-Type", image.ContentType)
	writer.Header().Set("Content-Length", strconv.Itoa(len(image.Body)))
	writer.Header().Set("Cache-Control", "public, max-age=86400")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(image.Body)
}

// # Static Files

// contentTypes maps cached file extensions to their served media type.
var contentTypes = map[string]string{
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

/*
ServeCover streams a cached cover file.

GET /book-covers/{name}

Response:
  - 200: Image with immutable caching
  - 404: NOT_FOUND
*/
func (handler *Handler) ServeCover(writer http.ResponseWriter, httpRequest *http.Request) {
	name := chi.URLParam(httpRequest, "name")

	filePath, ok := handler.coverService.Cache().FilePath(PublicPath(name))
	if !ok || strings.HasPrefix(name, ".") {
		respond.Error(writer, httpRequest, apperr.NotFound("Image non trouvée"))
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		respond.Error(writer, httpRequest, apperr.NotFound("Image non trouvée"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		respond.Error(writer, httpRequest, apperr.NotFound("Image non trouvée"))
		return
	}

	contentType, known := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !known {
		contentType = "image/jpeg"
	}

	writer.Header().Set("Content-Type", contentType)
	writer.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(writer, httpRequest, name, info.ModTime(), file)
}
