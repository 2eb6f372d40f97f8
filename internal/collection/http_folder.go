// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"net/http"

	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
)

// # Request Payloads

type addToFolderRequest struct {
	BookID string `json:"bookId"`
	Notes  string `json:"notes"`
}

type reorderRequest struct {
	Books []string `json:"books"`
}

// GET /api/v1/folders
func (handler *Handler) listFolders(writer http.ResponseWriter, httpRequest *http.Request) {
	folders, err := handler.collectionService.ListFolders(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, folders)
}

// POST /api/v1/folders
func (handler *Handler) createFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	var input FolderInput
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	folder, err := handler.collectionService.CreateFolder(httpRequest.Context(), input)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.Created(writer, folder)
}

// GET /api/v1/folders/{id}
func (handler *Handler) getFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	folder, err := handler.collectionService.GetFolder(httpRequest.Context(), request.ID(httpRequest, "id"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, folder)
}

// PUT /api/v1/folders/{id}
func (handler *Handler) updateFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	var input FolderInput
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	folder, err := handler.collectionService.UpdateFolder(httpRequest.Context(), request.ID(httpRequest, "id"), input)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, folder)
}

// DELETE /api/v1/folders/{id}
func (handler *Handler) deleteFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	if err := handler.collectionService.DeleteFolder(httpRequest.Context(), request.ID(httpRequest, "id")); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/folders/{id}/books

Request:
  - Body: addToFolderRequest (BookID, Notes)

Response:
  - 200: library.ReadingFolder
  - 404: Folder or book not found
  - 409: Already a member
*/
func (handler *Handler) addBookToFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	var input addToFolderRequest
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	folder, err := handler.collectionService.AddBookToFolder(httpRequest.Context(), request.ID(httpRequest, "id"), input.BookID, input.Notes)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, folder)
}

// DELETE /api/v1/folders/{id}/books/{bookID}
func (handler *Handler) removeBookFromFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	folder, err := handler.collectionService.RemoveBookFromFolder(httpRequest.Context(), request.ID(httpRequest, "id"), request.ID(httpRequest, "bookID"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, folder)
}

/*
PUT /api/v1/folders/{id}/order

Request:
  - Body: reorderRequest (Books: every member id in the new order)

Response:
  - 200: library.ReadingFolder
  - 400: VALIDATION_ERROR (not a permutation of the members)
*/
func (handler *Handler) reorderFolder(writer http.ResponseWriter, httpRequest *http.Request) {
	var input reorderRequest
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	folder, err := handler.collectionService.ReorderFolder(httpRequest.Context(), request.ID(httpRequest, "id"), input.Books)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, folder)
}
