// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"net/http"

	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
)

// GET /api/v1/wishlist
func (handler *Handler) listWishlist(writer http.ResponseWriter, httpRequest *http.Request) {
	books, err := handler.collectionService.ListWishlist(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, books)
}

/*
POST /api/v1/wishlist

Request:
  - Body: BookInput

Response:
  - 201: library.Book
  - 409: CONFLICT ("Ce livre est déjà dans votre liste de souhaits")
*/
func (handler *Handler) addToWishlist(writer http.ResponseWriter, httpRequest *http.Request) {
	var input BookInput
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	book, err := handler.collectionService.AddToWishlist(httpRequest.Context(), input)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.Created(writer, book)
}

// DELETE /api/v1/wishlist/{id}
func (handler *Handler) removeFromWishlist(writer http.ResponseWriter, httpRequest *http.Request) {
	if err := handler.collectionService.RemoveFromWishlist(httpRequest.Context(), request.ID(httpRequest, "id")); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.NoContent(writer)
}

/*
POST /api/v1/wishlist/{id}/move

Response:
  - 200: MoveResult
  - 404: NOT_FOUND
*/
func (handler *Handler) moveToCollection(writer http.ResponseWriter, httpRequest *http.Request) {
	result, err := handler.collectionService.MoveToCollection(httpRequest.Context(), request.ID(httpRequest, "id"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, result)
}
