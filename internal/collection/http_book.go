// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"net/http"
	"strconv"

	"github.com/taibuivan/tsundoku/internal/platform/request"
	"github.com/taibuivan/tsundoku/internal/platform/respond"
)

/*
GET /api/v1/books

Query:
  - q: Search in title, author and series
  - read: true | false
  - sort: addedDate | title | author | rating | publishedDate
  - order: asc | desc

Response:
  - 200: []library.Book
*/
func (handler *Handler) listBooks(writer http.ResponseWriter, httpRequest *http.Request) {
	filter := BookFilter{
		Search:     request.Query(httpRequest, "q"),
		Sort:       request.Query(httpRequest, "sort"),
		Descending: request.Query(httpRequest, "order") == "desc",
	}
	if read, err := strconv.ParseBool(request.Query(httpRequest, "read")); err == nil {
		filter.Read = &read
	}

	books, err := handler.collectionService.ListBooks(httpRequest.Context(), filter)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, books)
}

/*
POST /api/v1/books

Request:
  - Body: BookInput

Response:
  - 201: library.Book
  - 400: VALIDATION_ERROR
  - 409: CONFLICT (same title and author)
*/
func (handler *Handler) addBook(writer http.ResponseWriter, httpRequest *http.Request) {
	var input BookInput
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	book, err := handler.collectionService.AddBook(httpRequest.Context(), input)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.Created(writer, book)
}

// GET /api/v1/books/stats
func (handler *Handler) stats(writer http.ResponseWriter, httpRequest *http.Request) {
	stats, err := handler.collectionService.Stats(httpRequest.Context())
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, stats)
}

// GET /api/v1/books/{id}
func (handler *Handler) getBook(writer http.ResponseWriter, httpRequest *http.Request) {
	book, err := handler.collectionService.GetBook(httpRequest.Context(), request.ID(httpRequest, "id"))
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, book)
}

/*
PUT /api/v1/books/{id}

Request:
  - Body: BookInput (full replacement of editable fields)

Response:
  - 200: library.Book
  - 400/404/409
*/
func (handler *Handler) updateBook(writer http.ResponseWriter, httpRequest *http.Request) {
	var input BookInput
	if err := request.DecodeJSON(httpRequest, &input); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	book, err := handler.collectionService.UpdateBook(httpRequest.Context(), request.ID(httpRequest, "id"), input)
	if err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.OK(writer, book)
}

// DELETE /api/v1/books/{id}
func (handler *Handler) deleteBook(writer http.ResponseWriter, httpRequest *http.Request) {
	if err := handler.collectionService.DeleteBook(httpRequest.Context(), request.ID(httpRequest, "id")); err != nil {
		respond.Error(writer, httpRequest, err)
		return
	}

	respond.NoContent(writer)
}
