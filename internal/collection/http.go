// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"github.com/go-chi/chi/v5"
)

// # Definitions & Constructors

// Handler implements the collection HTTP endpoints.
type Handler struct {
	collectionService *Service
}

// NewHandler constructs a new collection [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{collectionService: service}
}

// Routes returns a [chi.Router] with the collection, wishlist and folder endpoints.
// The caller mounts it under /api/v1 behind the session check.
//
// # Endpoints
//   - GET/POST         /books
//   - GET              /books/stats
//   - GET/PUT/DELETE   /books/{id}
//   - GET/POST         /wishlist
//   - DELETE           /wishlist/{id}
//   - POST             /wishlist/{id}/move
//   - GET/POST         /folders
//   - GET/PUT/DELETE   /folders/{id}
//   - POST             /folders/{id}/books
//   - DELETE           /folders/{id}/books/{bookID}
//   - PUT              /folders/{id}/order
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Route("/books", func(r chi.Router) {
		r.Get("/", handler.listBooks)
		r.Post("/", handler.addBook)
		r.Get("/stats", handler.stats)
		r.Get("/{id}", handler.getBook)
		r.Put("/{id}", handler.updateBook)
		r.Delete("/{id}", handler.deleteBook)
	})

	router.Route("/wishlist", func(r chi.Router) {
		r.Get("/", handler.listWishlist)
		r.Post("/", handler.addToWishlist)
		r.Delete("/{id}", handler.removeFromWishlist)
		r.Post("/{id}/move", handler.moveToCollection)
	})

	router.Route("/folders", func(r chi.Router) {
		r.Get("/", handler.listFolders)
		r.Post("/", handler.createFolder)
		r.Get("/{id}", handler.getFolder)
		r.Put("/{id}", handler.updateFolder)
		r.Delete("/{id}", handler.deleteFolder)
		r.Post("/{id}/books", handler.addBookToFolder)
		r.Delete("/{id}/books/{bookID}", handler.removeBookFromFolder)
		r.Put("/{id}/order", handler.reorderFolder)
	})

	return router
}
