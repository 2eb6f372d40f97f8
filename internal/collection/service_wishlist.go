// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/pkg/uuid"
)

// ListWishlist returns the wishlist in stored order.
func (service *Service) ListWishlist(context context.Context) ([]library.Book, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_list_wishlist_failed: %w", err)
	}
	return document.Admin().Wishlist, nil
}

// AddToWishlist validates and stores a wished-for book. Thumbnails stay remote.
func (service *Service) AddToWishlist(context context.Context, input BookInput) (*library.Book, error) {
	book, err := input.normalize()
	if err != nil {
		return nil, err
	}
	book.ID = uuid.New()
	book.AddedDate = library.Timestamp(service.now())

	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		if duplicateOf(user.Wishlist, book, "") >= 0 {
			return apperr.Conflict(msgWishlistExists)
		}
		user.Wishlist = append(user.Wishlist, book)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection_service_add_to_wishlist_failed: %w", err)
	}

	return &book, nil
}

// RemoveFromWishlist deletes a wishlist item.
func (service *Service) RemoveFromWishlist(context context.Context, id string) error {
	err := service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		index := user.WishlistIndex(id)
		if index < 0 {
			return apperr.NotFound(msgWishlistNotFound)
		}
		user.Wishlist = slices.Delete(user.Wishlist, index, index+1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("collection_service_remove_from_wishlist_failed: %w", err)
	}
	return nil
}

// MoveResult reports the outcome of [Service.MoveToCollection].
type MoveResult struct {
	// Book is the collection entry: the new one, or the existing duplicate.
	Book library.Book `json:"book"`
	// AlreadyOwned is true when a duplicate was found and nothing was added.
	AlreadyOwned bool `json:"alreadyOwned"`
}

/*
MoveToCollection acquires a wishlist item.

Description: The item becomes a collection book with a fresh id and addedDate,
unless the collection already holds the same (title, author), in which case
nothing is added. The wishlist item is removed in both cases. An external
thumbnail is mirrored like in [Service.AddBook].

Parameters:
  - context: context.Context
  - id: string (wishlist item id)

Returns:
  - *MoveResult: The collection entry
  - error: NOT_FOUND or storage failures
*/
func (service *Service) MoveToCollection(context context.Context, id string) (*MoveResult, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_move_to_collection_failed: %w", err)
	}

	user := document.Admin()
	index := user.WishlistIndex(id)
	if index < 0 {
		return nil, apperr.NotFound(msgWishlistNotFound)
	}

	book := user.Wishlist[index]
	remote := book.Thumbnail
	if duplicateOf(user.Books, book, "") < 0 {
		book.Thumbnail = service.localizeCover(context, remote)
	}
	book.ID = uuid.New()
	book.AddedDate = library.Timestamp(service.now())

	var (
		discarded string
		stillUsed bool
	)
	result := &MoveResult{Book: book}
	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		index := user.WishlistIndex(id)
		if index < 0 {
			if book.Thumbnail != remote {
				discarded, stillUsed = book.Thumbnail, referenced(user, book.Thumbnail)
			}
			return apperr.NotFound(msgWishlistNotFound)
		}

		if existing := duplicateOf(user.Books, book, ""); existing >= 0 {
			result.Book = user.Books[existing]
			result.AlreadyOwned = true
		} else {
			user.Books = append(user.Books, book)
		}

		user.Wishlist = slices.Delete(user.Wishlist, index, index+1)

		if result.AlreadyOwned && book.Thumbnail != remote {
			discarded, stillUsed = book.Thumbnail, referenced(user, book.Thumbnail)
		}
		return nil
	})
	service.releaseCover(context, discarded, stillUsed)
	if err != nil {
		return nil, fmt.Errorf("collection_service_move_to_collection_failed: %w", err)
	}

	service.logger.InfoContext(context, "collection_wishlist_moved",
		slog.String("wishlist_id", id),
		slog.String("book_id", result.Book.ID),
		slog.Bool("already_owned", result.AlreadyOwned),
	)

	return result, nil
}
