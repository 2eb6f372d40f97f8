// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/tsundoku/internal/covers"
	"github.com/taibuivan/tsundoku/internal/library"
)

// # Collaborators

// CoverStore mirrors remote covers locally. It is satisfied by [covers.Cache].
type CoverStore interface {
	// Store returns the local path of rawURL, downloading it when needed.
	Store(context context.Context, rawURL, previous string) (string, error)
	// Remove deletes a local cover. Failures are swallowed.
	Remove(context context.Context, publicPath string)
}

// # Definitions & Constructors

// Service implements the collection, wishlist and reading folder use cases.
type Service struct {
	repository library.Repository
	coverStore CoverStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new instance of the collection service.
func NewService(repository library.Repository, coverStore CoverStore, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		coverStore: coverStore,
		logger:     logger,
		now:        time.Now,
	}
}

// # Cover Helpers

// localizeCover mirrors an external thumbnail. On failure the remote URL is kept.
func (service *Service) localizeCover(context context.Context, thumbnail string) string {
	if !covers.IsExternal(thumbnail) {
		return thumbnail
	}

	localPath, err := service.coverStore.Store(context, thumbnail, "")
	if err != nil {
		service.logger.WarnContext(context, "collection_cover_download_failed",
			slog.String("url", thumbnail),
			slog.Any("error", err),
		)
		return thumbnail
	}

	return localPath
}

// releaseCover removes a local cover no longer referenced by any book.
func (service *Service) releaseCover(context context.Context, thumbnail string, stillUsed bool) {
	if thumbnail == "" || stillUsed || !covers.IsLocal(thumbnail) {
		return
	}
	service.coverStore.Remove(context, thumbnail)
}

// referenced reports whether thumbnail is used by any book of the collection or the wishlist.
func referenced(user *library.User, thumbnail string) bool {
	for _, books := range [][]library.Book{user.Books, user.Wishlist} {
		for i := range books {
			if books[i].Thumbnail == thumbnail {
				return true
			}
		}
	}
	return false
}
