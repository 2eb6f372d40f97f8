// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/pkg/pointer"
	"github.com/taibuivan/tsundoku/pkg/slice"
	"github.com/taibuivan/tsundoku/pkg/textkey"
	"github.com/taibuivan/tsundoku/pkg/uuid"
)

// # Listing

// Sort keys accepted by [BookFilter].
const (
	SortAddedDate = "addedDate"
	SortTitle     = "title"
	SortAuthor    = "author"
	SortRating    = "rating"
	SortPublished = "publishedDate"
)

// BookFilter narrows and orders a book listing. The zero value lists everything in stored order.
type BookFilter struct {
	// Search matches title, author or series, case-insensitively.
	Search string
	// Read keeps only read (true) or unread (false) books when set.
	Read *bool
	// Sort is one of the Sort* keys.
	Sort       string
	Descending bool
}

// ListBooks returns the collection, filtered and sorted.
func (service *Service) ListBooks(context context.Context, filter BookFilter) ([]library.Book, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_list_books_failed: %w", err)
	}

	return filterBooks(document.Admin().Books, filter), nil
}

func filterBooks(books []library.Book, filter BookFilter) []library.Book {
	needle := textkey.Fold(filter.Search)

	result := slice.Filter(books, func(book library.Book) bool {
		if filter.Read != nil && book.IsRead != *filter.Read {
			return false
		}
		if needle == "" {
			return true
		}
		return strings.Contains(textkey.Fold(book.Title), needle) ||
			strings.Contains(textkey.Fold(book.Author), needle) ||
			strings.Contains(textkey.Fold(book.Series), needle)
	})

	compare := bookComparator(filter.Sort)
	if compare == nil {
		return result
	}
	slices.SortStableFunc(result, func(a, b library.Book) int {
		if filter.Descending {
			return compare(b, a)
		}
		return compare(a, b)
	})

	return result
}

func bookComparator(key string) func(a, b library.Book) int {
	switch key {
	case SortTitle:
		return func(a, b library.Book) int {
			return cmp.Or(
				cmp.Compare(textkey.Fold(a.Title), textkey.Fold(b.Title)),
				cmp.Compare(pointer.Val(a.Volume), pointer.Val(b.Volume)),
			)
		}
	case SortAuthor:
		return func(a, b library.Book) int {
			return cmp.Or(
				cmp.Compare(textkey.Fold(a.Author), textkey.Fold(b.Author)),
				cmp.Compare(textkey.Fold(a.Title), textkey.Fold(b.Title)),
			)
		}
	case SortRating:
		return func(a, b library.Book) int { return cmp.Compare(pointer.Val(a.Rating), pointer.Val(b.Rating)) }
	case SortPublished:
		return func(a, b library.Book) int { return cmp.Compare(a.PublishedDate, b.PublishedDate) }
	case SortAddedDate:
		return func(a, b library.Book) int { return cmp.Compare(a.AddedDate, b.AddedDate) }
	}
	return nil
}

// GetBook returns one book of the collection.
func (service *Service) GetBook(context context.Context, id string) (*library.Book, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_get_book_failed: %w", err)
	}

	user := document.Admin()
	index := user.BookIndex(id)
	if index < 0 {
		return nil, apperr.NotFound(msgBookNotFound)
	}

	return &user.Books[index], nil
}

// # Mutations

/*
AddBook validates and stores a new book.

Description: The duplicate check runs before any download so a rejected book
never fetches its cover. An external thumbnail is mirrored locally; when that
fails the remote URL is stored instead.

Parameters:
  - context: context.Context
  - input: BookInput

Returns:
  - *library.Book: The stored book with its id and addedDate
  - error: VALIDATION_ERROR, CONFLICT or storage failures
*/
func (service *Service) AddBook(context context.Context, input BookInput) (*library.Book, error) {
	book, err := input.normalize()
	if err != nil {
		return nil, err
	}

	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_add_book_failed: %w", err)
	}
	if duplicateOf(document.Admin().Books, book, "") >= 0 {
		return nil, apperr.Conflict(msgBookExists)
	}

	remote := book.Thumbnail
	book.Thumbnail = service.localizeCover(context, remote)
	book.ID = uuid.New()
	book.AddedDate = library.Timestamp(service.now())

	var (
		discarded string
		stillUsed bool
	)
	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		if duplicateOf(user.Books, book, "") >= 0 {
			if book.Thumbnail != remote {
				discarded, stillUsed = book.Thumbnail, referenced(user, book.Thumbnail)
			}
			return apperr.Conflict(msgBookExists)
		}
		user.Books = append(user.Books, book)
		return nil
	})
	if err != nil {
		service.releaseCover(context, discarded, stillUsed)
		return nil, fmt.Errorf("collection_service_add_book_failed: %w", err)
	}

	service.logger.InfoContext(context, "collection_book_added",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
	)

	return &book, nil
}

/*
UpdateBook replaces the editable fields of a book.

Description: Id and addedDate are preserved. A thumbnail changed to a new
external URL is mirrored; the superseded local file is deleted once the
document is saved, unless another book still uses it.

Parameters:
  - context: context.Context
  - id: string
  - input: BookInput

Returns:
  - *library.Book: The stored book
  - error: VALIDATION_ERROR, NOT_FOUND, CONFLICT or storage failures
*/
func (service *Service) UpdateBook(context context.Context, id string, input BookInput) (*library.Book, error) {
	book, err := input.normalize()
	if err != nil {
		return nil, err
	}

	current, err := service.GetBook(context, id)
	if err != nil {
		return nil, err
	}
	remote := book.Thumbnail
	if remote != current.Thumbnail {
		book.Thumbnail = service.localizeCover(context, remote)
	}

	var (
		previous  string
		stillUsed bool
		discarded string
	)
	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		index := user.BookIndex(id)
		if index < 0 || duplicateOf(user.Books, book, id) >= 0 {
			if book.Thumbnail != remote {
				discarded, stillUsed = book.Thumbnail, referenced(user, book.Thumbnail)
			}
			if index < 0 {
				return apperr.NotFound(msgBookNotFound)
			}
			return apperr.Conflict(msgBookExists)
		}

		book.ID = id
		book.AddedDate = user.Books[index].AddedDate
		previous = user.Books[index].Thumbnail
		user.Books[index] = book

		stillUsed = referenced(user, previous)
		return nil
	})
	if err != nil {
		service.releaseCover(context, discarded, stillUsed)
		return nil, fmt.Errorf("collection_service_update_book_failed: %w", err)
	}

	if previous != book.Thumbnail {
		service.releaseCover(context, previous, stillUsed)
	}

	return &book, nil
}

/*
DeleteBook removes a book from the collection and from every reading folder.

Description: Folders that contained the book are renumbered densely. The local
cover is deleted when no other book uses it.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND or storage failures
*/
func (service *Service) DeleteBook(context context.Context, id string) error {
	var (
		thumbnail string
		stillUsed bool
	)

	err := service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		index := user.BookIndex(id)
		if index < 0 {
			return apperr.NotFound(msgBookNotFound)
		}

		thumbnail = user.Books[index].Thumbnail
		user.Books = slices.Delete(user.Books, index, index+1)

		for i := range user.ReadingFolders {
			folder := &user.ReadingFolders[i]
			remaining := slice.Filter(folder.Books, func(entry library.FolderEntry) bool {
				return entry.BookID != id
			})
			if len(remaining) != len(folder.Books) {
				folder.Books = renumber(remaining)
			}
		}

		stillUsed = referenced(user, thumbnail)
		return nil
	})
	if err != nil {
		return fmt.Errorf("collection_service_delete_book_failed: %w", err)
	}

	service.releaseCover(context, thumbnail, stillUsed)

	service.logger.InfoContext(context, "collection_book_deleted", slog.String("book_id", id))
	return nil
}

// # Statistics

// Count is a name with its number of books.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes the collection.
type Stats struct {
	TotalBooks      int                       `json:"totalBooks"`
	ReadBooks       int                       `json:"readBooks"`
	UnreadBooks     int                       `json:"unreadBooks"`
	ReadingProgress float64                   `json:"readingProgress"`
	Conditions      map[library.Condition]int `json:"conditions"`
	TopGenres       []Count                   `json:"topGenres"`
	TopAuthors      []Count                   `json:"topAuthors"`
	RatedBooks      int                       `json:"ratedBooks"`
	AverageRating   float64                   `json:"averageRating"`
	TotalPagesRead  int                       `json:"totalPagesRead"`
	WishlistSize    int                       `json:"wishlistSize"`
	FolderCount     int                       `json:"folderCount"`
	RecentBooks     []library.Book            `json:"recentBooks"`
}

// topLimit caps the genre and author rankings.
const topLimit = 5

// Stats computes reading statistics over the collection.
func (service *Service) Stats(context context.Context) (*Stats, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_stats_failed: %w", err)
	}

	return computeStats(document.Admin()), nil
}

func computeStats(user *library.User) *Stats {
	books := user.Books
	stats := &Stats{
		TotalBooks:   len(books),
		Conditions:   make(map[library.Condition]int, len(library.Conditions)),
		WishlistSize: len(user.Wishlist),
		FolderCount:  len(user.ReadingFolders),
	}
	for _, condition := range library.Conditions {
		stats.Conditions[condition] = 0
	}

	genres := map[string]int{}
	authors := map[string]int{}
	ratingSum := 0

	for _, book := range books {
		stats.Conditions[book.Condition]++
		if book.Genre != "" {
			genres[book.Genre]++
		}
		authors[book.Author]++

		if book.IsRead {
			stats.ReadBooks++
			stats.TotalPagesRead += pointer.Val(book.PageCount)
		}
		if book.Rating != nil {
			stats.RatedBooks++
			ratingSum += *book.Rating
		}
	}

	stats.UnreadBooks = stats.TotalBooks - stats.ReadBooks
	if stats.TotalBooks > 0 {
		stats.ReadingProgress = float64(stats.ReadBooks) / float64(stats.TotalBooks) * 100
	}
	if stats.RatedBooks > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.RatedBooks)
	}
	stats.TopGenres = ranking(genres)
	stats.TopAuthors = ranking(authors)

	recent := slices.Clone(books)
	slices.SortStableFunc(recent, func(a, b library.Book) int { return cmp.Compare(b.AddedDate, a.AddedDate) })
	stats.RecentBooks = recent[:min(3, len(recent))]

	return stats
}

// ranking orders counts descending, ties by name, and keeps the first topLimit.
func ranking(counts map[string]int) []Count {
	result := make([]Count, 0, len(counts))
	for name, count := range counts {
		result = append(result, Count{Name: name, Count: count})
	}
	slices.SortFunc(result, func(a, b Count) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Name, b.Name))
	})
	return result[:min(topLimit, len(result))]
}
