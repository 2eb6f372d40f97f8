// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/pkg/pointer"
)

// fakeCovers maps remote URLs to local paths and records removals.
type fakeCovers struct {
	mu      sync.Mutex
	stored  []string
	removed []string
	fail    bool

	// afterStore runs once a download succeeded, outside the lock.
	afterStore func()
}

func (covers *fakeCovers) Store(_ context.Context, rawURL, _ string) (string, error) {
	covers.mu.Lock()
	if covers.fail {
		covers.mu.Unlock()
		return "", errors.New("upstream unavailable")
	}
	covers.stored = append(covers.stored, rawURL)
	hook := covers.afterStore
	covers.mu.Unlock()

	if hook != nil {
		hook()
	}
	return "/book-covers/" + filepath.Base(rawURL), nil
}

func (covers *fakeCovers) Remove(_ context.Context, publicPath string) {
	covers.mu.Lock()
	defer covers.mu.Unlock()
	covers.removed = append(covers.removed, publicPath)
}

func newTestService(t *testing.T) (*Service, *fakeCovers, library.Repository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repository := library.NewFileRepository(
		filepath.Join(t.TempDir(), "library.json"),
		library.Defaults{Password: "admin123"},
		logger,
	)
	covers := &fakeCovers{}
	service := NewService(repository, covers, logger)
	service.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return service, covers, repository
}

func mustAdd(t *testing.T, service *Service, title, author string) *library.Book {
	t.Helper()
	book, err := service.AddBook(context.Background(), BookInput{Title: title, Author: author})
	require.NoError(t, err)
	return book
}

// # Books

func TestAddBook_AssignsIdentity(t *testing.T) {
	service, _, _ := newTestService(t)

	book := mustAdd(t, service, "Akira", "Otomo")
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", book.AddedDate)

	stored, err := service.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, *book, *stored)
}

func TestAddBook_RejectsDuplicateCaseInsensitive(t *testing.T) {
	service, covers, _ := newTestService(t)
	mustAdd(t, service, "Astérix le Gaulois", "Goscinny")

	_, err := service.AddBook(context.Background(), BookInput{
		Title:     "  ASTÉRIX LE GAULOIS ",
		Author:    "goscinny",
		Thumbnail: "https://img.test/asterix.jpg",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.Empty(t, covers.stored, "a rejected book never downloads its cover")

	books, err := service.ListBooks(context.Background(), BookFilter{})
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestAddBook_LocalizesCover(t *testing.T) {
	service, covers, _ := newTestService(t)

	book, err := service.AddBook(context.Background(), BookInput{Title: "T", Author: "A", Thumbnail: "https://img.test/t.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "/book-covers/t.jpg", book.Thumbnail)

	covers.fail = true
	book, err = service.AddBook(context.Background(), BookInput{Title: "U", Author: "A", Thumbnail: "https://img.test/u.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/u.jpg", book.Thumbnail, "download failure keeps the remote URL")
}

func TestAddBook_LosingConcurrentAddReleasesCover(t *testing.T) {
	ctx := context.Background()

	insert := func(t *testing.T, repository library.Repository, thumbnail string) func() {
		return func() {
			require.NoError(t, repository.Update(ctx, func(document *library.Document) error {
				user := document.Admin()
				user.Books = append(user.Books, library.Book{ID: "winner", Title: "Race", Author: "A", Thumbnail: thumbnail})
				return nil
			}))
		}
	}

	t.Run("unused cover is removed", func(t *testing.T) {
		service, covers, repository := newTestService(t)
		covers.afterStore = insert(t, repository, "")

		_, err := service.AddBook(ctx, BookInput{Title: "Race", Author: "A", Thumbnail: "https://img.test/race.jpg"})
		require.True(t, apperr.HasCode(err, apperr.CodeConflict))
		assert.Equal(t, []string{"/book-covers/race.jpg"}, covers.removed)
	})

	t.Run("cover shared with the winner is kept", func(t *testing.T) {
		service, covers, repository := newTestService(t)
		covers.afterStore = insert(t, repository, "/book-covers/race.jpg")

		_, err := service.AddBook(ctx, BookInput{Title: "Race", Author: "A", Thumbnail: "https://img.test/race.jpg"})
		require.True(t, apperr.HasCode(err, apperr.CodeConflict))
		assert.Empty(t, covers.removed)
	})
}

func TestUpdateBook(t *testing.T) {
	service, covers, _ := newTestService(t)

	original, err := service.AddBook(context.Background(), BookInput{Title: "T", Author: "A", Thumbnail: "https://img.test/old.jpg"})
	require.NoError(t, err)
	mustAdd(t, service, "Other", "A")

	input := FromBook(*original)
	input.Rating = pointer.To(4)
	input.Thumbnail = "https://img.test/new.jpg"

	updated, err := service.UpdateBook(context.Background(), original.ID, input)
	require.NoError(t, err)
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, original.AddedDate, updated.AddedDate)
	assert.Equal(t, "/book-covers/new.jpg", updated.Thumbnail)
	assert.Equal(t, []string{"/book-covers/old.jpg"}, covers.removed)

	input.Title = "other"
	_, err = service.UpdateBook(context.Background(), original.ID, input)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	_, err = service.UpdateBook(context.Background(), "missing", input)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestUpdateBook_KeepsSharedCover(t *testing.T) {
	service, covers, _ := newTestService(t)

	first, err := service.AddBook(context.Background(), BookInput{Title: "T1", Author: "A", Thumbnail: "https://img.test/shared.jpg"})
	require.NoError(t, err)
	_, err = service.AddBook(context.Background(), BookInput{Title: "T2", Author: "A", Thumbnail: "https://img.test/shared.jpg"})
	require.NoError(t, err)

	input := FromBook(*first)
	input.Thumbnail = ""
	_, err = service.UpdateBook(context.Background(), first.ID, input)
	require.NoError(t, err)
	assert.Empty(t, covers.removed)
}

func TestDeleteBook_CascadesToFolders(t *testing.T) {
	service, covers, _ := newTestService(t)
	ctx := context.Background()

	a := mustAdd(t, service, "A", "X")
	b, err := service.AddBook(ctx, BookInput{Title: "B", Author: "X", Thumbnail: "https://img.test/b.jpg"})
	require.NoError(t, err)
	c := mustAdd(t, service, "C", "X")

	saga, err := service.CreateFolder(ctx, FolderInput{Name: "Saga"})
	require.NoError(t, err)
	for _, id := range []string{a.ID, b.ID, c.ID} {
		_, err = service.AddBookToFolder(ctx, saga.ID, id, "")
		require.NoError(t, err)
	}

	favourites, err := service.CreateFolder(ctx, FolderInput{Name: "Favoris"})
	require.NoError(t, err)
	for _, id := range []string{b.ID, c.ID} {
		_, err = service.AddBookToFolder(ctx, favourites.ID, id, "")
		require.NoError(t, err)
	}

	require.NoError(t, service.DeleteBook(ctx, b.ID))

	got, err := service.GetFolder(ctx, saga.ID)
	require.NoError(t, err)
	require.Len(t, got.Books, 2)
	assert.Equal(t, a.ID, got.Books[0].BookID)
	assert.Equal(t, 1, got.Books[0].Order)
	assert.Equal(t, c.ID, got.Books[1].BookID)
	assert.Equal(t, 2, got.Books[1].Order)

	got, err = service.GetFolder(ctx, favourites.ID)
	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, c.ID, got.Books[0].BookID)
	assert.Equal(t, 1, got.Books[0].Order)

	assert.Equal(t, []string{"/book-covers/b.jpg"}, covers.removed)

	err = service.DeleteBook(ctx, b.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestListBooks_FilterAndSort(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.AddBook(ctx, BookInput{Title: "Zorro", Author: "Bob", IsRead: true, Rating: pointer.To(2)})
	require.NoError(t, err)
	_, err = service.AddBook(ctx, BookInput{Title: "alpha", Author: "Alice", Series: "Saga", Rating: pointer.To(5)})
	require.NoError(t, err)

	books, err := service.ListBooks(ctx, BookFilter{Sort: SortTitle})
	require.NoError(t, err)
	assert.Equal(t, "alpha", books[0].Title)

	books, err = service.ListBooks(ctx, BookFilter{Sort: SortRating, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, "alpha", books[0].Title)

	books, err = service.ListBooks(ctx, BookFilter{Read: pointer.To(true)})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Zorro", books[0].Title)

	books, err = service.ListBooks(ctx, BookFilter{Search: "SAGA"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "alpha", books[0].Title)
}

func TestStats(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	inputs := []BookInput{
		{Title: "A", Author: "X", Genre: "Manga", IsRead: true, PageCount: pointer.To(200), Rating: pointer.To(4), Condition: library.ConditionMint},
		{Title: "B", Author: "X", Genre: "Manga", IsRead: true, PageCount: pointer.To(100), Rating: pointer.To(2)},
		{Title: "C", Author: "Y", Genre: "BD", PageCount: pointer.To(50)},
	}
	for _, input := range inputs {
		_, err := service.AddBook(ctx, input)
		require.NoError(t, err)
	}

	stats, err := service.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalBooks)
	assert.Equal(t, 2, stats.ReadBooks)
	assert.Equal(t, 1, stats.UnreadBooks)
	assert.InDelta(t, 66.67, stats.ReadingProgress, 0.01)
	assert.Equal(t, 300, stats.TotalPagesRead)
	assert.InDelta(t, 3.0, stats.AverageRating, 0.001)
	assert.Equal(t, 1, stats.Conditions[library.ConditionMint])
	assert.Equal(t, 2, stats.Conditions[library.ConditionGood])
	assert.Equal(t, 0, stats.Conditions[library.ConditionPoor])
	assert.Equal(t, []Count{{Name: "Manga", Count: 2}, {Name: "BD", Count: 1}}, stats.TopGenres)
	assert.Equal(t, "X", stats.TopAuthors[0].Name)
	assert.Len(t, stats.RecentBooks, 3)
}

// # Wishlist

func TestWishlist_DuplicateRejected(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.AddToWishlist(ctx, BookInput{Title: "Blacksad", Author: "Canales"})
	require.NoError(t, err)

	_, err = service.AddToWishlist(ctx, BookInput{Title: "blacksad ", Author: "CANALES"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.Equal(t, msgWishlistExists, apperr.As(err).Message)

	// Owning a title does not block wishing for it.
	mustAdd(t, service, "Owned", "Someone")
	_, err = service.AddToWishlist(ctx, BookInput{Title: "Owned", Author: "Someone"})
	assert.NoError(t, err)
}

func TestMoveToCollection(t *testing.T) {
	service, covers, _ := newTestService(t)
	ctx := context.Background()

	wished, err := service.AddToWishlist(ctx, BookInput{Title: "New", Author: "A", Thumbnail: "https://img.test/new.jpg"})
	require.NoError(t, err)

	result, err := service.MoveToCollection(ctx, wished.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyOwned)
	assert.NotEqual(t, wished.ID, result.Book.ID)
	assert.Equal(t, "/book-covers/new.jpg", result.Book.Thumbnail)
	assert.Len(t, covers.stored, 1)

	owned := mustAdd(t, service, "Dup", "A")
	dup, err := service.AddToWishlist(ctx, BookInput{Title: "DUP", Author: "a"})
	require.NoError(t, err)

	result, err = service.MoveToCollection(ctx, dup.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyOwned)
	assert.Equal(t, owned.ID, result.Book.ID)

	wishlist, err := service.ListWishlist(ctx)
	require.NoError(t, err)
	assert.Empty(t, wishlist, "the wishlist item is removed in both cases")

	books, err := service.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	_, err = service.MoveToCollection(ctx, dup.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestMoveToCollection_LosingConcurrentAddReleasesCover(t *testing.T) {
	service, covers, repository := newTestService(t)
	ctx := context.Background()

	wished, err := service.AddToWishlist(ctx, BookInput{Title: "Race", Author: "A", Thumbnail: "https://img.test/race.jpg"})
	require.NoError(t, err)

	covers.afterStore = func() {
		require.NoError(t, repository.Update(ctx, func(document *library.Document) error {
			user := document.Admin()
			user.Books = append(user.Books, library.Book{ID: "winner", Title: "Race", Author: "A"})
			return nil
		}))
	}

	result, err := service.MoveToCollection(ctx, wished.ID)
	require.NoError(t, err)
	assert.True(t, result.AlreadyOwned)
	assert.Equal(t, "winner", result.Book.ID)
	assert.Equal(t, []string{"/book-covers/race.jpg"}, covers.removed)
}

func TestRemoveFromWishlist(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	wished, err := service.AddToWishlist(ctx, BookInput{Title: "T", Author: "A"})
	require.NoError(t, err)

	require.NoError(t, service.RemoveFromWishlist(ctx, wished.ID))
	err = service.RemoveFromWishlist(ctx, wished.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

// # Folders

func TestFolders_Lifecycle(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.CreateFolder(ctx, FolderInput{Name: "  "})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	folder, err := service.CreateFolder(ctx, FolderInput{Name: " Marvel ", Description: "Ordre de lecture"})
	require.NoError(t, err)
	assert.Equal(t, "Marvel", folder.Name)
	assert.Empty(t, folder.Books)

	book := mustAdd(t, service, "Civil War", "Millar")
	_, err = service.AddBookToFolder(ctx, folder.ID, book.ID, " first ")
	require.NoError(t, err)

	renamed, err := service.UpdateFolder(ctx, folder.ID, FolderInput{Name: "Marvel 616"})
	require.NoError(t, err)
	assert.Equal(t, folder.ID, renamed.ID)
	assert.Equal(t, folder.CreatedDate, renamed.CreatedDate)
	require.Len(t, renamed.Books, 1, "entries survive a rename")
	assert.Equal(t, "first", renamed.Books[0].Notes)

	folders, err := service.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)

	require.NoError(t, service.DeleteFolder(ctx, folder.ID))
	assert.True(t, apperr.HasCode(service.DeleteFolder(ctx, folder.ID), apperr.CodeNotFound))

	_, err = service.GetBook(ctx, book.ID)
	assert.NoError(t, err, "deleting a folder keeps its books")
}

func TestFolders_Membership(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	folder, err := service.CreateFolder(ctx, FolderInput{Name: "F"})
	require.NoError(t, err)
	a := mustAdd(t, service, "A", "X")
	b := mustAdd(t, service, "B", "X")

	_, err = service.AddBookToFolder(ctx, folder.ID, "ghost", "")
	assert.Equal(t, msgNotInCollection, apperr.As(err).Message)

	_, err = service.AddBookToFolder(ctx, "ghost", a.ID, "")
	assert.Equal(t, msgFolderNotFound, apperr.As(err).Message)

	_, err = service.AddBookToFolder(ctx, folder.ID, a.ID, "")
	require.NoError(t, err)
	_, err = service.AddBookToFolder(ctx, folder.ID, a.ID, "")
	assert.Equal(t, msgAlreadyInFolder, apperr.As(err).Message)

	updated, err := service.AddBookToFolder(ctx, folder.ID, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Books[1].Order)

	updated, err = service.RemoveBookFromFolder(ctx, folder.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, updated.Books, 1)
	assert.Equal(t, b.ID, updated.Books[0].BookID)
	assert.Equal(t, 1, updated.Books[0].Order)

	_, err = service.RemoveBookFromFolder(ctx, folder.ID, a.ID)
	assert.Equal(t, msgNotInFolder, apperr.As(err).Message)
}

func TestFolders_AddUsesMaxOrderPlusOne(t *testing.T) {
	service, _, repository := newTestService(t)
	ctx := context.Background()

	folder, err := service.CreateFolder(ctx, FolderInput{Name: "Gappy"})
	require.NoError(t, err)
	a := mustAdd(t, service, "A", "X")
	b := mustAdd(t, service, "B", "X")

	// A legacy file with a gap in the numbering.
	require.NoError(t, repository.Update(ctx, func(document *library.Document) error {
		document.Admin().Folder(folder.ID).Books = []library.FolderEntry{{BookID: a.ID, Order: 7}}
		return nil
	}))

	updated, err := service.AddBookToFolder(ctx, folder.ID, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Books[1].Order)
}

func TestFolders_Reorder(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	folder, err := service.CreateFolder(ctx, FolderInput{Name: "F"})
	require.NoError(t, err)
	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		book := mustAdd(t, service, title, "X")
		_, err = service.AddBookToFolder(ctx, folder.ID, book.ID, "note "+title)
		require.NoError(t, err)
		ids = append(ids, book.ID)
	}

	reordered, err := service.ReorderFolder(ctx, folder.ID, []string{ids[2], ids[0], ids[1]})
	require.NoError(t, err)
	assert.Equal(t, ids[2], reordered.Books[0].BookID)
	assert.Equal(t, 1, reordered.Books[0].Order)
	assert.Equal(t, "note C", reordered.Books[0].Notes)
	assert.Equal(t, 3, reordered.Books[2].Order)

	invalid := [][]string{
		{ids[0], ids[1]},
		{ids[0], ids[1], ids[1]},
		{ids[0], ids[1], "ghost"},
		{ids[0], ids[1], ids[2], "extra"},
	}
	for _, order := range invalid {
		_, err = service.ReorderFolder(ctx, folder.ID, order)
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "%v", order)
	}

	got, err := service.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, ids[2], got.Books[0].BookID, "rejected reorders change nothing")
}
