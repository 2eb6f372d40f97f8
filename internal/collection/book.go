// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package collection implements the library mutators: owned books, the wishlist
and reading folders.

Every mutation runs inside one [library.Repository.Update], so validation,
uniqueness checks and the write see the same document.

# Uniqueness

A (title, author) pair is unique within the collection and within the wishlist,
compared after trimming with Unicode case folding. The same title may sit in
both lists at once.
*/
package collection

import (
	"regexp"
	"strings"
	"time"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/validate"
	"github.com/taibuivan/tsundoku/pkg/textkey"
)

// # Messages

const (
	msgTitleRequired     = "Le titre est requis"
	msgAuthorRequired    = "L'auteur est requis"
	msgInvalidCondition  = "L'état du livre n'est pas valide"
	msgInvalidRating     = "La note doit être entre 1 et 5"
	msgInvalidVolume     = "Le volume doit être un nombre positif"
	msgInvalidPageCount  = "Le nombre de pages ne peut pas être négatif"
	msgInvalidThumbnail  = "L'image de couverture doit être une URL ou une image locale"
	msgBookExists        = "Ce livre existe déjà dans votre collection"
	msgWishlistExists    = "Ce livre est déjà dans votre liste de souhaits"
	msgBookNotFound      = "Livre non trouvé"
	msgWishlistNotFound  = "Livre non trouvé dans la liste de souhaits"
	msgFolderNotFound    = "Dossier non trouvé"
	msgFolderNameMissing = "Le nom du dossier est requis"
	msgNotInCollection   = "Livre non trouvé dans la collection"
	msgAlreadyInFolder   = "Ce livre est déjà dans ce dossier"
	msgNotInFolder       = "Livre non trouvé dans ce dossier"
	msgInvalidOrder      = "L'ordre fourni ne correspond pas au contenu du dossier"
)

// # Input

// BookInput is the client-editable part of a book. Id and addedDate are assigned by the server.
type BookInput struct {
	Title         string            `json:"title"`
	Author        string            `json:"author"`
	Genre         string            `json:"genre,omitempty"`
	Series        string            `json:"series,omitempty"`
	Universe      string            `json:"universe,omitempty"`
	Volume        *int              `json:"volume,omitempty"`
	Publisher     string            `json:"publisher,omitempty"`
	PageCount     *int              `json:"pageCount,omitempty"`
	PublishedDate string            `json:"publishedDate,omitempty"`
	Condition     library.Condition `json:"condition,omitempty"`
	IsRead        bool              `json:"isRead"`
	Rating        *int              `json:"rating,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	ReadDate      string            `json:"readDate,omitempty"`
	Thumbnail     string            `json:"thumbnail,omitempty"`
	Description   string            `json:"description,omitempty"`
	Content       string            `json:"content,omitempty"`
}

// FromBook copies the editable fields of an existing book.
func FromBook(book library.Book) BookInput {
	return BookInput{
		Title:         book.Title,
		Author:        book.Author,
		Genre:         book.Genre,
		Series:        book.Series,
		Universe:      book.Universe,
		Volume:        book.Volume,
		Publisher:     book.Publisher,
		PageCount:     book.PageCount,
		PublishedDate: book.PublishedDate,
		Condition:     book.Condition,
		IsRead:        book.IsRead,
		Rating:        book.Rating,
		Notes:         book.Notes,
		ReadDate:      book.ReadDate,
		Thumbnail:     book.Thumbnail,
		Description:   book.Description,
		Content:       book.Content,
	}
}

// # Validation

/*
normalize validates input and returns the cleaned record.

Description: Text fields are trimmed, the condition defaults to "good",
publishedDate is normalized to a day and readDate is dropped for unread books.
Every violation is reported in one VALIDATION_ERROR.
*/
func (input BookInput) normalize() (library.Book, error) {
	book := library.Book{
		Title:         strings.TrimSpace(input.Title),
		Author:        strings.TrimSpace(input.Author),
		Genre:         strings.TrimSpace(input.Genre),
		Series:        strings.TrimSpace(input.Series),
		Universe:      strings.TrimSpace(input.Universe),
		Volume:        input.Volume,
		Publisher:     strings.TrimSpace(input.Publisher),
		PageCount:     input.PageCount,
		PublishedDate: NormalizePublishedDate(input.PublishedDate),
		Condition:     input.Condition,
		IsRead:        input.IsRead,
		Rating:        input.Rating,
		Notes:         strings.TrimSpace(input.Notes),
		ReadDate:      strings.TrimSpace(input.ReadDate),
		Thumbnail:     strings.TrimSpace(input.Thumbnail),
		Description:   strings.TrimSpace(input.Description),
		Content:       strings.TrimSpace(input.Content),
	}

	if book.Condition == "" {
		book.Condition = library.ConditionGood
	}
	if !book.IsRead {
		book.ReadDate = ""
	}

	v := &validate.Validator{}
	v.Required("title", book.Title, msgTitleRequired).
		MaxLen("title", book.Title, 300).
		Required("author", book.Author, msgAuthorRequired).
		MaxLen("author", book.Author, 200).
		Custom("condition", !validCondition(book.Condition), msgInvalidCondition).
		Date("readDate", book.ReadDate).
		Custom("thumbnail", !validThumbnail(book.Thumbnail), msgInvalidThumbnail)

	if book.Rating != nil {
		v.Range("rating", *book.Rating, 1, 5, msgInvalidRating)
	}
	if book.Volume != nil {
		v.Custom("volume", *book.Volume <= 0, msgInvalidVolume)
	}
	if book.PageCount != nil {
		v.Custom("pageCount", *book.PageCount < 0, msgInvalidPageCount)
	}

	if err := v.Err(); err != nil {
		return library.Book{}, err
	}

	return book, nil
}

func validCondition(condition library.Condition) bool {
	for _, known := range library.Conditions {
		if condition == known {
			return true
		}
	}
	return false
}

func validThumbnail(thumbnail string) bool {
	if thumbnail == "" || strings.HasPrefix(thumbnail, "/") {
		return !strings.Contains(thumbnail, "..")
	}
	v := &validate.Validator{}
	return !v.URL("thumbnail", thumbnail).HasErrors()
}

// duplicateOf returns the index of a book with the same (title, author) key, skipping exceptID.
func duplicateOf(books []library.Book, book library.Book, exceptID string) int {
	key := textkey.Pair(book.Title, book.Author)
	for i := range books {
		if books[i].ID != exceptID && textkey.Pair(books[i].Title, books[i].Author) == key {
			return i
		}
	}
	return -1
}

// # Dates

var (
	yearOnly    = regexp.MustCompile(`^\d{4}$`)
	yearMonth   = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayPrefixed = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// fallbackLayouts are tried, in order, on values that are not ISO-like.
var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006/01/02",
	"02/01/2006",
}

/*
NormalizePublishedDate reduces catalog dates to YYYY-MM-DD.

"2023" becomes "2023-01-01", "2023-03" becomes "2023-03-01" and anything that
starts with a full day keeps only that day. Other formats are parsed with a few
common layouts. Unparseable values yield "".
*/
func NormalizePublishedDate(value string) string {
	value = strings.TrimSpace(value)

	switch {
	case value == "":
		return ""
	case yearOnly.MatchString(value):
		return value + "-01-01"
	case yearMonth.MatchString(value):
		return value + "-01"
	case dayPrefixed.MatchString(value):
		return value[:10]
	}

	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC().Format(library.DateLayout)
		}
	}

	return ""
}
