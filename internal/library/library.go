// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package library defines the persisted library document and its storage contract.

The whole library of a user (credential, books, wishlist, reading folders, login
history, API keys) lives in a single JSON document. Every operation loads the
document, mutates it in memory and writes it back in full.

# Architecture

This layer is the "Truth" of the system. Entities defined here carry the exact
JSON shape of the data file so existing files keep loading unchanged.
*/
package library

import (
	"time"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
)

// # Formats

const (
	// TimestampLayout is the ISO-8601 layout used for addedDate and createdDate.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	// DateLayout is the day-precision layout used for publishedDate and readDate.
	DateLayout = time.DateOnly

	// CurrentSchemaVersion is the version written by this build.
	CurrentSchemaVersion = 2
)

// Timestamp formats t the way addedDate and createdDate are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Millis converts t to the millisecond epoch used by login bookkeeping fields.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts a millisecond epoch back to a [time.Time].
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// # Domain Entities

// Condition is the physical state of an owned copy.
type Condition string

const (
	ConditionMint Condition = "mint"
	ConditionGood Condition = "good"
	ConditionFair Condition = "fair"
	ConditionPoor Condition = "poor"
)

// Conditions lists the accepted [Condition] values in display order.
var Conditions = []Condition{ConditionMint, ConditionGood, ConditionFair, ConditionPoor}

// Book is one owned or wished-for title.
type Book struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Genre         string    `json:"genre,omitempty"`
	Series        string    `json:"series,omitempty"`
	Universe      string    `json:"universe,omitempty"`
	Volume        *int      `json:"volume,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	PageCount     *int      `json:"pageCount,omitempty"`
	PublishedDate string    `json:"publishedDate,omitempty"`
	Condition     Condition `json:"condition"`
	IsRead        bool      `json:"isRead"`
	Rating        *int      `json:"rating,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ReadDate      string    `json:"readDate,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	AddedDate     string    `json:"addedDate"`
	Description   string    `json:"description,omitempty"`
	Content       string    `json:"content,omitempty"`
}

// FolderEntry places a book at a position inside a reading folder.
type FolderEntry struct {
	BookID    string `json:"bookId"`
	Order     int    `json:"order"`
	Notes     string `json:"notes,omitempty"`
	AddedDate string `json:"addedDate"`
}

// ReadingFolder is a named, ordered subset of the collection.
type ReadingFolder struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Books       []FolderEntry `json:"books"`
	CreatedDate string        `json:"createdDate"`
}

// LoginAttempt records one failed authentication.
type LoginAttempt struct {
	Timestamp int64  `json:"timestamp"`
	IP        string `json:"ip,omitempty"`
}

// APIKeys holds secrets for external catalogs.
type APIKeys struct {
	ComicVine string `json:"comicVine"`
}

// User is the credential record together with everything the user owns.
type User struct {
	PasswordHash        string          `json:"passwordHash"`
	Books               []Book          `json:"books"`
	Wishlist            []Book          `json:"wishlist"`
	ReadingFolders      []ReadingFolder `json:"readingFolders"`
	LoginAttempts       []LoginAttempt  `json:"loginAttempts"`
	LastSuccessfulLogin int64           `json:"lastSuccessfulLogin,omitempty"`
	IsLocked            bool            `json:"isLocked"`
	LockUntil           int64           `json:"lockUntil,omitempty"`
	APIKeys             APIKeys         `json:"apiKeys"`
}

// Document is the root of the data file.
type Document struct {
	SchemaVersion int              `json:"schemaVersion"`
	Users         map[string]*User `json:"users"`
}

// # Lookups

// User returns the named user, or nil.
func (document *Document) User(name string) *User {
	if document == nil || document.Users == nil {
		return nil
	}
	return document.Users[name]
}

// Admin returns the library user. It is always present on a loaded document.
func (document *Document) Admin() *User {
	return document.User(constants.LibraryUser)
}

// BookIndex returns the position of the book with id in the collection, or -1.
func (user *User) BookIndex(id string) int {
	return indexOf(user.Books, id)
}

// WishlistIndex returns the position of the wishlist item with id, or -1.
func (user *User) WishlistIndex(id string) int {
	return indexOf(user.Wishlist, id)
}

// Folder returns the reading folder with id, or nil.
func (user *User) Folder(id string) *ReadingFolder {
	for i := range user.ReadingFolders {
		if user.ReadingFolders[i].ID == id {
			return &user.ReadingFolders[i]
		}
	}
	return nil
}

// ensureCollections replaces nil slices so the file always carries empty arrays.
func (user *User) ensureCollections() {
	if user.Books == nil {
		user.Books = []Book{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []Book{}
	}
	if user.ReadingFolders == nil {
		user.ReadingFolders = []ReadingFolder{}
	}
	if user.LoginAttempts == nil {
		user.LoginAttempts = []LoginAttempt{}
	}
	for i := range user.ReadingFolders {
		if user.ReadingFolders[i].Books == nil {
			user.ReadingFolders[i].Books = []FolderEntry{}
		}
	}
}

func indexOf(books []Book, id string) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}
