// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package search imports book metadata from external catalogs.

Each catalog sits behind a [Source] adapter that returns normalized [Candidate]
records. Adapter failures never cross the [Service] boundary: a failed search
yields an empty list together with a French message naming the catalog.

Sources:

  - google: Google Books volumes API
  - openlibrary: Open Library search API
  - comicvine: Comic Vine volumes (requires an API key)
  - mangadex: MangaDex manga API

Bedetheque and BDGest album pages are handled by the [Scraper].
*/
package search

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// # Source Names

const (
	SourceGoogle      = "google"
	SourceOpenLibrary = "openlibrary"
	SourceComicVine   = "comicvine"
	SourceMangaDex    = "mangadex"
	SourceBedetheque  = "bedetheque"
)

// Unknown placeholders used when a catalog omits a field.
const (
	unknownTitle  = "Titre inconnu"
	unknownAuthor = "Auteur inconnu"
)

var (
	// ErrMissingAPIKey is returned by sources that need a key when none is configured.
	ErrMissingAPIKey = errors.New("search: api key not configured")
	// ErrInvalidAPIKey is returned when the catalog rejects the configured key.
	ErrInvalidAPIKey = errors.New("search: api key rejected")
)

// # Domain Entities

// Candidate is one catalog record, normalized across sources.
type Candidate struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description,omitempty"`
	ThumbnailURL  string   `json:"thumbnailUrl,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	ISBN          []string `json:"isbn,omitempty"`
	Volume        int      `json:"volume,omitempty"`
}

// Source is a catalog adapter.
type Source interface {
	// Name returns the source identifier used in requests and results.
	Name() string
	// Search returns the candidates matching a free-text query.
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// # Helpers

var htmlTags = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup and collapses whitespace.
func stripHTML(s string) string {
	return strings.Join(strings.Fields(htmlTags.ReplaceAllString(s, " ")), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// authorsOrUnknown never returns an empty list.
func authorsOrUnknown(authors []string) []string {
	cleaned := make([]string, 0, len(authors))
	for _, author := range authors {
		if author = strings.TrimSpace(author); author != "" {
			cleaned = append(cleaned, author)
		}
	}
	if len(cleaned) == 0 {
		return []string{unknownAuthor}
	}
	return cleaned
}

func titleOrUnknown(title string) string {
	if title = strings.TrimSpace(title); title == "" {
		return unknownTitle
	}
	return title
}

// isISBN reports whether query looks like an ISBN-10 or ISBN-13.
func isISBN(query string) bool {
	cleaned := cleanISBN(query)
	if len(cleaned) != 10 && len(cleaned) != 13 {
		return false
	}
	for i, r := range cleaned {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == 'X' || r == 'x') && i == len(cleaned)-1 {
			continue
		}
		return false
	}
	return true
}

func cleanISBN(s string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
}
