// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// openLibraryLimit caps the merged result list.
const openLibraryLimit = 20

// OpenLibrary searches openlibrary.org by free text, title and author.
type OpenLibrary struct {
	baseURL   string
	coversURL string
	fetcher   fetcher
}

// NewOpenLibrary creates the adapter. An empty baseURL targets the public API.
func NewOpenLibrary(baseURL string, client *http.Client) *OpenLibrary {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &OpenLibrary{
		baseURL:   strings.TrimRight(baseURL, "/"),
		coversURL: "https://covers.openlibrary.org",
		fetcher:   newFetcher(client),
	}
}

// Name implements [Source].
func (source *OpenLibrary) Name() string { return SourceOpenLibrary }

type openLibraryDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	AuthorName          []string `json:"author_name"`
	FirstSentence       []string `json:"first_sentence"`
	CoverID             int      `json:"cover_i"`
	FirstPublishYear    int      `json:"first_publish_year"`
	PublishYear         []int    `json:"publish_year"`
	Subject             []string `json:"subject"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
	Publisher           []string `json:"publisher"`
	ISBN                []string `json:"isbn"`
}

type openLibraryResponse struct {
	Docs []openLibraryDoc `json:"docs"`
}

/*
Search merges three queries (q, title, author) and deduplicates by work key.

Description: A failing sub-query is skipped. The search fails only when all of
them fail.
*/
func (source *OpenLibrary) Search(ctx context.Context, query string) ([]Candidate, error) {
	lookups := []struct {
		field string
		limit int
	}{
		{"q", 15},
		{"title", 10},
		{"author", 10},
	}

	var (
		docs     []openLibraryDoc
		failures int
		lastErr  error
	)
	for _, lookup := range lookups {
		params := url.Values{}
		params.Set(lookup.field, query)
		params.Set("limit", strconv.Itoa(lookup.limit))

		var payload openLibraryResponse
		if err := source.fetcher.getJSON(ctx, source.baseURL+"/search.json?"+params.Encode(), nil, &payload); err != nil {
			failures++
			lastErr = err
			continue
		}
		docs = append(docs, payload.Docs...)
	}
	if failures == len(lookups) {
		return nil, lastErr
	}

	seen := make(map[string]struct{}, len(docs))
	candidates := make([]Candidate, 0, openLibraryLimit)
	for _, doc := range docs {
		key := doc.Key
		if key == "" {
			key = doc.Title + "_" + strings.Join(doc.AuthorName, ",")
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		candidates = append(candidates, source.toCandidate(doc))
		if len(candidates) == openLibraryLimit {
			break
		}
	}

	return candidates, nil
}

func (source *OpenLibrary) toCandidate(doc openLibraryDoc) Candidate {
	candidate := Candidate{
		ID:         "ol_" + strings.TrimPrefix(doc.Key, "/works/"),
		Source:     SourceOpenLibrary,
		Title:      titleOrUnknown(doc.Title),
		Authors:    authorsOrUnknown(doc.AuthorName),
		PageCount:  doc.NumberOfPagesMedian,
		Categories: firstN(doc.Subject, 3),
		ISBN:       firstN(doc.ISBN, 2),
	}

	switch {
	case len(doc.FirstSentence) > 0:
		candidate.Description = doc.FirstSentence[0]
	case doc.Subtitle != "":
		candidate.Description = doc.Subtitle
	}

	if doc.CoverID > 0 {
		candidate.ThumbnailURL = fmt.Sprintf("%s/b/id/%d-M.jpg", source.coversURL, doc.CoverID)
	}

	switch {
	case doc.FirstPublishYear > 0:
		candidate.PublishedDate = strconv.Itoa(doc.FirstPublishYear)
	case len(doc.PublishYear) > 0:
		candidate.PublishedDate = strconv.Itoa(doc.PublishYear[0])
	}

	if len(doc.Publisher) > 0 {
		candidate.Publisher = doc.Publisher[0]
	}

	return candidate
}

func firstN(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
