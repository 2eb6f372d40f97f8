// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// GoogleBooks searches the Google Books volumes API.
type GoogleBooks struct {
	baseURL string
	fetcher fetcher
}

// NewGoogleBooks creates the adapter. An empty baseURL targets the public API.
func NewGoogleBooks(baseURL string, client *http.Client) *GoogleBooks {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
	}
	return &GoogleBooks{baseURL: strings.TrimRight(baseURL, "/"), fetcher: newFetcher(client)}
}

// Name implements [Source].
func (source *GoogleBooks) Name() string { return SourceGoogle }

type googleVolumes struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title         string   `json:"title"`
			Subtitle      string   `json:"subtitle"`
			Authors       []string `json:"authors"`
			Description   string   `json:"description"`
			PublishedDate string   `json:"publishedDate"`
			PageCount     int      `json:"pageCount"`
			Publisher     string   `json:"publisher"`
			Categories    []string `json:"categories"`
			ImageLinks    struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

/*
Search queries the volumes endpoint.

Description: An ISBN-looking query is first tried as an isbn: filter, then as
plain text. Duplicate (title, first author) records keep the most complete one.
*/
func (source *GoogleBooks) Search(ctx context.Context, query string) ([]Candidate, error) {
	queries := []string{query}
	if isISBN(query) {
		queries = []string{"isbn:" + cleanISBN(query), cleanISBN(query)}
	}

	var candidates []Candidate
	for _, q := range queries {
		params := url.Values{}
		params.Set("q", q)
		params.Set("maxResults", "20")

		var payload googleVolumes
		if err := source.fetcher.getJSON(ctx, source.baseURL+"/volumes?"+params.Encode(), nil, &payload); err != nil {
			return nil, err
		}

		candidates = make([]Candidate, 0, len(payload.Items))
		for _, item := range payload.Items {
			info := item.VolumeInfo

			thumbnail := info.ImageLinks.Thumbnail
			if thumbnail == "" {
				thumbnail = info.ImageLinks.SmallThumbnail
			}

			var isbns []string
			for _, identifier := range info.IndustryIdentifiers {
				if strings.HasPrefix(identifier.Type, "ISBN") {
					isbns = append(isbns, identifier.Identifier)
				}
			}

			candidates = append(candidates, Candidate{
				ID:            "google_" + item.ID,
				Source:        SourceGoogle,
				Title:         titleOrUnknown(info.Title),
				Authors:       authorsOrUnknown(info.Authors),
				Description:   stripHTML(info.Description),
				ThumbnailURL:  secureURL(thumbnail),
				PublishedDate: info.PublishedDate,
				PageCount:     info.PageCount,
				Publisher:     info.Publisher,
				Categories:    info.Categories,
				ISBN:          isbns,
			})
		}

		if len(candidates) > 0 {
			break
		}
	}

	return deduplicate(candidates), nil
}

// secureURL upgrades http links, which Google Books still returns for thumbnails.
func secureURL(raw string) string {
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

// completeness scores how much of a candidate is filled in.
func completeness(candidate Candidate) int {
	score := 0
	if candidate.ThumbnailURL != "" {
		score += 2
	}
	if candidate.Description != "" {
		score += 2
	}
	for _, filled := range []bool{
		candidate.PublishedDate != "",
		candidate.PageCount > 0,
		candidate.Publisher != "",
		len(candidate.Categories) > 0,
	} {
		if filled {
			score++
		}
	}
	return score
}

// deduplicate keeps one candidate per (title, first author), preferring the most complete.
func deduplicate(candidates []Candidate) []Candidate {
	index := make(map[string]int, len(candidates))
	result := make([]Candidate, 0, len(candidates))

	for _, candidate := range candidates {
		key := strings.ToLower(candidate.Title) + "\x00" + strings.ToLower(candidate.Authors[0])
		if position, seen := index[key]; seen {
			if completeness(candidate) > completeness(result[position]) {
				result[position] = candidate
			}
			continue
		}
		index[key] = len(result)
		result = append(result, candidate)
	}

	return result
}
