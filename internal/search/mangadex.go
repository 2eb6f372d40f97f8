// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// MangaDex searches the MangaDex manga API.
type MangaDex struct {
	baseURL    string
	uploadsURL string
	fetcher    fetcher
}

// NewMangaDex creates the adapter. An empty baseURL targets the public API.
func NewMangaDex(baseURL string, client *http.Client) *MangaDex {
	if baseURL == "" {
		baseURL = "https://api.mangadex.org"
	}
	return &MangaDex{
		baseURL:    strings.TrimRight(baseURL, "/"),
		uploadsURL: "https://uploads.mangadex.org",
		fetcher:    newFetcher(client),
	}
}

// Name implements [Source].
func (source *MangaDex) Name() string { return SourceMangaDex }

type mangaDexResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Title       map[string]string `json:"title"`
			Description map[string]string `json:"description"`
			Year        int               `json:"year"`
			LastChapter string            `json:"lastChapter"`
			Demographic string            `json:"publicationDemographic"`
			Tags        []struct {
				Attributes struct {
					Group string            `json:"group"`
					Name  map[string]string `json:"name"`
				} `json:"attributes"`
			} `json:"tags"`
		} `json:"attributes"`
		Relationships []struct {
			Type       string `json:"type"`
			Attributes struct {
				Name     string `json:"name"`
				FileName string `json:"fileName"`
			} `json:"attributes"`
		} `json:"relationships"`
	} `json:"data"`
}

// Search queries manga by title, restricted to French or English translations.
func (source *MangaDex) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("title", query)
	params.Set("limit", "20")
	params.Add("availableTranslatedLanguage[]", "fr")
	params.Add("availableTranslatedLanguage[]", "en")
	params.Add("includes[]", "cover_art")
	params.Add("includes[]", "author")
	params.Add("includes[]", "artist")

	var payload mangaDexResponse
	if err := source.fetcher.getJSON(ctx, source.baseURL+"/manga?"+params.Encode(), nil, &payload); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(payload.Data))
	for _, manga := range payload.Data {
		attributes := manga.Attributes

		var authors []string
		var coverFile string
		for _, relation := range manga.Relationships {
			switch relation.Type {
			case "author", "artist":
				if relation.Attributes.Name != "" && !slices.Contains(authors, relation.Attributes.Name) {
					authors = append(authors, relation.Attributes.Name)
				}
			case "cover_art":
				coverFile = relation.Attributes.FileName
			}
		}

		var categories []string
		for _, tag := range attributes.Tags {
			if tag.Attributes.Group == "genre" && len(categories) < 3 {
				if name := localized(tag.Attributes.Name, "fr", "en"); name != "" {
					categories = append(categories, name)
				}
			}
		}
		if len(categories) == 0 {
			categories = []string{"Manga"}
		}

		candidate := Candidate{
			ID:          "md_" + manga.ID,
			Source:      SourceMangaDex,
			Title:       titleOrUnknown(localized(attributes.Title, "fr", "en", "ja-ro")),
			Authors:     authorsOrUnknown(authors),
			Description: localized(attributes.Description, "fr", "en"),
			Categories:  categories,
			Publisher:   cmpOr(attributes.Demographic, "Manga"),
		}
		if attributes.Year > 0 {
			candidate.PublishedDate = strconv.Itoa(attributes.Year)
		}
		if chapters, err := strconv.ParseFloat(attributes.LastChapter, 64); err == nil && chapters > 0 {
			candidate.PageCount = int(chapters)
		}
		if coverFile != "" {
			candidate.ThumbnailURL = fmt.Sprintf("%s/covers/%s/%s.256.jpg", source.uploadsURL, manga.ID, coverFile)
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// localized picks the first available language, then any value in key order.
func localized(values map[string]string, languages ...string) string {
	for _, language := range languages {
		if value := strings.TrimSpace(values[language]); value != "" {
			return value
		}
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if value := strings.TrimSpace(values[key]); value != "" {
			return value
		}
	}
	return ""
}

func cmpOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
