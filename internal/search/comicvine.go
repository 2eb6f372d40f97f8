// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// KeyFunc returns the current Comic Vine key. It is read on every search so
// key changes apply without a restart.
type KeyFunc func(ctx context.Context) (string, error)

// ComicVine searches Comic Vine volumes.
type ComicVine struct {
	baseURL string
	key     KeyFunc
	fetcher fetcher
}

// NewComicVine creates the adapter. An empty baseURL targets the public API.
func NewComicVine(baseURL string, key KeyFunc, client *http.Client) *ComicVine {
	if baseURL == "" {
		baseURL = "https://comicvine.gamespot.com/api"
	}
	return &ComicVine{baseURL: strings.TrimRight(baseURL, "/"), key: key, fetcher: newFetcher(client)}
}

// Name implements [Source].
func (source *ComicVine) Name() string { return SourceComicVine }

// looseString accepts a JSON string, number or null.
type looseString string

func (value *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*value = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*value = looseString(s)
		return nil
	}
	*value = looseString(data)
	return nil
}

type comicVineResponse struct {
	Error   string `json:"error"`
	Results []struct {
		ID          int         `json:"id"`
		Name        string      `json:"name"`
		Description string      `json:"description"`
		StartYear   looseString `json:"start_year"`
		IssueCount  int         `json:"count_of_issues"`
		Publisher   *struct {
			Name string `json:"name"`
		} `json:"publisher"`
		Image *struct {
			MediumURL string `json:"medium_url"`
			SmallURL  string `json:"small_url"`
		} `json:"image"`
	} `json:"results"`
}

/*
Search queries the volume resource.

Description: The publisher stands in for the author, as Comic Vine volumes carry
no creator list.

Returns:
  - []Candidate
  - error: ErrMissingAPIKey, ErrInvalidAPIKey or transport failures
*/
func (source *ComicVine) Search(ctx context.Context, query string) ([]Candidate, error) {
	key, err := source.key(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("api_key", key)
	params.Set("format", "json")
	params.Set("query", query)
	params.Set("resources", "volume")
	params.Set("limit", "20")

	var payload comicVineResponse
	if err := source.fetcher.getJSON(ctx, source.baseURL+"/search/?"+params.Encode(), nil, &payload); err != nil {
		if errors.Is(err, errStatus) && strings.Contains(err.Error(), strconv.Itoa(http.StatusUnauthorized)) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	switch payload.Error {
	case "OK":
	case "Invalid API Key":
		return nil, ErrInvalidAPIKey
	default:
		return nil, fmt.Errorf("search: comic vine: %s", payload.Error)
	}

	candidates := make([]Candidate, 0, len(payload.Results))
	for _, volume := range payload.Results {
		candidate := Candidate{
			ID:            fmt.Sprintf("cv_%d", volume.ID),
			Source:        SourceComicVine,
			Title:         titleOrUnknown(volume.Name),
			Authors:       []string{"Éditeur inconnu"},
			Description:   truncate(stripHTML(volume.Description), 500),
			PublishedDate: string(volume.StartYear),
			PageCount:     volume.IssueCount,
			Categories:    []string{"Comics", "Graphic Novel"},
		}
		if volume.Publisher != nil && volume.Publisher.Name != "" {
			candidate.Authors = []string{volume.Publisher.Name}
			candidate.Publisher = volume.Publisher.Name
		}
		if volume.Image != nil {
			candidate.ThumbnailURL = volume.Image.MediumURL
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}
