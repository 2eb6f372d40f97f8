// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/tsundoku/internal/platform/apperr"
)

// Client-facing failure messages, per source.
var failureMessages = map[string]string{
	SourceGoogle:      "Erreur lors de la recherche sur Google Books",
	SourceOpenLibrary: "Erreur lors de la recherche sur Open Library",
	SourceComicVine:   "Erreur lors de la recherche sur Comic Vine",
	SourceMangaDex:    "Erreur lors de la recherche sur MangaDex",
}

const (
	msgMissingComicVineKey = "Veuillez configurer votre clé API Comic Vine dans les paramètres"
	msgInvalidComicVineKey = "Votre clé API Comic Vine n'est pas valide. Vérifiez-la dans les paramètres."
	msgQueryRequired       = "Le terme de recherche est requis"
	msgUnknownSource       = "Source de recherche inconnue"
	msgInvalidScrapeURL    = "URL Bedetheque ou BDGest valide requise."
	msgScrapeFailed        = "Impossible de récupérer la page Bedetheque"
)

// Result is the outcome of one source search. Candidates is never nil.
type Result struct {
	Source     string      `json:"source"`
	Candidates []Candidate `json:"results"`
	Error      string      `json:"error,omitempty"`
}

// Service dispatches queries to the registered sources.
type Service struct {
	sources map[string]Source
	order   []string
	scraper *Scraper
	cache   Cache
	logger  *slog.Logger
}

// NewService registers sources in the given order. cache may be nil.
func NewService(sources []Source, scraper *Scraper, cache Cache, logger *slog.Logger) *Service {
	service := &Service{
		sources: make(map[string]Source, len(sources)),
		scraper: scraper,
		cache:   cache,
		logger:  logger,
	}
	for _, source := range sources {
		service.sources[source.Name()] = source
		service.order = append(service.order, source.Name())
	}
	return service
}

// Sources lists the registered source names.
func (service *Service) Sources() []string {
	return append([]string(nil), service.order...)
}

/*
Search runs query against one source.

Description: Adapter failures are folded into [Result.Error]; the returned error
is reserved for caller mistakes (empty query, unknown source).

Returns:
  - Result
  - error: apperr.ValidationError
*/
func (service *Service) Search(context context.Context, sourceName, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, apperr.ValidationError(msgQueryRequired)
	}

	source, ok := service.sources[sourceName]
	if !ok {
		return Result{}, apperr.ValidationError(msgUnknownSource)
	}

	return service.run(context, source, query), nil
}

// SearchAll queries every source concurrently and returns results in registration order.
func (service *Service) SearchAll(context context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.ValidationError(msgQueryRequired)
	}

	results := make([]Result, len(service.order))
	group, groupCtx := errgroup.WithContext(context)
	for i, name := range service.order {
		source := service.sources[name]
		group.Go(func() error {
			results[i] = service.run(groupCtx, source, query)
			return nil
		})
	}
	_ = group.Wait()

	return results, nil
}

func (service *Service) run(context context.Context, source Source, query string) Result {
	name := source.Name()

	if service.cache != nil {
		if candidates, ok := service.cache.Get(context, name, query); ok {
			return Result{Source: name, Candidates: nonNil(candidates)}
		}
	}

	candidates, err := source.Search(context, query)
	if err != nil {
		service.logger.Warn("search_source_failed",
			slog.String("source", name),
			slog.String("query", query),
			slog.Any("error", err),
		)
		return Result{Source: name, Candidates: []Candidate{}, Error: failureMessage(name, err)}
	}

	candidates = nonNil(candidates)
	if service.cache != nil {
		service.cache.Set(context, name, query, candidates)
	}
	return Result{Source: name, Candidates: candidates}
}

func failureMessage(source string, err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return msgMissingComicVineKey
	case errors.Is(err, ErrInvalidAPIKey):
		return msgInvalidComicVineKey
	}
	if message, ok := failureMessages[source]; ok {
		return message
	}
	return "Erreur lors de la recherche"
}

func nonNil(candidates []Candidate) []Candidate {
	if candidates == nil {
		return []Candidate{}
	}
	return candidates
}

/*
Scrape extracts an album from a Bedetheque or BDGest page.

Returns:
  - *Candidate
  - error: apperr.ValidationError for other domains, apperr.BadGateway on fetch failure
*/
func (service *Service) Scrape(context context.Context, rawURL string) (*Candidate, error) {
	candidate, err := service.scraper.Scrape(context, rawURL)
	switch {
	case errors.Is(err, ErrUnsupportedURL):
		return nil, apperr.ValidationError(msgInvalidScrapeURL)
	case err != nil:
		service.logger.Warn("search_scrape_failed", slog.String("url", rawURL), slog.Any("error", err))
		return nil, apperr.BadGateway(msgScrapeFailed, err)
	}
	return candidate, nil
}
