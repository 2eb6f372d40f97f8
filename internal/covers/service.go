// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package covers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/pkg/slice"
)

// # Definitions & Constructors

// migrationConcurrency bounds parallel downloads during a bulk migration.
const migrationConcurrency = 4

// maxErrorDetails caps the per-book failures returned by a migration.
const maxErrorDetails = 5

// DefaultProxyHosts are the catalog image hosts the proxy forwards to.
var DefaultProxyHosts = []string{
	"books.google.com",
	"books.googleusercontent.com",
	"covers.openlibrary.org",
	"images.amazon.com",
	"uploads.mangadex.org",
}

// Service coordinates the cover cache with the library document.
type Service struct {
	cache       *Cache
	repository  library.Repository
	proxyHosts  []string
	logger      *slog.Logger
	concurrency int
}

// NewService creates a new instance of the cover service.
func NewService(cache *Cache, repository library.Repository, proxyHosts []string, logger *slog.Logger) *Service {
	return &Service{
		cache:       cache,
		repository:  repository,
		proxyHosts:  proxyHosts,
		logger:      logger,
		concurrency: migrationConcurrency,
	}
}

// Cache exposes the underlying cache to the collection mutators.
func (service *Service) Cache() *Cache {
	return service.cache
}

// # Single Download

/*
Download mirrors one image on demand.

Parameters:
  - context: context.Context
  - imageURL: string (remote URL; a local path is returned unchanged)
  - previous: string (local path to discard once replaced)

Returns:
  - string: Local public path
  - error: VALIDATION_ERROR or BAD_GATEWAY
*/
func (service *Service) Download(context context.Context, imageURL, previous string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", apperr.ValidationError("URL d'image requise")
	}
	if IsLocal(imageURL) {
		return imageURL, nil
	}
	if !IsExternal(imageURL) {
		return "", apperr.ValidationError("URL d'image invalide")
	}

	localPath, err := service.cache.Store(context, imageURL, previous)
	if err != nil {
		return "", apperr.BadGateway("Impossible de télécharger l'image", err)
	}

	return localPath, nil
}

// # Bulk Maintenance

// MigrationReport summarizes a bulk download of external thumbnails.
type MigrationReport struct {
	Total        int      `json:"total"`
	Migrated     int      `json:"migrated"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"errorDetails"`
	Message      string   `json:"message"`
}

/*
MigrateExternal downloads every external thumbnail of the collection.

Description: Downloads run in parallel with a bounded worker count. The document
is then updated in one pass; a book edited meanwhile keeps its new thumbnail.
A failed download leaves the remote URL in place.

Parameters:
  - context: context.Context

Returns:
  - MigrationReport: Counts plus the first few failures
  - error: Store failures only
*/
func (service *Service) MigrateExternal(context context.Context) (MigrationReport, error) {
	report := MigrationReport{ErrorDetails: []string{}}

	document, err := service.repository.Load(context)
	if err != nil {
		return report, fmt.Errorf("covers_service_migrate_failed: %w", err)
	}

	type pending struct {
		id        string
		title     string
		thumbnail string
	}

	var targets []pending
	for _, book := range document.Admin().Books {
		if IsExternal(book.Thumbnail) {
			targets = append(targets, pending{id: book.ID, title: book.Title, thumbnail: book.Thumbnail})
		}
	}
	report.Total = len(targets)

	var (
		mu       sync.Mutex
		migrated = make(map[string]string, len(targets))
		failures []string
	)

	group, groupCtx := errgroup.WithContext(context)
	group.SetLimit(service.concurrency)
	for _, target := range targets {
		group.Go(func() error {
			localPath, err := service.cache.Store(groupCtx, target.thumbnail, "")

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", target.title, err))
				return nil
			}
			migrated[target.id] = localPath
			return nil
		})
	}
	_ = group.Wait()

	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		for id, localPath := range migrated {
			index := user.BookIndex(id)
			if index < 0 || !IsExternal(user.Books[index].Thumbnail) {
				continue
			}
			user.Books[index].Thumbnail = localPath
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("covers_service_migrate_failed: %w", err)
	}

	report.Migrated = len(migrated)
	report.Errors = len(failures)
	if len(failures) > maxErrorDetails {
		failures = failures[:maxErrorDetails]
	}
	report.ErrorDetails = append(report.ErrorDetails, failures...)
	report.Message = fmt.Sprintf("Migration terminée: %d images migrées (%d erreurs)", report.Migrated, report.Errors)

	service.logger.InfoContext(context, "covers_migration_finished",
		slog.Int("total", report.Total),
		slog.Int("migrated", report.Migrated),
		slog.Int("errors", report.Errors),
	)

	return report, nil
}

/*
Cleanup removes cached files no longer referenced by the collection or the wishlist.

Parameters:
  - context: context.Context

Returns:
  - CleanupReport: Sweep counts
  - error: Store or directory listing failures
*/
func (service *Service) Cleanup(context context.Context) (CleanupReport, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return CleanupReport{}, fmt.Errorf("covers_service_cleanup_failed: %w", err)
	}

	user := document.Admin()
	thumbnail := func(book library.Book) string { return book.Thumbnail }
	referenced := append(
		slice.Filter(slice.Map(user.Books, thumbnail), IsLocal),
		slice.Filter(slice.Map(user.Wishlist, thumbnail), IsLocal)...,
	)

	report, err := service.cache.RemoveOrphans(context, referenced)
	if err != nil {
		return report, fmt.Errorf("covers_service_cleanup_failed: %w", err)
	}

	return report, nil
}

// # Proxy

// ProxiedImage is an upstream image relayed to the browser.
type ProxiedImage struct {
	ContentType string
	Body        []byte
}

/*
Proxy fetches an image from an allow-listed catalog host.

Parameters:
  - context: context.Context
  - rawURL: string

Returns:
  - *ProxiedImage: Bytes and content type
  - error: VALIDATION_ERROR, FORBIDDEN or BAD_GATEWAY
*/
func (service *Service) Proxy(ctx context.Context, rawURL string) (*ProxiedImage, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, apperr.ValidationError("URL d'image invalide")
	}
	if !service.hostAllowed(parsed.Hostname()) {
		return nil, apperr.Forbidden("Domaine non autorisé")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, service.cache.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, apperr.ValidationError("URL d'image invalide")
	}
	for name, value := range browserHeaders {
		request.Header.Set(name, value)
	}

	response, err := service.cache.client.Do(request)
	if err != nil {
		return nil, apperr.BadGateway("Impossible de récupérer l'image", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, apperr.BadGateway("Impossible de récupérer l'image", fmt.Errorf("upstream returned %d", response.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxImageBytes))
	if err != nil {
		return nil, apperr.BadGateway("Impossible de récupérer l'image", err)
	}

	contentType := "image/jpeg"
	if mediaType, _, err := mime.ParseMediaType(response.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mediaType, "image/") {
		contentType = mediaType
	}

	return &ProxiedImage{ContentType: contentType, Body: body}, nil
}

// hostAllowed accepts an allow-listed host or one of its subdomains.
func (service *Service) hostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range service.proxyHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
