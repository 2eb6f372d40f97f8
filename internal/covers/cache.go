// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package covers mirrors remote cover images into a local content-addressed cache.

A cover is stored as <md5(url)><ext> in a flat directory and referenced by books
through its public path (/book-covers/<file>).

# Staleness

Files are keyed by the source URL, not by their bytes. Two URLs serving the same
image are stored twice, and a URL whose image changes keeps serving the first
download until the file is removed.
*/
package covers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
)

// maxImageBytes bounds a single download.
const maxImageBytes = 20 << 20

// tempPattern names in-flight downloads. Orphan cleanup never touches them.
const tempPattern = ".cover-*.tmp"

var (
	// ErrInvalidURL is returned for anything that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("covers: invalid image url")
	// ErrNotImage is returned when the upstream content type is not image/*.
	ErrNotImage = errors.New("covers: response is not an image")
	// ErrEmptyImage is returned when the upstream body or the written file is empty.
	ErrEmptyImage = errors.New("covers: empty image")
	// ErrTooLarge is returned when the upstream body exceeds maxImageBytes.
	ErrTooLarge = errors.New("covers: image too large")
)

// knownExtensions maps accepted URL path extensions to the stored one.
var knownExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".webp": ".webp",
	".gif":  ".gif",
}

// browserHeaders are sent with every download. Some catalogs refuse bare clients.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Accept":          "image/webp,image/apng,image/*,*/*;q=0.8",
	"Accept-Language": "fr-FR,fr;q=0.9,en;q=0.8",
	"Referer":         "https://www.bedetheque.com/",
	"Cache-Control":   "no-cache",
}

// Cache stores downloaded covers on disk.
//
// # Concurrency
//
// Concurrent stores of the same URL share one download.
type Cache struct {
	dir     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group
}

// NewCache creates a cache rooted at dir. Each download is bounded by timeout.
func NewCache(dir string, client *http.Client, timeout time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		dir:     dir,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Dir returns the cache directory.
func (cache *Cache) Dir() string {
	return cache.dir
}

// # Naming

// Key derives the cache key of a source URL.
func Key(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Extension picks the stored extension: content type first, then the URL path, then .jpg.
func Extension(contentType, rawURL string) string {
	lowered := strings.ToLower(contentType)
	switch {
	case strings.Contains(lowered, "jpeg"), strings.Contains(lowered, "jpg"):
		return ".jpg"
	case strings.Contains(lowered, "png"):
		return ".png"
	case strings.Contains(lowered, "webp"):
		return ".webp"
	case strings.Contains(lowered, "gif"):
		return ".gif"
	}

	if parsed, err := url.Parse(rawURL); err == nil {
		if ext, ok := knownExtensions[strings.ToLower(path.Ext(parsed.Path))]; ok {
			return ext
		}
	}

	return ".jpg"
}

// IsLocal reports whether thumbnail points into the cache.
func IsLocal(thumbnail string) bool {
	return strings.HasPrefix(thumbnail, constants.CoversPublicPrefix)
}

// IsExternal reports whether thumbnail is a remote http(s) URL.
func IsExternal(thumbnail string) bool {
	return strings.HasPrefix(thumbnail, "http://") || strings.HasPrefix(thumbnail, "https://")
}

// PublicPath returns the public path of a cached file name.
func PublicPath(name string) string {
	return constants.CoversPublicPrefix + name
}

// FilePath maps a public path to the file on disk. Only plain file names are accepted.
func (cache *Cache) FilePath(publicPath string) (string, bool) {
	if !IsLocal(publicPath) {
		return "", false
	}
	name := strings.TrimPrefix(publicPath, constants.CoversPublicPrefix)
	if !validName(name) {
		return "", false
	}
	return filepath.Join(cache.dir, name), true
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// lookup returns the name of an existing file for key, whatever its extension.
func (cache *Cache) lookup(key string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(cache.dir, key+".*"))
	if err != nil {
		return "", false
	}
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return filepath.Base(match), true
		}
	}
	return "", false
}

// # Acquisition

/*
Store mirrors rawURL into the cache and returns its public path.

Description: A file already cached for the URL is returned without any network
call. Otherwise the image is downloaded within the configured timeout and written
atomically. A distinct previous local path is removed afterwards (best effort).
Callers treat any error as non-fatal and keep the remote URL.

Parameters:
  - context: context.Context
  - rawURL: string (absolute http/https URL)
  - previous: string (previous thumbnail, may be empty or external)

Returns:
  - string: Public path (/book-covers/<md5><ext>)
  - error: ErrInvalidURL, ErrNotImage, ErrEmptyImage, HTTP or filesystem failures
*/
func (cache *Cache) Store(context context.Context, rawURL, previous string) (string, error) {
	if !IsExternal(rawURL) {
		return "", ErrInvalidURL
	}
	if parsed, err := url.Parse(rawURL); err != nil || parsed.Host == "" {
		return "", ErrInvalidURL
	}

	key := Key(rawURL)
	flight := cache.group.DoChan(key, func() (any, error) {
		if name, ok := cache.lookup(key); ok {
			return PublicPath(name), nil
		}
		return cache.download(context, rawURL, key)
	})

	var result any
	var err error
	select {
	case shared := <-flight:
		result, err = shared.Val, shared.Err
	case <-context.Done():
		err = context.Err()
	}
	if err != nil {
		cache.logger.WarnContext(context, "cover_store_failed",
			slog.String("url", rawURL),
			slog.Any("error", err),
		)
		return "", err
	}

	publicPath := result.(string)
	if previous != "" && previous != publicPath && IsLocal(previous) {
		cache.Remove(context, previous)
	}

	return publicPath, nil
}

// download fetches rawURL and writes it under key. It returns the public path.
// The fetch outlives a cancelled caller so that coalesced callers still get the file.
func (cache *Cache) download(ctx context.Context, rawURL, key string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cache.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	for name, value := range browserHeaders {
		request.Header.Set(name, value)
	}

	response, err := cache.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("covers: fetch failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", fmt.Errorf("covers: upstream returned %d", response.StatusCode)
	}

	contentType := response.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}

	if response.ContentLength > maxImageBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, response.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("covers: read failed: %w", err)
	}
	if len(body) > maxImageBytes {
		return "", ErrTooLarge
	}
	if len(body) == 0 {
		return "", ErrEmptyImage
	}

	name := key + Extension(mediaType, rawURL)
	if err := cache.write(name, body); err != nil {
		return "", err
	}

	cache.logger.InfoContext(ctx, "cover_downloaded",
		slog.String("url", rawURL),
		slog.String("file", name),
		slog.Int("bytes", len(body)),
	)

	return PublicPath(name), nil
}

// write stores body as name through a temporary file and checks the result.
func (cache *Cache) write(name string, body []byte) error {
	if err := os.MkdirAll(cache.dir, 0o755); err != nil {
		return fmt.Errorf("covers: mkdir failed: %w", err)
	}

	temp, err := os.CreateTemp(cache.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("covers: write failed: %w", err)
	}
	tempPath := temp.Name()

	_, writeErr := temp.Write(body)
	closeErr := temp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("covers: write failed: %w", err)
	}

	target := filepath.Join(cache.dir, name)
	if err := os.Rename(tempPath, target); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("covers: rename failed: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("covers: stat failed: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(target)
		return ErrEmptyImage
	}

	return nil
}

// # Garbage Collection

// Remove deletes a cached file by public path. Failures are logged and swallowed.
func (cache *Cache) Remove(context context.Context, publicPath string) {
	filePath, ok := cache.FilePath(publicPath)
	if !ok {
		return
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		cache.logger.WarnContext(context, "cover_remove_failed",
			slog.String("path", publicPath),
			slog.Any("error", err),
		)
	}
}

// CleanupReport summarizes an orphan sweep.
type CleanupReport struct {
	Deleted int      `json:"deleted"`
	Kept    int      `json:"kept"`
	Errors  []string `json:"errors"`
}

/*
RemoveOrphans deletes every cached file whose public path is not referenced.

Description: The sentinel file and in-flight downloads are always kept. A failure
on one file is recorded and the sweep continues.

Parameters:
  - context: context.Context
  - referenced: []string (public paths still in use)

Returns:
  - CleanupReport: Deleted/kept counts and per-file errors
  - error: Directory listing failures (a missing directory is an empty sweep)
*/
func (cache *Cache) RemoveOrphans(context context.Context, referenced []string) (CleanupReport, error) {
	report := CleanupReport{Errors: []string{}}

	inUse := make(map[string]struct{}, len(referenced))
	for _, publicPath := range referenced {
		inUse[publicPath] = struct{}{}
	}

	entries, err := os.ReadDir(cache.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("covers: list failed: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == constants.CoversSentinelFile || isTemp(name) {
			continue
		}

		if _, ok := inUse[PublicPath(name)]; ok {
			report.Kept++
			continue
		}

		if err := os.Remove(filepath.Join(cache.dir, name)); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		report.Deleted++
	}

	cache.logger.InfoContext(context, "cover_orphans_removed",
		slog.Int("deleted", report.Deleted),
		slog.Int("kept", report.Kept),
		slog.Int("errors", len(report.Errors)),
	)

	return report, nil
}

func isTemp(name string) bool {
	matched, _ := filepath.Match(tempPattern, name)
	return matched
}
