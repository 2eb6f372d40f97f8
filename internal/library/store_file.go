// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
)

// FileRepository implements [Repository] on top of a single JSON file.
//
// # Concurrency
//
// Every call holds the same mutex, which makes the repository the single writer
// of the file for this process.
type FileRepository struct {
	path     string
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewFileRepository creates a new file-backed Repository.
func NewFileRepository(path string, defaults Defaults, logger *slog.Logger) *FileRepository {
	return &FileRepository{
		path:     path,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// Path returns the location of the data file.
func (repository *FileRepository) Path() string {
	return repository.path
}

/*
Load returns the current document, healing or initializing the file when needed.

Parameters:
  - context: context.Context

Returns:
  - *Document: Fully migrated document
  - error: Read or persistence failures
*/
func (repository *FileRepository) Load(context context.Context) (*Document, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if err := context.Err(); err != nil {
		return nil, err
	}
	return repository.load(context)
}

/*
Save replaces the stored document.

Parameters:
  - context: context.Context
  - document: *Document

Returns:
  - error: Persistence failures
*/
func (repository *FileRepository) Save(context context.Context, document *Document) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if err := context.Err(); err != nil {
		return err
	}
	return repository.write(document)
}

/*
Update runs a read-modify-write cycle under the repository lock.

Parameters:
  - context: context.Context
  - mutate: func(*Document) error

Returns:
  - error: The mutate error, or read/persistence failures
*/
func (repository *FileRepository) Update(context context.Context, mutate func(document *Document) error) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if err := context.Err(); err != nil {
		return err
	}

	document, err := repository.load(context)
	if err != nil {
		return err
	}

	if err := mutate(document); err != nil {
		return err
	}

	return repository.write(document)
}

// # Internals

// load must be called with the lock held.
func (repository *FileRepository) load(context context.Context) (*Document, error) {
	content, err := os.ReadFile(repository.path)
	if errors.Is(err, fs.ErrNotExist) {
		repository.logger.InfoContext(context, "library_file_initialized", slog.String("path", repository.path))
		return repository.initialize()
	}
	if err != nil {
		return nil, fmt.Errorf("library_file_read_failed: %w", err)
	}

	raw, err := decodeRaw(content)
	if err != nil {
		return repository.recoverCorrupt(context, err)
	}

	fromVersion := schemaVersion(raw)
	applied, err := migrate(raw, repository.defaults, repository.logger)
	if err != nil {
		return nil, err
	}

	document, err := toDocument(raw)
	if err != nil {
		return repository.recoverCorrupt(context, err)
	}

	if len(applied) > 0 {
		if err := repository.write(document); err != nil {
			return nil, err
		}
		repository.logger.InfoContext(context, "library_migration_successful",
			slog.Int("from_version", fromVersion),
			slog.Int("to_version", document.SchemaVersion),
			slog.Any("applied", applied),
		)
	}

	return document, nil
}

// initialize writes and returns the default document.
func (repository *FileRepository) initialize() (*Document, error) {
	raw := rawDocument{}
	if _, err := migrate(raw, repository.defaults, repository.logger); err != nil {
		return nil, err
	}

	document, err := toDocument(raw)
	if err != nil {
		return nil, err
	}

	if err := repository.write(document); err != nil {
		return nil, err
	}
	return document, nil
}

// recoverCorrupt keeps a copy of the unreadable file, then starts over from the default document.
func (repository *FileRepository) recoverCorrupt(context context.Context, cause error) (*Document, error) {
	backup := fmt.Sprintf("%s.corrupt-%d", repository.path, repository.now().Unix())
	if err := os.Rename(repository.path, backup); err != nil {
		backup = ""
	}

	repository.logger.WarnContext(context, "library_file_corrupt",
		slog.String("path", repository.path),
		slog.String("backup", backup),
		slog.Any("error", cause),
	)

	return repository.initialize()
}

// write serializes the document and atomically replaces the file.
func (repository *FileRepository) write(document *Document) error {
	for _, user := range document.Users {
		if user != nil {
			user.ensureCollections()
		}
	}

	content, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("library_file_encode_failed: %w", err)
	}

	directory := filepath.Dir(repository.path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("library_file_mkdir_failed: %w", err)
	}

	temp, err := os.CreateTemp(directory, "."+filepath.Base(repository.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("library_file_write_failed: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(content); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("library_file_write_failed: %w", err)
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("library_file_sync_failed: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("library_file_write_failed: %w", err)
	}

	if err := os.Rename(tempPath, repository.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("library_file_rename_failed: %w", err)
	}

	return nil
}

// toDocument converts the migrated raw form into typed entities.
func toDocument(raw rawDocument) (*Document, error) {
	content, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var document Document
	if err := json.Unmarshal(content, &document); err != nil {
		return nil, err
	}

	if document.User(constants.LibraryUser) == nil {
		return nil, fmt.Errorf("library: document has no %q user", constants.LibraryUser)
	}
	for _, user := range document.Users {
		if user != nil {
			user.ensureCollections()
		}
	}

	return &document, nil
}
