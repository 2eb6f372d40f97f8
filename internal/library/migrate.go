// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/internal/platform/sec"
)

// Defaults seeds values that older files or a fresh install do not carry.
type Defaults struct {
	// Password is hashed into the default credential.
	Password string
	// ComicVineKey is copied into users that have no apiKeys yet.
	ComicVineKey string
}

// rawDocument is the untyped form migrations operate on.
type rawDocument map[string]any

// migration upgrades a raw document by one schema version.
type migration struct {
	version int
	name    string
	apply   func(document rawDocument, defaults Defaults, logger *slog.Logger) error
}

// migrations are applied in order to documents whose schemaVersion is lower.
var migrations = []migration{
	{version: 1, name: "backfill_collections", apply: backfillCollections},
	{version: 2, name: "hash_passwords", apply: hashPasswords},
}

// decodeRaw parses the file content, keeping numbers exact.
func decodeRaw(content []byte) (rawDocument, error) {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()

	var document rawDocument
	if err := decoder.Decode(&document); err != nil {
		return nil, err
	}
	if document == nil {
		return nil, fmt.Errorf("library: document is null")
	}
	return document, nil
}

// schemaVersion reads the stored version. Files written before versioning report 0.
func schemaVersion(document rawDocument) int {
	number, ok := document["schemaVersion"].(json.Number)
	if !ok {
		return 0
	}
	version, err := number.Int64()
	if err != nil {
		return 0
	}
	return int(version)
}

// migrate applies pending migrations and returns the names of those applied.
func migrate(document rawDocument, defaults Defaults, logger *slog.Logger) ([]string, error) {
	current := schemaVersion(document)

	var applied []string
	for _, step := range migrations {
		if step.version <= current {
			continue
		}
		if err := step.apply(document, defaults, logger); err != nil {
			return applied, fmt.Errorf("library: migration %d (%s) failed: %w", step.version, step.name, err)
		}
		document["schemaVersion"] = step.version
		applied = append(applied, step.name)
	}

	return applied, nil
}

// # Version 1

// backfillCollections creates the library user when absent and fills in the fields
// that early files lacked: login bookkeeping, API keys, reading folders and full
// ISO timestamps on addedDate.
func backfillCollections(document rawDocument, defaults Defaults, _ *slog.Logger) error {
	users, ok := document["users"].(map[string]any)
	if !ok {
		users = map[string]any{}
		document["users"] = users
	}

	if _, ok := users[constants.LibraryUser].(map[string]any); !ok {
		users[constants.LibraryUser] = map[string]any{
			"password": defaults.Password,
		}
	}

	for _, value := range users {
		user, ok := value.(map[string]any)
		if !ok {
			continue
		}

		if _, ok := user["loginAttempts"].([]any); !ok {
			user["loginAttempts"] = []any{}
			user["isLocked"] = false
		}
		if _, ok := user["apiKeys"].(map[string]any); !ok {
			user["apiKeys"] = map[string]any{"comicVine": defaults.ComicVineKey}
		}
		for _, key := range []string{"books", "wishlist", "readingFolders"} {
			if _, ok := user[key].([]any); !ok {
				user[key] = []any{}
			}
		}

		books, _ := user["books"].([]any)
		for _, item := range books {
			if book, ok := item.(map[string]any); ok {
				book["addedDate"] = normalizeAddedDate(book)
			}
		}
	}

	return nil
}

// normalizeAddedDate turns a date-only addedDate into a midnight UTC timestamp.
// A missing value falls back to the publication day, then to the Unix epoch.
func normalizeAddedDate(book map[string]any) string {
	added, _ := book["addedDate"].(string)
	if added != "" {
		if strings.Contains(added, "T") {
			return added
		}
		return added + "T00:00:00.000Z"
	}

	published, _ := book["publishedDate"].(string)
	if published != "" {
		day, _, _ := strings.Cut(published, "T")
		return day + "T00:00:00.000Z"
	}

	return "1970-01-01T00:00:00.000Z"
}

// # Version 2

// hashPasswords replaces plain-text "password" fields with a bcrypt "passwordHash".
// A secret longer than bcrypt accepts is replaced by the default password.
func hashPasswords(document rawDocument, defaults Defaults, logger *slog.Logger) error {
	users, _ := document["users"].(map[string]any)

	for name, value := range users {
		user, ok := value.(map[string]any)
		if !ok {
			continue
		}

		if hash, _ := user["passwordHash"].(string); sec.IsPasswordHash(hash) {
			delete(user, "password")
			continue
		}

		plain, _ := user["password"].(string)
		if plain == "" {
			plain = defaults.Password
		}
		if len(plain) > sec.MaxPasswordBytes && !sec.IsPasswordHash(plain) {
			logger.Warn("library_migration_password_reset",
				slog.String("user", name),
				slog.Int("length", len(plain)),
			)
			plain = defaults.Password
		}

		hash := plain
		if !sec.IsPasswordHash(plain) {
			var err error
			hash, err = sec.HashPassword(plain)
			if err != nil {
				return fmt.Errorf("user %q: %w", name, err)
			}
		}

		user["passwordHash"] = hash
		delete(user, "password")
	}

	return nil
}
