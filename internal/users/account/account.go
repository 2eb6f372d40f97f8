// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages the owner-level settings stored alongside the library.

Today this is the set of API keys used by external catalogs (Comic Vine).

# Architecture

  - Entities: APIKeys (the stored form lives in the library package).
  - Domain: Reads and writes go through the library [library.Repository].
*/
package account

import (
	"strings"

	"github.com/taibuivan/tsundoku/internal/library"
)

// # Domain Entities

// APIKeys is the transport view of the stored external catalog secrets.
type APIKeys struct {
	ComicVine string `json:"comicVine"`
}

// Configured reports whether the Comic Vine key is present.
func (keys APIKeys) Configured() bool {
	return keys.ComicVine != ""
}

func fromLibrary(keys library.APIKeys) APIKeys {
	return APIKeys{ComicVine: keys.ComicVine}
}

func (keys APIKeys) toLibrary() library.APIKeys {
	return library.APIKeys{ComicVine: strings.TrimSpace(keys.ComicVine)}
}
