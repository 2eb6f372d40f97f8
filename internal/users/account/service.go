// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/tsundoku/internal/library"
)

// Service implements the account settings use cases.
type Service struct {
	repository library.Repository
}

// NewService constructs a new account [Service].
func NewService(repository library.Repository) *Service {
	return &Service{repository: repository}
}

/*
GetAPIKeys returns the stored external catalog keys.

Parameters:
  - context: context.Context

Returns:
  - APIKeys: Current keys (empty strings when unset)
  - error: Storage failures
*/
func (service *Service) GetAPIKeys(context context.Context) (APIKeys, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return APIKeys{}, fmt.Errorf("account_service_get_api_keys_failed: %w", err)
	}
	return fromLibrary(document.Admin().APIKeys), nil
}

/*
UpdateAPIKeys replaces the stored keys. Values are trimmed before saving.

Parameters:
  - context: context.Context
  - keys: APIKeys

Returns:
  - APIKeys: Stored keys
  - error: Storage failures
*/
func (service *Service) UpdateAPIKeys(context context.Context, keys APIKeys) (APIKeys, error) {
	stored := keys.toLibrary()

	err := service.repository.Update(context, func(document *library.Document) error {
		document.Admin().APIKeys = stored
		return nil
	})
	if err != nil {
		return APIKeys{}, fmt.Errorf("account_service_update_api_keys_failed: %w", err)
	}

	return fromLibrary(stored), nil
}

// ComicVineKey returns the Comic Vine key, or an empty string when none is stored.
func (service *Service) ComicVineKey(context context.Context) (string, error) {
	keys, err := service.GetAPIKeys(context)
	if err != nil {
		return "", err
	}
	return keys.ComicVine, nil
}
