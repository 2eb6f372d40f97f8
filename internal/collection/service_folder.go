// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package collection

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/taibuivan/tsundoku/internal/library"
	"github.com/taibuivan/tsundoku/internal/platform/apperr"
	"github.com/taibuivan/tsundoku/internal/platform/validate"
	"github.com/taibuivan/tsundoku/pkg/uuid"
)

// FolderInput holds the editable fields of a reading folder.
type FolderInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (input FolderInput) normalize() (FolderInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	v := &validate.Validator{}
	v.Required("name", input.Name, msgFolderNameMissing).
		MaxLen("name", input.Name, 200)

	return input, v.Err()
}

// renumber sorts entries by order and assigns dense orders 1..N.
func renumber(entries []library.FolderEntry) []library.FolderEntry {
	slices.SortStableFunc(entries, func(a, b library.FolderEntry) int { return cmp.Compare(a.Order, b.Order) })
	for i := range entries {
		entries[i].Order = i + 1
	}
	return entries
}

// sorted returns a copy of folder with its entries in reading order.
func sorted(folder library.ReadingFolder) library.ReadingFolder {
	folder.Books = slices.Clone(folder.Books)
	slices.SortStableFunc(folder.Books, func(a, b library.FolderEntry) int { return cmp.Compare(a.Order, b.Order) })
	return folder
}

// # Queries

// ListFolders returns every reading folder with entries in reading order.
func (service *Service) ListFolders(context context.Context) ([]library.ReadingFolder, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_list_folders_failed: %w", err)
	}

	folders := document.Admin().ReadingFolders
	result := make([]library.ReadingFolder, len(folders))
	for i := range folders {
		result[i] = sorted(folders[i])
	}
	return result, nil
}

// GetFolder returns one reading folder with entries in reading order.
func (service *Service) GetFolder(context context.Context, id string) (*library.ReadingFolder, error) {
	document, err := service.repository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("collection_service_get_folder_failed: %w", err)
	}

	folder := document.Admin().Folder(id)
	if folder == nil {
		return nil, apperr.NotFound(msgFolderNotFound)
	}

	result := sorted(*folder)
	return &result, nil
}

// # Folder Lifecycle

// CreateFolder adds an empty reading folder.
func (service *Service) CreateFolder(context context.Context, input FolderInput) (*library.ReadingFolder, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}

	folder := library.ReadingFolder{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Books:       []library.FolderEntry{},
		CreatedDate: library.Timestamp(service.now()),
	}

	err = service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		user.ReadingFolders = append(user.ReadingFolders, folder)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection_service_create_folder_failed: %w", err)
	}

	return &folder, nil
}

// UpdateFolder renames a folder. Id, createdDate and entries are preserved.
func (service *Service) UpdateFolder(context context.Context, id string, input FolderInput) (*library.ReadingFolder, error) {
	input, err := input.normalize()
	if err != nil {
		return nil, err
	}

	var updated library.ReadingFolder
	err = service.repository.Update(context, func(document *library.Document) error {
		folder := document.Admin().Folder(id)
		if folder == nil {
			return apperr.NotFound(msgFolderNotFound)
		}
		folder.Name = input.Name
		folder.Description = input.Description
		updated = sorted(*folder)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection_service_update_folder_failed: %w", err)
	}

	return &updated, nil
}

// DeleteFolder removes a folder. The books themselves stay in the collection.
func (service *Service) DeleteFolder(context context.Context, id string) error {
	err := service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		index := slices.IndexFunc(user.ReadingFolders, func(folder library.ReadingFolder) bool {
			return folder.ID == id
		})
		if index < 0 {
			return apperr.NotFound(msgFolderNotFound)
		}
		user.ReadingFolders = slices.Delete(user.ReadingFolders, index, index+1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("collection_service_delete_folder_failed: %w", err)
	}
	return nil
}

// # Membership

/*
AddBookToFolder appends a collection book to a folder.

Description: The entry takes order max(existing) + 1, so gaps left by older
files are kept rather than filled.

Parameters:
  - context: context.Context
  - folderID: string
  - bookID: string
  - notes: string (optional, trimmed)

Returns:
  - *library.ReadingFolder: The updated folder
  - error: NOT_FOUND (folder or book), CONFLICT (already a member) or storage failures
*/
func (service *Service) AddBookToFolder(context context.Context, folderID, bookID, notes string) (*library.ReadingFolder, error) {
	var updated library.ReadingFolder
	err := service.repository.Update(context, func(document *library.Document) error {
		user := document.Admin()
		folder := user.Folder(folderID)
		if folder == nil {
			return apperr.NotFound(msgFolderNotFound)
		}
		if user.BookIndex(bookID) < 0 {
			return apperr.NotFound(msgNotInCollection)
		}

		maxOrder := 0
		for _, entry := range folder.Books {
			if entry.BookID == bookID {
				return apperr.Conflict(msgAlreadyInFolder)
			}
			maxOrder = max(maxOrder, entry.Order)
		}

		folder.Books = append(folder.Books, library.FolderEntry{
			BookID:    bookID,
			Order:     maxOrder + 1,
			Notes:     strings.TrimSpace(notes),
			AddedDate: library.Timestamp(service.now()),
		})
		updated = sorted(*folder)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection_service_add_book_to_folder_failed: %w", err)
	}

	return &updated, nil
}

// RemoveBookFromFolder drops a member and renumbers the rest densely.
func (service *Service) RemoveBookFromFolder(context context.Context, folderID, bookID string) (*library.ReadingFolder, error) {
	var updated library.ReadingFolder
	err := service.repository.Update(context, func(document *library.Document) error {
		folder := document.Admin().Folder(folderID)
		if folder == nil {
			return apperr.NotFound(msgFolderNotFound)
		}

		index := slices.IndexFunc(folder.Books, func(entry library.FolderEntry) bool {
			return entry.BookID == bookID
		})
		if index < 0 {
			return apperr.NotFound(msgNotInFolder)
		}

		folder.Books = renumber(slices.Delete(folder.Books, index, index+1))
		updated = sorted(*folder)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection_service_remove_book_from_folder_failed: %w", err)
	}

	return &updated, nil
}

/*
ReorderFolder applies a new reading order.

Description: bookIDs must list every current member exactly once. Orders are
assigned 1..N following the submitted sequence; notes and addedDate of each
entry are kept.

Parameters:
  - context: context.Context
  - folderID: string
  - bookIDs: []string (members in the new order)

Returns:
  - *library.ReadingFolder: The reordered folder
  - error: NOT_FOUND, VALIDATION_ERROR (not a permutation) or storage failures
*/
func (service *Service) ReorderFolder(context context.Context, folderID string, bookIDs []string) (*library.ReadingFolder, error) {
	var updated library.ReadingFolder
	err := service.repository.Update(context, func(document *library.Document) error {
		folder := document.Admin().Folder(folderID)
		if folder == nil {
			return apperr.NotFound(msgFolderNotFound)
		}

		members := make(map[string]library.FolderEntry, len(folder.Books))
		for _, entry := range folder.Books {
			members[entry.BookID] = entry
		}
		if len(bookIDs) != len(members) {
			return validate.RequiredError("books", msgInvalidOrder)
		}

		reordered := make([]library.FolderEntry, 0, len(bookIDs))
		for i, bookID := range bookIDs {
			entry, ok := members[bookID]
			if !ok {
				return validate.RequiredError("books", msgInvalidOrder)
			}
			delete(members, bookID)
			entry.Order = i + 1
			reordered = append(reordered, entry)
		}

		folder.Books = reordered
		updated = *folder
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collection_service_reorder_folder_failed: %w", err)
	}

	return &updated, nil
}
