// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
)

// # Document Data Access

// Repository defines the whole-document access contract of the library.
type Repository interface {

	/*
		Load returns a private snapshot of the current document.

		Description: A missing or corrupt file is replaced by the default document,
		which is persisted before being returned.

		Parameters:
		  - context: context.Context

		Returns:
		  - *Document: Fully migrated document
		  - error: Read or persistence failures
	*/
	Load(context context.Context) (*Document, error)

	/*
		Save replaces the stored document.

		Parameters:
		  - context: context.Context
		  - document: *Document

		Returns:
		  - error: Persistence failures
	*/
	Save(context context.Context, document *Document) error

	/*
		Update loads the document, applies mutate and saves the result.

		Description: Calls are serialized, so concurrent updates never lose each
		other's changes. Nothing is written when mutate returns an error.

		Parameters:
		  - context: context.Context
		  - mutate: func(*Document) error

		Returns:
		  - error: The mutate error, or read/persistence failures
	*/
	Update(context context.Context, mutate func(document *Document) error) error
}
