/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/pressbox/storagemodels"
)

// DataStore is the generic persistence contract for corpus entities. A string
// key is the entity's natural identity (article slug, subscriber email); the
// implementation expands it through the type's registered index map.
type DataStore[T any] interface {
	GetOne(ctx context.Context, key string) (*T, error)

	Put(ctx context.Context, entity T) error

	// PutIfAbsent stores the entity only when no item exists under its key.
	// Returns errors.ErrAlreadyExists when the key is taken.
	PutIfAbsent(ctx context.Context, entity T) error

	// PutBatch stores entities in BatchWriteItem chunks, retrying unprocessed
	// items. Intended for bulk loads such as subscriber imports.
	PutBatch(ctx context.Context, entities []T) error

	UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, condition string) error

	Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)

	// QueryPage runs a single paginated query and returns the resume key.
	QueryPage(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error)

	Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]

	Delete(ctx context.Context, key string) error
}
