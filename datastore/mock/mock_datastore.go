/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of the DataStore
// interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/storagemodels"
)

// DataStore is an in-memory datastore.DataStore[T]. Its absence and error
// semantics mirror the DynamoDB store: GetOne returns nil for a missing
// key, Delete of a missing key is not an error, PutIfAbsent reports
// ErrAlreadyExists.
type DataStore[T any] struct {
	mu          sync.RWMutex
	data        map[string]T
	getKeyFunc  func(entity T) string
	queryFunc   func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)
	streamFunc  func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]
	applyFunc   func(entity T, updates map[string]interface{}) T
	checkFunc   func(entity T, condition string) bool
	putError    error
	deleteError error
	updateError error
}

// New creates a new mock DataStore.
func New[T any]() *DataStore[T] {
	return &DataStore[T]{
		data: make(map[string]T),
	}
}

// WithGetKeyFunc sets the function that extracts an entity's natural key
// (an article's slug, a subscriber's email).
func (m *DataStore[T]) WithGetKeyFunc(f func(T) string) *DataStore[T] {
	m.getKeyFunc = f
	return m
}

// WithQueryFunc sets a custom query function.
func (m *DataStore[T]) WithQueryFunc(f func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error)) *DataStore[T] {
	m.queryFunc = f
	return m
}

// WithStreamFunc sets a custom stream function.
func (m *DataStore[T]) WithStreamFunc(f func(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T]) *DataStore[T] {
	m.streamFunc = f
	return m
}

// WithApplyFunc sets the function UpdateWithCondition uses to fold an
// update map into a stored entity. Without it updates only check existence.
func (m *DataStore[T]) WithApplyFunc(f func(entity T, updates map[string]interface{}) T) *DataStore[T] {
	m.applyFunc = f
	return m
}

// WithConditionFunc sets the predicate that stands in for the condition
// expression. Returning false fails the update with ErrConditionFailed.
func (m *DataStore[T]) WithConditionFunc(f func(entity T, condition string) bool) *DataStore[T] {
	m.checkFunc = f
	return m
}

// WithPutError makes Put, PutIfAbsent and PutBatch return an error.
func (m *DataStore[T]) WithPutError(err error) *DataStore[T] {
	m.putError = err
	return m
}

// WithDeleteError makes Delete return an error.
func (m *DataStore[T]) WithDeleteError(err error) *DataStore[T] {
	m.deleteError = err
	return m
}

// WithUpdateError makes UpdateWithCondition return an error.
func (m *DataStore[T]) WithUpdateError(err error) *DataStore[T] {
	m.updateError = err
	return m
}

// GetOne retrieves an entity by key. A missing key returns nil, not an
// error.
func (m *DataStore[T]) GetOne(ctx context.Context, key string) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if entity, exists := m.data[key]; exists {
		return &entity, nil
	}
	return nil, nil
}

// Put stores an entity, overwriting any existing one under the same key.
func (m *DataStore[T]) Put(ctx context.Context, entity T) error {
	if m.putError != nil {
		return m.putError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.extractKey(entity)
	if key == "" {
		return errors.NewValidationError("key", "unable to extract key from entity")
	}
	m.data[key] = entity
	return nil
}

// PutIfAbsent stores an entity only when its key is free.
func (m *DataStore[T]) PutIfAbsent(ctx context.Context, entity T) error {
	if m.putError != nil {
		return m.putError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.extractKey(entity)
	if key == "" {
		return errors.NewValidationError("key", "unable to extract key from entity")
	}
	if _, exists := m.data[key]; exists {
		var zero T
		return errors.NewAlreadyExistsError(fmt.Sprintf("%T", zero), key)
	}
	m.data[key] = entity
	return nil
}

// PutBatch stores all entities.
func (m *DataStore[T]) PutBatch(ctx context.Context, entities []T) error {
	for _, entity := range entities {
		if err := m.Put(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// UpdateWithCondition updates a stored entity. The key input is either the
// natural key string or the entity itself. The configured condition
// predicate gates the update; the configured apply function folds the
// update map in.
func (m *DataStore[T]) UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, condition string) error {
	if m.updateError != nil {
		return m.updateError
	}

	var key string
	switch k := keyInput.(type) {
	case string:
		if k == "" {
			return errors.NewValidationError("keyInput", "empty string key")
		}
		key = k
	case T:
		key = m.extractKey(k)
	default:
		return errors.NewValidationError("keyInput", "must be a string or the entity itself")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entity, exists := m.data[key]
	if !exists {
		return errors.NewConditionFailedError("update", condition)
	}
	if m.checkFunc != nil && !m.checkFunc(entity, condition) {
		return errors.NewConditionFailedError("update", condition)
	}
	if m.applyFunc != nil {
		m.data[key] = m.applyFunc(entity, updates)
	}
	return nil
}

// Query executes a query. Without a custom query function it returns all
// stored entities as *T, the form the DynamoDB store's polymorphic
// unmarshaling produces.
func (m *DataStore[T]) Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]interface{}, 0, len(m.data))
	for _, v := range m.data {
		entity := v
		results = append(results, &entity)
	}
	return results, nil
}

// QueryPage returns all matching items as a single page with no resume key.
func (m *DataStore[T]) QueryPage(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error) {
	items, err := m.Query(ctx, params)
	if err != nil {
		return nil, err
	}
	return &storagemodels.QueryPage{Items: items}, nil
}

// Stream returns a channel of results. Without a custom stream function it
// streams all stored entities.
func (m *DataStore[T]) Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	if m.streamFunc != nil {
		return m.streamFunc(ctx, params, opts...)
	}

	resultChan := make(chan storagemodels.StreamResult[T], 10)

	go func() {
		defer close(resultChan)

		m.mu.RLock()
		defer m.mu.RUnlock()

		index := int64(0)
		for _, v := range m.data {
			select {
			case <-ctx.Done():
				return
			case resultChan <- storagemodels.StreamResult[T]{
				Item: v,
				Meta: storagemodels.StreamMeta{
					Index:      index,
					PageNumber: 1,
				},
			}:
				index++
			}
		}
	}()

	return resultChan
}

// Delete removes an entity by key. Deleting an absent key is not an error.
func (m *DataStore[T]) Delete(ctx context.Context, key string) error {
	if m.deleteError != nil {
		return m.deleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Helper methods for testing

// SetData directly sets the internal data map.
func (m *DataStore[T]) SetData(data map[string]T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// GetData returns a copy of the internal data map.
func (m *DataStore[T]) GetData() map[string]T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]T, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}
	return result
}

// Count returns the number of stored entities.
func (m *DataStore[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data.
func (m *DataStore[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]T)
}

func (m *DataStore[T]) extractKey(entity T) string {
	if m.getKeyFunc != nil {
		return m.getKeyFunc(entity)
	}
	return fmt.Sprintf("key_%v", entity)
}
