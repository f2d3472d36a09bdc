/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pressbox

import (
	"fmt"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore"
	"github.com/suparena/pressbox/datastore/ddb"
)

// Stores bundles the typed datastore of every corpus entity. All five share
// one DynamoDB table; the registered index maps keep their keyspaces apart.
type Stores struct {
	Articles    datastore.DataStore[corpus.Article]
	Series      datastore.DataStore[corpus.Series]
	Subscribers datastore.DataStore[corpus.Subscriber]
	Media       datastore.DataStore[corpus.MediaAsset]
	Records     datastore.DataStore[corpus.PublishRecord]

	registry *MultiTypeStorage
}

// OpenStores binds a store per corpus entity to the table and registers
// each under the table name, so callers holding only the registry can still
// resolve them with GetDataStore.
func OpenStores(client awsx.DynamoDBAPI, tableName string) (*Stores, error) {
	articles, err := ddb.NewDynamodbDataStore[corpus.Article](client, tableName)
	if err != nil {
		return nil, fmt.Errorf("open article store: %w", err)
	}
	series, err := ddb.NewDynamodbDataStore[corpus.Series](client, tableName)
	if err != nil {
		return nil, fmt.Errorf("open series store: %w", err)
	}
	subscribers, err := ddb.NewDynamodbDataStore[corpus.Subscriber](client, tableName)
	if err != nil {
		return nil, fmt.Errorf("open subscriber store: %w", err)
	}
	media, err := ddb.NewDynamodbDataStore[corpus.MediaAsset](client, tableName)
	if err != nil {
		return nil, fmt.Errorf("open media store: %w", err)
	}
	records, err := ddb.NewDynamodbDataStore[corpus.PublishRecord](client, tableName)
	if err != nil {
		return nil, fmt.Errorf("open publish record store: %w", err)
	}

	s := &Stores{
		Articles:    articles,
		Series:      series,
		Subscribers: subscribers,
		Media:       media,
		Records:     records,
		registry:    NewMultiTypeStorage(),
	}
	if err := s.register(tableName); err != nil {
		return nil, err
	}
	return s, nil
}

// Registry exposes the underlying MultiTypeStorage for callers resolving
// stores by type.
func (s *Stores) Registry() *MultiTypeStorage {
	return s.registry
}

func (s *Stores) register(key string) error {
	if err := RegisterDataStore(s.registry, key, s.Articles); err != nil {
		return err
	}
	if err := RegisterDataStore(s.registry, key, s.Series); err != nil {
		return err
	}
	if err := RegisterDataStore(s.registry, key, s.Subscribers); err != nil {
		return err
	}
	if err := RegisterDataStore(s.registry, key, s.Media); err != nil {
		return err
	}
	return RegisterDataStore(s.registry, key, s.Records)
}
