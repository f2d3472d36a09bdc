/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package media

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/storagemodels"
)

// Library pairs the object store with MediaAsset records so every stored
// object has a row describing it, and uploads of bytes the corpus already
// holds are skipped.
type Library struct {
	store   *Store
	records datastore.DataStore[corpus.MediaAsset]
}

// NewLibrary constructs a library over the object store and the MediaAsset
// record store.
func NewLibrary(store *Store, records datastore.DataStore[corpus.MediaAsset]) *Library {
	return &Library{store: store, records: records}
}

// Store exposes the underlying object store for presigning and raw access.
func (l *Library) Store() *Store {
	return l.store
}

// Attach uploads an asset for an article and records it. When the article
// already holds an asset with the same content, that record is returned and
// nothing is uploaded; the second return reports the reuse.
func (l *Library) Attach(ctx context.Context, in UploadInput) (*corpus.MediaAsset, bool, error) {
	if in.ArticleSlug == "" {
		return nil, false, fmt.Errorf("attach: empty article slug")
	}

	checksum := Checksum(in.Body)
	matches, err := l.FindByChecksum(ctx, checksum)
	if err != nil {
		return nil, false, fmt.Errorf("checksum lookup for %s: %w", in.ArticleSlug, err)
	}
	for _, existing := range matches {
		if existing.ArticleSlug == in.ArticleSlug {
			log.WithFields(map[string]interface{}{
				"article":  in.ArticleSlug,
				"checksum": checksum,
				"key":      existing.Key,
			}).Debug("asset content already attached, reusing")
			return existing, true, nil
		}
	}

	asset, err := l.store.Upload(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if err := l.records.Put(ctx, *asset); err != nil {
		return nil, false, fmt.Errorf("record asset %s: %w", asset.Key, err)
	}
	return asset, false, nil
}

// FindByChecksum returns every asset record holding content with the given
// checksum, across all articles. Served by the checksum index.
func (l *Library) FindByChecksum(ctx context.Context, checksum string) ([]*corpus.MediaAsset, error) {
	params := &storagemodels.QueryParams{
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: "GSI1PK = :pk",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: corpus.MediaHashKey(checksum)},
		},
	}
	items, err := l.records.Query(ctx, params)
	if err != nil {
		return nil, err
	}
	return assetsOf(items), nil
}

// ListForArticle returns the article's asset records in key order.
func (l *Library) ListForArticle(ctx context.Context, slug string) ([]*corpus.MediaAsset, error) {
	params := &storagemodels.QueryParams{
		KeyConditionExpression: "PK = :pk AND begins_with(SK, :sk)",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: corpus.ArticlePK(slug)},
			":sk": &types.AttributeValueMemberS{Value: corpus.PrefixMedia},
		},
	}
	items, err := l.records.Query(ctx, params)
	if err != nil {
		return nil, err
	}
	return assetsOf(items), nil
}

// assetsOf filters typed query results down to media assets. Partition
// queries can return neighboring entity types; those are not errors here.
func assetsOf(items []interface{}) []*corpus.MediaAsset {
	out := make([]*corpus.MediaAsset, 0, len(items))
	for _, item := range items {
		if asset, ok := item.(*corpus.MediaAsset); ok {
			out = append(out, asset)
		}
	}
	return out
}
