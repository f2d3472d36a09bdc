/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/registry"
	"github.com/suparena/pressbox/storagemodels"
)

// buildQueryInput maps QueryParams onto the SDK input. The store's table
// name always wins over params.TableName; stores are bound to one table at
// construction.
func (d *DynamodbDataStore[T]) buildQueryInput(params *storagemodels.QueryParams) *sdk.QueryInput {
	input := &sdk.QueryInput{
		TableName:                 &d.tableName,
		KeyConditionExpression:    &params.KeyConditionExpression,
		ExpressionAttributeValues: params.ExpressionAttributeValues,
		FilterExpression:          params.FilterExpression,
		IndexName:                 params.IndexName,
		Limit:                     params.Limit,
		ScanIndexForward:          params.ScanIndexForward,
	}
	if len(params.ExpressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = params.ExpressionAttributeNames
	}
	if len(params.ExclusiveStartKey) > 0 {
		input.ExclusiveStartKey = params.ExclusiveStartKey
	}
	return input
}

// unmarshalItem dispatches one raw item through the type registry using its
// EntityType stamp. Items of unregistered types fall back to a generic map
// so a mixed partition never fails wholesale.
func unmarshalItem(item map[string]types.AttributeValue) (interface{}, error) {
	var entityType string
	if attr, ok := item[entityTypeAttr]; ok {
		if err := attributevalue.Unmarshal(attr, &entityType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal EntityType: %w", err)
		}
	} else {
		return nil, fmt.Errorf("missing EntityType attribute in item")
	}

	unmarshalFn, err := registry.GetUnmarshalFunc(entityType)
	if err != nil {
		var generic map[string]interface{}
		if err := attributevalue.UnmarshalMap(item, &generic); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generic item: %w", err)
		}
		return generic, nil
	}

	obj, err := unmarshalFn(item)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal item for EntityType %q: %w", entityType, err)
	}
	return obj, nil
}

// Query runs the query to exhaustion of its first page and returns typed
// objects. An article partition yields *corpus.Article, *corpus.MediaAsset
// and *corpus.PublishRecord values side by side; callers type-switch.
func (d *DynamodbDataStore[T]) Query(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
	out, err := d.client.Query(ctx, d.buildQueryInput(params))
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	results := make([]interface{}, 0, len(out.Items))
	for _, item := range out.Items {
		obj, err := unmarshalItem(item)
		if err != nil {
			return nil, err
		}
		results = append(results, obj)
	}
	return results, nil
}

// QueryPage runs a single page of the query and returns the resume key
// alongside the items. API listings thread LastEvaluatedKey back in as
// params.ExclusiveStartKey for the next call.
func (d *DynamodbDataStore[T]) QueryPage(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error) {
	out, err := d.client.Query(ctx, d.buildQueryInput(params))
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}

	page := &storagemodels.QueryPage{
		Items:            make([]interface{}, 0, len(out.Items)),
		LastEvaluatedKey: out.LastEvaluatedKey,
	}
	for _, item := range out.Items {
		obj, err := unmarshalItem(item)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, obj)
	}
	return page, nil
}
