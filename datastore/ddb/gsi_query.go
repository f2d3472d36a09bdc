/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/registry"
	"github.com/suparena/pressbox/storagemodels"
)

// GSIQueryBuilder builds queries against a secondary index with a fluent
// interface. Values are bare identities; the type's index map templates
// supply the key prefixes, so callers never re-spell "STATUS#" by hand.
type GSIQueryBuilder[T any] struct {
	store      *DynamodbDataStore[T]
	params     *storagemodels.QueryParams
	indexName  string
	pkValue    string
	skValue    string
	skOperator string // "=", "begins_with", ">", "<", ">=", "<=", "BETWEEN"
	filters    []string
	filterVals map[string]types.AttributeValue
}

// QueryGSI creates a query builder against GSI1, the table's single
// overloaded index.
func (d *DynamodbDataStore[T]) QueryGSI() *GSIQueryBuilder[T] {
	return &GSIQueryBuilder[T]{
		store:      d,
		indexName:  "GSI1",
		filterVals: make(map[string]types.AttributeValue),
		params: &storagemodels.QueryParams{
			TableName:                 d.tableName,
			ExpressionAttributeValues: make(map[string]types.AttributeValue),
		},
	}
}

// WithPartitionKey sets the GSI partition key value. Types whose GSI1PK
// template is a constant (series) can skip this.
func (q *GSIQueryBuilder[T]) WithPartitionKey(value string) *GSIQueryBuilder[T] {
	q.pkValue = value
	return q
}

// WithSortKey matches the sort key exactly.
func (q *GSIQueryBuilder[T]) WithSortKey(value string) *GSIQueryBuilder[T] {
	q.skValue = value
	q.skOperator = "="
	return q
}

// WithSortKeyPrefix matches sort keys beginning with the prefix.
func (q *GSIQueryBuilder[T]) WithSortKeyPrefix(prefix string) *GSIQueryBuilder[T] {
	q.skValue = prefix
	q.skOperator = "begins_with"
	return q
}

// WithSortKeyGreaterThan matches sort keys after the value.
func (q *GSIQueryBuilder[T]) WithSortKeyGreaterThan(value string) *GSIQueryBuilder[T] {
	q.skValue = value
	q.skOperator = ">"
	return q
}

// WithSortKeyLessThan matches sort keys before the value.
func (q *GSIQueryBuilder[T]) WithSortKeyLessThan(value string) *GSIQueryBuilder[T] {
	q.skValue = value
	q.skOperator = "<"
	return q
}

// WithSortKeyBetween matches sort keys in the inclusive range.
func (q *GSIQueryBuilder[T]) WithSortKeyBetween(start, end string) *GSIQueryBuilder[T] {
	q.skValue = start
	q.skOperator = "BETWEEN"
	q.params.ExpressionAttributeValues[":sk2"] = &types.AttributeValueMemberS{Value: expandKeyValue(q.sortKeyTemplate(), end)}
	return q
}

// WithFilter adds a filter expression over non-key attributes. Reserved
// attribute names need placeholders via WithAttributeName.
func (q *GSIQueryBuilder[T]) WithFilter(expression string, values map[string]types.AttributeValue) *GSIQueryBuilder[T] {
	q.filters = append(q.filters, expression)
	for k, v := range values {
		q.filterVals[k] = v
	}
	return q
}

// WithAttributeName maps an expression placeholder to an attribute name.
func (q *GSIQueryBuilder[T]) WithAttributeName(placeholder, name string) *GSIQueryBuilder[T] {
	if q.params.ExpressionAttributeNames == nil {
		q.params.ExpressionAttributeNames = make(map[string]string)
	}
	q.params.ExpressionAttributeNames[placeholder] = name
	return q
}

// WithLimit caps the number of items per page.
func (q *GSIQueryBuilder[T]) WithLimit(limit int32) *GSIQueryBuilder[T] {
	q.params.Limit = aws.Int32(limit)
	return q
}

// Descending returns results in reverse sort key order.
func (q *GSIQueryBuilder[T]) Descending() *GSIQueryBuilder[T] {
	q.params.ScanIndexForward = aws.Bool(false)
	return q
}

func (q *GSIQueryBuilder[T]) sortKeyTemplate() string {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		return ""
	}
	return indexMap["GSI1SK"]
}

// templatePrefix splits an index map template into its literal prefix and
// whether a macro follows. "STATUS#{Status}" yields ("STATUS#", true);
// "SERIES" yields ("SERIES", false).
func templatePrefix(template string) (string, bool) {
	i := strings.IndexByte(template, '{')
	if i < 0 {
		return template, false
	}
	return template[:i], true
}

// expandKeyValue turns a bare identity into the stored key value. Values
// already carrying the template's prefix pass through, so callers may hand
// in either "published" or "STATUS#published".
func expandKeyValue(template, value string) string {
	prefix, hasMacro := templatePrefix(template)
	if !hasMacro {
		return template
	}
	if prefix != "" && strings.HasPrefix(value, prefix) {
		return value
	}
	return prefix + value
}

// Build constructs the final query parameters.
func (q *GSIQueryBuilder[T]) Build() (*storagemodels.QueryParams, error) {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		return nil, fmt.Errorf("no index map found for type %T", *new(T))
	}

	gsiCfg, ok := GetGSIConfig(q.indexName)
	if !ok {
		return nil, fmt.Errorf("unknown GSI %q", q.indexName)
	}

	pkTemplate, ok := indexMap[gsiCfg.PartitionKeyName]
	if !ok {
		return nil, fmt.Errorf("%s not found in index map for type %T", gsiCfg.PartitionKeyName, *new(T))
	}

	_, pkHasMacro := templatePrefix(pkTemplate)
	if pkHasMacro && q.pkValue == "" {
		return nil, fmt.Errorf("GSI partition key value is required")
	}

	keyConditions := []string{fmt.Sprintf("%s = :pk", gsiCfg.PartitionKeyName)}
	q.params.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{
		Value: expandKeyValue(pkTemplate, q.pkValue),
	}

	if q.skValue != "" {
		if skTemplate, hasSK := indexMap[gsiCfg.SortKeyName]; hasSK {
			expandedSK := expandKeyValue(skTemplate, q.skValue)
			skAttr := gsiCfg.SortKeyName

			switch q.skOperator {
			case "=", ">", "<", ">=", "<=":
				keyConditions = append(keyConditions, fmt.Sprintf("%s %s :sk", skAttr, q.skOperator))
				q.params.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: expandedSK}
			case "begins_with":
				keyConditions = append(keyConditions, fmt.Sprintf("begins_with(%s, :sk)", skAttr))
				q.params.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: expandedSK}
			case "BETWEEN":
				// :sk2 was set in WithSortKeyBetween.
				keyConditions = append(keyConditions, fmt.Sprintf("%s BETWEEN :sk AND :sk2", skAttr))
				q.params.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: expandedSK}
			default:
				return nil, fmt.Errorf("unsupported sort key operator %q", q.skOperator)
			}
		}
	}

	q.params.KeyConditionExpression = strings.Join(keyConditions, " AND ")
	q.params.IndexName = aws.String(q.indexName)

	if len(q.filters) > 0 {
		filterExpr := strings.Join(q.filters, " AND ")
		q.params.FilterExpression = aws.String(filterExpr)
		for k, v := range q.filterVals {
			q.params.ExpressionAttributeValues[k] = v
		}
	}

	return q.params, nil
}

// Execute runs the query and returns items of the builder's type. Items of
// other types that share the index partition are skipped.
func (q *GSIQueryBuilder[T]) Execute(ctx context.Context) ([]T, error) {
	params, err := q.Build()
	if err != nil {
		return nil, err
	}

	results, err := q.store.Query(ctx, params)
	if err != nil {
		return nil, err
	}

	typedResults := make([]T, 0, len(results))
	for _, r := range results {
		if typed, ok := r.(T); ok {
			typedResults = append(typedResults, typed)
		} else if typed, ok := r.(*T); ok {
			typedResults = append(typedResults, *typed)
		}
	}
	return typedResults, nil
}

// ExecuteWithPagination runs one page of the query and returns the resume
// key for the next call. A nil start key begins from the top.
func (q *GSIQueryBuilder[T]) ExecuteWithPagination(ctx context.Context, exclusiveStartKey map[string]types.AttributeValue) ([]T, map[string]types.AttributeValue, error) {
	params, err := q.Build()
	if err != nil {
		return nil, nil, err
	}
	if exclusiveStartKey != nil {
		params.ExclusiveStartKey = exclusiveStartKey
	}

	page, err := q.store.QueryPage(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	typedResults := make([]T, 0, len(page.Items))
	for _, r := range page.Items {
		if typed, ok := r.(T); ok {
			typedResults = append(typedResults, typed)
		} else if typed, ok := r.(*T); ok {
			typedResults = append(typedResults, *typed)
		}
	}
	return typedResults, page.LastEvaluatedKey, nil
}

// Stream executes the query as a stream.
func (q *GSIQueryBuilder[T]) Stream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	params, err := q.Build()
	if err != nil {
		ch := make(chan storagemodels.StreamResult[T], 1)
		ch <- storagemodels.StreamResult[T]{
			Error: fmt.Errorf("failed to build query: %w", err),
		}
		close(ch)
		return ch
	}
	return q.store.Stream(ctx, params, opts...)
}

// Common GSI query patterns as convenience methods

// QueryByGSI1PK queries using only the GSI1 partition key.
func (d *DynamodbDataStore[T]) QueryByGSI1PK(ctx context.Context, pkValue string) ([]T, error) {
	return d.QueryGSI().
		WithPartitionKey(pkValue).
		Execute(ctx)
}

// QueryByGSI1PKAndSKPrefix queries using the GSI1 partition key and a sort
// key prefix.
func (d *DynamodbDataStore[T]) QueryByGSI1PKAndSKPrefix(ctx context.Context, pkValue, skPrefix string) ([]T, error) {
	return d.QueryGSI().
		WithPartitionKey(pkValue).
		WithSortKeyPrefix(skPrefix).
		Execute(ctx)
}

// QueryByGSI1PKWithFilter queries using the GSI1 partition key with an
// additional filter.
func (d *DynamodbDataStore[T]) QueryByGSI1PKWithFilter(ctx context.Context, pkValue string, filterExpr string, filterValues map[string]types.AttributeValue) ([]T, error) {
	return d.QueryGSI().
		WithPartitionKey(pkValue).
		WithFilter(filterExpr, filterValues).
		Execute(ctx)
}
