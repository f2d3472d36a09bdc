/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/awsx"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/registry"
)

// DynamodbDataStore implements datastore.DataStore[T] on a single DynamoDB
// table. Key attributes come from the type's registered index map; every
// written item is stamped with its EntityType so mixed query results can be
// unmarshaled back into concrete types.
type DynamodbDataStore[T any] struct {
	client    awsx.DynamoDBAPI
	tableName string
}

const (
	// entityTypeAttr is written on every item for polymorphic dispatch.
	entityTypeAttr = "EntityType"

	// batchWriteMax is the BatchWriteItem request ceiling.
	batchWriteMax = 25

	// batchRetryBase backs off retries of unprocessed batch items.
	batchRetryBase = 100 * time.Millisecond

	batchMaxRetries = 3
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// NewDynamodbDataStore constructs a store for type T over an existing
// client. T must have an index map registered; failing that here beats
// failing on the first write.
func NewDynamodbDataStore[T any](client awsx.DynamoDBAPI, tableName string) (*DynamodbDataStore[T], error) {
	if client == nil {
		return nil, fmt.Errorf("nil DynamoDB client")
	}
	if tableName == "" {
		return nil, fmt.Errorf("empty table name")
	}
	if _, ok := registry.GetIndexMap[T](); !ok {
		var zero T
		return nil, fmt.Errorf("%w: %T", pberrors.ErrNoIndexMap, zero)
	}
	return &DynamodbDataStore[T]{client: client, tableName: tableName}, nil
}

// expandMacros resolves each index map template against the entity's
// marshaled attribute values. "ARTICLE#{Slug}" with Slug "intro-to-lambda"
// expands to "ARTICLE#intro-to-lambda".
func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")
			val, ok := av[key]
			if !ok {
				return ""
			}
			switch tv := val.(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				// NULL, binary and set members have no usable key form.
				return ""
			}
		})
		res[fieldName] = expanded
	}
	return res, nil
}

// GetOne retrieves a single item by its natural identity (article slug,
// subscriber email). It returns nil without error when no item exists;
// callers decide whether absence is exceptional.
func (d *DynamodbDataStore[T]) GetOne(ctx context.Context, key string) (*T, error) {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %T", pberrors.ErrNoIndexMap, zero)
	}

	expanded, err := expandStringKey(indexMap, key)
	if err != nil {
		return nil, fmt.Errorf("failed to expand string key: %w", err)
	}

	keyMap, err := buildKeyFromExpanded(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to build key: %w", err)
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       keyMap,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	result := new(T)
	if err := attributevalue.UnmarshalMap(out.Item, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return result, nil
}

// marshalItem marshals the entity and inserts its expanded key attributes
// and EntityType stamp.
func (d *DynamodbDataStore[T]) marshalItem(entity T) (map[string]types.AttributeValue, error) {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		return nil, fmt.Errorf("%w: %T", pberrors.ErrNoIndexMap, entity)
	}

	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}

	expanded, err := expandMacros(indexMap, entity)
	if err != nil {
		return nil, err
	}
	for k, v := range expanded {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}

	if name, ok := registry.EntityName[T](); ok {
		av[entityTypeAttr] = &types.AttributeValueMemberS{Value: name}
	}
	return av, nil
}

// Put stores the entity, overwriting any existing item under the same key.
func (d *DynamodbDataStore[T]) Put(ctx context.Context, entity T) error {
	av, err := d.marshalItem(entity)
	if err != nil {
		return err
	}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// PutIfAbsent stores the entity only when its key is free. An existing item
// surfaces as ErrAlreadyExists, which the API layer maps to a 409.
func (d *DynamodbDataStore[T]) PutIfAbsent(ctx context.Context, entity T) error {
	av, err := d.marshalItem(entity)
	if err != nil {
		return err
	}

	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           &d.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			name, _ := registry.EntityName[T]()
			pk := ""
			if v, ok := av["PK"].(*types.AttributeValueMemberS); ok {
				pk = v.Value
			}
			return pberrors.NewAlreadyExistsError(name, pk)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// PutBatch stores entities in BatchWriteItem chunks of 25, retrying
// unprocessed items with backoff. Items that remain unprocessed after the
// retries fail the whole call.
func (d *DynamodbDataStore[T]) PutBatch(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}

	writes := make([]types.WriteRequest, 0, len(entities))
	for i, entity := range entities {
		av, err := d.marshalItem(entity)
		if err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	for start := 0; start < len(writes); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(writes) {
			end = len(writes)
		}
		if err := d.writeBatch(ctx, writes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DynamodbDataStore[T]) writeBatch(ctx context.Context, batch []types.WriteRequest) error {
	pending := batch
	for attempt := 0; ; attempt++ {
		out, err := d.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				d.tableName: pending,
			},
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem failed: %w", err)
		}

		unprocessed := out.UnprocessedItems[d.tableName]
		if len(unprocessed) == 0 {
			return nil
		}
		if attempt >= batchMaxRetries {
			return fmt.Errorf("BatchWriteItem left %d items unprocessed after %d retries", len(unprocessed), batchMaxRetries)
		}

		backoff := time.Duration(attempt+1) * batchRetryBase
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		pending = unprocessed
	}
}

// Delete removes an item by its natural identity. Deleting an absent key is
// not an error.
func (d *DynamodbDataStore[T]) Delete(ctx context.Context, key string) error {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		var zero T
		return fmt.Errorf("%w: %T", pberrors.ErrNoIndexMap, zero)
	}

	expanded, err := expandStringKey(indexMap, key)
	if err != nil {
		return fmt.Errorf("failed to expand string key: %w", err)
	}

	keyMap, err := buildKeyFromExpanded(expanded)
	if err != nil {
		return fmt.Errorf("failed to build key for Delete: %w", err)
	}

	_, err = d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &d.tableName,
		Key:       keyMap,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// getKey resolves an update's key input. A bare string is the entity's
// natural identity and goes through the single-field template expansion;
// anything else (the entity itself, or a struct covering the key macros)
// expands field by field. Macros that resolve to nothing are rejected so a
// partial key can never address a degenerate row.
func (d *DynamodbDataStore[T]) getKey(keyInput any, indexMap map[string]string) (map[string]types.AttributeValue, error) {
	if key, ok := keyInput.(string); ok {
		if key == "" {
			return nil, errors.New("empty string key")
		}
		expanded, err := expandStringKey(indexMap, key)
		if err != nil {
			return nil, err
		}
		return buildKeyFromExpanded(expanded)
	}

	expanded, err := expandMacros(indexMap, keyInput)
	if err != nil {
		return nil, err
	}
	for _, attr := range []string{"PK", "SK"} {
		template, ok := indexMap[attr]
		if !ok || !macroPattern.MatchString(template) {
			continue
		}
		if expanded[attr] == macroPattern.ReplaceAllString(template, "") {
			return nil, fmt.Errorf("key macro %q expanded empty for %T", template, keyInput)
		}
	}

	if key, ok, err := buildSingleKey(expanded); err != nil {
		return nil, err
	} else if ok {
		return key, nil
	}

	pk, hasPK := expanded["PK"]
	sk, hasSK := expanded["SK"]
	if hasPK && hasSK && pk != "" && sk != "" {
		return map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		}, nil
	}
	return nil, errors.New("missing PK or SK in expanded indexMap")
}

// buildUpdateExpression transforms a field->value map into a SET expression
// with placeholder names and values. Attribute names always go through
// placeholders; Status and the like are reserved words in DynamoDB.
func buildUpdateExpression(updates map[string]interface{}) (string,
	map[string]string,
	map[string]types.AttributeValue,
	error) {

	if len(updates) == 0 {
		return "", nil, nil, errors.New("no updates provided")
	}

	setClauses := make([]string, 0, len(updates))
	exprAttrNames := make(map[string]string)
	exprAttrValues := make(map[string]types.AttributeValue)

	i := 0
	for field, val := range updates {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)

		setClauses = append(setClauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
		exprAttrNames[placeholderName] = field

		switch typedVal := val.(type) {
		case string:
			exprAttrValues[placeholderValue] = &types.AttributeValueMemberS{Value: typedVal}
		case int, int32, int64, float64:
			exprAttrValues[placeholderValue] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%v", typedVal)}
		case bool:
			exprAttrValues[placeholderValue] = &types.AttributeValueMemberBOOL{Value: typedVal}
		default:
			av, err := attributevalue.Marshal(val)
			if err != nil {
				return "", nil, nil, fmt.Errorf("unhandled update value for field %q: %w", field, err)
			}
			exprAttrValues[placeholderValue] = av
		}
		i++
	}

	updateExpr := "SET " + strings.Join(setClauses, ", ")
	return updateExpr, exprAttrNames, exprAttrValues, nil
}

// UpdateWithCondition applies a partial update guarded by a condition
// expression. The key input is the natural key string, the entity itself,
// or any struct whose fields cover the index map macros. A failed condition
// surfaces as ErrConditionFailed so callers can distinguish races from
// faults.
func (d *DynamodbDataStore[T]) UpdateWithCondition(ctx context.Context, keyInput any, updates map[string]interface{}, condition string) error {
	indexMap, ok := registry.GetIndexMap[T]()
	if !ok {
		var zero T
		return fmt.Errorf("%w: %T", pberrors.ErrNoIndexMap, zero)
	}

	key, err := d.getKey(keyInput, indexMap)
	if err != nil {
		return fmt.Errorf("failed to build key: %w", err)
	}

	updateExpr, exprAttrNames, exprAttrValues, err := buildUpdateExpression(updates)
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	input := &sdk.UpdateItemInput{
		TableName:                 &d.tableName,
		Key:                       key,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  exprAttrNames,
		ExpressionAttributeValues: exprAttrValues,
		ConditionExpression:       &condition,
		ReturnValues:              types.ReturnValueNone,
	}

	if _, err := d.client.UpdateItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return pberrors.NewConditionFailedError("update", condition)
		}
		return fmt.Errorf("UpdateWithCondition failed: %w", err)
	}
	return nil
}

// buildKeyFromExpanded builds a DynamoDB key from the expanded index map,
// requiring non-empty PK and SK.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]
	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// expandStringKey substitutes a single string identity into the key
// templates. Types whose PK and SK reference more than one field (media
// assets, publish records) have no single-string identity; those lookups go
// through Query instead.
func expandStringKey(indexMap map[string]string, key string) (map[string]string, error) {
	fields := map[string]struct{}{}
	for _, attr := range []string{"PK", "SK"} {
		for _, f := range registry.TemplateFields(indexMap[attr]) {
			fields[f] = struct{}{}
		}
	}
	if len(fields) > 1 {
		return nil, fmt.Errorf("index map keys reference %d fields; string key lookups need exactly one", len(fields))
	}

	expanded := make(map[string]string, len(indexMap))
	for field, template := range indexMap {
		expanded[field] = macroPattern.ReplaceAllString(template, key)
	}
	return expanded, nil
}

func buildSingleKey(expanded map[string]string) (map[string]types.AttributeValue, bool, error) {
	pk, hasPK := expanded["PK"]
	sk, hasSK := expanded["SK"]

	// Identical PK and SK is the single-object layout.
	if hasPK && hasSK && pk != "" && sk != "" && pk == sk {
		return map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		}, true, nil
	}
	return nil, false, nil
}
