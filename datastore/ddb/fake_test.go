/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
)

const testTable = "pressbox-test"

// fakeDynamo implements awsx.DynamoDBAPI in memory. It records every input
// and replays canned outputs, so the store's request shaping can be
// asserted without a table.
type fakeDynamo struct {
	mu sync.Mutex

	getInputs    []*sdk.GetItemInput
	putInputs    []*sdk.PutItemInput
	deleteInputs []*sdk.DeleteItemInput
	updateInputs []*sdk.UpdateItemInput
	queryInputs  []*sdk.QueryInput
	batchInputs  []*sdk.BatchWriteItemInput

	getOut    sdk.GetItemOutput
	getErr    error
	putErr    error
	deleteErr error
	updateErr error

	// queryFn, when set, decides every Query response. Otherwise queryOuts
	// are consumed one per call, exhausted calls return an empty page, and
	// queryErrs align with call order taking precedence.
	queryFn   func(call int, params *sdk.QueryInput) (*sdk.QueryOutput, error)
	queryOuts []sdk.QueryOutput
	queryErrs []error

	// batchOuts are consumed one per call; exhausted calls report nothing
	// unprocessed.
	batchOuts []sdk.BatchWriteItemOutput
	batchErr  error
}

var _ awsx.DynamoDBAPI = (*fakeDynamo)(nil)

func (f *fakeDynamo) GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getInputs = append(f.getInputs, params)
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := f.getOut
	return &out, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putInputs = append(f.putInputs, params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteInputs = append(f.deleteInputs, params)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateInputs = append(f.updateInputs, params)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &sdk.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// The stream worker mutates its input between pages; keep a snapshot.
	snapshot := *params
	f.queryInputs = append(f.queryInputs, &snapshot)

	call := len(f.queryInputs) - 1
	if f.queryFn != nil {
		return f.queryFn(call, &snapshot)
	}
	if call < len(f.queryErrs) && f.queryErrs[call] != nil {
		return nil, f.queryErrs[call]
	}
	if call < len(f.queryOuts) {
		out := f.queryOuts[call]
		return &out, nil
	}
	return &sdk.QueryOutput{}, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchInputs = append(f.batchInputs, params)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	call := len(f.batchInputs) - 1
	if call < len(f.batchOuts) {
		out := f.batchOuts[call]
		return &out, nil
	}
	return &sdk.BatchWriteItemOutput{}, nil
}

func newArticleStore(t *testing.T, client awsx.DynamoDBAPI) *DynamodbDataStore[corpus.Article] {
	t.Helper()
	store, err := NewDynamodbDataStore[corpus.Article](client, testTable)
	if err != nil {
		t.Fatalf("NewDynamodbDataStore: %v", err)
	}
	return store
}

// articleItem marshals an article the way the store writes it, including
// its EntityType stamp and expanded key attributes.
func articleItem(t *testing.T, a corpus.Article) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(a)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	av["PK"] = &types.AttributeValueMemberS{Value: corpus.ArticlePK(a.Slug)}
	av["SK"] = &types.AttributeValueMemberS{Value: corpus.ArticlePK(a.Slug)}
	av["GSI1PK"] = &types.AttributeValueMemberS{Value: corpus.StatusKey(a.Status)}
	av[entityTypeAttr] = &types.AttributeValueMemberS{Value: corpus.TypeArticle}
	return av
}

func publishRecordItem(t *testing.T, r corpus.PublishRecord) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(r)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	av["PK"] = &types.AttributeValueMemberS{Value: corpus.ArticlePK(r.ArticleSlug)}
	av["SK"] = &types.AttributeValueMemberS{Value: corpus.PublishSK(r.AttemptID)}
	av[entityTypeAttr] = &types.AttributeValueMemberS{Value: corpus.TypePublishRecord}
	return av
}

func stringAttr(t *testing.T, item map[string]types.AttributeValue, name string) string {
	t.Helper()
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("attribute %s missing or not a string: %#v", name, item[name])
	}
	return v.Value
}
