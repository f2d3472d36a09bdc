/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/storagemodels"
)

func publishedPageParams() *storagemodels.QueryParams {
	return &storagemodels.QueryParams{
		KeyConditionExpression: "GSI1PK = :pk",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "STATUS#published"},
		},
	}
}

func TestStreamPagination(t *testing.T) {
	first := draftArticle()
	second := draftArticle()
	second.Slug = "queues-in-depth"
	third := draftArticle()
	third.Slug = "dlq-patterns"

	resumeKey := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "ARTICLE#queues-in-depth"},
	}
	fake := &fakeDynamo{
		queryOuts: []sdk.QueryOutput{
			{
				Items: []map[string]types.AttributeValue{
					articleItem(t, first),
					articleItem(t, second),
				},
				LastEvaluatedKey: resumeKey,
			},
			{
				Items: []map[string]types.AttributeValue{articleItem(t, third)},
			},
		},
	}
	store := newArticleStore(t, fake)

	var slugs []string
	var lastIndex int64 = -1
	for result := range store.Stream(context.Background(), publishedPageParams()) {
		if result.Error != nil {
			t.Fatalf("unexpected stream error: %v", result.Error)
		}
		if result.Meta.Index <= lastIndex {
			t.Errorf("index should increase: got %d after %d", result.Meta.Index, lastIndex)
		}
		lastIndex = result.Meta.Index
		if result.Raw == nil {
			t.Error("raw attributes should be set")
		}
		slugs = append(slugs, result.Item.Slug)
	}

	if len(slugs) != 3 {
		t.Fatalf("expected 3 items, got %d: %v", len(slugs), slugs)
	}
	if slugs[0] != "serverless-101" || slugs[1] != "queues-in-depth" || slugs[2] != "dlq-patterns" {
		t.Errorf("unexpected order: %v", slugs)
	}

	// The second request resumes from the first page's key.
	if len(fake.queryInputs) != 2 {
		t.Fatalf("expected 2 query calls, got %d", len(fake.queryInputs))
	}
	if fake.queryInputs[1].ExclusiveStartKey == nil {
		t.Fatal("second page request should carry the resume key")
	}
	if got := stringAttr(t, fake.queryInputs[1].ExclusiveStartKey, "PK"); got != "ARTICLE#queues-in-depth" {
		t.Errorf("resume key PK = %q", got)
	}
}

func TestStreamProgressHandler(t *testing.T) {
	fake := &fakeDynamo{
		queryOuts: []sdk.QueryOutput{
			{Items: []map[string]types.AttributeValue{articleItem(t, draftArticle())}},
		},
	}
	store := newArticleStore(t, fake)

	var calls int32
	var final storagemodels.StreamProgress
	handler := func(p storagemodels.StreamProgress) {
		atomic.AddInt32(&calls, 1)
		final = p
	}

	for range store.Stream(context.Background(), publishedPageParams(),
		storagemodels.WithProgressHandler(handler)) {
	}

	// Once per page and once on completion.
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Errorf("expected at least 2 progress calls, got %d", got)
	}
	if final.ItemsProcessed != 1 {
		t.Errorf("final progress should count 1 item, got %d", final.ItemsProcessed)
	}
	if final.PagesProcessed != 1 {
		t.Errorf("final progress should count 1 page, got %d", final.PagesProcessed)
	}
}

func TestStreamErrorHandler(t *testing.T) {
	t.Run("ContinueOnError", func(t *testing.T) {
		fake := &fakeDynamo{
			queryErrs: []error{errors.New("access denied")},
			queryOuts: []sdk.QueryOutput{
				{}, // consumed by the failed call slot
				{Items: []map[string]types.AttributeValue{articleItem(t, draftArticle())}},
			},
		}
		store := newArticleStore(t, fake)

		var handled int
		resultCh := store.Stream(context.Background(), publishedPageParams(),
			storagemodels.WithMaxRetries(0),
			storagemodels.WithErrorHandler(func(err error) bool {
				handled++
				return true
			}))

		var items, errs int
		for result := range resultCh {
			if result.Error != nil {
				errs++
			} else {
				items++
			}
		}

		if handled != 1 {
			t.Errorf("error handler should run once, ran %d times", handled)
		}
		if errs != 0 {
			t.Errorf("handled errors should not surface as results, got %d", errs)
		}
		if items != 1 {
			t.Errorf("stream should continue past the handled error, got %d items", items)
		}
	})

	t.Run("AbortWithoutHandler", func(t *testing.T) {
		fake := &fakeDynamo{
			queryErrs: []error{errors.New("access denied")},
		}
		store := newArticleStore(t, fake)

		var errResults int
		for result := range store.Stream(context.Background(), publishedPageParams(),
			storagemodels.WithMaxRetries(0)) {
			if result.Error != nil {
				errResults++
			}
		}

		if errResults != 1 {
			t.Errorf("expected exactly one error result, got %d", errResults)
		}
	})
}

func TestStreamRetriesThrottling(t *testing.T) {
	var calls int32
	fake := &fakeDynamo{
		queryFn: func(call int, params *sdk.QueryInput) (*sdk.QueryOutput, error) {
			atomic.AddInt32(&calls, 1)
			if call < 2 {
				return nil, &types.ProvisionedThroughputExceededException{}
			}
			return &sdk.QueryOutput{
				Items: []map[string]types.AttributeValue{articleItem(t, draftArticle())},
			}, nil
		},
	}
	store := newArticleStore(t, fake)

	var items int
	for result := range store.Stream(context.Background(), publishedPageParams(),
		storagemodels.WithMaxRetries(3),
		storagemodels.WithRetryBackoff(time.Millisecond)) {
		if result.Error != nil {
			t.Fatalf("throttling should be retried away: %v", result.Error)
		}
		items++
	}

	if items != 1 {
		t.Errorf("expected 1 item after retries, got %d", items)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 query attempts, got %d", got)
	}
}

func TestStreamStartKeyResume(t *testing.T) {
	fake := &fakeDynamo{}
	store := newArticleStore(t, fake)

	startKey := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "ARTICLE#resume-here"},
	}
	for range store.Stream(context.Background(), publishedPageParams(),
		storagemodels.WithStartKey(startKey)) {
	}

	if fake.queryInputs[0].ExclusiveStartKey == nil {
		t.Fatal("first request should carry the start key")
	}
	if got := stringAttr(t, fake.queryInputs[0].ExclusiveStartKey, "PK"); got != "ARTICLE#resume-here" {
		t.Errorf("start key PK = %q", got)
	}
}

func TestStreamContextCancellation(t *testing.T) {
	// Endless pages; only cancellation can end this stream.
	fake := &fakeDynamo{
		queryFn: func(call int, params *sdk.QueryInput) (*sdk.QueryOutput, error) {
			return &sdk.QueryOutput{
				Items: []map[string]types.AttributeValue{articleItem(t, draftArticle())},
				LastEvaluatedKey: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ARTICLE#page-%d", call)},
				},
			}, nil
		},
	}
	store := newArticleStore(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resultCh := store.Stream(ctx, publishedPageParams(),
		storagemodels.WithBufferSize(1),
		storagemodels.WithPageSize(1))

	consumed := 0
	for range resultCh {
		consumed++
		if consumed == 2 {
			cancel()
		}
	}

	if consumed < 2 {
		t.Errorf("expected to consume at least 2 items before cancellation, got %d", consumed)
	}
}

func TestStreamRetryLogic(t *testing.T) {
	t.Run("RetryableError", func(t *testing.T) {
		if !isRetryableError(&types.ProvisionedThroughputExceededException{}) {
			t.Error("ProvisionedThroughputExceededException should be retryable")
		}
		if !isRetryableError(&types.RequestLimitExceeded{}) {
			t.Error("RequestLimitExceeded should be retryable")
		}
		if !isRetryableError(&types.InternalServerError{}) {
			t.Error("InternalServerError should be retryable")
		}
		if isRetryableError(fmt.Errorf("some other error")) {
			t.Error("generic error should not be retryable")
		}
	})
}

func TestStreamMixedPartition(t *testing.T) {
	// An article partition holds the article plus its media and publish
	// records. Streamed through a concrete-typed store, foreign items
	// surface as typed errors rather than silently corrupt values.
	record := corpus.PublishRecord{
		ArticleSlug: "serverless-101",
		AttemptID:   "01J5X2J9GW0000000000000000",
		Target:      corpus.TargetSite,
		Status:      corpus.PublishSucceeded,
		CreatedAt:   corpus.Now(),
	}
	recordItem := publishRecordItem(t, record)

	fake := &fakeDynamo{
		queryOuts: []sdk.QueryOutput{
			{Items: []map[string]types.AttributeValue{
				articleItem(t, draftArticle()),
				recordItem,
			}},
		},
	}
	store := newArticleStore(t, fake)

	var articles, foreign int
	for result := range store.Stream(context.Background(), publishedPageParams()) {
		if result.Error != nil {
			foreign++
			if result.Raw == nil {
				t.Error("foreign item should carry its raw attributes")
			}
			continue
		}
		articles++
		if result.Item.Slug != "serverless-101" {
			t.Errorf("unexpected article %q", result.Item.Slug)
		}
	}

	if articles != 1 {
		t.Errorf("expected 1 article, got %d", articles)
	}
	if foreign != 1 {
		t.Errorf("expected 1 foreign item error, got %d", foreign)
	}
}
