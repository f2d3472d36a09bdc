/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/storagemodels"
)

// TimeRangeQueryBuilder narrows a GSI query to a time window. It drives the
// publication panes: articles published in the last week, subscribers who
// joined this month.
type TimeRangeQueryBuilder[T any] struct {
	*GSIQueryBuilder[T]
}

// timeKey formats a bound the way entity timestamps marshal into index
// keys: UTC, second precision, RFC3339. String comparison in the index and
// time comparison must agree.
func timeKey(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// QueryByTimeRange creates a time-based query builder over the GSI1
// partition. The sort key template supplies the time field's prefix.
func (d *DynamodbDataStore[T]) QueryByTimeRange(partitionKey string) *TimeRangeQueryBuilder[T] {
	return &TimeRangeQueryBuilder[T]{
		GSIQueryBuilder: d.QueryGSI().WithPartitionKey(partitionKey),
	}
}

// InLastHours restricts to items from the last N hours.
func (q *TimeRangeQueryBuilder[T]) InLastHours(hours int) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyGreaterThan(timeKey(time.Now().Add(-time.Duration(hours) * time.Hour)))
	return q
}

// InLastDays restricts to items from the last N days.
func (q *TimeRangeQueryBuilder[T]) InLastDays(days int) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyGreaterThan(timeKey(time.Now().AddDate(0, 0, -days)))
	return q
}

// Between restricts to items between two timestamps, inclusive.
func (q *TimeRangeQueryBuilder[T]) Between(start, end time.Time) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyBetween(timeKey(start), timeKey(end))
	return q
}

// After restricts to items after the timestamp.
func (q *TimeRangeQueryBuilder[T]) After(timestamp time.Time) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyGreaterThan(timeKey(timestamp))
	return q
}

// Before restricts to items before the timestamp.
func (q *TimeRangeQueryBuilder[T]) Before(timestamp time.Time) *TimeRangeQueryBuilder[T] {
	q.WithSortKeyLessThan(timeKey(timestamp))
	return q
}

// Today restricts to items from the current day.
func (q *TimeRangeQueryBuilder[T]) Today() *TimeRangeQueryBuilder[T] {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return q.Between(startOfDay, startOfDay.Add(24*time.Hour))
}

// ThisWeek restricts to items from the current week, Monday first.
func (q *TimeRangeQueryBuilder[T]) ThisWeek() *TimeRangeQueryBuilder[T] {
	now := time.Now()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	startOfWeek := now.AddDate(0, 0, -weekday+1)
	startOfWeek = time.Date(startOfWeek.Year(), startOfWeek.Month(), startOfWeek.Day(), 0, 0, 0, 0, startOfWeek.Location())
	return q.After(startOfWeek)
}

// ThisMonth restricts to items from the current month.
func (q *TimeRangeQueryBuilder[T]) ThisMonth() *TimeRangeQueryBuilder[T] {
	now := time.Now()
	return q.After(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
}

// WithTimeOrder sets ascending or descending order.
func (q *TimeRangeQueryBuilder[T]) WithTimeOrder(ascending bool) *TimeRangeQueryBuilder[T] {
	q.params.ScanIndexForward = aws.Bool(ascending)
	return q
}

// Latest orders newest first.
func (q *TimeRangeQueryBuilder[T]) Latest() *TimeRangeQueryBuilder[T] {
	return q.WithTimeOrder(false)
}

// Oldest orders oldest first.
func (q *TimeRangeQueryBuilder[T]) Oldest() *TimeRangeQueryBuilder[T] {
	return q.WithTimeOrder(true)
}

// Execute runs the query and returns results.
func (q *TimeRangeQueryBuilder[T]) Execute(ctx context.Context) ([]T, error) {
	return q.GSIQueryBuilder.Execute(ctx)
}

// Build constructs the final query parameters.
func (q *TimeRangeQueryBuilder[T]) Build() (*storagemodels.QueryParams, error) {
	return q.GSIQueryBuilder.Build()
}

// Stream executes the query as a stream.
func (q *TimeRangeQueryBuilder[T]) Stream(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	return q.GSIQueryBuilder.Stream(ctx, opts...)
}

// WithLimit caps the number of results.
func (q *TimeRangeQueryBuilder[T]) WithLimit(limit int32) *TimeRangeQueryBuilder[T] {
	q.GSIQueryBuilder.WithLimit(limit)
	return q
}

// WithFilter adds a filter expression.
func (q *TimeRangeQueryBuilder[T]) WithFilter(expression string, values map[string]types.AttributeValue) *TimeRangeQueryBuilder[T] {
	q.GSIQueryBuilder.WithFilter(expression, values)
	return q
}

// StreamByTime streams results ordered by time, newest first unless an
// order was chosen.
func (q *TimeRangeQueryBuilder[T]) StreamByTime(ctx context.Context, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	if q.params.ScanIndexForward == nil {
		q.Latest()
	}
	return q.Stream(ctx, opts...)
}

// TimeWindowIterator walks a time range in fixed windows. Backfills and
// digest jobs use it to process history one slice at a time.
type TimeWindowIterator[T any] struct {
	store        *DynamodbDataStore[T]
	partitionKey string
	windowSize   time.Duration
	startTime    time.Time
	endTime      time.Time
	current      time.Time
}

// QueryTimeWindows creates an iterator over [start, end) in windowSize steps.
func (d *DynamodbDataStore[T]) QueryTimeWindows(partitionKey string, start, end time.Time, windowSize time.Duration) *TimeWindowIterator[T] {
	return &TimeWindowIterator[T]{
		store:        d,
		partitionKey: partitionKey,
		windowSize:   windowSize,
		startTime:    start,
		endTime:      end,
		current:      start,
	}
}

// Next returns the next window of results and whether more windows remain.
func (it *TimeWindowIterator[T]) Next(ctx context.Context) ([]T, bool, error) {
	if !it.current.Before(it.endTime) {
		return nil, false, nil
	}

	windowEnd := it.current.Add(it.windowSize)
	if windowEnd.After(it.endTime) {
		windowEnd = it.endTime
	}

	results, err := it.store.QueryByTimeRange(it.partitionKey).
		Between(it.current, windowEnd).
		Execute(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query time window: %w", err)
	}

	it.current = windowEnd
	return results, it.current.Before(it.endTime), nil
}

// Common time-based query patterns as convenience methods

// QueryLatestItems queries the N most recent items under a partition.
func (d *DynamodbDataStore[T]) QueryLatestItems(ctx context.Context, partitionKey string, limit int32) ([]T, error) {
	return d.QueryByTimeRange(partitionKey).
		Latest().
		WithLimit(limit).
		Execute(ctx)
}

// QueryItemsSince queries items newer than the timestamp, newest first.
func (d *DynamodbDataStore[T]) QueryItemsSince(ctx context.Context, partitionKey string, since time.Time) ([]T, error) {
	return d.QueryByTimeRange(partitionKey).
		After(since).
		Latest().
		Execute(ctx)
}

// QueryItemsInDateRange queries items within a range in chronological order.
func (d *DynamodbDataStore[T]) QueryItemsInDateRange(ctx context.Context, partitionKey string, start, end time.Time) ([]T, error) {
	return d.QueryByTimeRange(partitionKey).
		Between(start, end).
		Oldest().
		Execute(ctx)
}

// StreamLatestItems streams items in reverse chronological order.
func (d *DynamodbDataStore[T]) StreamLatestItems(ctx context.Context, partitionKey string, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	return d.QueryByTimeRange(partitionKey).
		Latest().
		StreamByTime(ctx, opts...)
}
