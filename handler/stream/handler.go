/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package stream is the Lambda behind the table's DynamoDB stream. It
// turns item writes into domain events, so table writes that bypass the
// in-process pipeline (bulk syncs, manual fixes) still reach the bus.
// Deployments using it subscribe automation to the bus, not to the table.
package stream

import (
	"context"
	"errors"
	"fmt"

	awsevents "github.com/aws/aws-lambda-go/events"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/log"
)

// Bus is the slice of events.Publisher the handler needs.
type Bus interface {
	Publish(ctx context.Context, envelopes ...events.Envelope) error
}

var _ Bus = (*events.Publisher)(nil)

// Handler translates stream records into domain events.
type Handler struct {
	bus Bus
}

// New constructs the stream handler.
func New(bus Bus) (*Handler, error) {
	if bus == nil {
		return nil, fmt.Errorf("nil event bus")
	}
	return &Handler{bus: bus}, nil
}

// Handle processes one stream batch. Records that produce no event are
// skipped; publish failures are joined and returned so Lambda redelivers
// the batch.
func (h *Handler) Handle(ctx context.Context, ev awsevents.DynamoDBEvent) error {
	var failures []error
	for _, record := range ev.Records {
		envelope, ok := h.translate(record)
		if !ok {
			continue
		}
		if err := h.bus.Publish(ctx, envelope); err != nil {
			failures = append(failures, fmt.Errorf("record %s: %w", record.EventID, err))
		}
	}
	return errors.Join(failures...)
}

// translate maps one stream record to its domain event, if any. Articles
// entering the published set become article.published; failed publish
// records becoming visible raise publish.failed.
func (h *Handler) translate(record awsevents.DynamoDBEventRecord) (events.Envelope, bool) {
	if record.EventName == string(awsevents.DynamoDBOperationTypeRemove) {
		return events.Envelope{}, false
	}

	newImage := record.Change.NewImage
	switch strAttr(newImage, "EntityType") {
	case corpus.TypeArticle:
		return h.translateArticle(record)
	case corpus.TypePublishRecord:
		return h.translatePublishRecord(record)
	default:
		return events.Envelope{}, false
	}
}

func (h *Handler) translateArticle(record awsevents.DynamoDBEventRecord) (events.Envelope, bool) {
	newStatus := strAttr(record.Change.NewImage, "Status")
	oldStatus := strAttr(record.Change.OldImage, "Status")
	if newStatus != corpus.StatusPublished || oldStatus == corpus.StatusPublished {
		return events.Envelope{}, false
	}

	slug := strAttr(record.Change.NewImage, "Slug")
	if slug == "" {
		log.Warnf("article stream record %s has no slug", record.EventID)
		return events.Envelope{}, false
	}

	article := &corpus.Article{
		Slug:   slug,
		Title:  strAttr(record.Change.NewImage, "Title"),
		Status: newStatus,
	}
	// The write carries no attempt identity; the event still names the
	// article so subscribers can react.
	return events.ArticlePublishedEvent(article, ""), true
}

func (h *Handler) translatePublishRecord(record awsevents.DynamoDBEventRecord) (events.Envelope, bool) {
	// Only newly visible failures are interesting; a modified record was
	// already reported when it appeared.
	if record.EventName != string(awsevents.DynamoDBOperationTypeInsert) {
		return events.Envelope{}, false
	}
	if strAttr(record.Change.NewImage, "Status") != corpus.PublishFailed {
		return events.Envelope{}, false
	}

	slug := strAttr(record.Change.NewImage, "ArticleSlug")
	attempt := strAttr(record.Change.NewImage, "AttemptID")
	if slug == "" || attempt == "" {
		log.Warnf("publish record stream record %s is missing its keys", record.EventID)
		return events.Envelope{}, false
	}

	var cause error
	if detail := strAttr(record.Change.NewImage, "Detail"); detail != "" {
		cause = errors.New(detail)
	}
	return events.PublishFailedEvent(slug, attempt, cause), true
}

// strAttr reads a string attribute from a stream image, tolerating absent
// attributes and non-string types.
func strAttr(image map[string]awsevents.DynamoDBAttributeValue, name string) string {
	attr, ok := image[name]
	if !ok || attr.DataType() != awsevents.DataTypeString {
		return ""
	}
	return attr.String()
}
