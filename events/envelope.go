/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package events publishes the engine's domain events to EventBridge.
// Downstream automation (feed rebuilds, search indexing, ops alerts)
// subscribes to the bus instead of being called from the pipeline.
package events

import (
	"time"

	"github.com/suparena/pressbox/corpus"
)

// Source identifies this engine on the bus.
const Source = "pressbox"

// Detail types emitted by the engine.
const (
	ArticlePublished    = "article.published"
	ArticleScheduled    = "article.scheduled"
	ArticleArchived     = "article.archived"
	MediaAttached       = "media.attached"
	SubscriberConfirmed = "subscriber.confirmed"
	PublishFailed       = "publish.failed"
)

// Envelope is one domain event before serialization. Subject names the
// entity the event is about (an article slug, a subscriber ID) and is also
// surfaced through the entry's resources so bus rules can match on it.
type Envelope struct {
	ID         string
	DetailType string
	Subject    string
	Time       time.Time
	Payload    interface{}
}

// NewEvent builds an envelope with a fresh ULID and the current time.
func NewEvent(detailType, subject string, payload interface{}) Envelope {
	return Envelope{
		ID:         corpus.NewID(),
		DetailType: detailType,
		Subject:    subject,
		Time:       time.Now().UTC(),
		Payload:    payload,
	}
}

// ArticleEvent is the payload for article lifecycle events.
type ArticleEvent struct {
	Slug      string `json:"slug"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status,omitempty"`
	AttemptID string `json:"attemptId,omitempty"`
	PublishAt string `json:"publishAt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MediaEvent is the payload for media.attached.
type MediaEvent struct {
	Slug     string `json:"slug"`
	Key      string `json:"key"`
	Checksum string `json:"checksum"`
	CDNPath  string `json:"cdnPath,omitempty"`
}

// SubscriberEvent is the payload for subscriber.confirmed. It carries the
// opaque subscriber ID, never the address; the bus is not a place for
// addresses.
type SubscriberEvent struct {
	ID     string   `json:"id"`
	Topics []string `json:"topics,omitempty"`
}

// ArticlePublishedEvent announces a successful publication.
func ArticlePublishedEvent(a *corpus.Article, attemptID string) Envelope {
	return NewEvent(ArticlePublished, a.Slug, ArticleEvent{
		Slug:      a.Slug,
		Title:     a.Title,
		Status:    a.Status,
		AttemptID: attemptID,
	})
}

// ArticleScheduledEvent announces that an article was queued for a future
// publish time.
func ArticleScheduledEvent(a *corpus.Article) Envelope {
	return NewEvent(ArticleScheduled, a.Slug, ArticleEvent{
		Slug:      a.Slug,
		Title:     a.Title,
		Status:    a.Status,
		PublishAt: a.PublishAt.String(),
	})
}

// ArticleArchivedEvent announces an article leaving the published set.
func ArticleArchivedEvent(slug string) Envelope {
	return NewEvent(ArticleArchived, slug, ArticleEvent{
		Slug:   slug,
		Status: corpus.StatusArchived,
	})
}

// MediaAttachedEvent announces a new asset recorded for an article.
func MediaAttachedEvent(asset *corpus.MediaAsset) Envelope {
	return NewEvent(MediaAttached, asset.ArticleSlug, MediaEvent{
		Slug:     asset.ArticleSlug,
		Key:      asset.Key,
		Checksum: asset.Checksum,
		CDNPath:  asset.CDNPath,
	})
}

// SubscriberConfirmedEvent announces a completed double opt-in.
func SubscriberConfirmedEvent(s *corpus.Subscriber) Envelope {
	return NewEvent(SubscriberConfirmed, s.ID, SubscriberEvent{
		ID:     s.ID,
		Topics: s.Topics,
	})
}

// PublishFailedEvent announces a failed publication attempt.
func PublishFailedEvent(slug, attemptID string, cause error) Envelope {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return NewEvent(PublishFailed, slug, ArticleEvent{
		Slug:      slug,
		AttemptID: attemptID,
		Error:     detail,
	})
}
