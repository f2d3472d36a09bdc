/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package events

import (
	"testing"
	"time"

	"github.com/oklog/ulid"

	"github.com/suparena/pressbox/corpus"
)

func TestNewEvent(t *testing.T) {
	env := NewEvent(ArticlePublished, "serverless-101", nil)

	if _, err := ulid.Parse(env.ID); err != nil {
		t.Errorf("event ID %q is not a ULID: %v", env.ID, err)
	}
	if env.DetailType != ArticlePublished || env.Subject != "serverless-101" {
		t.Errorf("envelope = %+v", env)
	}
	if time.Since(env.Time) > time.Minute {
		t.Errorf("event time %v is stale", env.Time)
	}
	if env.Time.Location() != time.UTC {
		t.Errorf("event time not UTC: %v", env.Time)
	}

	other := NewEvent(ArticlePublished, "serverless-101", nil)
	if other.ID == env.ID {
		t.Error("event IDs must be unique")
	}
}

func TestEventHelpers(t *testing.T) {
	t.Run("ArticlePublished", func(t *testing.T) {
		a := &corpus.Article{Slug: "s", Title: "T", Status: corpus.StatusPublished}
		env := ArticlePublishedEvent(a, "attempt-1")
		if env.DetailType != ArticlePublished || env.Subject != "s" {
			t.Errorf("envelope = %+v", env)
		}
		payload := env.Payload.(ArticleEvent)
		if payload.AttemptID != "attempt-1" || payload.Title != "T" {
			t.Errorf("payload = %+v", payload)
		}
	})

	t.Run("ArticleScheduled", func(t *testing.T) {
		a := &corpus.Article{
			Slug:      "s",
			Status:    corpus.StatusScheduled,
			PublishAt: corpus.At(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)),
		}
		env := ArticleScheduledEvent(a)
		payload := env.Payload.(ArticleEvent)
		if payload.PublishAt == "" {
			t.Error("scheduled event should carry the publish time")
		}
	})

	t.Run("ArticleArchived", func(t *testing.T) {
		env := ArticleArchivedEvent("s")
		payload := env.Payload.(ArticleEvent)
		if payload.Status != corpus.StatusArchived {
			t.Errorf("payload = %+v", payload)
		}
	})

	t.Run("MediaAttached", func(t *testing.T) {
		asset := &corpus.MediaAsset{
			Key:         "media/s/abc-a.png",
			ArticleSlug: "s",
			Checksum:    "abc",
			CDNPath:     "/media/s/abc-a.png",
		}
		env := MediaAttachedEvent(asset)
		if env.Subject != "s" {
			t.Errorf("subject = %q", env.Subject)
		}
		payload := env.Payload.(MediaEvent)
		if payload.Key != asset.Key || payload.Checksum != "abc" {
			t.Errorf("payload = %+v", payload)
		}
	})

	t.Run("SubscriberConfirmed", func(t *testing.T) {
		s := corpus.NewSubscriber("reader@example.com")
		s.Topics = []string{"lambda"}
		env := SubscriberConfirmedEvent(s)
		if env.Subject != s.ID {
			t.Errorf("subject = %q, want subscriber ID", env.Subject)
		}
		payload := env.Payload.(SubscriberEvent)
		if payload.ID != s.ID || len(payload.Topics) != 1 {
			t.Errorf("payload = %+v", payload)
		}
	})

	t.Run("PublishFailed", func(t *testing.T) {
		env := PublishFailedEvent("s", "attempt-9", nil)
		if payload := env.Payload.(ArticleEvent); payload.Error != "" {
			t.Errorf("nil cause produced error text %q", payload.Error)
		}

		env = PublishFailedEvent("s", "attempt-9", errTest("render exploded"))
		payload := env.Payload.(ArticleEvent)
		if payload.Error != "render exploded" || payload.AttemptID != "attempt-9" {
			t.Errorf("payload = %+v", payload)
		}
	})
}

type errTest string

func (e errTest) Error() string { return string(e) }
