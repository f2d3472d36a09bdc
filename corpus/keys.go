/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package corpus

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Key builders for query parameters. GetOne and Delete take the bare
// identity (slug, email) and expand it through the index map themselves;
// these helpers are for Query key conditions, which need the full values.

// ArticlePK returns the partition key value for an article and everything
// stored under it (media assets, publish records).
func ArticlePK(slug string) string { return PrefixArticle + slug }

// SeriesPK returns the partition key value for a series.
func SeriesPK(slug string) string { return PrefixSeries + slug }

// SubscriberPK returns the partition key value for a subscriber.
func SubscriberPK(email string) string { return PrefixSubscriber + email }

// StatusKey returns the GSI1 partition key value listing articles in a
// given lifecycle status.
func StatusKey(status string) string { return PrefixStatus + status }

// SubscriberStatusKey returns the GSI1 partition key value listing
// subscribers in a given status.
func SubscriberStatusKey(status string) string { return PrefixSubStatus + status }

// MediaHashKey returns the GSI1 partition key value for content-hash
// dedupe lookups.
func MediaHashKey(checksum string) string { return PrefixMediaHash + checksum }

// PublishStatusKey returns the GSI1 partition key value listing publish
// records by outcome.
func PublishStatusKey(status string) string { return PrefixPubStatus + status }

// MediaSK returns the sort key value for a media asset under its article.
func MediaSK(objectKey string) string { return PrefixMedia + objectKey }

// PublishSK returns the sort key value for a publish record under its
// article. AttemptIDs are ULIDs, so the records sort chronologically.
func PublishSK(attemptID string) string { return PrefixPublish + attemptID }

// PublishedAtKey returns the GSI1 sort key value placing an article on the
// publication timeline. Second precision keeps string order and time order
// identical.
func PublishedAtKey(t strfmt.DateTime) string {
	return PrefixPublish + time.Time(t).UTC().Format(time.RFC3339)
}

// Now returns the current time as stored on corpus entities: UTC, second
// precision. Sub-second fractions marshal into index keys at variable
// width, which would break their string ordering.
func Now() strfmt.DateTime {
	return At(time.Now())
}

// At normalizes an arbitrary time to the stored timestamp form. Timestamps
// accepted from clients (a scheduled publish time) go through here before
// they land in a sort key.
func At(t time.Time) strfmt.DateTime {
	return strfmt.DateTime(t.UTC().Truncate(time.Second))
}

// NewSubscriber creates a pending subscriber with a fresh ID and
// confirmation token. The subscriber stays pending until the token is
// redeemed.
func NewSubscriber(email string) *Subscriber {
	now := Now()
	return &Subscriber{
		ID:           uuid.NewString(),
		Email:        email,
		Status:       SubscriberPending,
		ConfirmToken: uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
