/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package corpus

import (
	"github.com/go-openapi/strfmt"
)

// Key prefixes for the single-table schema. Every stored item's PK/SK and
// GSI keys are built from these through the registered index maps.
const (
	PrefixArticle    = "ARTICLE#"
	PrefixSeries     = "SERIES#"
	PrefixSubscriber = "SUBSCRIBER#"
	PrefixMedia      = "MEDIA#"
	PrefixPublish    = "PUBLISH#"
	PrefixStatus     = "STATUS#"
	PrefixSubStatus  = "SUBSTATUS#"
	PrefixMediaHash  = "MEDIAHASH#"
	PrefixPubStatus  = "PUBSTATUS#"
)

// EntityType values stored alongside every item for polymorphic unmarshaling.
const (
	TypeArticle       = "Article"
	TypeSeries        = "Series"
	TypeSubscriber    = "Subscriber"
	TypeMediaAsset    = "MediaAsset"
	TypePublishRecord = "PublishRecord"
)

// Article is one instructional piece of the corpus: Markdown body, rendered
// HTML cache, and the publication metadata the pipeline operates on.
type Article struct {
	// Slug uniquely identifies the article and doubles as its URL path
	// segment. Lowercase, hyphen-separated.
	Slug string `json:"slug" dynamodbav:"Slug"`

	Title   string `json:"title" dynamodbav:"Title"`
	Summary string `json:"summary,omitempty" dynamodbav:"Summary,omitempty"`

	// Series is the slug of the series this article belongs to, if any.
	Series string `json:"series,omitempty" dynamodbav:"Series,omitempty"`

	Tags []string `json:"tags,omitempty" dynamodbav:"Tags,omitempty"`

	// Status is one of draft, scheduled, published, archived.
	Status string `json:"status" dynamodbav:"Status"`

	// Body is the Markdown source. BodyHTML caches the rendered output and
	// is refreshed by the pipeline on publish.
	Body     string `json:"body,omitempty" dynamodbav:"Body,omitempty"`
	BodyHTML string `json:"bodyHtml,omitempty" dynamodbav:"BodyHTML,omitempty"`

	CoverImage   string `json:"coverImage,omitempty" dynamodbav:"CoverImage,omitempty"`
	CanonicalURL string `json:"canonicalUrl,omitempty" dynamodbav:"CanonicalURL,omitempty"`

	// PublishAt is when a scheduled article goes live. Required when Status
	// is scheduled; set to the actual publication time once published.
	PublishAt strfmt.DateTime `json:"publishAt,omitempty" dynamodbav:"PublishAt"`

	// ReadingTime is the estimated minutes to read, derived at render time.
	ReadingTime int `json:"readingTime,omitempty" dynamodbav:"ReadingTime,omitempty"`

	// Author is the Cognito subject of the author who owns the article.
	Author string `json:"author,omitempty" dynamodbav:"Author,omitempty"`

	CreatedAt strfmt.DateTime `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt strfmt.DateTime `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Series groups articles into an ordered tutorial track.
type Series struct {
	Slug        string `json:"slug" dynamodbav:"Slug"`
	Title       string `json:"title" dynamodbav:"Title"`
	Description string `json:"description,omitempty" dynamodbav:"Description,omitempty"`

	// ArticleSlugs lists member articles in reading order.
	ArticleSlugs []string `json:"articleSlugs,omitempty" dynamodbav:"ArticleSlugs,omitempty"`

	CreatedAt strfmt.DateTime `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt strfmt.DateTime `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Subscriber is a reader who receives article announcements by email.
// Email is the identity; ID exists for external references that should not
// leak the address.
type Subscriber struct {
	ID    string `json:"id" dynamodbav:"ID"`
	Email string `json:"email" dynamodbav:"Email"`

	// Status is one of pending, confirmed, unsubscribed, bounced.
	Status string `json:"status" dynamodbav:"Status"`

	// Topics the subscriber opted into (article tags). Empty means all.
	Topics []string `json:"topics,omitempty" dynamodbav:"Topics,omitempty"`

	// ConfirmToken is the opaque token mailed out for double opt-in.
	ConfirmToken string `json:"-" dynamodbav:"ConfirmToken,omitempty"`

	CreatedAt strfmt.DateTime `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt strfmt.DateTime `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// MediaAsset records an uploaded image or attachment belonging to an article.
// The S3 object key is content-addressed; Checksum enables dedupe lookups
// through GSI1.
type MediaAsset struct {
	Key         string `json:"key" dynamodbav:"Key"`
	ArticleSlug string `json:"articleSlug" dynamodbav:"ArticleSlug"`
	FileName    string `json:"fileName" dynamodbav:"FileName"`
	ContentType string `json:"contentType" dynamodbav:"ContentType"`
	Checksum    string `json:"checksum" dynamodbav:"Checksum"`
	ByteSize    int64  `json:"byteSize" dynamodbav:"ByteSize"`

	// CDNPath is the public path under the CDN base URL.
	CDNPath string `json:"cdnPath" dynamodbav:"CDNPath"`

	CreatedAt strfmt.DateTime `json:"createdAt" dynamodbav:"CreatedAt"`
}

// PublishRecord is the audit trail of one publication attempt against one
// target. AttemptID is a ULID, so records sort chronologically under the
// article's partition.
type PublishRecord struct {
	ArticleSlug string `json:"articleSlug" dynamodbav:"ArticleSlug"`
	AttemptID   string `json:"attemptId" dynamodbav:"AttemptID"`

	// Target is one of site, devto, email.
	Target string `json:"target" dynamodbav:"Target"`

	// Status is one of pending, succeeded, failed.
	Status string `json:"status" dynamodbav:"Status"`

	// Detail carries the failure reason or the target-side identifier
	// (e.g. the dev.to article ID) on success.
	Detail string `json:"detail,omitempty" dynamodbav:"Detail,omitempty"`

	CreatedAt strfmt.DateTime `json:"createdAt" dynamodbav:"CreatedAt"`
}

// Publication targets.
const (
	TargetSite  = "site"
	TargetDevto = "devto"
	TargetEmail = "email"
)

// PublishRecord statuses.
const (
	PublishPending   = "pending"
	PublishSucceeded = "succeeded"
	PublishFailed    = "failed"
)

// Subscriber statuses.
const (
	SubscriberPending      = "pending"
	SubscriberConfirmed    = "confirmed"
	SubscriberUnsubscribed = "unsubscribed"
	SubscriberBounced      = "bounced"
)
