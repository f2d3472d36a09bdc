/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package pipeline runs publications end to end: render the Markdown, flip
// the article live under a storage condition, purge the CDN, record the
// attempt and fan the news out. One Publisher serves the API handler, the
// scheduler target and the queue worker; which steps run is a matter of
// which collaborators are wired in.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/content"
	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore"
	"github.com/suparena/pressbox/devto"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/notify"
	"github.com/suparena/pressbox/queue"
	"github.com/suparena/pressbox/storagemodels"
)

// ErrAlreadyPublished reports a publish of an article that is already live.
// It is a settled outcome, not a fault; callers surface it as success.
var ErrAlreadyPublished = errors.New("article already published")

// Storage conditions guarding the two article writes. BodyHTML is first
// written by a successful publish, so its absence marks an article that has
// never gone live; two racing publishes resolve to one winner.
const (
	neverPublished = "attribute_not_exists(BodyHTML)"
	oncePublished  = "attribute_exists(BodyHTML)"
)

// Renderer is the slice of content.Renderer the pipeline needs.
type Renderer interface {
	Render(source []byte) ([]byte, error)
}

var _ Renderer = (*content.Renderer)(nil)

// Deps carries the publisher's collaborators. Articles and Records are
// required. Every nil optional switches its step off, so a minimal
// deployment publishes with nothing but the table.
type Deps struct {
	Articles    datastore.DataStore[corpus.Article]
	Records     datastore.DataStore[corpus.PublishRecord]
	Subscribers datastore.DataStore[corpus.Subscriber]

	// Renderer converts article Markdown. Nil gets a default renderer with
	// raw HTML passthrough; wire one with an ImageRewrite option to point
	// relative image refs at the CDN.
	Renderer Renderer

	CDN    *media.Invalidator
	Events *events.Publisher
	Mailer *notify.Mailer
	Ops    *notify.Fanout
	DevTo  *devto.Client

	// Jobs and Deliveries control post-publish fan-out through the work
	// queue: after a successful site publication one delivery job per
	// listed target is enqueued.
	Jobs       *queue.Producer
	Deliveries []string
}

// Publisher executes publication attempts against one corpus.
type Publisher struct {
	deps Deps
}

// NewPublisher constructs a publisher.
func NewPublisher(deps Deps) (*Publisher, error) {
	if deps.Articles == nil {
		return nil, fmt.Errorf("nil article store")
	}
	if deps.Records == nil {
		return nil, fmt.Errorf("nil publish record store")
	}
	if deps.Renderer == nil {
		deps.Renderer = content.NewRenderer(content.RenderOptions{AllowHTML: true})
	}
	return &Publisher{deps: deps}, nil
}

// Result describes a finished publication attempt.
type Result struct {
	Article   *corpus.Article
	AttemptID string

	// Announced counts subscribers mailed in-process. Deliveries routed
	// through the queue are not in this number.
	Announced int
}

// Publish runs a full publication attempt for the article under a fresh
// attempt ID.
func (p *Publisher) Publish(ctx context.Context, slug string) (*Result, error) {
	return p.PublishAttempt(ctx, slug, corpus.NewID())
}

// PublishAttempt runs a publication attempt under the given attempt ID. The
// scheduler hands its stored attempt in here so the records line up with
// the schedule that fired.
//
// Once the article is stored published the attempt cannot fail anymore: a
// non-nil Result alongside a non-nil error means the article is live and
// one of the follow-up steps (CDN purge, record, events, announcements)
// needs attention.
func (p *Publisher) PublishAttempt(ctx context.Context, slug, attemptID string) (*Result, error) {
	if slug == "" {
		return nil, pberrors.NewValidationError("slug", "slug is required")
	}
	if attemptID == "" {
		attemptID = corpus.NewID()
	}

	article, err := p.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load article %s: %w", slug, err)
	}
	if article == nil {
		return nil, pberrors.NewNotFoundError(corpus.TypeArticle, slug)
	}
	if article.Status == corpus.StatusPublished {
		return nil, ErrAlreadyPublished
	}
	if err := article.Transition(corpus.StatusPublished); err != nil {
		p.fail(ctx, slug, attemptID, err)
		return nil, err
	}

	html, minutes, err := p.render(article)
	if err != nil {
		p.fail(ctx, slug, attemptID, err)
		return nil, err
	}

	now := corpus.Now()
	article.BodyHTML = html
	article.ReadingTime = minutes
	article.PublishAt = now
	article.UpdatedAt = now

	updates := map[string]interface{}{
		"Status":      corpus.StatusPublished,
		"BodyHTML":    html,
		"ReadingTime": minutes,
		"PublishAt":   now,
		"UpdatedAt":   now,
		"GSI1PK":      corpus.StatusKey(corpus.StatusPublished),
		"GSI1SK":      corpus.PublishedAtKey(now),
	}
	if err := p.deps.Articles.UpdateWithCondition(ctx, slug, updates, neverPublished); err != nil {
		if pberrors.IsConditionFailed(err) {
			// Lost the race against another publish of the same article.
			return nil, ErrAlreadyPublished
		}
		p.fail(ctx, slug, attemptID, err)
		return nil, fmt.Errorf("store publication of %s: %w", slug, err)
	}

	log.WithFields(map[string]interface{}{
		"slug":    slug,
		"attempt": attemptID,
	}).Info("article published")

	result := &Result{Article: article, AttemptID: attemptID}
	var followUps []error

	if p.deps.CDN != nil {
		if _, err := p.deps.CDN.Invalidate(ctx, "/articles/"+slug, "/"); err != nil {
			followUps = append(followUps, err)
		}
	}

	p.record(ctx, slug, attemptID, corpus.TargetSite, corpus.PublishSucceeded, "")

	if p.deps.Events != nil {
		if err := p.deps.Events.Publish(ctx, events.ArticlePublishedEvent(article, attemptID)); err != nil {
			followUps = append(followUps, err)
		}
	}

	if p.deps.Mailer != nil && p.deps.Subscribers != nil {
		sent, err := p.announce(ctx, article)
		result.Announced = sent
		if err != nil {
			followUps = append(followUps, err)
		}
	}

	if p.deps.Ops != nil {
		payload := events.ArticleEvent{
			Slug:      slug,
			Title:     article.Title,
			Status:    article.Status,
			AttemptID: attemptID,
		}
		if _, err := p.deps.Ops.PublishJSON(ctx, events.ArticlePublished, payload); err != nil {
			followUps = append(followUps, err)
		}
	}

	if p.deps.Jobs != nil && len(p.deps.Deliveries) > 0 {
		if err := p.deps.Jobs.EnqueueDelivery(ctx, slug, attemptID, p.deps.Deliveries...); err != nil {
			followUps = append(followUps, err)
		}
	}

	return result, errors.Join(followUps...)
}

// Refresh re-renders a live article's cached HTML in place. Render jobs
// land here after an edit to a published article; drafts are skipped
// because publish renders them anyway.
func (p *Publisher) Refresh(ctx context.Context, slug string) error {
	if slug == "" {
		return pberrors.NewValidationError("slug", "slug is required")
	}

	article, err := p.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return fmt.Errorf("load article %s: %w", slug, err)
	}
	if article == nil {
		return pberrors.NewNotFoundError(corpus.TypeArticle, slug)
	}
	if article.Status != corpus.StatusPublished {
		log.WithFields(map[string]interface{}{
			"slug":   slug,
			"status": article.Status,
		}).Debug("refresh skipped, article is not live")
		return nil
	}

	html, minutes, err := p.render(article)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"BodyHTML":    html,
		"ReadingTime": minutes,
		"UpdatedAt":   corpus.Now(),
	}
	if err := p.deps.Articles.UpdateWithCondition(ctx, slug, updates, oncePublished); err != nil {
		if pberrors.IsConditionFailed(err) {
			log.Debugf("refresh of %s skipped, article left the published set", slug)
			return nil
		}
		return fmt.Errorf("store refreshed body of %s: %w", slug, err)
	}

	if p.deps.CDN != nil {
		if _, err := p.deps.CDN.Invalidate(ctx, "/articles/"+slug); err != nil {
			return err
		}
	}
	return nil
}

// Deliver executes one queued delivery for a live article. Every delivery
// appends its own PublishRecord under a fresh attempt ID; publication ties
// the log lines back to the publish that enqueued the job.
func (p *Publisher) Deliver(ctx context.Context, slug, publication, target string) error {
	if slug == "" {
		return pberrors.NewValidationError("slug", "slug is required")
	}
	if target != corpus.TargetDevto && target != corpus.TargetEmail {
		return pberrors.NewValidationError("target", fmt.Sprintf("unknown delivery target %q", target))
	}

	article, err := p.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return fmt.Errorf("load article %s: %w", slug, err)
	}
	if article == nil {
		return pberrors.NewNotFoundError(corpus.TypeArticle, slug)
	}

	attemptID := corpus.NewID()
	logger := log.WithFields(map[string]interface{}{
		"slug":        slug,
		"target":      target,
		"attempt":     attemptID,
		"publication": publication,
	})

	if article.Status != corpus.StatusPublished {
		detail := fmt.Sprintf("article is %s, not published", article.Status)
		p.record(ctx, slug, attemptID, target, corpus.PublishFailed, detail)
		logger.Warn("delivery dropped, article is not live")
		return nil
	}

	var detail string
	switch target {
	case corpus.TargetDevto:
		detail, err = p.deliverDevto(ctx, article)
	case corpus.TargetEmail:
		var sent int
		sent, err = p.announce(ctx, article)
		detail = fmt.Sprintf("mailed %d subscribers", sent)
	}
	if err != nil {
		p.record(ctx, slug, attemptID, target, corpus.PublishFailed, err.Error())
		return err
	}

	p.record(ctx, slug, attemptID, target, corpus.PublishSucceeded, detail)
	logger.Info("delivery completed")
	return nil
}

// History returns the article's publish records, oldest attempt first.
func (p *Publisher) History(ctx context.Context, slug string) ([]*corpus.PublishRecord, error) {
	if slug == "" {
		return nil, pberrors.NewValidationError("slug", "slug is required")
	}

	params := &storagemodels.QueryParams{
		KeyConditionExpression: "PK = :pk AND begins_with(SK, :sk)",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: corpus.ArticlePK(slug)},
			":sk": &types.AttributeValueMemberS{Value: corpus.PrefixPublish},
		},
	}
	items, err := p.deps.Records.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list publish records of %s: %w", slug, err)
	}

	records := make([]*corpus.PublishRecord, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(*corpus.PublishRecord); ok {
			records = append(records, rec)
		}
	}
	// ULID attempt IDs sort chronologically.
	sort.Slice(records, func(i, j int) bool { return records[i].AttemptID < records[j].AttemptID })
	return records, nil
}

func (p *Publisher) render(article *corpus.Article) (html string, minutes int, err error) {
	out, err := p.deps.Renderer.Render([]byte(article.Body))
	if err != nil {
		return "", 0, pberrors.NewRenderError(article.Slug, "markdown", err)
	}
	return string(out), content.ReadingTime([]byte(article.Body)), nil
}

func (p *Publisher) deliverDevto(ctx context.Context, article *corpus.Article) (string, error) {
	if p.deps.DevTo == nil {
		return "", fmt.Errorf("no dev.to client configured")
	}
	published, err := p.deps.DevTo.CrossPost(ctx, article)
	if err != nil {
		return "", err
	}
	return published.URL, nil
}

// announce mails the announcement to every confirmed subscriber.
func (p *Publisher) announce(ctx context.Context, article *corpus.Article) (int, error) {
	if p.deps.Mailer == nil || p.deps.Subscribers == nil {
		return 0, fmt.Errorf("no mailer configured")
	}
	subscribers, err := p.confirmedSubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list confirmed subscribers: %w", err)
	}
	return p.deps.Mailer.SendArticleAnnouncement(ctx, article, subscribers)
}

func (p *Publisher) confirmedSubscribers(ctx context.Context) ([]*corpus.Subscriber, error) {
	params := &storagemodels.QueryParams{
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: "GSI1PK = :pk",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: corpus.SubscriberStatusKey(corpus.SubscriberConfirmed)},
		},
	}
	items, err := p.deps.Subscribers.Query(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([]*corpus.Subscriber, 0, len(items))
	for _, item := range items {
		if sub, ok := item.(*corpus.Subscriber); ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

// record appends one publish record. A failure here only logs; the attempt
// outcome stands regardless of whether the audit row landed.
func (p *Publisher) record(ctx context.Context, slug, attemptID, target, status, detail string) {
	rec := corpus.PublishRecord{
		ArticleSlug: slug,
		AttemptID:   attemptID,
		Target:      target,
		Status:      status,
		Detail:      detail,
		CreatedAt:   corpus.Now(),
	}
	if err := p.deps.Records.Put(ctx, rec); err != nil {
		log.WithFields(map[string]interface{}{
			"slug":    slug,
			"attempt": attemptID,
			"target":  target,
		}).Errorf("publish record not stored: %v", err)
	}
}

// fail records a failed site attempt and raises the failure events.
func (p *Publisher) fail(ctx context.Context, slug, attemptID string, cause error) {
	p.record(ctx, slug, attemptID, corpus.TargetSite, corpus.PublishFailed, cause.Error())

	if p.deps.Events != nil {
		if err := p.deps.Events.Publish(ctx, events.PublishFailedEvent(slug, attemptID, cause)); err != nil {
			log.Warnf("publish.failed event for %s not delivered: %v", slug, err)
		}
	}
	if p.deps.Ops != nil {
		payload := events.ArticleEvent{Slug: slug, AttemptID: attemptID, Error: cause.Error()}
		if _, err := p.deps.Ops.PublishJSON(ctx, events.PublishFailed, payload); err != nil {
			log.Warnf("publish.failed notice for %s not delivered: %v", slug, err)
		}
	}
}
