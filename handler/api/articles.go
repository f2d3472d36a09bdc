/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/pressbox/content"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/pipeline"
	"github.com/suparena/pressbox/storagemodels"
)

// listLimitMax caps one listing page.
const listLimitMax = 100

// articleRequest is the editable surface of an article. Create uses every
// field; update replaces them wholesale. Slug, status, author and timestamps
// are never client-settable.
type articleRequest struct {
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Series       string   `json:"series"`
	Tags         []string `json:"tags"`
	Body         string   `json:"body"`
	CoverImage   string   `json:"coverImage"`
	CanonicalURL string   `json:"canonicalUrl"`
}

func (h *Handler) createArticle(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	claims, err := requireAuthor(req)
	if err != nil {
		return errorResponse(err)
	}

	var in articleRequest
	if err := decodeBody(req.Body, &in); err != nil {
		return badRequest(err.Error())
	}

	slug := in.Slug
	if slug == "" {
		slug = content.Slugify(in.Title)
	}

	now := corpus.Now()
	article := corpus.Article{
		Slug:         slug,
		Title:        in.Title,
		Summary:      in.Summary,
		Series:       in.Series,
		Tags:         in.Tags,
		Status:       corpus.StatusDraft,
		Body:         in.Body,
		CoverImage:   in.CoverImage,
		CanonicalURL: in.CanonicalURL,
		Author:       claims.Subject,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := article.Validate(); err != nil {
		return errorResponse(err)
	}

	if err := h.deps.Articles.PutIfAbsent(ctx, article); err != nil {
		return errorResponse(err)
	}

	log.WithFields(map[string]interface{}{
		"slug":   slug,
		"author": claims.Subject,
	}).Info("article created")
	return jsonResponse(http.StatusCreated, article)
}

func (h *Handler) getArticle(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	slug := req.PathParameters["slug"]
	article, err := h.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return errorResponse(err)
	}
	if article == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeArticle, slug))
	}

	// Unpublished articles are visible to authors only.
	if article.Status != corpus.StatusPublished {
		if _, err := requireAuthor(req); err != nil {
			return errorResponse(err)
		}
	}
	return jsonResponse(http.StatusOK, article)
}

func (h *Handler) listArticles(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	status := req.QueryStringParameters["status"]
	if status == "" {
		status = corpus.StatusPublished
	}
	if !corpus.ValidStatus(status) {
		return badRequest(fmt.Sprintf("unknown status %q", status))
	}
	// The published listing is the public site feed; other statuses are
	// editor views.
	if status != corpus.StatusPublished {
		if _, err := requireAuthor(req); err != nil {
			return errorResponse(err)
		}
	}

	limit := int32(listLimitMax)
	if raw := req.QueryStringParameters["limit"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > listLimitMax {
			return badRequest(fmt.Sprintf("limit must be 1..%d", listLimitMax))
		}
		limit = int32(n)
	}

	params := &storagemodels.QueryParams{
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: "GSI1PK = :pk",
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: corpus.StatusKey(status)},
		},
		Limit: aws.Int32(limit),
		// Newest publication first.
		ScanIndexForward: aws.Bool(false),
	}
	items, err := h.deps.Articles.Query(ctx, params)
	if err != nil {
		return errorResponse(err)
	}

	list := make([]corpus.Article, 0, len(items))
	for _, item := range items {
		article, ok := item.(*corpus.Article)
		if !ok {
			continue
		}
		// Listings carry metadata only; bodies come from the detail route.
		trimmed := *article
		trimmed.Body = ""
		trimmed.BodyHTML = ""
		list = append(list, trimmed)
	}
	return jsonResponse(http.StatusOK, list)
}

func (h *Handler) updateArticle(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	if _, err := requireAuthor(req); err != nil {
		return errorResponse(err)
	}

	slug := req.PathParameters["slug"]
	article, err := h.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return errorResponse(err)
	}
	if article == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeArticle, slug))
	}

	var in articleRequest
	if err := decodeBody(req.Body, &in); err != nil {
		return badRequest(err.Error())
	}

	bodyChanged := in.Body != article.Body
	article.Title = in.Title
	article.Summary = in.Summary
	article.Series = in.Series
	article.Tags = in.Tags
	article.Body = in.Body
	article.CoverImage = in.CoverImage
	article.CanonicalURL = in.CanonicalURL
	article.UpdatedAt = corpus.Now()
	if err := article.Validate(); err != nil {
		return errorResponse(err)
	}

	if err := h.deps.Articles.Put(ctx, *article); err != nil {
		return errorResponse(err)
	}

	// A live article keeps serving its cached HTML until the render job
	// lands.
	if bodyChanged && article.Status == corpus.StatusPublished && h.deps.Jobs != nil {
		if err := h.deps.Jobs.EnqueueRender(ctx, slug); err != nil {
			log.Warnf("render job for %s not enqueued: %v", slug, err)
		}
	}
	return jsonResponse(http.StatusOK, article)
}

func (h *Handler) publishArticle(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	claims, err := requireAuthor(req)
	if err != nil {
		return errorResponse(err)
	}
	slug := req.PathParameters["slug"]

	// Deployments with a publication state machine route through it; the
	// run does the pipeline work and the caller polls its status.
	if h.deps.Driver != nil {
		arn, err := h.deps.Driver.StartPublication(ctx, pipeline.StartInput{
			Slug:        slug,
			RequestedBy: claims.Email,
		})
		if err != nil {
			return errorResponse(err)
		}
		return jsonResponse(http.StatusAccepted, map[string]string{
			"slug":         slug,
			"executionArn": arn,
		})
	}

	result, err := h.deps.Pipeline.Publish(ctx, slug)
	if err != nil && result == nil {
		// Republishing a live article is a settled outcome, not a fault.
		if errors.Is(err, pipeline.ErrAlreadyPublished) {
			article, getErr := h.deps.Articles.GetOne(ctx, slug)
			if getErr != nil {
				return errorResponse(getErr)
			}
			if article == nil {
				return errorResponse(pberrors.NewNotFoundError(corpus.TypeArticle, slug))
			}
			return jsonResponse(http.StatusOK, article)
		}
		return errorResponse(err)
	}
	if err != nil {
		// The article is live; one of the follow-up steps needs attention.
		log.Warnf("publish of %s completed with follow-up errors: %v", slug, err)
	}
	return jsonResponse(http.StatusOK, result.Article)
}

// scheduleRequest carries the requested publish time.
type scheduleRequest struct {
	PublishAt string `json:"publishAt"`
}

func (h *Handler) scheduleArticle(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	if _, err := requireAuthor(req); err != nil {
		return errorResponse(err)
	}
	if h.deps.Scheduler == nil {
		return errorResponse(errNilDep("scheduler"))
	}

	var in scheduleRequest
	if err := decodeBody(req.Body, &in); err != nil {
		return badRequest(err.Error())
	}
	when, err := time.Parse(time.RFC3339, in.PublishAt)
	if err != nil {
		return badRequest(fmt.Sprintf("publishAt: %v", err))
	}

	slug := req.PathParameters["slug"]
	article, err := h.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return errorResponse(err)
	}
	if article == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeArticle, slug))
	}

	article.PublishAt = corpus.At(when)
	// A scheduled article stays scheduled; this is a move, not a transition.
	if article.Status != corpus.StatusScheduled {
		if err := article.Transition(corpus.StatusScheduled); err != nil {
			return errorResponse(err)
		}
	}
	article.UpdatedAt = corpus.Now()

	// Schedule first. If the store write below fails the article stays
	// draft, and the fired schedule runs the same transition the API would.
	if _, err := h.deps.Scheduler.SchedulePublish(ctx, article); err != nil {
		return errorResponse(err)
	}
	if err := h.deps.Articles.Put(ctx, *article); err != nil {
		return errorResponse(err)
	}

	h.emit(ctx, events.ArticleScheduledEvent(article))
	return jsonResponse(http.StatusOK, article)
}

func (h *Handler) cancelSchedule(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	if _, err := requireAuthor(req); err != nil {
		return errorResponse(err)
	}
	if h.deps.Scheduler == nil {
		return errorResponse(errNilDep("scheduler"))
	}

	slug := req.PathParameters["slug"]
	article, err := h.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return errorResponse(err)
	}
	if article == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeArticle, slug))
	}

	if err := article.Transition(corpus.StatusDraft); err != nil {
		return errorResponse(err)
	}
	article.PublishAt = strfmt.DateTime{}
	article.UpdatedAt = corpus.Now()
	if err := h.deps.Articles.Put(ctx, *article); err != nil {
		return errorResponse(err)
	}
	if err := h.deps.Scheduler.CancelPublish(ctx, slug); err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, article)
}

func (h *Handler) archiveArticle(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	if _, err := requireAuthor(req); err != nil {
		return errorResponse(err)
	}

	slug := req.PathParameters["slug"]
	article, err := h.deps.Articles.GetOne(ctx, slug)
	if err != nil {
		return errorResponse(err)
	}
	if article == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeArticle, slug))
	}

	if err := article.Transition(corpus.StatusArchived); err != nil {
		return errorResponse(err)
	}
	article.UpdatedAt = corpus.Now()
	if err := h.deps.Articles.Put(ctx, *article); err != nil {
		return errorResponse(err)
	}

	h.emit(ctx, events.ArticleArchivedEvent(slug))
	return jsonResponse(http.StatusOK, article)
}

func (h *Handler) articleHistory(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	if _, err := requireAuthor(req); err != nil {
		return errorResponse(err)
	}

	records, err := h.deps.Pipeline.History(ctx, req.PathParameters["slug"])
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, records)
}

// uploadURLRequest asks for a presigned upload slot. The client computes the
// checksum so the object key is content-addressed before any bytes move.
type uploadURLRequest struct {
	ArticleSlug string `json:"articleSlug"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Checksum    string `json:"checksum"`
}

func (h *Handler) mediaUploadURL(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	if _, err := requireAuthor(req); err != nil {
		return errorResponse(err)
	}
	if h.deps.Media == nil {
		return errorResponse(errNilDep("media store"))
	}

	var in uploadURLRequest
	if err := decodeBody(req.Body, &in); err != nil {
		return badRequest(err.Error())
	}
	if !corpus.ValidSlug(in.ArticleSlug) {
		return badRequest(fmt.Sprintf("invalid article slug %q", in.ArticleSlug))
	}
	if in.FileName == "" {
		return badRequest("fileName is required")
	}
	if in.Checksum == "" {
		return badRequest("checksum is required")
	}

	key := media.ObjectKey(in.ArticleSlug, path.Base(in.FileName), in.Checksum)
	url, err := h.deps.Media.PresignUpload(ctx, key, in.ContentType, 0)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, map[string]string{
		"key":       key,
		"uploadUrl": url,
		"cdnPath":   "/" + key,
	})
}

// emit publishes domain events best-effort; the stored state is the source
// of truth and a quiet bus must not fail the request.
func (h *Handler) emit(ctx context.Context, envelopes ...events.Envelope) {
	if h.deps.Events == nil {
		return
	}
	if err := h.deps.Events.Publish(ctx, envelopes...); err != nil {
		log.Warnf("domain event not delivered: %v", err)
	}
}
