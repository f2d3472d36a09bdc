/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package api is the Lambda behind the editor and reader HTTP API. One
// handler serves every route API Gateway proxies through; cmd/lambda/api
// wires the stores and collaborators and hands Handle to lambda.Start.
package api

import (
	"context"

	awsevents "github.com/aws/aws-lambda-go/events"

	"github.com/suparena/pressbox/auth"
	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/notify"
	"github.com/suparena/pressbox/pipeline"
	"github.com/suparena/pressbox/queue"
	"github.com/suparena/pressbox/schedule"
)

// Deps carries the handler's collaborators. Articles, Subscribers and
// Pipeline are required; a nil optional disables the routes needing it.
type Deps struct {
	Articles    datastore.DataStore[corpus.Article]
	Subscribers datastore.DataStore[corpus.Subscriber]
	Pipeline    *pipeline.Publisher

	// Driver, when wired, routes publish requests through the Step
	// Functions state machine instead of the in-process pipeline.
	Driver *pipeline.Driver

	Scheduler *schedule.Scheduler
	Media     *media.Store
	Events    *events.Publisher
	Mailer    *notify.Mailer

	// Jobs enqueues re-render work when a live article's body changes.
	Jobs *queue.Producer
}

// Handler routes API Gateway proxy requests.
type Handler struct {
	deps Deps
}

// New constructs the API handler.
func New(deps Deps) (*Handler, error) {
	if deps.Articles == nil {
		return nil, errNilDep("article store")
	}
	if deps.Subscribers == nil {
		return nil, errNilDep("subscriber store")
	}
	if deps.Pipeline == nil {
		return nil, errNilDep("pipeline")
	}
	return &Handler{deps: deps}, nil
}

// Handle dispatches one proxy request. Errors surface in the response body,
// never through the Lambda error channel, so API Gateway keeps serving JSON.
func (h *Handler) Handle(ctx context.Context, req awsevents.APIGatewayProxyRequest) (awsevents.APIGatewayProxyResponse, error) {
	route := req.HTTPMethod + " " + req.Resource
	log.WithFields(map[string]interface{}{
		"route":     route,
		"requestId": req.RequestContext.RequestID,
	}).Debug("api request")

	switch route {
	case "POST /articles":
		return h.createArticle(ctx, req), nil
	case "GET /articles":
		return h.listArticles(ctx, req), nil
	case "GET /articles/{slug}":
		return h.getArticle(ctx, req), nil
	case "PUT /articles/{slug}":
		return h.updateArticle(ctx, req), nil
	case "POST /articles/{slug}/publish":
		return h.publishArticle(ctx, req), nil
	case "POST /articles/{slug}/schedule":
		return h.scheduleArticle(ctx, req), nil
	case "DELETE /articles/{slug}/schedule":
		return h.cancelSchedule(ctx, req), nil
	case "POST /articles/{slug}/archive":
		return h.archiveArticle(ctx, req), nil
	case "GET /articles/{slug}/history":
		return h.articleHistory(ctx, req), nil
	case "POST /media/upload-url":
		return h.mediaUploadURL(ctx, req), nil
	case "POST /subscribers":
		return h.subscribe(ctx, req), nil
	case "GET /subscribers/confirm":
		return h.confirmSubscriber(ctx, req), nil
	case "GET /subscribers/unsubscribe":
		return h.unsubscribe(ctx, req), nil
	default:
		return notFoundResponse("no route " + route), nil
	}
}

// requireAuthor resolves the caller and checks authors-group membership.
func requireAuthor(req awsevents.APIGatewayProxyRequest) (*auth.Claims, error) {
	claims, err := auth.FromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := claims.RequireGroup(auth.AuthorsGroup); err != nil {
		return nil, err
	}
	return claims, nil
}
