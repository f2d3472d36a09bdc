/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/log"
)

// subscribeRequest is a reader signing up for announcements.
type subscribeRequest struct {
	Email  string   `json:"email"`
	Topics []string `json:"topics"`
}

// subscribeResponse hides the stored record; the token travels by mail only.
type subscribeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// subscribe starts (or restarts) the double opt-in flow. The endpoint is
// idempotent per address: a pending subscriber gets the confirmation mail
// again, a confirmed one is acknowledged, an unsubscribed one is
// reactivated. Bounced addresses stay suppressed.
func (h *Handler) subscribe(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	var in subscribeRequest
	if err := decodeBody(req.Body, &in); err != nil {
		return badRequest(err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	sub := corpus.NewSubscriber(email)
	sub.Topics = in.Topics
	if err := sub.Validate(); err != nil {
		return errorResponse(err)
	}

	err := h.deps.Subscribers.PutIfAbsent(ctx, *sub)
	if err == nil {
		h.sendConfirmation(ctx, sub)
		return jsonResponse(http.StatusAccepted, subscribeResponse{ID: sub.ID, Status: sub.Status})
	}
	if !pberrors.IsAlreadyExists(err) {
		return errorResponse(err)
	}

	existing, err := h.deps.Subscribers.GetOne(ctx, email)
	if err != nil {
		return errorResponse(err)
	}
	if existing == nil {
		// Raced with a delete; treat the fresh record as the outcome.
		if err := h.deps.Subscribers.Put(ctx, *sub); err != nil {
			return errorResponse(err)
		}
		h.sendConfirmation(ctx, sub)
		return jsonResponse(http.StatusAccepted, subscribeResponse{ID: sub.ID, Status: sub.Status})
	}

	switch existing.Status {
	case corpus.SubscriberConfirmed:
		return jsonResponse(http.StatusOK, subscribeResponse{ID: existing.ID, Status: existing.Status})

	case corpus.SubscriberPending:
		h.sendConfirmation(ctx, existing)
		return jsonResponse(http.StatusAccepted, subscribeResponse{ID: existing.ID, Status: existing.Status})

	case corpus.SubscriberUnsubscribed:
		existing.Status = corpus.SubscriberPending
		existing.ConfirmToken = uuid.NewString()
		existing.Topics = in.Topics
		existing.UpdatedAt = corpus.Now()
		if err := h.deps.Subscribers.Put(ctx, *existing); err != nil {
			return errorResponse(err)
		}
		h.sendConfirmation(ctx, existing)
		return jsonResponse(http.StatusAccepted, subscribeResponse{ID: existing.ID, Status: existing.Status})

	default:
		// Bounced addresses never reactivate through the public endpoint.
		return errorResponse(fmt.Errorf("address suppressed after bounce: %w", pberrors.ErrAlreadyExists))
	}
}

func (h *Handler) confirmSubscriber(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	email := strings.ToLower(req.QueryStringParameters["email"])
	token := req.QueryStringParameters["token"]
	if email == "" || token == "" {
		return badRequest("email and token are required")
	}

	sub, err := h.deps.Subscribers.GetOne(ctx, email)
	if err != nil {
		return errorResponse(err)
	}
	if sub == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeSubscriber, email))
	}
	if sub.Status == corpus.SubscriberConfirmed {
		return jsonResponse(http.StatusOK, subscribeResponse{ID: sub.ID, Status: sub.Status})
	}
	if sub.Status != corpus.SubscriberPending || sub.ConfirmToken != token {
		return badRequest("invalid confirmation token")
	}

	sub.Status = corpus.SubscriberConfirmed
	sub.UpdatedAt = corpus.Now()
	if err := h.deps.Subscribers.Put(ctx, *sub); err != nil {
		return errorResponse(err)
	}

	h.emit(ctx, events.SubscriberConfirmedEvent(sub))
	log.WithFields(map[string]interface{}{"subscriber": sub.ID}).Info("subscriber confirmed")
	return jsonResponse(http.StatusOK, subscribeResponse{ID: sub.ID, Status: sub.Status})
}

// unsubscribe honors the one-click link embedded in every announcement. The
// token gate keeps third parties from unsubscribing someone else.
func (h *Handler) unsubscribe(ctx context.Context, req awsevents.APIGatewayProxyRequest) awsevents.APIGatewayProxyResponse {
	email := strings.ToLower(req.QueryStringParameters["email"])
	token := req.QueryStringParameters["token"]
	if email == "" || token == "" {
		return badRequest("email and token are required")
	}

	sub, err := h.deps.Subscribers.GetOne(ctx, email)
	if err != nil {
		return errorResponse(err)
	}
	if sub == nil {
		return errorResponse(pberrors.NewNotFoundError(corpus.TypeSubscriber, email))
	}
	if sub.ConfirmToken != token {
		return badRequest("invalid unsubscribe token")
	}
	if sub.Status == corpus.SubscriberUnsubscribed {
		return jsonResponse(http.StatusOK, subscribeResponse{ID: sub.ID, Status: sub.Status})
	}

	sub.Status = corpus.SubscriberUnsubscribed
	sub.UpdatedAt = corpus.Now()
	if err := h.deps.Subscribers.Put(ctx, *sub); err != nil {
		return errorResponse(err)
	}

	log.WithFields(map[string]interface{}{"subscriber": sub.ID}).Info("subscriber unsubscribed")
	return jsonResponse(http.StatusOK, subscribeResponse{ID: sub.ID, Status: sub.Status})
}

// sendConfirmation mails the opt-in link. The stored record is the outcome;
// a failed send is retried by the reader resubmitting the form.
func (h *Handler) sendConfirmation(ctx context.Context, sub *corpus.Subscriber) {
	if h.deps.Mailer == nil {
		return
	}
	if err := h.deps.Mailer.SendConfirmation(ctx, sub); err != nil {
		log.Warnf("confirmation mail for %s not sent: %v", sub.ID, err)
	}
}
