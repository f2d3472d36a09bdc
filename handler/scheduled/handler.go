/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package scheduled is the Lambda target of EventBridge Scheduler. When a
// one-shot publish schedule fires, it runs the publication under the
// attempt ID stored with the schedule, so the audit records line up with
// the schedule that triggered them.
package scheduled

import (
	"context"
	"errors"
	"fmt"

	"github.com/suparena/pressbox/log"
	"github.com/suparena/pressbox/pipeline"
)

// Input is the JSON the schedule carries as its target input.
type Input struct {
	Slug    string `json:"slug"`
	Attempt string `json:"attempt"`
}

// Publisher is the slice of pipeline.Publisher the handler needs.
type Publisher interface {
	PublishAttempt(ctx context.Context, slug, attemptID string) (*pipeline.Result, error)
}

var _ Publisher = (*pipeline.Publisher)(nil)

// Handler publishes articles when their schedule fires.
type Handler struct {
	pipeline Publisher
}

// New constructs the scheduled-publish handler.
func New(p Publisher) (*Handler, error) {
	if p == nil {
		return nil, fmt.Errorf("nil pipeline")
	}
	return &Handler{pipeline: p}, nil
}

// Handle runs one fired schedule. An already-published article is a
// settled outcome; the schedule raced a manual publish and there is
// nothing left to do. A publication that went live but left follow-up
// work incomplete also returns nil, since an async retry would hit the
// already-published guard without rerunning the follow-ups.
func (h *Handler) Handle(ctx context.Context, in Input) error {
	if in.Slug == "" {
		return fmt.Errorf("schedule input has no slug")
	}

	logger := log.WithFields(map[string]interface{}{
		"slug":    in.Slug,
		"attempt": in.Attempt,
	})
	logger.Info("scheduled publish fired")

	result, err := h.pipeline.PublishAttempt(ctx, in.Slug, in.Attempt)
	if err != nil {
		if errors.Is(err, pipeline.ErrAlreadyPublished) {
			logger.Info("article already live, schedule is settled")
			return nil
		}
		if result != nil {
			logger.Warnf("published with incomplete follow-ups: %v", err)
			return nil
		}
		logger.Errorf("scheduled publish failed: %v", err)
		return err
	}

	logger.WithField("announced", result.Announced).Info("scheduled publish completed")
	return nil
}
