/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package scheduled

import (
	"context"
	"errors"
	"testing"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/pipeline"
)

type fakePublisher struct {
	calls   []Input
	result  *pipeline.Result
	err     error
	partial bool
}

func (f *fakePublisher) PublishAttempt(ctx context.Context, slug, attemptID string) (*pipeline.Result, error) {
	f.calls = append(f.calls, Input{Slug: slug, Attempt: attemptID})
	if f.partial {
		return f.result, f.err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesUnderStoredAttempt", func(t *testing.T) {
		fp := &fakePublisher{result: &pipeline.Result{
			Article:   &corpus.Article{Slug: "sqs-deep-dive", Status: corpus.StatusPublished},
			AttemptID: "attempt-1",
		}}
		h, err := New(fp)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		if err := h.Handle(ctx, Input{Slug: "sqs-deep-dive", Attempt: "attempt-1"}); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(fp.calls) != 1 {
			t.Fatalf("calls = %d", len(fp.calls))
		}
		if fp.calls[0].Slug != "sqs-deep-dive" || fp.calls[0].Attempt != "attempt-1" {
			t.Errorf("call = %+v", fp.calls[0])
		}
	})

	t.Run("AlreadyPublishedIsSettled", func(t *testing.T) {
		fp := &fakePublisher{err: pipeline.ErrAlreadyPublished}
		h, _ := New(fp)

		if err := h.Handle(ctx, Input{Slug: "sqs-deep-dive", Attempt: "attempt-1"}); err != nil {
			t.Fatalf("Handle = %v, want nil for settled publish", err)
		}
	})

	t.Run("PreFlipFailureSurfacesForRetry", func(t *testing.T) {
		fp := &fakePublisher{err: errors.New("render exploded")}
		h, _ := New(fp)

		if err := h.Handle(ctx, Input{Slug: "sqs-deep-dive", Attempt: "attempt-1"}); err == nil {
			t.Fatal("expected error when publication never went live")
		}
	})

	t.Run("PostFlipFollowUpFailureIsAbsorbed", func(t *testing.T) {
		fp := &fakePublisher{
			partial: true,
			result: &pipeline.Result{
				Article:   &corpus.Article{Slug: "sqs-deep-dive", Status: corpus.StatusPublished},
				AttemptID: "attempt-1",
			},
			err: errors.New("mail bounced"),
		}
		h, _ := New(fp)

		if err := h.Handle(ctx, Input{Slug: "sqs-deep-dive", Attempt: "attempt-1"}); err != nil {
			t.Fatalf("Handle = %v, want nil when article is live", err)
		}
	})

	t.Run("EmptySlugRejected", func(t *testing.T) {
		fp := &fakePublisher{}
		h, _ := New(fp)

		if err := h.Handle(ctx, Input{}); err == nil {
			t.Fatal("expected error for empty slug")
		}
		if len(fp.calls) != 0 {
			t.Error("pipeline called for empty slug")
		}
	})

	t.Run("NilPipelineRejected", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Fatal("expected constructor error")
		}
	})
}
