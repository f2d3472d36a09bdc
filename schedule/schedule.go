/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package schedule manages one-shot EventBridge Scheduler entries that fire
// an article's publication at its PublishAt time.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// Scheduler names allow [A-Za-z0-9-_.] up to 64 characters.
const maxScheduleName = 64

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9\-_.]`)

// PublishInput is the JSON payload a firing schedule delivers to the
// publish target.
type PublishInput struct {
	Slug    string `json:"slug"`
	Attempt string `json:"attempt"`
}

// Scheduler creates and cancels publish schedules in one schedule group.
type Scheduler struct {
	client    awsx.SchedulerAPI
	group     string
	targetARN string
	roleARN   string
}

// NewScheduler constructs a scheduler. group may be empty to use the
// account's default schedule group; target and role ARNs identify the
// publish Lambda and the role Scheduler assumes to invoke it.
func NewScheduler(client awsx.SchedulerAPI, group, targetARN, roleARN string) (*Scheduler, error) {
	if client == nil {
		return nil, fmt.Errorf("nil Scheduler client")
	}
	if targetARN == "" {
		return nil, fmt.Errorf("empty schedule target ARN")
	}
	if roleARN == "" {
		return nil, fmt.Errorf("empty schedule role ARN")
	}
	return &Scheduler{
		client:    client,
		group:     group,
		targetARN: targetARN,
		roleARN:   roleARN,
	}, nil
}

// ScheduleName returns the deterministic schedule name for an article, so
// rescheduling and cancelling need only the slug.
func ScheduleName(slug string) string {
	name := invalidNameChars.ReplaceAllString("pressbox-publish-"+slug, "-")
	if len(name) > maxScheduleName {
		name = name[:maxScheduleName]
	}
	return name
}

// atExpression formats a one-shot schedule expression. The at() form takes
// a local time in the schedule's timezone, which is always set to UTC here.
func atExpression(t time.Time) string {
	return fmt.Sprintf("at(%s)", t.UTC().Format("2006-01-02T15:04:05"))
}

// SchedulePublish creates the one-shot schedule for the article's PublishAt
// time and returns the attempt ID embedded in the target input. An existing
// schedule under the same name is replaced, so calling this again with a
// new time moves the publication.
func (s *Scheduler) SchedulePublish(ctx context.Context, article *corpus.Article) (string, error) {
	name, when, input, attempt, err := s.prepare(article)
	if err != nil {
		return "", err
	}

	if _, err := s.client.CreateSchedule(ctx, s.createInput(name, when, input)); err != nil {
		var conflict *types.ConflictException
		if !errors.As(err, &conflict) {
			return "", fmt.Errorf("create schedule %s: %w", name, err)
		}
		// A schedule for this slug already exists. Replace it in place.
		if _, err := s.client.UpdateSchedule(ctx, s.updateInput(name, when, input)); err != nil {
			return "", fmt.Errorf("update schedule %s: %w", name, err)
		}
	}

	log.WithFields(map[string]interface{}{
		"schedule": name,
		"at":       when.UTC().Format(time.RFC3339),
		"attempt":  attempt,
	}).Info("publish scheduled")
	return attempt, nil
}

// Reschedule moves an existing schedule to the article's current PublishAt
// and returns the fresh attempt ID. A missing schedule is created instead.
func (s *Scheduler) Reschedule(ctx context.Context, article *corpus.Article) (string, error) {
	name, when, input, attempt, err := s.prepare(article)
	if err != nil {
		return "", err
	}

	if _, err := s.client.UpdateSchedule(ctx, s.updateInput(name, when, input)); err != nil {
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("update schedule %s: %w", name, err)
		}
		if _, err := s.client.CreateSchedule(ctx, s.createInput(name, when, input)); err != nil {
			return "", fmt.Errorf("create schedule %s: %w", name, err)
		}
	}
	return attempt, nil
}

// CancelPublish removes the article's schedule. Cancelling when no schedule
// exists is not an error; the publication may already have fired and
// deleted itself.
func (s *Scheduler) CancelPublish(ctx context.Context, slug string) error {
	name := ScheduleName(slug)
	input := &scheduler.DeleteScheduleInput{Name: &name}
	if s.group != "" {
		input.GroupName = &s.group
	}

	if _, err := s.client.DeleteSchedule(ctx, input); err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("delete schedule %s: %w", name, err)
	}
	return nil
}

// PendingPublish describes an article's outstanding schedule.
type PendingPublish struct {
	Name       string
	Expression string
	Input      PublishInput
}

// Pending returns the article's outstanding schedule, or nil when none
// exists.
func (s *Scheduler) Pending(ctx context.Context, slug string) (*PendingPublish, error) {
	name := ScheduleName(slug)
	input := &scheduler.GetScheduleInput{Name: &name}
	if s.group != "" {
		input.GroupName = &s.group
	}

	out, err := s.client.GetSchedule(ctx, input)
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule %s: %w", name, err)
	}

	pending := &PendingPublish{Name: name}
	if out.ScheduleExpression != nil {
		pending.Expression = *out.ScheduleExpression
	}
	if out.Target != nil && out.Target.Input != nil {
		if err := json.Unmarshal([]byte(*out.Target.Input), &pending.Input); err != nil {
			return nil, fmt.Errorf("schedule %s carries malformed input: %w", name, err)
		}
	}
	return pending, nil
}

// prepare validates the article and builds the pieces every schedule write
// needs. The publish time is normalized the same way stored timestamps are.
func (s *Scheduler) prepare(article *corpus.Article) (name string, when time.Time, input []byte, attempt string, err error) {
	if article == nil || article.Slug == "" {
		return "", time.Time{}, nil, "", pberrors.NewValidationError("slug", "required")
	}
	when = time.Time(corpus.At(time.Time(article.PublishAt)))
	if when.IsZero() {
		return "", time.Time{}, nil, "", pberrors.NewValidationError("publishAt", "required for scheduling")
	}
	if !when.After(time.Now()) {
		return "", time.Time{}, nil, "", pberrors.NewValidationError("publishAt", "must be in the future")
	}

	attempt = corpus.NewID()
	input, err = json.Marshal(PublishInput{Slug: article.Slug, Attempt: attempt})
	if err != nil {
		return "", time.Time{}, nil, "", fmt.Errorf("marshal schedule input: %w", err)
	}
	return ScheduleName(article.Slug), when, input, attempt, nil
}

func (s *Scheduler) createInput(name string, when time.Time, input []byte) *scheduler.CreateScheduleInput {
	create := &scheduler.CreateScheduleInput{
		Name:                       &name,
		ScheduleExpression:         aws.String(atExpression(when)),
		ScheduleExpressionTimezone: aws.String("UTC"),
		FlexibleTimeWindow: &types.FlexibleTimeWindow{
			Mode: types.FlexibleTimeWindowModeOff,
		},
		Target: &types.Target{
			Arn:     &s.targetARN,
			RoleArn: &s.roleARN,
			Input:   aws.String(string(input)),
		},
		ActionAfterCompletion: types.ActionAfterCompletionDelete,
		State:                 types.ScheduleStateEnabled,
	}
	if s.group != "" {
		create.GroupName = &s.group
	}
	return create
}

func (s *Scheduler) updateInput(name string, when time.Time, input []byte) *scheduler.UpdateScheduleInput {
	update := &scheduler.UpdateScheduleInput{
		Name:                       &name,
		ScheduleExpression:         aws.String(atExpression(when)),
		ScheduleExpressionTimezone: aws.String("UTC"),
		FlexibleTimeWindow: &types.FlexibleTimeWindow{
			Mode: types.FlexibleTimeWindowModeOff,
		},
		Target: &types.Target{
			Arn:     &s.targetARN,
			RoleArn: &s.roleARN,
			Input:   aws.String(string(input)),
		},
		ActionAfterCompletion: types.ActionAfterCompletionDelete,
		State:                 types.ScheduleStateEnabled,
	}
	if s.group != "" {
		update.GroupName = &s.group
	}
	return update
}
