/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schedule_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsscheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/go-openapi/strfmt"
	"github.com/oklog/ulid"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/schedule"
)

const (
	testGroup     = "pressbox-publishing"
	testTargetARN = "arn:aws:lambda:us-east-1:123456789012:function:pressbox-scheduled"
	testRoleARN   = "arn:aws:iam::123456789012:role/pressbox-scheduler"
)

type fakeScheduler struct {
	createInputs []*awsscheduler.CreateScheduleInput
	updateInputs []*awsscheduler.UpdateScheduleInput
	deleteInputs []*awsscheduler.DeleteScheduleInput
	getInputs    []*awsscheduler.GetScheduleInput

	createErr error
	updateErr error
	deleteErr error
	getErr    error
	getOut    *awsscheduler.GetScheduleOutput
}

var _ awsx.SchedulerAPI = (*fakeScheduler)(nil)

func (f *fakeScheduler) CreateSchedule(ctx context.Context, params *awsscheduler.CreateScheduleInput, optFns ...func(*awsscheduler.Options)) (*awsscheduler.CreateScheduleOutput, error) {
	f.createInputs = append(f.createInputs, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &awsscheduler.CreateScheduleOutput{ScheduleArn: aws.String("arn:aws:scheduler:::schedule/" + *params.Name)}, nil
}

func (f *fakeScheduler) UpdateSchedule(ctx context.Context, params *awsscheduler.UpdateScheduleInput, optFns ...func(*awsscheduler.Options)) (*awsscheduler.UpdateScheduleOutput, error) {
	f.updateInputs = append(f.updateInputs, params)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &awsscheduler.UpdateScheduleOutput{}, nil
}

func (f *fakeScheduler) DeleteSchedule(ctx context.Context, params *awsscheduler.DeleteScheduleInput, optFns ...func(*awsscheduler.Options)) (*awsscheduler.DeleteScheduleOutput, error) {
	f.deleteInputs = append(f.deleteInputs, params)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &awsscheduler.DeleteScheduleOutput{}, nil
}

func (f *fakeScheduler) GetSchedule(ctx context.Context, params *awsscheduler.GetScheduleInput, optFns ...func(*awsscheduler.Options)) (*awsscheduler.GetScheduleOutput, error) {
	f.getInputs = append(f.getInputs, params)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut != nil {
		return f.getOut, nil
	}
	return &awsscheduler.GetScheduleOutput{}, nil
}

func newTestScheduler(t *testing.T, fake *fakeScheduler) *schedule.Scheduler {
	t.Helper()
	s, err := schedule.NewScheduler(fake, testGroup, testTargetARN, testRoleARN)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	return s
}

func scheduledArticle(publishAt time.Time) *corpus.Article {
	return &corpus.Article{
		Slug:      "serverless-101",
		Title:     "Serverless 101",
		Status:    corpus.StatusScheduled,
		PublishAt: strfmt.DateTime(publishAt),
	}
}

func TestSchedulePublish(t *testing.T) {
	t.Run("CreatesOneShotSchedule", func(t *testing.T) {
		fake := &fakeScheduler{}
		s := newTestScheduler(t, fake)
		article := scheduledArticle(time.Now().Add(24 * time.Hour))

		attempt, err := s.SchedulePublish(context.Background(), article)
		if err != nil {
			t.Fatalf("SchedulePublish failed: %v", err)
		}
		if _, err := ulid.Parse(attempt); err != nil {
			t.Errorf("attempt %q is not a ULID: %v", attempt, err)
		}
		if len(fake.createInputs) != 1 {
			t.Fatalf("expected 1 CreateSchedule call, got %d", len(fake.createInputs))
		}

		in := fake.createInputs[0]
		if got := aws.ToString(in.Name); got != "pressbox-publish-serverless-101" {
			t.Errorf("schedule name = %q", got)
		}
		if got := aws.ToString(in.GroupName); got != testGroup {
			t.Errorf("group = %q, want %q", got, testGroup)
		}
		wantExpr := "at(" + time.Time(article.PublishAt).UTC().Format("2006-01-02T15:04:05") + ")"
		if got := aws.ToString(in.ScheduleExpression); got != wantExpr {
			t.Errorf("expression = %q, want %q", got, wantExpr)
		}
		if got := aws.ToString(in.ScheduleExpressionTimezone); got != "UTC" {
			t.Errorf("timezone = %q, want UTC", got)
		}
		if in.FlexibleTimeWindow == nil || in.FlexibleTimeWindow.Mode != types.FlexibleTimeWindowModeOff {
			t.Error("expected flexible time window OFF")
		}
		if in.ActionAfterCompletion != types.ActionAfterCompletionDelete {
			t.Errorf("action after completion = %q, want DELETE", in.ActionAfterCompletion)
		}
		if in.State != types.ScheduleStateEnabled {
			t.Errorf("state = %q, want ENABLED", in.State)
		}
		if in.Target == nil {
			t.Fatal("expected a target")
		}
		if got := aws.ToString(in.Target.Arn); got != testTargetARN {
			t.Errorf("target ARN = %q", got)
		}
		if got := aws.ToString(in.Target.RoleArn); got != testRoleARN {
			t.Errorf("role ARN = %q", got)
		}

		var payload schedule.PublishInput
		if err := json.Unmarshal([]byte(aws.ToString(in.Target.Input)), &payload); err != nil {
			t.Fatalf("target input is not JSON: %v", err)
		}
		if payload.Slug != "serverless-101" {
			t.Errorf("input slug = %q", payload.Slug)
		}
		if payload.Attempt != attempt {
			t.Errorf("input attempt = %q, want %q", payload.Attempt, attempt)
		}
	})

	t.Run("ExpressionIsUTC", func(t *testing.T) {
		fake := &fakeScheduler{}
		s := newTestScheduler(t, fake)
		est := time.FixedZone("EST", -5*3600)
		article := scheduledArticle(time.Date(2027, 3, 1, 14, 30, 0, 0, est))

		if _, err := s.SchedulePublish(context.Background(), article); err != nil {
			t.Fatalf("SchedulePublish failed: %v", err)
		}
		if got := aws.ToString(fake.createInputs[0].ScheduleExpression); got != "at(2027-03-01T19:30:00)" {
			t.Errorf("expression = %q, want at(2027-03-01T19:30:00)", got)
		}
	})

	t.Run("RejectsPastTime", func(t *testing.T) {
		fake := &fakeScheduler{}
		s := newTestScheduler(t, fake)
		article := scheduledArticle(time.Now().Add(-time.Hour))

		_, err := s.SchedulePublish(context.Background(), article)
		if !pberrors.IsValidationError(err) {
			t.Fatalf("expected validation error for past time, got %v", err)
		}
		if len(fake.createInputs) != 0 {
			t.Error("past time must not reach the scheduler")
		}
	})

	t.Run("RejectsMissingPublishAt", func(t *testing.T) {
		fake := &fakeScheduler{}
		s := newTestScheduler(t, fake)
		article := scheduledArticle(time.Time{})

		if _, err := s.SchedulePublish(context.Background(), article); !pberrors.IsValidationError(err) {
			t.Fatalf("expected validation error for zero time, got %v", err)
		}
	})

	t.Run("RejectsEmptySlug", func(t *testing.T) {
		s := newTestScheduler(t, &fakeScheduler{})
		if _, err := s.SchedulePublish(context.Background(), &corpus.Article{}); !pberrors.IsValidationError(err) {
			t.Fatalf("expected validation error for empty slug, got %v", err)
		}
	})

	t.Run("ExistingScheduleIsReplaced", func(t *testing.T) {
		fake := &fakeScheduler{createErr: &types.ConflictException{Message: aws.String("schedule exists")}}
		s := newTestScheduler(t, fake)
		article := scheduledArticle(time.Now().Add(48 * time.Hour))

		attempt, err := s.SchedulePublish(context.Background(), article)
		if err != nil {
			t.Fatalf("SchedulePublish failed: %v", err)
		}
		if len(fake.updateInputs) != 1 {
			t.Fatalf("expected the conflict to fall back to UpdateSchedule, got %d calls", len(fake.updateInputs))
		}
		up := fake.updateInputs[0]
		if got := aws.ToString(up.Name); got != "pressbox-publish-serverless-101" {
			t.Errorf("update name = %q", got)
		}
		if !strings.Contains(aws.ToString(up.Target.Input), attempt) {
			t.Error("update target input should carry the returned attempt")
		}
	})

	t.Run("CreateErrorPropagates", func(t *testing.T) {
		fake := &fakeScheduler{createErr: errors.New("throttled")}
		s := newTestScheduler(t, fake)

		_, err := s.SchedulePublish(context.Background(), scheduledArticle(time.Now().Add(time.Hour)))
		if err == nil || !strings.Contains(err.Error(), "throttled") {
			t.Fatalf("expected transport error, got %v", err)
		}
		if len(fake.updateInputs) != 0 {
			t.Error("non-conflict errors must not trigger an update")
		}
	})
}

func TestReschedule(t *testing.T) {
	t.Run("UpdatesInPlace", func(t *testing.T) {
		fake := &fakeScheduler{}
		s := newTestScheduler(t, fake)
		article := scheduledArticle(time.Now().Add(72 * time.Hour))

		attempt, err := s.Reschedule(context.Background(), article)
		if err != nil {
			t.Fatalf("Reschedule failed: %v", err)
		}
		if _, err := ulid.Parse(attempt); err != nil {
			t.Errorf("attempt %q is not a ULID: %v", attempt, err)
		}
		if len(fake.updateInputs) != 1 || len(fake.createInputs) != 0 {
			t.Fatalf("expected exactly one UpdateSchedule call, got update=%d create=%d",
				len(fake.updateInputs), len(fake.createInputs))
		}
		up := fake.updateInputs[0]
		if up.ActionAfterCompletion != types.ActionAfterCompletionDelete {
			t.Error("rescheduled entries must still self-delete after firing")
		}
	})

	t.Run("MissingScheduleIsCreated", func(t *testing.T) {
		fake := &fakeScheduler{updateErr: &types.ResourceNotFoundException{Message: aws.String("no schedule")}}
		s := newTestScheduler(t, fake)

		if _, err := s.Reschedule(context.Background(), scheduledArticle(time.Now().Add(time.Hour))); err != nil {
			t.Fatalf("Reschedule failed: %v", err)
		}
		if len(fake.createInputs) != 1 {
			t.Fatalf("expected fallback CreateSchedule, got %d calls", len(fake.createInputs))
		}
	})

	t.Run("UpdateErrorPropagates", func(t *testing.T) {
		fake := &fakeScheduler{updateErr: errors.New("access denied")}
		s := newTestScheduler(t, fake)

		if _, err := s.Reschedule(context.Background(), scheduledArticle(time.Now().Add(time.Hour))); err == nil {
			t.Fatal("expected error")
		}
		if len(fake.createInputs) != 0 {
			t.Error("non-missing errors must not trigger a create")
		}
	})
}

func TestCancelPublish(t *testing.T) {
	t.Run("DeletesSchedule", func(t *testing.T) {
		fake := &fakeScheduler{}
		s := newTestScheduler(t, fake)

		if err := s.CancelPublish(context.Background(), "serverless-101"); err != nil {
			t.Fatalf("CancelPublish failed: %v", err)
		}
		if len(fake.deleteInputs) != 1 {
			t.Fatalf("expected 1 DeleteSchedule call, got %d", len(fake.deleteInputs))
		}
		in := fake.deleteInputs[0]
		if got := aws.ToString(in.Name); got != "pressbox-publish-serverless-101" {
			t.Errorf("delete name = %q", got)
		}
		if got := aws.ToString(in.GroupName); got != testGroup {
			t.Errorf("delete group = %q", got)
		}
	})

	t.Run("MissingScheduleTolerated", func(t *testing.T) {
		fake := &fakeScheduler{deleteErr: &types.ResourceNotFoundException{Message: aws.String("gone")}}
		s := newTestScheduler(t, fake)

		if err := s.CancelPublish(context.Background(), "serverless-101"); err != nil {
			t.Fatalf("cancelling an absent schedule should succeed, got %v", err)
		}
	})

	t.Run("OtherErrorsPropagate", func(t *testing.T) {
		fake := &fakeScheduler{deleteErr: errors.New("access denied")}
		s := newTestScheduler(t, fake)

		if err := s.CancelPublish(context.Background(), "serverless-101"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestPending(t *testing.T) {
	t.Run("ReturnsSchedule", func(t *testing.T) {
		fake := &fakeScheduler{getOut: &awsscheduler.GetScheduleOutput{
			ScheduleExpression: aws.String("at(2027-03-01T09:30:00)"),
			Target: &types.Target{
				Input: aws.String(`{"slug":"serverless-101","attempt":"01HV3BCDEF0123456789ABCDEF"}`),
			},
		}}
		s := newTestScheduler(t, fake)

		pending, err := s.Pending(context.Background(), "serverless-101")
		if err != nil {
			t.Fatalf("Pending failed: %v", err)
		}
		if pending == nil {
			t.Fatal("expected a pending schedule")
		}
		if pending.Name != "pressbox-publish-serverless-101" {
			t.Errorf("name = %q", pending.Name)
		}
		if pending.Expression != "at(2027-03-01T09:30:00)" {
			t.Errorf("expression = %q", pending.Expression)
		}
		if pending.Input.Slug != "serverless-101" {
			t.Errorf("input slug = %q", pending.Input.Slug)
		}
		if pending.Input.Attempt != "01HV3BCDEF0123456789ABCDEF" {
			t.Errorf("input attempt = %q", pending.Input.Attempt)
		}
	})

	t.Run("AbsentReturnsNil", func(t *testing.T) {
		fake := &fakeScheduler{getErr: &types.ResourceNotFoundException{Message: aws.String("no schedule")}}
		s := newTestScheduler(t, fake)

		pending, err := s.Pending(context.Background(), "serverless-101")
		if err != nil {
			t.Fatalf("Pending failed: %v", err)
		}
		if pending != nil {
			t.Errorf("expected nil for an absent schedule, got %+v", pending)
		}
	})

	t.Run("OtherErrorsPropagate", func(t *testing.T) {
		fake := &fakeScheduler{getErr: errors.New("access denied")}
		s := newTestScheduler(t, fake)

		if _, err := s.Pending(context.Background(), "serverless-101"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestScheduleName(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"serverless-101", "pressbox-publish-serverless-101"},
		{"intro_to.lambda", "pressbox-publish-intro_to.lambda"},
		{"what's new/2026", "pressbox-publish-what-s-new-2026"},
		{strings.Repeat("a", 80), "pressbox-publish-" + strings.Repeat("a", 47)},
	}
	for _, tt := range tests {
		got := schedule.ScheduleName(tt.slug)
		if got != tt.want {
			t.Errorf("ScheduleName(%q) = %q, want %q", tt.slug, got, tt.want)
		}
		if len(got) > 64 {
			t.Errorf("ScheduleName(%q) is %d characters, limit is 64", tt.slug, len(got))
		}
	}
}
