/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package api

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore/mock"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/notify"
	"github.com/suparena/pressbox/pipeline"
	"github.com/suparena/pressbox/queue"
	"github.com/suparena/pressbox/schedule"
	"github.com/suparena/pressbox/storagemodels"
)

const (
	testSlug    = "sqs-deep-dive"
	authorSub   = "7f3c9b2e-author"
	authorEmail = "editor@corpus.dev"
)

// request builds a proxy request; mutators layer on identity, path
// parameters, query and body.
func request(method, resource string, mutate ...func(*awsevents.APIGatewayProxyRequest)) awsevents.APIGatewayProxyRequest {
	req := awsevents.APIGatewayProxyRequest{
		HTTPMethod: method,
		Resource:   resource,
		RequestContext: awsevents.APIGatewayProxyRequestContext{
			RequestID: "req-1",
		},
	}
	for _, m := range mutate {
		m(&req)
	}
	return req
}

func asAuthor(req *awsevents.APIGatewayProxyRequest) {
	req.RequestContext.Authorizer = map[string]interface{}{
		"claims": map[string]interface{}{
			"sub":            authorSub,
			"email":          authorEmail,
			"cognito:groups": "[authors]",
		},
	}
}

// asReader authenticates without authors-group membership.
func asReader(req *awsevents.APIGatewayProxyRequest) {
	req.RequestContext.Authorizer = map[string]interface{}{
		"claims": map[string]interface{}{
			"sub":   "reader-sub",
			"email": "reader@example.com",
		},
	}
}

func withPath(key, value string) func(*awsevents.APIGatewayProxyRequest) {
	return func(req *awsevents.APIGatewayProxyRequest) {
		if req.PathParameters == nil {
			req.PathParameters = map[string]string{}
		}
		req.PathParameters[key] = value
	}
}

func withQuery(key, value string) func(*awsevents.APIGatewayProxyRequest) {
	return func(req *awsevents.APIGatewayProxyRequest) {
		if req.QueryStringParameters == nil {
			req.QueryStringParameters = map[string]string{}
		}
		req.QueryStringParameters[key] = value
	}
}

func withBody(t *testing.T, v interface{}) func(*awsevents.APIGatewayProxyRequest) {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	return withRawBody(string(payload))
}

func withRawBody(body string) func(*awsevents.APIGatewayProxyRequest) {
	return func(req *awsevents.APIGatewayProxyRequest) {
		req.Body = body
	}
}

func decodeJSON(t *testing.T, body string, out interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), out); err != nil {
		t.Fatalf("decode response %q: %v", body, err)
	}
}

func draftArticle() corpus.Article {
	now := corpus.At(time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC))
	return corpus.Article{
		Slug:      testSlug,
		Title:     "SQS Deep Dive",
		Summary:   "Queues, visibility timeouts and redrives.",
		Status:    corpus.StatusDraft,
		Body:      "# SQS Deep Dive\n\nQueues decouple producers from consumers.\n",
		Tags:      []string{"aws", "sqs"},
		Author:    authorSub,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func publishedArticle() corpus.Article {
	a := draftArticle()
	a.Status = corpus.StatusPublished
	a.BodyHTML = "<p>rendered</p>"
	a.PublishAt = corpus.At(time.Date(2026, 7, 21, 12, 0, 0, 0, time.UTC))
	return a
}

func scheduledArticle(at time.Time) corpus.Article {
	a := draftArticle()
	a.Status = corpus.StatusScheduled
	a.PublishAt = corpus.At(at)
	return a
}

func pendingSubscriber(email string) corpus.Subscriber {
	now := corpus.Now()
	return corpus.Subscriber{
		ID:           "sub-" + email,
		Email:        email,
		Status:       corpus.SubscriberPending,
		ConfirmToken: "tok-" + email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func subscriberWithStatus(email, status string) corpus.Subscriber {
	s := pendingSubscriber(email)
	s.Status = status
	return s
}

// articleStore mirrors the table closely enough for the publish pipeline:
// queries filter on the GSI1 status key, updates fold the pipeline's map.
func articleStore(seed ...corpus.Article) *mock.DataStore[corpus.Article] {
	store := mock.New[corpus.Article]().
		WithGetKeyFunc(func(a corpus.Article) string { return a.Slug })
	store.WithQueryFunc(func(ctx context.Context, params *storagemodels.QueryParams) ([]interface{}, error) {
		want := ""
		if params != nil && params.ExpressionAttributeValues != nil {
			if v, ok := params.ExpressionAttributeValues[":pk"].(*ddbtypes.AttributeValueMemberS); ok {
				want = v.Value
			}
		}
		out := make([]interface{}, 0)
		for _, a := range store.GetData() {
			if want == "" || corpus.StatusKey(a.Status) == want {
				item := a
				out = append(out, &item)
			}
		}
		return out, nil
	})
	store.WithApplyFunc(func(a corpus.Article, updates map[string]interface{}) corpus.Article {
		if v, ok := updates["Status"].(string); ok {
			a.Status = v
		}
		if v, ok := updates["BodyHTML"].(string); ok {
			a.BodyHTML = v
		}
		if v, ok := updates["ReadingTime"].(int); ok {
			a.ReadingTime = v
		}
		if v, ok := updates["PublishAt"].(strfmt.DateTime); ok {
			a.PublishAt = v
		}
		if v, ok := updates["UpdatedAt"].(strfmt.DateTime); ok {
			a.UpdatedAt = v
		}
		return a
	})
	store.WithConditionFunc(func(a corpus.Article, condition string) bool {
		switch condition {
		case "attribute_not_exists(BodyHTML)":
			return a.BodyHTML == ""
		case "attribute_exists(BodyHTML)":
			return a.BodyHTML != ""
		}
		return true
	})
	for _, a := range seed {
		_ = store.Put(context.Background(), a)
	}
	return store
}

func recordStore() *mock.DataStore[corpus.PublishRecord] {
	return mock.New[corpus.PublishRecord]().
		WithGetKeyFunc(func(r corpus.PublishRecord) string { return r.AttemptID })
}

func subscriberStore(seed ...corpus.Subscriber) *mock.DataStore[corpus.Subscriber] {
	store := mock.New[corpus.Subscriber]().
		WithGetKeyFunc(func(s corpus.Subscriber) string { return s.Email })
	for _, s := range seed {
		_ = store.Put(context.Background(), s)
	}
	return store
}

// testAPI bundles the handler with every fake and store behind it.
type testAPI struct {
	articles    *mock.DataStore[corpus.Article]
	records     *mock.DataStore[corpus.PublishRecord]
	subscribers *mock.DataStore[corpus.Subscriber]
	sched       *fakeScheduler
	ses         *fakeSES
	sqs         *fakeSQS
	eb          *fakeEventBridge
	presign     *fakePresigner
	h           *Handler
}

func newTestAPI(t *testing.T, seed ...corpus.Article) *testAPI {
	t.Helper()
	ta := &testAPI{
		articles:    articleStore(seed...),
		records:     recordStore(),
		subscribers: subscriberStore(),
		sched:       &fakeScheduler{},
		ses:         &fakeSES{},
		sqs:         &fakeSQS{},
		eb:          &fakeEventBridge{},
		presign:     &fakePresigner{},
	}
	ta.h = ta.build(t, nil)
	return ta
}

func (ta *testAPI) build(t *testing.T, mutate func(*Deps)) *Handler {
	t.Helper()

	pub, err := pipeline.NewPublisher(pipeline.Deps{
		Articles: ta.articles,
		Records:  ta.records,
	})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	sched, err := schedule.NewScheduler(ta.sched, "pressbox",
		"arn:aws:lambda:us-east-1:123456789012:function:pressbox-scheduler",
		"arn:aws:iam::123456789012:role/pressbox-scheduler")
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	store, err := media.NewStore(&fakeS3{}, ta.presign, "pressbox-media", "https://cdn.corpus.dev")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	bus, err := events.NewPublisher(ta.eb, "pressbox-bus", "api")
	if err != nil {
		t.Fatalf("NewPublisher(events): %v", err)
	}
	mailer, err := notify.NewMailer(ta.ses, "news@corpus.dev", "https://corpus.dev")
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	jobs, err := queue.NewProducer(ta.sqs, "https://sqs.us-east-1.amazonaws.com/123456789012/pressbox-work")
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}

	deps := Deps{
		Articles:    ta.articles,
		Subscribers: ta.subscribers,
		Pipeline:    pub,
		Scheduler:   sched,
		Media:       store,
		Events:      bus,
		Mailer:      mailer,
		Jobs:        jobs,
	}
	if mutate != nil {
		mutate(&deps)
	}

	h, err := New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

type fakeScheduler struct {
	mu        sync.Mutex
	creates   []*scheduler.CreateScheduleInput
	updates   []*scheduler.UpdateScheduleInput
	deletes   []*scheduler.DeleteScheduleInput
	createErr error
}

func (f *fakeScheduler) CreateSchedule(ctx context.Context, params *scheduler.CreateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.CreateScheduleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates = append(f.creates, params)
	return &scheduler.CreateScheduleOutput{}, nil
}

func (f *fakeScheduler) UpdateSchedule(ctx context.Context, params *scheduler.UpdateScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.UpdateScheduleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, params)
	return &scheduler.UpdateScheduleOutput{}, nil
}

func (f *fakeScheduler) DeleteSchedule(ctx context.Context, params *scheduler.DeleteScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.DeleteScheduleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, params)
	return &scheduler.DeleteScheduleOutput{}, nil
}

func (f *fakeScheduler) GetSchedule(ctx context.Context, params *scheduler.GetScheduleInput, optFns ...func(*scheduler.Options)) (*scheduler.GetScheduleOutput, error) {
	return &scheduler.GetScheduleOutput{}, nil
}

type fakeSES struct {
	mu     sync.Mutex
	inputs []*sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func (f *fakeSES) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, in := range f.inputs {
		out = append(out, in.Destination.ToAddresses...)
	}
	return out
}

type fakeSQS struct {
	mu    sync.Mutex
	sends []*sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, params)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	return &sqs.SendMessageBatchOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeEventBridge struct {
	mu     sync.Mutex
	inputs []*eventbridge.PutEventsInput
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)
	return &eventbridge.PutEventsOutput{
		Entries: make([]ebtypes.PutEventsResultEntry, len(params.Entries)),
	}, nil
}

func (f *fakeEventBridge) detailTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, in := range f.inputs {
		for _, e := range in.Entries {
			out = append(out, aws.ToString(e.DetailType))
		}
	}
	return out
}

type fakeS3 struct{}

func (fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func (fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{}, nil
}

func (fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{}, nil
}

func (fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	mu   sync.Mutex
	puts []*s3.PutObjectInput
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://s3.sign/get/" + aws.ToString(params.Key)}, nil
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, params)
	return &v4.PresignedHTTPRequest{URL: "https://s3.sign/put/" + aws.ToString(params.Key)}, nil
}

type fakeSFN struct {
	mu     sync.Mutex
	starts []*sfn.StartExecutionInput
}

func (f *fakeSFN) StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, params)
	arn := "arn:aws:states:us-east-1:123456789012:execution:pressbox-publish:" + aws.ToString(params.Name)
	return &sfn.StartExecutionOutput{ExecutionArn: aws.String(arn)}, nil
}

func (f *fakeSFN) DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error) {
	return &sfn.DescribeExecutionOutput{}, nil
}
