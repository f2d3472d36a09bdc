/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/datastore/mock"
	"github.com/suparena/pressbox/events"
	"github.com/suparena/pressbox/media"
	"github.com/suparena/pressbox/notify"
	"github.com/suparena/pressbox/queue"
)

const (
	testSlug     = "serverless-101"
	testSender   = "news@corpus.dev"
	testSite     = "https://corpus.dev"
	testOpsTopic = "arn:aws:sns:us-east-1:123456789012:pressbox-ops"
	testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789012/pressbox-work"
	testBus      = "pressbox-bus"
)

func draftArticle() corpus.Article {
	now := corpus.At(time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC))
	return corpus.Article{
		Slug:      testSlug,
		Title:     "Serverless 101",
		Summary:   "Functions, queues and tables, from zero.",
		Status:    corpus.StatusDraft,
		Body:      "# Serverless 101\n\nStart with one Lambda function and one table.\n",
		Tags:      []string{"aws", "serverless"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func publishedArticle() corpus.Article {
	a := draftArticle()
	a.Status = corpus.StatusPublished
	a.BodyHTML = "<p>old render</p>"
	a.PublishAt = corpus.At(time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC))
	return a
}

func confirmedSub(email string) corpus.Subscriber {
	now := corpus.Now()
	return corpus.Subscriber{
		ID:           "sub-" + email,
		Email:        email,
		Status:       corpus.SubscriberConfirmed,
		ConfirmToken: "tok-" + email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func pendingSub(email string) corpus.Subscriber {
	s := confirmedSub(email)
	s.Status = corpus.SubscriberPending
	return s
}

func articleStore(seed ...corpus.Article) *mock.DataStore[corpus.Article] {
	store := mock.New[corpus.Article]().
		WithGetKeyFunc(func(a corpus.Article) string { return a.Slug }).
		WithApplyFunc(applyArticleUpdates).
		WithConditionFunc(checkArticleCondition)
	for _, a := range seed {
		_ = store.Put(context.Background(), a)
	}
	return store
}

// applyArticleUpdates folds the pipeline's update maps into a stored
// article the way the table would.
func applyArticleUpdates(a corpus.Article, updates map[string]interface{}) corpus.Article {
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
}

func checkArticleCondition(a corpus.Article, condition string) bool {
	switch condition {
	case neverPublished:
		return a.BodyHTML == ""
	case oncePublished:
		return a.BodyHTML != ""
	}
	return true
}

func recordStore() *mock.DataStore[corpus.PublishRecord] {
	return mock.New[corpus.PublishRecord]().
		WithGetKeyFunc(func(r corpus.PublishRecord) string { return r.AttemptID })
}

func subscriberStore(subs ...corpus.Subscriber) *mock.DataStore[corpus.Subscriber] {
	store := mock.New[corpus.Subscriber]().
		WithGetKeyFunc(func(s corpus.Subscriber) string { return s.Email })
	for _, s := range subs {
		_ = store.Put(context.Background(), s)
	}
	return store
}

// testPipeline bundles a fully wired publisher with every fake behind it.
type testPipeline struct {
	articles    *mock.DataStore[corpus.Article]
	records     *mock.DataStore[corpus.PublishRecord]
	subscribers *mock.DataStore[corpus.Subscriber]
	cf          *fakeCloudFront
	eb          *fakeEventBridge
	ses         *fakeSES
	sns         *fakeSNS
	sqs         *fakeSQS
	pub         *Publisher
}

func newTestPipeline(t *testing.T, seed ...corpus.Article) *testPipeline {
	t.Helper()
	tp := &testPipeline{
		articles:    articleStore(seed...),
		records:     recordStore(),
		subscribers: subscriberStore(confirmedSub("reader@example.com"), pendingSub("maybe@example.com")),
		cf:          &fakeCloudFront{},
		eb:          &fakeEventBridge{},
		ses:         &fakeSES{},
		sns:         &fakeSNS{},
		sqs:         &fakeSQS{},
	}
	tp.pub = tp.build(t, nil)
	return tp
}

// build assembles a publisher over the fakes, with an optional deps tweak.
func (tp *testPipeline) build(t *testing.T, mutate func(*Deps)) *Publisher {
	t.Helper()

	mailer, err := notify.NewMailer(tp.ses, testSender, testSite)
	if err != nil {
		t.Fatalf("NewMailer: %v", err)
	}
	bus, err := events.NewPublisher(tp.eb, testBus, "test")
	if err != nil {
		t.Fatalf("NewPublisher(events): %v", err)
	}
	jobs, err := queue.NewProducer(tp.sqs, testQueueURL)
	if err != nil {
		t.Fatalf("NewProducer: %v", err)
	}

	deps := Deps{
		Articles:    tp.articles,
		Records:     tp.records,
		Subscribers: tp.subscribers,
		CDN:         media.NewInvalidator(tp.cf, "E2EXAMPLE"),
		Events:      bus,
		Mailer:      mailer,
		Ops:         notify.NewFanout(tp.sns, testOpsTopic),
		Jobs:        jobs,
		Deliveries:  []string{corpus.TargetDevto},
	}
	if mutate != nil {
		mutate(&deps)
	}

	pub, err := NewPublisher(deps)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	return pub
}

// recordList returns the stored publish records ordered by attempt ID.
func (tp *testPipeline) recordList() []corpus.PublishRecord {
	out := make([]corpus.PublishRecord, 0)
	for _, r := range tp.records.GetData() {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptID < out[j].AttemptID })
	return out
}

var errFakeRender = errors.New("render engine unavailable")

type failingRenderer struct{}

func (failingRenderer) Render([]byte) ([]byte, error) {
	return nil, errFakeRender
}

type fakeCloudFront struct {
	mu     sync.Mutex
	inputs []*cloudfront.CreateInvalidationInput
	err    error
}

func (f *fakeCloudFront) CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cftypes.Invalidation{Id: aws.String("INV1")},
	}, nil
}

func (f *fakeCloudFront) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, in := range f.inputs {
		out = append(out, in.InvalidationBatch.Paths.Items...)
	}
	return out
}

type fakeEventBridge struct {
	mu     sync.Mutex
	inputs []*eventbridge.PutEventsInput
	err    error
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
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

type fakeSES struct {
	mu     sync.Mutex
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
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

type fakeSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

type fakeSQS struct {
	mu      sync.Mutex
	sends   []*sqs.SendMessageInput
	batches []*sqs.SendMessageBatchInput
	err     error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sends = append(f.sends, params)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, params)
	return &sqs.SendMessageBatchOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeSFN struct {
	mu        sync.Mutex
	starts    []*sfn.StartExecutionInput
	describes []*sfn.DescribeExecutionInput
	startErr  error
	descErr   error
	descOut   *sfn.DescribeExecutionOutput
}

func (f *fakeSFN) StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.starts = append(f.starts, params)
	arn := "arn:aws:states:us-east-1:123456789012:execution:pressbox-publish:" + aws.ToString(params.Name)
	return &sfn.StartExecutionOutput{ExecutionArn: aws.String(arn)}, nil
}

func (f *fakeSFN) DescribeExecution(ctx context.Context, params *sfn.DescribeExecutionInput, optFns ...func(*sfn.Options)) (*sfn.DescribeExecutionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.descErr != nil {
		return nil, f.descErr
	}
	f.describes = append(f.describes, params)
	if f.descOut != nil {
		return f.descOut, nil
	}
	return &sfn.DescribeExecutionOutput{}, nil
}
